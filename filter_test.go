package finance

import (
	"errors"
	"testing"

	"github.com/etnz/finance/date"
)

func TestTransactionFilter(t *testing.T) {
	l := flowLedger(t)
	outside, err := l.Account("Outside")
	l.must(err)
	grocer, err := l.Attribute(PayeeAttribute, "Grocer")
	l.must(err)
	food, err := l.Category("Food")
	l.must(err)
	acme, err := l.Security("ACME")
	l.must(err)
	january := date.NewRange(day("2024-01-01"), day("2024-01-31"))

	testCases := []struct {
		name   string
		filter TransactionFilter
		want   int
	}{
		{"inactive", TransactionFilter{}, 5},
		{"cash only", TransactionFilter{Kinds: Criterion[Kind]{FilterKeep, []Kind{KindCash}}}, 3},
		{"not outside", TransactionFilter{Accounts: Criterion[Account]{FilterDiscard, []Account{outside}}}, 4},
		{"grocer", TransactionFilter{Payees: Criterion[*Attribute]{FilterKeep, []*Attribute{grocer}}}, 2},
		{"food", TransactionFilter{Categories: Criterion[*Category]{FilterKeep, []*Category{food}}}, 2},
		{"acme", TransactionFilter{Securities: Criterion[*Security]{FilterKeep, []*Security{acme}}}, 1},
		{"tagless", TransactionFilter{Tagless: FilterKeep}, 5},
		{"january", TransactionFilter{DateMode: FilterKeep, Dates: january}, 4},
		{"amounts", TransactionFilter{AmountMode: FilterKeep, AmountMin: D(200), AmountMax: D(600), AmountCurrency: l.eur}, 2},
		{"january cash", TransactionFilter{
			Kinds:    Criterion[Kind]{FilterKeep, []Kind{KindCash}},
			DateMode: FilterDiscard, Dates: date.NewRange(day("2024-02-01"), day("2024-02-29")),
		}, 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.filter.Apply(l.Transactions())
			if err != nil {
				t.Fatalf("Apply() failed: %v", err)
			}
			if len(got) != tc.want {
				t.Errorf("Apply() kept %d transactions, want %d", len(got), tc.want)
			}
			if active := tc.filter.IsActive(); active != (tc.name != "inactive") {
				t.Errorf("IsActive() = %v", active)
			}
		})
	}

	f := TransactionFilter{AmountMode: FilterKeep}
	if _, err := f.Apply(l.Transactions()); !errors.Is(err, ErrInvalid) {
		t.Errorf("amount filter without currency error = %v, want ErrInvalid", err)
	}
}
