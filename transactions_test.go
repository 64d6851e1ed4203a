package finance

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func brokerLedger(t *testing.T) *testLedger {
	l := newTestLedger(t)
	l.cashAccount("Cash", "USD", 10000)
	l.securityAccount("Broker")
	l.securityAccount("Pension")
	l.security("ACME", "Stock", "USD")
	return l
}

func TestTransactions_Holdings(t *testing.T) {
	l := brokerLedger(t)
	buy := l.trade(Buy, "Broker", "Cash", "ACME", "2024-01-10", 10, 100)

	t.Run("cannot sell more than held", func(t *testing.T) {
		_, err := l.AddSecurityTransaction(SecurityTransactionSpec{
			Type: Sell, SecurityAccount: "Broker", CashAccount: "Cash", Security: "ACME",
			Date: day("2024-01-11"), Shares: D(11), PricePerShare: D(100),
		})
		if !errors.Is(err, ErrInvariant) {
			t.Errorf("oversell error = %v, want an invariant violation", err)
		}
	})

	t.Run("cannot sell before buying", func(t *testing.T) {
		_, err := l.AddSecurityTransaction(SecurityTransactionSpec{
			Type: Sell, SecurityAccount: "Broker", CashAccount: "Cash", Security: "ACME",
			Date: day("2024-01-09"), Shares: D(1), PricePerShare: D(100),
		})
		if !errors.Is(err, ErrInvariant) {
			t.Errorf("early sale error = %v, want an invariant violation", err)
		}
	})

	sell := l.trade(Sell, "Broker", "Cash", "ACME", "2024-01-20", 4, 120)

	t.Run("edit a buy below later sales", func(t *testing.T) {
		err := l.EditSecurityTransaction(buy.ID(), SecurityTransactionSpec{
			Type: Buy, SecurityAccount: "Broker", CashAccount: "Cash", Security: "ACME",
			Date: day("2024-01-10"), Shares: D(3), PricePerShare: D(100),
		})
		if !errors.Is(err, ErrInvariant) {
			t.Errorf("EditSecurityTransaction() error = %v, want an invariant violation", err)
		}
		if !buy.Shares().Equal(Q(10)) {
			t.Errorf("rejected edit changed the shares to %v", buy.Shares())
		}
	})

	t.Run("remove a buy needed by a sale", func(t *testing.T) {
		if err := l.RemoveTransactions(buy.ID()); !errors.Is(err, ErrInvariant) {
			t.Errorf("RemoveTransactions() error = %v, want an invariant violation", err)
		}
	})

	t.Run("transfer", func(t *testing.T) {
		_, err := l.AddSecurityTransfer(SecurityTransferSpec{
			Sender: "Broker", Recipient: "Pension", Security: "ACME", Date: day("2024-01-25"), Shares: D(6),
		})
		l.must(err)
		broker, err := l.SecurityAccount("Broker")
		l.must(err)
		pension, err := l.SecurityAccount("Pension")
		l.must(err)
		acme, err := l.Security("ACME")
		l.must(err)
		if got := broker.Shares(acme, day("2024-01-31")); !got.IsZero() {
			t.Errorf("Broker shares = %v, want 0", got)
		}
		if got := pension.Shares(acme, day("2024-01-31")); !got.Equal(Q(6)) {
			t.Errorf("Pension shares = %v, want 6", got)
		}
		if err := l.RemoveTransactions(sell.ID()); err != nil {
			t.Errorf("removing a sale failed: %v", err)
		}
	})

	cash, err := l.CashAccount("Cash")
	l.must(err)
	assertAmount(t, "cash balance", cash.NativeBalance(day("2024-12-31")), l.USD(9000))
}

func TestTransactions_Validation(t *testing.T) {
	l := brokerLedger(t)
	l.cashAccount("Checking", "EUR", 0)

	testCases := []struct {
		name string
		spec CashTransactionSpec
		want error
	}{
		{"no date", CashTransactionSpec{Account: "Checking", Type: ExpenseTransaction, Payee: "P", Categories: []Split{split("Food", 1)}}, ErrInvalid},
		{"no category", CashTransactionSpec{Account: "Checking", Date: day("2024-01-01"), Type: ExpenseTransaction, Payee: "P"}, ErrInvalid},
		{"no payee", CashTransactionSpec{Account: "Checking", Date: day("2024-01-01"), Type: ExpenseTransaction, Categories: []Split{split("Food", 1)}}, ErrInvalid},
		{"too precise", CashTransactionSpec{Account: "Checking", Date: day("2024-01-01"), Type: ExpenseTransaction, Payee: "P", Categories: []Split{split("Food", 1.005)}}, ErrInvalid},
		{"tag above amount", CashTransactionSpec{Account: "Checking", Date: day("2024-01-01"), Type: ExpenseTransaction, Payee: "P", Categories: []Split{split("Food", 1)}, Tags: []Split{split("Trip", 2)}}, ErrInvalid},
		{"long description", CashTransactionSpec{Account: "Checking", Date: day("2024-01-01"), Type: ExpenseTransaction, Payee: "P", Categories: []Split{split("Food", 1)}, Description: strings.Repeat("x", 257)}, ErrInvalid},
		{"unknown account", CashTransactionSpec{Account: "Nope", Date: day("2024-01-01"), Type: ExpenseTransaction, Payee: "P", Categories: []Split{split("Food", 1)}}, ErrNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := l.AddCashTransaction(tc.spec); !errors.Is(err, tc.want) {
				t.Errorf("AddCashTransaction() error = %v, want %v", err, tc.want)
			}
		})
	}
	if n := len(l.Transactions()); n != 0 {
		t.Errorf("rejected transactions left %d transactions", n)
	}
	if _, err := l.Attribute(PayeeAttribute, "P"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rejected transactions created payee P: %v", err)
	}

	t.Run("transfer to itself", func(t *testing.T) {
		_, err := l.AddCashTransfer(CashTransferSpec{Sender: "Checking", Recipient: "Checking", Date: day("2024-01-01"), AmountSent: D(1), AmountReceived: D(1)})
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("AddCashTransfer() error = %v, want ErrInvalid", err)
		}
	})

	t.Run("security in another currency", func(t *testing.T) {
		_, err := l.AddSecurityTransaction(SecurityTransactionSpec{
			Type: Buy, SecurityAccount: "Broker", CashAccount: "Checking", Security: "ACME",
			Date: day("2024-01-10"), Shares: D(1), PricePerShare: D(1),
		})
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("AddSecurityTransaction() error = %v, want ErrInvalid", err)
		}
	})

	t.Run("dividend paying nothing", func(t *testing.T) {
		_, err := l.AddSecurityTransaction(SecurityTransactionSpec{
			Type: Dividend, SecurityAccount: "Broker", CashAccount: "Cash", Security: "ACME",
			Date: day("2024-01-10"), Shares: D(1),
		})
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("AddSecurityTransaction() error = %v, want ErrInvalid", err)
		}
	})
}

func TestParseSecurityTransactionType(t *testing.T) {
	for _, typ := range []SecurityTransactionType{Buy, Sell, Dividend} {
		got, err := ParseSecurityTransactionType(typ.String())
		if err != nil || got != typ {
			t.Errorf("ParseSecurityTransactionType(%q) = %v, %v", typ, got, err)
		}
	}
	if _, err := ParseSecurityTransactionType("split"); !errors.Is(err, ErrInvalid) {
		t.Errorf("ParseSecurityTransactionType(split) error = %v, want ErrInvalid", err)
	}
}

func TestTransactions_Edit(t *testing.T) {
	l := newTestLedger(t)
	l.cashAccount("Checking", "EUR", 0)
	l.cashAccount("Savings", "EUR", 0)
	tx := l.expense("Checking", "2024-01-10", "Grocer", []Split{split("Food", 10)})
	id := tx.ID()

	l.must(l.EditCashTransaction(id, CashTransactionSpec{
		Account: "Savings", Date: day("2024-01-02"), Type: ExpenseTransaction, Payee: "Grocer",
		Categories: []Split{split("Food", 12), split("Home", 3)},
	}))
	if tx.ID() != id || tx.Account().Name() != "Savings" {
		t.Errorf("edited transaction %s is in %s, want %s in Savings", tx.ID(), tx.Account().Name(), id)
	}
	assertAmount(t, "edited amount", tx.Amount(), l.EUR(15))

	checking, err := l.CashAccount("Checking")
	l.must(err)
	savings, err := l.CashAccount("Savings")
	l.must(err)
	if len(checking.Transactions()) != 0 || len(savings.Transactions()) != 1 {
		t.Errorf("account entries not moved: %d in Checking, %d in Savings", len(checking.Transactions()), len(savings.Transactions()))
	}

	if err := l.EditCashTransfer(id, CashTransferSpec{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("EditCashTransfer() on a cash transaction error = %v, want ErrInvalid", err)
	}
	if _, err := l.Transaction(uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Transaction() of an unknown id error = %v, want ErrNotFound", err)
	}
}

func TestTransactions_EditMany(t *testing.T) {
	l := newTestLedger(t)
	l.cashAccount("Checking", "EUR", 0)
	l.cashAccount("Savings", "EUR", 0)
	l.cashAccount("Dollars", "USD", 0)
	a := l.expense("Checking", "2024-01-10", "Grocer", []Split{split("Food", 10)})
	b := l.expense("Checking", "2024-01-12", "Bistro", []Split{split("Food", 25)}, split("Trip", 5))

	payee, account := "Market", "Savings"
	l.must(l.EditCashTransactions([]uuid.UUID{a.ID(), b.ID()}, CashTransactionsEdit{Payee: &payee, Account: &account}))
	for _, tx := range []*CashTransaction{a, b} {
		if tx.Payee().Name() != "Market" || tx.Account().Name() != "Savings" {
			t.Errorf("edited %s has payee %s in %s, want Market in Savings", tx.ID(), tx.Payee().Name(), tx.Account().Name())
		}
	}
	assertAmount(t, "kept amount", b.Amount(), l.EUR(25))
	if got := b.Tags(); len(got) != 1 || got[0].Name() != "Trip" {
		t.Errorf("edited tags = %v, want Trip", got)
	}
	if a.Date() != day("2024-01-10") || b.Date() != day("2024-01-12") {
		t.Errorf("edited dates = %v, %v, want them kept", a.Date(), b.Date())
	}

	t.Run("all or none", func(t *testing.T) {
		// 15 fits the 25 of b, not the 10 of a
		tags := []Split{split("Trip", 15)}
		err := l.EditCashTransactions([]uuid.UUID{b.ID(), a.ID()}, CashTransactionsEdit{Tags: tags})
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("EditCashTransactions() error = %v, want ErrInvalid", err)
		}
		trip, err := l.Attribute(TagAttribute, "Trip")
		l.must(err)
		if got, _ := b.TagAmount(trip); !got.Equal(l.EUR(5)) {
			t.Errorf("tag amount of b = %v, want the untouched 5", got)
		}
	})

	t.Run("mixed currencies", func(t *testing.T) {
		c := l.expense("Dollars", "2024-01-15", "Diner", []Split{split("Food", 8)})
		desc := "lunch"
		err := l.EditCashTransactions([]uuid.UUID{a.ID(), c.ID()}, CashTransactionsEdit{Description: &desc})
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("EditCashTransactions() error = %v, want ErrInvalid", err)
		}
		if a.Description() != "" {
			t.Errorf("description = %q, want it untouched", a.Description())
		}
	})
}

func TestTransactions_Order(t *testing.T) {
	l := newTestLedger(t)
	l.cashAccount("Checking", "EUR", 0)
	second := l.income("Checking", "2024-01-10", "A", []Split{split("Salary", 1)})
	first := l.income("Checking", "2024-01-05", "B", []Split{split("Salary", 2)})
	third := l.income("Checking", "2024-01-10", "C", []Split{split("Salary", 3)})

	got := l.Transactions()
	want := []Transaction{first, second, third}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Transactions()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTransactions_Tags(t *testing.T) {
	l := newTestLedger(t)
	l.cashAccount("Checking", "EUR", 100)
	l.cashAccount("Savings", "EUR", 0)
	expense := l.expense("Checking", "2024-01-10", "Grocer", []Split{split("Food", 10)})
	transfer := l.transfer("Checking", "Savings", "2024-01-11", 50, 50)
	refund, err := l.refund(expense.ID(), "Checking", "2024-01-12", []Split{split("Food", 4)})
	l.must(err)

	l.must(l.AddTagsToTransactions([]uuid.UUID{expense.ID(), transfer.ID()}, []string{"Trip"}))
	trip, err := l.Attribute(TagAttribute, "Trip")
	l.must(err)
	if got, ok := expense.TagAmount(trip); !ok || !got.Equal(l.EUR(10)) {
		t.Errorf("expense Trip amount = %v, want the full amount", got)
	}
	if got, ok := refund.TagAmount(trip); !ok || !got.Equal(l.EUR(4)) {
		t.Errorf("refund Trip amount = %v, want the full refund", got)
	}
	if tags := transfer.Tags(); len(tags) != 1 || tags[0] != trip {
		t.Errorf("transfer tags = %v, want [Trip]", tags)
	}

	if err := l.AddTagsToTransactions([]uuid.UUID{refund.ID()}, []string{"Other"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("tagging a refund error = %v, want ErrInvalid", err)
	}

	l.must(l.RemoveTagsFromTransactions([]uuid.UUID{expense.ID(), transfer.ID()}, []string{"Trip"}))
	if len(expense.Tags()) != 0 || len(refund.Tags()) != 0 || len(transfer.Tags()) != 0 {
		t.Errorf("tags left after removal: %v %v %v", expense.Tags(), refund.Tags(), transfer.Tags())
	}
}
