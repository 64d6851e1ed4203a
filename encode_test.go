package finance

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncode_RoundTrip(t *testing.T) {
	l := flowLedger(t)
	_, err := l.AddAccountGroup("Family", 0)
	l.must(err)
	l.cashAccount("Family/Dollars", "USD", 250.5)
	l.transfer("Checking", "Family/Dollars", "2024-01-25", 10, 11)
	expense := l.expense("Family/Dollars", "2024-01-26", "Diner", []Split{split("Food/Restaurant", 30)}, split("Trip", 30))
	_, err = l.refund(expense.ID(), "Family/Dollars", "2024-01-28", []Split{split("Food/Restaurant", 5)}, split("Trip", 5))
	l.must(err)
	l.trade(Dividend, "Broker", "Checking", "ACME", "2024-01-28", 10, 1.5)
	l.securityAccount("Pension")
	_, err = l.AddSecurityTransfer(SecurityTransferSpec{Sender: "Broker", Recipient: "Pension", Security: "ACME", Date: day("2024-02-01"), Shares: D(2.5)})
	l.must(err)
	l.must(l.SetBaseCurrency("EUR"))

	var first bytes.Buffer
	l.must(Encode(&first, l.RecordKeeper))
	decoded, err := Decode(bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	var second bytes.Buffer
	l.must(Encode(&second, decoded))
	if first.String() != second.String() {
		t.Errorf("re-encoded ledger differs:\n%s\nwant:\n%s", second.String(), first.String())
	}

	if decoded.BaseCurrency().Code() != "EUR" {
		t.Errorf("decoded base currency = %v", decoded.BaseCurrency())
	}
	tx, err := decoded.Transaction(expense.ID())
	if err != nil {
		t.Fatalf("decoded ledger lost transaction %s: %v", expense.ID(), err)
	}
	if got := TransactionAmount(tx); got.String() != "30.00 USD" {
		t.Errorf("decoded expense amount = %v", got)
	}
}

func TestDecode_AnyOrder(t *testing.T) {
	ledger := strings.Join([]string{
		`{"datatype":"CashTransaction","uuid":"4b1a3c9e-2f55-4f0a-9a7e-0d6c2a1b9f10","date":"2024-01-05","account":"Checking","type":"expense","payee":"Grocer","categories":[{"name":"Food","amount":"12.5"}]}`,
		`{"datatype":"CashAccount","uuid":"9c0e4b4a-6d8e-4e53-8f43-3b8a4a2f7d21","path":"Checking","currency":"EUR","initial_balance":"100"}`,
		``,
		`{"datatype":"Currency","code":"EUR","places":2}`,
	}, "\n")
	rk, err := Decode(strings.NewReader(ledger))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	acc, err := rk.CashAccount("Checking")
	if err != nil {
		t.Fatal(err)
	}
	if got := acc.NativeBalance(day("2024-01-31")).String(); got != "87.50 EUR" {
		t.Errorf("balance = %s, want 87.50 EUR", got)
	}
}

func TestDecode_Errors(t *testing.T) {
	testCases := []struct {
		name, ledger, want string
	}{
		{"unknown datatype", `{"datatype":"Budget"}`, `line 1: unknown datatype "Budget"`},
		{"not json", `datatype`, "line 1: could not identify datatype"},
		{"broken reference", `{"datatype":"CashAccount","path":"Checking","currency":"EUR","initial_balance":"0"}`, "line 1: CashAccount:"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.ledger))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Decode() error = %v, want %q", err, tc.want)
			}
		})
	}
}
