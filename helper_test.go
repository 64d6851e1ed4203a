package finance

import (
	"testing"

	"github.com/etnz/finance/date"
	"github.com/google/uuid"
)

// day is a helper for test to create dates from const.
func day(s string) date.Date { return date.MustParse(s) }

// split is a helper for test to create category and tag splits.
func split(name string, amount float64) Split { return Split{Name: name, Amount: D(amount)} }

// testLedger is a RecordKeeper with EUR as base currency, USD and an EUR/USD
// rate of 1.10 since 2024-01-01. Every helper fails the test on error.
type testLedger struct {
	*RecordKeeper
	t        testing.TB
	eur, usd *Currency
}

func newTestLedger(t testing.TB) *testLedger {
	t.Helper()
	l := &testLedger{RecordKeeper: New(), t: t}
	var err error
	if l.eur, err = l.AddCurrency("EUR", 2); err != nil {
		t.Fatalf("AddCurrency(EUR) failed: %v", err)
	}
	if l.usd, err = l.AddCurrency("USD", 2); err != nil {
		t.Fatalf("AddCurrency(USD) failed: %v", err)
	}
	if _, err := l.AddExchangeRate("EUR", "USD"); err != nil {
		t.Fatalf("AddExchangeRate() failed: %v", err)
	}
	l.must(l.SetExchangeRate("EUR/USD", day("2024-01-01"), D("1.10")))
	return l
}

func (l *testLedger) must(err error) {
	l.t.Helper()
	if err != nil {
		l.t.Fatalf("unexpected error: %v", err)
	}
}

// EUR is a helper for test to create euro amounts from const.
func (l *testLedger) EUR(v float64) CashAmount { return C(v, l.eur) }

// USD is a helper for test to create usd amounts from const.
func (l *testLedger) USD(v float64) CashAmount { return C(v, l.usd) }

func (l *testLedger) cashAccount(path, currency string, initial float64) *CashAccount {
	l.t.Helper()
	a, err := l.AddCashAccount(path, currency, D(initial), -1)
	l.must(err)
	return a
}

func (l *testLedger) securityAccount(path string) *SecurityAccount {
	l.t.Helper()
	a, err := l.AddSecurityAccount(path, -1)
	l.must(err)
	return a
}

func (l *testLedger) security(name, typ, currency string) *Security {
	l.t.Helper()
	s, err := l.AddSecurity(SecuritySpec{Name: name, Symbol: name, Type: typ, Currency: currency, SharesDecimals: 4})
	l.must(err)
	return s
}

func (l *testLedger) cash(typ CashTransactionType, account, on, payee string, categories []Split, tags ...Split) *CashTransaction {
	l.t.Helper()
	tx, err := l.AddCashTransaction(CashTransactionSpec{
		Account: account, Date: day(on), Type: typ, Payee: payee,
		Categories: categories, Tags: tags,
	})
	l.must(err)
	return tx
}

func (l *testLedger) expense(account, on, payee string, categories []Split, tags ...Split) *CashTransaction {
	l.t.Helper()
	return l.cash(ExpenseTransaction, account, on, payee, categories, tags...)
}

func (l *testLedger) income(account, on, payee string, categories []Split, tags ...Split) *CashTransaction {
	l.t.Helper()
	return l.cash(IncomeTransaction, account, on, payee, categories, tags...)
}

func (l *testLedger) transfer(sender, recipient, on string, sent, received float64) *CashTransfer {
	l.t.Helper()
	tx, err := l.AddCashTransfer(CashTransferSpec{
		Sender: sender, Recipient: recipient, Date: day(on),
		AmountSent: D(sent), AmountReceived: D(received),
	})
	l.must(err)
	return tx
}

func (l *testLedger) refund(original uuid.UUID, account, on string, categories []Split, tags ...Split) (*RefundTransaction, error) {
	return l.AddRefund(RefundSpec{
		Refunded: original, Account: account, Date: day(on), Payee: "Shop",
		Categories: categories, Tags: tags,
	})
}

func (l *testLedger) trade(typ SecurityTransactionType, securities, cash, security, on string, shares, price float64) *SecurityTransaction {
	l.t.Helper()
	tx, err := l.AddSecurityTransaction(SecurityTransactionSpec{
		Type: typ, SecurityAccount: securities, CashAccount: cash, Security: security,
		Date: day(on), Shares: D(shares), PricePerShare: D(price),
	})
	l.must(err)
	return tx
}

func (l *testLedger) price(security, on string, price float64) {
	l.t.Helper()
	l.must(l.SetSecurityPrice(security, day(on), D(price)))
}

// assertAmount fails the test when got is not the amount want.
func assertAmount(t testing.TB, what string, got, want CashAmount) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}
