package finance

import (
	"errors"
	"testing"
)

// groceryLedger has an expense of 100 EUR split in Groceries 60 and Fuel 40,
// tagged Family for 100 and Car for 40.
func groceryLedger(t *testing.T) (*testLedger, *CashTransaction) {
	l := newTestLedger(t)
	l.cashAccount("Checking", "EUR", 1000)
	original := l.expense("Checking", "2024-01-05", "Market",
		[]Split{split("Groceries", 60), split("Fuel", 40)},
		split("Family", 100), split("Car", 40))
	return l, original
}

func TestRefund_CategoryBound(t *testing.T) {
	l, original := groceryLedger(t)

	if _, err := l.refund(original.ID(), "Checking", "2024-01-10", []Split{split("Groceries", 60)}, split("Family", 60)); err != nil {
		t.Fatalf("first refund failed: %v", err)
	}
	_, err := l.refund(original.ID(), "Checking", "2024-01-11", []Split{split("Groceries", 10)}, split("Family", 10))
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("second Groceries refund error = %v, want an invariant violation", err)
	}
	if n := len(l.Refunds(original)); n != 1 {
		t.Errorf("Refunds() has %d refunds, want 1", n)
	}

	b := l.RefundBounds(original, l.EUR(10), nil)
	fuel, err := l.Category("Fuel")
	l.must(err)
	groceries, err := l.Category("Groceries")
	l.must(err)
	assertAmount(t, "Groceries max", b.Categories[groceries].Max, l.EUR(0))
	assertAmount(t, "Fuel max", b.Categories[fuel].Max, l.EUR(40))
}

func TestRefund_TagBounds(t *testing.T) {
	l, original := groceryLedger(t)
	family, err := l.Attribute(TagAttribute, "Family")
	l.must(err)
	car, err := l.Attribute(TagAttribute, "Car")
	l.must(err)

	testCases := []struct {
		name                 string
		total                float64
		familyMin, familyMax float64
		carMin, carMax       float64
	}{
		{"full refund", 100, 100, 100, 40, 100},
		{"half refund", 50, 50, 50, 0, 50},
		{"small refund", 10, 10, 10, 0, 10},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := l.RefundBounds(original, l.EUR(tc.total), nil)
			assertAmount(t, "Family min", b.Tags[family].Min, l.EUR(tc.familyMin))
			assertAmount(t, "Family max", b.Tags[family].Max, l.EUR(tc.familyMax))
			assertAmount(t, "Car min", b.Tags[car].Min, l.EUR(tc.carMin))
			assertAmount(t, "Car max", b.Tags[car].Max, l.EUR(tc.carMax))
		})
	}

	// A refund must keep tags consistent with the refunded categories.
	if _, err := l.refund(original.ID(), "Checking", "2024-01-10", []Split{split("Groceries", 50)}, split("Family", 20)); !errors.Is(err, ErrInvariant) {
		t.Errorf("refund with a too small tag error = %v, want an invariant violation", err)
	}
}

func TestRefund_Edit(t *testing.T) {
	l, original := groceryLedger(t)
	first, err := l.refund(original.ID(), "Checking", "2024-01-10", []Split{split("Groceries", 30)}, split("Family", 30))
	l.must(err)
	_, err = l.refund(original.ID(), "Checking", "2024-01-11", []Split{split("Groceries", 30)}, split("Family", 30))
	l.must(err)

	// The edited refund is excluded from the bound it must satisfy.
	err = l.EditRefund(first.ID(), RefundSpec{
		Account: "Checking", Date: day("2024-01-10"), Payee: "Shop",
		Categories: []Split{split("Groceries", 30), split("Fuel", 40)},
		Tags:       []Split{split("Family", 70), split("Car", 40)},
	})
	l.must(err)
	assertAmount(t, "edited amount", first.Amount(), l.EUR(70))

	err = l.EditRefund(first.ID(), RefundSpec{
		Account: "Checking", Date: day("2024-01-10"), Payee: "Shop",
		Categories: []Split{split("Groceries", 31)},
		Tags:       []Split{split("Family", 31)},
	})
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("EditRefund() over the bound error = %v, want an invariant violation", err)
	}
	assertAmount(t, "amount after a rejected edit", first.Amount(), l.EUR(70))
}

func TestRefund_Original(t *testing.T) {
	l, original := groceryLedger(t)
	r, err := l.refund(original.ID(), "Checking", "2024-01-10", []Split{split("Fuel", 40)}, split("Family", 40), split("Car", 40))
	l.must(err)

	t.Run("cannot remove a refunded transaction alone", func(t *testing.T) {
		err := l.RemoveTransactions(original.ID())
		if !errors.Is(err, ErrReferenced) {
			t.Fatalf("RemoveTransactions() error = %v, want a ReferencedError", err)
		}
	})

	t.Run("cannot shrink below the refunds", func(t *testing.T) {
		err := l.EditCashTransaction(original.ID(), CashTransactionSpec{
			Account: "Checking", Date: day("2024-01-05"), Type: ExpenseTransaction, Payee: "Market",
			Categories: []Split{split("Groceries", 60), split("Fuel", 20)},
			Tags:       []Split{split("Family", 80), split("Car", 20)},
		})
		if !errors.Is(err, ErrInvariant) {
			t.Fatalf("EditCashTransaction() error = %v, want an invariant violation", err)
		}
	})

	t.Run("cannot become an income", func(t *testing.T) {
		err := l.EditCashTransaction(original.ID(), CashTransactionSpec{
			Account: "Checking", Date: day("2024-01-05"), Type: IncomeTransaction, Payee: "Market",
			Categories: []Split{split("Bonus", 100)},
		})
		if err == nil {
			t.Fatal("EditCashTransaction() to an income succeeded, want an error")
		}
	})

	t.Run("removed together", func(t *testing.T) {
		l.must(l.RemoveTransactions(original.ID(), r.ID()))
		if n := len(l.Transactions()); n != 0 {
			t.Errorf("Transactions() has %d transactions, want 0", n)
		}
	})
}

func TestRefund_OnlyExpenses(t *testing.T) {
	l := newTestLedger(t)
	l.cashAccount("Checking", "EUR", 0)
	income := l.income("Checking", "2024-01-05", "Employer", []Split{split("Salary", 100)})
	if _, err := l.refund(income.ID(), "Checking", "2024-01-06", []Split{split("Salary", 10)}); !errors.Is(err, ErrInvalid) {
		t.Errorf("refund of an income error = %v, want ErrInvalid", err)
	}
}
