package renderer

import (
	"fmt"

	"github.com/etnz/finance"
)

// Transaction renders a transaction to a short sentence.
func Transaction(tx finance.Transaction) string {
	var s string
	switch v := tx.(type) {
	case *finance.CashTransaction:
		if v.Type() == finance.IncomeTransaction {
			s = fmt.Sprintf("Received from %s in %s", finance.Payee(v), v.Account().Path())
		} else {
			s = fmt.Sprintf("Paid %s from %s", finance.Payee(v), v.Account().Path())
		}
	case *finance.CashTransfer:
		s = fmt.Sprintf("Transferred %s from %s to %s as %s", v.AmountSent().Format(), v.Sender().Path(), v.Recipient().Path(), v.AmountReceived().Format())
	case *finance.RefundTransaction:
		s = fmt.Sprintf("Refund from %s of %s", finance.Payee(v), v.Refunded().Date())
	case *finance.SecurityTransaction:
		switch v.Type() {
		case finance.Dividend:
			s = fmt.Sprintf("Dividend of %s per share on %s %s", v.PricePerShare().Format(), v.Shares(), v.Security().Name())
		case finance.Sell:
			s = fmt.Sprintf("Sold %s %s at %s", v.Shares(), v.Security().Name(), v.PricePerShare().Format())
		default:
			s = fmt.Sprintf("Bought %s %s at %s", v.Shares(), v.Security().Name(), v.PricePerShare().Format())
		}
	case *finance.SecurityTransfer:
		s = fmt.Sprintf("Moved %s %s from %s to %s", v.Shares(), v.Security().Name(), v.Sender().Path(), v.Recipient().Path())
	default:
		s = fmt.Sprint(tx)
	}
	if d := tx.Description(); d != "" {
		s += ": " + d
	}
	return s
}
