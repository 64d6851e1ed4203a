package renderer

import (
	"strings"
	"testing"

	"github.com/etnz/finance"
	"github.com/etnz/finance/date"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// parseTables parses markdown and returns every table as rows of cell texts,
// the header included.
func parseTables(t *testing.T, md string) [][][]string {
	t.Helper()
	source := []byte(md)
	p := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()
	doc := p.Parse(text.NewReader(source))

	var tables [][][]string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case east.KindTable:
			tables = append(tables, nil)
		case east.KindTableHeader, east.KindTableRow:
			tables[len(tables)-1] = append(tables[len(tables)-1], nil)
		case east.KindTableCell:
			rows := tables[len(tables)-1]
			rows[len(rows)-1] = append(rows[len(rows)-1], cellText(n, source))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		t.Fatalf("walking markdown failed: %v", err)
	}
	return tables
}

func cellText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch c := c.(type) {
			case *ast.Text:
				b.Write(c.Segment.Value(source))
			case *ast.String:
				b.Write(c.Value)
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// rowOf returns the first row whose first cell is label.
func rowOf(rows [][]string, label string) []string {
	for _, r := range rows {
		if len(r) > 0 && r[0] == label {
			return r
		}
	}
	return nil
}

func TestRender(t *testing.T) {
	doc := &Document{Title: "Report", Subtitle: "sub"}
	tab := doc.table("Items", "Name", "Value")
	tab.row("a|b", "1")
	tab.row("c", "2")

	got, err := Render(doc)
	if err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	if !strings.HasPrefix(got, "# Report\n") {
		t.Errorf("Render() does not start with the title:\n%s", got)
	}
	if !strings.Contains(got, "## Items") {
		t.Errorf("Render() has no table title:\n%s", got)
	}
	if !strings.Contains(got, "|:---|---:|\n") {
		t.Errorf("Render() has no alignment row:\n%s", got)
	}

	tables := parseTables(t, got)
	if len(tables) != 1 {
		t.Fatalf("parsed %d tables, want 1", len(tables))
	}
	if !strings.Contains(got, `| a\|b | 1 |`) {
		t.Errorf("Render() does not escape pipes:\n%s", got)
	}
	rows := tables[0]
	if len(rows) != 3 || len(rows[1]) != 2 {
		t.Fatalf("parsed rows %q, want a header and two rows of two cells", rows)
	}
	if strings.Join(rows[0], ",") != "Name,Value" || strings.Join(rows[2], ",") != "c,2" {
		t.Errorf("parsed rows %q, want Name,Value then c,2", rows)
	}
}

func newLedger(t *testing.T) *finance.RecordKeeper {
	t.Helper()
	rk := finance.New()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	_, err := rk.AddCurrency("EUR", 2)
	must(err)
	_, err = rk.AddAccountGroup("Bank", -1)
	must(err)
	_, err = rk.AddCashAccount("Bank/Checking", "EUR", finance.D(1000), -1)
	must(err)
	_, err = rk.AddCashTransaction(finance.CashTransactionSpec{
		Account: "Bank/Checking", Date: date.MustParse("2024-01-05"), Type: finance.IncomeTransaction,
		Payee: "Employer", Categories: []finance.Split{{Name: "Salary", Amount: finance.D(2000)}},
	})
	must(err)
	_, err = rk.AddCashTransaction(finance.CashTransactionSpec{
		Account: "Bank/Checking", Date: date.MustParse("2024-01-15"), Type: finance.ExpenseTransaction,
		Payee: "Grocer", Categories: []finance.Split{{Name: "Food", Amount: finance.D(500)}},
		Tags: []finance.Split{{Name: "Family", Amount: finance.D(500)}},
	})
	must(err)
	return rk
}

func january() date.Range {
	return date.NewRange(date.MustParse("2024-01-01"), date.MustParse("2024-01-31"))
}

func TestCashFlow(t *testing.T) {
	rk := newLedger(t)
	stats, err := finance.CashFlow(rk, rk.Accounts(), january(), rk.BaseCurrency())
	if err != nil {
		t.Fatalf("CashFlow() failed: %v", err)
	}
	got, err := RenderCashFlow(stats)
	if err != nil {
		t.Fatalf("CashFlow() rendering failed: %v", err)
	}
	tables := parseTables(t, got)
	if len(tables) != 1 {
		t.Fatalf("parsed %d tables, want 1", len(tables))
	}
	testCases := []struct {
		label, amount, count string
	}{
		{"Incomes", "+€2,000.00", "1"},
		{"Expenses", "-€500.00", "1"},
		{"Refunds", "-", "0"},
		{"Balance change", "+€2,500.00", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			row := rowOf(tables[0], tc.label)
			if row == nil {
				t.Fatalf("no %q row in:\n%s", tc.label, got)
			}
			if row[1] != tc.amount || row[2] != tc.count {
				t.Errorf("row = %q, want amount %q and count %q", row, tc.amount, tc.count)
			}
		})
	}
}

func TestBalances(t *testing.T) {
	rk := newLedger(t)
	on := date.MustParse("2024-01-31")
	roots, err := finance.AccountTree(rk, rk.BaseCurrency(), on)
	if err != nil {
		t.Fatalf("AccountTree() failed: %v", err)
	}
	got, err := RenderBalances(roots, on)
	if err != nil {
		t.Fatalf("Balances() failed: %v", err)
	}
	if !strings.Contains(got, "Balances on 2024-01-31") {
		t.Errorf("Balances() has no title:\n%s", got)
	}
	rows := parseTables(t, got)[0]
	// header, Bank, Checking
	if len(rows) != 3 {
		t.Fatalf("parsed %d rows, want 3: %v", len(rows), rows)
	}
	if rows[2][0] != "Checking" {
		t.Errorf("child label = %q, want Checking", rows[2][0])
	}
	if !strings.Contains(got, "| \u00a0\u00a0Checking |") {
		t.Errorf("Balances() does not indent Checking:\n%s", got)
	}
	if rows[1][2] != "€2,500.00" {
		t.Errorf("Bank balance = %q, want €2,500.00", rows[1][2])
	}
}

func TestAttributeStats(t *testing.T) {
	rk := newLedger(t)
	stats, err := finance.AttributeStats(rk.Transactions(), rk.BaseCurrency(), rk.Attributes(finance.PayeeAttribute))
	if err != nil {
		t.Fatalf("AttributeStats() failed: %v", err)
	}
	got, err := RenderAttributeStats("Payees", stats)
	if err != nil {
		t.Fatalf("AttributeStats() rendering failed: %v", err)
	}
	rows := parseTables(t, got)[0]
	if row := rowOf(rows, "Grocer"); row == nil || row[1] != "-€500.00" {
		t.Errorf("Grocer row = %q, want -€500.00", row)
	}
	if row := rowOf(rows, "Employer"); row == nil || row[2] != "1" {
		t.Errorf("Employer row = %q, want 1 transaction", row)
	}
}

func TestTransactions(t *testing.T) {
	rk := newLedger(t)
	got, err := RenderTransactions(rk.Transactions())
	if err != nil {
		t.Fatalf("Transactions() failed: %v", err)
	}
	rows := parseTables(t, got)[0]
	if len(rows) != 3 {
		t.Fatalf("parsed %d rows, want 3: %v", len(rows), rows)
	}
	want := []string{"2024-01-15", "cash", "Paid Grocer from Bank/Checking", "-€500.00", "Family"}
	if strings.Join(rows[2], ",") != strings.Join(want, ",") {
		t.Errorf("expense row = %q, want %q", rows[2], want)
	}
}

func TestTransaction_Security(t *testing.T) {
	rk := newLedger(t)
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	_, err := rk.AddSecurityAccount("Broker", -1)
	must(err)
	_, err = rk.AddSecurity(finance.SecuritySpec{Name: "ACME", Symbol: "ACME", Type: "Stock", Currency: "EUR", SharesDecimals: 4})
	must(err)
	trade := func(typ finance.SecurityTransactionType, on string, shares, price float64) finance.Transaction {
		t.Helper()
		tx, err := rk.AddSecurityTransaction(finance.SecurityTransactionSpec{
			Type: typ, SecurityAccount: "Broker", CashAccount: "Bank/Checking", Security: "ACME",
			Date: date.MustParse(on), Shares: finance.D(shares), PricePerShare: finance.D(price),
		})
		must(err)
		return tx
	}
	testCases := []struct {
		tx   finance.Transaction
		want string
	}{
		{trade(finance.Buy, "2024-01-20", 10, 100), "Bought 10 ACME at €100.00"},
		{trade(finance.Dividend, "2024-01-25", 10, 1.5), "Dividend of €1.50 per share on 10 ACME"},
		{trade(finance.Sell, "2024-01-30", 4, 120), "Sold 4 ACME at €120.00"},
	}
	for _, tc := range testCases {
		if got := Transaction(tc.tx); got != tc.want {
			t.Errorf("Transaction() = %q, want %q", got, tc.want)
		}
	}
}

func TestSecurityStats(t *testing.T) {
	rk := newLedger(t)
	_, err := rk.AddSecurityAccount("Broker", -1)
	if err != nil {
		t.Fatalf("AddSecurityAccount() failed: %v", err)
	}
	_, err = rk.AddSecurity(finance.SecuritySpec{Name: "ACME", Symbol: "ACME", Type: "Stock", Currency: "EUR", SharesDecimals: 4})
	if err != nil {
		t.Fatalf("AddSecurity() failed: %v", err)
	}
	for _, spec := range []finance.SecurityTransactionSpec{
		{Type: finance.Buy, Date: date.MustParse("2024-01-20"), Shares: finance.D(10), PricePerShare: finance.D(100)},
		{Type: finance.Dividend, Date: date.MustParse("2024-01-25"), Shares: finance.D(10), PricePerShare: finance.D(2)},
	} {
		spec.SecurityAccount, spec.CashAccount, spec.Security = "Broker", "Bank/Checking", "ACME"
		if _, err := rk.AddSecurityTransaction(spec); err != nil {
			t.Fatalf("AddSecurityTransaction() failed: %v", err)
		}
	}
	report, err := finance.SecurityStats(rk, rk.BaseCurrency(), date.MustParse("2024-01-31"), finance.FIFO)
	if err != nil {
		t.Fatalf("SecurityStats() failed: %v", err)
	}
	got, err := RenderSecurityStats(report)
	if err != nil {
		t.Fatalf("SecurityStats() rendering failed: %v", err)
	}
	row := rowOf(parseTables(t, got)[0], "ACME")
	if row == nil {
		t.Fatalf("no ACME row in:\n%s", got)
	}
	if row[6] != "€20.00" || row[7] != "+€20.00" {
		t.Errorf("ACME row = %q, want €20.00 dividends all realized", row)
	}
}
