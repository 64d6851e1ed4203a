package renderer

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/etnz/finance"
	"github.com/etnz/finance/date"
)

func count(n int) string { return strconv.Itoa(n) }

// indent prefixes a tree label with non breaking spaces, kept by markdown tables.
func indent(depth int, label string) string {
	return strings.Repeat("\u00a0\u00a0", depth) + label
}

func flowCell(f finance.Flow) string { return f.Amount.SignedFormat() }

// RenderCashFlow renders the cash flow of a range.
func RenderCashFlow(s *finance.CashFlowStats) (string, error) {
	doc := &Document{Title: "Cash flow " + s.Label, Subtitle: s.Range.String()}
	t := doc.table("", "", "Amount", "Transactions")
	t.row("Incomes", flowCell(s.Incomes), count(s.Incomes.Count()))
	t.row("Refunds", flowCell(s.Refunds), count(s.Refunds.Count()))
	t.row("Inward transfers", flowCell(s.Inward), count(s.Inward.Count()))
	t.row("Initial balances", s.InitialBalances.SignedFormat(), "")
	t.row("**Inflows**", flowCell(s.Inflows), count(s.Inflows.Count()))
	t.row("Expenses", s.Expenses.Amount.Neg().SignedFormat(), count(s.Expenses.Count()))
	t.row("Outward transfers", s.Outward.Amount.Neg().SignedFormat(), count(s.Outward.Count()))
	t.row("**Outflows**", s.Outflows.Amount.Neg().SignedFormat(), count(s.Outflows.Count()))
	t.row("**Cash flow**", flowCell(s.DeltaNeutral), count(s.DeltaNeutral.Count()))
	t.row("Securities performance", s.DeltaSecurities.SignedFormat(), "")
	t.row("Currencies performance", s.DeltaCurrencies.SignedFormat(), "")
	t.row("**Balance change**", s.DeltaTotal.SignedFormat(), "")
	t.row("Savings rate", s.SavingsRate.String(), "")
	return Render(doc)
}

// RenderPeriodicCashFlow renders one column per period, then the total and the average.
func RenderPeriodicCashFlow(r *finance.PeriodicCashFlowReport) (string, error) {
	columns := slices.Concat(r.Periods, []*finance.CashFlowStats{r.Total, r.Average})
	header := []string{""}
	for _, s := range columns {
		header = append(header, s.Label)
	}
	doc := &Document{Title: "Cash flow", Subtitle: r.Total.Range.String()}
	t := doc.table("", header...)
	line := func(label string, cell func(*finance.CashFlowStats) string) {
		cells := []string{label}
		for _, s := range columns {
			cells = append(cells, cell(s))
		}
		t.row(cells...)
	}
	line("Incomes", func(s *finance.CashFlowStats) string { return flowCell(s.Incomes) })
	line("Refunds", func(s *finance.CashFlowStats) string { return flowCell(s.Refunds) })
	line("Inward transfers", func(s *finance.CashFlowStats) string { return flowCell(s.Inward) })
	line("Initial balances", func(s *finance.CashFlowStats) string { return s.InitialBalances.SignedFormat() })
	line("Expenses", func(s *finance.CashFlowStats) string { return s.Expenses.Amount.Neg().SignedFormat() })
	line("Outward transfers", func(s *finance.CashFlowStats) string { return s.Outward.Amount.Neg().SignedFormat() })
	line("**Cash flow**", func(s *finance.CashFlowStats) string { return flowCell(s.DeltaNeutral) })
	line("Securities performance", func(s *finance.CashFlowStats) string { return s.DeltaSecurities.SignedFormat() })
	line("Currencies performance", func(s *finance.CashFlowStats) string { return s.DeltaCurrencies.SignedFormat() })
	line("**Balance change**", func(s *finance.CashFlowStats) string { return s.DeltaTotal.SignedFormat() })
	line("Savings rate", func(s *finance.CashFlowStats) string { return s.SavingsRate.String() })
	return Render(doc)
}

func nodeCells(n *finance.AssetNode, depth int) []string {
	native := ""
	if n.HasNative() {
		native = n.Native.Format()
	}
	label := n.Name
	if n.Err != nil {
		label += " (error)"
	}
	return []string{indent(depth, label), native, n.Base.Format()}
}

// RenderNetWorth renders an asset tree on a date, with its grand total.
func RenderNetWorth(roots []*finance.AssetNode, on date.Date) (string, error) {
	doc := &Document{Title: fmt.Sprintf("Net worth on %s", on)}
	t := doc.table("", "Asset", "Native", "Value")
	var total finance.CashAmount
	for i, root := range roots {
		root.Walk(func(n *finance.AssetNode, depth int) { t.row(nodeCells(n, depth)...) })
		if i == 0 {
			total = root.Base
		} else {
			total = total.Add(root.Base)
		}
	}
	if len(roots) > 0 {
		t.row("**Total**", "", total.Format())
	}
	return Render(doc)
}

// RenderBalances renders the account tree on a date.
func RenderBalances(roots []*finance.AssetNode, on date.Date) (string, error) {
	doc := &Document{Title: fmt.Sprintf("Balances on %s", on)}
	t := doc.table("", "Account", "Native", "Balance")
	for _, root := range roots {
		root.Walk(func(n *finance.AssetNode, depth int) { t.row(nodeCells(n, depth)...) })
	}
	return Render(doc)
}

// RenderNetWorthOverTime renders the net worth history, one row per change.
func RenderNetWorthOverTime(h *date.History[finance.CashAmount]) (string, error) {
	doc := &Document{Title: "Net worth over time"}
	t := doc.table("", "Date", "Net worth", "Change")
	var last finance.CashAmount
	for on, v := range h.Values() {
		change := ""
		if t.Rows != nil {
			change = v.Sub(last).SignedFormat()
		}
		t.row(on.String(), v.Format(), change)
		last = v
	}
	return Render(doc)
}

// RenderAttributeStats renders the activity of tags or payees.
func RenderAttributeStats(title string, stats []finance.AttributeStat) (string, error) {
	doc := &Document{Title: title}
	t := doc.table("", "Name", "Amount", "Transactions")
	for _, s := range stats {
		t.row(s.Attribute.Name(), flowCell(s.Flow), count(s.Count()))
	}
	return Render(doc)
}

// RenderPeriodicAttributeStats renders one row per attribute and one column per period.
func RenderPeriodicAttributeStats(title string, period date.Period, r *finance.PeriodicAttributeReport) (string, error) {
	header := []string{"Name"}
	for _, p := range r.Periods {
		header = append(header, period.Label(p.From))
	}
	header = append(header, "Total", "Average")
	doc := &Document{Title: title}
	t := doc.table("", header...)
	for i, a := range r.Attributes {
		cells := []string{a.Name()}
		for j := range r.Periods {
			cells = append(cells, flowCell(r.Stats[j][i].Flow))
		}
		cells = append(cells, flowCell(r.Totals[i]), flowCell(r.Averages[i]))
		t.row(cells...)
	}
	cells := []string{"**Total**"}
	for _, f := range r.PeriodTotals {
		cells = append(cells, flowCell(f))
	}
	t.row(append(cells, "", "")...)
	return Render(doc)
}

func categoryLabel(c *finance.Category) string {
	return indent(len(c.Ancestors()), c.Name())
}

// RenderCategoryStats renders the activity of categories, descendants included.
func RenderCategoryStats(stats []finance.CategoryStat) (string, error) {
	doc := &Document{Title: "Categories"}
	t := doc.table("", "Category", "Balance", "Own", "Total")
	for _, s := range stats {
		t.row(categoryLabel(s.Category), s.Balance.SignedFormat(), count(s.TransactionsSelf), count(s.TransactionsTotal))
	}
	return Render(doc)
}

// RenderPeriodicCategoryStats renders one row per category and one column per period.
func RenderPeriodicCategoryStats(period date.Period, r *finance.PeriodicCategoryReport) (string, error) {
	header := []string{"Category"}
	for _, p := range r.Periods {
		header = append(header, period.Label(p.From))
	}
	header = append(header, "Total", "Average")
	doc := &Document{Title: "Categories"}
	t := doc.table("", header...)
	for i, c := range r.Categories {
		cells := []string{categoryLabel(c)}
		for j := range r.Periods {
			cells = append(cells, r.Stats[j][i].Balance.SignedFormat())
		}
		cells = append(cells, r.Totals[i].Balance.SignedFormat(), r.Averages[i].SignedFormat())
		t.row(cells...)
	}
	return Render(doc)
}

// RenderSecurityStats renders the performance of every security, with one table per
// security when it is held in several accounts.
func RenderSecurityStats(r *finance.SecurityReport) (string, error) {
	doc := &Document{Title: fmt.Sprintf("Securities on %s", r.On), Subtitle: fmt.Sprintf("Cost basis method: %s", r.Method)}
	t := doc.table("", "Security", "Shares", "Price", "Value", "Cost basis", "Unrealized", "Dividends", "Realized", "Return")
	for _, s := range r.Securities {
		t.row(s.Security.Name(), s.SharesOwned.String(), s.Price.Format(), s.Value.Format(), s.CostBasis.Format(),
			s.Unrealized.SignedFormat(), s.Dividends.Format(), s.Realized.SignedFormat(), s.TotalReturn.SignedString())
	}
	total := r.Total
	t.row("**Total**", "", "", total.ValueBase.Format(), total.CostBasisBase.Format(),
		total.UnrealizedBase.SignedFormat(), "", total.RealizedBase.SignedFormat(), total.TotalReturn.SignedString())

	for _, s := range r.Securities {
		if len(s.Accounts) < 2 {
			continue
		}
		a := doc.table(s.Security.Name(), "Account", "Shares", "Value", "Cost basis", "Unrealized", "Realized")
		for _, acc := range s.Accounts {
			a.row(acc.Account.Path(), acc.SharesOwned.String(), acc.Value.Format(), acc.CostBasis.Format(),
				acc.Unrealized.SignedFormat(), acc.Realized.SignedFormat())
		}
	}
	return Render(doc)
}

// RenderTransactions renders a list of transactions with their amount in their own currency.
func RenderTransactions(txs []finance.Transaction) (string, error) {
	doc := &Document{Title: "Transactions", Subtitle: fmt.Sprintf("%d transactions", len(txs))}
	t := doc.table("", "Date", "Kind", "What", "Amount", "Tags")
	for _, tx := range txs {
		amount := finance.TransactionAmount(tx)
		if signed, ok := finance.SignedAmount(tx); ok {
			amount = signed
		}
		var tags []string
		for _, a := range tx.Tags() {
			tags = append(tags, a.Name())
		}
		t.row(tx.Date().String(), tx.Kind().String(), Transaction(tx), amount.Format(), strings.Join(tags, ", "))
	}
	return Render(doc)
}
