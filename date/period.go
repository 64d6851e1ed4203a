package date

import (
	"fmt"
	"strings"
)

// Period is a calendar period used to bucket dates.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
	Quarterly
	Yearly
)

func (p Period) String() string {
	switch p {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Yearly:
		return "yearly"
	default:
		panic(fmt.Sprintf("unknown period %d", p))
	}
}

// Range returns the Range of the period containing the date d.
func (p Period) Range(d Date) Range {
	return Range{From: d.StartOf(p), To: d.EndOf(p)}
}

// Label returns a short human label of the period containing d, like "Mar 2024" or "2024".
func (p Period) Label(d Date) string {
	switch p {
	case Daily:
		return d.String()
	case Weekly:
		year, week := d.ISOWeek()
		return fmt.Sprintf("W%02d %d", week, year)
	case Monthly:
		return d.Format("Jan 2006")
	case Quarterly:
		return fmt.Sprintf("Q%d %d", (d.Month()-1)/3+1, d.Year())
	case Yearly:
		return d.Format("2006")
	default:
		panic(fmt.Sprintf("unknown period %d", p))
	}
}

// ParsePeriod parses a period name like "month" or "yearly".
func ParsePeriod(p string) (Period, error) {
	p = strings.ToLower(strings.TrimSpace(p))
	switch p {
	case "daily", "day":
		return Daily, nil
	case "weekly", "week":
		return Weekly, nil
	case "monthly", "month":
		return Monthly, nil
	case "quarterly", "quarter":
		return Quarterly, nil
	case "yearly", "year":
		return Yearly, nil
	default:
		return Daily, fmt.Errorf("unknown period %s", p)
	}
}
