package finance

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Percent is a display ratio in percent. NaN means undefined.
type Percent float64

// NaNPercent is the undefined percentage.
func NaNPercent() Percent { return Percent(math.NaN()) }

// percentOf returns 100*ratio.
func percentOf(ratio decimal.Decimal) Percent {
	return Percent(ratio.Shift(2).InexactFloat64())
}

// IsNaN reports whether p is undefined.
func (p Percent) IsNaN() bool { return math.IsNaN(float64(p)) }

func (p Percent) Equal(q Percent) bool {
	if p.IsNaN() || q.IsNaN() {
		return p.IsNaN() && q.IsNaN()
	}
	const precision = 0.0001
	return math.Abs(float64(p-q)) < precision
}

func (p Percent) String() string {
	if p.IsNaN() {
		return "NaN"
	}
	return fmt.Sprintf("%.2f%%", p)
}

func (p Percent) SignedString() string {
	if p.IsNaN() {
		return "NaN"
	}
	res := fmt.Sprintf("%+.2f%%", p)
	if res == "+0.00%" || res == "-0.00%" {
		return "-"
	}
	return res
}
