package finance

import "github.com/shopspring/decimal"

// number lists the types accepted by the decimal factories.
type number interface {
	float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | string | decimal.Decimal
}

// newDecimal is a convenient factory for decimal.Decimal.
//
// Strings must hold a valid decimal, it panics otherwise.
func newDecimal[T number](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case string:
		return decimal.RequireFromString(v)
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// D returns a decimal from any supported number representation.
func D[T number](value T) decimal.Decimal { return newDecimal(value) }

// Quantity is a number of shares of a security.
type Quantity struct {
	value decimal.Decimal
}

// Q returns a Quantity.
func Q[T number](value T) Quantity {
	return Quantity{value: newDecimal(value)}
}

func (t Quantity) Decimal() decimal.Decimal        { return t.value }
func (t Quantity) Equal(p Quantity) bool           { return t.value.Equal(p.value) }
func (t Quantity) LessThan(quantity Quantity) bool { return t.value.LessThan(quantity.value) }
func (t Quantity) Mul(p Quantity) Quantity         { return Quantity{value: t.value.Mul(p.value)} }
func (t Quantity) Add(p Quantity) Quantity         { return Quantity{value: t.value.Add(p.value)} }
func (t Quantity) Sub(p Quantity) Quantity         { return Quantity{value: t.value.Sub(p.value)} }
func (t Quantity) Neg() Quantity                   { return Quantity{value: t.value.Neg()} }
func (t Quantity) GreaterThan(p Quantity) bool     { return t.value.GreaterThan(p.value) }
func (t Quantity) IsNegative() bool                { return t.value.IsNegative() }
func (t Quantity) IsPositive() bool                { return t.value.IsPositive() }
func (t Quantity) IsZero() bool                    { return t.value.IsZero() }
func (t Quantity) String() string                  { return t.value.String() }

// Round returns the quantity rounded half-even to places decimals.
func (t Quantity) Round(places int32) Quantity { return Quantity{value: t.value.RoundBank(places)} }

// fits reports whether the quantity has no more than places decimals.
func (t Quantity) fits(places int32) bool { return t.value.Equal(t.value.Truncate(places)) }

// MarshalJSON implements the json.Marshaler interface.
func (t Quantity) MarshalJSON() ([]byte, error) { return t.value.MarshalJSON() }

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *Quantity) UnmarshalJSON(decimalBytes []byte) error {
	return t.value.UnmarshalJSON(decimalBytes)
}
