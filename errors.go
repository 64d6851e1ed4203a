package finance

import (
	"errors"
	"fmt"

	"github.com/etnz/finance/date"
)

// Error kinds returned by the ledger. Use errors.Is to test for them.
var (
	// ErrInvalid reports a bad input to a mutation: duplicate, bad format, out of range.
	ErrInvalid = errors.New("invalid")
	// ErrNotFound reports a lookup of a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrNoConversion reports a missing exchange rate path between two currencies.
	ErrNoConversion = errors.New("no conversion path")
	// ErrInvariant reports an operation that would break a ledger invariant.
	ErrInvariant = errors.New("invariant violation")
	// ErrReferenced reports a removal of an entity that is still in use.
	ErrReferenced = errors.New("still referenced")
)

// NotFoundError is returned by lookups, Kind is the entity kind ("account", "tag", ...).
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string        { return fmt.Sprintf("%s %q not found", e.Kind, e.Key) }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(kind, key string) error { return &NotFoundError{Kind: kind, Key: key} }

// ConversionError is returned when no exchange rate path exists between two currencies.
//
// On is the zero Date for conversions at the latest rate.
type ConversionError struct {
	From, To string
	On       date.Date
}

func (e *ConversionError) Error() string {
	if e.On.IsZero() {
		return fmt.Sprintf("cannot convert %s to %s: %v", e.From, e.To, ErrNoConversion)
	}
	return fmt.Sprintf("cannot convert %s to %s on %s: %v", e.From, e.To, e.On, ErrNoConversion)
}
func (e *ConversionError) Is(target error) bool { return target == ErrNoConversion }

// ReferencedError is returned when removing an entity still referenced by another one.
type ReferencedError struct {
	Kind string // kind of the entity being removed
	Key  string // its key (code, name, path)
	By   string // description of the first referencing entity
}

func (e *ReferencedError) Error() string {
	return fmt.Sprintf("cannot remove %s %q: %v by %s", e.Kind, e.Key, ErrReferenced, e.By)
}

func (e *ReferencedError) Is(target error) bool {
	return target == ErrReferenced || target == ErrInvariant
}

// invalidf returns an error wrapping ErrInvalid.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// invariantf returns an error wrapping ErrInvariant.
func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
