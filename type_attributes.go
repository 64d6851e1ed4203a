package finance

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	nameMinLength = 1
	nameMaxLength = 32
)

// validateName checks the name of tags, payees, categories and accounts.
func validateName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < nameMinLength || n > nameMaxLength {
		return "", invalidf("%s name %q must be between %d and %d characters", kind, name, nameMinLength, nameMaxLength)
	}
	if strings.Contains(name, "/") {
		return "", invalidf("%s name %q must not contain a slash", kind, name)
	}
	return name, nil
}

// AttributeKind is the kind of a flat attribute.
type AttributeKind int

const (
	TagAttribute AttributeKind = iota
	PayeeAttribute
)

func (k AttributeKind) String() string {
	switch k {
	case TagAttribute:
		return "tag"
	case PayeeAttribute:
		return "payee"
	default:
		panic(fmt.Sprintf("unknown attribute kind %d", int(k)))
	}
}

// ParseAttributeKind parses "tag" or "payee".
func ParseAttributeKind(s string) (AttributeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tag", "tags":
		return TagAttribute, nil
	case "payee", "payees":
		return PayeeAttribute, nil
	}
	return TagAttribute, invalidf("unknown attribute kind %q", s)
}

// Attribute is a flat named entity: a Tag or a Payee.
type Attribute struct {
	id   uuid.UUID
	name string
	kind AttributeKind
}

func (a *Attribute) ID() uuid.UUID       { return a.id }
func (a *Attribute) Name() string        { return a.name }
func (a *Attribute) Kind() AttributeKind { return a.kind }
func (a *Attribute) String() string      { return a.name }

// CategoryType is the type of transactions a category applies to.
type CategoryType int

const (
	Income CategoryType = iota
	Expense
	IncomeAndExpense
)

func (t CategoryType) String() string {
	switch t {
	case Income:
		return "income"
	case Expense:
		return "expense"
	case IncomeAndExpense:
		return "income-and-expense"
	default:
		panic(fmt.Sprintf("unknown category type %d", int(t)))
	}
}

// ParseCategoryType parses a category type name.
func ParseCategoryType(s string) (CategoryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	case "income-and-expense", "income_and_expense", "both":
		return IncomeAndExpense, nil
	}
	return Income, invalidf("unknown category type %q", s)
}

// Category is a node of an income or expense category tree.
type Category struct {
	id       uuid.UUID
	name     string
	typ      CategoryType
	parent   *Category
	children []*Category
}

func (c *Category) ID() uuid.UUID         { return c.id }
func (c *Category) Name() string          { return c.name }
func (c *Category) Type() CategoryType    { return c.typ }
func (c *Category) Parent() *Category     { return c.parent }
func (c *Category) Children() []*Category { return slices.Clone(c.children) }
func (c *Category) String() string        { return c.Path() }
func (c *Category) HasChildren() bool     { return len(c.children) > 0 }

// Path returns the names of the category and its ancestors joined by "/".
func (c *Category) Path() string {
	if c.parent == nil {
		return c.name
	}
	return c.parent.Path() + "/" + c.name
}

// Root returns the top level ancestor of c.
func (c *Category) Root() *Category {
	for c.parent != nil {
		c = c.parent
	}
	return c
}

// Ancestors returns the parent, grand parent and so on up to the root.
func (c *Category) Ancestors() []*Category {
	var ancestors []*Category
	for p := c.parent; p != nil; p = p.parent {
		ancestors = append(ancestors, p)
	}
	return ancestors
}

// IsDescendantOf reports whether c is x or one of its descendants.
func (c *Category) IsDescendantOf(x *Category) bool {
	for n := c; n != nil; n = n.parent {
		if n == x {
			return true
		}
	}
	return false
}

// accepts reports whether a category can split a cash transaction of type t.
func (c *Category) accepts(t CashTransactionType) bool {
	switch c.typ {
	case IncomeAndExpense:
		return true
	case Income:
		return t == IncomeTransaction
	default:
		return t == ExpenseTransaction
	}
}

// setParent moves c under parent (nil for a root) at index, -1 appends.
// roots is the list of root categories of the same type.
func (c *Category) setParent(parent *Category, index int, roots *[]*Category) {
	siblings := roots
	if c.parent != nil {
		siblings = &c.parent.children
	}
	*siblings = slices.DeleteFunc(*siblings, func(x *Category) bool { return x == c })

	c.parent = parent
	siblings = roots
	if parent != nil {
		siblings = &parent.children
	}
	*siblings = insertAt(*siblings, index, c)
}

// insertAt inserts v at index, or appends if the index is out of range.
func insertAt[T any](s []T, index int, v T) []T {
	if index < 0 || index > len(s) {
		return append(s, v)
	}
	return slices.Insert(s, index, v)
}

// splitPath returns the parent path and the last name of a "/" separated path.
func splitPath(path string) (parent, name string) {
	path = strings.Trim(strings.TrimSpace(path), "/")
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}
