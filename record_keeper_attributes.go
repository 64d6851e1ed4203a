package finance

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// attributes returns the list holding attributes of a kind.
func (rk *RecordKeeper) attributes(kind AttributeKind) *[]*Attribute {
	if kind == PayeeAttribute {
		return &rk.payees
	}
	return &rk.tags
}

// AddTag adds a tag.
func (rk *RecordKeeper) AddTag(name string) (*Attribute, error) {
	return rk.AddAttribute(TagAttribute, name)
}

// AddPayee adds a payee.
func (rk *RecordKeeper) AddPayee(name string) (*Attribute, error) {
	return rk.AddAttribute(PayeeAttribute, name)
}

// AddAttribute adds a tag or a payee.
func (rk *RecordKeeper) AddAttribute(kind AttributeKind, name string) (*Attribute, error) {
	name, err := validateName(kind.String(), name)
	if err != nil {
		return nil, err
	}
	if _, err := rk.Attribute(kind, name); err == nil {
		return nil, invalidf("%s %q already exists", kind, name)
	}
	a := &Attribute{id: uuid.New(), name: name, kind: kind}
	list := rk.attributes(kind)
	*list = insertSorted(*list, a, (*Attribute).Name)
	return a, nil
}

// Attribute returns a tag or a payee by name.
func (rk *RecordKeeper) Attribute(kind AttributeKind, name string) (*Attribute, error) {
	name = strings.TrimSpace(name)
	for _, a := range *rk.attributes(kind) {
		if a.name == name {
			return a, nil
		}
	}
	return nil, notFound(kind.String(), name)
}

// Attributes returns the tags or the payees sorted by name.
func (rk *RecordKeeper) Attributes(kind AttributeKind) []*Attribute {
	return slices.Clone(*rk.attributes(kind))
}

// GetOrMakeAttribute returns an existing attribute or adds it.
func (rk *RecordKeeper) GetOrMakeAttribute(kind AttributeKind, name string) (*Attribute, error) {
	res := rk.resolver()
	a, err := res.attribute(kind, name)
	if err != nil {
		return nil, err
	}
	res.commit()
	return a, nil
}

// EditAttribute renames an attribute. If newName is used by another attribute
// of the same kind, the rename fails unless merge is set: then every reference
// to the attribute moves to the existing one and the attribute is removed.
func (rk *RecordKeeper) EditAttribute(kind AttributeKind, name, newName string, merge bool) error {
	a, err := rk.Attribute(kind, name)
	if err != nil {
		return err
	}
	newName, err = validateName(kind.String(), newName)
	if err != nil {
		return err
	}
	target, err := rk.Attribute(kind, newName)
	switch {
	case err != nil || target == a:
		a.name = newName
		list := rk.attributes(kind)
		slices.SortFunc(*list, func(x, y *Attribute) int { return strings.Compare(x.name, y.name) })
		return nil
	case !merge:
		return invalidf("%s %q already exists", kind, newName)
	}

	ch := rk.newChange()
	for _, tx := range rk.transactions {
		if c := mergeAttribute(tx, a, target); c != nil {
			ch.replace[tx] = c
		}
	}
	if err := rk.apply(ch); err != nil {
		return err
	}
	list := rk.attributes(kind)
	*list = slices.DeleteFunc(*list, func(x *Attribute) bool { return x == a })
	rk.log.Info().Stringer("kind", kind).Str("from", a.name).Str("to", target.name).Int("transactions", len(ch.replace)).Msg("attributes merged")
	return nil
}

// mergeAttribute returns a copy of tx where a is replaced by target, or nil if tx does not reference a.
// A tag split on both keeps the largest amount.
func mergeAttribute(tx Transaction, a, target *Attribute) Transaction {
	if a.kind == PayeeAttribute {
		if Payee(tx) != a {
			return nil
		}
		c := cloneTx(tx)
		switch c := c.(type) {
		case *CashTransaction:
			c.payee = target
		case *RefundTransaction:
			c.payee = target
		}
		return c
	}
	if !slices.Contains(tx.Tags(), a) {
		return nil
	}
	c := cloneTx(tx)
	switch c := c.(type) {
	case *CashTransaction:
		c.tagSplits = mergeTagSplits(c.tagSplits, a, target)
	case *RefundTransaction:
		c.tagSplits = mergeTagSplits(c.tagSplits, a, target)
	default:
		b := c.base()
		b.tags = slices.DeleteFunc(b.tags, func(x *Attribute) bool { return x == a })
		if !slices.Contains(b.tags, target) {
			b.tags = append(b.tags, target)
		}
	}
	return c
}

func mergeTagSplits(splits []TagSplit, a, target *Attribute) []TagSplit {
	i := slices.IndexFunc(splits, func(ts TagSplit) bool { return ts.Tag == a })
	j := slices.IndexFunc(splits, func(ts TagSplit) bool { return ts.Tag == target })
	if j < 0 {
		splits[i].Tag = target
		return splits
	}
	if splits[i].Amount.Compare(splits[j].Amount) > 0 {
		splits[j].Amount = splits[i].Amount
	}
	return slices.Delete(splits, i, i+1)
}

// RemoveAttribute removes an attribute no transaction uses.
func (rk *RecordKeeper) RemoveAttribute(kind AttributeKind, name string) error {
	a, err := rk.Attribute(kind, name)
	if err != nil {
		return err
	}
	for _, tx := range rk.transactions {
		if Payee(tx) == a || slices.Contains(tx.Tags(), a) {
			return &ReferencedError{Kind: kind.String(), Key: a.name, By: describe(tx)}
		}
	}
	list := rk.attributes(kind)
	*list = slices.DeleteFunc(*list, func(x *Attribute) bool { return x == a })
	rk.log.Debug().Stringer("kind", kind).Str("name", a.name).Msg("attribute removed")
	return nil
}

// AddCategory adds a category. A root category has type typ, a child always
// has the type of its parent which must exist.
func (rk *RecordKeeper) AddCategory(path string, typ CategoryType) (*Category, error) {
	parentPath, name := splitPath(path)
	var parent *Category
	if parentPath != "" {
		var err error
		if parent, err = rk.Category(parentPath); err != nil {
			return nil, err
		}
	}
	res := rk.resolver()
	c, err := res.newCategory(parent, name, typ)
	if err != nil {
		return nil, err
	}
	res.commit()
	return c, nil
}

// GetOrMakeCategory returns the category of a path, adding it and its missing ancestors.
func (rk *RecordKeeper) GetOrMakeCategory(path string, typ CategoryType) (*Category, error) {
	res := rk.resolver()
	c, err := res.category(path, typ)
	if err != nil {
		return nil, err
	}
	res.commit()
	return c, nil
}

// Category returns a category by path.
func (rk *RecordKeeper) Category(path string) (*Category, error) {
	path = strings.Trim(strings.TrimSpace(path), "/")
	for _, c := range rk.Categories() {
		if c.Path() == path {
			return c, nil
		}
	}
	return nil, notFound("category", path)
}

// CategoryRoots returns the root categories of a type, in order.
func (rk *RecordKeeper) CategoryRoots(typ CategoryType) []*Category {
	return slices.Clone(rk.categoryRoots[typ])
}

// Categories returns all categories depth first, incomes then expenses then both.
func (rk *RecordKeeper) Categories() []*Category {
	var all []*Category
	var walk func([]*Category)
	walk = func(cs []*Category) {
		for _, c := range cs {
			all = append(all, c)
			walk(c.children)
		}
	}
	for _, roots := range rk.categoryRoots {
		walk(roots)
	}
	return all
}

// EditCategory renames or moves a category to newPath at index among its new
// siblings, -1 appends. The new parent must exist, have the same type and not
// be a descendant of the category.
func (rk *RecordKeeper) EditCategory(path, newPath string, index int) error {
	c, err := rk.Category(path)
	if err != nil {
		return err
	}
	parentPath, name := splitPath(newPath)
	if name, err = validateName("category", name); err != nil {
		return err
	}
	var parent *Category
	if parentPath != "" {
		if parent, err = rk.Category(parentPath); err != nil {
			return err
		}
		if parent.IsDescendantOf(c) {
			return invalidf("category %s cannot move below itself", c.Path())
		}
		if parent.typ != c.typ {
			return invalidf("category %s of type %s cannot move below %s of type %s", c.Path(), c.typ, parent.Path(), parent.typ)
		}
	}
	if x, err := rk.Category(joinPath(parentPath, name)); err == nil && x != c {
		return invalidf("category %s already exists", x.Path())
	}
	c.name = name
	c.setParent(parent, index, &rk.categoryRoots[c.typ])
	return nil
}

// RemoveCategory removes a category without children that no transaction uses.
func (rk *RecordKeeper) RemoveCategory(path string) error {
	c, err := rk.Category(path)
	if err != nil {
		return err
	}
	if c.HasChildren() {
		return &ReferencedError{Kind: "category", Key: c.Path(), By: "category " + c.children[0].Path()}
	}
	for _, tx := range rk.transactions {
		if slices.ContainsFunc(categorySplits(tx), func(cs CategorySplit) bool { return cs.Category == c }) {
			return &ReferencedError{Kind: "category", Key: c.Path(), By: describe(tx)}
		}
	}
	siblings := &rk.categoryRoots[c.typ]
	if c.parent != nil {
		siblings = &c.parent.children
	}
	*siblings = slices.DeleteFunc(*siblings, func(x *Category) bool { return x == c })
	rk.log.Debug().Str("category", c.Path()).Msg("category removed")
	return nil
}

// categorySplits returns the category splits of cash and refund transactions.
func categorySplits(tx Transaction) []CategorySplit {
	switch tx := tx.(type) {
	case *CashTransaction:
		return tx.categories
	case *RefundTransaction:
		return tx.categories
	}
	return nil
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// resolver finds attributes and categories by name, making the missing ones.
// Made entities stay pending until commit, so that a failed mutation adds nothing.
type resolver struct {
	rk         *RecordKeeper
	attributes []*Attribute
	categories []pendingCategory
}

type pendingCategory struct {
	category *Category
	parent   *Category
}

func (rk *RecordKeeper) resolver() *resolver { return &resolver{rk: rk} }

// attribute returns the attribute of a kind and name, making it if needed.
func (r *resolver) attribute(kind AttributeKind, name string) (*Attribute, error) {
	name, err := validateName(kind.String(), name)
	if err != nil {
		return nil, err
	}
	if a, err := r.rk.Attribute(kind, name); err == nil {
		return a, nil
	}
	for _, a := range r.attributes {
		if a.kind == kind && a.name == name {
			return a, nil
		}
	}
	a := &Attribute{id: uuid.New(), name: name, kind: kind}
	r.attributes = append(r.attributes, a)
	return a, nil
}

// lookupCategory returns an existing or pending category.
func (r *resolver) lookupCategory(path string) *Category {
	if c, err := r.rk.Category(path); err == nil {
		return c
	}
	for _, p := range r.categories {
		if p.category.Path() == path {
			return p.category
		}
	}
	return nil
}

// category returns the category of a path, making it and its ancestors if needed.
func (r *resolver) category(path string, typ CategoryType) (*Category, error) {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if c := r.lookupCategory(path); c != nil {
		return c, nil
	}
	parentPath, name := splitPath(path)
	var parent *Category
	if parentPath != "" {
		var err error
		if parent, err = r.category(parentPath, typ); err != nil {
			return nil, err
		}
	}
	return r.newCategory(parent, name, typ)
}

// newCategory makes a pending category.
func (r *resolver) newCategory(parent *Category, name string, typ CategoryType) (*Category, error) {
	name, err := validateName("category", name)
	if err != nil {
		return nil, err
	}
	if typ < Income || typ > IncomeAndExpense {
		return nil, invalidf("unknown category type %d", int(typ))
	}
	path := name
	if parent != nil {
		typ = parent.typ
		path = parent.Path() + "/" + name
	}
	if r.lookupCategory(path) != nil {
		return nil, invalidf("category %s already exists", path)
	}
	// parent is set for Path, the category joins its siblings on commit.
	c := &Category{id: uuid.New(), name: name, typ: typ, parent: parent}
	r.categories = append(r.categories, pendingCategory{category: c, parent: parent})
	return c, nil
}

// commit adds the pending entities to the RecordKeeper.
func (r *resolver) commit() {
	for _, a := range r.attributes {
		list := r.rk.attributes(a.kind)
		*list = insertSorted(*list, a, (*Attribute).Name)
	}
	for _, p := range r.categories {
		c := p.category
		c.parent = nil
		c.setParent(p.parent, -1, &r.rk.categoryRoots[c.typ])
	}
	r.attributes, r.categories = nil, nil
}
