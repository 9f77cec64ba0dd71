// Package menu models the persisted menu document and converts it between the
// editor's JSON transport format and the YAML configuration file.
//
// A document is an ordered mapping from menu name to a tree of items. Items keep
// their scalar fields in the order they were submitted, so a save cycle never
// reorders or retypes anything the editor sent.
package menu

import "strconv"

// YAML core schema short tags used for scalar values.
const (
	TagStr   = "!!str"
	TagInt   = "!!int"
	TagFloat = "!!float"
	TagBool  = "!!bool"
	TagNull  = "!!null"
)

// Children keys recognised on items. The host CMS writes "submenu".
const (
	DefaultChildrenKey = "submenu"
	AltChildrenKey     = "children"
)

// DefaultMaxDepth bounds item nesting when no limit is configured.
const DefaultMaxDepth = 9999

// Scalar is a leaf value together with its type tag. Value is the literal text.
type Scalar struct {
	Tag   string
	Value string
}

// String returns a string scalar.
func String(v string) Scalar { return Scalar{Tag: TagStr, Value: v} }

// Int returns an integer scalar.
func Int(v int64) Scalar { return Scalar{Tag: TagInt, Value: strconv.FormatInt(v, 10)} }

// Bool returns a boolean scalar.
func Bool(v bool) Scalar { return Scalar{Tag: TagBool, Value: strconv.FormatBool(v)} }

// Null returns the null scalar.
func Null() Scalar { return Scalar{Tag: TagNull, Value: "null"} }

func (s Scalar) tag() string {
	if s.Tag == "" {
		return TagStr
	}
	return s.Tag
}

// Equal reports whether two scalars carry the same tag and text.
func (s Scalar) Equal(o Scalar) bool {
	return s.tag() == o.tag() && s.Value == o.Value
}

// Field is one key/value attribute of an item.
type Field struct {
	Key   string
	Value Scalar
}

// Item is one entry of a menu tree. Fields holds label, link, path and any other
// attribute in submission order; Children holds the nested entries.
type Item struct {
	Fields   []Field
	Children []*Item

	// ChildrenKey is the key the children are stored under. Empty means
	// DefaultChildrenKey when the item has children.
	ChildrenKey string
}

// Get returns the value of the named field.
func (it *Item) Get(key string) (Scalar, bool) {
	for _, f := range it.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Scalar{}, false
}

// Set replaces the named field or appends it.
func (it *Item) Set(key string, v Scalar) {
	for i := range it.Fields {
		if it.Fields[i].Key == key {
			it.Fields[i].Value = v
			return
		}
	}
	it.Fields = append(it.Fields, Field{Key: key, Value: v})
}

func (it *Item) text(key string) string {
	v, _ := it.Get(key)
	return v.Value
}

// Label is the display text.
func (it *Item) Label() string { return it.text("label") }

// Link is the target URL, if any.
func (it *Item) Link() string { return it.text("link") }

// Path is the internal content path, if any.
func (it *Item) Path() string { return it.text("path") }

func (it *Item) childrenKey() string {
	if it.ChildrenKey != "" {
		return it.ChildrenKey
	}
	if len(it.Children) > 0 {
		return DefaultChildrenKey
	}
	return ""
}

// Equal reports deep equality including field order.
func (it *Item) Equal(o *Item) bool {
	if it == nil || o == nil {
		return it == o
	}
	if len(it.Fields) != len(o.Fields) || it.childrenKey() != o.childrenKey() {
		return false
	}
	for i := range it.Fields {
		if it.Fields[i].Key != o.Fields[i].Key || !it.Fields[i].Value.Equal(o.Fields[i].Value) {
			return false
		}
	}
	return itemsEqual(it.Children, o.Children)
}

func itemsEqual(a, b []*Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Menu is one named navigation tree.
type Menu struct {
	Name  string
	Items []*Item
}

// Document is the complete set of menus persisted as one configuration file.
type Document struct {
	Menus []*Menu
}

// Menu returns the menu with the given name.
func (d *Document) Menu(name string) (*Menu, bool) {
	for _, m := range d.Menus {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Names lists menu names in document order.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.Menus))
	for _, m := range d.Menus {
		names = append(names, m.Name)
	}
	return names
}

// Equal reports whether two documents hold the same menus, items and fields in
// the same order.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.Menus) != len(o.Menus) {
		return false
	}
	for i := range d.Menus {
		if d.Menus[i].Name != o.Menus[i].Name || !itemsEqual(d.Menus[i].Items, o.Menus[i].Items) {
			return false
		}
	}
	return true
}

// Depth returns the deepest item nesting level. Top-level items are at depth 1.
func (d *Document) Depth() int {
	max := 0
	for _, m := range d.Menus {
		if n := itemsDepth(m.Items); n > max {
			max = n
		}
	}
	return max
}

// ItemCount returns the number of items across all menus.
func (d *Document) ItemCount() int {
	n := 0
	for _, m := range d.Menus {
		n += countItems(m.Items)
	}
	return n
}

func itemsDepth(items []*Item) int {
	max := 0
	for _, it := range items {
		if n := 1 + itemsDepth(it.Children); n > max {
			max = n
		}
	}
	return max
}

func countItems(items []*Item) int {
	n := len(items)
	for _, it := range items {
		n += countItems(it.Children)
	}
	return n
}

func isChildrenKey(key string) bool {
	return key == DefaultChildrenKey || key == AltChildrenKey
}
