package feed

import "iter"

// Kind tags the shape of a field value.
type Kind int

const (
	KindScalar Kind = iota
	KindList
	KindGroup
	KindGroups
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindGroup:
		return "group"
	case KindGroups:
		return "groups"
	}
	return "unknown"
}

// Value is one field value of a feed item: a scalar, an ordered list of
// scalars, a nested group of fields, or a list of such groups.
type Value struct {
	kind   Kind
	scalar string
	list   []string
	groups []*Fields
}

func Scalar(s string) Value {
	return Value{kind: KindScalar, scalar: s}
}

func List(items ...string) Value {
	return Value{kind: KindList, list: append([]string(nil), items...)}
}

func Group(f *Fields) Value {
	return Value{kind: KindGroup, groups: []*Fields{f}}
}

func Groups(fs ...*Fields) Value {
	return Value{kind: KindGroups, groups: append([]*Fields(nil), fs...)}
}

func (v Value) Kind() Kind { return v.kind }

// Text returns the scalar text. It is empty for other kinds.
func (v Value) Text() string { return v.scalar }

// Strings returns the entries of a list value.
func (v Value) Strings() []string { return v.list }

// Fields returns the nested group of a group value.
func (v Value) Fields() *Fields {
	if v.kind != KindGroup || len(v.groups) == 0 {
		return nil
	}
	return v.groups[0]
}

// GroupList returns the entries of a groups value.
func (v Value) GroupList() []*Fields {
	if v.kind != KindGroups {
		return nil
	}
	return v.groups
}

// Fields is an insertion-ordered mapping of field name to value.
type Fields struct {
	keys   []string
	values map[string]Value
}

func NewFields() *Fields {
	return &Fields{values: make(map[string]Value)}
}

// Set stores v under name. Replacing an existing field keeps its position.
func (f *Fields) Set(name string, v Value) *Fields {
	if f.values == nil {
		f.values = make(map[string]Value)
	}
	if _, ok := f.values[name]; !ok {
		f.keys = append(f.keys, name)
	}
	f.values[name] = v
	return f
}

// SetText is shorthand for Set(name, Scalar(s)).
func (f *Fields) SetText(name, s string) *Fields {
	return f.Set(name, Scalar(s))
}

func (f *Fields) Get(name string) (Value, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Text returns the scalar text of name, or "" when absent.
func (f *Fields) Text(name string) string {
	return f.values[name].scalar
}

func (f *Fields) Has(name string) bool {
	_, ok := f.values[name]
	return ok
}

func (f *Fields) Len() int { return len(f.keys) }

// Keys returns field names in insertion order.
func (f *Fields) Keys() []string {
	return append([]string(nil), f.keys...)
}

// All iterates fields in insertion order.
func (f *Fields) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, k := range f.keys {
			if !yield(k, f.values[k]) {
				return
			}
		}
	}
}

// Item is one feed record, normally one product variant.
type Item struct {
	*Fields
}

func NewItem() *Item {
	return &Item{Fields: NewFields()}
}

// ImageURLs returns the primary image followed by the additional images
// named by fields, skipping empty entries.
func (it *Item) ImageURLs(fields ImageFields) []string {
	var urls []string
	if s := it.Text(fields.Primary); s != "" {
		urls = append(urls, s)
	}
	if fields.Additional != "" {
		if v, ok := it.Get(fields.Additional); ok {
			switch v.Kind() {
			case KindList:
				for _, s := range v.Strings() {
					if s != "" {
						urls = append(urls, s)
					}
				}
			case KindScalar:
				if v.Text() != "" {
					urls = append(urls, v.Text())
				}
			}
		}
	}
	return urls
}
