package feed

import "shopfeeds/internal/services/shopify"

// ShopField selects which ShopInfo attribute a header tag carries.
type ShopField int

const (
	ShopName ShopField = iota
	ShopDescription
	ShopURL
)

// Value returns the selected attribute of info.
func (f ShopField) Value(info shopify.ShopInfo) string {
	switch f {
	case ShopName:
		return info.Name
	case ShopDescription:
		return info.Description
	case ShopURL:
		return info.URL
	}
	return ""
}

type HeaderTag struct {
	Tag   string
	Value ShopField
}

type Attr struct {
	Name  string
	Value string
}

// Namespace is an XML prefix binding declared once on the root element.
// When set, item fields and nested group keys are written with the prefix.
type Namespace struct {
	Prefix string
	URI    string
}

// ImageFields names the fields holding the primary and additional images.
type ImageFields struct {
	Primary    string
	Additional string
}

// Layout is the XML vocabulary of one feed platform.
type Layout struct {
	Root      string
	RootAttrs []Attr
	Namespace *Namespace
	// Channel wraps the header and the items when non-empty.
	Channel  string
	Header   []HeaderTag
	Item     string
	IDField  string
	Required []string
	Images   ImageFields
}

// QualifiedName applies the namespace prefix to an item field name.
func (l Layout) QualifiedName(field string) string {
	if l.Namespace == nil || l.Namespace.Prefix == "" {
		return field
	}
	return l.Namespace.Prefix + ":" + field
}
