package feed

import (
	"shopfeeds/internal/services/shopify"
)

// Transformer maps catalog products to the items of one feed platform.
// Implementations must emit every field listed in Layout().Required on each
// item, falling back to a default when the source lacks the data.
type Transformer interface {
	MapProduct(p *shopify.Product) []*Item
	Name() string
	Layout() Layout
}

// Shipping is one row of a static delivery price table.
type Shipping struct {
	ID       string
	Country  string
	Service  string
	Price    string
	CODPrice string
}

// Options carries the per-run parameters shared by all transformers.
type Options struct {
	StoreURL string
	Currency string
}
