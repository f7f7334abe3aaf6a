package bing

import (
	"io"
	"testing"

	"shopfeeds/internal/feed"
	"shopfeeds/internal/logger"
	"shopfeeds/internal/services/shopify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransformer() *Transformer {
	return New(feed.Options{StoreURL: "https://shop.cz/"}, logger.NewWithWriter("error", io.Discard))
}

func grams(g int64) *int64 { return &g }

func threeImageProduct() *shopify.Product {
	return &shopify.Product{
		ID:          7,
		Title:       "Planter 🌿",
		Handle:      "planter",
		BodyHTML:    "<div>Great <i>planter</i> 🌿</div>",
		Vendor:      "Coasy",
		ProductType: "Pots",
		Images: []shopify.Image{
			{ID: 1, Src: "https://cdn/a.jpg"},
			{ID: 2, Src: "https://cdn/b.jpg"},
			{ID: 3, Src: "https://cdn/c.jpg"},
		},
		Variants: []shopify.Variant{{
			ID: 70, Title: "Default Title", Price: "199.99", CompareAtPrice: "259.90",
			Available: true, Grams: grams(1250), Sku: "PL-1", Barcode: "123",
		}},
	}
}

func TestMapProduct(t *testing.T) {
	items := newTransformer().MapProduct(threeImageProduct())
	require.Len(t, items, 1)
	it := items[0]

	assert.Equal(t, "70", it.Text("ProductID"))
	assert.Equal(t, "Planter", it.Text("Title"))
	assert.Equal(t, "https://shop.cz/products/planter?variant=70", it.Text("Link"))
	assert.Equal(t, "https://cdn/a.jpg", it.Text("ImageLink"))
	assert.Equal(t, "199 CZK", it.Text("Price"))
	assert.Equal(t, "259 CZK", it.Text("SalePrice"))
	assert.Equal(t, "1.25 kg", it.Text("ShippingWeight"))
	assert.Equal(t, "In Stock", it.Text("Availability"))
	assert.Equal(t, "New", it.Text("Condition"))
	assert.Equal(t, "Great planter", it.Text("Description"))
	assert.Equal(t, "7", it.Text("ItemGroupID"))
	assert.Equal(t, "PL-1", it.Text("MPN"))
	assert.Equal(t, "123", it.Text("GTIN"))
	assert.Equal(t, "TRUE", it.Text("IdentifierExists"))

	extra, ok := it.Get("AdditionalImageLink")
	require.True(t, ok)
	assert.Equal(t, []string{"https://cdn/b.jpg", "https://cdn/c.jpg"}, extra.Strings())
}

func TestShippingGroups(t *testing.T) {
	tr := newTransformer().WithShipping([]feed.Shipping{
		{ID: "PPL", Country: "CZ", Price: "0"},
		{ID: "DPD", Country: "CZ", Price: "89"},
	})
	it := tr.MapProduct(threeImageProduct())[0]

	v, ok := it.Get("Shipping")
	require.True(t, ok)
	groups := v.GroupList()
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"Service", "Country", "Price"}, groups[0].Keys())
	assert.Equal(t, "0 CZK", groups[0].Text("Price"))
	assert.Equal(t, "DPD", groups[1].Text("Service"))
}

func TestOptionalFieldsOmitted(t *testing.T) {
	p := &shopify.Product{ID: 1, Title: "Bare", Handle: "bare", Variants: []shopify.Variant{{ID: 2, Price: "10"}}}
	it := newTransformer().MapProduct(p)[0]

	for _, f := range []string{"SalePrice", "ShippingWeight", "AdditionalImageLink", "GTIN", "MPN"} {
		assert.False(t, it.Has(f), f)
	}
	assert.Equal(t, "FALSE", it.Text("IdentifierExists"))
	assert.Equal(t, "Out of Stock", it.Text("Availability"))
	assert.Equal(t, "", it.Text("ImageLink"))
	for _, f := range newTransformer().Layout().Required {
		assert.True(t, it.Has(f), f)
	}
}
