package zbozi

import (
	"io"
	"testing"

	"shopfeeds/internal/feed"
	"shopfeeds/internal/logger"
	"shopfeeds/internal/services/shopify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func grams(g int64) *int64 { return &g }

func newTransformer() *Transformer {
	return New(feed.Options{StoreURL: "https://shop.cz"}, logger.NewWithWriter("error", io.Discard))
}

func product() *shopify.Product {
	return &shopify.Product{
		ID:          9,
		Title:       "Květináč Terra",
		Handle:      "kvetinac-terra-white",
		BodyHTML:    "<p>Keramický <b>květináč</b></p>",
		Vendor:      "Coasy",
		ProductType: "Domov / Květináče",
		Tags:        shopify.Tags{"keramika", "bílá"},
		Options:     []shopify.Option{{Name: "Velikost"}},
		Images:      []shopify.Image{{ID: 1, Src: "https://cdn/1.jpg"}, {ID: 2, Src: "https://cdn/2.jpg"}},
		Variants: []shopify.Variant{
			{ID: 91, Title: "12 cm", Price: "199.90", CompareAtPrice: "249", Available: true, Grams: grams(500), Option1: str("12 cm"), Barcode: "859"},
			{ID: 92, Title: "Default Title", Price: "99", Option1: str("Default Title"), Option2: str("Bílá"), Sku: "KT-2"},
		},
	}
}

func paramMap(t *testing.T, it *feed.Item) map[string]string {
	t.Helper()
	v, ok := it.Get("PARAM")
	require.True(t, ok)
	out := map[string]string{}
	for _, g := range v.GroupList() {
		out[g.Text("PARAM_NAME")] = g.Text("VAL")
	}
	return out
}

func TestMapProduct(t *testing.T) {
	items := newTransformer().MapProduct(product())
	require.Len(t, items, 2)
	it := items[0]

	assert.Equal(t, "Květináč Terra - 12 cm", it.Text("PRODUCTNAME"))
	assert.Equal(t, "Keramický květináč", it.Text("DESCRIPTION"))
	assert.Equal(t, "https://shop.cz/products/kvetinac-terra-white?variant=91", it.Text("URL"))
	assert.Equal(t, "199", it.Text("PRICE_VAT"))
	assert.Equal(t, "249", it.Text("PRICE_BEFORE_DISCOUNT"))
	assert.Equal(t, "3", it.Text("DELIVERY_DATE"))
	assert.Equal(t, "https://cdn/1.jpg", it.Text("IMGURL"))
	assert.Equal(t, "91", it.Text("ITEM_ID"))
	assert.Equal(t, "9", it.Text("ITEMGROUP_ID"))
	assert.Equal(t, "Domov | Květináče", it.Text("CATEGORYTEXT"))
	assert.Equal(t, "859", it.Text("EAN"))
	assert.Equal(t, "MM-KVETINAC-T", it.Text("PRODUCTNO"))
	assert.Equal(t, "keramika | bílá", it.Text("CUSTOM_LABEL_2"))
	assert.Equal(t, "Domov / Květináče", it.Text("CUSTOM_LABEL_1"))
	assert.Equal(t, "24", it.Text("WARRANTY"))

	alt, ok := it.Get("IMGURL_ALTERNATIVE")
	require.True(t, ok)
	assert.Equal(t, []string{"https://cdn/2.jpg"}, alt.Strings())

	assert.Equal(t, map[string]string{
		"Velikost":         "12 cm",
		"Hmotnost":         "0.50 kg",
		"Dostupnost":       "Skladem",
		"Průměr květináče": "12 cm",
	}, paramMap(t, it))
}

func TestSecondVariant(t *testing.T) {
	it := newTransformer().MapProduct(product())[1]

	assert.Equal(t, "Květináč Terra", it.Text("PRODUCTNAME"))
	assert.Equal(t, "KT-2", it.Text("PRODUCTNO"))
	assert.False(t, it.Has("EAN"))
	assert.False(t, it.Has("PRICE_BEFORE_DISCOUNT"))

	params := paramMap(t, it)
	assert.Equal(t, "Bílá", params["Variant 2"])
	assert.Equal(t, "Není skladem", params["Dostupnost"])
	assert.NotContains(t, params, "Hmotnost")
	assert.NotContains(t, params, "Průměr květináče")
}

func TestDeliveryGroups(t *testing.T) {
	it := newTransformer().MapProduct(product())[0]
	v, ok := it.Get("DELIVERY")
	require.True(t, ok)

	groups := v.GroupList()
	require.Len(t, groups, 2)
	assert.Equal(t, "ZASILKOVNA", groups[0].Text("DELIVERY_ID"))
	assert.Equal(t, "59", groups[0].Text("DELIVERY_PRICE"))
	assert.Equal(t, "0", groups[0].Text("DELIVERY_PRICE_COD"))
	assert.Equal(t, "PPL", groups[1].Text("DELIVERY_ID"))
}

func TestProductNoPrefix(t *testing.T) {
	p := product()
	p.Handle = "short"
	it := newTransformer().WithProductNoPrefix("XY").MapProduct(p)[0]
	assert.Equal(t, "XY-SHORT", it.Text("PRODUCTNO"))
}

func TestRequiredFieldsPresent(t *testing.T) {
	p := &shopify.Product{ID: 1, Handle: "x", Variants: []shopify.Variant{{ID: 1}}}
	it := newTransformer().MapProduct(p)[0]
	for _, f := range newTransformer().Layout().Required {
		assert.True(t, it.Has(f), f)
	}
	assert.Equal(t, "0", it.Text("PRICE_VAT"))
}
