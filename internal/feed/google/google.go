// Package google maps catalog products to Google Merchant Center items.
package google

import (
	"strconv"
	"strings"

	"shopfeeds/internal/feed"
	"shopfeeds/internal/logger"
	"shopfeeds/internal/monitoring"
	"shopfeeds/internal/services/shopify"
)

const (
	Name = "google"

	namespaceURI           = "http://base.google.com/ns/1.0"
	descriptionLimit       = 5000
	defaultProductCategory = "Home & Garden"
)

var layout = feed.Layout{
	Root:      "rss",
	RootAttrs: []feed.Attr{{Name: "version", Value: "2.0"}},
	Namespace: &feed.Namespace{Prefix: "g", URI: namespaceURI},
	Channel:   "channel",
	Header: []feed.HeaderTag{
		{Tag: "title", Value: feed.ShopName},
		{Tag: "link", Value: feed.ShopURL},
		{Tag: "description", Value: feed.ShopDescription},
	},
	Item:    "item",
	IDField: "id",
	Required: []string{
		"id", "title", "description", "link", "image_link", "availability",
		"price", "brand", "condition", "google_product_category",
	},
	Images: feed.ImageFields{Primary: "image_link", Additional: "additional_image_link"},
}

// attributeAliases maps lowercased option names to Google attributes.
var attributeAliases = map[string]string{
	"color":          "color",
	"colour":         "color",
	"barva":          "color",
	"size":           "size",
	"velikost":       "size",
	"material":       "material",
	"materiál":       "material",
	"pattern":        "pattern",
	"vzor":           "pattern",
	"gender":         "gender",
	"pohlaví":        "gender",
	"age group":      "age_group",
	"age_group":      "age_group",
	"věková skupina": "age_group",
}

type Transformer struct {
	opts   feed.Options
	logger *logger.Logger
}

func New(opts feed.Options, log *logger.Logger) *Transformer {
	if opts.Currency == "" {
		opts.Currency = "CZK"
	}
	return &Transformer{opts: opts, logger: log.Named(Name)}
}

func (t *Transformer) Name() string { return Name }

func (t *Transformer) Layout() feed.Layout { return layout }

func (t *Transformer) MapProduct(p *shopify.Product) []*feed.Item {
	items := make([]*feed.Item, 0, len(p.Variants))
	description := feed.Truncate(feed.StripHTML(p.BodyHTML), descriptionLimit)
	category := feed.JoinTags(p.Tags, ", ")
	if category == "" {
		category = defaultProductCategory
	}

	for i := range p.Variants {
		v := &p.Variants[i]
		price, err := feed.ParseAmount(v.Price)
		if err != nil {
			t.logger.Error("Skipping variant %d of product %d: %v", v.ID, p.ID, err)
			monitoring.VariantsSkipped.WithLabelValues(Name).Inc()
			continue
		}
		primary, additional := feed.ResolveImages(p, v)

		it := feed.NewItem()
		it.SetText("id", strconv.FormatInt(v.ID, 10))
		it.SetText("title", feed.VariantTitle(p.Title, v.Title))
		it.SetText("description", description)
		it.SetText("link", feed.ProductURL(t.opts.StoreURL, p.Handle, 0))
		it.SetText("image_link", primary)
		it.SetText("availability", availability(v.Available))
		it.SetText("price", feed.FormatPrice(price, t.opts.Currency))
		it.SetText("brand", p.Vendor)
		it.SetText("condition", "new")
		it.SetText("google_product_category", category)

		if v.Barcode != "" {
			it.SetText("gtin", v.Barcode)
		}
		if v.Sku != "" {
			it.SetText("mpn", v.Sku)
		}
		it.SetText("identifier_exists", identifierExists(v))
		if p.ProductType != "" {
			it.SetText("product_type", p.ProductType)
		}
		if len(p.Variants) > 1 {
			it.SetText("item_group_id", strconv.FormatInt(p.ID, 10))
		}
		if len(additional) > 0 {
			it.Set("additional_image_link", feed.List(additional...))
		}
		if v.Grams != nil && *v.Grams > 0 {
			it.SetText("shipping_weight", feed.FormatWeight(*v.Grams, 2))
		}
		t.setOptionAttributes(it, p, v)

		it.Set("shipping", feed.Group(feed.NewFields().
			SetText("country", "CZ").
			SetText("service", "Standard").
			SetText("price", "0 "+t.opts.Currency).
			SetText("carrier_shipping", "true").
			SetText("shipping_transit_business_days", "2")))
		it.Set("tax", feed.Group(feed.NewFields().
			SetText("country", "CZ").
			SetText("rate", "21.0").
			SetText("tax_ship", "y")))

		items = append(items, it)
	}
	return items
}

func (t *Transformer) setOptionAttributes(it *feed.Item, p *shopify.Product, v *shopify.Variant) {
	values := v.OptionValues()
	for i, opt := range p.Options {
		if i >= len(values) {
			break
		}
		attr, ok := attributeAliases[strings.ToLower(strings.TrimSpace(opt.Name))]
		if !ok || values[i] == "" || it.Has(attr) {
			continue
		}
		it.SetText(attr, values[i])
	}
}

func availability(available bool) string {
	if available {
		return "in stock"
	}
	return "out of stock"
}

func identifierExists(v *shopify.Variant) string {
	if v.Barcode == "" && v.Sku == "" {
		return "FALSE"
	}
	return "TRUE"
}
