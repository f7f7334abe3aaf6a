// Package bing maps catalog products to Bing Shopping catalog products.
package bing

import (
	"strconv"

	"shopfeeds/internal/feed"
	"shopfeeds/internal/logger"
	"shopfeeds/internal/monitoring"
	"shopfeeds/internal/services/shopify"
)

const Name = "bing"

var layout = feed.Layout{
	Root: "Catalog",
	Header: []feed.HeaderTag{
		{Tag: "Title", Value: feed.ShopName},
		{Tag: "Description", Value: feed.ShopDescription},
		{Tag: "Link", Value: feed.ShopURL},
	},
	Item:    "Product",
	IDField: "ProductID",
	Required: []string{
		"ProductID", "Title", "Link", "ImageLink", "Price", "Brand",
		"Availability", "Condition", "Description",
	},
	Images: feed.ImageFields{Primary: "ImageLink", Additional: "AdditionalImageLink"},
}

// DefaultShipping is the delivery table used when none is configured.
var DefaultShipping = []feed.Shipping{
	{ID: "PPL", Country: "CZ", Price: "0"},
}

type Transformer struct {
	opts     feed.Options
	shipping []feed.Shipping
	logger   *logger.Logger
}

func New(opts feed.Options, log *logger.Logger) *Transformer {
	if opts.Currency == "" {
		opts.Currency = "CZK"
	}
	return &Transformer{opts: opts, shipping: DefaultShipping, logger: log.Named(Name)}
}

// WithShipping replaces the delivery table.
func (t *Transformer) WithShipping(methods []feed.Shipping) *Transformer {
	t.shipping = methods
	return t
}

func (t *Transformer) Name() string { return Name }

func (t *Transformer) Layout() feed.Layout { return layout }

func (t *Transformer) MapProduct(p *shopify.Product) []*feed.Item {
	items := make([]*feed.Item, 0, len(p.Variants))
	description := feed.CleanDescription(p.BodyHTML)

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
		it.SetText("ProductID", strconv.FormatInt(v.ID, 10))
		it.SetText("Title", feed.CleanLine(feed.VariantTitle(p.Title, v.Title)))
		it.SetText("Link", feed.ProductURL(t.opts.StoreURL, p.Handle, v.ID))
		it.SetText("ImageLink", primary)
		it.SetText("Price", feed.FormatWholePrice(price)+" "+t.opts.Currency)
		it.SetText("Brand", p.Vendor)
		if v.Sku != "" {
			it.SetText("MPN", v.Sku)
		}
		it.SetText("Availability", availability(v.Available))
		it.SetText("Condition", "New")
		it.SetText("Description", description)
		it.SetText("ProductType", p.ProductType)
		it.SetText("ItemGroupID", strconv.FormatInt(p.ID, 10))

		if sale, err := feed.ParseAmount(v.CompareAtPrice); err == nil && sale.IsPositive() {
			it.SetText("SalePrice", feed.FormatWholePrice(sale)+" "+t.opts.Currency)
		}
		if v.Grams != nil && *v.Grams > 0 {
			it.SetText("ShippingWeight", feed.FormatWeight(*v.Grams, 2))
		}
		if len(additional) > 0 {
			it.Set("AdditionalImageLink", feed.List(additional...))
		}
		if len(t.shipping) > 0 {
			groups := make([]*feed.Fields, 0, len(t.shipping))
			for _, s := range t.shipping {
				groups = append(groups, feed.NewFields().
					SetText("Service", s.ID).
					SetText("Country", s.Country).
					SetText("Price", s.Price+" "+t.opts.Currency))
			}
			it.Set("Shipping", feed.Groups(groups...))
		}
		if v.Barcode != "" {
			it.SetText("GTIN", v.Barcode)
		}
		it.SetText("IdentifierExists", identifierExists(v))

		items = append(items, it)
	}
	return items
}

func availability(available bool) string {
	if available {
		return "In Stock"
	}
	return "Out of Stock"
}

func identifierExists(v *shopify.Variant) string {
	if v.Barcode == "" && v.Sku == "" {
		return "FALSE"
	}
	return "TRUE"
}
