// Package zbozi maps catalog products to Zbozi.cz SHOPITEM records.
package zbozi

import (
	"regexp"
	"strconv"
	"strings"

	"shopfeeds/internal/feed"
	"shopfeeds/internal/logger"
	"shopfeeds/internal/monitoring"
	"shopfeeds/internal/services/shopify"
)

const (
	Name = "zbozi"

	deliveryDate           = "3"
	defaultProductNoPrefix = "MM"
	handlePrefixLen        = 10
)

var layout = feed.Layout{
	Root: "SHOP",
	Header: []feed.HeaderTag{
		{Tag: "SHOP_NAME", Value: feed.ShopName},
		{Tag: "SHOP_DESCRIPTION", Value: feed.ShopDescription},
		{Tag: "SHOP_URL", Value: feed.ShopURL},
	},
	Item:    "SHOPITEM",
	IDField: "ITEM_ID",
	Required: []string{
		"PRODUCTNAME", "DESCRIPTION", "URL", "PRICE_VAT", "DELIVERY_DATE",
		"IMGURL", "ITEM_ID",
	},
	Images: feed.ImageFields{Primary: "IMGURL", Additional: "IMGURL_ALTERNATIVE"},
}

// DefaultDelivery is the delivery table used when none is configured.
var DefaultDelivery = []feed.Shipping{
	{ID: "ZASILKOVNA", Price: "59", CODPrice: "0"},
	{ID: "PPL", Price: "59", CODPrice: "0"},
}

var potSize = regexp.MustCompile(`(\d+)\s*cm`)

type Transformer struct {
	opts            feed.Options
	delivery        []feed.Shipping
	productNoPrefix string
	logger          *logger.Logger
}

func New(opts feed.Options, log *logger.Logger) *Transformer {
	return &Transformer{
		opts:            opts,
		delivery:        DefaultDelivery,
		productNoPrefix: defaultProductNoPrefix,
		logger:          log.Named(Name),
	}
}

// WithDelivery replaces the delivery table.
func (t *Transformer) WithDelivery(methods []feed.Shipping) *Transformer {
	t.delivery = methods
	return t
}

// WithProductNoPrefix sets the prefix of synthesized PRODUCTNO values.
func (t *Transformer) WithProductNoPrefix(prefix string) *Transformer {
	t.productNoPrefix = prefix
	return t
}

func (t *Transformer) Name() string { return Name }

func (t *Transformer) Layout() feed.Layout { return layout }

func (t *Transformer) MapProduct(p *shopify.Product) []*feed.Item {
	items := make([]*feed.Item, 0, len(p.Variants))
	description := feed.CleanDescription(p.BodyHTML)
	category := categoryText(p.ProductType)

	for i := range p.Variants {
		v := &p.Variants[i]
		price, err := feed.ParseAmount(v.Price)
		if err != nil {
			t.logger.Error("Skipping variant %d of product %d: %v", v.ID, p.ID, err)
			monitoring.VariantsSkipped.WithLabelValues(Name).Inc()
			continue
		}
		primary, additional := feed.ResolveImages(p, v)
		name := feed.CleanLine(feed.VariantTitle(p.Title, v.Title))

		it := feed.NewItem()
		it.SetText("PRODUCTNAME", name)
		it.SetText("DESCRIPTION", description)
		it.SetText("URL", feed.ProductURL(t.opts.StoreURL, p.Handle, v.ID))
		it.SetText("PRICE_VAT", feed.FormatWholePrice(price))
		it.SetText("DELIVERY_DATE", deliveryDate)
		it.SetText("IMGURL", primary)
		it.SetText("ITEM_ID", strconv.FormatInt(v.ID, 10))
		it.SetText("ITEMGROUP_ID", strconv.FormatInt(p.ID, 10))

		it.SetText("PRODUCT", feed.CleanLine(p.Title))
		it.SetText("MANUFACTURER", p.Vendor)
		it.SetText("CATEGORYTEXT", category)
		if v.Barcode != "" {
			it.SetText("EAN", v.Barcode)
		}
		it.SetText("PRODUCTNO", t.productNo(p, v))
		it.SetText("CONDITION", "new")
		it.SetText("BRAND", p.Vendor)

		it.SetText("WARRANTY", "24")
		it.SetText("VISIBILITY", "1")
		it.SetText("CUSTOM_LABEL_0", "Shopify")
		it.SetText("CUSTOM_LABEL_1", p.ProductType)
		it.SetText("CUSTOM_LABEL_2", feed.JoinTags(p.Tags, " | "))

		if before, err := feed.ParseAmount(v.CompareAtPrice); err == nil && before.IsPositive() {
			it.SetText("PRICE_BEFORE_DISCOUNT", feed.FormatWholePrice(before))
		}
		if len(additional) > 0 {
			it.Set("IMGURL_ALTERNATIVE", feed.List(additional...))
		}
		if len(t.delivery) > 0 {
			groups := make([]*feed.Fields, 0, len(t.delivery))
			for _, d := range t.delivery {
				groups = append(groups, feed.NewFields().
					SetText("DELIVERY_ID", d.ID).
					SetText("DELIVERY_PRICE", d.Price).
					SetText("DELIVERY_PRICE_COD", d.CODPrice))
			}
			it.Set("DELIVERY", feed.Groups(groups...))
		}
		it.Set("PARAM", feed.Groups(params(p, v, name)...))

		items = append(items, it)
	}
	return items
}

func (t *Transformer) productNo(p *shopify.Product, v *shopify.Variant) string {
	if v.Sku != "" {
		return v.Sku
	}
	handle := []rune(p.Handle)
	if len(handle) > handlePrefixLen {
		handle = handle[:handlePrefixLen]
	}
	return t.productNoPrefix + "-" + strings.ToUpper(string(handle))
}

func params(p *shopify.Product, v *shopify.Variant, name string) []*feed.Fields {
	var out []*feed.Fields
	add := func(n, val string) {
		out = append(out, feed.NewFields().SetText("PARAM_NAME", n).SetText("VAL", val))
	}

	fallback := [3]string{"Variant", "Variant 2", "Variant 3"}
	for i, val := range v.OptionValues() {
		if val == "" || val == "Default Title" {
			continue
		}
		n := fallback[i]
		if i < len(p.Options) && p.Options[i].Name != "" {
			n = p.Options[i].Name
		}
		add(n, val)
	}
	if v.Grams != nil && *v.Grams > 0 {
		add("Hmotnost", feed.FormatWeight(*v.Grams, 2))
	}
	if v.Available {
		add("Dostupnost", "Skladem")
	} else {
		add("Dostupnost", "Není skladem")
	}
	if m := potSize.FindStringSubmatch(name); m != nil {
		add("Průměr květináče", m[1]+" cm")
	}
	return out
}

func categoryText(productType string) string {
	if productType == "" {
		return ""
	}
	parts := strings.Split(productType, "/")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, " | ")
}
