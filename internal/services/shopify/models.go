package shopify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Product represents a product as served by the storefront's public
// products.json endpoints.
type Product struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Handle      string    `json:"handle"`
	BodyHTML    string    `json:"body_html"`
	Vendor      string    `json:"vendor"`
	ProductType string    `json:"product_type"`
	Tags        Tags      `json:"tags"`
	Variants    []Variant `json:"variants"`
	Images      []Image   `json:"images"`
	Options     []Option  `json:"options"`
}

// Variant represents a purchasable configuration of a product.
type Variant struct {
	ID             int64   `json:"id"`
	ProductID      int64   `json:"product_id"`
	Title          string  `json:"title"`
	Sku            string  `json:"sku"`
	Barcode        string  `json:"barcode"`
	Price          Amount  `json:"price"`
	CompareAtPrice Amount  `json:"compare_at_price"`
	Grams          *int64  `json:"grams"`
	Available      bool    `json:"available"`
	Position       int     `json:"position"`
	Option1        *string `json:"option1"`
	Option2        *string `json:"option2"`
	Option3        *string `json:"option3"`
	ImageID        *int64  `json:"image_id"`
	FeaturedImage  *Image  `json:"featured_image"`
}

// Image represents a product image. VariantIDs is empty for images that
// apply to the whole product.
type Image struct {
	ID         int64   `json:"id"`
	Src        string  `json:"src"`
	Position   int     `json:"position"`
	VariantIDs []int64 `json:"variant_ids"`
}

// Option represents a named product option (Size, Color, ...).
type Option struct {
	Name     string   `json:"name"`
	Position int      `json:"position"`
	Values   []string `json:"values"`
}

// Collection represents a named group of products.
type Collection struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
}

// ShopInfo is the channel header of a feed. It is derived from the catalog,
// not read from an authoritative endpoint.
type ShopInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// DefaultShopInfo is used when the catalog yields no shop info.
func DefaultShopInfo(storeURL string) ShopInfo {
	return ShopInfo{URL: storeURL}
}

// OptionValues returns the variant's option1..option3 values.
func (v Variant) OptionValues() [3]string {
	var out [3]string
	for i, opt := range []*string{v.Option1, v.Option2, v.Option3} {
		if opt != nil {
			out[i] = *opt
		}
	}
	return out
}

// UnmarshalJSON decodes a variant with a tolerant grams field: numbers,
// fractional numbers and numeric strings are accepted (rounded to whole
// grams), anything else leaves the weight unknown.
func (v *Variant) UnmarshalJSON(data []byte) error {
	type plain Variant
	aux := struct {
		*plain
		Grams json.RawMessage `json:"grams"`
	}{plain: (*plain)(v)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	v.Grams = parseGrams(aux.Grams)
	return nil
}

func parseGrams(data json.RawMessage) *int64 {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	text := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return nil
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return nil
	}
	g := int64(math.Round(f))
	return &g
}

// Tags accepts both the public API's JSON array and the admin API's
// comma separated string.
type Tags []string

func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		var tags Tags
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				tags = append(tags, part)
			}
		}
		*t = tags
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	*t = list
	return nil
}

// Amount is a decimal amount kept in its textual form. Storefronts send it
// as a JSON string, some as a number, and null for absent compare-at prices.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		*a = Amount(n.String())
	}
	return nil
}

func (a Amount) String() string {
	return string(a)
}

// IsZero reports whether the amount is absent.
func (a Amount) IsZero() bool {
	return a == ""
}
