package feed

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"shopfeeds/internal/services/shopify"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

const defaultVariantTitle = "Default Title"

// StripHTML returns the text content of an HTML fragment with runs of
// whitespace collapsed to a single space.
func StripHTML(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	text := html
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		text = doc.Text()
	}
	return strings.Join(strings.Fields(text), " ")
}

// Truncate shortens s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// CleanText drops control, private-use, surrogate and other-symbol runes
// (emoji, dingbats) that some feed consumers reject.
func CleanText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return r
		case unicode.IsControl(r),
			unicode.Is(unicode.Co, r),
			unicode.Is(unicode.Cs, r),
			unicode.Is(unicode.So, r),
			r == unicode.ReplacementChar:
			return -1
		}
		return r
	}, s)
}

// CleanDescription strips markup and unsupported symbols from an HTML body.
func CleanDescription(html string) string {
	return strings.Join(strings.Fields(CleanText(StripHTML(html))), " ")
}

// CleanLine removes unsupported symbols from a single-line value and
// collapses the whitespace left behind.
func CleanLine(s string) string {
	return strings.Join(strings.Fields(CleanText(s)), " ")
}

// VariantTitle joins the product and variant titles. Single-variant
// products carry the placeholder "Default Title", which is dropped.
func VariantTitle(product, variant string) string {
	variant = strings.TrimSpace(variant)
	if variant == "" || variant == defaultVariantTitle {
		return product
	}
	return product + " - " + variant
}

// ProductURL builds the storefront product page link. A non-zero variantID
// selects the variant on the page.
func ProductURL(storeURL, handle string, variantID int64) string {
	link := strings.TrimRight(storeURL, "/") + "/products/" + handle
	if variantID != 0 {
		link += fmt.Sprintf("?variant=%d", variantID)
	}
	return link
}

// ParseAmount converts a catalog amount to a decimal. An absent amount is
// zero.
func ParseAmount(a shopify.Amount) (decimal.Decimal, error) {
	if a.IsZero() {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(a.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", a.String(), err)
	}
	return d, nil
}

// FormatPrice renders d with two decimals followed by the currency code.
func FormatPrice(d decimal.Decimal, currency string) string {
	return d.StringFixed(2) + " " + currency
}

// FormatWholePrice renders d truncated toward zero, without decimals.
func FormatWholePrice(d decimal.Decimal) string {
	return d.Truncate(0).String()
}

// FormatWeight renders grams as kilograms with the given precision.
func FormatWeight(grams int64, places int32) string {
	return decimal.New(grams, -3).StringFixed(places) + " kg"
}

// JoinTags joins non-empty tags with sep.
func JoinTags(tags []string, sep string) string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, sep)
}

// ResolveImages picks the primary image of a variant and the additional
// images that follow it. The variant's own image wins when the catalog
// associates one; otherwise the product's first image is primary. The
// remaining product images follow in catalog order.
func ResolveImages(p *shopify.Product, v *shopify.Variant) (primary string, additional []string) {
	var srcs []string
	var ids []int64
	for _, img := range p.Images {
		if img.Src == "" {
			continue
		}
		srcs = append(srcs, img.Src)
		ids = append(ids, img.ID)
	}

	idx := -1
	switch {
	case v.ImageID != nil:
		idx = slices.Index(ids, *v.ImageID)
	case v.FeaturedImage != nil && v.FeaturedImage.Src != "":
		idx = slices.Index(srcs, v.FeaturedImage.Src)
		if idx < 0 {
			return v.FeaturedImage.Src, srcs
		}
	}
	if idx < 0 {
		for _, img := range p.Images {
			if img.Src != "" && slices.Contains(img.VariantIDs, v.ID) {
				idx = slices.Index(srcs, img.Src)
				break
			}
		}
	}

	if len(srcs) == 0 {
		return "", nil
	}
	if idx < 0 {
		idx = 0
	}
	primary = srcs[idx]
	for i, s := range srcs {
		if i != idx {
			additional = append(additional, s)
		}
	}
	return primary, additional
}
