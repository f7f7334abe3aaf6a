// Package xmlwriter serializes feed items into platform XML documents.
package xmlwriter

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"shopfeeds/internal/feed"
	"shopfeeds/internal/services/shopify"
)

// Write renders a complete feed document to w.
func Write(w io.Writer, layout feed.Layout, shop shopify.ShopInfo, items []*feed.Item) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write xml header: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: layout.Root}}
	for _, a := range layout.RootAttrs {
		root.Attr = append(root.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if ns := layout.Namespace; ns != nil && ns.Prefix != "" {
		root.Attr = append(root.Attr, xml.Attr{Name: xml.Name{Local: "xmlns:" + ns.Prefix}, Value: ns.URI})
	}
	if err := enc.EncodeToken(root); err != nil {
		return fmt.Errorf("failed to write root element: %w", err)
	}

	var channel xml.StartElement
	if layout.Channel != "" {
		channel = xml.StartElement{Name: xml.Name{Local: layout.Channel}}
		if err := enc.EncodeToken(channel); err != nil {
			return fmt.Errorf("failed to write channel element: %w", err)
		}
	}

	for _, h := range layout.Header {
		if err := writeText(enc, h.Tag, h.Value.Value(shop)); err != nil {
			return fmt.Errorf("failed to write header %s: %w", h.Tag, err)
		}
	}

	for i, it := range items {
		if err := writeItem(enc, layout, it); err != nil {
			return fmt.Errorf("failed to write item %d: %w", i, err)
		}
	}

	if layout.Channel != "" {
		if err := enc.EncodeToken(channel.End()); err != nil {
			return fmt.Errorf("failed to close channel element: %w", err)
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return fmt.Errorf("failed to close root element: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush xml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteFile writes the feed to path through a temporary file in the same
// directory, so readers only ever observe a complete document.
func WriteFile(path string, layout feed.Layout, shop shopify.ShopInfo, items []*feed.Item) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create feed directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp feed file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err := Write(buf, layout, shop, items); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to write feed file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to set feed file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close feed file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move feed file into place: %w", err)
	}
	committed = true
	return nil
}

func writeItem(enc *xml.Encoder, layout feed.Layout, it *feed.Item) error {
	start := xml.StartElement{Name: xml.Name{Local: layout.Item}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := writeFields(enc, layout, it.Fields); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

func writeFields(enc *xml.Encoder, layout feed.Layout, f *feed.Fields) error {
	for name, v := range f.All() {
		tag := layout.QualifiedName(name)
		switch v.Kind() {
		case feed.KindScalar:
			if err := writeText(enc, tag, v.Text()); err != nil {
				return err
			}
		case feed.KindList:
			for _, s := range v.Strings() {
				if err := writeText(enc, tag, s); err != nil {
					return err
				}
			}
		case feed.KindGroup:
			if err := writeGroup(enc, layout, tag, v.Fields()); err != nil {
				return err
			}
		case feed.KindGroups:
			for _, g := range v.GroupList() {
				if err := writeGroup(enc, layout, tag, g); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("field %s has unsupported kind %s", name, v.Kind())
		}
	}
	return nil
}

func writeGroup(enc *xml.Encoder, layout feed.Layout, tag string, g *feed.Fields) error {
	if g == nil {
		return fmt.Errorf("field %s has an empty group", tag)
	}
	start := xml.StartElement{Name: xml.Name{Local: tag}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := writeFields(enc, layout, g); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

func writeText(enc *xml.Encoder, tag, text string) error {
	return enc.EncodeElement(text, xml.StartElement{Name: xml.Name{Local: tag}})
}
