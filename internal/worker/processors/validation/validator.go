package validation

import (
	"fmt"

	"shopfeeds/internal/feed"
	"shopfeeds/internal/logger"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a problem found on one feed item.
type Issue struct {
	Index    int
	ItemID   string
	Field    string
	Severity Severity
	Message  string
}

func (i Issue) String() string {
	id := i.ItemID
	if id == "" {
		id = fmt.Sprintf("#%d", i.Index)
	}
	return fmt.Sprintf("%s item %s: %s %s", i.Severity, id, i.Field, i.Message)
}

// Validator checks feed items against the required fields of their layout.
type Validator struct {
	logger *logger.Logger
}

func New(logger *logger.Logger) *Validator {
	return &Validator{logger: logger.Named("validation")}
}

// ValidateItem reports required fields that are missing, an empty item id,
// and an empty primary image.
func (v *Validator) ValidateItem(layout feed.Layout, index int, it *feed.Item) []Issue {
	var issues []Issue
	id := it.Text(layout.IDField)
	add := func(field string, sev Severity, msg string) {
		issues = append(issues, Issue{Index: index, ItemID: id, Field: field, Severity: sev, Message: msg})
	}

	for _, field := range layout.Required {
		if !it.Has(field) {
			add(field, SeverityError, "is required")
		}
	}
	if it.Has(layout.IDField) && id == "" {
		add(layout.IDField, SeverityError, "is empty")
	}
	if layout.Images.Primary != "" && it.Has(layout.Images.Primary) && it.Text(layout.Images.Primary) == "" {
		add(layout.Images.Primary, SeverityWarning, "is empty")
	}
	return issues
}

// ValidateItems validates every item and logs what it finds.
func (v *Validator) ValidateItems(layout feed.Layout, items []*feed.Item) []Issue {
	var issues []Issue
	for i, it := range items {
		issues = append(issues, v.ValidateItem(layout, i, it)...)
	}
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			v.logger.Error("%s", issue)
		} else {
			v.logger.Debug("%s", issue)
		}
	}
	if len(issues) > 0 {
		v.logger.Warn("Found %d issues in %d items", len(issues), len(items))
	}
	return issues
}
