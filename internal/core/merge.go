package core

import "strings"

// UncategorizedSentinel marks rows the upstream explicitly refuses to
// attribute to a budget line; they are dropped from aggregation entirely.
const UncategorizedSentinel = "uncategorized"

// OtherCategoryKey is the fallback bucket for rows with an empty category.
const (
	OtherCategoryKey   = "other"
	OtherCategoryTitle = "Other"
)

// CategoryRef is a resolved category identity.
type CategoryRef struct {
	Key   string
	Title string
}

// categoryMerges maps lowercased raw category codes to a canonical
// category. The upstream splits off-schedule works across two codes that
// the dashboard has always shown as a single category.
var categoryMerges = map[string]CategoryRef{
	"offsched_part_1": {Key: "off-schedule", Title: "Off-schedule"},
	"offsched_part_2": {Key: "off-schedule", Title: "Off-schedule"},
}

// ResolveCategory maps a raw category label to its canonical key and title.
// Lookup order: synonym merge table, then the raw label itself, then the
// literal "Other" bucket for empty labels.
func ResolveCategory(raw string) CategoryRef {
	key := strings.ToLower(strings.TrimSpace(raw))
	if ref, ok := categoryMerges[key]; ok {
		return ref
	}
	if key == "" {
		return CategoryRef{Key: OtherCategoryKey, Title: OtherCategoryTitle}
	}
	return CategoryRef{Key: key, Title: strings.TrimSpace(raw)}
}
