package core

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortColumn selects the ordering of a category's work list.
type SortColumn string

const (
	SortByPlanned SortColumn = "planned"
	SortByFact    SortColumn = "fact"
	SortByDelta   SortColumn = "delta"
)

// ValidSortColumn reports whether col is one of the known sort columns.
func ValidSortColumn(col SortColumn) bool {
	switch col {
	case SortByPlanned, SortByFact, SortByDelta:
		return true
	}
	return false
}

// Collator provides locale-aware, case-insensitive string comparison for
// tie-breaking category and work names. A nil Collator falls back to a
// plain case-folded byte comparison, which keeps pure-ASCII tests
// locale-independent.
type Collator struct {
	c *collate.Collator
}

// NewCollator builds a collator for the given BCP 47 locale tag. Unknown
// tags fall back to the undetermined locale instead of failing.
func NewCollator(locale string) *Collator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Collator{c: collate.New(tag, collate.IgnoreCase)}
}

// DefaultCollator returns the collator for the upstream's locale.
func DefaultCollator() *Collator {
	return NewCollator("ru")
}

// Compare returns -1, 0 or 1 comparing a and b.
func (cl *Collator) Compare(a, b string) int {
	if cl == nil || cl.c == nil {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	}
	return cl.c.CompareString(a, b)
}

// FilterWorks returns the items whose display name contains term,
// case-insensitively. An empty term returns the input unchanged. Filtering
// applies before sorting.
func FilterWorks(items []LineItem, term string) []LineItem {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items
	}
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name()), term) {
			out = append(out, it)
		}
	}
	return out
}

// SortWorks returns a copy of items in the total order for the given
// column. Planned and fact order descending by value with absent amounts
// last; delta surfaces overruns first: every negative delta precedes every
// non-negative one, negatives ordered most negative first and non-negatives
// most positive first. Ties always break on the display name ascending.
func SortWorks(items []LineItem, col SortColumn, coll *Collator) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)

	less := func(i, j int) bool {
		if c := coll.Compare(out[i].Name(), out[j].Name()); c != 0 {
			return c < 0
		}
		return false
	}

	switch col {
	case SortByDelta:
		less = func(i, j int) bool {
			di, dj := CalculateDelta(out[i]), CalculateDelta(out[j])
			ni, nj := di.IsNegative(), dj.IsNegative()
			if ni != nj {
				return ni
			}
			var c int
			if ni {
				// Among overruns: most negative first
				c = di.Cmp(dj)
			} else {
				// Among the rest: most positive first
				c = dj.Cmp(di)
			}
			if c != 0 {
				return c < 0
			}
			return coll.Compare(out[i].Name(), out[j].Name()) < 0
		}
	case SortByFact:
		less = byAmountDesc(out, coll, func(it LineItem) Amount { return it.FactAmount })
	case SortByPlanned:
		less = byAmountDesc(out, coll, func(it LineItem) Amount { return it.PlannedAmount })
	}

	sort.SliceStable(out, less)
	return out
}

func byAmountDesc(items []LineItem, coll *Collator, value func(LineItem) Amount) func(i, j int) bool {
	return func(i, j int) bool {
		if c := value(items[i]).Cmp(value(items[j])); c != 0 {
			return c > 0
		}
		return coll.Compare(items[i].Name(), items[j].Name()) < 0
	}
}
