package core

import (
	"sort"
	"strings"
)

// BuildCategories groups line items into categories: skips items with no
// meaningful amount and items carrying the uncategorized sentinel, resolves
// synonym category codes to one canonical key, accumulates sums and sorts
// the result by planned amount descending with a collator tie-break on the
// title. Pure and deterministic; the input is never mutated.
func BuildCategories(items []LineItem, coll *Collator) []Category {
	byKey := map[string]*Category{}
	order := make([]string, 0)

	for _, it := range items {
		if !it.Meaningful() {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(it.Category), UncategorizedSentinel) {
			continue
		}
		ref := ResolveCategory(it.Category)
		cat, ok := byKey[ref.Key]
		if !ok {
			cat = &Category{Key: ref.Key, Title: ref.Title}
			byKey[ref.Key] = cat
			order = append(order, ref.Key)
		}
		if !it.PlanOnly {
			cat.Works = append(cat.Works, it)
		}
		cat.Planned = addAmount(cat.Planned, it.PlannedAmount)
		cat.Fact = addAmount(cat.Fact, it.FactAmount)
		cat.Delta = addDelta(cat.Delta, it)
	}

	out := make([]Category, 0, len(byKey))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Planned.Cmp(out[j].Planned); c != 0 {
			return c > 0
		}
		return coll.Compare(out[i].Title, out[j].Title) < 0
	})
	return out
}

// addAmount folds one contribution into a running category total, keeping
// the total absent until the first present contributor.
func addAmount(total, contrib Amount) Amount {
	if !contrib.Valid {
		return total
	}
	if !total.Valid {
		return Amount{Dec: contrib.Dec, Valid: true}
	}
	return Amount{Dec: total.Dec.Add(contrib.Dec), Valid: true}
}

// addDelta folds the item's delta contribution into the category delta.
// Items with no amounts and no override leave the delta untouched.
func addDelta(total Amount, it LineItem) Amount {
	if !it.DeltaAmount.Valid && !it.PlannedAmount.Valid && !it.FactAmount.Valid {
		return total
	}
	d := CalculateDelta(it)
	if !total.Valid {
		return Amount{Dec: d, Valid: true}
	}
	return Amount{Dec: total.Dec.Add(d), Valid: true}
}

// FindCategory returns the category with the given key, or nil.
func FindCategory(cats []Category, key string) *Category {
	for i := range cats {
		if cats[i].Key == key {
			return &cats[i]
		}
	}
	return nil
}
