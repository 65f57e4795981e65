package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Filter holds the predicates applied over the catalog. Zero-valued fields
// are ignored; supplied fields combine with logical AND.
type Filter struct {
	Type     ItemType
	Search   string
	Statuses []RefillStatus
	Color    string
	Category string
	Season   Season
}

// Apply returns the subsequence of items matching every supplied predicate.
// Text search is a case-insensitive substring match over name, brand and
// category (OR across the three). A season predicate also matches items
// tagged All-Season.
func (f Filter) Apply(items []Item) []Item {
	var out []Item
	search := strings.ToLower(f.Search)
	for _, it := range items {
		if f.Type != "" && it.Type != f.Type {
			continue
		}
		if search != "" && !matchesSearch(it, search) {
			continue
		}
		if len(f.Statuses) > 0 && !statusIn(it.Status, f.Statuses) {
			continue
		}
		if f.Color != "" && !strings.EqualFold(it.Color, f.Color) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(it.Category, f.Category) {
			continue
		}
		if f.Season != "" && !it.Season.Matches(f.Season) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func matchesSearch(it Item, search string) bool {
	return strings.Contains(strings.ToLower(it.Name), search) ||
		strings.Contains(strings.ToLower(it.Brand), search) ||
		strings.Contains(strings.ToLower(it.Category), search)
}

func statusIn(s RefillStatus, set []RefillStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// SortByRecency returns a copy ordered by lastUpdated descending. The sort
// is stable so ties keep their original relative order, which keeps
// rendering and tests deterministic.
func SortByRecency(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdated > out[j].LastUpdated
	})
	return out
}

// Upsert replaces the item with a matching id in place, or prepends rec as a
// new item ("most recent first" bias). A record whose id matches nothing is
// treated as new and gets a freshly generated id; only reconciliation
// (merge) preserves foreign ids. Either way lastUpdated is bumped. The item
// type is immutable: on replace, the existing type wins. Returns the new
// collection and the stored record.
func Upsert(items []Item, rec Item) ([]Item, Item) {
	rec.LastUpdated = time.Now().UnixMilli()
	if rec.ID != "" {
		for i, it := range items {
			if it.ID == rec.ID {
				rec.Type = it.Type
				out := make([]Item, len(items))
				copy(out, items)
				out[i] = rec
				return out, rec
			}
		}
	}
	rec.ID = uuid.New().String()
	out := make([]Item, 0, len(items)+1)
	out = append(out, rec)
	out = append(out, items...)
	return out, rec
}

// Remove returns the collection without the given id. Removing an absent id
// is a no-op, not an error.
func Remove(items []Item, id string) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}
