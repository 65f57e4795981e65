package catalog

import (
	"testing"
)

func sampleItems() []Item {
	return []Item{
		{ID: "1", Name: "Oversized Blazer", Brand: "Acme", Type: TypeClothing, Category: "Jacket", Color: "Black", Season: Seasons{SeasonAutumn, SeasonWinter}, LastUpdated: 300},
		{ID: "2", Name: "Vitamin C Serum", Brand: "GlowLab", Type: TypeBeauty, Category: "Serum", Status: StatusLow, LastUpdated: 200},
		{ID: "3", Name: "Linen Shirt", Brand: "Breeze", Type: TypeClothing, Category: "Shirt", Color: "White", Season: Seasons{SeasonAll}, LastUpdated: 100},
		{ID: "4", Name: "Sunscreen SPF50", Brand: "GlowLab", Type: TypeBeauty, Category: "Sunscreen", Status: StatusInStock, LastUpdated: 400},
	}
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestFilterApply(t *testing.T) {
	items := sampleItems()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no predicates", Filter{}, []string{"1", "2", "3", "4"}},
		{"by type", Filter{Type: TypeBeauty}, []string{"2", "4"}},
		{"search matches name", Filter{Search: "blazer"}, []string{"1"}},
		{"search matches brand", Filter{Search: "glowlab"}, []string{"2", "4"}},
		{"search matches category", Filter{Search: "shirt"}, []string{"3"}},
		{"search is case-insensitive", Filter{Search: "LINEN"}, []string{"3"}},
		{"status subset", Filter{Statuses: []RefillStatus{StatusLow, StatusOut}}, []string{"2"}},
		{"color", Filter{Color: "white"}, []string{"3"}},
		{"category", Filter{Category: "Serum"}, []string{"2"}},
		{"season exact", Filter{Season: SeasonWinter}, []string{"1", "3"}},
		{"all-season wildcard matches any season", Filter{Season: SeasonSummer}, []string{"3"}},
		{"predicates AND together", Filter{Type: TypeBeauty, Search: "glowlab", Statuses: []RefillStatus{StatusInStock}}, []string{"4"}},
		{"no match", Filter{Search: "velvet"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(tt.filter.Apply(items))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestSortByRecency(t *testing.T) {
	items := []Item{
		{ID: "a", LastUpdated: 100},
		{ID: "b", LastUpdated: 300},
		{ID: "c", LastUpdated: 200},
		{ID: "d", LastUpdated: 200}, // tie with c, must stay after it
	}

	sorted := SortByRecency(items)

	want := []string{"b", "c", "d", "a"}
	for i, id := range ids(sorted) {
		if id != want[i] {
			t.Fatalf("order = %v, want %v", ids(sorted), want)
		}
	}

	// Input must not be mutated.
	if items[0].ID != "a" {
		t.Error("SortByRecency mutated its input")
	}
}

func TestUpsert_NewItem(t *testing.T) {
	out, stored := Upsert(nil, Item{Name: "Silk Scarf", Type: TypeClothing})

	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
	if stored.ID == "" {
		t.Error("new item should get a generated id")
	}
	if stored.LastUpdated == 0 {
		t.Error("new item should get lastUpdated set")
	}
	if out[0].ID != stored.ID {
		t.Error("returned record does not match stored collection")
	}
}

func TestUpsert_PrependsNewItems(t *testing.T) {
	items := []Item{{ID: "old", Name: "Old", LastUpdated: 1}}

	out, stored := Upsert(items, Item{Name: "New"})

	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].ID != stored.ID || out[1].ID != "old" {
		t.Errorf("new item should be prepended, got order %v", ids(out))
	}
}

func TestUpsert_ReplaceExisting(t *testing.T) {
	items := []Item{
		{ID: "x", Name: "Before", Type: TypeClothing, LastUpdated: 1},
		{ID: "y", Name: "Other", Type: TypeBeauty, LastUpdated: 2},
	}

	out, stored := Upsert(items, Item{ID: "x", Name: "After", Type: TypeBeauty})

	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].ID != "x" || out[0].Name != "After" {
		t.Errorf("existing item should be replaced in place, got %+v", out[0])
	}
	if out[0].Type != TypeClothing {
		t.Errorf("item type must be immutable, got %s", out[0].Type)
	}
	if stored.LastUpdated <= 1 {
		t.Error("replace should bump lastUpdated")
	}
	// Original slice untouched.
	if items[0].Name != "Before" {
		t.Error("Upsert mutated its input")
	}
}

func TestUpsert_UnknownIDPrependsAsNew(t *testing.T) {
	items := []Item{{ID: "a", LastUpdated: 1}}

	out, stored := Upsert(items, Item{ID: "ghost", Name: "Imported"})

	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if stored.ID == "" || stored.ID == "ghost" {
		t.Errorf("unmatched record should get a fresh id, got %q", stored.ID)
	}
}

func TestRemove(t *testing.T) {
	items := []Item{{ID: "a"}, {ID: "b"}}

	out := Remove(items, "a")
	if len(out) != 1 || out[0].ID != "b" {
		t.Errorf("Remove(a) = %v", ids(out))
	}

	// Removing an absent id is a no-op, not an error.
	out = Remove(items, "nope")
	if len(out) != 2 {
		t.Errorf("Remove(absent) should keep all items, got %v", ids(out))
	}
}
