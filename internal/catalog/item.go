// Package catalog defines the catalog item model and the pure operations
// over the in-memory item collection: filtering, ordering, upsert, removal
// and expiry derivation. Nothing here performs I/O.
package catalog

import (
	"encoding/json"
	"time"
)

// ItemType distinguishes the two catalog domains. Fixed at creation.
type ItemType string

const (
	TypeClothing ItemType = "clothing"
	TypeBeauty   ItemType = "beauty"
)

// RefillStatus tracks inventory for beauty items. Clothing items carry the
// field but it is not meaningful for them.
type RefillStatus string

const (
	StatusInStock RefillStatus = "in-stock"
	StatusLow     RefillStatus = "low"
	StatusOut     RefillStatus = "out"
)

// Season tags a clothing item. SeasonAll acts as a wildcard in filters.
type Season string

const (
	SeasonSpring Season = "Spring"
	SeasonSummer Season = "Summer"
	SeasonAutumn Season = "Autumn"
	SeasonWinter Season = "Winter"
	SeasonAll    Season = "All-Season"
)

// Seasons is a set of season tags. Early schema versions stored the field as
// a single scalar string; UnmarshalJSON promotes that legacy shape to a
// singleton set on read. The array shape is always written back out.
type Seasons []Season

func (s *Seasons) UnmarshalJSON(data []byte) error {
	var list []Season
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var single Season
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single == "" {
		*s = nil
		return nil
	}
	*s = Seasons{single}
	return nil
}

// Contains reports whether the set holds the given season tag.
func (s Seasons) Contains(season Season) bool {
	for _, v := range s {
		if v == season {
			return true
		}
	}
	return false
}

// Matches reports whether an item tagged with this set should pass a filter
// for the given season. An All-Season tag matches every requested season.
func (s Seasons) Matches(season Season) bool {
	return s.Contains(season) || s.Contains(SeasonAll)
}

// openedDateLayout is the wire format of Item.OpenedDate.
const openedDateLayout = "2006-01-02"

// Item is the sole persisted entity. JSON field names are wire-compatible
// with the backup file format, so exported files and cloud objects from
// older clients load unchanged.
type Item struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Brand        string       `json:"brand"`
	Type         ItemType     `json:"type"`
	Category     string       `json:"category"`
	Status       RefillStatus `json:"status"`
	Color        string       `json:"color,omitempty"`
	Season       Seasons      `json:"season,omitempty"`
	OpenedDate   string       `json:"openedDate,omitempty"`
	ExpiryMonths int          `json:"expiryMonths,omitempty"`
	ImageURL     string       `json:"imageUrl,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	LastUpdated  int64        `json:"lastUpdated"`
}

// Expired reports whether a beauty item is past its shelf life at the given
// instant: opened date plus expiryMonths calendar months (not fixed 30-day
// months). Items without an opened date or expiry never expire.
func (it Item) Expired(now time.Time) bool {
	if it.Type != TypeBeauty || it.OpenedDate == "" || it.ExpiryMonths <= 0 {
		return false
	}
	opened, err := time.Parse(openedDateLayout, it.OpenedDate)
	if err != nil {
		return false
	}
	return now.After(opened.AddDate(0, it.ExpiryMonths, 0))
}

// AppendNote adds text to an item's notes on a new line. Existing notes are
// preserved, never overwritten; this is the append-only convention used when
// AI enrichment supplies a description.
func AppendNote(existing, addition string) string {
	if addition == "" {
		return existing
	}
	if existing == "" {
		return addition
	}
	return existing + "\n" + addition
}
