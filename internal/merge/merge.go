// Package merge reconciles two catalog collections into one without
// duplicating or silently dropping records. The additive merge is the only
// real algorithm in the application; everything else is plumbing.
package merge

import (
	"fmt"

	"github.com/auraarchive/aura/internal/catalog"
)

// Strategy selects how an item present in both collections is arbitrated.
type Strategy string

const (
	// LocalWins keeps the local version verbatim on conflict. Field-level
	// edits made remotely to an item that also exists locally are discarded.
	// This matches the original behavior and is the default.
	LocalWins Strategy = "local-wins"

	// LastWriteWins lets the incoming copy replace the local one when its
	// lastUpdated timestamp is strictly newer. Opt-in behavior deviation:
	// the merge stops being local-wins-idempotent and becomes
	// last-write-wins-idempotent.
	LastWriteWins Strategy = "last-write-wins"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case LocalWins, LastWriteWins:
		return Strategy(s), nil
	case "":
		return LocalWins, nil
	}
	return "", fmt.Errorf("unknown merge strategy %q (valid: %s, %s)", s, LocalWins, LastWriteWins)
}

// Additive combines local and incoming by id union. Every incoming item
// whose id is absent locally is appended in order; items present in both are
// arbitrated by the strategy. Duplicate ids inside incoming itself: first
// occurrence wins. An empty incoming collection is a no-op. The result never
// contains a duplicate id and the local slice is not mutated.
func Additive(local, incoming []catalog.Item, strat Strategy) []catalog.Item {
	result := make([]catalog.Item, len(local))
	copy(result, local)

	pos := make(map[string]int, len(local))
	for i, it := range local {
		pos[it.ID] = i
	}

	seen := make(map[string]bool, len(incoming))
	for _, inc := range incoming {
		if seen[inc.ID] {
			continue
		}
		seen[inc.ID] = true

		if i, ok := pos[inc.ID]; ok {
			if strat == LastWriteWins && inc.LastUpdated > result[i].LastUpdated {
				result[i] = inc
			}
			continue
		}
		result = append(result, inc)
	}
	return result
}

// ReplaceAll discards local state in favor of incoming: wholesale
// replacement, used for explicit restore-from-backup and first-time cloud
// adoption (both behind user confirmation). Duplicate ids inside incoming
// keep the first occurrence.
func ReplaceAll(incoming []catalog.Item) []catalog.Item {
	out := make([]catalog.Item, 0, len(incoming))
	seen := make(map[string]bool, len(incoming))
	for _, it := range incoming {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}
