package tabulation

import (
	"sort"

	"github.com/Dosada05/bp-tabulation/models"
)

// Withheld reports whether a round's results must be hidden from the viewer.
// Privileged viewers always see everything.
func Withheld(round models.Round, privileged bool) bool {
	return round.IsFrozen && !privileged
}

// FrozenRounds returns the ids of frozen rounds, sorted.
func FrozenRounds(rounds []models.Round) []int {
	ids := make([]int, 0)
	for _, r := range rounds {
		if r.IsFrozen {
			ids = append(ids, r.ID)
		}
	}
	sort.Ints(ids)
	return ids
}

// VisibleMatches drops matches that belong to a frozen round.
func VisibleMatches(matches []CompletedMatch, frozen []int) []CompletedMatch {
	hidden := make(map[int]bool, len(frozen))
	for _, id := range frozen {
		hidden[id] = true
	}
	out := make([]CompletedMatch, 0, len(matches))
	for _, m := range matches {
		if !hidden[m.RoundID] {
			out = append(out, m)
		}
	}
	return out
}
