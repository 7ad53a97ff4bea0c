package stagedomain

import (
	"sort"
	"time"
)

// Standing is the ranking input of one entry. Order is the entry's original
// enumeration position and breaks full ties.
type Standing struct {
	EntryID  string
	Score    int
	Total    time.Duration
	Complete bool
	Order    int
}

// Placement is a ranked entry. Rank is dense: 1..N by sorted position.
type Placement struct {
	EntryID string
	Rank    int
}

// RankQualification sorts by score descending, then total time ascending, with
// undefined totals after defined ones and enumeration order last. Every entry
// gets a rank.
func RankQualification(standings []Standing) []Placement {
	sorted := byOrder(standings)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Complete != b.Complete {
			return a.Complete
		}
		if a.Complete && a.Total != b.Total {
			return a.Total < b.Total
		}
		return false
	})
	return placements(sorted)
}

// RankByTime ranks only the entries with a defined total, fastest first. Entries
// without a total get no rank and are not returned.
func RankByTime(standings []Standing) []Placement {
	defined := make([]Standing, 0, len(standings))
	for _, s := range byOrder(standings) {
		if s.Complete {
			defined = append(defined, s)
		}
	}
	sort.SliceStable(defined, func(i, j int) bool {
		return defined[i].Total < defined[j].Total
	})
	return placements(defined)
}

// Rank dispatches on the stage kind. Finals are ordered by time like sudden death;
// elimination there comes from the lives engine, not the rank.
func Rank(kind Kind, standings []Standing) []Placement {
	if kind == KindQualification {
		return RankQualification(standings)
	}
	return RankByTime(standings)
}

func byOrder(standings []Standing) []Standing {
	out := make([]Standing, len(standings))
	copy(out, standings)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func placements(sorted []Standing) []Placement {
	out := make([]Placement, len(sorted))
	for i, s := range sorted {
		out[i] = Placement{EntryID: s.EntryID, Rank: i + 1}
	}
	return out
}
