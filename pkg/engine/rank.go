package engine

import "sort"

// RankedFinding is a ScoredFinding with its position in the remediation order.
type RankedFinding struct {
	ScoredFinding
	PriorityRank int `json:"priority_rank"`
}

// Rank orders findings by final score, highest first, and assigns dense ranks
// starting at 1. Equal scores keep their input order. The input is not modified.
func Rank(scored []ScoredFinding) []RankedFinding {
	ranked := make([]RankedFinding, len(scored))
	for i, s := range scored {
		s.Modifiers = s.Modifiers.clone()
		ranked[i] = RankedFinding{ScoredFinding: s}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})

	for i := range ranked {
		ranked[i].PriorityRank = i + 1
	}
	return ranked
}
