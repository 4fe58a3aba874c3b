package engine

import "sort"

// AssetExposure rolls up the ranked findings that hit one affected asset.
type AssetExposure struct {
	Asset       string    `json:"affected_asset"`
	Findings    int       `json:"findings"`
	TopPriority int       `json:"top_priority"`
	MaxScore    float64   `json:"max_score"`
	HighestRisk RiskLevel `json:"highest_risk"`
	VulnIDs     []string  `json:"vuln_ids"`
}

// GroupByAsset groups trace records by affected asset. Assets are ordered by
// their most urgent finding, so the first entry holds priority 1. Vuln IDs keep
// trace order and repeat if the scan reported the same ID twice.
func GroupByAsset(traces []TraceRecord) []AssetExposure {
	index := map[string]int{}
	var out []AssetExposure

	for _, tr := range traces {
		i, ok := index[tr.AffectedAsset]
		if !ok {
			i = len(out)
			index[tr.AffectedAsset] = i
			out = append(out, AssetExposure{
				Asset:       tr.AffectedAsset,
				TopPriority: tr.Trace.PriorityRank,
				MaxScore:    tr.Trace.FinalScore,
				HighestRisk: tr.Trace.RiskLevel,
			})
		}

		a := &out[i]
		a.Findings++
		a.VulnIDs = append(a.VulnIDs, tr.VulnID)
		if tr.Trace.PriorityRank < a.TopPriority {
			a.TopPriority = tr.Trace.PriorityRank
		}
		if tr.Trace.FinalScore > a.MaxScore {
			a.MaxScore = tr.Trace.FinalScore
		}
		if tr.Trace.RiskLevel.Rank() > a.HighestRisk.Rank() {
			a.HighestRisk = tr.Trace.RiskLevel
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TopPriority < out[j].TopPriority
	})
	return out
}
