package engine

// Trace shows how a final score was derived.
type Trace struct {
	BaseScore        float64   `json:"base_score"`
	ModifiersApplied Ledger    `json:"modifiers_applied"`
	FinalScore       float64   `json:"final_score"`
	RiskLevel        RiskLevel `json:"risk_level"`
	PriorityRank     int       `json:"priority_rank"`
}

// TraceRecord is the audit view of a ranked finding. Explanation and report
// collaborators read it but never change scores or order.
type TraceRecord struct {
	VulnID        string `json:"vuln_id"`
	Title         string `json:"title"`
	Trace         Trace  `json:"trace"`
	Evidence      string `json:"evidence"`
	AffectedAsset string `json:"affected_asset"`
	SourceFile    string `json:"source_file"`
}

// BuildTrace projects ranked findings into trace records, keeping order.
func BuildTrace(ranked []RankedFinding) []TraceRecord {
	out := make([]TraceRecord, len(ranked))
	for i, r := range ranked {
		out[i] = TraceRecord{
			VulnID: r.VulnID,
			Title:  r.Title,
			Trace: Trace{
				BaseScore:        r.BaseScore,
				ModifiersApplied: r.Modifiers.clone(),
				FinalScore:       r.FinalScore,
				RiskLevel:        r.RiskLevel,
				PriorityRank:     r.PriorityRank,
			},
			Evidence:      r.Evidence,
			AffectedAsset: r.AffectedAsset,
			SourceFile:    r.SourceFile,
		}
	}
	return out
}
