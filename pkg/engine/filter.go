package engine

import "strings"

// reportableSeverities is the minimum bar for a finding to enter scoring.
var reportableSeverities = map[string]bool{
	"high":     true,
	"critical": true,
}

// IsReportable reports whether a free-text severity label is High or Critical.
func IsReportable(severity string) bool {
	return reportableSeverities[strings.ToLower(strings.TrimSpace(severity))]
}

// FilterSeverity keeps High and Critical findings in their original order.
// The input slice is not modified.
func FilterSeverity(findings []Finding) (kept []Finding, dropped int) {
	kept = make([]Finding, 0, len(findings))
	for _, f := range findings {
		if IsReportable(f.Severity) {
			kept = append(kept, f)
		}
	}
	return kept, len(findings) - len(kept)
}
