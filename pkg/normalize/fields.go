package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/user/riskscope/pkg/engine"
)

// fieldRule resolves one Finding field: the first candidate with a non-empty
// value wins, otherwise fallback is used.
type fieldRule struct {
	target     string
	candidates []string
	fallback   string
	set        func(f *engine.Finding, v string)
}

var fieldRules = []fieldRule{
	{
		target:     "vuln_id",
		candidates: []string{"id", "vuln_id", "identifier"},
		fallback:   engine.DefaultVulnID,
		set:        func(f *engine.Finding, v string) { f.VulnID = v },
	},
	{
		target:     "title",
		candidates: []string{"title", "name", "description"},
		fallback:   engine.DefaultTitle,
		set:        func(f *engine.Finding, v string) { f.Title = v },
	},
	{
		target:     "severity",
		candidates: []string{"severity", "risk"},
		fallback:   engine.DefaultSeverity,
		set:        func(f *engine.Finding, v string) { f.Severity = v },
	},
	{
		target:     "base_score",
		candidates: []string{"base_score", "cvss_score", "score"},
		fallback:   "0.0",
		set:        func(f *engine.Finding, v string) { f.BaseScore = parseScore(v) },
	},
	{
		target:     "affected_asset",
		candidates: []string{"affected_asset", "asset", "host", "target"},
		fallback:   engine.DefaultAsset,
		set:        func(f *engine.Finding, v string) { f.AffectedAsset = v },
	},
	{
		target:     "evidence",
		candidates: []string{"evidence", "details", "description"},
		fallback:   engine.DefaultEvidence,
		set:        func(f *engine.Finding, v string) { f.Evidence = v },
	},
}

// resolveField walks candidates in order and returns the first hit.
func resolveField(rec record, candidates []string, fallback string) string {
	for _, name := range candidates {
		if v, ok := rec.field(name); ok {
			return v
		}
	}
	return fallback
}

// parseScore never fails: anything that is not a finite number scores 0.
func parseScore(v string) float64 {
	score, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

func extractFinding(rec record, source string, org engine.Organization) (engine.Finding, error) {
	if err := rec.check(); err != nil {
		return engine.Finding{}, err
	}

	f := engine.Finding{SourceFile: source, Organization: org}
	for _, rule := range fieldRules {
		rule.set(&f, resolveField(rec, rule.candidates, rule.fallback))
	}
	return f, nil
}
