package engine

import (
	"math"
	"strings"
)

// Criticality is how sensitive the data behind the scanned assets is.
type Criticality string

const (
	CriticalityNone   Criticality = "none"
	CriticalityMedium Criticality = "medium"
	CriticalityHigh   Criticality = "high"
)

// Context describes the organization a scan is scored for. It is fixed for the
// whole scoring run and always passed explicitly.
type Context struct {
	OrgType         string      `json:"org_type" yaml:"org_type" mapstructure:"org_type"`
	DataCriticality Criticality `json:"data_criticality" yaml:"data_criticality" mapstructure:"data_criticality"`
	InternetExposed bool        `json:"internet_exposed" yaml:"internet_exposed" mapstructure:"internet_exposed"`
	DaysSincePatch  int         `json:"days_since_patch" yaml:"days_since_patch" mapstructure:"days_since_patch"`
}

// RiskLevel is the discrete band a final score falls into.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// Rank returns an integer for comparison (Low=1, Critical=4).
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 0
	}
}

// Modifier names as they appear in the ledger.
const (
	ModOrgType         = "org_type"
	ModDataCriticality = "data_criticality"
	ModInternetExposed = "internet_exposed"
	ModPatchDelay      = "patch_delay"
	ModDampening       = "dampening"
)

const (
	MaxScore = 10.0

	patchDelayDays = 90

	dampeningBaseCeiling = 8.0
	dampeningThreshold   = 9.0
	dampeningPenalty     = -0.5

	// Modifier deltas are tenths; this absorbs float drift at the threshold.
	scoreEpsilon = 1e-9
)

// ScoredFinding is a Finding with its context-adjusted score.
type ScoredFinding struct {
	Finding
	FinalScore float64   `json:"final_score"`
	RiskLevel  RiskLevel `json:"risk_level"`
	Modifiers  Ledger    `json:"modifiers"`
}

type modifierRule struct {
	name  string
	delta func(Context) float64
}

// modifierRules are applied in this order. Each rule is independent and
// additive; a zero delta means the rule did not fire.
var modifierRules = []modifierRule{
	{name: ModOrgType, delta: orgTypeDelta},
	{name: ModDataCriticality, delta: dataCriticalityDelta},
	{name: ModInternetExposed, delta: internetExposedDelta},
	{name: ModPatchDelay, delta: patchDelayDelta},
}

func orgTypeDelta(c Context) float64 {
	switch strings.ToLower(strings.TrimSpace(c.OrgType)) {
	case "finance", "healthcare":
		return 1.0
	case "education":
		return 0.5
	default:
		return 0
	}
}

func dataCriticalityDelta(c Context) float64 {
	switch Criticality(strings.ToLower(strings.TrimSpace(string(c.DataCriticality)))) {
	case CriticalityHigh:
		return 0.8
	case CriticalityMedium:
		return 0.4
	default:
		return 0
	}
}

func internetExposedDelta(c Context) float64 {
	if c.InternetExposed {
		return 0.5
	}
	return 0
}

func patchDelayDelta(c Context) float64 {
	if c.DaysSincePatch > patchDelayDays {
		return 0.3
	}
	return 0
}

// Score computes the final score, risk level and modifier ledger of a finding.
//
// The additive modifiers run first, in table order. Dampening is checked once
// against the total after all of them: a finding whose base score is below 8
// and whose adjusted total reaches 9 loses 0.5. The result is capped at 10
// and rounded to two decimals; the band is taken from the rounded value.
func Score(f Finding, c Context) ScoredFinding {
	total := f.BaseScore
	var ledger Ledger

	for _, rule := range modifierRules {
		d := rule.delta(c)
		if d == 0 {
			continue
		}
		total += d
		ledger = append(ledger, Modifier{Name: rule.name, Delta: d})
	}

	if f.BaseScore < dampeningBaseCeiling && total >= dampeningThreshold-scoreEpsilon {
		total += dampeningPenalty
		ledger = append(ledger, Modifier{Name: ModDampening, Delta: dampeningPenalty})
	}

	final := round2(math.Min(total, MaxScore))

	return ScoredFinding{
		Finding:    f,
		FinalScore: final,
		RiskLevel:  RiskLevelFor(final),
		Modifiers:  ledger,
	}
}

// ScoreAll scores each finding against the same context, preserving order.
func ScoreAll(findings []Finding, c Context) []ScoredFinding {
	out := make([]ScoredFinding, len(findings))
	for i, f := range findings {
		out[i] = Score(f, c)
	}
	return out
}

// RiskLevelFor bands a final score. Boundaries belong to the higher band.
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score >= 8:
		return RiskCritical
	case score >= 6:
		return RiskHigh
	case score >= 3:
		return RiskMedium
	default:
		return RiskLow
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
