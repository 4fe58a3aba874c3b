package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fullContext = Context{
	OrgType:         "finance",
	DataCriticality: CriticalityHigh,
	InternetExposed: true,
	DaysSincePatch:  120,
}

func TestScoreCriticalFindingIsCapped(t *testing.T) {
	s := Score(Finding{VulnID: "VULN-001", BaseScore: 9.8}, fullContext)

	assert.Equal(t, 10.0, s.FinalScore)
	assert.Equal(t, RiskCritical, s.RiskLevel)
	assert.Equal(t, []string{ModOrgType, ModDataCriticality, ModInternetExposed, ModPatchDelay}, s.Modifiers.Names())
	assert.Equal(t, map[string]string{
		"org_type":         "+1.0",
		"data_criticality": "+0.8",
		"internet_exposed": "+0.5",
		"patch_delay":      "+0.3",
	}, s.Modifiers.Map())
}

func TestScoreDampensInflatedFinding(t *testing.T) {
	s := Score(Finding{VulnID: "VULN-002", BaseScore: 7.5}, fullContext)

	// 7.5 + 2.6 = 10.1, dampened to 9.6, under the cap.
	assert.Equal(t, 9.6, s.FinalScore)
	assert.Equal(t, RiskCritical, s.RiskLevel)
	delta, ok := s.Modifiers.Get(ModDampening)
	require.True(t, ok)
	assert.Equal(t, "-0.5", delta)
	assert.Equal(t, ModDampening, s.Modifiers[len(s.Modifiers)-1].Name)
}

func TestScoreDampeningBoundary(t *testing.T) {
	ctx := Context{OrgType: "Finance", DaysSincePatch: 91}

	s := Score(Finding{BaseScore: 7.9}, ctx)

	// raw 7.9 + 1.0 + 0.3 = 9.2
	assert.Equal(t, 8.7, s.FinalScore)
	assert.LessOrEqual(t, s.FinalScore, 8.7)
	_, ok := s.Modifiers.Get(ModDampening)
	assert.True(t, ok)
}

func TestScoreDampeningNotAppliedAtBaseEight(t *testing.T) {
	s := Score(Finding{BaseScore: 8.0}, Context{OrgType: "finance"})

	assert.Equal(t, 9.0, s.FinalScore)
	_, ok := s.Modifiers.Get(ModDampening)
	assert.False(t, ok)
}

func TestScoreDampeningExactThreshold(t *testing.T) {
	// 7.7 + 0.8 + 0.5 lands exactly on 9.0
	s := Score(Finding{BaseScore: 7.7}, Context{DataCriticality: "HIGH", InternetExposed: true})

	assert.Equal(t, 8.5, s.FinalScore)
	_, ok := s.Modifiers.Get(ModDampening)
	assert.True(t, ok)
}

func TestScoreModifiers(t *testing.T) {
	tests := []struct {
		name      string
		ctx       Context
		wantScore float64
		wantMods  map[string]string
	}{
		{
			name:      "no context",
			ctx:       Context{},
			wantScore: 5.0,
			wantMods:  map[string]string{},
		},
		{
			name:      "healthcare",
			ctx:       Context{OrgType: "Healthcare"},
			wantScore: 6.0,
			wantMods:  map[string]string{"org_type": "+1.0"},
		},
		{
			name:      "education",
			ctx:       Context{OrgType: "education"},
			wantScore: 5.5,
			wantMods:  map[string]string{"org_type": "+0.5"},
		},
		{
			name:      "retail gets nothing",
			ctx:       Context{OrgType: "retail"},
			wantScore: 5.0,
			wantMods:  map[string]string{},
		},
		{
			name:      "medium criticality",
			ctx:       Context{DataCriticality: "Medium"},
			wantScore: 5.4,
			wantMods:  map[string]string{"data_criticality": "+0.4"},
		},
		{
			name:      "none criticality",
			ctx:       Context{DataCriticality: CriticalityNone},
			wantScore: 5.0,
			wantMods:  map[string]string{},
		},
		{
			name:      "patch at 90 days does not fire",
			ctx:       Context{DaysSincePatch: 90},
			wantScore: 5.0,
			wantMods:  map[string]string{},
		},
		{
			name:      "patch at 91 days fires",
			ctx:       Context{DaysSincePatch: 91},
			wantScore: 5.3,
			wantMods:  map[string]string{"patch_delay": "+0.3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Score(Finding{BaseScore: 5.0}, tt.ctx)
			assert.Equal(t, tt.wantScore, s.FinalScore)
			assert.Equal(t, tt.wantMods, s.Modifiers.Map())
		})
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	f := Finding{VulnID: "X", BaseScore: 7.3}
	first := Score(f, fullContext)

	for i := 0; i < 200; i++ {
		got := Score(f, fullContext)
		require.Equal(t, first.FinalScore, got.FinalScore, "iteration %d", i)
		require.Equal(t, first.RiskLevel, got.RiskLevel, "iteration %d", i)
		require.Equal(t, first.Modifiers, got.Modifiers, "iteration %d", i)
	}
}

func TestScoreNeverExceedsCap(t *testing.T) {
	for _, base := range []float64{0, 3.3, 7.99, 8, 9.9, 10, 14} {
		for _, ctx := range allContexts() {
			s := Score(Finding{BaseScore: base}, ctx)
			assert.LessOrEqual(t, s.FinalScore, MaxScore, "base=%v ctx=%+v", base, ctx)
			assert.GreaterOrEqual(t, s.FinalScore, 0.0)
		}
	}
}

// Only the upper bound is enforced; a negative source score passes through.
func TestScoreCapsOnlyFromAbove(t *testing.T) {
	s := Score(Finding{BaseScore: -4}, Context{InternetExposed: true})
	assert.Equal(t, -3.5, s.FinalScore)
	assert.Equal(t, RiskLow, s.RiskLevel)

	s = Score(Finding{BaseScore: 12}, Context{})
	assert.Equal(t, 10.0, s.FinalScore)
}

// Raising any single input never lowers the score unless the raise is what
// pushed the finding over the dampening threshold.
func TestScoreMonotonicity(t *testing.T) {
	raises := []struct {
		name string
		up   func(Context) (Context, bool)
	}{
		{"org_type", func(c Context) (Context, bool) {
			switch c.OrgType {
			case "retail":
				c.OrgType = "education"
			case "education":
				c.OrgType = "finance"
			default:
				return c, false
			}
			return c, true
		}},
		{"data_criticality", func(c Context) (Context, bool) {
			switch c.DataCriticality {
			case CriticalityNone:
				c.DataCriticality = CriticalityMedium
			case CriticalityMedium:
				c.DataCriticality = CriticalityHigh
			default:
				return c, false
			}
			return c, true
		}},
		{"internet_exposed", func(c Context) (Context, bool) {
			if c.InternetExposed {
				return c, false
			}
			c.InternetExposed = true
			return c, true
		}},
		{"patch_delay", func(c Context) (Context, bool) {
			if c.DaysSincePatch > 90 {
				return c, false
			}
			c.DaysSincePatch = 120
			return c, true
		}},
	}

	for _, base := range []float64{0, 2.5, 6.1, 7.4, 7.9, 8.0, 9.5} {
		for _, ctx := range allContexts() {
			for _, r := range raises {
				higher, ok := r.up(ctx)
				if !ok {
					continue
				}
				lo := Score(Finding{BaseScore: base}, ctx)
				hi := Score(Finding{BaseScore: base}, higher)
				if hi.FinalScore >= lo.FinalScore {
					continue
				}
				_, loDamp := lo.Modifiers.Get(ModDampening)
				_, hiDamp := hi.Modifiers.Get(ModDampening)
				assert.True(t, hiDamp && !loDamp,
					"raising %s lowered score without dampening: base=%v ctx=%+v %v -> %v",
					r.name, base, ctx, lo.FinalScore, hi.FinalScore)
			}
		}
	}
}

func TestRiskLevelBandEdges(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{10, RiskCritical},
		{8.0, RiskCritical},
		{7.99, RiskHigh},
		{6.0, RiskHigh},
		{5.99, RiskMedium},
		{3.0, RiskMedium},
		{2.99, RiskLow},
		{0, RiskLow},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.score), func(t *testing.T) {
			assert.Equal(t, tt.want, RiskLevelFor(tt.score))
		})
	}
}

func TestScoreAllPreservesOrder(t *testing.T) {
	findings := []Finding{{VulnID: "a", BaseScore: 1}, {VulnID: "b", BaseScore: 9}, {VulnID: "c", BaseScore: 5}}

	scored := ScoreAll(findings, Context{})

	require.Len(t, scored, 3)
	assert.Equal(t, "a", scored[0].VulnID)
	assert.Equal(t, "b", scored[1].VulnID)
	assert.Equal(t, "c", scored[2].VulnID)
	assert.Empty(t, ScoreAll(nil, Context{}))
}

func allContexts() []Context {
	var out []Context
	for _, org := range []string{"retail", "education", "finance"} {
		for _, crit := range []Criticality{CriticalityNone, CriticalityMedium, CriticalityHigh} {
			for _, exposed := range []bool{false, true} {
				for _, days := range []int{0, 120} {
					out = append(out, Context{
						OrgType:         org,
						DataCriticality: crit,
						InternetExposed: exposed,
						DaysSincePatch:  days,
					})
				}
			}
		}
	}
	return out
}
