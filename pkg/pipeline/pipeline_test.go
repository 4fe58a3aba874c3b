package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/riskscope/pkg/engine"
	"github.com/user/riskscope/pkg/explain"
	"github.com/user/riskscope/pkg/normalize"
	"github.com/user/riskscope/pkg/telemetry"
)

var financeContext = engine.Context{
	OrgType:         "finance",
	DataCriticality: engine.CriticalityHigh,
	InternetExposed: true,
	DaysSincePatch:  120,
}

const bankScan = `{
  "organization": {"name": "Acme Bank", "type": "Finance"},
  "vulnerabilities": [
    {"id": "V1", "title": "Unencrypted Database Connection", "severity": "Critical", "cvss_score": 9.8, "host": "db-01", "evidence": "Port 3306 open without TLS"},
    {"id": "V2", "title": "Outdated TLS", "severity": "High", "cvss_score": "7.5", "host": "web-01"},
    {"id": "V3", "title": "Verbose banner", "severity": "Medium", "cvss_score": 5.0, "host": "web-01"}
  ]
}`

const hostScan = `<scan>
  <vulnerabilities>
    <vulnerability>
      <id>X1</id>
      <name>SMB signing disabled</name>
      <risk>high</risk>
      <score>6.0</score>
      <target>fs-01</target>
    </vulnerability>
    <vulnerability severity="Low" id="X2"/>
  </vulnerabilities>
</scan>`

func sampleDocs() []normalize.Document {
	return []normalize.Document{
		{Name: "bank.json", Format: normalize.FormatJSON, Content: []byte(bankScan)},
		{Name: "broken.json", Format: normalize.FormatJSON, Content: []byte(`{"vulnerabilities": [`)},
		{Name: "hosts.xml", Format: normalize.FormatXML, Content: []byte(hostScan)},
	}
}

func TestRunEndToEnd(t *testing.T) {
	m := telemetry.NewMetrics()
	res, err := Run(context.Background(), sampleDocs(), Options{Context: financeContext, Metrics: m, RunID: "run-1"})
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, engine.Organization{Name: "Acme Bank", Type: "Finance"}, res.Organization)
	assert.Equal(t, 2, res.Documents)
	require.Len(t, res.DocumentErrors, 1)
	var docErr *normalize.DocumentFormatError
	require.ErrorAs(t, res.DocumentErrors[0], &docErr)
	assert.Equal(t, "broken.json", docErr.Source)

	assert.Equal(t, 5, res.Normalized)
	assert.Equal(t, 2, res.Dropped)
	require.Len(t, res.Traces, 3)

	ids := make([]string, len(res.Traces))
	for i, tr := range res.Traces {
		ids[i] = tr.VulnID
		assert.Equal(t, i+1, tr.Trace.PriorityRank)
	}
	assert.Equal(t, []string{"V1", "V2", "X1"}, ids)

	v1 := res.Traces[0].Trace
	assert.Equal(t, 10.0, v1.FinalScore)
	assert.Equal(t, engine.RiskCritical, v1.RiskLevel)
	assert.Equal(t, []string{"org_type", "data_criticality", "internet_exposed", "patch_delay"}, v1.ModifiersApplied.Names())

	v2 := res.Traces[1].Trace
	assert.InDelta(t, 9.6, v2.FinalScore, 1e-9)
	d, ok := v2.ModifiersApplied.Get(engine.ModDampening)
	require.True(t, ok)
	assert.Equal(t, "-0.5", d)

	x1 := res.Traces[2]
	assert.InDelta(t, 8.6, x1.Trace.FinalScore, 1e-9)
	assert.Equal(t, "hosts.xml", x1.SourceFile)
	assert.Equal(t, "fs-01", x1.AffectedAsset)
	assert.Equal(t, engine.DefaultEvidence, x1.Evidence)

	assert.Nil(t, res.Explanations)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocumentsParsed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsFailed))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.FindingsNormalized))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FindingsKept))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FindingsScored.WithLabelValues("Critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DampeningApplied))
}

func TestRunIsDeterministic(t *testing.T) {
	first, err := Run(context.Background(), sampleDocs(), Options{Context: financeContext, RunID: "same"})
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Run(context.Background(), sampleDocs(), Options{Context: financeContext, RunID: "same"})
		require.NoError(t, err)
		assert.Equal(t, first.Traces, again.Traces)
	}
}

func TestRunGeneratesRunID(t *testing.T) {
	res, err := Run(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Len(t, res.RunID, 36)
	assert.Empty(t, res.Traces)
	assert.Equal(t, engine.UnknownOrganization(), res.Organization)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, sampleDocs(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEffectiveContextTakesScannedOrgType(t *testing.T) {
	c := EffectiveContext(engine.Context{DataCriticality: engine.CriticalityHigh}, engine.Organization{Name: "Acme", Type: "Healthcare"})
	assert.Equal(t, "Healthcare", c.OrgType)

	c = EffectiveContext(engine.Context{OrgType: "education"}, engine.Organization{Type: "Healthcare"})
	assert.Equal(t, "education", c.OrgType)

	c = EffectiveContext(engine.Context{}, engine.UnknownOrganization())
	assert.Empty(t, c.OrgType)
}

type scriptedGenerator struct{}

func (scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "Vulnerability ID: V2\n") {
		return "", errors.New("model offline")
	}
	return "explained", nil
}

func TestRunWithExplainer(t *testing.T) {
	m := telemetry.NewMetrics()
	res, err := Run(context.Background(), sampleDocs(), Options{
		Context:   financeContext,
		Explainer: explain.New(scriptedGenerator{}, 2),
		Metrics:   m,
	})
	require.NoError(t, err)

	require.Len(t, res.Explanations, 3)
	for i, e := range res.Explanations {
		assert.Equal(t, res.Traces[i].VulnID, e.VulnID)
	}
	assert.Equal(t, "explained", res.Explanations[0].Explanation)
	assert.Equal(t, "[LLM Error: model offline] Manual review required.", res.Explanations[1].Explanation)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExplanationErrors))

	rec := res.Record([]string{"scan.zip"})
	assert.Equal(t, res.RunID, rec.ID)
	assert.Equal(t, res.Traces, rec.Traces)
	assert.Equal(t, []string{"scan.zip"}, rec.Inputs)
}

func TestScoreFromFindingSet(t *testing.T) {
	norm := normalize.Normalize(sampleDocs())
	viaRun, err := Run(context.Background(), sampleDocs(), Options{Context: financeContext, RunID: "r"})
	require.NoError(t, err)

	set := viaRun.FindingSet()
	assert.Len(t, set.Findings, 3)
	assert.Equal(t, "Acme Bank", set.Organization.Name)

	viaScore, err := Score(context.Background(), set.Findings, Options{Context: financeContext, RunID: "r"})
	require.NoError(t, err)
	assert.Equal(t, viaRun.Traces, viaScore.Traces)
	assert.Zero(t, viaScore.Dropped)
	assert.Len(t, norm.Findings, 5)
}

// Interchange files written by other tools carry the organization once, at
// the top, and nothing on each finding.
const orgOnTopSet = `{
  "organization": {"name": "Acme Bank", "type": "Finance"},
  "findings": [
    {"vuln_id": "V2", "title": "Outdated TLS", "severity": "High", "base_score": 7.5, "affected_asset": "web-01"}
  ]
}`

func TestScoreUsesSetOrganization(t *testing.T) {
	set, err := engine.DecodeFindingSet(strings.NewReader(orgOnTopSet))
	require.NoError(t, err)

	scanned := engine.Context{DataCriticality: engine.CriticalityHigh, InternetExposed: true, DaysSincePatch: 120}
	res, err := Score(context.Background(), set.Findings, Options{Context: scanned, Organization: set.Organization})
	require.NoError(t, err)

	assert.Equal(t, engine.Organization{Name: "Acme Bank", Type: "Finance"}, res.Organization)
	assert.Equal(t, "Finance", res.Context.OrgType)
	require.Len(t, res.Traces, 1)
	tr := res.Traces[0].Trace
	assert.Equal(t, 9.6, tr.FinalScore)
	delta, ok := tr.ModifiersApplied.Get(engine.ModOrgType)
	require.True(t, ok)
	assert.Equal(t, "+1.0", delta)
	_, ok = tr.ModifiersApplied.Get(engine.ModDampening)
	assert.True(t, ok)
}

func TestScoreExplicitOrganizationWins(t *testing.T) {
	findings := []engine.Finding{{VulnID: "V1", Severity: "High", BaseScore: 7, Organization: engine.Organization{Name: "From Finding", Type: "Education"}}}
	res, err := Score(context.Background(), findings, Options{Organization: engine.Organization{Name: "Top", Type: "Healthcare"}})
	require.NoError(t, err)
	assert.Equal(t, "Top", res.Organization.Name)
	assert.Equal(t, "Healthcare", res.Context.OrgType)

	res, err = Score(context.Background(), findings, Options{})
	require.NoError(t, err)
	assert.Equal(t, "From Finding", res.Organization.Name)
}
