package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTraceProjectsRankedFindings(t *testing.T) {
	findings := []Finding{
		{VulnID: "VULN-002", Title: "Weak TLS", Severity: "High", BaseScore: 7.5, AffectedAsset: "web-01", Evidence: "TLS 1.0", SourceFile: "scan.json"},
		{VulnID: "VULN-001", Title: "Unencrypted DB", Severity: "Critical", BaseScore: 9.8, AffectedAsset: "db-01", Evidence: "Port 3306 open without TLS", SourceFile: "scan.xml"},
	}

	traces := BuildTrace(Rank(ScoreAll(findings, fullContext)))

	require.Len(t, traces, 2)
	top := traces[0]
	assert.Equal(t, "VULN-001", top.VulnID)
	assert.Equal(t, "Unencrypted DB", top.Title)
	assert.Equal(t, 9.8, top.Trace.BaseScore)
	assert.Equal(t, 10.0, top.Trace.FinalScore)
	assert.Equal(t, RiskCritical, top.Trace.RiskLevel)
	assert.Equal(t, 1, top.Trace.PriorityRank)
	assert.Len(t, top.Trace.ModifiersApplied, 4)
	assert.Equal(t, "Port 3306 open without TLS", top.Evidence)
	assert.Equal(t, "db-01", top.AffectedAsset)
	assert.Equal(t, "scan.xml", top.SourceFile)

	second := traces[1]
	assert.Equal(t, "VULN-002", second.VulnID)
	assert.Equal(t, 9.6, second.Trace.FinalScore)
	assert.Equal(t, 2, second.Trace.PriorityRank)
}

func TestBuildTraceJSONShape(t *testing.T) {
	traces := BuildTrace(Rank(ScoreAll([]Finding{{VulnID: "VULN-001", BaseScore: 9.8}}, fullContext)))

	data, err := json.Marshal(traces[0])
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"vuln_id": "VULN-001",
		"title": "",
		"trace": {
			"base_score": 9.8,
			"modifiers_applied": {
				"org_type": "+1.0",
				"data_criticality": "+0.8",
				"internet_exposed": "+0.5",
				"patch_delay": "+0.3"
			},
			"final_score": 10,
			"risk_level": "Critical",
			"priority_rank": 1
		},
		"evidence": "",
		"affected_asset": "",
		"source_file": ""
	}`, string(data))
}

func TestBuildTraceEmpty(t *testing.T) {
	assert.Empty(t, BuildTrace(nil))
}
