// Package explain narrates trace records for human readers. It never changes
// scores, risk levels or ranks; it only describes them.
package explain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/sync/errgroup"

	"github.com/user/riskscope/pkg/engine"
)

// Generator is the part of an LLM provider the explainer needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Explanation is the narrative for one trace record.
type Explanation struct {
	VulnID       string `json:"vuln_id"`
	Title        string `json:"title"`
	PriorityRank int    `json:"priority_rank"`
	Explanation  string `json:"explanation"`
	// Degraded is set when the model failed and the fallback text was used.
	Degraded bool `json:"degraded,omitempty"`
}

const DefaultConcurrency = 4

var promptTmpl = template.Must(template.New("prompt").Funcs(sprig.TxtFuncMap()).Parse(
	`Explain the vulnerability below in clear, professional language.
DO NOT change scores or priorities.
DO NOT invent new findings.
ONLY explain why this vulnerability is high priority based on the evidence provided.

Vulnerability ID: {{ .VulnID }}
Title: {{ .Title }}
Affected Asset: {{ .AffectedAsset }}

Base Score: {{ .Trace.BaseScore }}
Final Score: {{ .Trace.FinalScore }}
Risk Level: {{ .Trace.RiskLevel }}
Priority Rank: {{ .Trace.PriorityRank }}

Context Modifiers Applied:
{{ .Trace.ModifiersApplied | toPrettyJson }}

Evidence:
{{ .Evidence | trim }}

Explain in 3-4 sentences:
1. Why this vulnerability is risky for this organization
2. Why the priority rank reflects urgency
3. What makes this particularly concerning given the context
`))

// BuildPrompt renders the constrained auditor prompt for one record.
func BuildPrompt(tr engine.TraceRecord) string {
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, tr); err != nil {
		// only reachable if the ledger fails to marshal
		return fmt.Sprintf("Explain vulnerability %s (%s).", tr.VulnID, tr.Title)
	}
	return buf.String()
}

// FallbackText is the narrative used when the model call fails.
func FallbackText(err error) string {
	return fmt.Sprintf("[LLM Error: %v] Manual review required.", err)
}

// Explainer asks a Generator for one narrative per record. With a nil
// Generator it falls back to Static.
type Explainer struct {
	Generator   Generator
	Concurrency int
}

func New(g Generator, concurrency int) *Explainer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Explainer{Generator: g, Concurrency: concurrency}
}

// ExplainAll returns one Explanation per record, in the records' order.
// A failing model call degrades that single entry and never the batch.
func (e *Explainer) ExplainAll(ctx context.Context, traces []engine.TraceRecord) []Explanation {
	out := make([]Explanation, len(traces))
	if e.Generator == nil {
		for i, tr := range traces {
			out[i] = Static(tr)
		}
		return out
	}

	limit := e.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, tr := range traces {
		g.Go(func() error {
			out[i] = e.explainOne(gctx, tr)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Explainer) explainOne(ctx context.Context, tr engine.TraceRecord) Explanation {
	exp := Explanation{
		VulnID:       tr.VulnID,
		Title:        tr.Title,
		PriorityRank: tr.Trace.PriorityRank,
	}

	text, err := e.Generator.Generate(ctx, BuildPrompt(tr))
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("empty response")
	}
	if err != nil {
		slog.Warn("explanation failed", "vuln_id", tr.VulnID, "error", err)
		exp.Explanation = FallbackText(err)
		exp.Degraded = true
		return exp
	}
	exp.Explanation = strings.TrimSpace(text)
	return exp
}

// Static builds a deterministic narrative from the trace alone.
func Static(tr engine.TraceRecord) Explanation {
	t := tr.Trace
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s on %s has a base score of %.1f.", tr.Title, tr.AffectedAsset, t.BaseScore)

	if len(t.ModifiersApplied) == 0 {
		sb.WriteString(" No context modifiers applied.")
	} else {
		parts := make([]string, len(t.ModifiersApplied))
		for i, m := range t.ModifiersApplied {
			parts[i] = fmt.Sprintf("%s %s", strings.ReplaceAll(m.Name, "_", " "), m.Signed())
		}
		fmt.Fprintf(&sb, " Context modifiers applied: %s.", strings.Join(parts, ", "))
	}

	fmt.Fprintf(&sb, " The final score is %.2f (%s), ranking it priority %d.", t.FinalScore, t.RiskLevel, t.PriorityRank)
	if ev := strings.TrimSpace(tr.Evidence); ev != "" && ev != engine.DefaultEvidence {
		fmt.Fprintf(&sb, " Evidence: %s", ev)
	}

	return Explanation{
		VulnID:       tr.VulnID,
		Title:        tr.Title,
		PriorityRank: t.PriorityRank,
		Explanation:  sb.String(),
	}
}
