// Package pipeline runs the stages end to end: normalize, filter, score, rank,
// trace and, optionally, explain.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/user/riskscope/pkg/engine"
	"github.com/user/riskscope/pkg/explain"
	"github.com/user/riskscope/pkg/normalize"
	"github.com/user/riskscope/pkg/store"
	"github.com/user/riskscope/pkg/telemetry"
)

// Options configures a run. Only Context is required.
type Options struct {
	Context engine.Context
	// Organization, when set, names who the findings belong to. Otherwise it
	// is taken from the first finding.
	Organization engine.Organization
	// Explainer, when set, narrates every trace record.
	Explainer *explain.Explainer
	Metrics   *telemetry.Metrics
	// RunID is generated when empty.
	RunID string
}

// Result carries every intermediate stage so commands can print or persist
// whichever they need.
type Result struct {
	RunID        string
	Organization engine.Organization
	// Context is the effective scoring context after defaults were applied.
	Context engine.Context

	Documents      int
	DocumentErrors []error
	Skipped        []normalize.RecordSkipped

	Normalized   int
	Filtered     []engine.Finding
	Dropped      int
	Ranked       []engine.RankedFinding
	Traces       []engine.TraceRecord
	Explanations []explain.Explanation
}

// Run normalizes docs and scores what survives the severity filter.
func Run(ctx context.Context, docs []normalize.Document, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	norm := normalize.Normalize(docs)
	if m := opts.Metrics; m != nil {
		m.DocumentsParsed.Add(float64(norm.Documents))
		m.DocumentsFailed.Add(float64(len(norm.Errors)))
		m.RecordsSkipped.Add(float64(len(norm.Skipped)))
	}

	res, err := Score(ctx, norm.Findings, opts)
	if err != nil {
		return nil, err
	}
	res.Documents = norm.Documents
	res.DocumentErrors = norm.Errors
	res.Skipped = norm.Skipped
	return res, nil
}

// Score runs every stage after normalization. Filtering again is a no-op for
// findings that were already filtered.
func Score(ctx context.Context, findings []engine.Finding, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	org := opts.Organization
	if org == (engine.Organization{}) {
		org = engine.NewFindingSet(findings).Organization
	}
	res := &Result{
		RunID:        opts.RunID,
		Organization: org,
		Normalized:   len(findings),
	}
	if res.RunID == "" {
		res.RunID = store.NewRunID()
	}
	log := slog.With("run_id", res.RunID)

	res.Context = EffectiveContext(opts.Context, res.Organization)
	res.Filtered, res.Dropped = engine.FilterSeverity(findings)

	scored := engine.ScoreAll(res.Filtered, res.Context)
	res.Ranked = engine.Rank(scored)
	res.Traces = engine.BuildTrace(res.Ranked)

	if m := opts.Metrics; m != nil {
		m.FindingsNormalized.Add(float64(len(findings)))
		m.FindingsKept.Add(float64(len(res.Filtered)))
		for _, s := range scored {
			m.FindingsScored.WithLabelValues(string(s.RiskLevel)).Inc()
			if _, ok := s.Modifiers.Get(engine.ModDampening); ok {
				m.DampeningApplied.Inc()
			}
		}
	}

	log.Info("findings scored",
		"organization", res.Organization.Name,
		"normalized", len(findings),
		"kept", len(res.Filtered),
		"dropped", res.Dropped)

	if opts.Explainer != nil && len(res.Traces) > 0 {
		res.Explanations = opts.Explainer.ExplainAll(ctx, res.Traces)
		degraded := 0
		for _, e := range res.Explanations {
			if e.Degraded {
				degraded++
			}
		}
		if opts.Metrics != nil {
			opts.Metrics.ExplanationErrors.Add(float64(degraded))
		}
		if degraded > 0 {
			log.Warn("some explanations fell back to manual review", "count", degraded)
		}
	}
	return res, nil
}

// EffectiveContext fills an empty org_type from the scanned organization.
func EffectiveContext(c engine.Context, org engine.Organization) engine.Context {
	if c.OrgType == "" && org.Type != engine.DefaultOrgField {
		c.OrgType = org.Type
	}
	return c
}

// FindingSet returns the filtered findings in interchange form.
func (r *Result) FindingSet() engine.FindingSet {
	set := engine.NewFindingSet(r.Filtered)
	if len(r.Filtered) == 0 {
		set.Organization = r.Organization
	}
	return set
}

// Record converts the result into a history record.
func (r *Result) Record(inputs []string) *store.Run {
	return &store.Run{
		ID:           r.RunID,
		Organization: r.Organization,
		Context:      r.Context,
		Inputs:       inputs,
		Traces:       r.Traces,
		Explanations: r.Explanations,
	}
}
