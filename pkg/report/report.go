// Package report renders the audit report for a scored run in Markdown, HTML
// and PDF, next to the machine-readable trace.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/user/riskscope/pkg/engine"
	"github.com/user/riskscope/pkg/explain"
)

// Format is an output kind accepted by Generate.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
	FormatJSON     Format = "json"
)

const (
	BaseName          = "security_audit_report"
	TraceFile         = "trace.json"
	ExplanationsFile  = "explanations.json"
	manualReviewLabel = "No analyst explanation was generated. Manual review required."
)

var ErrExplanationMismatch = errors.New("explanations do not match trace records")

// ParseFormats accepts names like "md", "markdown", "HTML", "pdf", "json".
func ParseFormats(names []string) ([]Format, error) {
	seen := map[Format]bool{}
	var out []Format
	for _, n := range names {
		var f Format
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "md", "markdown":
			f = FormatMarkdown
		case "html":
			f = FormatHTML
		case "pdf":
			f = FormatPDF
		case "json":
			f = FormatJSON
		case "":
			continue
		default:
			return nil, fmt.Errorf("unknown report format %q", n)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Input is everything a report is built from.
type Input struct {
	RunID        string
	Organization engine.Organization
	Context      engine.Context
	Traces       []engine.TraceRecord
	// Explanations may be empty; otherwise it must line up with Traces.
	Explanations []explain.Explanation
	GeneratedAt  time.Time
}

type item struct {
	engine.TraceRecord
	Explanation string
}

type levelCount struct {
	Level engine.RiskLevel
	Count int
}

type view struct {
	RunID        string
	Organization engine.Organization
	Context      engine.Context
	Date         string
	Items        []item
	Summary      []levelCount
	Assets       []engine.AssetExposure
}

// Validate checks that explanations, when present, pair with traces by
// position and vuln_id.
func (in Input) Validate() error {
	if len(in.Explanations) == 0 {
		return nil
	}
	if len(in.Explanations) != len(in.Traces) {
		return fmt.Errorf("%w: %d explanations for %d traces", ErrExplanationMismatch, len(in.Explanations), len(in.Traces))
	}
	for i, exp := range in.Explanations {
		if exp.VulnID != in.Traces[i].VulnID {
			return fmt.Errorf("%w: position %d has %s, trace has %s", ErrExplanationMismatch, i, exp.VulnID, in.Traces[i].VulnID)
		}
	}
	return nil
}

func (in Input) view() view {
	generated := in.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	items := make([]item, len(in.Traces))
	counts := map[engine.RiskLevel]int{}
	for i, tr := range in.Traces {
		text := manualReviewLabel
		if i < len(in.Explanations) {
			text = in.Explanations[i].Explanation
		}
		items[i] = item{TraceRecord: tr, Explanation: text}
		counts[tr.Trace.RiskLevel]++
	}

	var summary []levelCount
	for _, lvl := range []engine.RiskLevel{engine.RiskCritical, engine.RiskHigh, engine.RiskMedium, engine.RiskLow} {
		if counts[lvl] > 0 {
			summary = append(summary, levelCount{Level: lvl, Count: counts[lvl]})
		}
	}

	org := in.Organization
	if org.Name == "" {
		org.Name = engine.DefaultOrgField
	}
	if org.Type == "" {
		org.Type = engine.DefaultOrgField
	}

	return view{
		RunID:        in.RunID,
		Organization: org,
		Context:      in.Context,
		Date:         generated.Format("2006-01-02"),
		Items:        items,
		Summary:      summary,
		Assets:       engine.GroupByAsset(in.Traces),
	}
}

// Generate writes the requested formats into dir and always writes the trace
// file. It returns the paths written, trace file first.
func Generate(dir string, in Input, formats []Format) ([]string, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var written []string
	tracePath := filepath.Join(dir, TraceFile)
	if err := writeJSON(tracePath, nonNilTraces(in.Traces)); err != nil {
		return nil, err
	}
	written = append(written, tracePath)

	var md []byte
	markdown := func() ([]byte, error) {
		if md != nil {
			return md, nil
		}
		var err error
		md, err = Markdown(in)
		return md, err
	}

	for _, f := range formats {
		path := filepath.Join(dir, BaseName+"."+string(f))
		switch f {
		case FormatMarkdown:
			data, err := markdown()
			if err != nil {
				return written, err
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				return written, err
			}

		case FormatHTML:
			data, err := markdown()
			if err != nil {
				return written, err
			}
			page, err := HTML(data)
			if err != nil {
				return written, err
			}
			if err := os.WriteFile(path, page, 0644); err != nil {
				return written, err
			}

		case FormatPDF:
			if err := WritePDF(path, in); err != nil {
				return written, fmt.Errorf("pdf report: %w", err)
			}

		case FormatJSON:
			if len(in.Explanations) == 0 {
				continue
			}
			path = filepath.Join(dir, ExplanationsFile)
			if err := writeJSON(path, in.Explanations); err != nil {
				return written, err
			}

		default:
			return written, fmt.Errorf("unknown report format %q", f)
		}
		written = append(written, path)
		slog.Debug("report written", "format", f, "path", path)
	}
	return written, nil
}

func nonNilTraces(t []engine.TraceRecord) []engine.TraceRecord {
	if t == nil {
		return []engine.TraceRecord{}
	}
	return t
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
