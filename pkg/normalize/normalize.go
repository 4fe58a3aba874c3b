package normalize

import (
	"fmt"
	"log/slog"

	"github.com/user/riskscope/pkg/engine"
)

// Result is the outcome of normalizing a batch of documents.
type Result struct {
	Findings []engine.Finding
	// Documents is how many documents parsed successfully.
	Documents int
	// Errors holds one *DocumentFormatError per document that failed to parse.
	Errors []error
	// Skipped holds records dropped from otherwise valid documents.
	Skipped []RecordSkipped
}

// Organization returns the organization of the first finding, or Unknown.
func (r Result) Organization() engine.Organization {
	if len(r.Findings) == 0 {
		return engine.UnknownOrganization()
	}
	return r.Findings[0].Organization
}

// Normalize parses every document in order and concatenates their findings.
// A document that fails to parse is reported in Result.Errors and contributes
// nothing; the rest of the batch is unaffected.
func Normalize(docs []Document) Result {
	var res Result
	for _, doc := range docs {
		findings, skipped, err := NormalizeDocument(doc)
		res.Skipped = append(res.Skipped, skipped...)
		if err != nil {
			slog.Warn("document skipped", "source", doc.Source(), "error", err)
			res.Errors = append(res.Errors, err)
			continue
		}
		res.Documents++
		res.Findings = append(res.Findings, findings...)
	}
	return res
}

// NormalizeDocument parses one document. The error, when non-nil, is a
// *DocumentFormatError and the findings are nil. Skipped records are returned
// alongside the findings that were extracted.
func NormalizeDocument(doc Document) ([]engine.Finding, []RecordSkipped, error) {
	source := doc.Source()

	s, err := resolveShape(doc)
	if err != nil {
		return nil, nil, &DocumentFormatError{Source: source, Format: doc.Format, Err: err}
	}

	findings := make([]engine.Finding, 0, len(s.records))
	var skipped []RecordSkipped
	for i, rec := range s.records {
		f, err := extractFinding(rec, source, s.org)
		if err != nil {
			skip := RecordSkipped{Source: source, Index: i, Reason: err.Error()}
			slog.Warn("skipped malformed vulnerability entry", "source", source, "index", i, "reason", skip.Reason)
			skipped = append(skipped, skip)
			continue
		}
		findings = append(findings, f)
	}

	slog.Debug("parsed document",
		"source", source,
		"format", doc.Format,
		"shape", s.kind.String(),
		"findings", len(findings),
		"skipped", len(skipped))
	return findings, skipped, nil
}

func resolveShape(doc Document) (shape, error) {
	switch doc.Format {
	case FormatJSON:
		root, err := parseJSONTree(doc.Content)
		if err != nil {
			return shape{}, err
		}
		return resolveJSONShape(root)

	case FormatXML:
		root, err := parseXMLTree(doc.Content)
		if err != nil {
			return shape{}, err
		}
		return resolveXMLShape(root), nil

	default:
		return shape{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, doc.Format)
	}
}
