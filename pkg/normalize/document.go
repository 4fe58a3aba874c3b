// Package normalize turns vulnerability scan exports of unknown schema into
// engine.Finding records.
//
// Two document formats are understood, XML and JSON. Each document is first
// resolved into one input shape (a named findings container, a bare list of
// records, or records scattered through an XML tree); fields are then pulled
// from every record through ordered fallback chains. A malformed document is
// reported and skipped as a whole; a malformed record is reported and skipped
// alone.
package normalize

import (
	"path/filepath"
	"strings"

	"github.com/user/riskscope/pkg/engine"
)

// Format is the syntax a document claims to be in.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML, true
	case ".json":
		return FormatJSON, true
	default:
		return "", false
	}
}

// Document is one raw scan export, already read into memory.
type Document struct {
	Name    string
	Format  Format
	Content []byte
}

// Source is the provenance recorded on every finding from this document.
func (d Document) Source() string {
	if d.Name == "" {
		return engine.DefaultSource
	}
	return filepath.Base(d.Name)
}
