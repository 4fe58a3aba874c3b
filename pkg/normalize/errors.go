package normalize

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for documents that are neither XML nor JSON.
	ErrUnsupportedFormat = errors.New("normalize: unsupported document format")

	// ErrEmptyDocument is returned when a document has no content at all.
	ErrEmptyDocument = errors.New("normalize: empty document")

	// ErrUnexpectedRoot is returned for JSON documents whose root is a scalar.
	ErrUnexpectedRoot = errors.New("normalize: root must be an object or an array")
)

// DocumentFormatError reports a document that could not be parsed as its
// claimed format. Its findings are absent from the result; other documents
// are unaffected.
type DocumentFormatError struct {
	Source string
	Format Format
	Err    error
}

func (e *DocumentFormatError) Error() string {
	return fmt.Sprintf("%s parsing error in %s: %v", strings.ToUpper(string(e.Format)), e.Source, e.Err)
}

func (e *DocumentFormatError) Unwrap() error {
	return e.Err
}

// RecordSkipped reports a single finding record that could not be read.
// Sibling records and other documents are still processed.
type RecordSkipped struct {
	Source string
	Index  int
	Reason string
}

func (r RecordSkipped) Error() string {
	return fmt.Sprintf("skipped malformed record %d in %s: %s", r.Index, r.Source, r.Reason)
}
