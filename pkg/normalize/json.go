package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func parseJSONTree(content []byte) (any, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyDocument
	}

	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return root, nil
}

// jsonRecord reads scalar fields from a decoded object. Booleans, nulls,
// nested objects and arrays never satisfy a field lookup.
type jsonRecord struct {
	obj map[string]any
	err error
}

func newJSONRecord(v any) jsonRecord {
	obj, ok := v.(map[string]any)
	if !ok {
		return jsonRecord{err: fmt.Errorf("expected an object, got %s", jsonKind(v))}
	}
	return jsonRecord{obj: obj}
}

func (r jsonRecord) field(name string) (string, bool) {
	s, ok := scalarString(r.obj[name])
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func (r jsonRecord) check() error {
	return r.err
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
