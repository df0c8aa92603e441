package datasync

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// ErrImportFormat is returned when an import file is not an array of objects.
var ErrImportFormat = errors.New("import file must contain a JSON array of objects")

// DecodeImport parses the records of an import file. A single object is
// accepted as a one-record import.
func DecodeImport(data []byte) ([]map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrImportFormat
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	switch data[0] {
	case '[':
		var raw []any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding import: %w", err)
		}
		out := make([]map[string]any, 0, len(raw))
		for i, item := range raw {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %T", ErrImportFormat, i, item)
			}
			out = append(out, normalizeNumbers(obj))
		}
		return out, nil
	case '{':
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("decoding import: %w", err)
		}
		return []map[string]any{normalizeNumbers(obj)}, nil
	default:
		return nil, ErrImportFormat
	}
}

// ReadImportFile reads and decodes one import file.
func ReadImportFile(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading import file: %w", err)
	}
	recs, err := DecodeImport(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// normalizeNumbers converts json.Number to int64 when integral, else float64.
func normalizeNumbers(obj map[string]any) map[string]any {
	for k, v := range obj {
		obj[k] = normalizeValue(v)
	}
	return obj
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		for i := range val {
			val[i] = normalizeValue(val[i])
		}
		return val
	case map[string]any:
		return normalizeNumbers(val)
	default:
		return v
	}
}
