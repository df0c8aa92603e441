package model

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrInvalidValue is returned when a string cannot be converted to a field's type.
var ErrInvalidValue = errors.New("invalid value")

// ParseValue converts user input into a typed value for the field.
// An empty string on a non-required field yields nil.
func ParseValue(s string, f Field) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if f.IsRequired {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidValue, f.Name)
		}
		return nil, nil
	}
	if f.IsList {
		return parseList(s, f)
	}
	return parseScalar(s, f)
}

func parseList(s string, f Field) (any, error) {
	if f.IsRelation() {
		var ids []any
		for _, part := range strings.Split(strings.Trim(s, "[]"), ",") {
			if p := strings.Trim(strings.TrimSpace(part), `"`); p != "" {
				ids = append(ids, p)
			}
		}
		return ids, nil
	}
	var raw []any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("%w: %s expects a JSON list: %v", ErrInvalidValue, f.Name, err)
	}
	out := make([]any, 0, len(raw))
	single := f
	single.IsList = false
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			str = FormatValue(item, single)
		}
		v, err := parseScalar(str, single)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseScalar(s string, f Field) (any, error) {
	switch f.TypeIdentifier {
	case TypeInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects an integer", ErrInvalidValue, f.Name)
		}
		return n, nil
	case TypeFloat:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects a number", ErrInvalidValue, f.Name)
		}
		return n, nil
	case TypeBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects true or false", ErrInvalidValue, f.Name)
		}
		return b, nil
	case TypeDateTime:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC().Format(time.RFC3339Nano), nil
			}
		}
		return nil, fmt.Errorf("%w: %s expects an ISO 8601 date", ErrInvalidValue, f.Name)
	case TypeJSON:
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("%w: %s expects JSON: %v", ErrInvalidValue, f.Name, err)
		}
		return v, nil
	case TypeEnum:
		if len(f.EnumValues) > 0 && !slices.Contains(f.EnumValues, s) {
			return nil, fmt.Errorf("%w: %s must be one of %s", ErrInvalidValue, f.Name, strings.Join(f.EnumValues, ", "))
		}
		return s, nil
	default:
		return s, nil
	}
}

// ParseFilterValue converts filter input. String, relation and list filters
// match on the raw text; other types are parsed so equality compares typed
// values. Empty input clears the filter and yields nil.
func ParseFilterValue(s string, f Field) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if f.TypeIdentifier == TypeString || f.IsRelation() || f.IsList {
		return s, nil
	}
	return parseScalar(s, f)
}

// FormatValue renders a value for display and editing.
func FormatValue(v any, f Field) string {
	if v == nil {
		return ""
	}
	if f.IsRelation() {
		return formatRelation(v)
	}
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		if f.TypeIdentifier == TypeInt || (val == math.Trunc(val) && math.Abs(val) < 1e15) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []any, map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

func formatRelation(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if id, ok := val["id"].(string); ok {
			return id
		}
	case []any:
		ids := make([]string, 0, len(val))
		for _, item := range val {
			ids = append(ids, formatRelation(item))
		}
		return "[" + strings.Join(ids, ", ") + "]"
	}
	return fmt.Sprint(v)
}

// RelationIDs extracts the referenced ids of a relation value.
func RelationIDs(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []string:
		return val
	case map[string]any:
		if id, ok := val["id"].(string); ok {
			return []string{id}
		}
	case []any:
		var out []string
		for _, item := range val {
			out = append(out, RelationIDs(item)...)
		}
		return out
	}
	return nil
}

// EmptyDefault is the zero value a new record gets for a field without a
// usable default.
func EmptyDefault(f Field) any {
	if f.IsList {
		return []any{}
	}
	if !f.IsRequired {
		return nil
	}
	switch f.TypeIdentifier {
	case TypeInt:
		return int64(0)
	case TypeFloat:
		return float64(0)
	case TypeBoolean:
		return false
	case TypeString:
		return ""
	case TypeEnum:
		if len(f.EnumValues) > 0 {
			return f.EnumValues[0]
		}
		return nil
	default:
		return nil
	}
}

// DefaultFieldValue parses the field's declared default, falling back to
// EmptyDefault when it is unset or does not parse.
func DefaultFieldValue(f Field) any {
	if f.DefaultValue != "" {
		if v, err := ParseValue(f.DefaultValue, f); err == nil && v != nil {
			return v
		}
	}
	return EmptyDefault(f)
}

// DefaultFieldValues returns the initial values of every editable field.
func DefaultFieldValues(fields []Field) map[string]any {
	out := make(map[string]any)
	for _, f := range fields {
		if !f.IsEditable() {
			continue
		}
		out[f.Name] = DefaultFieldValue(f)
	}
	return out
}

// MergeDefaults overlays values on top of the defaults of fields. Keys that
// are not editable fields are dropped.
func MergeDefaults(fields []Field, values map[string]any) map[string]any {
	out := DefaultFieldValues(fields)
	for _, f := range fields {
		if !f.IsEditable() {
			continue
		}
		if v, ok := values[f.Name]; ok {
			out[f.Name] = v
		}
	}
	return out
}

var modelNameRe = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)

// ValidateModelName reports whether name is an acceptable model name:
// it must start with an uppercase letter and contain only letters and digits.
func ValidateModelName(name string) bool {
	return modelNameRe.MatchString(name)
}

// Pluralize derives the plural form used by the simple API ("allPosts").
func Pluralize(name string) string {
	if name == "" {
		return ""
	}
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "x"), strings.HasSuffix(lower, "z"),
		strings.HasSuffix(lower, "ch"), strings.HasSuffix(lower, "sh"):
		return name + "es"
	case strings.HasSuffix(lower, "y") && len(lower) > 1 && !strings.ContainsRune("aeiou", rune(lower[len(lower)-2])):
		return name[:len(name)-1] + "ies"
	default:
		return name + "s"
	}
}
