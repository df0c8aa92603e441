package gql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

// literal renders v as a GraphQL input literal for field f.
func literal(v any, f model.Field) string {
	if v == nil {
		return "null"
	}
	if f.IsList {
		items, ok := v.([]any)
		if !ok {
			items = []any{v}
		}
		single := f
		single.IsList = false
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = literal(item, single)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	switch f.TypeIdentifier {
	case model.TypeEnum:
		return fmt.Sprint(v)
	case model.TypeJSON:
		b, err := json.Marshal(v)
		if err != nil {
			return "null"
		}
		return quote(string(b))
	case model.TypeInt, model.TypeFloat, model.TypeBoolean:
		return model.FormatValue(v, f)
	default:
		return quote(model.FormatValue(v, f))
	}
}

func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return string(b)
}

// argName is the mutation argument that carries a field's value.
// Relations are sent as "<name>Id" or "<name>Ids".
func argName(f model.Field) string {
	if !f.IsRelation() {
		return f.Name
	}
	if f.IsList {
		return f.Name + "Ids"
	}
	return f.Name + "Id"
}

// mutationArgs renders the argument list of a create or update mutation.
// Unknown, read-only and nil-valued fields are skipped.
func mutationArgs(m model.Model, values map[string]any) string {
	var parts []string
	for _, f := range m.Fields {
		if !f.IsEditable() {
			continue
		}
		v, ok := values[f.Name]
		if !ok || v == nil {
			continue
		}
		parts = append(parts, argName(f)+": "+argLiteral(v, f))
	}
	return strings.Join(parts, ", ")
}

func argLiteral(v any, f model.Field) string {
	if !f.IsRelation() {
		return literal(v, f)
	}
	ids := model.RelationIDs(v)
	if f.IsList {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = quote(id)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	if len(ids) == 0 {
		return "null"
	}
	return quote(ids[0])
}

// filterLiteral renders the filter argument, or "" when filter is empty.
// String fields match by substring, relations by related id.
func filterLiteral(m model.Model, filter model.Filter) string {
	if len(filter) == 0 {
		return ""
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, name := range keys {
		v := filter[name]
		f, ok := m.Field(name)
		if !ok {
			f = model.Field{Name: name, TypeIdentifier: model.TypeString}
		}
		switch {
		case f.IsRelation():
			ids := model.RelationIDs(v)
			if len(ids) == 0 {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: {id: %s}", name, quote(ids[0])))
		case f.TypeIdentifier == model.TypeString && !f.IsList:
			parts = append(parts, fmt.Sprintf("%s_contains: %s", name, quote(fmt.Sprint(v))))
		default:
			parts = append(parts, fmt.Sprintf("%s: %s", name, literal(v, f)))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// selection lists the fields requested for every record.
func selection(m model.Model) string {
	parts := []string{"id"}
	for _, f := range m.Fields {
		if f.Name == "id" {
			continue
		}
		if f.IsRelation() {
			parts = append(parts, f.Name+" { id }")
			continue
		}
		parts = append(parts, f.Name)
	}
	return strings.Join(parts, " ")
}

// decodeRecord converts a response object into a record. Json fields that
// arrive as strings are decoded.
func decodeRecord(obj map[string]any, m model.Model) *model.Record {
	for _, f := range m.Fields {
		v, ok := obj[f.Name]
		if !ok || v == nil {
			continue
		}
		if f.TypeIdentifier == model.TypeJSON {
			if s, ok := v.(string); ok {
				var decoded any
				if err := json.Unmarshal([]byte(s), &decoded); err == nil {
					obj[f.Name] = decoded
				}
			}
		}
	}
	return model.RecordFrom(obj, m.Fields)
}
