// Package model holds the schema and record types shared by the backends,
// the window stores and the table view.
package model

import (
	"sort"
	"strings"
)

// FieldType is the platform's type identifier for a field.
type FieldType string

const (
	TypeString   FieldType = "String"
	TypeInt      FieldType = "Int"
	TypeFloat    FieldType = "Float"
	TypeBoolean  FieldType = "Boolean"
	TypeDateTime FieldType = "DateTime"
	TypeJSON     FieldType = "Json"
	TypeEnum     FieldType = "Enum"
	TypeID       FieldType = "GraphQLID"
	TypeRelation FieldType = "Relation"
)

// IsScalar reports whether values of this type are stored inline on the record.
func (t FieldType) IsScalar() bool {
	return t != TypeRelation
}

// Field is one entry of a model schema.
type Field struct {
	Name           string    `json:"name" yaml:"name"`
	TypeIdentifier FieldType `json:"typeIdentifier" yaml:"type"`
	IsList         bool      `json:"isList" yaml:"is_list,omitempty"`
	IsReadonly     bool      `json:"isReadonly" yaml:"readonly,omitempty"`
	IsRequired     bool      `json:"isRequired" yaml:"required,omitempty"`
	DefaultValue   string    `json:"defaultValue,omitempty" yaml:"default,omitempty"`
	EnumValues     []string  `json:"enumValues,omitempty" yaml:"enum,omitempty"`
	RelatedModel   string    `json:"relatedModel,omitempty" yaml:"related_model,omitempty"`
}

// IsRelation reports whether the field points to another model.
func (f Field) IsRelation() bool {
	return f.TypeIdentifier == TypeRelation || f.RelatedModel != ""
}

// IsEditable reports whether a user may supply a value for the field.
func (f Field) IsEditable() bool {
	return !f.IsReadonly && f.Name != "id"
}

// Model describes a record type of a project.
type Model struct {
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name"`
	NamePlural string  `json:"namePlural"`
	ItemCount  int     `json:"itemCount"`
	Fields     []Field `json:"fields"`
}

// Plural returns NamePlural, deriving it from Name when unset.
func (m Model) Plural() string {
	if m.NamePlural != "" {
		return m.NamePlural
	}
	return Pluralize(m.Name)
}

// Field looks up a field by name.
func (m Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// EditableFields returns the fields a user can fill in when creating a record.
func (m Model) EditableFields() []Field {
	var out []Field
	for _, f := range m.Fields {
		if f.IsEditable() {
			out = append(out, f)
		}
	}
	return out
}

// FirstInputField returns the index into Fields of the first editable field,
// or -1 when there is none.
func (m Model) FirstInputField() int {
	for i, f := range m.Fields {
		if f.IsEditable() {
			return i
		}
	}
	return -1
}

// SortModels orders models by name, case-insensitively.
func SortModels(models []Model) {
	sort.SliceStable(models, func(i, j int) bool {
		return strings.ToLower(models[i].Name) < strings.ToLower(models[j].Name)
	})
}

// Direction of an ordering.
type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

// Toggle flips the direction.
func (d Direction) Toggle() Direction {
	if d == DESC {
		return ASC
	}
	return DESC
}

// Indicator returns the arrow shown in a column header.
func (d Direction) Indicator() string {
	if d == DESC {
		return "▼"
	}
	return "▲"
}

// OrderBy is the single active ordering of a window.
type OrderBy struct {
	FieldName string
	Direction Direction
}

// DefaultOrder sorts by id ascending.
func DefaultOrder() OrderBy {
	return OrderBy{FieldName: "id", Direction: ASC}
}

// String renders the ordering the way the simple API expects it, e.g. "name_DESC".
func (o OrderBy) String() string {
	dir := o.Direction
	if dir == "" {
		dir = ASC
	}
	return o.FieldName + "_" + string(dir)
}

// Next returns the ordering after the user selects field: the same field
// flips direction, another field starts ascending.
func (o OrderBy) Next(field string) OrderBy {
	if o.FieldName == field {
		return OrderBy{FieldName: field, Direction: o.Direction.Toggle()}
	}
	return OrderBy{FieldName: field, Direction: ASC}
}

// Filter maps field names to predicate values. An empty filter matches everything.
type Filter map[string]any

// Clone returns a shallow copy.
func (f Filter) Clone() Filter {
	out := make(Filter, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// With returns a copy with name set to value. A nil or empty-string value
// removes the predicate.
func (f Filter) With(name string, value any) Filter {
	out := f.Clone()
	if value == nil {
		delete(out, name)
		return out
	}
	if s, ok := value.(string); ok && s == "" {
		delete(out, name)
		return out
	}
	out[name] = value
	return out
}

// Keys returns the filtered field names in sorted order.
func (f Filter) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
