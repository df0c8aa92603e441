package model

import (
	"errors"
	"testing"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field Field
		want  any
	}{
		{"int", "42", Field{Name: "n", TypeIdentifier: TypeInt}, int64(42)},
		{"float", "1.5", Field{Name: "f", TypeIdentifier: TypeFloat}, 1.5},
		{"bool", "true", Field{Name: "b", TypeIdentifier: TypeBoolean}, true},
		{"string trims", "  hi ", Field{Name: "s", TypeIdentifier: TypeString}, "hi"},
		{"date", "2024-03-01", Field{Name: "d", TypeIdentifier: TypeDateTime}, "2024-03-01T00:00:00Z"},
		{"empty optional", "", Field{Name: "s", TypeIdentifier: TypeString}, nil},
		{"enum", "DRAFT", Field{Name: "e", TypeIdentifier: TypeEnum, EnumValues: []string{"DRAFT", "PUBLISHED"}}, "DRAFT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValue(tt.input, tt.field)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
			}
		})
	}
}

func TestParseValueErrors(t *testing.T) {
	tests := []struct {
		input string
		field Field
	}{
		{"abc", Field{Name: "n", TypeIdentifier: TypeInt}},
		{"maybe", Field{Name: "b", TypeIdentifier: TypeBoolean}},
		{"", Field{Name: "s", TypeIdentifier: TypeString, IsRequired: true}},
		{"ARCHIVED", Field{Name: "e", TypeIdentifier: TypeEnum, EnumValues: []string{"DRAFT"}}},
		{"{bad", Field{Name: "j", TypeIdentifier: TypeJSON}},
	}
	for _, tt := range tests {
		if _, err := ParseValue(tt.input, tt.field); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("ParseValue(%q, %s): expected ErrInvalidValue, got %v", tt.input, tt.field.TypeIdentifier, err)
		}
	}
}

func TestParseListValue(t *testing.T) {
	got, err := ParseValue(`[1, 2, 3]`, Field{Name: "xs", TypeIdentifier: TypeInt, IsList: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, ok := got.([]any)
	if !ok || len(list) != 3 || list[2] != int64(3) {
		t.Errorf("unexpected list: %#v", got)
	}

	rel, err := ParseValue("a, b", Field{Name: "tags", TypeIdentifier: TypeRelation, IsList: true, RelatedModel: "Tag"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := RelationIDs(rel); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("unexpected relation ids: %v", ids)
	}
}

func TestFormatValue(t *testing.T) {
	if got := FormatValue(float64(3), Field{TypeIdentifier: TypeInt}); got != "3" {
		t.Errorf("expected 3, got %q", got)
	}
	if got := FormatValue(2.25, Field{TypeIdentifier: TypeFloat}); got != "2.25" {
		t.Errorf("expected 2.25, got %q", got)
	}
	if got := FormatValue(map[string]any{"id": "u1"}, Field{TypeIdentifier: TypeRelation}); got != "u1" {
		t.Errorf("expected u1, got %q", got)
	}
	if got := FormatValue(nil, Field{TypeIdentifier: TypeString}); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestDefaultFieldValues(t *testing.T) {
	fields := []Field{
		{Name: "id", TypeIdentifier: TypeID, IsReadonly: true},
		{Name: "title", TypeIdentifier: TypeString, IsRequired: true},
		{Name: "views", TypeIdentifier: TypeInt, DefaultValue: "10"},
		{Name: "tags", TypeIdentifier: TypeString, IsList: true},
		{Name: "published", TypeIdentifier: TypeBoolean, IsRequired: true},
		{Name: "note", TypeIdentifier: TypeString},
	}
	got := DefaultFieldValues(fields)
	if _, ok := got["id"]; ok {
		t.Error("read-only id should not get a default")
	}
	if got["title"] != "" {
		t.Errorf("expected empty title, got %v", got["title"])
	}
	if got["views"] != int64(10) {
		t.Errorf("expected views=10, got %v", got["views"])
	}
	if l, ok := got["tags"].([]any); !ok || len(l) != 0 {
		t.Errorf("expected empty list, got %#v", got["tags"])
	}
	if got["published"] != false {
		t.Errorf("expected published=false, got %v", got["published"])
	}
	if v, ok := got["note"]; !ok || v != nil {
		t.Errorf("expected note=nil, got %v (present=%v)", v, ok)
	}

	merged := MergeDefaults(fields, map[string]any{"title": "Hello", "bogus": 1})
	if merged["title"] != "Hello" || merged["views"] != int64(10) {
		t.Errorf("unexpected merge: %v", merged)
	}
	if _, ok := merged["bogus"]; ok {
		t.Error("unknown keys should be dropped")
	}
}

func TestValidateModelName(t *testing.T) {
	for name, want := range map[string]bool{
		"Post":      true,
		"BlogPost2": true,
		"post":      false,
		"Blog Post": false,
		"":          false,
		"Post_":     false,
	} {
		if got := ValidateModelName(name); got != want {
			t.Errorf("ValidateModelName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestPluralize(t *testing.T) {
	for in, want := range map[string]string{
		"Post":     "Posts",
		"Category": "Categories",
		"Day":      "Days",
		"Box":      "Boxes",
		"Address":  "Addresses",
	} {
		if got := Pluralize(in); got != want {
			t.Errorf("Pluralize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOrderByNext(t *testing.T) {
	o := DefaultOrder()
	o = o.Next("id")
	if o.Direction != DESC {
		t.Errorf("expected DESC after toggling the sorted field, got %s", o.Direction)
	}
	o = o.Next("title")
	if o.FieldName != "title" || o.Direction != ASC {
		t.Errorf("expected title ASC, got %s", o)
	}
	if o.String() != "title_ASC" {
		t.Errorf("expected title_ASC, got %s", o.String())
	}
}

func TestRecordOrderAndClone(t *testing.T) {
	r := RecordFrom(map[string]any{"id": "1", "b": 2, "a": 1}, []Field{{Name: "a"}, {Name: "b"}})
	if r.ID != "1" {
		t.Fatalf("expected id 1, got %q", r.ID)
	}
	if keys := r.Fields(); len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("expected schema order [a b], got %v", keys)
	}
	c := r.Clone()
	c.Set("a", 99)
	if v, _ := r.Get("a"); v != 1 {
		t.Errorf("clone mutated original: %v", v)
	}
}

func TestParseFilterValue(t *testing.T) {
	title := Field{Name: "title", TypeIdentifier: TypeString, IsRequired: true}
	views := Field{Name: "views", TypeIdentifier: TypeInt}
	author := Field{Name: "author", TypeIdentifier: TypeRelation, RelatedModel: "User"}

	if v, err := ParseFilterValue("  ", title); v != nil || err != nil {
		t.Errorf("blank filter = %v, %v; want nil, nil", v, err)
	}
	if v, _ := ParseFilterValue(" hello ", title); v != "hello" {
		t.Errorf("string filter = %#v", v)
	}
	if v, _ := ParseFilterValue("u1", author); v != "u1" {
		t.Errorf("relation filter = %#v", v)
	}
	if v, _ := ParseFilterValue("7", views); v != int64(7) {
		t.Errorf("int filter = %#v", v)
	}
	if _, err := ParseFilterValue("seven", views); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("bad int filter error = %v", err)
	}
}
