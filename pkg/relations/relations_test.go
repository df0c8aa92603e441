package relations

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/gcbrowse/pkg/model"
	"github.com/vanderheijden86/gcbrowse/pkg/testutil"
)

func schema() []model.Model {
	employee := model.Model{Name: "Employee", Fields: []model.Field{
		{Name: "id", TypeIdentifier: model.TypeID},
		{Name: "manager", TypeIdentifier: model.TypeRelation, RelatedModel: "Employee"},
	}}
	tag := model.Model{Name: "Tag", Fields: []model.Field{
		{Name: "id", TypeIdentifier: model.TypeID},
		{Name: "label", TypeIdentifier: model.TypeString},
	}}
	return []model.Model{testutil.PostModel(), testutil.UserModel(), employee, tag}
}

func TestRelations(t *testing.T) {
	g := Build(schema())

	got := g.Relations()
	want := []Relation{
		{Model: "Employee", Field: "manager", Target: "Employee"},
		{Model: "Post", Field: "author", Target: "User"},
		{Model: "User", Field: "posts", Target: "Post", IsList: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Relations() = %v, want %v", got, want)
	}
	if s := want[2].String(); s != "User.posts → Post (n)" {
		t.Errorf("unexpected rendering %q", s)
	}
}

func TestNeighbors(t *testing.T) {
	g := Build(schema())

	if got := g.Neighbors("Post"); !reflect.DeepEqual(got, []string{"User"}) {
		t.Errorf("Neighbors(Post) = %v", got)
	}
	if got := g.Neighbors("Employee"); len(got) != 0 {
		t.Errorf("self relation must not be a neighbor, got %v", got)
	}
	if got := g.Neighbors("Missing"); got != nil {
		t.Errorf("expected nil for unknown model, got %v", got)
	}
}

func TestComponentsAndIsolated(t *testing.T) {
	g := Build(schema())

	comps := g.Components()
	if len(comps) != 3 {
		t.Fatalf("expected 3 components, got %v", comps)
	}
	if !reflect.DeepEqual(comps[0], []string{"Post", "User"}) {
		t.Errorf("expected Post+User first, got %v", comps[0])
	}
	if got := g.Isolated(); !reflect.DeepEqual(got, []string{"Employee", "Tag"}) {
		t.Errorf("Isolated() = %v", got)
	}
	summary := g.Summary()
	if last := summary[len(summary)-1]; last != "1 connected group(s), 2 isolated" {
		t.Errorf("unexpected summary footer %q", last)
	}
}

func TestDanglingRelationIgnoredByGraph(t *testing.T) {
	g := Build([]model.Model{testutil.PostModel()})

	if len(g.Relations()) != 1 {
		t.Errorf("expected the dangling relation to be listed")
	}
	if got := g.Neighbors("Post"); len(got) != 0 {
		t.Errorf("expected no neighbors, got %v", got)
	}
}

func TestEmpty(t *testing.T) {
	g := Build(nil)
	if got := g.Summary(); !reflect.DeepEqual(got, []string{"No relations"}) {
		t.Errorf("Summary() = %v", got)
	}
	if len(g.Components()) != 0 {
		t.Error("expected no components")
	}
}
