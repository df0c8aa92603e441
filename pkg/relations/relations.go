// Package relations derives the relation graph between the models of a
// project for the side navigation's Relations section.
package relations

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

// Relation is one relation field.
type Relation struct {
	Model  string
	Field  string
	Target string
	IsList bool
}

func (r Relation) String() string {
	card := "1"
	if r.IsList {
		card = "n"
	}
	return fmt.Sprintf("%s.%s → %s (%s)", r.Model, r.Field, r.Target, card)
}

// Graph is the undirected model graph. Self relations are listed but do not
// add edges.
type Graph struct {
	g         *simple.UndirectedGraph
	nameToID  map[string]int64
	idToName  map[int64]string
	relations []Relation
}

// Build creates the graph for models. Relations to models that are not in
// the list are kept in Relations but ignored by the graph queries.
func Build(models []model.Model) *Graph {
	g := simple.NewUndirectedGraph()
	nameToID := make(map[string]int64, len(models))
	idToName := make(map[int64]string, len(models))

	for _, m := range models {
		if _, dup := nameToID[m.Name]; dup {
			continue
		}
		n := g.NewNode()
		g.AddNode(n)
		nameToID[m.Name] = n.ID()
		idToName[n.ID()] = m.Name
	}

	var rels []Relation
	for _, m := range models {
		for _, f := range m.Fields {
			if !f.IsRelation() || f.RelatedModel == "" {
				continue
			}
			rels = append(rels, Relation{Model: m.Name, Field: f.Name, Target: f.RelatedModel, IsList: f.IsList})

			u, ok1 := nameToID[m.Name]
			v, ok2 := nameToID[f.RelatedModel]
			if !ok1 || !ok2 || u == v {
				continue
			}
			g.SetEdge(g.NewEdge(g.Node(u), g.Node(v)))
		}
	}
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Model != rels[j].Model {
			return rels[i].Model < rels[j].Model
		}
		return rels[i].Field < rels[j].Field
	})

	return &Graph{g: g, nameToID: nameToID, idToName: idToName, relations: rels}
}

// Relations returns every relation field ordered by model then field.
func (g *Graph) Relations() []Relation {
	return g.relations
}

// Neighbors returns the models directly related to name, sorted.
func (g *Graph) Neighbors(name string) []string {
	id, ok := g.nameToID[name]
	if !ok {
		return nil
	}
	var out []string
	nodes := g.g.From(id)
	for nodes.Next() {
		out = append(out, g.idToName[nodes.Node().ID()])
	}
	sort.Strings(out)
	return out
}

// Components groups models that are connected through relations. Each
// group is sorted and groups are ordered by size, then by first name.
func (g *Graph) Components() [][]string {
	var out [][]string
	for _, cc := range topo.ConnectedComponents(g.g) {
		names := make([]string, len(cc))
		for i, n := range cc {
			names[i] = g.idToName[n.ID()]
		}
		sort.Strings(names)
		out = append(out, names)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i][0] < out[j][0]
	})
	return out
}

// Isolated returns the models with no relation to another model.
func (g *Graph) Isolated() []string {
	var out []string
	for id, name := range g.idToName {
		if g.g.From(id).Len() == 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Summary renders the lines shown under Relations.
func (g *Graph) Summary() []string {
	if len(g.relations) == 0 {
		return []string{"No relations"}
	}
	lines := make([]string, 0, len(g.relations)+1)
	for _, r := range g.relations {
		lines = append(lines, r.String())
	}
	groups := 0
	for _, cc := range g.Components() {
		if len(cc) > 1 {
			groups++
		}
	}
	lines = append(lines, fmt.Sprintf("%d connected group(s), %d isolated", groups, len(g.Isolated())))
	return lines
}
