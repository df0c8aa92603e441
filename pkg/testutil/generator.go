// Package testutil provides record fixtures and an in-memory backend for tests.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

// GeneratorConfig controls record generation.
type GeneratorConfig struct {
	Seed     int64     // Random seed for determinism (0 = use current time)
	IDPrefix string    // Prefix for record IDs (default: lowercased model name)
	BaseTime time.Time // Base time for createdAt (default: fixed time)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:     42,
		BaseTime: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Generator creates record fixtures for a model schema.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = DefaultConfig().BaseTime
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// PostModel is the schema used across the browser tests.
func PostModel() model.Model {
	return model.Model{
		Name:       "Post",
		NamePlural: "Posts",
		Fields: []model.Field{
			{Name: "id", TypeIdentifier: model.TypeID, IsReadonly: true, IsRequired: true},
			{Name: "title", TypeIdentifier: model.TypeString, IsRequired: true},
			{Name: "views", TypeIdentifier: model.TypeInt, DefaultValue: "0"},
			{Name: "published", TypeIdentifier: model.TypeBoolean, IsRequired: true},
			{Name: "author", TypeIdentifier: model.TypeRelation, RelatedModel: "User"},
			{Name: "createdAt", TypeIdentifier: model.TypeDateTime, IsReadonly: true},
		},
	}
}

// UserModel is a second schema related to PostModel.
func UserModel() model.Model {
	return model.Model{
		Name:       "User",
		NamePlural: "Users",
		Fields: []model.Field{
			{Name: "id", TypeIdentifier: model.TypeID, IsReadonly: true, IsRequired: true},
			{Name: "name", TypeIdentifier: model.TypeString, IsRequired: true},
			{Name: "posts", TypeIdentifier: model.TypeRelation, IsList: true, RelatedModel: "Post"},
		},
	}
}

// Records generates n records for m with ids "<prefix>-0000".. in id order.
func (g *Generator) Records(m model.Model, n int) []*model.Record {
	prefix := g.cfg.IDPrefix
	if prefix == "" {
		prefix = m.Name
	}
	out := make([]*model.Record, n)
	for i := 0; i < n; i++ {
		r := model.NewRecord(RecordID(prefix, i))
		for _, f := range m.Fields {
			if f.Name == "id" {
				continue
			}
			r.Set(f.Name, g.value(f, i))
		}
		out[i] = r
	}
	return out
}

// Values generates n creation payloads for m (no ids, no read-only fields).
func (g *Generator) Values(m model.Model, n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		v := make(map[string]any)
		for _, f := range m.EditableFields() {
			if f.IsRelation() {
				continue
			}
			v[f.Name] = g.value(f, i)
		}
		out[i] = v
	}
	return out
}

func (g *Generator) value(f model.Field, i int) any {
	if f.IsList {
		return []any{}
	}
	switch f.TypeIdentifier {
	case model.TypeInt:
		return int64(g.rng.Intn(1000))
	case model.TypeFloat:
		return float64(g.rng.Intn(10000)) / 100
	case model.TypeBoolean:
		return g.rng.Intn(2) == 0
	case model.TypeDateTime:
		return g.cfg.BaseTime.Add(time.Duration(i) * time.Minute).Format(time.RFC3339Nano)
	case model.TypeRelation:
		return nil
	case model.TypeEnum:
		if len(f.EnumValues) > 0 {
			return f.EnumValues[g.rng.Intn(len(f.EnumValues))]
		}
		return nil
	default:
		return fmt.Sprintf("%s %d", f.Name, i)
	}
}

// RecordID formats the id of the i-th generated record.
func RecordID(prefix string, i int) string {
	return fmt.Sprintf("%s-%04d", prefix, i)
}
