package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vanderheijden86/gcbrowse/pkg/api"
	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

// Memory is an in-memory api.Backend with call counters and failure
// injection. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	models  map[string]model.Model
	records map[string][]*model.Record
	calls   map[string]int
	seq     int

	// FailDelete makes Delete of the listed ids fail with the given error.
	FailDelete map[string]error
	// FailCreateMany is consulted with the zero-based call number of each
	// CreateMany; a non-nil result fails that call.
	FailCreateMany func(call int) error
	// FailCreate and FailUpdate fail every Create/Update when set.
	FailCreate error
	FailUpdate error
	// FailCount and FailPage fail every FetchCount/FetchPage when set.
	FailCount error
	FailPage  error
}

var _ api.Backend = (*Memory)(nil)

// NewMemory creates a backend holding the given models with no records.
func NewMemory(models ...model.Model) *Memory {
	m := &Memory{
		models:     make(map[string]model.Model),
		records:    make(map[string][]*model.Record),
		calls:      make(map[string]int),
		FailDelete: make(map[string]error),
	}
	for _, md := range models {
		m.models[md.Name] = md
	}
	return m
}

// Seed stores records for a model, replacing existing ones.
func (m *Memory) Seed(modelName string, recs []*model.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Record, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	m.records[modelName] = out
}

// Calls returns how many times op was invoked.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Count returns the number of stored records of a model.
func (m *Memory) Count(modelName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[modelName])
}

func (m *Memory) FetchCount(ctx context.Context, md model.Model, filter model.Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["FetchCount"]++
	if m.FailCount != nil {
		return 0, api.Wrap("count", md.Name, "", m.FailCount)
	}
	return len(m.matching(md, filter)), nil
}

func (m *Memory) FetchPage(ctx context.Context, md model.Model, filter model.Filter, order model.OrderBy, skip, first int) ([]*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["FetchPage"]++
	if m.FailPage != nil {
		return nil, api.Wrap("fetch", md.Name, "", m.FailPage)
	}
	recs := m.matching(md, filter)
	sortRecords(recs, md, order)
	if skip >= len(recs) {
		return nil, nil
	}
	end := skip + first
	if end > len(recs) {
		end = len(recs)
	}
	out := make([]*model.Record, 0, end-skip)
	for _, r := range recs[skip:end] {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (m *Memory) Create(ctx context.Context, md model.Model, values map[string]any) (*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Create"]++
	if m.FailCreate != nil {
		return nil, api.Wrap("create", md.Name, "", m.FailCreate)
	}
	return m.insert(md, values).Clone(), nil
}

func (m *Memory) Update(ctx context.Context, md model.Model, id, field string, value any) (*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Update"]++
	if m.FailUpdate != nil {
		return nil, api.Wrap("update", md.Name, id, m.FailUpdate)
	}
	for _, r := range m.records[md.Name] {
		if r.ID == id {
			r.Set(field, value)
			return r.Clone(), nil
		}
	}
	return nil, api.NewError(api.KindNotFound, "update", md.Name, id, nil)
}

func (m *Memory) Delete(ctx context.Context, md model.Model, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Delete"]++
	if err := m.FailDelete[id]; err != nil {
		return api.Wrap("delete", md.Name, id, err)
	}
	recs := m.records[md.Name]
	for i, r := range recs {
		if r.ID == id {
			m.records[md.Name] = append(recs[:i], recs[i+1:]...)
			return nil
		}
	}
	return api.NewError(api.KindNotFound, "delete", md.Name, id, nil)
}

func (m *Memory) CreateMany(ctx context.Context, md model.Model, records []map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := m.calls["CreateMany"]
	m.calls["CreateMany"]++
	if m.FailCreateMany != nil {
		if err := m.FailCreateMany(call); err != nil {
			return api.Wrap("import", md.Name, "", err)
		}
	}
	for _, v := range records {
		m.insert(md, v)
	}
	return nil
}

func (m *Memory) ListModels(ctx context.Context) ([]model.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["ListModels"]++
	out := make([]model.Model, 0, len(m.models))
	for name, md := range m.models {
		md.ItemCount = len(m.records[name])
		out = append(out, md)
	}
	model.SortModels(out)
	return out, nil
}

func (m *Memory) AddModel(ctx context.Context, name string) (model.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["AddModel"]++
	if !model.ValidateModelName(name) {
		return model.Model{}, api.NewError(api.KindValidation, "add model", name, "", fmt.Errorf("invalid model name"))
	}
	if _, ok := m.models[name]; ok {
		return model.Model{}, api.NewError(api.KindValidation, "add model", name, "", fmt.Errorf("model already exists"))
	}
	md := model.Model{
		Name:       name,
		NamePlural: model.Pluralize(name),
		Fields:     []model.Field{{Name: "id", TypeIdentifier: model.TypeID, IsReadonly: true, IsRequired: true}},
	}
	m.models[name] = md
	return md, nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) insert(md model.Model, values map[string]any) *model.Record {
	m.seq++
	r := model.RecordFrom(values, md.Fields)
	r.ID = fmt.Sprintf("%s-new-%04d", md.Name, m.seq)
	m.records[md.Name] = append(m.records[md.Name], r)
	return r
}

func (m *Memory) matching(md model.Model, filter model.Filter) []*model.Record {
	var out []*model.Record
	for _, r := range m.records[md.Name] {
		if matches(r, md, filter) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r *model.Record, md model.Model, filter model.Filter) bool {
	for name, want := range filter {
		got, _ := r.Get(name)
		f, _ := md.Field(name)
		if f.TypeIdentifier == model.TypeString {
			if !strings.Contains(strings.ToLower(model.FormatValue(got, f)), strings.ToLower(fmt.Sprint(want))) {
				return false
			}
			continue
		}
		if model.FormatValue(got, f) != model.FormatValue(want, f) {
			return false
		}
	}
	return true
}

func sortRecords(recs []*model.Record, md model.Model, order model.OrderBy) {
	f, _ := md.Field(order.FieldName)
	sort.SliceStable(recs, func(i, j int) bool {
		a, _ := recs[i].Get(order.FieldName)
		b, _ := recs[j].Get(order.FieldName)
		less := compare(a, b, f) < 0
		if order.Direction == model.DESC {
			return compare(a, b, f) > 0
		}
		return less
	})
}

func compare(a, b any, f model.Field) int {
	af, aNum := number(a)
	bf, bNum := number(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(model.FormatValue(a, f), model.FormatValue(b, f))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
