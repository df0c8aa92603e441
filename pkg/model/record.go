package model

// Record is one node of a model: an ordered mapping of field names to values
// plus a stable id.
type Record struct {
	ID     string
	keys   []string
	values map[string]any
}

// NewRecord creates an empty record with the given id.
func NewRecord(id string) *Record {
	return &Record{ID: id, values: make(map[string]any)}
}

// RecordFrom builds a record from a decoded object. The "id" key becomes the
// record id; remaining keys follow the order of fields, then any extras in
// map order.
func RecordFrom(obj map[string]any, fields []Field) *Record {
	r := NewRecord("")
	if id, ok := obj["id"]; ok {
		if s, ok := id.(string); ok {
			r.ID = s
		}
	}
	for _, f := range fields {
		if v, ok := obj[f.Name]; ok {
			r.Set(f.Name, v)
		}
	}
	for k, v := range obj {
		if _, ok := r.values[k]; !ok {
			r.Set(k, v)
		}
	}
	return r
}

// Get returns the value of a field.
func (r *Record) Get(name string) (any, bool) {
	if name == "id" {
		return r.ID, r.ID != ""
	}
	v, ok := r.values[name]
	return v, ok
}

// Set assigns a field value, appending the key on first use.
func (r *Record) Set(name string, value any) {
	if name == "id" {
		if s, ok := value.(string); ok {
			r.ID = s
		}
		return
	}
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = value
}

// Fields returns field names in insertion order, id excluded.
func (r *Record) Fields() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Values returns a copy of the field values, including "id".
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.values)+1)
	for k, v := range r.values {
		out[k] = v
	}
	if r.ID != "" {
		out["id"] = r.ID
	}
	return out
}

// Clone returns a copy that shares no maps with r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{ID: r.ID, keys: make([]string, len(r.keys)), values: make(map[string]any, len(r.values))}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}
