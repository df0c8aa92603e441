package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/gcbrowse/pkg/api"
	"github.com/vanderheijden86/gcbrowse/pkg/debug"
	"github.com/vanderheijden86/gcbrowse/pkg/metrics"
	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// table maps one model onto its SQLite table.
type table struct {
	model   model.Model
	columns map[string]string // field name -> column name
	hasTS   bool              // createdAt/updatedAt columns present
}

// SQLiteBackend serves every user table of a SQLite database as a model.
// Foreign keys become relation fields; id, createdAt and updatedAt are
// read-only.
type SQLiteBackend struct {
	db   *sql.DB
	path string

	mu     sync.RWMutex
	tables map[string]*table

	now func() time.Time
}

var _ api.Backend = (*SQLiteBackend)(nil)

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// Batch deletes fan out concurrently; a single connection serializes
	// them instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("sqlite: %s: %v", pragma, err)
		}
	}

	b := &SQLiteBackend{db: db, path: path, now: time.Now}
	if err := b.refreshSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// Path returns the database file path.
func (b *SQLiteBackend) Path() string { return b.path }

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (b *SQLiteBackend) refreshSchema(ctx context.Context) error {
	defer metrics.Timer(metrics.SchemaLoad)()

	rows, err := b.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("reading schema: %w", err)
		}
		if strings.HasPrefix(name, "_") || !identRe.MatchString(name) {
			continue
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}

	tables := make(map[string]*table, len(names))
	for _, name := range names {
		t, err := b.loadTable(ctx, name)
		if err != nil {
			return err
		}
		tables[name] = t
	}
	b.mu.Lock()
	b.tables = tables
	b.mu.Unlock()
	return nil
}

func (b *SQLiteBackend) loadTable(ctx context.Context, name string) (*table, error) {
	fks := make(map[string]string) // column -> referenced table
	fkRows, err := b.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(name)))
	if err != nil {
		return nil, fmt.Errorf("reading foreign keys of %s: %w", name, err)
	}
	for fkRows.Next() {
		var id, seq int
		var ref, from string
		var to, onUpdate, onDelete, match sql.NullString
		if err := fkRows.Scan(&id, &seq, &ref, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			fkRows.Close()
			return nil, fmt.Errorf("reading foreign keys of %s: %w", name, err)
		}
		fks[from] = ref
	}
	fkRows.Close()

	colRows, err := b.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name)))
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", name, err)
	}
	defer colRows.Close()

	t := &table{
		model:   model.Model{ID: name, Name: name, NamePlural: model.Pluralize(name)},
		columns: make(map[string]string),
	}
	var hasCreated, hasUpdated bool
	for colRows.Next() {
		var cid, notNull, pk int
		var col, decl string
		var dflt sql.NullString
		if err := colRows.Scan(&cid, &col, &decl, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("reading columns of %s: %w", name, err)
		}
		f := model.Field{
			Name:           col,
			TypeIdentifier: columnType(decl),
			IsRequired:     notNull == 1 || pk == 1,
		}
		if dflt.Valid {
			f.DefaultValue = strings.Trim(dflt.String, `'"`)
		}
		switch col {
		case "id":
			f.TypeIdentifier = model.TypeID
			f.IsReadonly = true
		case "createdAt":
			hasCreated = true
			f.IsReadonly = true
		case "updatedAt":
			hasUpdated = true
			f.IsReadonly = true
		}
		if ref, ok := fks[col]; ok {
			f.TypeIdentifier = model.TypeRelation
			f.RelatedModel = ref
			if trimmed := strings.TrimSuffix(col, "Id"); trimmed != col && trimmed != "" {
				f.Name = trimmed
			}
		}
		t.columns[f.Name] = col
		t.model.Fields = append(t.model.Fields, f)
	}
	if err := colRows.Err(); err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", name, err)
	}
	t.hasTS = hasCreated && hasUpdated
	return t, nil
}

func columnType(decl string) model.FieldType {
	d := strings.ToUpper(decl)
	switch {
	case strings.Contains(d, "BOOL"):
		return model.TypeBoolean
	case strings.Contains(d, "INT"):
		return model.TypeInt
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"),
		strings.Contains(d, "NUMERIC"), strings.Contains(d, "DECIMAL"):
		return model.TypeFloat
	case strings.Contains(d, "DATE"), strings.Contains(d, "TIME"):
		return model.TypeDateTime
	case strings.Contains(d, "JSON"):
		return model.TypeJSON
	default:
		return model.TypeString
	}
}

func (b *SQLiteBackend) table(ctx context.Context, name string) (*table, bool) {
	b.mu.RLock()
	t, ok := b.tables[name]
	b.mu.RUnlock()
	if ok {
		return t, true
	}
	if err := b.refreshSchema(ctx); err != nil {
		debug.Log("sqlite: refresh schema: %v", err)
		return nil, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok = b.tables[name]
	return t, ok
}

// storageValue converts a model value into what the driver stores.
func storageValue(v any, f model.Field) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch {
	case f.IsRelation():
		ids := model.RelationIDs(v)
		if len(ids) == 0 {
			return nil, nil
		}
		return ids[0], nil
	case f.TypeIdentifier == model.TypeJSON || f.IsList:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", api.ErrValidation, f.Name, err)
		}
		return string(raw), nil
	case f.TypeIdentifier == model.TypeBoolean:
		switch val := v.(type) {
		case bool:
			if val {
				return int64(1), nil
			}
			return int64(0), nil
		case string:
			parsed, err := model.ParseValue(val, f)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", api.ErrValidation, err)
			}
			return storageValue(parsed, f)
		}
	case f.TypeIdentifier == model.TypeInt || f.TypeIdentifier == model.TypeFloat:
		if s, ok := v.(string); ok {
			parsed, err := model.ParseValue(s, f)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", api.ErrValidation, err)
			}
			return parsed, nil
		}
	}
	return v, nil
}

// modelValue converts a scanned column value into a model value.
func modelValue(v any, f model.Field) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil
	}
	switch f.TypeIdentifier {
	case model.TypeBoolean:
		switch val := v.(type) {
		case int64:
			return val != 0
		case string:
			return val == "1" || strings.EqualFold(val, "true")
		}
	case model.TypeDateTime:
		if t, ok := v.(time.Time); ok {
			return t.UTC().Format(time.RFC3339Nano)
		}
	case model.TypeJSON:
		if s, ok := v.(string); ok {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				return decoded
			}
		}
	case model.TypeRelation:
		return map[string]any{"id": fmt.Sprint(v)}
	}
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}

func (t *table) where(filter model.Filter) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	var clauses []string
	var args []any
	for _, name := range filter.Keys() {
		f, ok := t.model.Field(name)
		if !ok {
			return "", nil, api.NewError(api.KindValidation, "filter", t.model.Name, "", fmt.Errorf("unknown field %q", name))
		}
		col := quoteIdent(t.columns[name])
		v := filter[name]
		if f.TypeIdentifier == model.TypeString {
			clauses = append(clauses, col+` LIKE ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(fmt.Sprint(v))+"%")
			continue
		}
		sv, err := storageValue(v, f)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, col+" = ?")
		args = append(args, sv)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (t *table) selectColumns() string {
	cols := make([]string, len(t.model.Fields))
	for i, f := range t.model.Fields {
		cols[i] = quoteIdent(t.columns[f.Name])
	}
	return strings.Join(cols, ", ")
}

func (t *table) scan(rows *sql.Rows) (*model.Record, error) {
	vals := make([]any, len(t.model.Fields))
	ptrs := make([]any, len(vals))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	r := model.NewRecord("")
	for i, f := range t.model.Fields {
		v := modelValue(vals[i], f)
		if f.Name == "id" {
			r.ID = fmt.Sprint(v)
			continue
		}
		r.Set(f.Name, v)
	}
	return r, nil
}

// FetchCount counts matching rows. A missing table counts as empty.
func (b *SQLiteBackend) FetchCount(ctx context.Context, m model.Model, filter model.Filter) (int, error) {
	defer metrics.Timer(metrics.FetchCount)()

	t, ok := b.table(ctx, m.Name)
	if !ok {
		return 0, nil
	}
	where, args, err := t.where(filter)
	if err != nil {
		return 0, err
	}
	var n int
	q := "SELECT COUNT(*) FROM " + quoteIdent(t.model.Name) + where
	if err := b.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, api.Wrap("count", m.Name, "", err)
	}
	return n, nil
}

// FetchPage returns up to first rows starting at skip, ordered by order and
// then id for a stable window.
func (b *SQLiteBackend) FetchPage(ctx context.Context, m model.Model, filter model.Filter, order model.OrderBy, skip, first int) ([]*model.Record, error) {
	defer metrics.Timer(metrics.FetchPage)()

	t, ok := b.table(ctx, m.Name)
	if !ok {
		return nil, nil
	}
	where, args, err := t.where(filter)
	if err != nil {
		return nil, err
	}
	orderCol := "id"
	if col, ok := t.columns[order.FieldName]; ok {
		orderCol = col
	}
	dir := "ASC"
	if order.Direction == model.DESC {
		dir = "DESC"
	}
	q := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s %s, \"id\" %s LIMIT ? OFFSET ?",
		t.selectColumns(), quoteIdent(t.model.Name), where, quoteIdent(orderCol), dir, dir)
	args = append(args, first, skip)

	rows, err := b.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, api.Wrap("fetch", m.Name, "", err)
	}
	defer rows.Close()

	var out []*model.Record
	for rows.Next() {
		r, err := t.scan(rows)
		if err != nil {
			return nil, api.Wrap("fetch", m.Name, "", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, api.Wrap("fetch", m.Name, "", err)
	}
	return out, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (b *SQLiteBackend) insert(ctx context.Context, ex execer, t *table, values map[string]any) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	cols := []string{`"id"`}
	args := []any{id.String()}
	for _, f := range t.model.Fields {
		if !f.IsEditable() {
			continue
		}
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		sv, err := storageValue(v, f)
		if err != nil {
			return "", err
		}
		cols = append(cols, quoteIdent(t.columns[f.Name]))
		args = append(args, sv)
	}
	if t.hasTS {
		now := b.now().UTC().Format(time.RFC3339Nano)
		cols = append(cols, `"createdAt"`, `"updatedAt"`)
		args = append(args, now, now)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(t.model.Name), strings.Join(cols, ", "), placeholders)
	if _, err := ex.ExecContext(ctx, q, args...); err != nil {
		return "", err
	}
	return id.String(), nil
}

func (b *SQLiteBackend) get(ctx context.Context, t *table, id string) (*model.Record, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE "id" = ?`, t.selectColumns(), quoteIdent(t.model.Name))
	rows, err := b.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, api.NewError(api.KindNotFound, "get", t.model.Name, id, nil)
	}
	return t.scan(rows)
}

func (b *SQLiteBackend) mustTable(ctx context.Context, op string, m model.Model) (*table, error) {
	t, ok := b.table(ctx, m.Name)
	if !ok {
		return nil, api.NewError(api.KindNotFound, op, m.Name, "", fmt.Errorf("model %q does not exist", m.Name))
	}
	return t, nil
}

// Create inserts a row with a time-ordered UUID id.
func (b *SQLiteBackend) Create(ctx context.Context, m model.Model, values map[string]any) (*model.Record, error) {
	defer metrics.Timer(metrics.Mutation)()

	t, err := b.mustTable(ctx, "create", m)
	if err != nil {
		return nil, err
	}
	id, err := b.insert(ctx, b.db, t, values)
	if err != nil {
		return nil, api.Wrap("create", m.Name, "", err)
	}
	r, err := b.get(ctx, t, id)
	if err != nil {
		return nil, api.Wrap("create", m.Name, id, err)
	}
	return r, nil
}

// Update sets one column and returns the stored row.
func (b *SQLiteBackend) Update(ctx context.Context, m model.Model, id, field string, value any) (*model.Record, error) {
	defer metrics.Timer(metrics.Mutation)()

	t, err := b.mustTable(ctx, "update", m)
	if err != nil {
		return nil, err
	}
	f, ok := t.model.Field(field)
	if !ok {
		return nil, api.NewError(api.KindValidation, "update", m.Name, id, fmt.Errorf("unknown field %q", field))
	}
	if !f.IsEditable() {
		return nil, api.NewError(api.KindValidation, "update", m.Name, id, fmt.Errorf("field %q is read-only", field))
	}
	sv, err := storageValue(value, f)
	if err != nil {
		return nil, api.Wrap("update", m.Name, id, err)
	}
	set := quoteIdent(t.columns[field]) + " = ?"
	args := []any{sv}
	if t.hasTS {
		set += `, "updatedAt" = ?`
		args = append(args, b.now().UTC().Format(time.RFC3339Nano))
	}
	args = append(args, id)
	res, err := b.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET %s WHERE "id" = ?`, quoteIdent(t.model.Name), set), args...)
	if err != nil {
		return nil, api.Wrap("update", m.Name, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, api.NewError(api.KindNotFound, "update", m.Name, id, nil)
	}
	r, err := b.get(ctx, t, id)
	if err != nil {
		return nil, api.Wrap("update", m.Name, id, err)
	}
	return r, nil
}

// Delete removes one row.
func (b *SQLiteBackend) Delete(ctx context.Context, m model.Model, id string) error {
	defer metrics.Timer(metrics.Mutation)()

	t, err := b.mustTable(ctx, "delete", m)
	if err != nil {
		return err
	}
	res, err := b.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE "id" = ?`, quoteIdent(t.model.Name)), id)
	if err != nil {
		return api.Wrap("delete", m.Name, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return api.NewError(api.KindNotFound, "delete", m.Name, id, nil)
	}
	return nil
}

// CreateMany inserts records in one transaction; any failure rolls back the
// whole chunk.
func (b *SQLiteBackend) CreateMany(ctx context.Context, m model.Model, records []map[string]any) (err error) {
	defer metrics.Timer(metrics.ImportChunk)()

	t, err := b.mustTable(ctx, "import", m)
	if err != nil {
		return err
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return api.Wrap("import", m.Name, "", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, values := range records {
		if _, err = b.insert(ctx, tx, t, values); err != nil {
			return api.Wrap("import", m.Name, "", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return api.Wrap("import", m.Name, "", err)
	}
	return nil
}

// ListModels re-reads the schema and returns every table with its row count.
func (b *SQLiteBackend) ListModels(ctx context.Context) ([]model.Model, error) {
	if err := b.refreshSchema(ctx); err != nil {
		return nil, api.Wrap("list models", "", "", err)
	}
	b.mu.RLock()
	tables := make([]*table, 0, len(b.tables))
	for _, t := range b.tables {
		tables = append(tables, t)
	}
	b.mu.RUnlock()

	out := make([]model.Model, 0, len(tables))
	for _, t := range tables {
		m := t.model
		var n int
		if err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(m.Name)).Scan(&n); err != nil {
			return nil, api.Wrap("list models", m.Name, "", err)
		}
		m.ItemCount = n
		out = append(out, m)
	}
	model.SortModels(out)
	return out, nil
}

// AddModel creates an empty table with id and timestamp columns.
func (b *SQLiteBackend) AddModel(ctx context.Context, name string) (model.Model, error) {
	if !model.ValidateModelName(name) {
		return model.Model{}, api.NewError(api.KindValidation, "add model", name, "", errors.New("name must start with an uppercase letter and contain only letters and digits"))
	}
	if _, ok := b.table(ctx, name); ok {
		return model.Model{}, api.NewError(api.KindValidation, "add model", name, "", errors.New("model already exists"))
	}
	q := fmt.Sprintf(`CREATE TABLE %s ("id" TEXT PRIMARY KEY NOT NULL, "createdAt" DATETIME, "updatedAt" DATETIME)`, quoteIdent(name))
	if _, err := b.db.ExecContext(ctx, q); err != nil {
		return model.Model{}, api.Wrap("add model", name, "", err)
	}
	if err := b.refreshSchema(ctx); err != nil {
		return model.Model{}, api.Wrap("add model", name, "", err)
	}
	t, _ := b.table(ctx, name)
	return t.model, nil
}
