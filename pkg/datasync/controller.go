// Package datasync is the only place the browser talks to a backend. It
// turns intents into tea.Cmds and reconciles their results into the stores.
//
// Every reload, filter change and order change starts a new generation.
// Each command carries the generation it was issued under, and Apply drops
// window results from older generations without reporting them.
package datasync

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/vanderheijden86/gcbrowse/pkg/api"
	"github.com/vanderheijden86/gcbrowse/pkg/debug"
	"github.com/vanderheijden86/gcbrowse/pkg/metrics"
	"github.com/vanderheijden86/gcbrowse/pkg/model"
	"github.com/vanderheijden86/gcbrowse/pkg/store"
)

const (
	DefaultPageSize    = 50
	DefaultChunkSize   = 10
	DefaultConcurrency = 8
)

// Phase is the loading lifecycle of the controller.
type Phase int

const (
	Idle Phase = iota
	Loading
)

func (p Phase) String() string {
	if p == Loading {
		return "loading"
	}
	return "idle"
}

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	PageSize    int
	ChunkSize   int
	Concurrency int
	Notifier    Notifier
	Progress    ProgressSink
	Tracker     Tracker
}

// Controller owns the browser state for one model at a time.
type Controller struct {
	ctx      context.Context
	api      api.RecordAPI
	state    *store.State
	model    model.Model
	notifier Notifier
	progress ProgressSink
	tracker  Tracker

	pageSize    int
	chunkSize   int
	concurrency int
	chunkSem    *semaphore.Weighted

	generation  uint64
	inflight    int
	batchSeq    uint64
	imports     map[uint64]*importBatch
	failedPages []store.Range
}

// New creates a controller over backend and st.
func New(ctx context.Context, backend api.RecordAPI, st *store.State, opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Notifier == nil {
		opts.Notifier = logNotifier{}
	}
	if opts.Progress == nil {
		opts.Progress = nopProgress{}
	}
	if opts.Tracker == nil {
		opts.Tracker = DebugTracker{}
	}
	return &Controller{
		ctx:         ctx,
		api:         backend,
		state:       st,
		notifier:    opts.Notifier,
		progress:    opts.Progress,
		tracker:     opts.Tracker,
		pageSize:    opts.PageSize,
		chunkSize:   opts.ChunkSize,
		concurrency: opts.Concurrency,
		chunkSem:    semaphore.NewWeighted(int64(opts.Concurrency)),
		imports:     make(map[uint64]*importBatch),
	}
}

// State returns the stores the controller reconciles into.
func (c *Controller) State() *store.State { return c.state }

// Model returns the model being browsed.
func (c *Controller) Model() model.Model { return c.model }

// Generation returns the current reload generation.
func (c *Controller) Generation() uint64 { return c.generation }

// PageSize returns the number of rows fetched per page.
func (c *Controller) PageSize() int { return c.pageSize }

// Phase reports Loading while any command is outstanding.
func (c *Controller) Phase() Phase {
	if c.inflight > 0 {
		return Loading
	}
	return Idle
}

// Inflight returns the number of outstanding commands.
func (c *Controller) Inflight() int { return c.inflight }

// SetModel switches to m, resetting every store, and reloads from the top.
func (c *Controller) SetModel(m model.Model) tea.Cmd {
	c.state.Reset()
	c.model = m
	c.tracker.Track("models/browser: viewed", map[string]any{"model": m.Name})
	return c.Reload(0)
}

// Reload starts a new generation: it invalidates the window, clears the
// selection and fetches the count, then the page at fromIndex.
func (c *Controller) Reload(fromIndex int) tea.Cmd {
	if fromIndex < 0 {
		fromIndex = 0
	}
	c.generation++
	gen := c.generation
	c.state.Window.Invalidate()
	c.state.Selection.Clear()
	c.failedPages = nil
	c.state.Prefs.SetLoading(true)
	metrics.Reloads.Inc()
	debug.Log("datasync: reload %s from=%d gen=%d", c.model.Name, fromIndex, gen)

	m, filter := c.model, c.state.Window.Filter()
	c.inflight++
	return func() tea.Msg {
		n, err := c.api.FetchCount(c.ctx, m, filter)
		return countMsg{gen: gen, from: fromIndex, count: n, err: err}
	}
}

// TakeFailedPages returns the row ranges whose page requests failed in the
// current generation since the last call, and forgets them.
func (c *Controller) TakeFailedPages() []store.Range {
	out := c.failedPages
	c.failedPages = nil
	return out
}

// LoadMore fetches rows [skip, skip+first) under the current generation.
// Concurrent calls for disjoint ranges are independent; overlapping calls
// are not deduplicated.
func (c *Controller) LoadMore(skip, first int) tea.Cmd {
	if first <= 0 {
		first = c.pageSize
	}
	if skip < 0 {
		skip = 0
	}
	return c.fetchPage(c.generation, skip, first, false)
}

func (c *Controller) fetchPage(gen uint64, skip, first int, reload bool) tea.Cmd {
	m, filter, order := c.model, c.state.Window.Filter(), c.state.Window.Order()
	c.inflight++
	return func() tea.Msg {
		recs, err := c.api.FetchPage(c.ctx, m, filter, order, skip, first)
		return pageMsg{gen: gen, skip: skip, first: first, records: recs, reload: reload, err: err}
	}
}

// SetFilter sets one field predicate and reloads from the top.
func (c *Controller) SetFilter(field string, value any) tea.Cmd {
	c.state.Window.SetFilter(c.state.Window.Filter().With(field, value))
	return c.Reload(0)
}

// SetOrderAndReload replaces the ordering and reloads from the top.
func (c *Controller) SetOrderAndReload(order model.OrderBy) tea.Cmd {
	c.state.Window.SetOrder(order)
	return c.Reload(0)
}

// AddNode opens the new-row form. A model without editable fields has
// nothing to fill in, so its record is created from defaults directly.
func (c *Controller) AddNode() tea.Cmd {
	if c.model.FirstInputField() >= 0 {
		c.state.Prefs.ToggleNewRowForm()
		return nil
	}
	return c.Create(model.DefaultFieldValues(c.model.Fields))
}

// Create submits a record. Success grows the count by one and reloads from
// the top; failure leaves the new-row form open.
func (c *Controller) Create(values map[string]any) tea.Cmd {
	gen, m := c.generation, c.model
	c.inflight++
	return func() tea.Msg {
		rec, err := c.api.Create(c.ctx, m, values)
		return createdMsg{gen: gen, model: m.Name, record: rec, err: err}
	}
}

// Update submits one field change. The window is only updated from the
// record the backend acknowledges.
func (c *Controller) Update(field string, value any, id string, index int) tea.Cmd {
	gen, m := c.generation, c.model
	c.inflight++
	return func() tea.Msg {
		rec, err := c.api.Update(c.ctx, m, id, field, value)
		return updatedMsg{gen: gen, id: id, index: index, field: field, record: rec, err: err}
	}
}

// Delete removes ids with one request each, clears the selection as soon as
// the batch is issued, and reloads once after every request settles.
func (c *Controller) Delete(ids []string) tea.Cmd {
	if len(ids) == 0 {
		return nil
	}
	ids = append([]string(nil), ids...)
	m := c.model
	c.state.Selection.Clear()
	c.state.Prefs.SetLoading(true)
	c.inflight++
	debug.Log("datasync: delete %d %s", len(ids), m.Name)

	limit := c.concurrency
	return func() tea.Msg {
		defer metrics.Timer(metrics.BatchDelete)()
		errs := make([]error, len(ids))
		var g errgroup.Group
		g.SetLimit(limit)
		for i, id := range ids {
			g.Go(func() error {
				errs[i] = c.api.Delete(c.ctx, m, id)
				return nil
			})
		}
		g.Wait()
		return deletedMsg{model: m.Name, ids: ids, errs: errs}
	}
}

type importBatch struct {
	id       uint64
	model    string
	total    int
	records  int
	done     int
	failures []error
}

// Import merges each raw record over the field defaults and creates them in
// ceil(N/chunkSize) chunked requests. Progress advances per settled chunk
// and one reload follows the last.
func (c *Controller) Import(raw []map[string]any) tea.Cmd {
	m := c.model
	values := make([]map[string]any, len(raw))
	for i, r := range raw {
		values[i] = model.MergeDefaults(m.Fields, r)
	}
	chunks := Chunk(values, c.chunkSize)

	c.batchSeq++
	b := &importBatch{id: c.batchSeq, model: m.Name, total: len(chunks), records: len(values)}
	c.progress.StartProgress(b.total)
	debug.Log("datasync: import %d records into %s in %d chunks", len(values), m.Name, b.total)

	if b.total == 0 {
		c.progress.FinishProgress()
		return c.Reload(0)
	}
	c.imports[b.id] = b
	c.inflight++

	cmds := make([]tea.Cmd, len(chunks))
	for i, chunk := range chunks {
		cmds[i] = func() tea.Msg {
			if err := c.chunkSem.Acquire(c.ctx, 1); err != nil {
				return chunkMsg{batch: b.id, index: i, err: err}
			}
			defer c.chunkSem.Release(1)
			return chunkMsg{batch: b.id, index: i, err: c.api.CreateMany(c.ctx, m, chunk)}
		}
	}
	return tea.Batch(cmds...)
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

func (c *Controller) notifyErr(err error) {
	c.notifier.Notify(Notification{Message: describe(err), Level: LevelError})
}

// describe renders err for the user with its kind.
func describe(err error) string {
	switch api.Classify(err) {
	case api.KindNetwork:
		return fmt.Sprintf("Network error: %v", err)
	case api.KindNotFound:
		return fmt.Sprintf("Not found: %v", err)
	case api.KindValidation:
		return fmt.Sprintf("Rejected: %v", err)
	default:
		return err.Error()
	}
}
