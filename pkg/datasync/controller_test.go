package datasync

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"pgregory.net/rapid"

	"github.com/vanderheijden86/gcbrowse/pkg/model"
	"github.com/vanderheijden86/gcbrowse/pkg/store"
	"github.com/vanderheijden86/gcbrowse/pkg/testutil"
)

type recorder struct {
	notes    []Notification
	started  []int
	incs     int
	finished int
	events   []string
	props    []map[string]any
}

func (r *recorder) Notify(n Notification)    { r.notes = append(r.notes, n) }
func (r *recorder) StartProgress(total int) { r.started = append(r.started, total) }
func (r *recorder) IncrementProgress()      { r.incs++ }
func (r *recorder) FinishProgress()         { r.finished++ }
func (r *recorder) Track(event string, props map[string]any) {
	r.events = append(r.events, event)
	r.props = append(r.props, props)
}

func (r *recorder) errors() int {
	n := 0
	for _, note := range r.notes {
		if note.Level == LevelError {
			n++
		}
	}
	return n
}

func newController(t testing.TB, records int) (*Controller, *testutil.Memory, *recorder) {
	post := testutil.PostModel()
	mem := testutil.NewMemory(post, testutil.UserModel())
	mem.Seed("Post", testutil.NewDefault().Records(post, records))
	rec := &recorder{}
	c := New(context.Background(), mem, store.NewState(), Options{Notifier: rec, Progress: rec, Tracker: rec})
	return c, mem, rec
}

// run executes cmd, flattening batches, and returns the produced messages.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, sub := range batch {
			out = append(out, run(sub)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// settle runs cmd and every follow-up command until the controller is idle.
func settle(t testing.TB, c *Controller, cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, msg := range run(next) {
			follow, ok := c.Apply(msg)
			if !ok {
				t.Fatalf("controller did not handle %T", msg)
			}
			queue = append(queue, follow)
		}
	}
}

func TestReloadLoadsFirstPage(t *testing.T) {
	c, mem, _ := newController(t, 120)
	settle(t, c, c.SetModel(testutil.PostModel()))

	st := c.State()
	testutil.AssertItemCount(t, st.Window, 120)
	testutil.AssertLoadedRange(t, st.Window, 0, 50)
	if st.Prefs.Loading() {
		t.Error("expected loading=false after reload")
	}
	if c.Phase() != Idle {
		t.Errorf("expected idle, got %s", c.Phase())
	}
	if mem.Calls("FetchCount") != 1 || mem.Calls("FetchPage") != 1 {
		t.Errorf("expected one count and one page fetch, got %d/%d", mem.Calls("FetchCount"), mem.Calls("FetchPage"))
	}
}

func TestReloadEmptyModel(t *testing.T) {
	c, _, _ := newController(t, 0)
	cmd := c.SetModel(testutil.PostModel())
	if c.Phase() != Loading || !c.State().Prefs.Loading() {
		t.Fatal("expected loading while the reload is in flight")
	}
	settle(t, c, cmd)

	st := c.State()
	testutil.AssertItemCount(t, st.Window, 0)
	if len(st.Window.LoadedList()) != 0 {
		t.Errorf("expected zero rows, got %d", len(st.Window.LoadedList()))
	}
	if st.Prefs.Loading() {
		t.Error("expected loading=false")
	}
}

func TestReloadFromIndex(t *testing.T) {
	c, _, _ := newController(t, 120)
	settle(t, c, c.SetModel(testutil.PostModel()))
	settle(t, c, c.Dispatch(ReloadIntent{FromIndex: 60}))
	testutil.AssertLoadedRange(t, c.State().Window, 60, 110)
}

func TestReloadCountFailure(t *testing.T) {
	c, mem, rec := newController(t, 120)
	mem.FailCount = errors.New("connection refused")
	settle(t, c, c.SetModel(testutil.PostModel()))

	if rec.errors() != 1 {
		t.Errorf("expected one error notification, got %d", rec.errors())
	}
	if c.State().Prefs.Loading() || c.Phase() != Idle {
		t.Errorf("expected idle after a failed count, loading=%v phase=%s", c.State().Prefs.Loading(), c.Phase())
	}
	if mem.Calls("FetchPage") != 0 {
		t.Errorf("no page should be requested after a failed count, got %d", mem.Calls("FetchPage"))
	}
}

func TestReloadPageFailure(t *testing.T) {
	c, mem, rec := newController(t, 120)
	mem.FailPage = errors.New("connection reset")
	settle(t, c, c.SetModel(testutil.PostModel()))

	st := c.State()
	testutil.AssertItemCount(t, st.Window, 120)
	if st.Window.LoadedCount() != 0 {
		t.Errorf("expected no loaded rows, got %d", st.Window.LoadedCount())
	}
	if st.Prefs.Loading() || c.Phase() != Idle {
		t.Errorf("expected idle after a failed page, loading=%v phase=%s", st.Prefs.Loading(), c.Phase())
	}
	if rec.errors() != 1 {
		t.Errorf("expected one error notification, got %d", rec.errors())
	}
	if got := c.TakeFailedPages(); len(got) != 1 || got[0] != (store.Range{Start: 0, Stop: 50}) {
		t.Errorf("failed pages = %v", got)
	}
	if got := c.TakeFailedPages(); len(got) != 0 {
		t.Errorf("failed pages should be taken once, got %v", got)
	}
}

func TestFailedPagesForgottenOnReload(t *testing.T) {
	c, mem, _ := newController(t, 120)
	settle(t, c, c.SetModel(testutil.PostModel()))

	mem.FailPage = errors.New("timeout")
	settle(t, c, c.LoadMore(50, 50))
	if got := c.TakeFailedPages(); len(got) != 1 || got[0] != (store.Range{Start: 50, Stop: 100}) {
		t.Fatalf("failed pages = %v", got)
	}

	settle(t, c, c.LoadMore(100, 20))
	mem.FailPage = nil
	settle(t, c, c.Reload(0))
	if got := c.TakeFailedPages(); len(got) != 0 {
		t.Errorf("reload should forget failed pages, got %v", got)
	}
	testutil.AssertLoadedRange(t, c.State().Window, 0, 50)
}

func TestLoadMoreWithoutPriorLoad(t *testing.T) {
	c, _, _ := newController(t, 120)
	msgs := run(c.SetModel(testutil.PostModel()))
	if _, ok := c.Apply(msgs[0]); !ok { // count only; the first page is never fetched
		t.Fatal("count message not handled")
	}
	testutil.AssertItemCount(t, c.State().Window, 120)

	settle(t, c, c.LoadMore(50, 50))
	testutil.AssertLoadedRange(t, c.State().Window, 50, 100)
}

func TestStaleResponsesAreDiscarded(t *testing.T) {
	c, _, rec := newController(t, 120)
	settle(t, c, c.SetModel(testutil.PostModel()))

	g1 := run(c.Reload(0))
	loadMore := run(c.LoadMore(50, 50))
	g2 := c.SetFilter("title", "title 1")
	if c.Generation() != 3 {
		t.Fatalf("expected generation 3, got %d", c.Generation())
	}

	// Responses of the superseded generation arrive first.
	for _, msg := range append(g1, loadMore...) {
		if follow, _ := c.Apply(msg); follow != nil {
			t.Error("stale response must not schedule follow-up work")
		}
	}
	if c.State().Window.LoadedCount() != 0 {
		t.Error("stale page must not populate the window")
	}
	if !c.State().Prefs.Loading() {
		t.Error("stale response must not clear the loading flag of the newer reload")
	}

	settle(t, c, g2)
	testutil.AssertItemCount(t, c.State().Window, 31) // title 1, 10..19, 100..119
	testutil.AssertLoadedRange(t, c.State().Window, 0, 31)
	if len(rec.notes) != 0 {
		t.Errorf("stale responses must not notify, got %v", rec.notes)
	}
	if c.Phase() != Idle {
		t.Errorf("expected idle, got %s (inflight=%d)", c.Phase(), c.Inflight())
	}
}

func TestToggleSort(t *testing.T) {
	c, _, _ := newController(t, 5)
	settle(t, c, c.SetModel(testutil.PostModel()))

	settle(t, c, c.Dispatch(ToggleSortIntent{Field: "id"}))
	if o := c.State().Window.Order(); o.Direction != model.DESC {
		t.Errorf("expected id DESC, got %s", o)
	}
	if c.State().Window.Record(0).ID != "Post-0004" {
		t.Errorf("expected Post-0004 first, got %s", c.State().Window.Record(0).ID)
	}
	settle(t, c, c.Dispatch(ToggleSortIntent{Field: "title"}))
	if o := c.State().Window.Order(); o != (model.OrderBy{FieldName: "title", Direction: model.ASC}) {
		t.Errorf("expected title ASC, got %s", o)
	}
}

func TestDeleteSelected(t *testing.T) {
	c, mem, rec := newController(t, 10)
	settle(t, c, c.SetModel(testutil.PostModel()))
	countsBefore := mem.Calls("FetchCount")

	ids := []string{"Post-0001", "Post-0002", "Post-0003"}
	for _, id := range ids {
		c.Dispatch(ToggleSelectionIntent{ID: id})
	}
	mem.FailDelete["Post-0002"] = errors.New("graphql: insufficient permissions, invalid token")

	cmd := c.Dispatch(DeleteSelectedIntent{})
	if c.State().Selection.Len() != 0 {
		t.Error("selection must be cleared when the batch is issued")
	}
	if !c.State().Prefs.Loading() {
		t.Error("expected loading while deleting")
	}
	for _, ev := range rec.events {
		if ev == "models/browser: deleted node" {
			t.Fatal("deletion must be tracked only after the batch settles")
		}
	}
	settle(t, c, cmd)

	if mem.Calls("Delete") != 3 {
		t.Errorf("expected 3 delete calls, got %d", mem.Calls("Delete"))
	}
	if got := mem.Calls("FetchCount") - countsBefore; got != 1 {
		t.Errorf("expected exactly one reload, got %d", got)
	}
	testutil.AssertItemCount(t, c.State().Window, 8)
	if c.State().Selection.Len() != 0 {
		t.Error("expected empty selection")
	}
	if rec.errors() != 1 {
		t.Errorf("expected one failure notification, got %d", rec.errors())
	}
	last := rec.props[len(rec.props)-1]
	if rec.events[len(rec.events)-1] != "models/browser: deleted node" || last["deleted"] != 2 || last["failed"] != 1 {
		t.Errorf("unexpected tracking %v %v", rec.events, last)
	}
}

func TestImportChunksAndSingleReload(t *testing.T) {
	c, mem, rec := newController(t, 0)
	settle(t, c, c.SetModel(testutil.PostModel()))
	countsBefore := mem.Calls("FetchCount")

	raw := testutil.NewDefault().Values(testutil.PostModel(), 25)
	mem.FailCreateMany = func(call int) error {
		if call == 1 {
			return errors.New("graphql: invalid value for field 'title'")
		}
		return nil
	}
	settle(t, c, c.Dispatch(ImportIntent{Records: raw}))

	if mem.Calls("CreateMany") != 3 {
		t.Errorf("expected 3 chunks, got %d", mem.Calls("CreateMany"))
	}
	if got := mem.Calls("FetchCount") - countsBefore; got != 1 {
		t.Errorf("expected exactly one reload, got %d", got)
	}
	if len(rec.started) != 1 || rec.started[0] != 3 || rec.incs != 3 || rec.finished != 1 {
		t.Errorf("unexpected progress: started=%v incs=%d finished=%d", rec.started, rec.incs, rec.finished)
	}
	if rec.errors() != 1 {
		t.Errorf("expected one chunk failure reported, got %d", rec.errors())
	}
	testutil.AssertItemCount(t, c.State().Window, 15)
	if c.Phase() != Idle {
		t.Errorf("expected idle, got %s", c.Phase())
	}
}

func TestImportMergesDefaults(t *testing.T) {
	c, mem, _ := newController(t, 0)
	settle(t, c, c.SetModel(testutil.PostModel()))
	settle(t, c, c.Import([]map[string]any{{"title": "only title"}}))

	page, _ := mem.FetchPage(context.Background(), testutil.PostModel(), nil, model.DefaultOrder(), 0, 1)
	if len(page) != 1 {
		t.Fatalf("expected one record, got %d", len(page))
	}
	if v, _ := page[0].Get("views"); v != int64(0) {
		t.Errorf("expected default views=0, got %v", v)
	}
	if v, _ := page[0].Get("published"); v != false {
		t.Errorf("expected default published=false, got %v", v)
	}
}

func TestImportChunkCountProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 95).Draw(rt, "n")
		c, mem, _ := newController(t, 0)
		settle(t, c, c.SetModel(testutil.PostModel()))
		before := mem.Calls("FetchCount")

		settle(t, c, c.Import(testutil.NewDefault().Values(testutil.PostModel(), n)))

		want := (n + 9) / 10
		if got := mem.Calls("CreateMany"); got != want {
			rt.Fatalf("n=%d: expected %d chunks, got %d", n, want, got)
		}
		if got := mem.Calls("FetchCount") - before; got != 1 {
			rt.Fatalf("n=%d: expected one reload, got %d", n, got)
		}
		if c.State().Window.ItemCount() != n {
			rt.Fatalf("n=%d: window holds %d", n, c.State().Window.ItemCount())
		}
	})
}

func TestCreate(t *testing.T) {
	c, mem, rec := newController(t, 2)
	settle(t, c, c.SetModel(testutil.PostModel()))

	c.Dispatch(AddNodeIntent{})
	if !c.State().Prefs.NewRowFormVisible() {
		t.Fatal("expected the new-row form to open")
	}

	mem.FailCreate = errors.New("graphql: title is required")
	settle(t, c, c.Dispatch(CreateIntent{Values: map[string]any{"published": true}}))
	if !c.State().Prefs.NewRowFormVisible() {
		t.Error("failed create must leave the form open")
	}
	if rec.errors() != 1 {
		t.Errorf("expected one error notification, got %d", rec.errors())
	}

	mem.FailCreate = nil
	cmd := c.Dispatch(CreateIntent{Values: map[string]any{"title": "new", "published": true}})
	msgs := run(cmd)
	follow, _ := c.Apply(msgs[0])
	testutil.AssertItemCount(t, c.State().Window, 3)
	if c.State().Prefs.NewRowFormVisible() {
		t.Error("successful create must close the form")
	}
	settle(t, c, follow)
	testutil.AssertItemCount(t, c.State().Window, 3)
	testutil.AssertLoadedRange(t, c.State().Window, 0, 3)
}

func TestAddNodeWithoutInputFields(t *testing.T) {
	bare := model.Model{Name: "Tag", NamePlural: "Tags", Fields: []model.Field{
		{Name: "id", TypeIdentifier: model.TypeID, IsReadonly: true},
	}}
	mem := testutil.NewMemory(bare)
	c := New(context.Background(), mem, store.NewState(), Options{Notifier: &recorder{}})
	settle(t, c, c.SetModel(bare))

	settle(t, c, c.Dispatch(AddNodeIntent{}))
	if c.State().Prefs.NewRowFormVisible() {
		t.Error("no form expected for a model without input fields")
	}
	if mem.Calls("Create") != 1 {
		t.Errorf("expected a direct create, got %d", mem.Calls("Create"))
	}
	testutil.AssertItemCount(t, c.State().Window, 1)
}

func TestUpdateIsNotOptimistic(t *testing.T) {
	c, mem, rec := newController(t, 3)
	settle(t, c, c.SetModel(testutil.PostModel()))

	cmd := c.Dispatch(UpdateIntent{Field: "title", Value: "edited", ID: "Post-0001", Index: 1})
	if v, _ := c.State().Window.Record(1).Get("title"); v == "edited" {
		t.Fatal("value must not change before the backend acknowledges it")
	}
	settle(t, c, cmd)
	if v, _ := c.State().Window.Record(1).Get("title"); v != "edited" {
		t.Errorf("expected acknowledged value, got %v", v)
	}

	mem.FailUpdate = errors.New("graphql: invalid value")
	settle(t, c, c.Dispatch(UpdateIntent{Field: "title", Value: "nope", ID: "Post-0002", Index: 2}))
	if len(rec.notes) != 1 {
		t.Fatalf("expected one notification, got %d", len(rec.notes))
	}
	revert, ok := rec.notes[0].Revert.(LoadMoreIntent)
	if !ok || revert.Skip != 2 || revert.First != 1 {
		t.Fatalf("expected a single-row revert, got %#v", rec.notes[0].Revert)
	}
	fetches := mem.Calls("FetchPage")
	settle(t, c, c.Dispatch(revert))
	if mem.Calls("FetchPage") != fetches+1 {
		t.Error("revert should refetch the row")
	}
}

func TestUpdateAfterReloadIsDropped(t *testing.T) {
	c, _, _ := newController(t, 3)
	settle(t, c, c.SetModel(testutil.PostModel()))

	msgs := run(c.Update("title", "late", "Post-0000", 0))
	reload := c.Reload(0) // window invalidated, nothing loaded yet
	c.Apply(msgs[0])
	settle(t, c, reload)
	if v, _ := c.State().Window.Record(0).Get("title"); v != "late" {
		t.Errorf("reloaded row should carry the server value, got %v", v)
	}
}

func TestSelectAllAndPrefsIntents(t *testing.T) {
	c, _, _ := newController(t, 4)
	settle(t, c, c.SetModel(testutil.PostModel()))
	st := c.State()

	c.Dispatch(SelectAllIntent{Checked: true})
	if !st.AllLoadedSelected() {
		t.Error("expected every loaded row selected")
	}
	c.Dispatch(SelectAllIntent{Checked: false})
	if st.Selection.Len() != 0 {
		t.Error("expected empty selection")
	}
	c.Dispatch(ToggleFiltersIntent{})
	c.Dispatch(ToggleNewRowIntent{})
	c.Dispatch(ScrollIntent{Top: -3})
	if !st.Prefs.FiltersVisible() || !st.Prefs.NewRowFormVisible() || st.Prefs.ScrollTop() != 0 {
		t.Errorf("unexpected prefs %+v", *st.Prefs)
	}
}

func TestDispatchHandlesEveryIntent(t *testing.T) {
	intents := []Intent{
		ReloadIntent{}, LoadMoreIntent{Skip: 0, First: 1}, SetFilterIntent{Field: "title", Value: "x"},
		SetOrderIntent{Order: model.DefaultOrder()}, ToggleSortIntent{Field: "title"}, AddNodeIntent{},
		CreateIntent{Values: map[string]any{"title": "t"}}, UpdateIntent{Field: "title", Value: "v", ID: "Post-0000"},
		DeleteIntent{IDs: []string{"Post-0000"}}, DeleteSelectedIntent{}, ImportIntent{},
		ToggleSelectionIntent{ID: "a"}, SelectAllIntent{}, ToggleFiltersIntent{}, ToggleNewRowIntent{}, ScrollIntent{Top: 1},
	}
	c, _, _ := newController(t, 2)
	settle(t, c, c.SetModel(testutil.PostModel()))
	for _, in := range intents {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("%T panicked: %v", in, r)
				}
			}()
			settle(t, c, c.Dispatch(in))
		}()
	}
}

func TestChunk(t *testing.T) {
	chunks := Chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(chunks) != 3 || len(chunks[2]) != 1 {
		t.Errorf("unexpected chunks %v", chunks)
	}
	if len(Chunk([]int{}, 10)) != 0 {
		t.Error("empty input should produce no chunks")
	}
}
