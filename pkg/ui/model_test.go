package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/gcbrowse/pkg/config"
	"github.com/vanderheijden86/gcbrowse/pkg/datasync"
	"github.com/vanderheijden86/gcbrowse/pkg/model"
	"github.com/vanderheijden86/gcbrowse/pkg/testutil"
)

type eventRecorder struct {
	events []string
}

func (r *eventRecorder) Track(event string, _ map[string]any) {
	r.events = append(r.events, event)
}

type browserFixture struct {
	m       Model
	mem     *testutil.Memory
	tracker *eventRecorder
}

func newFixture(t *testing.T, opts Options) *browserFixture {
	t.Helper()
	post := testutil.PostModel()
	mem := testutil.NewMemory(post, testutil.UserModel())
	mem.Seed("Post", testutil.NewDefault().Records(post, 120))
	tracker := &eventRecorder{}

	opts.Context = context.Background()
	opts.Project = "blog"
	opts.Records = mem
	opts.Schema = mem
	opts.Config = config.DefaultConfig()
	opts.Tracker = tracker
	opts.Renderer = lipgloss.NewRenderer(io.Discard)

	f := &browserFixture{m: NewModel(opts), mem: mem, tracker: tracker}
	f.send(t, tea.WindowSizeMsg{Width: 120, Height: 30})
	f.drain(t, f.m.loadModelsCmd())
	return f
}

// exec runs cmd with a deadline; timers and blink ticks never finish in time
// and are dropped.
func exec(cmd tea.Cmd) tea.Msg {
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		return msg
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// drain feeds cmd and every follow-up command through Update until no work
// is left.
func (f *browserFixture) drain(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 1000 {
			t.Fatal("commands did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := exec(next).(type) {
		case nil, spinner.TickMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			updated, follow := f.m.Update(msg)
			f.m = updated.(Model)
			queue = append(queue, follow)
		}
	}
}

func (f *browserFixture) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	updated, cmd := f.m.Update(msg)
	f.m = updated.(Model)
	return cmd
}

// press sends each key and drains what it triggers.
func (f *browserFixture) press(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		f.drain(t, f.send(t, keyMsg(k)))
	}
}

// typeText sends s as a single paste into the focused input.
func (f *browserFixture) typeText(t *testing.T, s string) {
	t.Helper()
	f.drain(t, f.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}))
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+x":
		return tea.KeyMsg{Type: tea.KeyCtrlX}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// containsQuit reports whether cmd, or any command batched in it, quits.
func containsQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	switch msg := exec(cmd).(type) {
	case tea.QuitMsg:
		return true
	case tea.BatchMsg:
		for _, sub := range msg {
			if containsQuit(sub) {
				return true
			}
		}
	}
	return false
}

func TestBrowserOpensFirstModel(t *testing.T) {
	f := newFixture(t, Options{})
	st := f.m.State()

	assert.Equal(t, "Post", f.m.Controller().Model().Name)
	assert.Equal(t, 120, st.Window.ItemCount())
	assert.True(t, st.Window.IsLoaded(0))
	assert.Len(t, f.m.sideNav.Models(), 2)
	assert.Equal(t, datasync.Idle, f.m.Controller().Phase())
	assert.Contains(t, f.tracker.events, "models/browser: viewed")
}

func TestBrowserOpensRequestedModel(t *testing.T) {
	f := newFixture(t, Options{Model: "user"})
	assert.Equal(t, "User", f.m.Controller().Model().Name)
	assert.Equal(t, 0, f.m.State().Window.ItemCount())
}

func TestBrowserScrollLoadsRows(t *testing.T) {
	f := newFixture(t, Options{})
	w := f.m.State().Window
	require.False(t, w.IsLoaded(119))

	f.press(t, "G")
	assert.Equal(t, 119, f.m.cursorRow)
	assert.True(t, w.IsLoaded(119))
	assert.Equal(t, "Post-0119", w.Record(119).ID)
	assert.Positive(t, f.m.State().Prefs.ScrollTop())

	f.press(t, "g")
	assert.Equal(t, 0, f.m.cursorRow)
	assert.Equal(t, 0, f.m.State().Prefs.ScrollTop())
}

func TestBrowserDeleteSelected(t *testing.T) {
	f := newFixture(t, Options{})
	f.press(t, " ", "j", " ")
	require.Equal(t, 2, f.m.State().Selection.Len())

	f.press(t, "d")
	require.Equal(t, focusConfirm, f.m.focus)
	assert.Equal(t, confirmDeleteSelected, f.m.confirm.action)
	assert.Len(t, f.m.confirm.ids, 2)

	f.press(t, "y")
	assert.Equal(t, focusTable, f.m.focus)
	assert.Equal(t, 2, f.mem.Calls("Delete"))
	assert.Equal(t, 118, f.mem.Count("Post"))
	assert.Equal(t, 118, f.m.State().Window.ItemCount())
	assert.Zero(t, f.m.State().Selection.Len())
	assert.Contains(t, f.tracker.events, "models/browser: deleted node")
}

func TestBrowserDeleteSurvivesReload(t *testing.T) {
	f := newFixture(t, Options{})
	f.press(t, " ", "j", " ")
	f.press(t, "d")
	require.Equal(t, focusConfirm, f.m.focus)

	// The file watcher reloads while the dialog is open and clears the selection.
	f.drain(t, f.send(t, FileChangedMsg{}))
	require.Zero(t, f.m.State().Selection.Len())
	require.Equal(t, focusConfirm, f.m.focus)

	f.press(t, "y")
	assert.Equal(t, 2, f.mem.Calls("Delete"))
	assert.Equal(t, 118, f.mem.Count("Post"))
	assert.Equal(t, 118, f.m.State().Window.ItemCount())
}

func TestBrowserShrinkKeepsRowsInView(t *testing.T) {
	f := newFixture(t, Options{})
	f.press(t, "G")
	require.Positive(t, f.m.topRow())

	f.mem.Seed("Post", testutil.NewDefault().Records(testutil.PostModel(), 20))
	f.drain(t, f.send(t, FileChangedMsg{}))

	w := f.m.State().Window
	assert.Equal(t, 20, w.ItemCount())
	assert.Equal(t, 19, f.m.cursorRow)
	assert.Less(t, f.m.topRow(), 20)
	assert.True(t, w.IsLoaded(f.m.topRow()))
	assert.True(t, w.IsLoaded(19))
}

func TestBrowserRetriesFailedPages(t *testing.T) {
	f := newFixture(t, Options{})
	f.mem.FailPage = errors.New("connection reset")
	f.press(t, "G")

	w := f.m.State().Window
	require.False(t, w.IsLoaded(119))
	failed := f.m.loader.Pending()
	require.NotEmpty(t, failed)
	assert.False(t, f.m.State().Prefs.Loading())

	// Still pending: scrolling does not request the failed range again.
	calls := f.mem.Calls("FetchPage")
	f.press(t, "k")
	assert.Equal(t, calls, f.mem.Calls("FetchPage"))

	f.mem.FailPage = nil
	f.drain(t, f.send(t, retryPagesMsg{gen: f.m.Controller().Generation(), ranges: failed}))
	assert.True(t, w.IsLoaded(119))
	assert.Equal(t, "Post-0119", w.Record(119).ID)
}

func TestBrowserDeleteCancelled(t *testing.T) {
	f := newFixture(t, Options{})
	f.press(t, "d")
	require.Equal(t, focusConfirm, f.m.focus)

	f.press(t, "n")
	assert.Equal(t, focusTable, f.m.focus)
	assert.Zero(t, f.mem.Calls("Delete"))
	assert.Equal(t, 120, f.mem.Count("Post"))
}

func TestBrowserSortToggle(t *testing.T) {
	f := newFixture(t, Options{})
	w := f.m.State().Window

	f.press(t, "l", "s")
	assert.Equal(t, "title_ASC", w.Order().String())

	f.press(t, "s")
	assert.Equal(t, "title_DESC", w.Order().String())
	v, _ := w.Record(0).Get("title")
	assert.Equal(t, "title 99", v)
}

func TestBrowserFilterColumn(t *testing.T) {
	f := newFixture(t, Options{})
	f.press(t, "l", "/")
	require.Equal(t, focusInput, f.m.focus)
	assert.True(t, f.m.State().Prefs.FiltersVisible())

	f.typeText(t, "title 1")
	f.press(t, "enter")
	assert.Equal(t, focusTable, f.m.focus)
	assert.Equal(t, 31, f.m.State().Window.ItemCount())
	assert.Contains(t, f.m.View(), "filter title")

	// the side nav keeps the unfiltered count
	for _, md := range f.m.sideNav.Models() {
		if md.Name == "Post" {
			assert.Equal(t, 120, md.ItemCount)
		}
	}
}

func TestBrowserCreateFromForm(t *testing.T) {
	f := newFixture(t, Options{})
	f.press(t, "n")
	require.True(t, f.m.formActive)
	require.Equal(t, focusForm, f.m.focus)
	assert.Contains(t, f.m.View(), "New Post")

	f.typeText(t, "hello")
	f.press(t, "ctrl+s")

	assert.Equal(t, 1, f.mem.Calls("Create"))
	assert.Equal(t, 121, f.mem.Count("Post"))
	assert.Equal(t, 121, f.m.State().Window.ItemCount())
	assert.False(t, f.m.formActive)
	assert.Equal(t, focusTable, f.m.focus)
}

func TestBrowserCreateValidation(t *testing.T) {
	f := newFixture(t, Options{})
	f.press(t, "n", "ctrl+s")

	assert.Zero(t, f.mem.Calls("Create"))
	assert.True(t, f.m.formActive)
	note, ok := f.m.notes.Latest()
	require.True(t, ok)
	assert.Equal(t, datasync.LevelWarning, note.Level)
	assert.Contains(t, note.Message, "title is required")
}

func TestBrowserLeaveGuard(t *testing.T) {
	f := newFixture(t, Options{})
	f.press(t, "n")
	f.typeText(t, "draft")
	f.press(t, "esc")
	require.True(t, f.m.formActive, "esc on a dirty form keeps it open")
	require.Equal(t, focusTable, f.m.focus)

	cmd := f.send(t, keyMsg("q"))
	require.Equal(t, focusConfirm, f.m.focus)
	assert.False(t, containsQuit(cmd))
	assert.Equal(t, confirmDiscardAndQuit, f.m.confirm.action)

	f.press(t, "n")
	assert.Equal(t, focusForm, f.m.focus)
	assert.True(t, f.m.formActive)

	f.press(t, "esc")
	f.press(t, "q")
	require.Equal(t, focusConfirm, f.m.focus)
	assert.True(t, containsQuit(f.send(t, keyMsg("y"))))
}

func TestBrowserDiscardForm(t *testing.T) {
	f := newFixture(t, Options{})
	f.press(t, "n")
	f.typeText(t, "draft")
	f.press(t, "ctrl+x")

	assert.False(t, f.m.formActive)
	assert.False(t, f.m.State().Prefs.NewRowFormVisible())
	assert.True(t, containsQuit(f.send(t, keyMsg("q"))))
}

func TestBrowserUpdateCell(t *testing.T) {
	f := newFixture(t, Options{})
	f.press(t, "l", "enter")
	require.Equal(t, focusInput, f.m.focus)
	assert.Equal(t, "title 0", f.m.input.Value())

	f.typeText(t, "x")
	f.press(t, "enter")
	assert.Equal(t, 1, f.mem.Calls("Update"))
	v, _ := f.m.State().Window.Record(0).Get("title")
	assert.Equal(t, "title 0x", v)
}

func TestBrowserUpdateFailureOffersRevert(t *testing.T) {
	f := newFixture(t, Options{})
	f.mem.FailUpdate = errors.New("boom")

	f.press(t, "l", "enter")
	f.typeText(t, "x")
	f.press(t, "enter")

	note, ok := f.m.notes.Latest()
	require.True(t, ok)
	assert.Equal(t, datasync.LevelError, note.Level)
	assert.Equal(t, datasync.LoadMoreIntent{Skip: 0, First: 1}, note.Revert)
	assert.Contains(t, f.m.View(), "[u] revert")

	pages := f.mem.Calls("FetchPage")
	f.press(t, "u")
	assert.Equal(t, pages+1, f.mem.Calls("FetchPage"))
	v, _ := f.m.State().Window.Record(0).Get("title")
	assert.Equal(t, "title 0", v)
}

func TestBrowserReadOnlyCell(t *testing.T) {
	f := newFixture(t, Options{})
	f.press(t, "enter")
	assert.Equal(t, focusTable, f.m.focus)
	note, ok := f.m.notes.Latest()
	require.True(t, ok)
	assert.Equal(t, "id is read-only", note.Message)
}

func TestBrowserRefresh(t *testing.T) {
	f := newFixture(t, Options{})
	counts := f.mem.Calls("FetchCount")
	f.press(t, "r")
	assert.Equal(t, counts+1, f.mem.Calls("FetchCount"))
	assert.Equal(t, 120, f.m.State().Window.ItemCount())
}

func TestBrowserSwitchModel(t *testing.T) {
	f := newFixture(t, Options{})
	f.press(t, "tab")
	require.Equal(t, focusSideNav, f.m.focus)

	f.press(t, "j", "enter")
	assert.Equal(t, "User", f.m.Controller().Model().Name)
	assert.Equal(t, focusTable, f.m.focus)
	assert.False(t, f.m.sideNav.Focused())
}

func TestBrowserAddModel(t *testing.T) {
	f := newFixture(t, Options{})
	f.press(t, "tab", "+")
	require.True(t, f.m.sideNav.Adding())

	f.typeText(t, "comment")
	f.press(t, "enter")
	assert.NotEmpty(t, f.m.sideNav.inputErr)
	assert.Zero(t, f.mem.Calls("AddModel"))

	f.press(t, "esc", "+")
	f.typeText(t, "Comment")
	f.press(t, "enter")

	assert.Equal(t, 1, f.mem.Calls("AddModel"))
	assert.Equal(t, "Comment", f.m.Controller().Model().Name)
	assert.Len(t, f.m.sideNav.Models(), 3)
	assert.Contains(t, f.tracker.events, "models/browser: created model")
}

func TestBrowserFileChangedReloads(t *testing.T) {
	f := newFixture(t, Options{})
	counts, lists := f.mem.Calls("FetchCount"), f.mem.Calls("ListModels")

	f.mem.Seed("Post", testutil.NewDefault().Records(testutil.PostModel(), 80))
	f.drain(t, f.send(t, FileChangedMsg{}))

	assert.Equal(t, counts+1, f.mem.Calls("FetchCount"))
	assert.Equal(t, lists+1, f.mem.Calls("ListModels"))
	assert.Equal(t, 80, f.m.State().Window.ItemCount())
}

func TestBrowserImportFile(t *testing.T) {
	f := newFixture(t, Options{})

	var b strings.Builder
	b.WriteString("[")
	for i := range 25 {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"title":"imported %d","published":true}`, i)
	}
	b.WriteString("]")
	path := filepath.Join(t.TempDir(), "posts.json")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	f.press(t, "i")
	require.Equal(t, inputImportPath, f.m.inputMode)
	f.typeText(t, path)
	f.press(t, "enter")

	assert.Equal(t, 3, f.mem.Calls("CreateMany"))
	assert.Equal(t, 145, f.mem.Count("Post"))
	assert.Equal(t, 145, f.m.State().Window.ItemCount())
	assert.False(t, f.m.progress.Active())
	note, ok := f.m.notes.Latest()
	require.True(t, ok)
	assert.Equal(t, "Imported 25 records into Post", note.Message)
}

func TestBrowserImportMissingFile(t *testing.T) {
	f := newFixture(t, Options{})
	f.press(t, "i")
	f.typeText(t, filepath.Join(t.TempDir(), "nope.json"))
	f.press(t, "enter")

	assert.Zero(t, f.mem.Calls("CreateMany"))
	note, ok := f.m.notes.Latest()
	require.True(t, ok)
	assert.Equal(t, datasync.LevelError, note.Level)
}

func TestBrowserView(t *testing.T) {
	f := newFixture(t, Options{})
	view := f.m.View()
	for _, want := range []string{"Post", "title", "Models", "blog", "User", "row 1/120"} {
		assert.Contains(t, view, want)
	}
}

func TestBrowserEmptyModel(t *testing.T) {
	f := newFixture(t, Options{Model: "User"})
	assert.Contains(t, f.m.View(), "No nodes yet")
}

func TestBrowserSchemaFailure(t *testing.T) {
	mem := testutil.NewMemory()
	m := NewModel(Options{
		Records:  mem,
		Schema:   failingSchema{},
		Config:   config.DefaultConfig(),
		Renderer: lipgloss.NewRenderer(io.Discard),
	})
	f := &browserFixture{m: m, mem: mem, tracker: &eventRecorder{}}
	f.drain(t, f.m.loadModelsCmd())

	assert.Empty(t, f.m.Controller().Model().Name)
	assert.Contains(t, f.m.View(), "schema unavailable")
}

type failingSchema struct{}

func (failingSchema) ListModels(context.Context) ([]model.Model, error) {
	return nil, errors.New("schema unavailable")
}

func (failingSchema) AddModel(context.Context, string) (model.Model, error) {
	return model.Model{}, errors.New("schema unavailable")
}
