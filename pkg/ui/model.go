package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/gcbrowse/pkg/api"
	"github.com/vanderheijden86/gcbrowse/pkg/config"
	"github.com/vanderheijden86/gcbrowse/pkg/datasync"
	"github.com/vanderheijden86/gcbrowse/pkg/debug"
	"github.com/vanderheijden86/gcbrowse/pkg/metrics"
	"github.com/vanderheijden86/gcbrowse/pkg/model"
	"github.com/vanderheijden86/gcbrowse/pkg/store"
	"github.com/vanderheijden86/gcbrowse/pkg/watcher"
)

// Layout thresholds
const (
	SideNavWidth       = 28
	MinDetailPaneWidth = 40
	SplitViewThreshold = 120
)

// focus represents which UI element has keyboard focus
type focus int

const (
	focusTable focus = iota
	focusSideNav
	focusInput
	focusForm
	focusConfirm
)

// inputMode is what the single-line input at the bottom edits.
type inputMode int

const (
	inputNone inputMode = iota
	inputEditCell
	inputFilter
	inputImportPath
)

// FileChangedMsg is sent when the database file changes on disk
type FileChangedMsg struct{}

// pageRetryDelay is how long failed row ranges wait before they may be
// requested again.
const pageRetryDelay = 2 * time.Second

// retryPagesMsg hands failed row ranges back to the loader.
type retryPagesMsg struct {
	gen    uint64
	ranges []store.Range
}

type modelsLoadedMsg struct {
	models []model.Model
	err    error
}

type modelAddedMsg struct {
	model model.Model
	err   error
}

type importFileMsg struct {
	path    string
	records []map[string]any
	err     error
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// Options configures NewModel.
type Options struct {
	Context context.Context
	Project string
	Records api.RecordAPI
	Schema  api.SchemaAPI
	Config  config.Config
	// Model is opened first when present; otherwise the first model by name.
	Model   string
	Watcher *watcher.Watcher
	Tracker datasync.Tracker
	// Renderer overrides the lipgloss renderer (tests).
	Renderer *lipgloss.Renderer
}

// Model is the main Bubble Tea model of the data browser.
type Model struct {
	ctx     context.Context
	schema  api.SchemaAPI
	ctrl    *datasync.Controller
	state   *store.State
	tracker datasync.Tracker
	watcher *watcher.Watcher

	theme    Theme
	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	notes    *Notifications
	progress *ImportProgress
	loader   *InfiniteLoader

	sideNav    SideNavModel
	form       NewRowForm
	formActive bool
	confirm    ConfirmDialog
	detail     DetailPane
	showDetail bool

	input      textinput.Model
	inputMode  inputMode
	inputField model.Field

	focus     focus
	cursorRow int
	cursorCol int
	colOffset int
	rowHeight int

	initialModel string
	modelsErr    string
	lastNoteSeq  uint64

	width  int
	height int
}

// NewModel creates the browser. Nothing is fetched until Init runs.
func NewModel(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	r := opts.Renderer
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	switch opts.Config.UI.Theme {
	case "dark":
		r.SetHasDarkBackground(true)
	case "light":
		r.SetHasDarkBackground(false)
	}
	theme := DefaultTheme(r)
	tracker := opts.Tracker
	if tracker == nil {
		tracker = datasync.DebugTracker{}
	}

	notes := NewNotifications()
	progress := NewImportProgress(theme)
	st := store.NewState()
	ctrl := datasync.New(ctx, opts.Records, st, datasync.Options{
		PageSize:    opts.Config.Browser.PageSize,
		ChunkSize:   opts.Config.Browser.ImportChunkSize,
		Concurrency: opts.Config.Browser.BatchConcurrency,
		Notifier:    notes,
		Progress:    progress,
		Tracker:     tracker,
	})

	loader := NewInfiniteLoader()
	loader.MinBatch = ctrl.PageSize()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = r.NewStyle().Foreground(theme.Primary)

	in := textinput.New()
	in.CharLimit = 4096

	rowHeight := opts.Config.Browser.RowHeight
	if rowHeight <= 0 {
		rowHeight = 1
	}

	return Model{
		ctx:          ctx,
		schema:       opts.Schema,
		ctrl:         ctrl,
		state:        st,
		tracker:      tracker,
		watcher:      opts.Watcher,
		theme:        theme,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		spinner:      sp,
		notes:        notes,
		progress:     progress,
		loader:       loader,
		sideNav:      NewSideNav(opts.Project, theme),
		detail:       NewDetailPane(theme),
		showDetail:   opts.Config.UI.ShowDetail,
		input:        in,
		rowHeight:    rowHeight,
		initialModel: opts.Model,
		width:        120,
		height:       40,
	}
}

// Init loads the model list and starts watching the database file.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadModelsCmd(), m.spinner.Tick}
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) loadModelsCmd() tea.Cmd {
	schema, ctx := m.schema, m.ctx
	return func() tea.Msg {
		defer metrics.Timer(metrics.SchemaLoad)()
		start := time.Now()
		models, err := schema.ListModels(ctx)
		debug.LogTiming("list models", time.Since(start))
		return modelsLoadedMsg{models: models, err: err}
	}
}

func (m Model) addModelCmd(name string) tea.Cmd {
	schema, ctx := m.schema, m.ctx
	return func() tea.Msg {
		md, err := schema.AddModel(ctx, name)
		return modelAddedMsg{model: md, err: err}
	}
}

func readImportCmd(path string) tea.Cmd {
	return func() tea.Msg {
		recs, err := datasync.ReadImportFile(path)
		return importFileMsg{path: path, records: recs, err: err}
	}
}

// Update handles every message. Controller results are reconciled first;
// then the current focus owns key input.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if cmd, ok := m.ctrl.Apply(msg); ok {
		cmds = append(cmds, cmd)
		return m.settle(cmds)
	}

	// huh needs every message type while a dialog is open.
	if m.focus == focusConfirm {
		var cmd tea.Cmd
		m.confirm, cmd = m.confirm.Update(msg)
		cmds = append(cmds, cmd)
		if m.confirm.Answered() {
			cmds = append(cmds, m.resolveConfirm())
		}
		if _, isKey := msg.(tea.KeyMsg); isKey {
			return m.settle(cmds)
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case notificationExpiredMsg:
		m.notes.expire(msg.id)

	case retryPagesMsg:
		if n := m.loader.Release(msg.gen, msg.ranges); n > 0 {
			debug.Log("ui: retrying %d failed row ranges", n)
		}

	case modelsLoadedMsg:
		cmds = append(cmds, m.handleModelsLoaded(msg))

	case modelAddedMsg:
		if msg.err != nil {
			m.sideNav.SetAddError(msg.err.Error())
			m.notes.Notify(datasync.Notification{Message: fmt.Sprintf("Could not add model: %v", msg.err), Level: datasync.LevelError})
			break
		}
		m.tracker.Track("models/browser: created model", map[string]any{"model": msg.model.Name})
		m.notes.Notify(datasync.Notification{Message: fmt.Sprintf("Added model %s", msg.model.Name), Level: datasync.LevelSuccess})
		m.sideNav.SetModels(append(m.sideNav.Models(), msg.model))
		m.sideNav.Blur()
		m.focus = focusTable
		cmds = append(cmds, m.switchModel(msg.model))

	case importFileMsg:
		if msg.err != nil {
			m.notes.Notify(datasync.Notification{Message: msg.err.Error(), Level: datasync.LevelError})
			break
		}
		debug.Log("ui: importing %d records from %s", len(msg.records), msg.path)
		cmds = append(cmds, m.ctrl.Dispatch(datasync.ImportIntent{Records: msg.records}))

	case SwitchModelMsg:
		if msg.Model.Name == m.ctrl.Model().Name {
			m.sideNav.Blur()
			m.focus = focusTable
			break
		}
		if m.formActive && m.form.Dirty() {
			cmds = append(cmds, m.openConfirm(discardDialog(confirmDiscardAndSwitch, msg.Model.Name, m.theme)))
			break
		}
		m.sideNav.Blur()
		m.focus = focusTable
		cmds = append(cmds, m.switchModel(msg.Model))

	case AddModelMsg:
		cmds = append(cmds, m.addModelCmd(msg.Name))

	case FileChangedMsg:
		debug.Log("ui: database changed on disk")
		cmds = append(cmds, m.loadModelsCmd())
		if m.ctrl.Model().Name != "" {
			cmds = append(cmds, m.ctrl.Dispatch(datasync.ReloadIntent{FromIndex: m.topRow()}))
		}
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		cmds = append(cmds, cmd)
	}

	return m.settle(cmds)
}

// settle runs after every message: it opens or closes the new-row form to
// match the preference store, schedules notification expiry, keeps the
// cursor and scroll offset in range, requests rows scrolled into view and
// schedules a retry for pages that failed to load.
func (m Model) settle(cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	prefs := m.state.Prefs
	switch {
	case prefs.NewRowFormVisible() && !m.formActive:
		m.form = NewNewRowForm(m.ctrl.Model(), m.theme)
		m.form.SetWidth(m.tableWidth())
		m.formActive = true
		if m.focus == focusTable {
			m.focus = focusForm
		}
	case !prefs.NewRowFormVisible() && m.formActive:
		m.formActive = false
		if m.focus == focusForm {
			m.focus = focusTable
		}
	}

	if seq := m.notes.Seq(); seq != m.lastNoteSeq {
		m.lastNoteSeq = seq
		cmds = append(cmds, m.notes.ExpireCmd())
	}

	w := m.state.Window
	if n := w.ItemCount(); m.cursorRow >= n {
		m.cursorRow = max(n-1, 0)
	}
	if len(m.state.Window.Filter()) == 0 && !prefs.Loading() && m.ctrl.Model().Name != "" {
		m.sideNav.SetCount(m.ctrl.Model().Name, w.ItemCount())
	}

	if failed := m.ctrl.TakeFailedPages(); len(failed) > 0 {
		gen := m.ctrl.Generation()
		cmds = append(cmds, tea.Tick(pageRetryDelay, func(time.Time) tea.Msg {
			return retryPagesMsg{gen: gen, ranges: failed}
		}))
	}

	if !prefs.Loading() && m.ctrl.Model().Name != "" {
		if n := w.ItemCount(); n > 0 && m.topRow() >= n {
			m.ctrl.Dispatch(datasync.ScrollIntent{Top: max(n-m.visibleRows(), 0) * m.rowHeight})
		}
		top := m.topRow()
		for _, in := range m.loader.LoadMoreRows(w, m.ctrl.Generation(), top, top+m.visibleRows()) {
			cmds = append(cmds, m.ctrl.Dispatch(in))
		}
	}

	if m.showDetail {
		m.detail.SetRecord(m.ctrl.Model(), w.Record(m.cursorRow))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleModelsLoaded(msg modelsLoadedMsg) tea.Cmd {
	if msg.err != nil {
		m.modelsErr = msg.err.Error()
		m.notes.Notify(datasync.Notification{Message: fmt.Sprintf("Could not load models: %v", msg.err), Level: datasync.LevelError})
		return nil
	}
	m.modelsErr = ""
	m.sideNav.SetModels(msg.models)
	models := m.sideNav.Models()
	if len(models) == 0 {
		return nil
	}
	current := m.ctrl.Model().Name
	if current != "" {
		for _, md := range models {
			if md.Name == current {
				return nil
			}
		}
	}
	target := models[0]
	for _, md := range models {
		if strings.EqualFold(md.Name, m.initialModel) {
			target = md
			break
		}
	}
	return m.switchModel(target)
}

// switchModel resets every store and opens md.
func (m *Model) switchModel(md model.Model) tea.Cmd {
	m.cursorRow, m.cursorCol, m.colOffset = 0, 0, 0
	m.cancelInput()
	m.loader.Reset()
	m.formActive = false
	if m.focus == focusForm {
		m.focus = focusTable
	}
	m.sideNav.SetActive(md.Name)
	return m.ctrl.SetModel(md)
}

// handleKey routes a key press to the focused element.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.focus {
	case focusConfirm:
		return m, nil
	case focusInput:
		return m.handleInputKeys(msg)
	case focusForm:
		return m.handleFormKeys(msg)
	case focusSideNav:
		if !m.sideNav.Adding() && (key.Matches(msg, m.keys.Focus) || msg.String() == "esc") {
			m.sideNav.Blur()
			m.focus = focusTable
			return m, nil
		}
		var cmd tea.Cmd
		m.sideNav, cmd = m.sideNav.Update(msg)
		return m, cmd
	}
	return m.handleTableKeys(msg)
}

func (m Model) handleFormKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)
	if m.form.IsBlurRequested() {
		m.form.ClearRequests()
		m.focus = focusTable
		return m, cmd
	}
	if m.form.IsCancelRequested() {
		m.form.ClearRequests()
		m.state.Prefs.SetNewRowFormVisible(false)
		return m, cmd
	}
	if m.form.IsSaveRequested() {
		m.form.ClearRequests()
		values, err := m.form.Values()
		if err != nil {
			m.notes.Notify(datasync.Notification{Message: err.Error(), Level: datasync.LevelWarning})
			return m, cmd
		}
		return m, tea.Batch(cmd, m.ctrl.Dispatch(datasync.CreateIntent{Values: values}))
	}
	return m, cmd
}

func (m Model) handleTableKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	w := m.state.Window
	md := m.ctrl.Model()
	page := max(m.visibleRows()-1, 1)

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.formActive && m.form.Dirty() {
			return m, m.openConfirm(discardDialog(confirmDiscardAndQuit, "", m.theme))
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Focus):
		m.sideNav.Focus()
		m.focus = focusSideNav
	case key.Matches(msg, m.keys.Models):
		return m, m.loadModelsCmd()
	}
	if md.Name == "" {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-page)
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(page)
	case key.Matches(msg, m.keys.Home):
		m.moveCursor(-w.ItemCount())
	case key.Matches(msg, m.keys.End):
		m.moveCursor(w.ItemCount())
	case key.Matches(msg, m.keys.Left):
		m.moveColumn(-1)
	case key.Matches(msg, m.keys.Right):
		m.moveColumn(1)
	case key.Matches(msg, m.keys.Detail):
		m.showDetail = !m.showDetail
		m.layout()
	case key.Matches(msg, m.keys.Edit):
		return m.startEditCell()
	case key.Matches(msg, m.keys.Select):
		if rec := w.Record(m.cursorRow); rec != nil {
			return m, m.ctrl.Dispatch(datasync.ToggleSelectionIntent{ID: rec.ID})
		}
	case key.Matches(msg, m.keys.SelectAll):
		return m, m.ctrl.Dispatch(datasync.SelectAllIntent{Checked: !m.state.AllLoadedSelected()})
	case key.Matches(msg, m.keys.Sort):
		if f, ok := m.currentField(); ok {
			return m, m.ctrl.Dispatch(datasync.ToggleSortIntent{Field: f.Name})
		}
	case key.Matches(msg, m.keys.Filters):
		return m, m.ctrl.Dispatch(datasync.ToggleFiltersIntent{})
	case key.Matches(msg, m.keys.Filter):
		return m.startFilter()
	case key.Matches(msg, m.keys.AddNode):
		if m.formActive {
			m.focus = focusForm
			return m, nil
		}
		return m, m.ctrl.Dispatch(datasync.AddNodeIntent{})
	case key.Matches(msg, m.keys.Delete):
		return m.startDelete()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.ctrl.Dispatch(datasync.ReloadIntent{FromIndex: m.topRow()})
	case key.Matches(msg, m.keys.ReloadRow):
		if m.cursorRow < w.ItemCount() {
			return m, m.ctrl.Dispatch(datasync.LoadMoreIntent{Skip: m.cursorRow, First: 1})
		}
	case key.Matches(msg, m.keys.Revert):
		if in, ok := m.notes.TakeRevert(); ok {
			return m, m.ctrl.Dispatch(in)
		}
	case key.Matches(msg, m.keys.Import):
		m.startInput(inputImportPath, model.Field{}, "", "path/to/records.json")
		return m, textinput.Blink
	case key.Matches(msg, m.keys.YankID):
		if rec := w.Record(m.cursorRow); rec != nil {
			m.copyToClipboard(rec.ID, "id")
		}
	case key.Matches(msg, m.keys.YankCell):
		if rec := w.Record(m.cursorRow); rec != nil {
			if f, ok := m.currentField(); ok {
				v, _ := rec.Get(f.Name)
				m.copyToClipboard(model.FormatValue(v, f), f.Name)
			}
		}
	case msg.String() == "esc":
		if m.state.Selection.Len() > 0 {
			return m, m.ctrl.Dispatch(datasync.SelectAllIntent{Checked: false})
		}
		m.notes.Clear()
	}
	return m, nil
}

func (m *Model) copyToClipboard(text, what string) {
	if err := clipboard.WriteAll(text); err != nil {
		m.notes.Notify(datasync.Notification{Message: fmt.Sprintf("Clipboard error: %v", err), Level: datasync.LevelWarning})
		return
	}
	m.notes.Notify(datasync.Notification{Message: fmt.Sprintf("Copied %s: %s", what, truncate(text, 40)), Level: datasync.LevelInfo})
}

func (m Model) startDelete() (Model, tea.Cmd) {
	sel := m.state.Selection
	if sel.Len() > 0 {
		return m, m.openConfirm(deleteDialog(sel.IDs(), true, m.theme))
	}
	if rec := m.state.Window.Record(m.cursorRow); rec != nil {
		return m, m.openConfirm(deleteDialog([]string{rec.ID}, false, m.theme))
	}
	return m, nil
}

func (m *Model) openConfirm(d ConfirmDialog) tea.Cmd {
	m.confirm = d
	m.focus = focusConfirm
	return m.confirm.Init()
}

// resolveConfirm runs the accepted action of the answered dialog.
func (m *Model) resolveConfirm() tea.Cmd {
	d := m.confirm
	m.focus = focusTable
	if d.action == confirmDiscardAndSwitch {
		m.sideNav.Blur()
	}
	if !d.Accepted() {
		if m.formActive && (d.action == confirmDiscardAndQuit || d.action == confirmDiscardAndSwitch) {
			m.focus = focusForm
		}
		return nil
	}
	switch d.action {
	case confirmDeleteSelected, confirmDeleteRow:
		return m.ctrl.Dispatch(d.intent())
	case confirmDiscardAndQuit:
		return tea.Quit
	case confirmDiscardAndSwitch:
		m.state.Prefs.SetNewRowFormVisible(false)
		for _, md := range m.sideNav.Models() {
			if md.Name == d.target {
				return m.switchModel(md)
			}
		}
	}
	return nil
}

func (m *Model) moveCursor(delta int) {
	n := m.state.Window.ItemCount()
	if n == 0 {
		m.cursorRow = 0
		return
	}
	m.cursorRow = min(max(m.cursorRow+delta, 0), n-1)
	top := m.topRow()
	visible := m.visibleRows()
	switch {
	case m.cursorRow < top:
		top = m.cursorRow
	case m.cursorRow >= top+visible:
		top = m.cursorRow - visible + 1
	}
	m.ctrl.Dispatch(datasync.ScrollIntent{Top: top * m.rowHeight})
}

func (m *Model) moveColumn(delta int) {
	fields := m.ctrl.Model().Fields
	if len(fields) == 0 {
		return
	}
	m.cursorCol = min(max(m.cursorCol+delta, 0), len(fields)-1)
	if m.cursorCol < m.colOffset {
		m.colOffset = m.cursorCol
		return
	}
	widths := m.columnWidths()
	for {
		_, last := visibleColumns(widths, m.colOffset, m.tableWidth()-checkboxWidth)
		if m.cursorCol < last || m.colOffset >= m.cursorCol {
			return
		}
		m.colOffset++
	}
}

// topRow is the first visible row, derived from the scroll offset.
func (m Model) topRow() int {
	return m.state.Prefs.ScrollTop() / m.rowHeight
}

func (m Model) currentField() (model.Field, bool) {
	fields := m.ctrl.Model().Fields
	if m.cursorCol < 0 || m.cursorCol >= len(fields) {
		return model.Field{}, false
	}
	return fields[m.cursorCol], true
}

func (m Model) startEditCell() (Model, tea.Cmd) {
	rec := m.state.Window.Record(m.cursorRow)
	f, ok := m.currentField()
	if rec == nil || !ok {
		return m, nil
	}
	if !f.IsEditable() {
		m.notes.Notify(datasync.Notification{Message: fmt.Sprintf("%s is read-only", f.Name), Level: datasync.LevelInfo})
		return m, nil
	}
	v, _ := rec.Get(f.Name)
	m.startInput(inputEditCell, f, model.FormatValue(v, f), "")
	return m, textinput.Blink
}

func (m Model) startFilter() (Model, tea.Cmd) {
	f, ok := m.currentField()
	if !ok {
		return m, nil
	}
	if !m.state.Prefs.FiltersVisible() {
		m.ctrl.Dispatch(datasync.ToggleFiltersIntent{})
	}
	current := ""
	if v, ok := m.state.Window.Filter()[f.Name]; ok {
		current = model.FormatValue(v, f)
	}
	m.startInput(inputFilter, f, current, "filter "+f.Name)
	return m, textinput.Blink
}

func (m *Model) startInput(mode inputMode, f model.Field, value, placeholder string) {
	m.inputMode = mode
	m.inputField = f
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Placeholder = placeholder
	m.input.Width = max(m.tableWidth()-20, 20)
	m.input.Focus()
	m.focus = focusInput
}

func (m *Model) cancelInput() {
	m.inputMode = inputNone
	m.input.Blur()
	m.input.SetValue("")
	if m.focus == focusInput {
		m.focus = focusTable
	}
}

func (m Model) handleInputKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.cancelInput()
		return m, nil
	case "enter":
		return m.submitInput()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submitInput() (Model, tea.Cmd) {
	raw := m.input.Value()
	mode, f := m.inputMode, m.inputField
	switch mode {
	case inputEditCell:
		rec := m.state.Window.Record(m.cursorRow)
		if rec == nil {
			m.cancelInput()
			return m, nil
		}
		value, err := model.ParseValue(raw, f)
		if err != nil {
			m.notes.Notify(datasync.Notification{Message: err.Error(), Level: datasync.LevelWarning})
			return m, nil
		}
		m.cancelInput()
		return m, m.ctrl.Dispatch(datasync.UpdateIntent{Field: f.Name, Value: value, ID: rec.ID, Index: m.cursorRow})

	case inputFilter:
		m.cancelInput()
		m.cursorRow = 0
		value, err := model.ParseFilterValue(raw, f)
		if err != nil {
			m.notes.Notify(datasync.Notification{Message: err.Error(), Level: datasync.LevelWarning})
			return m, nil
		}
		return m, m.ctrl.Dispatch(datasync.SetFilterIntent{Field: f.Name, Value: value})

	case inputImportPath:
		m.cancelInput()
		path := strings.TrimSpace(raw)
		if path == "" {
			return m, nil
		}
		if strings.HasPrefix(path, "~") {
			path = config.ExpandHome(path)
		}
		return m, readImportCmd(path)
	}
	m.cancelInput()
	return m, nil
}

// layout resizes the child components after a size change.
func (m *Model) layout() {
	bodyH := max(m.height-2, 5)
	m.sideNav.SetSize(SideNavWidth, bodyH)
	if m.showDetail {
		m.detail.SetSize(m.detailWidth(), bodyH)
	}
	m.help.Width = m.width
	if m.formActive {
		m.form.SetWidth(m.tableWidth())
	}
}

func (m Model) detailWidth() int {
	if !m.showDetail {
		return 0
	}
	w := (m.width - SideNavWidth) / 3
	if m.width < SplitViewThreshold {
		w = MinDetailPaneWidth
	}
	return max(w, MinDetailPaneWidth)
}

func (m Model) tableWidth() int {
	return max(m.width-SideNavWidth-m.detailWidth(), 20)
}

// chromeHeight is the number of lines around the table rows.
func (m Model) chromeHeight() int {
	h := 4 // title, header, status, help
	if m.state.Prefs.FiltersVisible() {
		h++
	}
	if m.formActive {
		h += lipgloss.Height(m.form.View())
	}
	if m.focus == focusInput {
		h++
	}
	h += m.notes.Len()
	return h
}

// visibleRows is the number of table rows that fit on screen.
func (m Model) visibleRows() int {
	return max((m.height-m.chromeHeight())/m.rowHeight, 1)
}

// Controller exposes the data controller (tests and the CLI).
func (m Model) Controller() *datasync.Controller { return m.ctrl }

// State exposes the browser stores.
func (m Model) State() *store.State { return m.state }

// View renders the whole screen.
func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	if m.focus == focusConfirm {
		return m.confirm.View(m.width, m.height)
	}
	if m.progress.Active() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.progress.View())
	}

	parts := []string{m.sideNav.View(), m.renderMain()}
	if m.showDetail {
		parts = append(parts, m.detail.View())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderMain() string {
	width := m.tableWidth()
	var sections []string
	sections = append(sections, m.renderTitle(width))
	if m.formActive {
		sections = append(sections, m.form.View())
	}
	sections = append(sections, m.renderTable(width))
	if m.focus == focusInput {
		sections = append(sections, m.renderInput(width))
	}
	if notes := m.notes.View(width); notes != "" {
		sections = append(sections, notes)
	}
	sections = append(sections, m.renderStatus(width))
	sections = append(sections, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTitle(width int) string {
	md := m.ctrl.Model()
	if md.Name == "" {
		if m.modelsErr != "" {
			return m.theme.Renderer.NewStyle().Foreground(ColorDanger).Render(truncate(m.modelsErr, width))
		}
		return m.theme.MutedText.Render("No model selected")
	}
	title := m.theme.PrimaryBold.Render(md.Name)
	count := m.theme.MutedText.Render(fmt.Sprintf(" %s %s", formatCount(m.state.Window.ItemCount()), strings.ToLower(md.Plural())))
	if m.ctrl.Phase() == datasync.Loading {
		count += " " + m.spinner.View()
	}
	return title + count
}

func (m Model) renderInput(width int) string {
	label := ""
	switch m.inputMode {
	case inputEditCell:
		label = fmt.Sprintf("%s =", m.inputField.Name)
	case inputFilter:
		label = fmt.Sprintf("filter %s:", m.inputField.Name)
	case inputImportPath:
		label = "import:"
	}
	m.input.Width = max(width-lipgloss.Width(label)-4, 10)
	return m.theme.SecondaryText.Render(label) + " " + m.input.View()
}

func (m Model) renderStatus(width int) string {
	w := m.state.Window
	parts := []string{
		fmt.Sprintf("row %d/%d", min(m.cursorRow+1, w.ItemCount()), w.ItemCount()),
		fmt.Sprintf("loaded %d", w.LoadedCount()),
		"sort " + w.Order().String(),
	}
	if n := m.state.Selection.Len(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	if f := w.Filter(); len(f) > 0 {
		parts = append(parts, "filter "+strings.Join(f.Keys(), ","))
	}
	if m.watcher != nil && m.watcher.IsStarted() {
		parts = append(parts, "live")
	}
	return m.theme.MutedText.Render(truncate(strings.Join(parts, " · "), width))
}

var _ tea.Model = Model{}
