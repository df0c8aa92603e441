package datasync

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/gcbrowse/pkg/api"
	"github.com/vanderheijden86/gcbrowse/pkg/debug"
	"github.com/vanderheijden86/gcbrowse/pkg/metrics"
	"github.com/vanderheijden86/gcbrowse/pkg/model"
	"github.com/vanderheijden86/gcbrowse/pkg/store"
)

// Result messages. Only Apply interprets them.
type (
	countMsg struct {
		gen   uint64
		from  int
		count int
		err   error
	}
	pageMsg struct {
		gen     uint64
		skip    int
		first   int
		records []*model.Record
		reload  bool
		err     error
	}
	createdMsg struct {
		gen    uint64
		model  string
		record *model.Record
		err    error
	}
	updatedMsg struct {
		gen    uint64
		id     string
		index  int
		field  string
		record *model.Record
		err    error
	}
	deletedMsg struct {
		model string
		ids   []string
		errs  []error
	}
	chunkMsg struct {
		batch uint64
		index int
		err   error
	}
)

// Apply reconciles a command result into the stores. It reports false for
// messages it does not own; the returned command is the follow-up work.
func (c *Controller) Apply(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case countMsg:
		c.inflight--
		return c.applyCount(msg), true
	case pageMsg:
		c.inflight--
		c.applyPage(msg)
		return nil, true
	case createdMsg:
		c.inflight--
		return c.applyCreated(msg), true
	case updatedMsg:
		c.inflight--
		c.applyUpdated(msg)
		return nil, true
	case deletedMsg:
		c.inflight--
		return c.applyDeleted(msg), true
	case chunkMsg:
		return c.applyChunk(msg), true
	}
	return nil, false
}

func (c *Controller) stale(gen uint64, what string) bool {
	if gen == c.generation {
		return false
	}
	metrics.StaleDiscards.Inc()
	debug.Log("datasync: discarded %s from gen=%d (current %d)", what, gen, c.generation)
	return true
}

func (c *Controller) applyCount(msg countMsg) tea.Cmd {
	if c.stale(msg.gen, "count") {
		return nil
	}
	if msg.err != nil {
		c.state.Prefs.SetLoading(false)
		c.notifyErr(msg.err)
		return nil
	}
	c.state.Window.SetItemCount(msg.count)
	if msg.count == 0 || msg.from >= msg.count {
		c.state.Window.LoadPage(msg.from, nil)
		c.state.Prefs.SetLoading(false)
		return nil
	}
	return c.fetchPage(msg.gen, msg.from, c.pageSize, true)
}

func (c *Controller) applyPage(msg pageMsg) {
	if c.stale(msg.gen, "page") {
		return
	}
	if msg.reload {
		c.state.Prefs.SetLoading(false)
	}
	if msg.err != nil {
		c.failedPages = append(c.failedPages, store.Range{Start: msg.skip, Stop: msg.skip + msg.first})
		c.notifyErr(msg.err)
		return
	}
	n := c.state.Window.LoadPage(msg.skip, msg.records)
	debug.Log("datasync: loaded %d rows at %d gen=%d", n, msg.skip, msg.gen)
}

func (c *Controller) applyCreated(msg createdMsg) tea.Cmd {
	if msg.err != nil {
		c.notifyErr(msg.err)
		return nil
	}
	if msg.model != c.model.Name {
		return nil
	}
	if msg.gen == c.generation {
		c.state.Window.SetItemCount(c.state.Window.ItemCount() + 1)
	}
	c.state.Prefs.SetNewRowFormVisible(false)
	c.tracker.Track("models/browser: created node", map[string]any{"model": msg.model})
	return c.Reload(0)
}

func (c *Controller) applyUpdated(msg updatedMsg) {
	if msg.err != nil {
		n := Notification{Message: describe(msg.err), Level: LevelError}
		if msg.gen == c.generation {
			n.Revert = LoadMoreIntent{Skip: msg.index, First: 1}
		}
		c.notifier.Notify(n)
		return
	}
	if msg.record == nil {
		return
	}
	// The update may land after a reload moved the row; ApplyUpdate finds it
	// by id and ignores it when it is no longer loaded.
	value, _ := msg.record.Get(msg.field)
	if !c.state.Window.ApplyUpdate(msg.id, msg.field, value) {
		debug.Log("datasync: update of %s not applied, row not loaded", msg.id)
	}
}

func (c *Controller) applyDeleted(msg deletedMsg) tea.Cmd {
	var failures []error
	succeeded := 0
	current := msg.model == c.model.Name
	for i, id := range msg.ids {
		if err := msg.errs[i]; err != nil {
			failures = append(failures, err)
			c.notifyErr(err)
			continue
		}
		succeeded++
		if current {
			c.state.Window.Remove(id)
			c.state.Selection.Deselect(id)
		}
	}
	metrics.BatchFailures.Add(int64(len(failures)))
	if berr := api.NewBatchError("delete", msg.model, len(msg.ids), failures); berr != nil {
		debug.Log("datasync: %v", berr)
	}
	c.tracker.Track("models/browser: deleted node", map[string]any{
		"model":   msg.model,
		"deleted": succeeded,
		"failed":  len(failures),
	})
	if !current {
		return nil
	}
	return c.Reload(0)
}

func (c *Controller) applyChunk(msg chunkMsg) tea.Cmd {
	b, ok := c.imports[msg.batch]
	if !ok {
		return nil
	}
	b.done++
	c.progress.IncrementProgress()
	if msg.err != nil {
		b.failures = append(b.failures, msg.err)
		c.notifyErr(msg.err)
	}
	if b.done < b.total {
		return nil
	}

	delete(c.imports, b.id)
	c.inflight--
	c.progress.FinishProgress()
	metrics.BatchFailures.Add(int64(len(b.failures)))
	if berr := api.NewBatchError("import", b.model, b.total, b.failures); berr != nil {
		debug.Log("datasync: %v", berr)
	} else {
		c.notifier.Notify(Notification{Message: importSummary(b), Level: LevelSuccess})
	}
	c.tracker.Track("models/browser: imported nodes", map[string]any{
		"model":  b.model,
		"chunks": b.total,
		"failed": len(b.failures),
	})
	if b.model != c.model.Name {
		return nil
	}
	return c.Reload(0)
}

func importSummary(b *importBatch) string {
	noun := "records"
	if b.records == 1 {
		noun = "record"
	}
	return fmt.Sprintf("Imported %d %s into %s", b.records, noun, b.model)
}
