package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/gcbrowse/pkg/datasync"
	"github.com/vanderheijden86/gcbrowse/pkg/debug"
)

const (
	notificationTTL  = 6 * time.Second
	maxNotifications = 3
)

type shownNotification struct {
	datasync.Notification
	id      uint64
	created time.Time
}

// Notifications is the on-screen notification stack. It is the controller's
// Notifier, so it is filled from inside Update and drained by expiry ticks.
type Notifications struct {
	items []shownNotification
	seq   uint64
	now   func() time.Time
}

// NewNotifications creates an empty stack.
func NewNotifications() *Notifications {
	return &Notifications{now: time.Now}
}

// Notify implements datasync.Notifier.
func (n *Notifications) Notify(note datasync.Notification) {
	debug.Log("notify[%s]: %s", note.Level, note.Message)
	n.seq++
	n.items = append(n.items, shownNotification{Notification: note, id: n.seq, created: n.now()})
	if len(n.items) > maxNotifications {
		n.items = n.items[len(n.items)-maxNotifications:]
	}
}

type notificationExpiredMsg struct{ id uint64 }

// ExpireCmd schedules removal of the newest notification.
func (n *Notifications) ExpireCmd() tea.Cmd {
	if len(n.items) == 0 {
		return nil
	}
	id := n.items[len(n.items)-1].id
	return tea.Tick(notificationTTL, func(time.Time) tea.Msg {
		return notificationExpiredMsg{id: id}
	})
}

func (n *Notifications) expire(id uint64) {
	for i, item := range n.items {
		if item.id == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return
		}
	}
}

// Seq increases on every Notify; callers compare it to schedule expiry.
func (n *Notifications) Seq() uint64 { return n.seq }

// Len returns the number of visible notifications.
func (n *Notifications) Len() int { return len(n.items) }

// Latest returns the newest notification.
func (n *Notifications) Latest() (datasync.Notification, bool) {
	if len(n.items) == 0 {
		return datasync.Notification{}, false
	}
	return n.items[len(n.items)-1].Notification, true
}

// TakeRevert removes the newest notification carrying a revert intent and
// returns that intent.
func (n *Notifications) TakeRevert() (datasync.Intent, bool) {
	for i := len(n.items) - 1; i >= 0; i-- {
		if n.items[i].Revert != nil {
			in := n.items[i].Revert
			n.items = append(n.items[:i], n.items[i+1:]...)
			return in, true
		}
	}
	return nil, false
}

// Clear dismisses every notification.
func (n *Notifications) Clear() {
	n.items = nil
}

// View renders the stack, newest last, one line each.
func (n *Notifications) View(width int) string {
	if len(n.items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(n.items))
	for _, item := range n.items {
		msg := item.Message
		if item.Revert != nil {
			msg += "  [u] revert"
		}
		lines = append(lines, RenderLevelBadge(item.Level)+" "+truncate(msg, width-6))
	}
	return strings.Join(lines, "\n")
}
