package datasync

import (
	"github.com/vanderheijden86/gcbrowse/pkg/debug"
)

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a user-visible message. Revert, when set, is the intent
// that restores the affected row from the server.
type Notification struct {
	Message string
	Level   Level
	Revert  Intent
}

// Notifier receives every user-visible outcome.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// ProgressSink follows a chunked import.
type ProgressSink interface {
	StartProgress(total int)
	IncrementProgress()
	FinishProgress()
}

// Tracker records analytics events.
type Tracker interface {
	Track(event string, props map[string]any)
}

// DebugTracker writes events to the debug log.
type DebugTracker struct{}

func (DebugTracker) Track(event string, props map[string]any) {
	debug.Event(event, props)
}

type logNotifier struct{}

func (logNotifier) Notify(n Notification) {
	debug.Log("notify[%s]: %s", n.Level, n.Message)
}

type nopProgress struct{}

func (nopProgress) StartProgress(int)  {}
func (nopProgress) IncrementProgress() {}
func (nopProgress) FinishProgress()    {}
