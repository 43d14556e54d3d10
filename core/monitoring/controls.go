package monitoring

import (
	"sync"
	"time"

	"signal-monitor/core/models"
)

// Control is a user-operable button of the monitor
type Control string

const (
	ControlPause   Control = "pause"
	ControlResume  Control = "resume"
	ControlStop    Control = "stop"
	ControlSave    Control = "save"
	ControlPredict Control = "predict"
)

var allControls = []Control{ControlPause, ControlResume, ControlStop, ControlSave, ControlPredict}

// ControlView renders control affordances
type ControlView interface {
	SetControls(states map[Control]bool)
}

// ControlPanel tracks which controls are enabled.
// A held control renders disabled whatever its desired state is.
type ControlPanel struct {
	view    ControlView
	desired map[Control]bool
	held    map[Control]bool
}

// NewControlPanel creates a panel with every control disabled
func NewControlPanel(view ControlView) *ControlPanel {
	return &ControlPanel{
		view:    view,
		desired: make(map[Control]bool),
		held:    make(map[Control]bool),
	}
}

// Enabled reports whether c can be triggered
func (p *ControlPanel) Enabled(c Control) bool {
	return p.desired[c] && !p.held[c]
}

// Set changes a group of controls and renders once
func (p *ControlPanel) Set(states map[Control]bool) {
	for c, on := range states {
		p.desired[c] = on
	}
	p.render()
}

// Hold disables c until Release, e.g. while its request is in flight
func (p *ControlPanel) Hold(c Control) {
	p.held[c] = true
	p.render()
}

// Release lifts a Hold
func (p *ControlPanel) Release(c Control) {
	delete(p.held, c)
	p.render()
}

// Snapshot returns the desired affordances, ignoring holds
func (p *ControlPanel) Snapshot() map[Control]bool {
	out := make(map[Control]bool, len(allControls))
	for _, c := range allControls {
		out[c] = p.desired[c]
	}
	return out
}

// Restore replaces all desired affordances with a snapshot
func (p *ControlPanel) Restore(snap map[Control]bool) {
	for _, c := range allControls {
		p.desired[c] = snap[c]
	}
	p.render()
}

// ApplyServerStatus sets the affordances the server status allows
func (p *ControlPanel) ApplyServerStatus(s models.ServerStatus) {
	states := map[Control]bool{}
	for _, c := range allControls {
		states[c] = false
	}
	switch s {
	case models.ServerStatusCreated:
		states[ControlStop] = true
	case models.ServerStatusTraining:
		states[ControlPause] = true
		states[ControlStop] = true
	case models.ServerStatusPaused:
		states[ControlResume] = true
		states[ControlStop] = true
	case models.ServerStatusCompleted:
		states[ControlSave] = true
		states[ControlPredict] = true
	}
	p.Set(states)
}

// DisableLifecycle turns off pause, resume and stop
func (p *ControlPanel) DisableLifecycle() {
	p.Set(map[Control]bool{ControlPause: false, ControlResume: false, ControlStop: false})
}

func (p *ControlPanel) render() {
	if p.view == nil {
		return
	}
	out := make(map[Control]bool, len(allControls))
	for _, c := range allControls {
		out[c] = p.Enabled(c)
	}
	p.view.SetControls(out)
}

// DefaultLogCap is the number of activity entries kept
const DefaultLogCap = 100

// LogView renders the activity log, newest entry first
type LogView interface {
	SetLog(entries []models.LogEntry)
}

// ActivityLog is the user-visible event log of the monitor
type ActivityLog struct {
	mu      sync.Mutex
	cap     int
	entries []models.LogEntry
	view    LogView
	now     func() time.Time
}

// NewActivityLog creates a log keeping at most cap entries
func NewActivityLog(cap int, view LogView) *ActivityLog {
	if cap <= 0 {
		cap = DefaultLogCap
	}
	return &ActivityLog{cap: cap, view: view, now: time.Now}
}

// Add prepends an entry, dropping the oldest past cap
func (l *ActivityLog) Add(level models.LogLevel, message string) {
	l.mu.Lock()
	entry := models.LogEntry{At: l.now(), Level: level, Message: message}
	l.entries = append([]models.LogEntry{entry}, l.entries...)
	if len(l.entries) > l.cap {
		l.entries = l.entries[:l.cap]
	}
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	if l.view != nil {
		l.view.SetLog(snapshot)
	}
}

// Entries returns the log, newest first
func (l *ActivityLog) Entries() []models.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *ActivityLog) snapshotLocked() []models.LogEntry {
	out := make([]models.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
