package tui

import (
	"context"
	"sync"

	"signal-monitor/core/models"
	"signal-monitor/core/monitoring"

	tea "github.com/charmbracelet/bubbletea"
)

type stateMsg models.UIState
type metricsMsg monitoring.Metrics
type controlsMsg map[monitoring.Control]bool
type logMsg []models.LogEntry

type chartMsg struct {
	series string
	points []monitoring.Point
}

type modalMsg struct {
	modal monitoring.Modal
	open  bool
}

type notifyMsg struct {
	level models.LogLevel
	text  string
}

type confirmMsg struct {
	prompt string
	reply  chan bool
}

// Bridge carries monitor callbacks into the bubbletea event loop.
// The monitor calls it from its own goroutines while holding its lock, so
// the model must never call back into the monitor synchronously from Update.
type Bridge struct {
	msgs      chan tea.Msg
	done      chan struct{}
	closeOnce sync.Once
}

var (
	_ monitoring.View      = (*Bridge)(nil)
	_ monitoring.Confirmer = (*Bridge)(nil)
)

// NewBridge creates a bridge with room for buffered updates
func NewBridge() *Bridge {
	return &Bridge{
		msgs: make(chan tea.Msg, 256),
		done: make(chan struct{}),
	}
}

// Close releases anything blocked on the bridge; later updates are dropped
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *Bridge) post(msg tea.Msg) {
	select {
	case b.msgs <- msg:
	case <-b.done:
	}
}

// wait delivers the next monitor update to the program
func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.msgs:
			return msg
		case <-b.done:
			return nil
		}
	}
}

func (b *Bridge) SetState(state models.UIState)   { b.post(stateMsg(state)) }
func (b *Bridge) SetMetrics(m monitoring.Metrics) { b.post(metricsMsg(m)) }
func (b *Bridge) ShowModal(m monitoring.Modal)    { b.post(modalMsg{modal: m, open: true}) }
func (b *Bridge) HideModal(m monitoring.Modal)    { b.post(modalMsg{modal: m, open: false}) }

func (b *Bridge) SetControls(states map[monitoring.Control]bool) {
	out := make(controlsMsg, len(states))
	for c, on := range states {
		out[c] = on
	}
	b.post(out)
}

func (b *Bridge) SetLog(entries []models.LogEntry) {
	b.post(logMsg(entries))
}

func (b *Bridge) Redraw(series string, points []monitoring.Point) {
	b.post(chartMsg{series: series, points: points})
}

func (b *Bridge) Notify(level models.LogLevel, message string) {
	b.post(notifyMsg{level: level, text: message})
}

// Confirm shows a y/N prompt and blocks until it is answered.
// A closed bridge or cancelled ctx counts as "no".
func (b *Bridge) Confirm(ctx context.Context, prompt string) bool {
	reply := make(chan bool, 1)
	select {
	case b.msgs <- confirmMsg{prompt: prompt, reply: reply}:
	case <-ctx.Done():
		return false
	case <-b.done:
		return false
	}

	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	case <-b.done:
		return false
	}
}
