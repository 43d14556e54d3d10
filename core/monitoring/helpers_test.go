package monitoring

import (
	"context"
	"sync"

	"signal-monitor/core/models"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func status(s models.ServerStatus, epoch, total int) models.JobStatus {
	return models.JobStatus{Status: s, CurrentEpoch: intp(epoch), TotalEpochs: intp(total)}
}

// recordingView captures everything the monitor renders
type recordingView struct {
	mu       sync.Mutex
	shown    []Modal
	hidden   []Modal
	controls map[Control]bool
	log      []models.LogEntry
	redraws  map[string][]Point
	notes    []string
	states   []models.UIState
	metrics  []Metrics
}

func newRecordingView() *recordingView {
	return &recordingView{redraws: make(map[string][]Point)}
}

func (v *recordingView) ShowModal(m Modal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shown = append(v.shown, m)
}

func (v *recordingView) HideModal(m Modal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hidden = append(v.hidden, m)
}

func (v *recordingView) SetControls(states map[Control]bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.controls = states
}

func (v *recordingView) SetLog(entries []models.LogEntry) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.log = entries
}

func (v *recordingView) Redraw(series string, points []Point) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.redraws[series] = points
}

func (v *recordingView) Notify(_ models.LogLevel, msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notes = append(v.notes, msg)
}

func (v *recordingView) SetState(s models.UIState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.states = append(v.states, s)
}

func (v *recordingView) SetMetrics(m Metrics) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.metrics = append(v.metrics, m)
}

func (v *recordingView) shownCount(m Modal) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, s := range v.shown {
		if s == m {
			n++
		}
	}
	return n
}

func (v *recordingView) control(c Control) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.controls[c]
}

// fakeSender records commands and returns a canned outcome
type fakeSender struct {
	mu    sync.Mutex
	sent  []models.Command
	msg   string
	err   error
	block chan struct{}
}

func (s *fakeSender) SendCommand(ctx context.Context, cmd models.Command, _ string) (string, error) {
	s.mu.Lock()
	s.sent = append(s.sent, cmd)
	block := s.block
	s.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.msg, s.err
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fixedConfirmer bool

func (c fixedConfirmer) Confirm(context.Context, string) bool { return bool(c) }
