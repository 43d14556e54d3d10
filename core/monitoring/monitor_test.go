package monitoring

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"signal-monitor/core/models"

	"go.uber.org/zap"
)

// sequenceBackend serves statuses in order and repeats the last one
type sequenceBackend struct {
	fakeSender
	mu       sync.Mutex
	statuses []models.JobStatus
	calls    int
}

func (b *sequenceBackend) TrainingStatus(context.Context, string) (models.JobStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.calls
	if i >= len(b.statuses) {
		i = len(b.statuses) - 1
	}
	b.calls++
	return b.statuses[i], nil
}

func (b *sequenceBackend) statusCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func trainingTick(epoch, total int, loss float64) models.JobStatus {
	s := status(models.ServerStatusTraining, epoch, total)
	s.TrainingLoss = floatp(loss)
	s.ValidationLoss = floatp(loss + 0.1)
	return s
}

func startMonitor(t *testing.T, backend Backend, view View, confirm Confirmer) *Monitor {
	t.Helper()
	m, err := New(Config{
		JobID:        "job-1",
		Backend:      backend,
		View:         view,
		Confirmer:    confirm,
		PollInterval: 5 * time.Millisecond,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func waitMonitorDone(t *testing.T, m *Monitor) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop polling")
	}
}

func TestMonitor_RunsToCompletion(t *testing.T) {
	backend := &sequenceBackend{statuses: []models.JobStatus{
		{Status: models.ServerStatusCreated},
		trainingTick(1, 3, 0.9),
		trainingTick(1, 3, 0.9),
		trainingTick(2, 3, 0.7),
		trainingTick(3, 3, 0.5),
	}}
	view := newRecordingView()
	m := startMonitor(t, backend, view, nil)
	waitMonitorDone(t, m)

	if got := m.State(); got != models.UIStateCompleted {
		t.Fatalf("State() = %q, want completed", got)
	}
	if n := view.shownCount(ModalCompletion); n != 1 {
		t.Errorf("completion modal shown %d times, want 1", n)
	}
	if n := view.shownCount(ModalPrep); n != 1 {
		t.Errorf("prep modal shown %d times, want 1", n)
	}
	if !m.ControlEnabled(ControlSave) || !m.ControlEnabled(ControlPredict) || m.ControlEnabled(ControlStop) {
		t.Error("completed job should only allow save and predict")
	}

	epochLines := 0
	for _, e := range m.Log() {
		if strings.HasPrefix(e.Message, "Epoch ") {
			epochLines++
		}
	}
	if epochLines != 3 {
		t.Errorf("epoch log lines = %d, want 3", epochLines)
	}
	if got := m.Chart().Training().Len(); got != 3 {
		t.Errorf("chart points = %d, want 3", got)
	}
	if m.Log()[0].Message != "Stopped monitoring training progress" {
		t.Errorf("newest log entry = %q", m.Log()[0].Message)
	}

	calls := backend.statusCalls()
	time.Sleep(30 * time.Millisecond)
	if backend.statusCalls() != calls {
		t.Error("polling continued after a terminal state")
	}
}

func TestMonitor_PausedControls(t *testing.T) {
	backend := &sequenceBackend{statuses: []models.JobStatus{
		trainingTick(1, 10, 0.9),
		status(models.ServerStatusPaused, 1, 10),
	}}
	view := newRecordingView()
	m := startMonitor(t, backend, view, nil)

	waitFor(t, func() bool { return m.State() == models.UIStatePaused })
	if !m.ControlEnabled(ControlResume) || !m.ControlEnabled(ControlStop) || m.ControlEnabled(ControlPause) {
		t.Error("paused job should allow resume and stop only")
	}
}

func TestMonitor_SaveDismissesCompletionModal(t *testing.T) {
	backend := &sequenceBackend{
		fakeSender: fakeSender{msg: "Model saved"},
		statuses:   []models.JobStatus{status(models.ServerStatusCompleted, 5, 5)},
	}
	m := startMonitor(t, backend, newRecordingView(), nil)
	waitMonitorDone(t, m)

	if !m.ModalOpen(ModalCompletion) {
		t.Fatal("completion modal not open")
	}
	if _, err := m.Send(context.Background(), models.CommandSave); err != nil {
		t.Fatalf("Send(save) error = %v", err)
	}
	if m.ModalOpen(ModalCompletion) {
		t.Error("completion modal still open after save")
	}
	if m.ControlEnabled(ControlSave) {
		t.Error("save still enabled after a successful save")
	}
}

func TestMonitor_StoppedByServer(t *testing.T) {
	backend := &sequenceBackend{statuses: []models.JobStatus{
		trainingTick(2, 10, 0.4),
		status(models.ServerStatusStopped, 2, 10),
		trainingTick(3, 10, 0.3),
	}}
	m := startMonitor(t, backend, newRecordingView(), nil)
	waitMonitorDone(t, m)

	if got := m.State(); got != models.UIStateStopped {
		t.Errorf("State() = %q, want stopped", got)
	}
	for _, c := range allControls {
		if m.ControlEnabled(c) {
			t.Errorf("%s enabled after stop", c)
		}
	}
}

func TestMonitor_ConfirmedStop(t *testing.T) {
	backend := &sequenceBackend{statuses: []models.JobStatus{trainingTick(1, 100, 0.9)}}
	m := startMonitor(t, backend, newRecordingView(), fixedConfirmer(true))
	waitFor(t, func() bool { return m.State() == models.UIStateTraining })

	if _, err := m.Send(context.Background(), models.CommandStop); err != nil {
		t.Fatalf("Send(stop) error = %v", err)
	}
	if backend.count() != 1 {
		t.Errorf("stop requests = %d, want 1", backend.count())
	}

	// the backend still reports training; polling must end anyway
	waitMonitorDone(t, m)
	if got := m.State(); got != models.UIStateStopped {
		t.Errorf("State() = %q, want stopped", got)
	}
	calls := backend.statusCalls()
	time.Sleep(30 * time.Millisecond)
	if backend.statusCalls() != calls {
		t.Error("polling continued after a confirmed stop")
	}
	for _, c := range allControls {
		if m.ControlEnabled(c) {
			t.Errorf("%s enabled after a confirmed stop", c)
		}
	}
	if m.Log()[0].Message != "Stopped monitoring training progress" {
		t.Errorf("newest log entry = %q", m.Log()[0].Message)
	}
}

func TestMonitor_DeclinedStopKeepsPolling(t *testing.T) {
	backend := &sequenceBackend{statuses: []models.JobStatus{trainingTick(1, 100, 0.9)}}
	m := startMonitor(t, backend, newRecordingView(), fixedConfirmer(false))
	waitFor(t, func() bool { return m.State() == models.UIStateTraining })

	if _, err := m.Send(context.Background(), models.CommandStop); err != ErrNotConfirmed {
		t.Fatalf("Send(stop) error = %v, want ErrNotConfirmed", err)
	}
	calls := backend.statusCalls()
	waitFor(t, func() bool { return backend.statusCalls() > calls })
	if !m.ControlEnabled(ControlStop) {
		t.Error("stop disabled after a declined confirmation")
	}
}

func TestMonitor_CloseDropsLateTick(t *testing.T) {
	backend := &sequenceBackend{statuses: []models.JobStatus{{Status: models.ServerStatusCreated}}}
	view := newRecordingView()
	m := startMonitor(t, backend, view, nil)
	waitFor(t, func() bool { return backend.statusCalls() > 0 })

	m.Close()
	// a tick that passed the poller's stop check before Close returned
	m.handleTick(trainingTick(4, 10, 0.3))

	if got := m.State(); got != models.UIStatePreparing {
		t.Errorf("State() = %q after Close, want preparing", got)
	}
	if m.Chart().Training().Len() != 0 {
		t.Error("chart updated by a tick delivered after Close")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Backend: &sequenceBackend{}}); err == nil {
		t.Error("New() without job id should fail")
	}
	if _, err := New(Config{JobID: "x"}); err == nil {
		t.Error("New() without backend should fail")
	}
}

func TestFormatMetrics(t *testing.T) {
	s := trainingTick(3, 12, 0.123456789)
	s.LearningRate = floatp(0.001)
	eta := "00:05:00"
	s.ETA = &eta

	got := formatMetrics(s)
	if got.TrainingLoss != "0.123457" {
		t.Errorf("TrainingLoss = %q", got.TrainingLoss)
	}
	if got.ProgressText != "3/12" || got.ProgressPercent != 25 {
		t.Errorf("progress = %q %v", got.ProgressText, got.ProgressPercent)
	}
	if got.LearningRate != "0.001" || got.ETA != eta {
		t.Errorf("lr/eta = %q/%q", got.LearningRate, got.ETA)
	}
	if formatMetrics(models.JobStatus{Status: models.ServerStatusCreated}).HasProgress {
		t.Error("progress without epoch counters")
	}
}
