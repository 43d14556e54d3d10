package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"signal-monitor/core/models"
	"signal-monitor/core/monitoring"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeController struct {
	mu        sync.Mutex
	sent      []models.Command
	dismissed []monitoring.Modal
	done      chan struct{}
}

func (f *fakeController) Send(ctx context.Context, cmd models.Command) (monitoring.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	return monitoring.Result{Command: cmd}, nil
}

func (f *fakeController) DismissModal(modal monitoring.Modal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismissed = append(f.dismissed, modal)
}

func (f *fakeController) Done() <-chan struct{} { return f.done }

func newTestModel(t *testing.T) (Model, *fakeController, *Bridge) {
	t.Helper()
	ctl := &fakeController{done: make(chan struct{})}
	b := NewBridge()
	t.Cleanup(b.Close)
	m, err := NewModel(Options{JobID: "job-1", Controller: ctl, Bridge: b})
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), ctl, b
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestNewModel_RequiresController(t *testing.T) {
	if _, err := NewModel(Options{Bridge: NewBridge()}); err == nil {
		t.Error("NewModel() without controller should fail")
	}
	if _, err := NewModel(Options{Controller: &fakeController{}}); err == nil {
		t.Error("NewModel() without bridge should fail")
	}
}

func TestModel_KeysFollowControls(t *testing.T) {
	m, ctl, _ := newTestModel(t)

	if _, cmd := update(t, m, keyPress("p")); cmd != nil {
		t.Fatal("pause with disabled control returned a command")
	}

	m, _ = update(t, m, controlsMsg{monitoring.ControlPause: true, monitoring.ControlStop: true})
	_, cmd := update(t, m, keyPress("p"))
	if cmd == nil {
		t.Fatal("pause with enabled control returned no command")
	}
	msg := cmd()
	done, ok := msg.(commandDoneMsg)
	if !ok || done.cmd != models.CommandPause || done.err != nil {
		t.Errorf("command result = %#v", msg)
	}
	if len(ctl.sent) != 1 || ctl.sent[0] != models.CommandPause {
		t.Errorf("sent = %v, want [pause]", ctl.sent)
	}

	if _, cmd := update(t, m, keyPress("v")); cmd != nil {
		t.Error("save with disabled control returned a command")
	}
}

func TestModel_DismissModal(t *testing.T) {
	m, ctl, _ := newTestModel(t)
	m, _ = update(t, m, modalMsg{modal: monitoring.ModalPrep, open: true})

	if !strings.Contains(m.View(), "Preparing training") {
		t.Fatalf("View() does not show the prep modal:\n%s", m.View())
	}

	m, cmd := update(t, m, keyPress("d"))
	if cmd == nil {
		t.Fatal("dismiss returned no command")
	}
	cmd()
	if len(ctl.dismissed) != 1 || ctl.dismissed[0] != monitoring.ModalPrep {
		t.Errorf("dismissed = %v, want [prep]", ctl.dismissed)
	}
	if strings.Contains(m.View(), "Preparing training") {
		t.Error("prep modal still rendered after dismiss")
	}
}

func TestModel_RendersStateAndMetrics(t *testing.T) {
	m, _, _ := newTestModel(t)
	m, _ = update(t, m, stateMsg(models.UIStatePaused))
	m, _ = update(t, m, metricsMsg(monitoring.Metrics{
		TrainingSetName: "bearing",
		CurrentEpoch:    "3",
		TotalEpochs:     "10",
		TrainingLoss:    "0.500000",
		ValidationLoss:  "0.550000",
		HasProgress:     true,
		ProgressPercent: 30,
		ProgressText:    "3/10",
	}))
	m, _ = update(t, m, chartMsg{series: monitoring.SeriesTrainingLoss, points: []monitoring.Point{{Epoch: 1, Value: 1}, {Epoch: 3, Value: 0.5}}})
	m, _ = update(t, m, logMsg{{At: time.Now(), Level: models.LogWarning, Message: "Training paused"}})

	view := m.View()
	for _, want := range []string{"Paused", "bearing", "3/10", "0.500000", "epochs 1-3", "Training paused"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestModel_ConfirmRoundTrip(t *testing.T) {
	m, _, b := newTestModel(t)

	result := make(chan bool, 1)
	go func() { result <- b.Confirm(context.Background(), "Stop training?") }()

	m, _ = update(t, m, b.wait()())
	if !strings.Contains(m.View(), "Stop training?") {
		t.Fatalf("View() does not show the prompt:\n%s", m.View())
	}

	// unrelated keys leave the prompt open
	m, _ = update(t, m, keyPress("p"))
	if m.confirm == nil {
		t.Fatal("prompt closed by an unrelated key")
	}

	m, _ = update(t, m, keyPress("y"))
	select {
	case ok := <-result:
		if !ok {
			t.Error("Confirm() = false, want true")
		}
	case <-time.After(time.Second):
		t.Fatal("Confirm() did not return")
	}
	if m.confirm != nil {
		t.Error("prompt still open after answer")
	}
}

func TestModel_QuitDeclinesPendingConfirm(t *testing.T) {
	m, _, b := newTestModel(t)

	result := make(chan bool, 1)
	go func() { result <- b.Confirm(context.Background(), "Stop training?") }()
	m, _ = update(t, m, b.wait()())

	_, cmd := update(t, m, keyPress("q"))
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if ok := <-result; ok {
		t.Error("Confirm() = true after quit, want false")
	}
}

func TestBridge_CloseReleasesWaiters(t *testing.T) {
	b := NewBridge()

	confirmed := make(chan bool, 1)
	go func() { confirmed <- b.Confirm(context.Background(), "Stop training?") }()

	posted := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Notify(models.LogInfo, "tick")
		}
		close(posted)
	}()

	time.Sleep(10 * time.Millisecond)
	b.Close()

	select {
	case <-posted:
	case <-time.After(time.Second):
		t.Fatal("post still blocked after Close")
	}
	select {
	case ok := <-confirmed:
		if ok {
			t.Error("Confirm() = true after Close, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("Confirm() still blocked after Close")
	}
}

func TestBridge_ConfirmCancelledContext(t *testing.T) {
	b := NewBridge()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if b.Confirm(ctx, "Stop training?") {
		t.Error("Confirm() with cancelled context = true, want false")
	}
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		width  int
		want   string
	}{
		{"empty", nil, 4, "...."},
		{"ramp", []float64{1, 2, 3}, 4, "▁▅█ "},
		{"flat", []float64{2, 2}, 4, "▇▇  "},
		{"downsampled", []float64{0, 1, 2, 3, 4, 5, 6, 7}, 4, "▁▃▆█"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sparkline(tt.series, tt.width); got != tt.want {
				t.Errorf("sparkline() = %q, want %q", got, tt.want)
			}
		})
	}
}
