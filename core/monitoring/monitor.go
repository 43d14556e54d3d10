package monitoring

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"signal-monitor/core/models"

	"go.uber.org/zap"
)

// Metrics is the formatted metrics panel of one tick
type Metrics struct {
	TrainingSetName string
	CurrentEpoch    string
	TotalEpochs     string
	TrainingLoss    string
	ValidationLoss  string
	LearningRate    string
	MSEMetric       string
	ProgressText    string
	ProgressPercent float64
	HasProgress     bool
	ETA             string
}

// View is everything the monitor renders to
type View interface {
	ModalView
	ControlView
	LogView
	Renderer
	Notifier
	SetState(state models.UIState)
	SetMetrics(m Metrics)
}

// Backend is the subset of the API client the monitor uses
type Backend interface {
	StatusSource
	CommandSender
}

// Config wires a Monitor
type Config struct {
	JobID        string
	Backend      Backend
	View         View
	Confirmer    Confirmer
	PollInterval time.Duration
	ChartCap     int
	LogCap       int
	Logger       *zap.Logger
}

// Monitor owns the state of one training-monitor screen.
// Ticks and command results are serialized through mu.
type Monitor struct {
	mu sync.Mutex

	jobID    string
	interval time.Duration
	view     View
	logger   *zap.Logger

	poller     *StatusPoller
	chart      *LossChart
	modals     *ModalCoordinator
	controls   *ControlPanel
	log        *ActivityLog
	dispatcher *ActionDispatcher

	state     models.UIState
	terminal  bool
	lastEpoch int
}

// New creates a monitor; call Start to begin polling
func New(cfg Config) (*Monitor, error) {
	if cfg.JobID == "" {
		return nil, fmt.Errorf("job id is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if cfg.View == nil {
		cfg.View = NopView{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	logger := cfg.Logger.With(zap.String("job_id", cfg.JobID))
	m := &Monitor{
		jobID:    cfg.JobID,
		interval: cfg.PollInterval,
		view:     cfg.View,
		logger:   logger,
		poller:   NewStatusPoller(cfg.Backend, cfg.JobID, logger),
		chart:    NewLossChart(cfg.ChartCap, cfg.View),
		modals:   NewModalCoordinator(cfg.View),
		controls: NewControlPanel(cfg.View),
		log:      NewActivityLog(cfg.LogCap, cfg.View),
		state:    models.UIStatePreparing,
	}
	m.dispatcher = NewActionDispatcher(DispatcherConfig{
		JobID:     cfg.JobID,
		Sender:    cfg.Backend,
		Confirmer: cfg.Confirmer,
		Notifier:  cfg.View,
		Controls:  m.controls,
		Log:       m.log,
		Logger:    logger,
		UILock:    &m.mu,
		OnSuccess: m.onCommandAccepted,
	})
	return m, nil
}

// Start shows the preparation state and begins polling
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	m.view.SetState(m.state)
	m.modals.OnStateEnter(m.state)
	m.log.Add(models.LogInfo, "Monitoring training progress")
	m.mu.Unlock()

	return m.poller.Start(ctx, m.interval, m.handleTick)
}

// Close stops polling; it is safe to call more than once.
// A tick already past the poller's checks is dropped once Close returns.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.terminal = true
	m.mu.Unlock()
	m.poller.Stop()
}

// Done is closed when polling has ended
func (m *Monitor) Done() <-chan struct{} {
	return m.poller.Done()
}

// Send dispatches a user command
func (m *Monitor) Send(ctx context.Context, cmd models.Command) (Result, error) {
	return m.dispatcher.Send(ctx, cmd)
}

// DismissModal closes a modal at the user's request
func (m *Monitor) DismissModal(modal Modal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modals.Dismiss(modal)
}

// State returns the current derived UI state
func (m *Monitor) State() models.UIState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ControlEnabled reports whether a control can currently be triggered
func (m *Monitor) ControlEnabled(c Control) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controls.Enabled(c)
}

// ModalOpen reports whether modal is displayed
func (m *Monitor) ModalOpen(modal Modal) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modals.IsOpen(modal)
}

// Log returns the activity log entries, newest first
func (m *Monitor) Log() []models.LogEntry {
	return m.log.Entries()
}

// Chart returns the loss chart
func (m *Monitor) Chart() *LossChart {
	return m.chart
}

// handleTick applies one polled status
func (m *Monitor) handleTick(s models.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.terminal {
		return
	}

	next := Reduce(m.state, s)
	if next != m.state {
		m.logger.Debug("ui state changed",
			zap.String("from", string(m.state)),
			zap.String("to", string(next)),
			zap.String("server_status", string(s.Status)))
		m.state = next
		m.view.SetState(next)
	}
	m.modals.OnStateEnter(next)

	m.view.SetMetrics(formatMetrics(s))
	m.chart.Update(s)

	if epoch := s.Epoch(); s.CurrentEpoch != nil && epoch > m.lastEpoch {
		m.lastEpoch = epoch
		m.log.Add(models.LogInfo, fmt.Sprintf("Epoch %d/%s - training loss: %s, validation loss: %s",
			epoch, optInt(s.TotalEpochs, "?"), optFloat(s.TrainingLoss, 6, "N/A"), optFloat(s.ValidationLoss, 6, "N/A")))
	}

	m.controls.ApplyServerStatus(effectiveStatus(next, s.Status))

	if next.IsTerminal() {
		switch next {
		case models.UIStateCompleted:
			m.log.Add(models.LogSuccess, "Training completed")
		case models.UIStateStopped:
			m.log.Add(models.LogWarning, "Training was stopped")
		case models.UIStateFailed:
			m.log.Add(models.LogError, "Training failed")
		}
		m.finishLocked()
	}
}

// finishLocked ends polling for good; mu must be held
func (m *Monitor) finishLocked() {
	m.terminal = true
	m.poller.Stop()
	m.log.Add(models.LogInfo, "Stopped monitoring training progress")
}

// onCommandAccepted runs under mu after the dispatcher applied its transition
func (m *Monitor) onCommandAccepted(cmd models.Command) {
	switch cmd {
	case models.CommandSave:
		m.modals.Dismiss(ModalCompletion)
	case models.CommandStop:
		if m.terminal {
			return
		}
		if m.state != models.UIStateStopped {
			m.state = models.UIStateStopped
			m.view.SetState(m.state)
			m.modals.OnStateEnter(m.state)
		}
		m.controls.ApplyServerStatus(models.ServerStatusStopped)
		m.finishLocked()
	}
}

// effectiveStatus makes terminal UI states drive the controls even when the
// server status lags behind the epoch counter
func effectiveStatus(state models.UIState, s models.ServerStatus) models.ServerStatus {
	switch state {
	case models.UIStateCompleted:
		return models.ServerStatusCompleted
	case models.UIStateStopped:
		return models.ServerStatusStopped
	case models.UIStateFailed:
		return models.ServerStatusFailed
	}
	return s
}

func formatMetrics(s models.JobStatus) Metrics {
	out := Metrics{
		CurrentEpoch:   optInt(s.CurrentEpoch, "0"),
		TotalEpochs:    optInt(s.TotalEpochs, "--"),
		TrainingLoss:   optFloat(s.TrainingLoss, 6, "--"),
		ValidationLoss: optFloat(s.ValidationLoss, 6, "--"),
		MSEMetric:      optFloat(s.MSEMetric, 6, "--"),
		LearningRate:   "--",
	}
	if s.LearningRate != nil {
		out.LearningRate = strconv.FormatFloat(*s.LearningRate, 'g', -1, 64)
	}
	if s.TrainingSetName != nil {
		out.TrainingSetName = *s.TrainingSetName
	}
	if pct, ok := s.Progress(); ok {
		out.HasProgress = true
		out.ProgressPercent = pct
		out.ProgressText = fmt.Sprintf("%d/%d", *s.CurrentEpoch, *s.TotalEpochs)
	}
	if s.ETA != nil {
		out.ETA = *s.ETA
	}
	return out
}

func optInt(v *int, fallback string) string {
	if v == nil {
		return fallback
	}
	return strconv.Itoa(*v)
}

func optFloat(v *float64, prec int, fallback string) string {
	if v == nil {
		return fallback
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

// NopView discards all rendering
type NopView struct{}

func (NopView) ShowModal(Modal)                {}
func (NopView) HideModal(Modal)                {}
func (NopView) SetControls(map[Control]bool)   {}
func (NopView) SetLog([]models.LogEntry)       {}
func (NopView) Redraw(string, []Point)         {}
func (NopView) Notify(models.LogLevel, string) {}
func (NopView) SetState(models.UIState)        {}
func (NopView) SetMetrics(Metrics)             {}
