// Package tui renders the training monitor in the terminal with bubbletea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signal-monitor/core/models"
	"signal-monitor/core/monitoring"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

const noticeTTL = 5 * time.Second

// Controller is the part of the monitor the UI drives
type Controller interface {
	Send(ctx context.Context, cmd models.Command) (monitoring.Result, error)
	DismissModal(modal monitoring.Modal)
	Done() <-chan struct{}
}

// Predictor evaluates a finished job and returns where the results were written
type Predictor func(ctx context.Context) (string, error)

// Options wires a Model
type Options struct {
	Context    context.Context
	JobID      string
	Controller Controller
	Bridge     *Bridge
	Predict    Predictor
	Logger     *zap.Logger
}

type commandDoneMsg struct {
	cmd models.Command
	err error
}

type predictDoneMsg struct {
	path string
	err  error
}

type clearNoticeMsg int
type monitorDoneMsg struct{}

// Model is the bubbletea model of the monitor screen
type Model struct {
	ctx     context.Context
	jobID   string
	ctl     Controller
	bridge  *Bridge
	predict Predictor
	logger  *zap.Logger

	keys     keyMap
	styles   styles
	help     help.Model
	spin     spinner.Model
	progress progress.Model
	logView  viewport.Model

	width  int
	height int

	state    models.UIState
	metrics  monitoring.Metrics
	controls map[monitoring.Control]bool
	entries  []models.LogEntry
	train    []monitoring.Point
	val      []monitoring.Point
	modals   map[monitoring.Modal]bool

	notice     *notifyMsg
	noticeSeq  int
	confirm    *confirmMsg
	predicting bool
	finished   bool
}

// NewModel creates the monitor screen
func NewModel(opts Options) (Model, error) {
	if opts.Controller == nil {
		return Model{}, fmt.Errorf("controller is required")
	}
	if opts.Bridge == nil {
		return Model{}, fmt.Errorf("bridge is required")
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	lv := viewport.New(60, 8)
	lv.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		Down:     key.NewBinding(key.WithKeys("down", "j")),
		Up:       key.NewBinding(key.WithKeys("up", "k")),
	}

	return Model{
		ctx:      opts.Context,
		jobID:    opts.JobID,
		ctl:      opts.Controller,
		bridge:   opts.Bridge,
		predict:  opts.Predict,
		logger:   opts.Logger,
		keys:     defaultKeyMap(),
		styles:   defaultStyles(),
		help:     help.New(),
		spin:     sp,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		logView:  lv,
		state:    models.UIStatePreparing,
		controls: map[monitoring.Control]bool{},
		modals:   map[monitoring.Modal]bool{},
	}, nil
}

// Run drives the monitor screen until the user quits
func Run(opts Options) error {
	m, err := NewModel(opts)
	if err != nil {
		return err
	}
	defer opts.Bridge.Close()

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.bridge.wait(), waitDone(m.ctl.Done()))
}

func waitDone(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return monitorDoneMsg{}
	}
}

func clearNoticeCmd(seq int) tea.Cmd {
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg(seq) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(10, min(60, msg.Width/2-20))
		m.logView.Width = max(54, msg.Width-8)
		m.logView.Height = max(3, msg.Height-24)
		m.refreshLog()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateMsg:
		m.state = models.UIState(msg)
		return m, m.bridge.wait()

	case metricsMsg:
		m.metrics = monitoring.Metrics(msg)
		cmds := []tea.Cmd{m.bridge.wait()}
		if m.metrics.HasProgress {
			cmds = append(cmds, m.progress.SetPercent(m.metrics.ProgressPercent/100))
		}
		return m, tea.Batch(cmds...)

	case controlsMsg:
		m.controls = msg
		return m, m.bridge.wait()

	case logMsg:
		m.entries = msg
		m.refreshLog()
		return m, m.bridge.wait()

	case chartMsg:
		switch msg.series {
		case monitoring.SeriesTrainingLoss:
			m.train = msg.points
		case monitoring.SeriesValidationLoss:
			m.val = msg.points
		}
		return m, m.bridge.wait()

	case modalMsg:
		m.modals[msg.modal] = msg.open
		return m, m.bridge.wait()

	case notifyMsg:
		m.noticeSeq++
		m.notice = &msg
		return m, tea.Batch(m.bridge.wait(), clearNoticeCmd(m.noticeSeq))

	case clearNoticeMsg:
		if int(msg) == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case confirmMsg:
		if m.confirm != nil {
			msg.reply <- false
		} else {
			m.confirm = &msg
		}
		return m, m.bridge.wait()

	case commandDoneMsg:
		// failures are already logged and notified by the dispatcher
		if errors.Is(msg.err, monitoring.ErrInFlight) {
			return m.notify(models.LogWarning, fmt.Sprintf("%s is already in progress", msg.cmd))
		}
		if msg.err != nil && !errors.Is(msg.err, monitoring.ErrNotConfirmed) {
			m.logger.Debug("command failed", zap.String("command", string(msg.cmd)), zap.Error(msg.err))
		}
		return m, nil

	case predictDoneMsg:
		m.predicting = false
		if msg.err != nil {
			return m.notify(models.LogError, "Evaluation failed: "+msg.err.Error())
		}
		return m.notify(models.LogSuccess, "Prediction results saved to "+msg.path)

	case monitorDoneMsg:
		m.finished = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m Model) notify(level models.LogLevel, text string) (tea.Model, tea.Cmd) {
	m.noticeSeq++
	m.notice = &notifyMsg{level: level, text: text}
	return m, clearNoticeCmd(m.noticeSeq)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		if m.confirm != nil {
			m.confirm.reply <- false
			m.confirm = nil
		}
		return m, tea.Quit
	}

	if m.confirm != nil {
		yes := key.Matches(msg, m.keys.Yes)
		if yes || key.Matches(msg, m.keys.No) {
			m.confirm.reply <- yes
			m.confirm = nil
		}
		return m, nil
	}

	if modal, ok := m.topModal(); ok && key.Matches(msg, m.keys.Dismiss) {
		m.modals[modal] = false
		ctl := m.ctl
		return m, func() tea.Msg {
			ctl.DismissModal(modal)
			return nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Pause):
		return m, m.command(monitoring.ControlPause, models.CommandPause)
	case key.Matches(msg, m.keys.Resume):
		return m, m.command(monitoring.ControlResume, models.CommandResume)
	case key.Matches(msg, m.keys.Stop):
		return m, m.command(monitoring.ControlStop, models.CommandStop)
	case key.Matches(msg, m.keys.Save):
		return m, m.command(monitoring.ControlSave, models.CommandSave)
	case key.Matches(msg, m.keys.Predict):
		if m.predict == nil || m.predicting || !m.controls[monitoring.ControlPredict] {
			return m, nil
		}
		m.predicting = true
		predict, ctx := m.predict, m.ctx
		return m, func() tea.Msg {
			path, err := predict(ctx)
			return predictDoneMsg{path: path, err: err}
		}
	}

	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

// command runs cmd off the event loop when its control is enabled
func (m Model) command(c monitoring.Control, cmd models.Command) tea.Cmd {
	if !m.controls[c] {
		return nil
	}
	ctl, ctx := m.ctl, m.ctx
	return func() tea.Msg {
		_, err := ctl.Send(ctx, cmd)
		return commandDoneMsg{cmd: cmd, err: err}
	}
}

var modalOrder = []monitoring.Modal{monitoring.ModalPrep, monitoring.ModalDataLoading, monitoring.ModalCompletion}

func (m Model) topModal() (monitoring.Modal, bool) {
	for _, modal := range modalOrder {
		if m.modals[modal] {
			return modal, true
		}
	}
	return "", false
}
