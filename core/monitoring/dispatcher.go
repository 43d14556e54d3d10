package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"signal-monitor/api/client"
	"signal-monitor/core/models"

	"go.uber.org/zap"
)

var (
	// ErrNotConfirmed is returned when the user declines a destructive command
	ErrNotConfirmed = errors.New("command not confirmed")
	// ErrInFlight is returned when the same command is already being sent
	ErrInFlight = errors.New("command already in flight")
)

// CommandSender delivers a control command to the backend
type CommandSender interface {
	SendCommand(ctx context.Context, cmd models.Command, jobID string) (string, error)
}

// Confirmer asks the user to approve a destructive action.
// It may block until the user answers or ctx ends.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// Notifier surfaces transient messages to the user
type Notifier interface {
	Notify(level models.LogLevel, message string)
}

// Result is the outcome of an accepted command
type Result struct {
	Command models.Command
	Message string
}

// StopPrompt is the confirmation text shown before stopping a job
const StopPrompt = "Stop training? This terminates the current training run."

var commandControls = map[models.Command]Control{
	models.CommandPause:  ControlPause,
	models.CommandResume: ControlResume,
	models.CommandStop:   ControlStop,
	models.CommandSave:   ControlSave,
}

// DispatcherConfig wires an ActionDispatcher
type DispatcherConfig struct {
	JobID     string
	Sender    CommandSender
	Confirmer Confirmer
	Notifier  Notifier
	Controls  *ControlPanel
	Log       *ActivityLog
	Logger    *zap.Logger

	// UILock serializes control and log updates with the rest of the monitor
	UILock sync.Locker
	// OnSuccess runs under UILock after a command is accepted
	OnSuccess func(cmd models.Command)
}

// ActionDispatcher sends user commands and reconciles the control affordances
type ActionDispatcher struct {
	cfg      DispatcherConfig
	inflight map[models.Command]bool
}

// NewActionDispatcher creates a dispatcher
func NewActionDispatcher(cfg DispatcherConfig) *ActionDispatcher {
	if cfg.UILock == nil {
		cfg.UILock = &sync.Mutex{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &ActionDispatcher{cfg: cfg, inflight: make(map[models.Command]bool)}
}

// Send dispatches cmd for the configured job.
// Stop requires confirmation; a duplicate of an in-flight command is refused.
func (d *ActionDispatcher) Send(ctx context.Context, cmd models.Command) (Result, error) {
	control, ok := commandControls[cmd]
	if !ok {
		return Result{}, fmt.Errorf("unsupported command %q", cmd)
	}

	d.cfg.UILock.Lock()
	busy := d.inflight[cmd]
	d.cfg.UILock.Unlock()
	if busy {
		return Result{}, ErrInFlight
	}

	if cmd == models.CommandStop {
		if d.cfg.Confirmer == nil || !d.cfg.Confirmer.Confirm(ctx, StopPrompt) {
			d.cfg.Logger.Info("stop cancelled by user", zap.String("job_id", d.cfg.JobID))
			return Result{}, ErrNotConfirmed
		}
	}

	d.cfg.UILock.Lock()
	if d.inflight[cmd] {
		d.cfg.UILock.Unlock()
		return Result{}, ErrInFlight
	}
	d.inflight[cmd] = true
	snapshot := d.cfg.Controls.Snapshot()
	d.cfg.Controls.Hold(control)
	d.cfg.UILock.Unlock()

	msg, err := d.cfg.Sender.SendCommand(ctx, cmd, d.cfg.JobID)

	d.cfg.UILock.Lock()
	defer d.cfg.UILock.Unlock()
	delete(d.inflight, cmd)
	d.cfg.Controls.Release(control)

	if err != nil {
		d.cfg.Controls.Restore(snapshot)
		text := fmt.Sprintf("%s failed: %s", commandLabel(cmd), client.Message(err))
		d.cfg.Log.Add(models.LogError, text)
		if d.cfg.Notifier != nil {
			d.cfg.Notifier.Notify(models.LogError, text)
		}
		d.cfg.Logger.Warn("command failed",
			zap.String("job_id", d.cfg.JobID),
			zap.String("command", string(cmd)),
			zap.Error(err))
		return Result{}, err
	}

	level, text := d.applyOptimistic(cmd)
	if msg != "" {
		text = fmt.Sprintf("%s: %s", text, msg)
	}
	d.cfg.Log.Add(level, text)
	d.cfg.Logger.Info("command accepted",
		zap.String("job_id", d.cfg.JobID),
		zap.String("command", string(cmd)))

	if d.cfg.OnSuccess != nil {
		d.cfg.OnSuccess(cmd)
	}
	return Result{Command: cmd, Message: msg}, nil
}

// applyOptimistic switches the controls to what the accepted command implies
func (d *ActionDispatcher) applyOptimistic(cmd models.Command) (models.LogLevel, string) {
	switch cmd {
	case models.CommandPause:
		d.cfg.Controls.Set(map[Control]bool{ControlPause: false, ControlResume: true})
		return models.LogWarning, "Training paused"
	case models.CommandResume:
		d.cfg.Controls.Set(map[Control]bool{ControlPause: true, ControlResume: false})
		return models.LogSuccess, "Training resumed"
	case models.CommandStop:
		d.cfg.Controls.DisableLifecycle()
		return models.LogWarning, "Training stopped"
	default:
		d.cfg.Controls.Set(map[Control]bool{ControlSave: false})
		return models.LogSuccess, "Model saved"
	}
}

func commandLabel(cmd models.Command) string {
	switch cmd {
	case models.CommandPause:
		return "Pause training"
	case models.CommandResume:
		return "Resume training"
	case models.CommandStop:
		return "Stop training"
	default:
		return "Save model"
	}
}
