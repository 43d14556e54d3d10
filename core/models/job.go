package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ServerStatus is the lifecycle status reported by the backend for a training job
type ServerStatus string

const (
	ServerStatusCreated   ServerStatus = "created"
	ServerStatusTraining  ServerStatus = "training"
	ServerStatusPaused    ServerStatus = "paused"
	ServerStatusCompleted ServerStatus = "completed"
	ServerStatusStopped   ServerStatus = "stopped"
	ServerStatusFailed    ServerStatus = "failed"
)

// AllServerStatuses lists every known server status in lifecycle order
var AllServerStatuses = []ServerStatus{
	ServerStatusCreated, ServerStatusTraining, ServerStatusPaused,
	ServerStatusCompleted, ServerStatusStopped, ServerStatusFailed,
}

// Valid reports whether s is one of the known server statuses
func (s ServerStatus) Valid() bool {
	for _, known := range AllServerStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// UnmarshalJSON rejects statuses outside the known set
func (s *ServerStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("status: %w", err)
	}
	v := ServerStatus(raw)
	if !v.Valid() {
		return fmt.Errorf("unknown training status %q", raw)
	}
	*s = v
	return nil
}

// JobStatus is one polled snapshot of a training job.
// Optional fields are nil when the backend omits them.
type JobStatus struct {
	Status          ServerStatus `json:"status"`
	CurrentEpoch    *int         `json:"current_epoch,omitempty"`
	TotalEpochs     *int         `json:"total_epochs,omitempty"`
	TrainingLoss    *float64     `json:"training_loss,omitempty"`
	ValidationLoss  *float64     `json:"validation_loss,omitempty"`
	LearningRate    *float64     `json:"learning_rate,omitempty"`
	MSEMetric       *float64     `json:"mse_metric,omitempty"`
	ETA             *string      `json:"eta,omitempty"`
	TrainingSetName *string      `json:"training_set_name,omitempty"`
}

// Validate checks the epoch invariant: 0 <= current_epoch <= total_epochs
func (s JobStatus) Validate() error {
	if !s.Status.Valid() {
		return fmt.Errorf("unknown training status %q", s.Status)
	}
	if s.CurrentEpoch != nil && *s.CurrentEpoch < 0 {
		return fmt.Errorf("current_epoch is negative: %d", *s.CurrentEpoch)
	}
	if s.TotalEpochs != nil && *s.TotalEpochs < 0 {
		return fmt.Errorf("total_epochs is negative: %d", *s.TotalEpochs)
	}
	if s.CurrentEpoch != nil && s.TotalEpochs != nil && *s.TotalEpochs > 0 && *s.CurrentEpoch > *s.TotalEpochs {
		return fmt.Errorf("current_epoch %d exceeds total_epochs %d", *s.CurrentEpoch, *s.TotalEpochs)
	}
	return nil
}

// Epoch returns current_epoch, or 0 when absent
func (s JobStatus) Epoch() int {
	if s.CurrentEpoch == nil {
		return 0
	}
	return *s.CurrentEpoch
}

// Progress returns completion in percent when both epoch counters are known
func (s JobStatus) Progress() (float64, bool) {
	if s.CurrentEpoch == nil || s.TotalEpochs == nil || *s.TotalEpochs <= 0 {
		return 0, false
	}
	return float64(*s.CurrentEpoch) / float64(*s.TotalEpochs) * 100, true
}

// UIState is the finite display state derived from polled statuses
type UIState string

const (
	UIStatePreparing UIState = "preparing"
	UIStateTraining  UIState = "training"
	UIStatePaused    UIState = "paused"
	UIStateCompleted UIState = "completed"
	UIStateStopped   UIState = "stopped"
	UIStateFailed    UIState = "failed"
)

// IsTerminal reports whether no further automatic transition may leave this state
func (s UIState) IsTerminal() bool {
	return s == UIStateCompleted || s == UIStateStopped || s == UIStateFailed
}

// Command is a user-initiated control request for a training job
type Command string

const (
	CommandPause  Command = "pause"
	CommandResume Command = "resume"
	CommandStop   Command = "stop"
	CommandSave   Command = "save"
)

// TrainingJob is the backend's record of a simulated training run
type TrainingJob struct {
	ID             string
	Name           string
	Status         ServerStatus
	CurrentEpoch   int
	TotalEpochs    int
	TrainingLoss   *float64
	ValidationLoss *float64
	LearningRate   float64
	MSEMetric      *float64
	SpecYAML       string // Original spec for replay/debug
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	UpdatedAt      time.Time
}

// Snapshot renders the job as the status payload served to pollers
func (j *TrainingJob) Snapshot(eta string) JobStatus {
	current := j.CurrentEpoch
	total := j.TotalEpochs
	lr := j.LearningRate
	name := j.Name
	s := JobStatus{
		Status:          j.Status,
		CurrentEpoch:    &current,
		TotalEpochs:     &total,
		TrainingLoss:    j.TrainingLoss,
		ValidationLoss:  j.ValidationLoss,
		LearningRate:    &lr,
		MSEMetric:       j.MSEMetric,
		TrainingSetName: &name,
	}
	if eta != "" {
		s.ETA = &eta
	}
	return s
}
