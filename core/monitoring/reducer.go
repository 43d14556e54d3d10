package monitoring

import "signal-monitor/core/models"

// Reduce derives the next UI state from the previous one and a polled status.
//
// Terminal states absorb every later tick. Epoch completion wins over the
// server status field, and an explicit server "paused" wins over epoch
// progress.
func Reduce(prev models.UIState, s models.JobStatus) models.UIState {
	if prev.IsTerminal() {
		return prev
	}

	if s.CurrentEpoch != nil && s.TotalEpochs != nil && *s.TotalEpochs > 0 && *s.CurrentEpoch >= *s.TotalEpochs {
		return models.UIStateCompleted
	}

	switch s.Status {
	case models.ServerStatusCompleted:
		return models.UIStateCompleted
	case models.ServerStatusStopped:
		return models.UIStateStopped
	case models.ServerStatusFailed:
		return models.UIStateFailed
	case models.ServerStatusPaused:
		return models.UIStatePaused
	}

	if s.Epoch() > 0 {
		return models.UIStateTraining
	}
	return models.UIStatePreparing
}
