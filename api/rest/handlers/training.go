package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"signal-monitor/core/models"
	"signal-monitor/core/repository"
	"signal-monitor/core/spec"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxSpecBytes = 1 << 20

// ETAEstimator estimates the remaining time of a running job
type ETAEstimator interface {
	ETA(job *models.TrainingJob) string
}

// ModelSaver persists the model of a completed job
type ModelSaver interface {
	SaveModel(ctx context.Context, job *models.TrainingJob) (string, error)
}

// TrainingHandler handles training lifecycle requests
type TrainingHandler struct {
	store  repository.Store
	eta    ETAEstimator
	models ModelSaver
	logger *zap.Logger
}

// NewTrainingHandler creates a new training handler
func NewTrainingHandler(store repository.Store, eta ETAEstimator, saver ModelSaver, logger *zap.Logger) *TrainingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrainingHandler{store: store, eta: eta, models: saver, logger: logger}
}

// StartTraining handles POST /api/start-training/: it creates a job from a YAML
// job spec body and starts it at once
func (h *TrainingHandler) StartTraining(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSpecBytes))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	js, err := spec.ParseJobSpec(string(body))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid job spec: "+err.Error())
		return
	}

	job := js.NewTrainingJob(string(body))
	if err := h.store.CreateJob(r.Context(), job); err != nil {
		h.logger.Error("failed to create job", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to create training job")
		return
	}
	if err := h.store.UpdateJobStatus(r.Context(), job.ID, models.ServerStatusCreated, models.ServerStatusTraining, "started", nil); err != nil {
		h.logger.Error("failed to start job", zap.String("job_id", job.ID), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to start training job")
		return
	}
	job.Status = models.ServerStatusTraining

	h.logger.Info("training job started",
		zap.String("job_id", job.ID),
		zap.String("name", job.Name),
		zap.Int("epochs", job.TotalEpochs))
	writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"job_id":     job.ID,
		"status":     job.Status,
		"created_at": job.CreatedAt,
	})
}

// TrainingStatus handles GET /api/training-status/{id}/
func (h *TrainingHandler) TrainingStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	eta := ""
	if h.eta != nil {
		eta = h.eta.ETA(job)
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"training_status": job.Snapshot(eta),
	})
}

// transition is one lifecycle command the backend accepts
type transition struct {
	from    []models.ServerStatus
	to      models.ServerStatus
	reason  string
	refusal string
	done    string
}

var (
	pauseTransition = transition{
		from:    []models.ServerStatus{models.ServerStatusTraining},
		to:      models.ServerStatusPaused,
		reason:  "user_paused",
		refusal: "Can only pause a job that is training",
		done:    "Training paused",
	}
	resumeTransition = transition{
		from:    []models.ServerStatus{models.ServerStatusPaused},
		to:      models.ServerStatusTraining,
		reason:  "user_resumed",
		refusal: "Can only resume a paused job",
		done:    "Training resumed",
	}
	stopTransition = transition{
		from:    []models.ServerStatus{models.ServerStatusCreated, models.ServerStatusTraining, models.ServerStatusPaused},
		to:      models.ServerStatusStopped,
		reason:  "user_stopped",
		refusal: "Can only stop a job that is created, training or paused",
		done:    "Training stopped",
	}
)

// PauseTraining handles POST /api/pause-training/{id}/
func (h *TrainingHandler) PauseTraining(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, pauseTransition)
}

// ResumeTraining handles POST /api/resume-training/{id}/
func (h *TrainingHandler) ResumeTraining(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, resumeTransition)
}

// StopTraining handles POST /api/stop-training/{id}/
func (h *TrainingHandler) StopTraining(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, stopTransition)
}

func (h *TrainingHandler) apply(w http.ResponseWriter, r *http.Request, t transition) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}

	allowed := false
	for _, s := range t.from {
		if job.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		writeMessage(w, http.StatusBadRequest, t.refusal)
		return
	}

	err := h.store.UpdateJobStatus(r.Context(), job.ID, job.Status, t.to, t.reason, nil)
	if errors.Is(err, repository.ErrStatusConflict) {
		writeMessage(w, http.StatusConflict, "Training status changed, please retry")
		return
	}
	if err != nil {
		h.logger.Error("status update failed", zap.String("job_id", job.ID), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to update training status")
		return
	}

	h.logger.Info("training status changed",
		zap.String("job_id", job.ID),
		zap.String("from", string(job.Status)),
		zap.String("to", string(t.to)))
	writeSuccess(w, http.StatusOK, map[string]interface{}{"message": t.done})
}

// SaveModel handles POST /api/save-model/{id}/
func (h *TrainingHandler) SaveModel(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	if job.Status != models.ServerStatusCompleted {
		writeMessage(w, http.StatusBadRequest, "Can only save the model of a completed job")
		return
	}

	uri, err := h.models.SaveModel(r.Context(), job)
	if err != nil {
		h.logger.Error("save model failed", zap.String("job_id", job.ID), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to save model")
		return
	}

	h.logger.Info("model saved", zap.String("job_id", job.ID), zap.String("uri", uri))
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"message":   "Model saved",
		"model_uri": uri,
	})
}

// TrainingSet handles GET /api/get-training-set/{id}/
func (h *TrainingHandler) TrainingSet(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	info := models.TrainingSetInfo{ID: job.ID, Name: job.Name, Status: job.Status}
	if js := h.jobSpec(job); js != nil {
		params := js.Params()
		info.Params = &params
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"training_set": info,
	})
}

// TrainingEvents handles GET /api/training-events/{id}/
func (h *TrainingHandler) TrainingEvents(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}

	events, err := h.store.GetJobEvents(r.Context(), job.ID, 100)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Failed to fetch events")
		return
	}

	items := make([]map[string]interface{}, len(events))
	for i, event := range events {
		item := map[string]interface{}{
			"at":        event.At,
			"to_status": event.ToStatus,
			"reason":    event.Reason,
		}
		if event.FromStatus != nil {
			item["from_status"] = *event.FromStatus
		}
		if len(event.Meta) > 0 {
			item["meta"] = event.Meta
		}
		items[i] = item
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{"items": items})
}

// ListJobs handles GET /api/training-jobs/
func (h *TrainingHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeMessage(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	var status *models.ServerStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := models.ServerStatus(raw)
		if !s.Valid() {
			writeMessage(w, http.StatusBadRequest, fmt.Sprintf("Unknown status %q", raw))
			return
		}
		status = &s
	}

	jobs, err := h.store.ListJobs(r.Context(), status, limit)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	counts := map[models.ServerStatus]int{}
	items := make([]map[string]interface{}, len(jobs))
	for i, job := range jobs {
		counts[job.Status]++
		items[i] = map[string]interface{}{
			"id":            job.ID,
			"name":          job.Name,
			"status":        job.Status,
			"current_epoch": job.CurrentEpoch,
			"total_epochs":  job.TotalEpochs,
			"created_at":    job.CreatedAt.Format(time.RFC3339),
		}
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"counts": counts,
	})
}

func (h *TrainingHandler) loadJob(w http.ResponseWriter, r *http.Request) (*models.TrainingJob, bool) {
	jobID := mux.Vars(r)["id"]
	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, repository.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Training set not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to load job", zap.String("job_id", jobID), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to load training set")
		return nil, false
	}
	return job, true
}
