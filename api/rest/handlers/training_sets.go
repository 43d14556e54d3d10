package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"signal-monitor/core/models"
	"signal-monitor/core/repository"
	"signal-monitor/core/spec"

	"go.uber.org/zap"
)

const listLimit = 1000

// CreateTrainingSet handles POST /api/create-training-set/.
// The set is stored as a created job and waits for start-training-from-set.
func (h *TrainingHandler) CreateTrainingSet(w http.ResponseWriter, r *http.Request) {
	var req models.TrainingSetRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSpecBytes)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	js, err := spec.FromTrainingSet(&req)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := js.YAML()
	if err != nil {
		h.logger.Error("failed to render training set spec", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to create training set")
		return
	}

	job := js.NewTrainingJob(doc)
	if err := h.store.CreateJob(r.Context(), job); err != nil {
		h.logger.Error("failed to create training set", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to create training set")
		return
	}

	h.logger.Info("training set created",
		zap.String("job_id", job.ID),
		zap.String("name", job.Name),
		zap.String("mode", js.Job.Mode))
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"message":           fmt.Sprintf("Training set %q created", job.Name),
		"training_set_id":   job.ID,
		"training_set_name": job.Name,
		"created_at":        job.CreatedAt,
	})
}

// TrainingSets handles GET /api/get-training-sets/
func (h *TrainingHandler) TrainingSets(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.store.ListJobs(r.Context(), nil, listLimit)
	if err != nil {
		h.logger.Error("failed to list training sets", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to list training sets")
		return
	}

	sets := make([]models.TrainingSetSummary, len(jobs))
	for i, job := range jobs {
		sets[i] = h.summary(job)
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"training_sets": sets,
		"total_count":   len(sets),
	})
}

type startFromSetRequest struct {
	ID           string `json:"training_set_id"`
	ForceRestart bool   `json:"force_restart"`
}

// StartFromSet handles POST /api/start-training-from-set/.
// A running or paused set is left alone, a finished one is only restarted
// with force_restart, and a created one starts at epoch 0.
func (h *TrainingHandler) StartFromSet(w http.ResponseWriter, r *http.Request) {
	var req startFromSetRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSpecBytes)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.ID == "" {
		writeMessage(w, http.StatusBadRequest, "training_set_id is required")
		return
	}

	job, err := h.store.GetJob(r.Context(), req.ID)
	if errors.Is(err, repository.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Training set not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load training set", zap.String("job_id", req.ID), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to load training set")
		return
	}

	result := models.StartResult{ID: job.ID, Status: job.Status}
	switch job.Status {
	case models.ServerStatusTraining, models.ServerStatusPaused:
		if !req.ForceRestart {
			result.Action = models.StartActionOpenMonitor
			result.Message = fmt.Sprintf("Training set is already %s", job.Status)
			writeSuccess(w, http.StatusOK, startFields(result))
			return
		}
	case models.ServerStatusCompleted, models.ServerStatusStopped, models.ServerStatusFailed:
		if !req.ForceRestart {
			result.Action = models.StartActionAskRestart
			result.Message = fmt.Sprintf("Training set has %s; restart it from epoch 0?", job.Status)
			writeSuccess(w, http.StatusOK, startFields(result))
			return
		}
	}

	if job.Status == models.ServerStatusCreated {
		err = h.store.UpdateJobStatus(r.Context(), job.ID, models.ServerStatusCreated, models.ServerStatusTraining, "started", nil)
	} else {
		err = h.store.RestartJob(r.Context(), job.ID, job.Status, "restarted")
	}
	if errors.Is(err, repository.ErrStatusConflict) {
		writeMessage(w, http.StatusConflict, "Training status changed, please retry")
		return
	}
	if err != nil {
		h.logger.Error("failed to start training set", zap.String("job_id", job.ID), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to start training")
		return
	}

	h.logger.Info("training set started",
		zap.String("job_id", job.ID),
		zap.String("from", string(job.Status)),
		zap.Bool("force_restart", req.ForceRestart))
	result.Action = models.StartActionStarted
	result.Status = models.ServerStatusTraining
	result.Message = "Training started"
	writeSuccess(w, http.StatusOK, startFields(result))
}

func startFields(res models.StartResult) map[string]interface{} {
	return map[string]interface{}{
		"training_set_id": res.ID,
		"action":          res.Action,
		"status":          res.Status,
		"message":         res.Message,
	}
}

// DeleteTrainingSet handles DELETE /api/delete-training-set/{id}/
func (h *TrainingHandler) DeleteTrainingSet(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	if job.Status == models.ServerStatusTraining || job.Status == models.ServerStatusPaused {
		writeMessage(w, http.StatusBadRequest, "Stop the training before deleting the training set")
		return
	}

	err := h.store.DeleteJob(r.Context(), job.ID)
	if errors.Is(err, repository.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Training set not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete training set", zap.String("job_id", job.ID), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to delete training set")
		return
	}

	h.logger.Info("training set deleted", zap.String("job_id", job.ID), zap.String("name", job.Name))
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"message":         fmt.Sprintf("Training set %q deleted", job.Name),
		"training_set_id": job.ID,
	})
}

// CompletedTraining handles GET /api/get-completed-training/
func (h *TrainingHandler) CompletedTraining(w http.ResponseWriter, r *http.Request) {
	completed := models.ServerStatusCompleted
	jobs, err := h.store.ListJobs(r.Context(), &completed, listLimit)
	if err != nil {
		h.logger.Error("failed to list completed training", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to list completed training")
		return
	}

	rows := make([]models.CompletedTraining, len(jobs))
	for i, job := range jobs {
		sum := h.summary(job)
		row := models.CompletedTraining{
			ID:                job.ID,
			Name:              job.Name,
			Description:       sum.Description,
			StartTime:         job.StartedAt,
			Progress:          100,
			MeasurementPoints: sum.MeasurementPoints,
			RecordCount:       sum.RecordCount,
			ValidationLoss:    job.ValidationLoss,
			Status:            "Completed",
		}
		if job.StartedAt != nil && job.CompletedAt != nil {
			row.DurationMinutes = math.Round(job.CompletedAt.Sub(*job.StartedAt).Minutes()*100) / 100
		}
		if job.ValidationLoss != nil {
			acc := models.AccuracyFromLoss(*job.ValidationLoss)
			row.Accuracy = &acc
		}
		rows[i] = row
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"completed_data": rows,
		"total_count":    len(rows),
	})
}

// DeployedModels handles GET /api/get-deployed-models/: every saved model
// of a completed training set
func (h *TrainingHandler) DeployedModels(w http.ResponseWriter, r *http.Request) {
	completed := models.ServerStatusCompleted
	jobs, err := h.store.ListJobs(r.Context(), &completed, listLimit)
	if err != nil {
		h.logger.Error("failed to list completed training", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to list deployed models")
		return
	}

	modelType := models.ArtifactTypeModel
	deployed := []models.DeployedModel{}
	for _, job := range jobs {
		artifacts, err := h.store.GetJobArtifacts(r.Context(), job.ID, &modelType)
		if err != nil {
			h.logger.Warn("failed to list model artifacts", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		if len(artifacts) == 0 {
			continue
		}
		sum := h.summary(job)
		for _, a := range artifacts {
			m := models.DeployedModel{
				ID:                  a.ID,
				Name:                job.Name,
				ModelType:           strings.ToUpper(sum.ModelType),
				DatasetID:           job.ID,
				DeployedAt:          a.CreatedAt,
				Status:              "active",
				Description:         sum.Description,
				URI:                 a.URI,
				FinalTrainingLoss:   job.TrainingLoss,
				FinalValidationLoss: job.ValidationLoss,
			}
			if job.ValidationLoss != nil {
				m.Accuracy = models.AccuracyFromLoss(*job.ValidationLoss)
			}
			deployed = append(deployed, m)
		}
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"deployed_models": deployed,
		"total_count":     len(deployed),
	})
}

// summary describes a job as a training set; spec fields stay empty when
// the stored spec no longer parses
func (h *TrainingHandler) summary(job *models.TrainingJob) models.TrainingSetSummary {
	sum := models.TrainingSetSummary{
		ID:          job.ID,
		Name:        job.Name,
		Status:      job.Status,
		StartTime:   job.StartedAt,
		EndTime:     job.CompletedAt,
		Epoch:       job.CurrentEpoch,
		TotalEpochs: job.TotalEpochs,
		CreatedAt:   job.CreatedAt,
	}
	js := h.jobSpec(job)
	if js == nil {
		return sum
	}
	sum.Description = js.Job.Description
	sum.ModelType = js.Job.Model.Type
	sum.TrainingMode = js.Params().Mode
	sum.MeasurementPoints = len(js.Job.Data.Channels)
	sum.RecordCount = js.Job.Data.Records
	if job.StartedAt == nil {
		sum.StartTime = js.Job.StartTime
	}
	return sum
}

func (h *TrainingHandler) jobSpec(job *models.TrainingJob) *spec.JobSpec {
	js, err := spec.ParseJobSpec(job.SpecYAML)
	if err != nil {
		h.logger.Debug("stored spec does not parse", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}
	return js
}
