package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"signal-monitor/core/models"
	"signal-monitor/core/repository"
	"signal-monitor/core/spec"
)

// ModelStore writes saved models to a directory and records them as artifacts
type ModelStore struct {
	dir   string
	store repository.Store
}

// NewModelStore creates a model store rooted at dir
func NewModelStore(dir string, store repository.Store) *ModelStore {
	return &ModelStore{dir: dir, store: store}
}

// savedModel is the on-disk record of a saved simulated model
type savedModel struct {
	JobID          string    `json:"job_id"`
	Name           string    `json:"name"`
	Epochs         int       `json:"epochs"`
	LearningRate   float64   `json:"learning_rate"`
	TrainingLoss   *float64  `json:"training_loss,omitempty"`
	ValidationLoss *float64  `json:"validation_loss,omitempty"`
	MSEMetric      *float64  `json:"mse_metric,omitempty"`
	SavedAt        time.Time `json:"saved_at"`
	Spec           string    `json:"spec_yaml"`

	Params *models.LearningParams `json:"learning_params,omitempty"`
}

// SaveModel persists the final state of a completed job and returns its URI
func (m *ModelStore) SaveModel(ctx context.Context, job *models.TrainingJob) (string, error) {
	if job.Status != models.ServerStatusCompleted {
		return "", fmt.Errorf("job %s is %s, not completed", job.ID, job.Status)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("create model dir: %w", err)
	}

	saved := savedModel{
		JobID:          job.ID,
		Name:           job.Name,
		Epochs:         job.CurrentEpoch,
		LearningRate:   job.LearningRate,
		TrainingLoss:   job.TrainingLoss,
		ValidationLoss: job.ValidationLoss,
		MSEMetric:      job.MSEMetric,
		SavedAt:        time.Now().UTC(),
		Spec:           job.SpecYAML,
	}
	if js, err := spec.ParseJobSpec(job.SpecYAML); err == nil {
		params := js.Params()
		saved.Params = &params
	}
	b, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(m.dir, fmt.Sprintf("%s_%s.json", job.ID, saved.SavedAt.Format("20060102T150405")))
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write model: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	uri := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()

	meta := map[string]interface{}{
		"epoch": job.CurrentEpoch,
	}
	if job.ValidationLoss != nil {
		meta["validation_loss"] = *job.ValidationLoss
	}
	if err := m.store.CreateArtifact(ctx, job.ID, models.ArtifactTypeModel, uri, meta); err != nil {
		return "", fmt.Errorf("record model artifact: %w", err)
	}
	return uri, nil
}

// LatestModel returns the URI of the most recently saved model of a job
func (m *ModelStore) LatestModel(ctx context.Context, jobID string) (string, error) {
	modelType := models.ArtifactTypeModel
	artifacts, err := m.store.GetJobArtifacts(ctx, jobID, &modelType)
	if err != nil {
		return "", err
	}

	var latest *models.JobArtifact
	for i := range artifacts {
		if latest == nil || artifacts[i].CreatedAt.After(latest.CreatedAt) {
			latest = &artifacts[i]
		}
	}
	if latest == nil {
		return "", fmt.Errorf("no saved model for job %s", jobID)
	}
	return latest.URI, nil
}

// ListModels lists the saved models of a job, newest first
func (m *ModelStore) ListModels(ctx context.Context, jobID string) ([]models.JobArtifact, error) {
	modelType := models.ArtifactTypeModel
	return m.store.GetJobArtifacts(ctx, jobID, &modelType)
}
