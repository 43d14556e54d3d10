package repository

import (
	"context"
	"errors"

	"signal-monitor/core/models"
)

var (
	// ErrNotFound is returned when a job does not exist
	ErrNotFound = errors.New("job not found")
	// ErrStatusConflict is returned when a job is not in the status a change expects
	ErrStatusConflict = errors.New("job status changed concurrently")
)

// Store persists simulated training jobs with their events and artifacts
type Store interface {
	CreateJob(ctx context.Context, job *models.TrainingJob) error
	GetJob(ctx context.Context, id string) (*models.TrainingJob, error)
	ListJobs(ctx context.Context, status *models.ServerStatus, limit int) ([]*models.TrainingJob, error)

	// UpdateJobProgress writes epoch and metric fields of a job that is training
	UpdateJobProgress(ctx context.Context, job *models.TrainingJob) error
	// UpdateJobStatus moves a job from one status to another and records an event.
	// It fails with ErrStatusConflict if the job is no longer in from.
	UpdateJobStatus(ctx context.Context, jobID string, from, to models.ServerStatus, reason string, meta map[string]interface{}) error
	// RestartJob puts a job that is still in from back to training at epoch 0,
	// clearing its metrics and completion time.
	RestartJob(ctx context.Context, jobID string, from models.ServerStatus, reason string) error
	// DeleteJob removes a job with its events and artifacts
	DeleteJob(ctx context.Context, jobID string) error

	GetJobEvents(ctx context.Context, jobID string, limit int) ([]models.JobEvent, error)

	CreateArtifact(ctx context.Context, jobID string, artifactType models.ArtifactType, uri string, meta map[string]interface{}) error
	GetJobArtifacts(ctx context.Context, jobID string, artifactType *models.ArtifactType) ([]models.JobArtifact, error)
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
