package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"signal-monitor/core/models"

	"github.com/google/uuid"
)

// JobRepository handles database operations for training jobs
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `
	id, name, status, current_epoch, total_epochs, training_loss, validation_loss,
	learning_rate, mse_metric, spec_yaml, created_at, started_at, completed_at, updated_at`

// CreateJob inserts a job and records its creation event
func (r *JobRepository) CreateJob(ctx context.Context, job *models.TrainingJob) error {
	jobID := uuid.New()
	if job.ID != "" {
		var err error
		jobID, err = uuid.Parse(job.ID)
		if err != nil {
			return fmt.Errorf("invalid job id: %w", err)
		}
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO training_jobs (
			id, name, status, current_epoch, total_epochs, learning_rate, spec_yaml, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	_, err = tx.ExecContext(ctx, query,
		jobID,
		job.Name,
		job.Status,
		job.CurrentEpoch,
		job.TotalEpochs,
		job.LearningRate,
		job.SpecYAML,
		now,
	)
	if err != nil {
		return err
	}

	if err := createJobEventTx(ctx, tx, jobID.String(), nil, job.Status, "job_created", nil); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	job.ID = jobID.String()
	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}

// GetJob retrieves a job by ID
func (r *JobRepository) GetJob(ctx context.Context, id string) (*models.TrainingJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM training_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

// ListJobs lists the newest jobs, optionally filtered by status
func (r *JobRepository) ListJobs(ctx context.Context, status *models.ServerStatus, limit int) ([]*models.TrainingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM training_jobs`
	args := []interface{}{}
	argIndex := 1

	if status != nil {
		query += fmt.Sprintf(" WHERE status = $%d", argIndex)
		args = append(args, *status)
		argIndex++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argIndex)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.TrainingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateJobProgress stores epoch and metrics while the job is training
func (r *JobRepository) UpdateJobProgress(ctx context.Context, job *models.TrainingJob) error {
	query := `
		UPDATE training_jobs
		SET current_epoch = $1, training_loss = $2, validation_loss = $3,
			learning_rate = $4, mse_metric = $5, updated_at = NOW()
		WHERE id = $6 AND status = $7
	`
	res, err := r.db.ExecContext(ctx, query,
		job.CurrentEpoch,
		nullFloat(job.TrainingLoss),
		nullFloat(job.ValidationLoss),
		job.LearningRate,
		nullFloat(job.MSEMetric),
		job.ID,
		models.ServerStatusTraining,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// UpdateJobStatus updates job status atomically with event logging
func (r *JobRepository) UpdateJobStatus(ctx context.Context, jobID string, from, to models.ServerStatus, reason string, meta map[string]interface{}) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE training_jobs
		SET status = $1,
			updated_at = NOW(),
			started_at = CASE WHEN $1 = 'training' AND started_at IS NULL THEN NOW() ELSE started_at END,
			completed_at = CASE WHEN $1 IN ('completed', 'stopped', 'failed') THEN NOW() ELSE completed_at END
		WHERE id = $2 AND status = $3
	`
	res, err := tx.ExecContext(ctx, query, to, jobID, from)
	if err != nil {
		return err
	}
	if err := expectOneRow(res); err != nil {
		return err
	}

	if err := createJobEventTx(ctx, tx, jobID, &from, to, reason, meta); err != nil {
		return err
	}
	return tx.Commit()
}

// RestartJob resets a job to epoch 0 and puts it back into training
func (r *JobRepository) RestartJob(ctx context.Context, jobID string, from models.ServerStatus, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE training_jobs
		SET status = $1, current_epoch = 0,
			training_loss = NULL, validation_loss = NULL, mse_metric = NULL,
			started_at = NOW(), completed_at = NULL, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	res, err := tx.ExecContext(ctx, query, models.ServerStatusTraining, jobID, from)
	if err != nil {
		return err
	}
	if err := expectOneRow(res); err != nil {
		return err
	}

	if err := createJobEventTx(ctx, tx, jobID, &from, models.ServerStatusTraining, reason, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteJob removes a job; events and artifacts go with it by cascade
func (r *JobRepository) DeleteJob(ctx context.Context, jobID string) error {
	if _, err := uuid.Parse(jobID); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM training_jobs WHERE id = $1`, jobID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

func createJobEventTx(ctx context.Context, tx *sql.Tx, jobID string, from *models.ServerStatus, to models.ServerStatus, reason string, meta map[string]interface{}) error {
	query := `
		INSERT INTO job_events (job_id, from_status, to_status, reason, meta_json)
		VALUES ($1, $2, $3, $4, $5)
	`

	var fromStatus sql.NullString
	if from != nil {
		fromStatus = sql.NullString{String: string(*from), Valid: true}
	}

	metaJSON, err := marshalMeta(meta)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, query, jobID, fromStatus, to, reason, metaJSON)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.TrainingJob, error) {
	var job models.TrainingJob
	var trainingLoss, validationLoss, mse sql.NullFloat64
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.Name,
		&job.Status,
		&job.CurrentEpoch,
		&job.TotalEpochs,
		&trainingLoss,
		&validationLoss,
		&job.LearningRate,
		&mse,
		&job.SpecYAML,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.TrainingLoss = floatPtr(trainingLoss)
	job.ValidationLoss = floatPtr(validationLoss)
	job.MSEMetric = floatPtr(mse)
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStatusConflict
	}
	return nil
}

func marshalMeta(meta map[string]interface{}) (string, error) {
	if meta == nil {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode event meta: %w", err)
	}
	return string(b), nil
}

func unmarshalMeta(b []byte) (map[string]interface{}, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	if len(meta) == 0 {
		return nil, nil
	}
	return meta, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
