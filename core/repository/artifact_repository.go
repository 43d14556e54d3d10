package repository

import (
	"context"
	"fmt"

	"signal-monitor/core/models"
)

// ArtifactRepository records what a job produced, such as saved models
type ArtifactRepository struct {
	db *DB
}

func NewArtifactRepository(db *DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// CreateArtifact records an artifact of jobID stored at uri
func (r *ArtifactRepository) CreateArtifact(ctx context.Context, jobID string, artifactType models.ArtifactType, uri string, meta map[string]interface{}) error {
	metaJSON, err := marshalMeta(meta)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO job_artifacts (job_id, type, uri, meta_json, created_at) VALUES ($1, $2, $3, $4, NOW())`,
		jobID, artifactType, uri, metaJSON)
	if err != nil {
		return fmt.Errorf("insert %s artifact of %s: %w", artifactType, jobID, err)
	}
	return nil
}

// GetJobArtifacts lists the artifacts of jobID, newest first, optionally of one type
func (r *ArtifactRepository) GetJobArtifacts(ctx context.Context, jobID string, artifactType *models.ArtifactType) ([]models.JobArtifact, error) {
	query := `SELECT id, job_id, type, uri, created_at, meta_json FROM job_artifacts WHERE job_id = $1`
	args := []interface{}{jobID}
	if artifactType != nil {
		query += " AND type = $2"
		args = append(args, *artifactType)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query artifacts of %s: %w", jobID, err)
	}
	defer rows.Close()

	var out []models.JobArtifact
	for rows.Next() {
		var a models.JobArtifact
		var meta []byte
		if err := rows.Scan(&a.ID, &a.JobID, &a.Type, &a.URI, &a.CreatedAt, &meta); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		if a.Meta, err = unmarshalMeta(meta); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
