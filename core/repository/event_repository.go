package repository

import (
	"context"
	"database/sql"
	"fmt"

	"signal-monitor/core/models"
)

// EventRepository reads the status-transition history of jobs.
// Events are written by JobRepository inside the transaction that changes the status.
type EventRepository struct {
	db *DB
}

func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

const selectEvents = `
	SELECT id, job_id, at, from_status, to_status, reason, meta_json
	FROM job_events
	WHERE job_id = $1
	ORDER BY at DESC, id DESC
	LIMIT $2`

// GetJobEvents returns up to limit events of jobID, newest first
func (r *EventRepository) GetJobEvents(ctx context.Context, jobID string, limit int) ([]models.JobEvent, error) {
	rows, err := r.db.QueryContext(ctx, selectEvents, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events of %s: %w", jobID, err)
	}
	defer rows.Close()

	var events []models.JobEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(row rowScanner) (models.JobEvent, error) {
	var e models.JobEvent
	var from sql.NullString
	var meta []byte
	if err := row.Scan(&e.ID, &e.JobID, &e.At, &from, &e.ToStatus, &e.Reason, &meta); err != nil {
		return e, fmt.Errorf("scan event: %w", err)
	}
	if from.Valid {
		s := models.ServerStatus(from.String)
		e.FromStatus = &s
	}
	var err error
	e.Meta, err = unmarshalMeta(meta)
	return e, err
}
