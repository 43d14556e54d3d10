package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"signal-monitor/core/models"

	"github.com/google/uuid"
)

// MemoryStore is a process-local Store for development without a database
type MemoryStore struct {
	mu        sync.RWMutex
	jobs      map[string]*models.TrainingJob
	events    map[string][]models.JobEvent
	artifacts map[string][]models.JobArtifact
	nextID    int64
	now       func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:      make(map[string]*models.TrainingJob),
		events:    make(map[string][]models.JobEvent),
		artifacts: make(map[string][]models.JobArtifact),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateJob(_ context.Context, job *models.TrainingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := s.now()
	job.CreatedAt = now
	job.UpdatedAt = now

	stored := *job
	s.jobs[job.ID] = &stored
	s.addEventLocked(job.ID, nil, job.Status, "job_created", nil)
	return nil
}

func (s *MemoryStore) GetJob(_ context.Context, id string) (*models.TrainingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *job
	return &out, nil
}

func (s *MemoryStore) ListJobs(_ context.Context, status *models.ServerStatus, limit int) ([]*models.TrainingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var jobs []*models.TrainingJob
	for _, job := range s.jobs {
		if status != nil && job.Status != *status {
			continue
		}
		out := *job
		jobs = append(jobs, &out)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (s *MemoryStore) UpdateJobProgress(_ context.Context, job *models.TrainingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.jobs[job.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != models.ServerStatusTraining {
		return ErrStatusConflict
	}
	stored.CurrentEpoch = job.CurrentEpoch
	stored.TrainingLoss = job.TrainingLoss
	stored.ValidationLoss = job.ValidationLoss
	stored.LearningRate = job.LearningRate
	stored.MSEMetric = job.MSEMetric
	stored.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) UpdateJobStatus(_ context.Context, jobID string, from, to models.ServerStatus, reason string, meta map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != from {
		return ErrStatusConflict
	}

	now := s.now()
	stored.Status = to
	stored.UpdatedAt = now
	if to == models.ServerStatusTraining && stored.StartedAt == nil {
		stored.StartedAt = &now
	}
	switch to {
	case models.ServerStatusCompleted, models.ServerStatusStopped, models.ServerStatusFailed:
		stored.CompletedAt = &now
	}
	s.addEventLocked(jobID, &from, to, reason, meta)
	return nil
}

func (s *MemoryStore) RestartJob(_ context.Context, jobID string, from models.ServerStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != from {
		return ErrStatusConflict
	}

	now := s.now()
	stored.Status = models.ServerStatusTraining
	stored.CurrentEpoch = 0
	stored.TrainingLoss, stored.ValidationLoss, stored.MSEMetric = nil, nil, nil
	stored.StartedAt = &now
	stored.CompletedAt = nil
	stored.UpdatedAt = now
	s.addEventLocked(jobID, &from, models.ServerStatusTraining, reason, nil)
	return nil
}

func (s *MemoryStore) DeleteJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[jobID]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, jobID)
	delete(s.events, jobID)
	delete(s.artifacts, jobID)
	return nil
}

func (s *MemoryStore) addEventLocked(jobID string, from *models.ServerStatus, to models.ServerStatus, reason string, meta map[string]interface{}) {
	s.nextID++
	s.events[jobID] = append(s.events[jobID], models.JobEvent{
		ID:         s.nextID,
		JobID:      jobID,
		At:         s.now(),
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
		Meta:       meta,
	})
}

// GetJobEvents returns events newest first
func (s *MemoryStore) GetJobEvents(_ context.Context, jobID string, limit int) ([]models.JobEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[jobID]
	out := make([]models.JobEvent, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, events[i])
	}
	return out, nil
}

func (s *MemoryStore) CreateArtifact(_ context.Context, jobID string, artifactType models.ArtifactType, uri string, meta map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[jobID]; !ok {
		return ErrNotFound
	}
	s.nextID++
	s.artifacts[jobID] = append(s.artifacts[jobID], models.JobArtifact{
		ID:        s.nextID,
		JobID:     jobID,
		Type:      artifactType,
		URI:       uri,
		CreatedAt: s.now(),
		Meta:      meta,
	})
	return nil
}

// GetJobArtifacts returns artifacts newest first
func (s *MemoryStore) GetJobArtifacts(_ context.Context, jobID string, artifactType *models.ArtifactType) ([]models.JobArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artifacts := s.artifacts[jobID]
	var out []models.JobArtifact
	for i := len(artifacts) - 1; i >= 0; i-- {
		if artifactType != nil && artifacts[i].Type != *artifactType {
			continue
		}
		out = append(out, artifacts[i])
	}
	return out, nil
}
