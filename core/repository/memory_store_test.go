package repository

import (
	"context"
	"errors"
	"testing"

	"signal-monitor/core/models"
)

func newJob(t *testing.T, s *MemoryStore) *models.TrainingJob {
	t.Helper()
	job := &models.TrainingJob{Name: "bearing-set", Status: models.ServerStatusCreated, TotalEpochs: 10, LearningRate: 0.001}
	if err := s.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	return job
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	job := newJob(t, s)

	if job.ID == "" {
		t.Fatal("CreateJob() did not assign an id")
	}
	got, err := s.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Name != "bearing-set" || got.Status != models.ServerStatusCreated {
		t.Errorf("GetJob() = %+v", got)
	}

	if _, err := s.GetJob(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_UpdateJobStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	job := newJob(t, s)

	if err := s.UpdateJobStatus(ctx, job.ID, models.ServerStatusCreated, models.ServerStatusTraining, "started", nil); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}
	if err := s.UpdateJobStatus(ctx, job.ID, models.ServerStatusCreated, models.ServerStatusTraining, "again", nil); !errors.Is(err, ErrStatusConflict) {
		t.Errorf("stale transition error = %v, want ErrStatusConflict", err)
	}

	got, _ := s.GetJob(ctx, job.ID)
	if got.StartedAt == nil {
		t.Error("StartedAt not set on entering training")
	}

	events, _ := s.GetJobEvents(ctx, job.ID, 10)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].ToStatus != models.ServerStatusTraining || *events[0].FromStatus != models.ServerStatusCreated {
		t.Errorf("newest event = %+v", events[0])
	}
	if events[1].FromStatus != nil {
		t.Error("creation event should have no from status")
	}
}

func TestMemoryStore_ProgressOnlyWhileTraining(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	job := newJob(t, s)

	job.CurrentEpoch = 1
	if err := s.UpdateJobProgress(ctx, job); !errors.Is(err, ErrStatusConflict) {
		t.Errorf("progress on created job error = %v, want ErrStatusConflict", err)
	}

	s.UpdateJobStatus(ctx, job.ID, models.ServerStatusCreated, models.ServerStatusTraining, "", nil)
	loss := 0.4
	job.TrainingLoss = &loss
	if err := s.UpdateJobProgress(ctx, job); err != nil {
		t.Fatalf("UpdateJobProgress() error = %v", err)
	}
	got, _ := s.GetJob(ctx, job.ID)
	if got.CurrentEpoch != 1 || got.TrainingLoss == nil || *got.TrainingLoss != 0.4 {
		t.Errorf("progress not stored: %+v", got)
	}
}

func TestMemoryStore_Artifacts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	job := newJob(t, s)

	s.CreateArtifact(ctx, job.ID, models.ArtifactTypeMetrics, "metrics://1", nil)
	s.CreateArtifact(ctx, job.ID, models.ArtifactTypeModel, "file:///models/a.json", map[string]interface{}{"epoch": 10})

	model := models.ArtifactTypeModel
	got, err := s.GetJobArtifacts(ctx, job.ID, &model)
	if err != nil {
		t.Fatalf("GetJobArtifacts() error = %v", err)
	}
	if len(got) != 1 || got[0].URI != "file:///models/a.json" {
		t.Errorf("artifacts = %+v", got)
	}
	if err := s.CreateArtifact(ctx, "missing", models.ArtifactTypeModel, "x", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("CreateArtifact(missing) error = %v", err)
	}
}

func TestMemoryStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a := newJob(t, s)
	newJob(t, s)
	s.UpdateJobStatus(ctx, a.ID, models.ServerStatusCreated, models.ServerStatusTraining, "", nil)

	training := models.ServerStatusTraining
	jobs, _ := s.ListJobs(ctx, &training, 10)
	if len(jobs) != 1 || jobs[0].ID != a.ID {
		t.Errorf("ListJobs(training) = %d jobs", len(jobs))
	}
	all, _ := s.ListJobs(ctx, nil, 0)
	if len(all) != 2 {
		t.Errorf("ListJobs() = %d jobs, want 2", len(all))
	}
}

func TestMemoryStore_RestartJob(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	job := newJob(t, s)

	if err := s.UpdateJobStatus(ctx, job.ID, models.ServerStatusCreated, models.ServerStatusTraining, "started", nil); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}
	loss := 0.4
	job.CurrentEpoch, job.TrainingLoss, job.ValidationLoss = 6, &loss, &loss
	if err := s.UpdateJobProgress(ctx, job); err != nil {
		t.Fatalf("UpdateJobProgress() error = %v", err)
	}
	if err := s.UpdateJobStatus(ctx, job.ID, models.ServerStatusTraining, models.ServerStatusStopped, "user_stop", nil); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}

	if err := s.RestartJob(ctx, job.ID, models.ServerStatusTraining, "restarted"); !errors.Is(err, ErrStatusConflict) {
		t.Errorf("RestartJob(wrong from) error = %v, want ErrStatusConflict", err)
	}
	if err := s.RestartJob(ctx, job.ID, models.ServerStatusStopped, "restarted"); err != nil {
		t.Fatalf("RestartJob() error = %v", err)
	}

	got, _ := s.GetJob(ctx, job.ID)
	if got.Status != models.ServerStatusTraining || got.CurrentEpoch != 0 {
		t.Errorf("RestartJob() left status %q epoch %d", got.Status, got.CurrentEpoch)
	}
	if got.TrainingLoss != nil || got.ValidationLoss != nil || got.CompletedAt != nil {
		t.Errorf("RestartJob() kept stale metrics: %+v", got)
	}
	events, _ := s.GetJobEvents(ctx, job.ID, 1)
	if len(events) != 1 || events[0].Reason != "restarted" {
		t.Errorf("newest event = %+v, want restarted", events)
	}
}

func TestMemoryStore_DeleteJob(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	job := newJob(t, s)
	if err := s.CreateArtifact(ctx, job.ID, models.ArtifactTypeModel, "file:///m.json", nil); err != nil {
		t.Fatalf("CreateArtifact() error = %v", err)
	}

	if err := s.DeleteJob(ctx, job.ID); err != nil {
		t.Fatalf("DeleteJob() error = %v", err)
	}
	if _, err := s.GetJob(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob() after delete error = %v, want ErrNotFound", err)
	}
	if artifacts, _ := s.GetJobArtifacts(ctx, job.ID, nil); len(artifacts) != 0 {
		t.Errorf("artifacts after delete = %d, want 0", len(artifacts))
	}
	if err := s.DeleteJob(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteJob() twice error = %v, want ErrNotFound", err)
	}
}
