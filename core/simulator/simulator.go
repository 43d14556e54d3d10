// Package simulator advances simulated training jobs so the development
// backend reports realistic progress without running a model.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"signal-monitor/core/models"
	"signal-monitor/core/repository"
	"signal-monitor/core/spec"

	"go.uber.org/zap"
)

// DefaultEpochInterval is the simulated duration of one epoch
const DefaultEpochInterval = time.Second

const batchLimit = 100

// Simulator runs one epoch of every training job per tick
type Simulator struct {
	store    repository.Store
	interval time.Duration
	logger   *zap.Logger

	mu    sync.Mutex
	rng   *rand.Rand
	specs map[string]*spec.JobSpec

	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates a simulator over store
func New(store repository.Store, interval time.Duration, logger *zap.Logger) *Simulator {
	if interval <= 0 {
		interval = DefaultEpochInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		store:    store,
		interval: interval,
		logger:   logger,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		specs:    make(map[string]*spec.JobSpec),
		stopChan: make(chan struct{}),
	}
}

// Start runs the simulation loop until ctx ends or Stop is called
func (s *Simulator) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("training simulator started", zap.Duration("epoch_interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			if err := s.Step(ctx); err != nil {
				s.logger.Warn("simulation step failed", zap.Error(err))
			}
		}
	}
}

// Stop ends the loop; it is safe to call more than once
func (s *Simulator) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Step advances every training job by one epoch. Created jobs wait until
// they are started explicitly.
func (s *Simulator) Step(ctx context.Context) error {
	training := models.ServerStatusTraining
	running, err := s.store.ListJobs(ctx, &training, batchLimit)
	if err != nil {
		return fmt.Errorf("list training jobs: %w", err)
	}
	s.prune(running)
	for _, job := range running {
		if err := s.advance(ctx, job); err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				// paused or stopped between list and update
				continue
			}
			s.logger.Warn("failed to advance job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *Simulator) advance(ctx context.Context, job *models.TrainingJob) error {
	js, err := s.jobSpec(job)
	if err != nil {
		s.forget(job.ID)
		return s.store.UpdateJobStatus(ctx, job.ID, models.ServerStatusTraining, models.ServerStatusFailed, "invalid_spec",
			map[string]interface{}{"error": err.Error()})
	}

	epoch := job.CurrentEpoch + 1
	sim := js.Job.Simulation
	if sim.FailAtEpoch > 0 && epoch >= sim.FailAtEpoch {
		s.forget(job.ID)
		s.logger.Info("simulated failure", zap.String("job_id", job.ID), zap.Int("epoch", epoch))
		return s.store.UpdateJobStatus(ctx, job.ID, models.ServerStatusTraining, models.ServerStatusFailed, "simulated_failure",
			map[string]interface{}{"epoch": epoch})
	}

	trainLoss, valLoss := s.losses(sim, epoch)
	mse := valLoss * valLoss
	job.CurrentEpoch = epoch
	job.TrainingLoss = &trainLoss
	job.ValidationLoss = &valLoss
	job.MSEMetric = &mse
	if err := s.store.UpdateJobProgress(ctx, job); err != nil {
		return err
	}

	if epoch >= job.TotalEpochs {
		s.forget(job.ID)
		s.logger.Info("simulated training completed", zap.String("job_id", job.ID), zap.Int("epochs", epoch))
		return s.store.UpdateJobStatus(ctx, job.ID, models.ServerStatusTraining, models.ServerStatusCompleted, "epochs_exhausted",
			map[string]interface{}{"training_loss": trainLoss, "validation_loss": valLoss})
	}
	return nil
}

// losses returns a decaying curve with multiplicative noise; validation trails training
func (s *Simulator) losses(sim spec.JobSpecSimulation, epoch int) (float64, float64) {
	s.mu.Lock()
	n1, n2 := s.rng.NormFloat64(), s.rng.NormFloat64()
	s.mu.Unlock()

	base := sim.InitialLoss * math.Exp(-sim.Decay*float64(epoch))
	train := math.Max(base*(1+sim.Noise*n1), 1e-6)
	val := math.Max(base*1.1*(1+sim.Noise*n2), 1e-6)
	return train, val
}

func (s *Simulator) jobSpec(job *models.TrainingJob) (*spec.JobSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if js, ok := s.specs[job.ID]; ok {
		return js, nil
	}
	js, err := spec.ParseJobSpec(job.SpecYAML)
	if err != nil {
		return nil, err
	}
	s.specs[job.ID] = js
	return js, nil
}

// prune drops cached specs of jobs that are no longer training
func (s *Simulator) prune(running []*models.TrainingJob) {
	keep := make(map[string]struct{}, len(running))
	for _, job := range running {
		keep[job.ID] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.specs {
		if _, ok := keep[id]; !ok {
			delete(s.specs, id)
		}
	}
}

func (s *Simulator) forget(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.specs, jobID)
}

// ETA estimates the remaining wall time of a job at the simulated pace
func (s *Simulator) ETA(job *models.TrainingJob) string {
	if job.Status != models.ServerStatusTraining || job.TotalEpochs <= job.CurrentEpoch {
		return ""
	}
	remaining := time.Duration(job.TotalEpochs-job.CurrentEpoch) * s.interval
	h := int(remaining.Hours())
	m := int(remaining.Minutes()) % 60
	sec := int(remaining.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}
