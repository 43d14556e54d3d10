package monitoring

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"signal-monitor/core/models"

	"go.uber.org/zap"
)

// DefaultPollInterval is how often the training status is fetched
const DefaultPollInterval = 2 * time.Second

var (
	// ErrPollerStarted is returned by a second Start
	ErrPollerStarted = errors.New("poller already started")
	// ErrPollerStopped is returned when starting a poller that was stopped
	ErrPollerStopped = errors.New("poller stopped")
)

// StatusSource fetches the current status of a job
type StatusSource interface {
	TrainingStatus(ctx context.Context, jobID string) (models.JobStatus, error)
}

// StatusPoller fetches a job's status on a fixed interval
type StatusPoller struct {
	source StatusSource
	jobID  string
	logger *zap.Logger

	mu        sync.Mutex
	started   bool
	cancel    context.CancelFunc
	stopped   atomic.Bool
	done      chan struct{}
	closeDone sync.Once
}

// tickResult is the outcome of one fetch, tagged with its request sequence
type tickResult struct {
	seq    uint64
	status models.JobStatus
	err    error
}

// NewStatusPoller creates a poller for jobID
func NewStatusPoller(source StatusSource, jobID string, logger *zap.Logger) *StatusPoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusPoller{
		source: source,
		jobID:  jobID,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start fetches once immediately and then every interval, calling onTick with
// each fresh status. Failed fetches are logged and skipped. Responses that
// arrive after a newer one has been delivered are discarded.
func (p *StatusPoller) Start(ctx context.Context, interval time.Duration, onTick func(models.JobStatus)) error {
	if interval <= 0 {
		return errors.New("poll interval must be positive")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrPollerStarted
	}
	if p.stopped.Load() {
		return ErrPollerStopped
	}
	p.started = true

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	go p.run(ctx, interval, onTick)

	p.logger.Info("status polling started",
		zap.String("job_id", p.jobID),
		zap.Duration("interval", interval))
	return nil
}

// Stop ends polling permanently. It is idempotent, and no onTick begins
// after it returns, including for requests still in flight.
func (p *StatusPoller) Stop() {
	if p.stopped.Swap(true) {
		return
	}

	p.mu.Lock()
	cancel := p.cancel
	started := p.started
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if !started {
		p.closeDone.Do(func() { close(p.done) })
	}
	p.logger.Info("status polling stopped", zap.String("job_id", p.jobID))
}

// Stopped reports whether Stop has been called
func (p *StatusPoller) Stopped() bool {
	return p.stopped.Load()
}

// Done is closed once the polling loop and its requests have finished
func (p *StatusPoller) Done() <-chan struct{} {
	return p.done
}

// run is the polling loop; onTick is only ever called from here
func (p *StatusPoller) run(ctx context.Context, interval time.Duration, onTick func(models.JobStatus)) {
	var wg sync.WaitGroup
	defer p.closeDone.Do(func() { close(p.done) })
	defer wg.Wait()

	results := make(chan tickResult)
	var sent, delivered uint64

	fetch := func() {
		sent++
		seq := sent
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := p.source.TrainingStatus(ctx, p.jobID)
			select {
			case results <- tickResult{seq: seq, status: status, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fetch()
	for {
		select {
		case <-ctx.Done():
			p.stopped.Store(true)
			return
		case <-ticker.C:
			fetch()
		case r := <-results:
			if p.stopped.Load() {
				continue
			}
			if r.err != nil {
				p.logger.Warn("status fetch failed",
					zap.String("job_id", p.jobID),
					zap.Uint64("seq", r.seq),
					zap.Error(r.err))
				continue
			}
			if r.seq <= delivered {
				p.logger.Debug("discarding stale status",
					zap.String("job_id", p.jobID),
					zap.Uint64("seq", r.seq),
					zap.Uint64("delivered", delivered))
				continue
			}
			delivered = r.seq
			onTick(r.status)
		}
	}
}
