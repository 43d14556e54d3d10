// Package metrics exports training job metrics for Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"signal-monitor/core/models"
	"signal-monitor/core/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	namespace      = "signal_backend"
	collectTimeout = 5 * time.Second
	maxJobs        = 1000
)

var (
	jobsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "training_jobs"),
		"Number of training jobs by status.",
		[]string{"status"}, nil)
	epochDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "job", "epoch"),
		"Current epoch of a training job.",
		[]string{"job_id", "name"}, nil)
	progressDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "job", "progress_ratio"),
		"Completed fraction of a training job's epochs.",
		[]string{"job_id", "name"}, nil)
	lossDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "job", "loss"),
		"Latest loss reported by a training job.",
		[]string{"job_id", "name", "kind"}, nil)
)

// Exporter reads the job store on every scrape
type Exporter struct {
	store  repository.Store
	logger *zap.Logger
}

var _ prometheus.Collector = (*Exporter)(nil)

// NewExporter creates an exporter over store
func NewExporter(store repository.Store, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{store: store, logger: logger}
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- jobsDesc
	ch <- epochDesc
	ch <- progressDesc
	ch <- lossDesc
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	jobs, err := e.store.ListJobs(ctx, nil, maxJobs)
	if err != nil {
		e.logger.Warn("metrics collection failed", zap.Error(err))
		ch <- prometheus.NewInvalidMetric(jobsDesc, err)
		return
	}

	counts := make(map[models.ServerStatus]int, len(models.AllServerStatuses))
	for _, s := range models.AllServerStatuses {
		counts[s] = 0
	}
	for _, job := range jobs {
		counts[job.Status]++
		if job.Status != models.ServerStatusTraining && job.Status != models.ServerStatusPaused {
			continue
		}

		ch <- prometheus.MustNewConstMetric(epochDesc, prometheus.GaugeValue, float64(job.CurrentEpoch), job.ID, job.Name)
		if job.TotalEpochs > 0 {
			ch <- prometheus.MustNewConstMetric(progressDesc, prometheus.GaugeValue,
				float64(job.CurrentEpoch)/float64(job.TotalEpochs), job.ID, job.Name)
		}
		if job.TrainingLoss != nil {
			ch <- prometheus.MustNewConstMetric(lossDesc, prometheus.GaugeValue, *job.TrainingLoss, job.ID, job.Name, "training")
		}
		if job.ValidationLoss != nil {
			ch <- prometheus.MustNewConstMetric(lossDesc, prometheus.GaugeValue, *job.ValidationLoss, job.ID, job.Name, "validation")
		}
	}
	for status, n := range counts {
		ch <- prometheus.MustNewConstMetric(jobsDesc, prometheus.GaugeValue, float64(n), string(status))
	}
}

// Handler serves the exporter and the Go runtime collectors on a private registry
func Handler(e *Exporter) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(e, collectors.NewGoCollector())
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
