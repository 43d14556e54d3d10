package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"signal-monitor/core/models"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// PredictionBackend runs and exports model evaluations
type PredictionBackend interface {
	PredictEvaluation(ctx context.Context, jobID string) (*models.PredictionResult, error)
	ExportPredictionResults(ctx context.Context, jobID string, result *models.PredictionResult) ([]byte, error)
}

// PredictionFilename is the name the export of jobID is saved under on day
func PredictionFilename(jobID string, day time.Time) string {
	return fmt.Sprintf("prediction_results_%s_%s.csv", jobID, day.Format("2006-01-02"))
}

// ExportPredictions evaluates the trained model of jobID and writes the CSV export into dir
func ExportPredictions(ctx context.Context, backend PredictionBackend, jobID, dir string, now time.Time, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	result, err := backend.PredictEvaluation(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("predict evaluation: %w", err)
	}
	csv, err := backend.ExportPredictionResults(ctx, jobID, result)
	if err != nil {
		return "", fmt.Errorf("export prediction results: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, PredictionFilename(jobID, now))
	if err := os.WriteFile(path, csv, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	logger.Info("prediction results exported",
		zap.String("job_id", jobID),
		zap.String("path", path),
		zap.String("size", humanize.Bytes(uint64(len(csv)))))
	return path, nil
}
