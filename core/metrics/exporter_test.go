package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"signal-monitor/core/models"
	"signal-monitor/core/repository"

	"go.uber.org/zap"
)

func scrape(t *testing.T, store repository.Store) string {
	t.Helper()
	srv := httptest.NewServer(Handler(NewExporter(store, zap.NewNop())))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestExporter_Collect(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	running := &models.TrainingJob{ID: "run-1", Name: "bearing", Status: models.ServerStatusCreated, TotalEpochs: 4}
	if err := store.CreateJob(ctx, running); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if err := store.UpdateJobStatus(ctx, "run-1", models.ServerStatusCreated, models.ServerStatusTraining, "started", nil); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}
	loss := 0.25
	running.CurrentEpoch = 1
	running.TrainingLoss = &loss
	if err := store.UpdateJobProgress(ctx, running); err != nil {
		t.Fatalf("UpdateJobProgress() error = %v", err)
	}
	store.CreateJob(ctx, &models.TrainingJob{ID: "new-1", Name: "gearbox", Status: models.ServerStatusCreated, TotalEpochs: 10})

	body := scrape(t, store)
	for _, want := range []string{
		`signal_backend_training_jobs{status="training"} 1`,
		`signal_backend_training_jobs{status="created"} 1`,
		`signal_backend_training_jobs{status="failed"} 0`,
		`signal_backend_job_epoch{job_id="run-1",name="bearing"} 1`,
		`signal_backend_job_progress_ratio{job_id="run-1",name="bearing"} 0.25`,
		`signal_backend_job_loss{job_id="run-1",kind="training",name="bearing"} 0.25`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
	if strings.Contains(body, `job_id="new-1"`) {
		t.Error("scrape has per-job series for a job that is not running")
	}
	if strings.Contains(body, `kind="validation"`) {
		t.Error("scrape has a validation loss that was never reported")
	}
}
