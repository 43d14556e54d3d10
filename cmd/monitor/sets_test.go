package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"signal-monitor/core/models"
	"signal-monitor/core/spec"

	"github.com/spf13/cobra"
)

func TestSetFlags_Request(t *testing.T) {
	cmd := &cobra.Command{Use: "create"}
	var f setFlags
	f.bind(cmd)
	if err := cmd.ParseFlags([]string{"--name", "pump", "--channels", "ch1,ch2", "--horizon", "6"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	now := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	js, err := spec.FromTrainingSet(f.request(now))
	if err != nil {
		t.Fatalf("FromTrainingSet() error = %v", err)
	}
	p := js.Params()
	if p.Horizon != 6 || p.WindowSize != 24 || p.Mode != "basic" {
		t.Errorf("Params() = %+v", p)
	}
	if !js.Job.StartTime.Equal(now) || len(js.Job.Data.Channels) != 2 {
		t.Errorf("job = %+v", js.Job)
	}
}

func TestSetFlags_ExpertRequest(t *testing.T) {
	cmd := &cobra.Command{Use: "create"}
	var f setFlags
	f.bind(cmd)
	if err := cmd.ParseFlags([]string{"--name", "pump", "--expert", "--dropout", "0", "--layers", "2"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	js, err := spec.FromTrainingSet(f.request(time.Now()))
	if err != nil {
		t.Fatalf("FromTrainingSet() error = %v", err)
	}
	if p := js.Params(); p.Mode != models.TrainingModeExpert || p.Dropout != 0 || p.Layers != 2 {
		t.Errorf("Params() = %+v", p)
	}
}

func TestPrintSets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printSets(&buf, []models.TrainingSetSummary{{
		ID: "s-1", Name: "pump", Status: models.ServerStatusTraining, ModelType: "lstm",
		Epoch: 3, TotalEpochs: 10, MeasurementPoints: 2, CreatedAt: now.Add(-2 * time.Hour),
	}}, now)

	out := buf.String()
	for _, want := range []string{"NAME", "pump", "training", "3/10", "2 hours ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("printSets() output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printSets(&buf, nil, now)
	if got := buf.String(); got != "No training sets\n" {
		t.Errorf("printSets(nil) = %q", got)
	}
}
