package spec

import (
	"strings"
	"testing"

	"signal-monitor/core/models"
)

func TestParseJobSpec_Defaults(t *testing.T) {
	s, err := ParseJobSpec("job:\n  dataset: bearing-2024\n")
	if err != nil {
		t.Fatalf("ParseJobSpec() error = %v", err)
	}
	if s.Job.Name != "bearing-2024" {
		t.Errorf("Name = %q, want dataset fallback", s.Job.Name)
	}
	if s.Job.Training.Epochs != 100 || s.Job.Training.LearningRate != 0.001 {
		t.Errorf("training defaults = %+v", s.Job.Training)
	}
	if s.Job.Model.Type != "lstm" || s.Job.Model.HiddenSize != 64 {
		t.Errorf("model defaults = %+v", s.Job.Model)
	}
}

func TestParseJobSpec_Full(t *testing.T) {
	doc := `
job:
  name: pump-vibration
  training:
    epochs: 20
    learning_rate: 0.01
  simulation:
    initial_loss: 2.0
    decay: 0.1
    fail_at_epoch: 5
`
	s, err := ParseJobSpec(doc)
	if err != nil {
		t.Fatalf("ParseJobSpec() error = %v", err)
	}
	job := s.NewTrainingJob(doc)
	if job.Name != "pump-vibration" || job.TotalEpochs != 20 || job.LearningRate != 0.01 {
		t.Errorf("job = %+v", job)
	}
	if job.Status != models.ServerStatusCreated {
		t.Errorf("Status = %q, want created", job.Status)
	}
	if s.Job.Simulation.FailAtEpoch != 5 {
		t.Errorf("FailAtEpoch = %d", s.Job.Simulation.FailAtEpoch)
	}
}

func TestParseJobSpec_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":       "job: [",
		"no name":        "job:\n  training:\n    epochs: 3\n",
		"negative epoch": "job:\n  name: x\n  training:\n    epochs: -1\n",
		"dropout":        "job:\n  name: x\n  model:\n    dropout: 1.5\n",
		"fail past end":  "job:\n  name: x\n  training:\n    epochs: 3\n  simulation:\n    fail_at_epoch: 4\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseJobSpec(doc); err == nil {
				t.Errorf("ParseJobSpec(%q) should fail", strings.TrimSpace(doc))
			}
		})
	}
}

func TestParseJobSpec_Dropout(t *testing.T) {
	s, err := ParseJobSpec("job:\n  name: x\n  model:\n    dropout: 0\n")
	if err != nil {
		t.Fatalf("ParseJobSpec() error = %v", err)
	}
	if got := s.Params().Dropout; got != 0 {
		t.Errorf("explicit dropout 0 became %v", got)
	}

	s, err = ParseJobSpec("job:\n  name: x\n")
	if err != nil {
		t.Fatalf("ParseJobSpec() error = %v", err)
	}
	if got := s.Params().Dropout; got != 0.1 {
		t.Errorf("default dropout = %v, want 0.1", got)
	}
}

func TestJobSpec_Params(t *testing.T) {
	doc := `
job:
  name: pump-vibration
  training:
    batch_size: 16
    window_size: 24
    horizon: 12
    optimizer: sgd
  model:
    hidden_size: 128
    layers: 2
`
	s, err := ParseJobSpec(doc)
	if err != nil {
		t.Fatalf("ParseJobSpec() error = %v", err)
	}
	want := models.LearningParams{
		ModelType: "lstm", Mode: "basic", Epochs: 100, LearningRate: 0.001,
		BatchSize: 16, WindowSize: 24, Horizon: 12, Optimizer: "sgd",
		HiddenSize: 128, Layers: 2, Dropout: 0.1,
	}
	if got := s.Params(); got != want {
		t.Errorf("Params() = %+v, want %+v", got, want)
	}
}

func TestJobSpec_YAML(t *testing.T) {
	s, err := ParseJobSpec("job:\n  name: x\n  model:\n    dropout: 0\n")
	if err != nil {
		t.Fatalf("ParseJobSpec() error = %v", err)
	}
	doc, err := s.YAML()
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	again, err := ParseJobSpec(doc)
	if err != nil {
		t.Fatalf("ParseJobSpec(rendered) error = %v", err)
	}
	if again.Params() != s.Params() {
		t.Errorf("rendered spec params = %+v, want %+v", again.Params(), s.Params())
	}
}
