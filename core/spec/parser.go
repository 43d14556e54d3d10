package spec

import (
	"fmt"
	"time"

	"signal-monitor/core/models"

	"gopkg.in/yaml.v3"
)

// JobSpec represents the YAML training job specification
type JobSpec struct {
	Job JobSpecJob `yaml:"job"`
}

// JobSpecJob represents the job section of a job spec file
type JobSpecJob struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Dataset     string            `yaml:"dataset,omitempty"`
	Mode        string            `yaml:"mode,omitempty"`
	StartTime   *time.Time        `yaml:"start_time,omitempty"`
	Data        JobSpecData       `yaml:"data,omitempty"`
	Training    JobSpecTraining   `yaml:"training"`
	Model       JobSpecModel      `yaml:"model"`
	Simulation  JobSpecSimulation `yaml:"simulation"`
}

// JobSpecData selects the measurement channels a job trains on
type JobSpecData struct {
	Channels []string `yaml:"channels,omitempty"`
	Records  int      `yaml:"records,omitempty"`
}

// JobSpecTraining holds the learning parameters
type JobSpecTraining struct {
	Epochs        int      `yaml:"epochs"`
	LearningRate  float64  `yaml:"learning_rate"`
	BatchSize     int      `yaml:"batch_size"`
	WindowSize    int      `yaml:"window_size"`
	Horizon       int      `yaml:"horizon"`
	Optimizer     string   `yaml:"optimizer"`
	EarlyStopping int      `yaml:"early_stopping_patience"`
	WeightDecay   *float64 `yaml:"weight_decay"`
	LossFunction  string   `yaml:"loss_function"`
	Scheduler     string   `yaml:"lr_scheduler"`
	RandomSeed    *int     `yaml:"random_seed"`
	Metric        string   `yaml:"evaluation_metric"`
}

// JobSpecModel describes the forecasting network.
// Dropout is a pointer so an explicit 0 survives defaulting.
type JobSpecModel struct {
	Type       string   `yaml:"type"`
	HiddenSize int      `yaml:"hidden_size"`
	Layers     int      `yaml:"layers"`
	Dropout    *float64 `yaml:"dropout"`
}

// JobSpecSimulation shapes the synthetic loss curve of a simulated run
type JobSpecSimulation struct {
	InitialLoss float64 `yaml:"initial_loss"`
	Decay       float64 `yaml:"decay"`
	Noise       float64 `yaml:"noise"`
	FailAtEpoch int     `yaml:"fail_at_epoch,omitempty"` // 0 never fails
}

// ParseJobSpec parses and validates a YAML training job spec, filling defaults
func ParseJobSpec(specYAML string) (*JobSpec, error) {
	var spec JobSpec
	if err := yaml.Unmarshal([]byte(specYAML), &spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	spec.applyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (s *JobSpec) applyDefaults() {
	t := &s.Job.Training
	if t.Epochs == 0 {
		t.Epochs = 100
	}
	if t.LearningRate == 0 {
		t.LearningRate = 0.001
	}
	if t.BatchSize == 0 {
		t.BatchSize = 32
	}
	if t.WindowSize == 0 {
		t.WindowSize = 50
	}
	if t.Horizon == 0 {
		t.Horizon = 10
	}
	if t.Optimizer == "" {
		t.Optimizer = "adam"
	}
	if t.EarlyStopping == 0 {
		t.EarlyStopping = 10
	}
	if t.WeightDecay == nil {
		t.WeightDecay = ptr(0.0001)
	}
	if t.LossFunction == "" {
		t.LossFunction = "mse"
	}
	if t.Scheduler == "" {
		t.Scheduler = "step"
	}
	if t.RandomSeed == nil {
		t.RandomSeed = ptr(42)
	}
	if t.Metric == "" {
		t.Metric = "mse"
	}

	m := &s.Job.Model
	if m.Type == "" {
		m.Type = "lstm"
	}
	if m.HiddenSize == 0 {
		m.HiddenSize = 64
	}
	if m.Layers == 0 {
		m.Layers = 1
	}
	if m.Dropout == nil {
		m.Dropout = ptr(0.1)
	}

	sim := &s.Job.Simulation
	if sim.InitialLoss == 0 {
		sim.InitialLoss = 1.0
	}
	if sim.Decay == 0 {
		sim.Decay = 0.05
	}

	if s.Job.Name == "" {
		s.Job.Name = s.Job.Dataset
	}
}

// Validate checks the ranges of a parsed spec
func (s *JobSpec) Validate() error {
	j := s.Job
	switch {
	case j.Name == "":
		return fmt.Errorf("job.name or job.dataset is required")
	case j.Training.Epochs < 0:
		return fmt.Errorf("training.epochs must be positive, got %d", j.Training.Epochs)
	case j.Training.LearningRate < 0:
		return fmt.Errorf("training.learning_rate must be positive, got %v", j.Training.LearningRate)
	case j.Training.BatchSize < 0 || j.Training.WindowSize < 0 || j.Training.Horizon < 0:
		return fmt.Errorf("training.batch_size, window_size and horizon must not be negative")
	case j.Model.HiddenSize < 0 || j.Model.Layers < 0:
		return fmt.Errorf("model.hidden_size and model.layers must not be negative")
	case j.Model.Dropout != nil && (*j.Model.Dropout < 0 || *j.Model.Dropout >= 1):
		return fmt.Errorf("model.dropout must be in [0, 1), got %v", *j.Model.Dropout)
	case j.Simulation.Decay < 0 || j.Simulation.Noise < 0:
		return fmt.Errorf("simulation.decay and simulation.noise must not be negative")
	case j.Simulation.FailAtEpoch < 0 || j.Simulation.FailAtEpoch > j.Training.Epochs:
		return fmt.Errorf("simulation.fail_at_epoch must be within 0..%d", j.Training.Epochs)
	}
	return nil
}

// NewTrainingJob builds the job record a spec submits
func (s *JobSpec) NewTrainingJob(specYAML string) *models.TrainingJob {
	return &models.TrainingJob{
		Name:         s.Job.Name,
		Status:       models.ServerStatusCreated,
		TotalEpochs:  s.Job.Training.Epochs,
		LearningRate: s.Job.Training.LearningRate,
		SpecYAML:     specYAML,
	}
}

// Params resolves the learning parameters a training set reports
func (s *JobSpec) Params() models.LearningParams {
	j := s.Job
	p := models.LearningParams{
		ModelType:    j.Model.Type,
		Mode:         j.Mode,
		Epochs:       j.Training.Epochs,
		LearningRate: j.Training.LearningRate,
		BatchSize:    j.Training.BatchSize,
		WindowSize:   j.Training.WindowSize,
		Horizon:      j.Training.Horizon,
		Optimizer:    j.Training.Optimizer,
		HiddenSize:   j.Model.HiddenSize,
		Layers:       j.Model.Layers,
	}
	if p.Mode == "" {
		p.Mode = "basic"
	}
	if j.Model.Dropout != nil {
		p.Dropout = *j.Model.Dropout
	}
	return p
}

// YAML renders the spec in the job spec file format
func (s *JobSpec) YAML() (string, error) {
	b, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to render spec: %w", err)
	}
	return string(b), nil
}

func ptr[T any](v T) *T { return &v }
