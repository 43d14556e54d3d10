package spec

import (
	"fmt"
	"strings"
	"time"

	"signal-monitor/core/models"
)

// startTimeLayouts are the forms a training set start time arrives in,
// including the minute-precision value of an HTML datetime-local input
var startTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// FieldError reports a missing or malformed field of a training set request
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// FromTrainingSet builds a job spec from a training set request.
// Basic parameters are required; expert parameters are required in expert
// mode and default otherwise.
func FromTrainingSet(req *models.TrainingSetRequest) (*JobSpec, error) {
	name := strings.TrimSpace(req.BasicInfo.Name)
	if name == "" {
		return nil, &FieldError{Field: "name", Reason: "training set name is required"}
	}
	start, err := parseStartTime(req.BasicInfo.StartTime)
	if err != nil {
		return nil, err
	}

	basic := req.LearningParams.Basic
	if missing := missingBasic(basic); missing != "" {
		return nil, &FieldError{Field: missing, Reason: "missing basic parameter"}
	}
	mode := req.TrainingMode.Mode
	if mode == "" {
		mode = "basic"
	}
	expert := req.LearningParams.Expert
	if mode == models.TrainingModeExpert {
		if missing := missingExpert(expert); missing != "" {
			return nil, &FieldError{Field: missing, Reason: "missing expert parameter"}
		}
	}

	js := &JobSpec{Job: JobSpecJob{
		Name:        name,
		Description: req.BasicInfo.Description,
		Mode:        mode,
		StartTime:   &start,
		Data: JobSpecData{
			Channels: req.DataSelection.DataSource.EnabledChannels,
			Records:  req.DataSelection.DataSource.TotalDataPoints,
		},
		Training: JobSpecTraining{
			Epochs:       *basic.Epochs,
			LearningRate: *basic.LearningRate,
			BatchSize:    *basic.BatchSize,
			WindowSize:   *basic.WindowSize,
			Horizon:      *basic.Horizon,
			Optimizer:    *basic.Optimizer,
			WeightDecay:  expert.WeightDecay,
			RandomSeed:   expert.RandomSeed,
		},
		Model: JobSpecModel{
			Type:    strings.ToLower(req.TrainingMode.ModelType),
			Dropout: expert.DropoutRate,
		},
	}}
	if expert.LSTMLayers != nil {
		js.Job.Model.Layers = *expert.LSTMLayers
	}
	if expert.HiddenSize != nil {
		js.Job.Model.HiddenSize = *expert.HiddenSize
	}
	if expert.EarlyStoppingPatience != nil {
		js.Job.Training.EarlyStopping = *expert.EarlyStoppingPatience
	}
	if expert.LossFunction != nil {
		js.Job.Training.LossFunction = *expert.LossFunction
	}
	if expert.LearningRateScheduler != nil {
		js.Job.Training.Scheduler = *expert.LearningRateScheduler
	}
	if expert.EvaluationMetric != nil {
		js.Job.Training.Metric = *expert.EvaluationMetric
	}

	if js.Job.Training.Epochs <= 0 {
		return nil, &FieldError{Field: "epochs", Reason: "must be positive"}
	}
	js.applyDefaults()
	if err := js.Validate(); err != nil {
		return nil, err
	}
	return js, nil
}

func parseStartTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, &FieldError{Field: "startTime", Reason: "start time is required"}
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &FieldError{Field: "startTime", Reason: fmt.Sprintf("unrecognised time %q", v)}
}

func missingBasic(p models.BasicParams) string {
	switch {
	case p.LearningRate == nil:
		return "learningRate"
	case p.Epochs == nil:
		return "epochs"
	case p.BatchSize == nil:
		return "batchSize"
	case p.WindowSize == nil:
		return "windowSize"
	case p.Horizon == nil:
		return "horizon"
	case p.Optimizer == nil:
		return "optimizer"
	}
	return ""
}

func missingExpert(p models.ExpertParams) string {
	switch {
	case p.LSTMLayers == nil:
		return "lstmLayers"
	case p.HiddenSize == nil:
		return "hiddenSize"
	case p.DropoutRate == nil:
		return "dropoutRate"
	case p.WeightDecay == nil:
		return "weightDecay"
	case p.LossFunction == nil:
		return "lossFunction"
	case p.EarlyStoppingPatience == nil:
		return "earlyStoppingPatience"
	case p.LearningRateScheduler == nil:
		return "learningRateScheduler"
	case p.RandomSeed == nil:
		return "randomSeed"
	case p.EvaluationMetric == nil:
		return "evaluationMetric"
	}
	return ""
}
