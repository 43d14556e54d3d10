package models

import "time"

// TrainingModeExpert requires every expert parameter in a training set request
const TrainingModeExpert = "expert"

// TrainingSetRequest is the body of POST /api/create-training-set/.
// Pointer fields distinguish a missing parameter from a zero value.
type TrainingSetRequest struct {
	BasicInfo      BasicInfo      `json:"basicInfo"`
	TrainingMode   TrainingMode   `json:"trainingMode"`
	DataSelection  DataSelection  `json:"dataSelection"`
	LearningParams LearningConfig `json:"learningParams"`
}

type BasicInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StartTime   string `json:"startTime"`
}

type TrainingMode struct {
	Mode      string `json:"mode"`
	ModelType string `json:"modelType,omitempty"`
}

type DataSelection struct {
	DataSource DataSource `json:"dataSource"`
}

// DataSource names the measurement channels a training set reads
type DataSource struct {
	EnabledChannels []string `json:"enabled_channels,omitempty"`
	TotalDataPoints int      `json:"total_data_points,omitempty"`
}

type LearningConfig struct {
	Basic  BasicParams  `json:"basic"`
	Expert ExpertParams `json:"expert"`
}

type BasicParams struct {
	LearningRate *float64 `json:"learningRate,omitempty"`
	Epochs       *int     `json:"epochs,omitempty"`
	BatchSize    *int     `json:"batchSize,omitempty"`
	WindowSize   *int     `json:"windowSize,omitempty"`
	Horizon      *int     `json:"horizon,omitempty"`
	Optimizer    *string  `json:"optimizer,omitempty"`
}

type ExpertParams struct {
	LSTMLayers            *int     `json:"lstmLayers,omitempty"`
	HiddenSize            *int     `json:"hiddenSize,omitempty"`
	DropoutRate           *float64 `json:"dropoutRate,omitempty"`
	WeightDecay           *float64 `json:"weightDecay,omitempty"`
	LossFunction          *string  `json:"lossFunction,omitempty"`
	EarlyStoppingPatience *int     `json:"earlyStoppingPatience,omitempty"`
	LearningRateScheduler *string  `json:"learningRateScheduler,omitempty"`
	RandomSeed            *int     `json:"randomSeed,omitempty"`
	EvaluationMetric      *string  `json:"evaluationMetric,omitempty"`
}

// LearningParams is the resolved parameter set of a training set, with defaults filled
type LearningParams struct {
	ModelType    string  `json:"model_type"`
	Mode         string  `json:"training_mode"`
	Epochs       int     `json:"epochs"`
	LearningRate float64 `json:"learning_rate"`
	BatchSize    int     `json:"batch_size"`
	WindowSize   int     `json:"window_size"`
	Horizon      int     `json:"horizon"`
	Optimizer    string  `json:"optimizer"`
	HiddenSize   int     `json:"hidden_size"`
	Layers       int     `json:"layers"`
	Dropout      float64 `json:"dropout"`
}

// CreatedTrainingSet is the response of POST /api/create-training-set/
type CreatedTrainingSet struct {
	ID        string    `json:"training_set_id"`
	Name      string    `json:"training_set_name"`
	CreatedAt time.Time `json:"created_at"`
}

// TrainingSetSummary is one row of GET /api/get-training-sets/
type TrainingSetSummary struct {
	ID                string       `json:"training_set_id"`
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	ModelType         string       `json:"model_type"`
	TrainingMode      string       `json:"training_mode"`
	StartTime         *time.Time   `json:"start_time"`
	EndTime           *time.Time   `json:"end_time"`
	MeasurementPoints int          `json:"measurement_points"`
	RecordCount       int          `json:"record_count"`
	Status            ServerStatus `json:"status"`
	Epoch             int          `json:"current_epoch"`
	TotalEpochs       int          `json:"total_epochs"`
	CreatedAt         time.Time    `json:"created_at"`
}

// StartAction is what the backend did with a start-training-from-set request
type StartAction string

const (
	// StartActionStarted means training began from epoch 0
	StartActionStarted StartAction = "started"
	// StartActionOpenMonitor means the set is already running or paused
	StartActionOpenMonitor StartAction = "open_monitor"
	// StartActionAskRestart means the set has finished; resend with force to restart it
	StartActionAskRestart StartAction = "ask_restart"
)

// StartResult is the response of POST /api/start-training-from-set/
type StartResult struct {
	ID      string       `json:"training_set_id"`
	Action  StartAction  `json:"action"`
	Status  ServerStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// CompletedTraining is one row of GET /api/get-completed-training/
type CompletedTraining struct {
	ID                string     `json:"training_set_id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	StartTime         *time.Time `json:"start_time"`
	DurationMinutes   float64    `json:"duration_minutes"`
	Progress          int        `json:"progress"`
	MeasurementPoints int        `json:"measurement_points"`
	RecordCount       int        `json:"record_count"`
	ValidationLoss    *float64   `json:"validation"`
	Accuracy          *float64   `json:"accuracy"`
	Status            string     `json:"status"`
}

// DeployedModel is one row of GET /api/get-deployed-models/
type DeployedModel struct {
	ID                  int64     `json:"model_id"`
	Name                string    `json:"model_name"`
	ModelType           string    `json:"model_type"`
	Accuracy            float64   `json:"accuracy"`
	DatasetID           string    `json:"dataset_id"`
	DeployedAt          time.Time `json:"deployed_at"`
	Status              string    `json:"status"`
	Description         string    `json:"description"`
	URI                 string    `json:"uri"`
	FinalTrainingLoss   *float64  `json:"final_training_loss"`
	FinalValidationLoss *float64  `json:"final_validation_loss"`
}

// AccuracyFromLoss maps a validation loss onto (0, 1] as 1/(1+loss)
func AccuracyFromLoss(loss float64) float64 {
	if loss < 0 {
		loss = 0
	}
	return 1 / (1 + loss)
}
