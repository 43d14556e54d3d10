package models

import "encoding/json"

// SignalData is an uploaded signal as returned by the backend.
// DataEncoded is opaque to the client and is sent back verbatim on analysis calls.
type SignalData struct {
	DataEncoded    string    `json:"data_encoded"`
	SamplingRate   float64   `json:"sampling_rate"`
	DataDtype      string    `json:"data_dtype"`
	TimeDomainData []float64 `json:"time_domain_data"`
}

// SignalRef is the subset of SignalData echoed to analysis endpoints
type SignalRef struct {
	DataEncoded  string  `json:"data_encoded"`
	SamplingRate float64 `json:"sampling_rate"`
	DataDtype    string  `json:"data_dtype"`
}

// Ref returns the analysis reference for this signal
func (d *SignalData) Ref() SignalRef {
	return SignalRef{
		DataEncoded:  d.DataEncoded,
		SamplingRate: d.SamplingRate,
		DataDtype:    d.DataDtype,
	}
}

// TransformMethod selects the advanced transform computed server-side
type TransformMethod string

const (
	TransformCepstrum      TransformMethod = "cep"
	TransformLiftCepstrum  TransformMethod = "lcep"
	TransformPowerCepstrum TransformMethod = "pcep"
)

// TransformParams carries the method-specific parameters of a transform request
type TransformParams struct {
	FreqDisplayMin *float64
	FreqDisplayMax *float64
	// cep only
	TimeStart *float64
	TimeEnd   *float64
	// lcep only
	FreqLow  *float64
	FreqHigh *float64
}

// TimeAverageRequest is the body of POST /api/time-average/
type TimeAverageRequest struct {
	MainSignal      SignalRef `json:"main_signal"`
	ReferenceSignal SignalRef `json:"reference_signal"`
	AverageCount    int       `json:"average_count"`
	WindowSize      int       `json:"window_size"`
}

// AnalysisResult holds a method-specific result payload.
// The payload shape is owned by the backend and is kept raw.
type AnalysisResult struct {
	Kind string
	Data json.RawMessage
}

// TrainingSetInfo is returned by GET /api/get-training-set/{id}/
type TrainingSetInfo struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Status ServerStatus    `json:"status,omitempty"`
	Params *LearningParams `json:"learning_params,omitempty"`
}

// PredictionResult is the evaluation payload returned by POST /api/predict-evaluation/{id}/
type PredictionResult struct {
	Metrics json.RawMessage `json:"metrics"`
	Raw     json.RawMessage `json:"-"`
}
