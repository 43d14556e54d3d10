package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"signal-monitor/core/models"
)

// ErrMissingStatus is returned when a status response has no training_status
var ErrMissingStatus = errors.New("response has no training_status")

type trainingStatusResponse struct {
	TrainingStatus *models.JobStatus `json:"training_status"`
}

type commandResponse struct {
	Message string `json:"message"`
}

type trainingSetResponse struct {
	TrainingSet models.TrainingSetInfo `json:"training_set"`
}

// jobPath fills the id into an API path, escaped once
func jobPath(format, jobID string) string {
	return fmt.Sprintf(format, url.PathEscape(jobID))
}

// TrainingStatus fetches and validates the current status of a training job
func (c *Client) TrainingStatus(ctx context.Context, jobID string) (models.JobStatus, error) {
	var resp trainingStatusResponse
	if err := c.getJSON(ctx, jobPath("/api/training-status/%s/", jobID), &resp); err != nil {
		return models.JobStatus{}, err
	}
	if resp.TrainingStatus == nil {
		return models.JobStatus{}, ErrMissingStatus
	}
	if err := resp.TrainingStatus.Validate(); err != nil {
		return models.JobStatus{}, fmt.Errorf("invalid training status: %w", err)
	}
	return *resp.TrainingStatus, nil
}

// SendCommand posts a control command and returns the backend's message
func (c *Client) SendCommand(ctx context.Context, cmd models.Command, jobID string) (string, error) {
	var format string
	switch cmd {
	case models.CommandPause:
		format = "/api/pause-training/%s/"
	case models.CommandResume:
		format = "/api/resume-training/%s/"
	case models.CommandStop:
		format = "/api/stop-training/%s/"
	case models.CommandSave:
		format = "/api/save-model/%s/"
	default:
		return "", fmt.Errorf("unsupported command %q", cmd)
	}

	var resp commandResponse
	if err := c.postJSON(ctx, jobPath(format, jobID), nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// TrainingSet fetches the descriptive record of a training set
func (c *Client) TrainingSet(ctx context.Context, jobID string) (models.TrainingSetInfo, error) {
	var resp trainingSetResponse
	if err := c.getJSON(ctx, jobPath("/api/get-training-set/%s/", jobID), &resp); err != nil {
		return models.TrainingSetInfo{}, err
	}
	return resp.TrainingSet, nil
}

// PredictEvaluation runs the trained model against its evaluation data
func (c *Client) PredictEvaluation(ctx context.Context, jobID string) (*models.PredictionResult, error) {
	raw, err := c.do(ctx, http.MethodPost, jobPath("/api/predict-evaluation/%s/", jobID), "application/json", nil)
	if err != nil {
		return nil, err
	}
	var result models.PredictionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	result.Raw = raw
	return &result, nil
}

// ExportPredictionResults posts evaluation results back and returns the CSV export
func (c *Client) ExportPredictionResults(ctx context.Context, jobID string, result *models.PredictionResult) ([]byte, error) {
	if result == nil || len(result.Raw) == 0 {
		return nil, errors.New("no prediction results to export")
	}
	return c.do(ctx, http.MethodPost, jobPath("/api/export-prediction-results/%s/", jobID), "application/json", bytes.NewReader(result.Raw))
}
