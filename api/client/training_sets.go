package client

import (
	"context"
	"net/http"
	"strings"

	"signal-monitor/core/models"
)

type startTrainingResponse struct {
	JobID  string              `json:"job_id"`
	Status models.ServerStatus `json:"status"`
}

type trainingSetsResponse struct {
	TrainingSets []models.TrainingSetSummary `json:"training_sets"`
}

type completedResponse struct {
	CompletedData []models.CompletedTraining `json:"completed_data"`
}

type deployedResponse struct {
	DeployedModels []models.DeployedModel `json:"deployed_models"`
}

// StartTraining submits a YAML job spec; the backend creates the job and starts it
func (c *Client) StartTraining(ctx context.Context, specYAML string) (string, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/start-training/", "application/x-yaml", strings.NewReader(specYAML))
	if err != nil {
		return "", err
	}
	var resp startTrainingResponse
	if err := decode(raw, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// CreateTrainingSet stores a training set without starting it
func (c *Client) CreateTrainingSet(ctx context.Context, req *models.TrainingSetRequest) (models.CreatedTrainingSet, error) {
	var resp models.CreatedTrainingSet
	err := c.postJSON(ctx, "/api/create-training-set/", req, &resp)
	return resp, err
}

// TrainingSets lists every training set, newest first
func (c *Client) TrainingSets(ctx context.Context) ([]models.TrainingSetSummary, error) {
	var resp trainingSetsResponse
	if err := c.getJSON(ctx, "/api/get-training-sets/", &resp); err != nil {
		return nil, err
	}
	return resp.TrainingSets, nil
}

// StartTrainingFromSet asks the backend to train a stored set. Without force a
// finished set comes back with StartActionAskRestart and is left untouched.
func (c *Client) StartTrainingFromSet(ctx context.Context, setID string, force bool) (models.StartResult, error) {
	in := map[string]interface{}{"training_set_id": setID, "force_restart": force}
	var resp models.StartResult
	err := c.postJSON(ctx, "/api/start-training-from-set/", in, &resp)
	return resp, err
}

// DeleteTrainingSet removes a set that is not running
func (c *Client) DeleteTrainingSet(ctx context.Context, setID string) (string, error) {
	raw, err := c.do(ctx, http.MethodDelete, jobPath("/api/delete-training-set/%s/", setID), "", nil)
	if err != nil {
		return "", err
	}
	var resp commandResponse
	if err := decode(raw, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) CompletedTraining(ctx context.Context) ([]models.CompletedTraining, error) {
	var resp completedResponse
	if err := c.getJSON(ctx, "/api/get-completed-training/", &resp); err != nil {
		return nil, err
	}
	return resp.CompletedData, nil
}

func (c *Client) DeployedModels(ctx context.Context) ([]models.DeployedModel, error) {
	var resp deployedResponse
	if err := c.getJSON(ctx, "/api/get-deployed-models/", &resp); err != nil {
		return nil, err
	}
	return resp.DeployedModels, nil
}

// ModelPredict runs a deployed model against a data source
func (c *Client) ModelPredict(ctx context.Context, modelID, dataSourceID string) (*models.PredictionResult, error) {
	in := map[string]string{"data_source_id": dataSourceID}
	var result models.PredictionResult
	if err := c.postJSON(ctx, jobPath("/api/model-predict/%s/", modelID), in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
