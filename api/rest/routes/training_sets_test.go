package routes

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"signal-monitor/api/client"
	"signal-monitor/core/models"
)

func trainingSetRequest(name string, epochs int) *models.TrainingSetRequest {
	lr, batch, window, horizon, opt := 0.001, 32, 24, 12, "adam"
	return &models.TrainingSetRequest{
		BasicInfo:    models.BasicInfo{Name: name, Description: "pump bearing", StartTime: "2026-03-01T08:30"},
		TrainingMode: models.TrainingMode{Mode: "basic", ModelType: "lstm"},
		DataSelection: models.DataSelection{DataSource: models.DataSource{
			EnabledChannels: []string{"ch1", "ch2", "ch3"}, TotalDataPoints: 2048,
		}},
		LearningParams: models.LearningConfig{Basic: models.BasicParams{
			LearningRate: &lr, Epochs: &epochs, BatchSize: &batch,
			WindowSize: &window, Horizon: &horizon, Optimizer: &opt,
		}},
	}
}

func TestRoutes_TrainingSetWorkflow(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	c := b.client(t)

	created, err := c.CreateTrainingSet(ctx, trainingSetRequest("pump", 2))
	if err != nil {
		t.Fatalf("CreateTrainingSet() error = %v", err)
	}
	if created.ID == "" || created.Name != "pump" {
		t.Fatalf("CreateTrainingSet() = %+v", created)
	}

	b.sim.Step(ctx)
	sets, err := c.TrainingSets(ctx)
	if err != nil {
		t.Fatalf("TrainingSets() error = %v", err)
	}
	if len(sets) != 1 || sets[0].Status != models.ServerStatusCreated {
		t.Fatalf("TrainingSets() = %+v, want one created set", sets)
	}
	if sets[0].MeasurementPoints != 3 || sets[0].RecordCount != 2048 || sets[0].Description != "pump bearing" {
		t.Errorf("summary = %+v", sets[0])
	}

	info, err := c.TrainingSet(ctx, created.ID)
	if err != nil {
		t.Fatalf("TrainingSet() error = %v", err)
	}
	if info.Params == nil || info.Params.WindowSize != 24 || info.Params.Horizon != 12 || info.Params.Dropout != 0.1 {
		t.Errorf("TrainingSet().Params = %+v", info.Params)
	}

	res, err := c.StartTrainingFromSet(ctx, created.ID, false)
	if err != nil || res.Action != models.StartActionStarted || res.Status != models.ServerStatusTraining {
		t.Fatalf("StartTrainingFromSet() = %+v, %v", res, err)
	}
	res, err = c.StartTrainingFromSet(ctx, created.ID, false)
	if err != nil || res.Action != models.StartActionOpenMonitor {
		t.Errorf("second start = %+v, %v, want open_monitor", res, err)
	}

	if _, err := c.DeleteTrainingSet(ctx, created.ID); client.Message(err) != "Stop the training before deleting the training set" {
		t.Errorf("delete while training error = %v", err)
	}

	b.sim.Step(ctx)
	b.sim.Step(ctx)
	if _, err := c.SendCommand(ctx, models.CommandSave, created.ID); err != nil {
		t.Fatalf("save error = %v", err)
	}

	completed, err := c.CompletedTraining(ctx)
	if err != nil {
		t.Fatalf("CompletedTraining() error = %v", err)
	}
	if len(completed) != 1 || completed[0].Progress != 100 || completed[0].Accuracy == nil {
		t.Errorf("CompletedTraining() = %+v", completed)
	}

	deployed, err := c.DeployedModels(ctx)
	if err != nil {
		t.Fatalf("DeployedModels() error = %v", err)
	}
	if len(deployed) != 1 || deployed[0].ModelType != "LSTM" || deployed[0].DatasetID != created.ID {
		t.Fatalf("DeployedModels() = %+v", deployed)
	}
	if acc := deployed[0].Accuracy; acc <= 0 || acc > 1 {
		t.Errorf("accuracy = %v, want (0, 1]", acc)
	}

	res, err = c.StartTrainingFromSet(ctx, created.ID, false)
	if err != nil || res.Action != models.StartActionAskRestart || res.Status != models.ServerStatusCompleted {
		t.Errorf("start of completed set = %+v, %v, want ask_restart", res, err)
	}
	res, err = c.StartTrainingFromSet(ctx, created.ID, true)
	if err != nil || res.Action != models.StartActionStarted {
		t.Fatalf("forced restart = %+v, %v", res, err)
	}
	s, err := c.TrainingStatus(ctx, created.ID)
	if err != nil {
		t.Fatalf("TrainingStatus() error = %v", err)
	}
	if s.Status != models.ServerStatusTraining || s.Epoch() != 0 {
		t.Errorf("after restart status %q epoch %d, want training at 0", s.Status, s.Epoch())
	}

	if _, err := c.SendCommand(ctx, models.CommandStop, created.ID); err != nil {
		t.Fatalf("stop error = %v", err)
	}
	if _, err := c.DeleteTrainingSet(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTrainingSet() error = %v", err)
	}
	_, err = c.TrainingStatus(ctx, created.ID)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status after delete error = %v, want 404", err)
	}
}

func TestRoutes_CreateTrainingSetValidation(t *testing.T) {
	b := newTestBackend(t)
	req := trainingSetRequest("pump", 5)
	req.LearningParams.Basic.Optimizer = nil

	_, err := b.client(t).CreateTrainingSet(context.Background(), req)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("error = %v, want 400 APIError", err)
	}
	if apiErr.Message != "optimizer: missing basic parameter" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestRoutes_StartFromSetErrors(t *testing.T) {
	b := newTestBackend(t)
	c := b.client(t)

	_, err := c.StartTrainingFromSet(context.Background(), "", false)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("missing id error = %v, want 400", err)
	}
	_, err = c.StartTrainingFromSet(context.Background(), "nope", false)
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id error = %v, want 404", err)
	}
}

func TestRoutes_ModelPredictNotImplemented(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.client(t).ModelPredict(context.Background(), "7", "source-1")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotImplemented {
		t.Errorf("error = %v, want 501 APIError", err)
	}
}
