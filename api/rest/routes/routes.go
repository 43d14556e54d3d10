package routes

import (
	"net/http"

	"signal-monitor/api/rest/handlers"
	"signal-monitor/api/rest/middleware"
	"signal-monitor/core/metrics"
	"signal-monitor/core/repository"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Deps are the services the API routes are served from
type Deps struct {
	Store  repository.Store
	ETA    handlers.ETAEstimator
	Models handlers.ModelSaver
	Logger *zap.Logger
}

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	training := handlers.NewTrainingHandler(deps.Store, deps.ETA, deps.Models, logger)
	signal := handlers.NewSignalHandler(logger)

	r.Handle("/metrics", metrics.Handler(metrics.NewExporter(deps.Store, logger))).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.RequestLogger(logger), middleware.CSRF(logger))

	api.HandleFunc("/csrf/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}).Methods("GET")

	// Training lifecycle
	api.HandleFunc("/start-training/", training.StartTraining).Methods("POST")
	api.HandleFunc("/training-jobs/", training.ListJobs).Methods("GET")
	api.HandleFunc("/training-status/{id}/", training.TrainingStatus).Methods("GET")
	api.HandleFunc("/training-events/{id}/", training.TrainingEvents).Methods("GET")
	api.HandleFunc("/pause-training/{id}/", training.PauseTraining).Methods("POST")
	api.HandleFunc("/resume-training/{id}/", training.ResumeTraining).Methods("POST")
	api.HandleFunc("/stop-training/{id}/", training.StopTraining).Methods("POST")
	api.HandleFunc("/save-model/{id}/", training.SaveModel).Methods("POST")
	api.HandleFunc("/get-training-set/{id}/", training.TrainingSet).Methods("GET")

	// Training sets
	api.HandleFunc("/create-training-set/", training.CreateTrainingSet).Methods("POST")
	api.HandleFunc("/get-training-sets/", training.TrainingSets).Methods("GET")
	api.HandleFunc("/start-training-from-set/", training.StartFromSet).Methods("POST")
	api.HandleFunc("/delete-training-set/{id}/", training.DeleteTrainingSet).Methods("DELETE")
	api.HandleFunc("/get-completed-training/", training.CompletedTraining).Methods("GET")
	api.HandleFunc("/get-deployed-models/", training.DeployedModels).Methods("GET")

	// Signal analysis
	api.HandleFunc("/upload-data/", signal.UploadData).Methods("POST")
	for _, path := range []string{
		"/perform-fft/",
		"/perform-transform/",
		"/time-average/",
		"/calculate-time-features/",
		"/predict-evaluation/{id}/",
		"/export-prediction-results/{id}/",
		"/model-predict/{id}/",
	} {
		api.HandleFunc(path, signal.NotImplemented).Methods("POST")
	}
}
