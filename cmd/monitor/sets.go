package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"signal-monitor/api/client"
	"signal-monitor/config"
	"signal-monitor/core/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
}

func optFloat(v *float64, digits int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', digits, 64)
}

// session is what every backend subcommand needs; logs go to a file when
// the command may hand the terminal to the monitor UI
func session(opts *globalOptions, forUI bool) (*config.Config, *zap.Logger, *client.Client, error) {
	cfg, err := opts.load()
	if err != nil {
		return nil, nil, nil, err
	}
	if forUI {
		logToFile(cfg)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	c, err := newClient(cfg, logger)
	if err != nil {
		logger.Sync()
		return nil, nil, nil, err
	}
	return cfg, logger, c, nil
}

func newSetsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sets",
		Short: "Create, list, start and delete training sets",
	}
	cmd.AddCommand(
		newSetsListCmd(opts),
		newSetsCreateCmd(opts),
		newSetsStartCmd(opts),
		newSetsDeleteCmd(opts),
	)
	return cmd
}

func newSetsListCmd(opts *globalOptions) *cobra.Command {
	var completed bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List training sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, c, err := session(opts, false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if completed {
				rows, err := c.CompletedTraining(cmd.Context())
				if err != nil {
					return err
				}
				printCompleted(cmd.OutOrStdout(), rows)
				return nil
			}
			sets, err := c.TrainingSets(cmd.Context())
			if err != nil {
				return err
			}
			printSets(cmd.OutOrStdout(), sets, time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "only completed training with duration and accuracy")
	return cmd
}

func printSets(w io.Writer, sets []models.TrainingSetSummary, now time.Time) {
	if len(sets) == 0 {
		fmt.Fprintln(w, "No training sets")
		return
	}
	rows := make([][]string, len(sets))
	for i, s := range sets {
		rows[i] = []string{
			s.ID,
			s.Name,
			string(s.Status),
			s.ModelType,
			fmt.Sprintf("%d/%d", s.Epoch, s.TotalEpochs),
			strconv.Itoa(s.MeasurementPoints),
			humanize.RelTime(s.CreatedAt, now, "ago", "from now"),
		}
	}
	renderTable(w, []string{"ID", "NAME", "STATUS", "MODEL", "EPOCH", "CHANNELS", "CREATED"}, rows)
}

func printCompleted(w io.Writer, rows []models.CompletedTraining) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No completed training")
		return
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{
			r.ID,
			r.Name,
			humanize.FtoaWithDigits(r.DurationMinutes, 2) + " min",
			optFloat(r.ValidationLoss, 4),
			optFloat(r.Accuracy, 3),
		}
	}
	renderTable(w, []string{"ID", "NAME", "DURATION", "VAL LOSS", "ACCURACY"}, out)
}

// setFlags are the create-training-set form fields
type setFlags struct {
	name, description, start       string
	model, optimizer               string
	channels                       []string
	records                        int
	epochs, batch, window, horizon int
	learningRate                   float64

	expert      bool
	layers      int
	hidden      int
	dropout     float64
	weightDecay float64
	loss        string
	patience    int
	scheduler   string
	seed        int
	metric      string
}

func (f *setFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "training set name")
	fl.StringVar(&f.description, "description", "", "free-text description")
	fl.StringVar(&f.start, "start", "", "training start time, RFC 3339 (default now)")
	fl.StringVar(&f.model, "model", "lstm", "model type")
	fl.StringSliceVar(&f.channels, "channels", nil, "measurement channels to train on")
	fl.IntVar(&f.records, "records", 0, "number of data points selected")
	fl.IntVar(&f.epochs, "epochs", 100, "training epochs")
	fl.Float64Var(&f.learningRate, "learning-rate", 0.001, "learning rate")
	fl.IntVar(&f.batch, "batch-size", 32, "batch size")
	fl.IntVar(&f.window, "window-size", 24, "input window length")
	fl.IntVar(&f.horizon, "horizon", 12, "forecast horizon")
	fl.StringVar(&f.optimizer, "optimizer", "adam", "optimizer")

	fl.BoolVar(&f.expert, "expert", false, "send the expert parameters below")
	fl.IntVar(&f.layers, "layers", 1, "LSTM layers (expert)")
	fl.IntVar(&f.hidden, "hidden-size", 64, "hidden units (expert)")
	fl.Float64Var(&f.dropout, "dropout", 0.1, "dropout rate (expert)")
	fl.Float64Var(&f.weightDecay, "weight-decay", 0.0001, "weight decay (expert)")
	fl.StringVar(&f.loss, "loss", "mse", "loss function (expert)")
	fl.IntVar(&f.patience, "patience", 5, "early stopping patience (expert)")
	fl.StringVar(&f.scheduler, "scheduler", "step", "learning rate scheduler (expert)")
	fl.IntVar(&f.seed, "seed", 42, "random seed (expert)")
	fl.StringVar(&f.metric, "metric", "mse", "evaluation metric (expert)")
}

func (f *setFlags) request(now time.Time) *models.TrainingSetRequest {
	start := f.start
	if start == "" {
		start = now.UTC().Format(time.RFC3339)
	}
	mode := "basic"
	if f.expert {
		mode = models.TrainingModeExpert
	}
	req := &models.TrainingSetRequest{
		BasicInfo:    models.BasicInfo{Name: f.name, Description: f.description, StartTime: start},
		TrainingMode: models.TrainingMode{Mode: mode, ModelType: f.model},
		DataSelection: models.DataSelection{DataSource: models.DataSource{
			EnabledChannels: f.channels,
			TotalDataPoints: f.records,
		}},
		LearningParams: models.LearningConfig{Basic: models.BasicParams{
			LearningRate: &f.learningRate,
			Epochs:       &f.epochs,
			BatchSize:    &f.batch,
			WindowSize:   &f.window,
			Horizon:      &f.horizon,
			Optimizer:    &f.optimizer,
		}},
	}
	if f.expert {
		req.LearningParams.Expert = models.ExpertParams{
			LSTMLayers:            &f.layers,
			HiddenSize:            &f.hidden,
			DropoutRate:           &f.dropout,
			WeightDecay:           &f.weightDecay,
			LossFunction:          &f.loss,
			EarlyStoppingPatience: &f.patience,
			LearningRateScheduler: &f.scheduler,
			RandomSeed:            &f.seed,
			EvaluationMetric:      &f.metric,
		}
	}
	return req
}

func newSetsCreateCmd(opts *globalOptions) *cobra.Command {
	var f setFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a training set without starting it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.name == "" {
				return fmt.Errorf("--name is required")
			}
			_, logger, c, err := session(opts, false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			created, err := c.CreateTrainingSet(cmd.Context(), f.request(time.Now()))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created training set %q (%s)\n", created.Name, created.ID)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newSetsStartCmd(opts *globalOptions) *cobra.Command {
	var force, watch bool
	var outDir string
	cmd := &cobra.Command{
		Use:   "start <set-id>",
		Short: "Start training a set",
		Long: `Start training a stored set. A set that is already running is left alone;
a finished set restarts from epoch 0 only with --force.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, c, err := session(opts, watch)
			if err != nil {
				return err
			}
			defer logger.Sync()

			res, err := c.StartTrainingFromSet(cmd.Context(), args[0], force)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch res.Action {
			case models.StartActionAskRestart:
				fmt.Fprintf(out, "Training set %s has %s; run again with --force to restart it\n", res.ID, res.Status)
				return nil
			case models.StartActionOpenMonitor:
				fmt.Fprintf(out, "Training set %s is already %s\n", res.ID, res.Status)
			default:
				fmt.Fprintf(out, "Started training set %s\n", res.ID)
			}
			if !watch {
				return nil
			}
			cfg.JobID = res.ID
			return watchJob(cmd.Context(), cfg, logger, c, outDir)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "restart a completed, stopped or failed set")
	cmd.Flags().BoolVar(&watch, "watch", false, "open the monitor after starting")
	cmd.Flags().StringVar(&outDir, "out", ".", "directory prediction exports are written to")
	return cmd
}

func newSetsDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <set-id>",
		Short: "Delete a training set that is not running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, c, err := session(opts, false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			msg, err := c.DeleteTrainingSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newModelsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List saved models of completed training sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, c, err := session(opts, false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			deployed, err := c.DeployedModels(cmd.Context())
			if err != nil {
				return err
			}
			printModels(cmd.OutOrStdout(), deployed, time.Now())
			return nil
		},
	}
}

func printModels(w io.Writer, deployed []models.DeployedModel, now time.Time) {
	if len(deployed) == 0 {
		fmt.Fprintln(w, "No saved models")
		return
	}
	rows := make([][]string, len(deployed))
	for i, m := range deployed {
		rows[i] = []string{
			strconv.FormatInt(m.ID, 10),
			m.Name,
			m.ModelType,
			strconv.FormatFloat(m.Accuracy, 'f', 3, 64),
			optFloat(m.FinalValidationLoss, 4),
			humanize.RelTime(m.DeployedAt, now, "ago", "from now"),
		}
	}
	renderTable(w, []string{"ID", "NAME", "TYPE", "ACCURACY", "VAL LOSS", "SAVED"}, rows)
}

func newTrainCmd(opts *globalOptions) *cobra.Command {
	var watch bool
	var outDir string
	cmd := &cobra.Command{
		Use:   "train <spec.yaml>",
		Short: "Submit a YAML job spec and start training it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cfg, logger, c, err := session(opts, watch)
			if err != nil {
				return err
			}
			defer logger.Sync()

			jobID, err := c.StartTraining(cmd.Context(), string(doc))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started training job %s\n", jobID)
			if !watch {
				return nil
			}
			cfg.JobID = jobID
			return watchJob(cmd.Context(), cfg, logger, c, outDir)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "open the monitor after submitting")
	cmd.Flags().StringVar(&outDir, "out", ".", "directory prediction exports are written to")
	return cmd
}
