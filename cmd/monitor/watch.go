package main

import (
	"context"
	"fmt"
	"time"

	"signal-monitor/api/client"
	"signal-monitor/config"
	"signal-monitor/core/analysis"
	"signal-monitor/core/monitoring"
	"signal-monitor/ui/tui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultWatchLogFile = "signal-monitor.log"

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "watch [job-id]",
		Short: "Watch a training job in the terminal",
		Long: `Poll a training job's status and render its metrics, loss chart and
activity log. Pause, resume, stop and save the model from the keyboard.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.JobID = args[0]
			}
			if cfg.JobID == "" {
				return fmt.Errorf("job id is required (argument or JOB_ID)")
			}
			logToFile(cfg)

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			c, err := newClient(cfg, logger)
			if err != nil {
				return err
			}
			return watchJob(cmd.Context(), cfg, logger, c, outDir)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "directory prediction exports are written to")
	return cmd
}

// logToFile sends logs to a file; the terminal belongs to the UI
func logToFile(cfg *config.Config) {
	if cfg.LogFile == "" {
		cfg.LogFile = defaultWatchLogFile
	}
}

// watchJob runs the terminal monitor for cfg.JobID until the user quits
func watchJob(ctx context.Context, cfg *config.Config, logger *zap.Logger, c *client.Client, outDir string) error {
	bridge := tui.NewBridge()
	mon, err := monitoring.New(monitoring.Config{
		JobID:        cfg.JobID,
		Backend:      c,
		View:         bridge,
		Confirmer:    bridge,
		PollInterval: cfg.PollInterval,
		ChartCap:     cfg.ChartCap,
		LogCap:       cfg.LogCap,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := mon.Start(ctx); err != nil {
		return err
	}
	defer mon.Close()

	logger.Info("watching training job", zap.String("job_id", cfg.JobID), zap.String("base_url", cfg.BaseURL))
	return tui.Run(tui.Options{
		Context:    ctx,
		JobID:      cfg.JobID,
		Controller: mon,
		Bridge:     bridge,
		Logger:     logger,
		Predict: func(ctx context.Context) (string, error) {
			return analysis.ExportPredictions(ctx, c, cfg.JobID, outDir, time.Now(), logger)
		},
	})
}
