package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts globalOptions
	rootCmd := &cobra.Command{
		Use:           "signal-monitor",
		Short:         "Training monitor and signal analysis client",
		Long:          `Create and start training sets, watch a training job live, upload signals, request analyses and export predictions from the signal-analysis backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.bind(rootCmd)

	rootCmd.AddCommand(
		newWatchCmd(&opts),
		newUploadCmd(&opts),
		newAnalyzeCmd(&opts),
		newPredictCmd(&opts),
		newTrainCmd(&opts),
		newSetsCmd(&opts),
		newModelsCmd(&opts),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
