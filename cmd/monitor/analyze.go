package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"signal-monitor/core/analysis"
	"signal-monitor/core/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "245", Dark: "244"}).Width(16)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "26", Dark: "81"})
)

// overviewPrinter writes the data overview panel to a terminal
type overviewPrinter struct {
	w io.Writer
}

func (p overviewPrinter) ShowOverview(o analysis.Overview) {
	fmt.Fprintln(p.w, titleStyle.Render("Data overview"))
	for _, row := range [][2]string{
		{"File", o.Filename},
		{"Sampling rate", o.SamplingRate + " Hz"},
		{"Points", o.Points},
		{"Duration", o.Duration},
		{"Data type", o.Dtype},
	} {
		fmt.Fprintln(p.w, labelStyle.Render(row[0])+row[1])
	}
}

func loadSignal(cmd *cobra.Command, s *analysis.Session, path string, rate float64, reference bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if reference {
		_, err = s.LoadReference(cmd.Context(), filepath.Base(path), f, rate)
	} else {
		_, err = s.Load(cmd.Context(), filepath.Base(path), f, rate)
	}
	return err
}

func newSession(cmd *cobra.Command, opts *globalOptions) (*analysis.Session, error) {
	cfg, err := opts.load()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	c, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return analysis.NewSession(c, overviewPrinter{w: cmd.OutOrStdout()}, logger), nil
}

func newUploadCmd(opts *globalOptions) *cobra.Command {
	var rate float64
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a signal file and show its overview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			return loadSignal(cmd, s, args[0], rate, false)
		},
	}
	cmd.Flags().Float64Var(&rate, "rate", 0, "sampling rate in Hz")
	cmd.MarkFlagRequired("rate")
	return cmd
}

type analyzeOptions struct {
	rate      float64
	method    string
	reference string
	count     int
	window    int

	freqMin, freqMax   float64
	timeStart, timeEnd float64
	freqLow, freqHigh  float64
}

func newAnalyzeCmd(opts *globalOptions) *cobra.Command {
	var o analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Upload a signal and run one analysis on it",
		Long: `Methods: fft, cep, lcep, pcep, features, average.
The average method needs --reference, --count and --window.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			if err := loadSignal(cmd, s, args[0], o.rate, false); err != nil {
				return err
			}

			var res *models.AnalysisResult
			switch o.method {
			case "fft":
				res, err = s.FFT(cmd.Context())
			case "features":
				res, err = s.TimeFeatures(cmd.Context())
			case "average":
				if o.reference == "" {
					return fmt.Errorf("--reference is required for time averaging")
				}
				if err := loadSignal(cmd, s, o.reference, o.rate, true); err != nil {
					return err
				}
				res, err = s.TimeAverage(cmd.Context(), o.count, o.window)
			default:
				res, err = s.Transform(cmd.Context(), models.TransformMethod(o.method), o.params(cmd))
			}
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&o.rate, "rate", 0, "sampling rate in Hz")
	f.StringVar(&o.method, "method", "fft", "analysis to run")
	f.StringVar(&o.reference, "reference", "", "reference signal file for time averaging")
	f.IntVar(&o.count, "count", 10, "number of averages")
	f.IntVar(&o.window, "window", 1024, "averaging window size in samples")
	f.Float64Var(&o.freqMin, "freq-min", 0, "lowest frequency displayed")
	f.Float64Var(&o.freqMax, "freq-max", 0, "highest frequency displayed")
	f.Float64Var(&o.timeStart, "time-start", 0, "cepstrum start time (cep)")
	f.Float64Var(&o.timeEnd, "time-end", 0, "cepstrum end time (cep)")
	f.Float64Var(&o.freqLow, "freq-low", 0, "lifter low frequency (lcep)")
	f.Float64Var(&o.freqHigh, "freq-high", 0, "lifter high frequency (lcep)")
	cmd.MarkFlagRequired("rate")
	return cmd
}

// params returns only the transform parameters set on the command line
func (o *analyzeOptions) params(cmd *cobra.Command) models.TransformParams {
	set := func(name string, v float64) *float64 {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		return &v
	}
	return models.TransformParams{
		FreqDisplayMin: set("freq-min", o.freqMin),
		FreqDisplayMax: set("freq-max", o.freqMax),
		TimeStart:      set("time-start", o.timeStart),
		TimeEnd:        set("time-end", o.timeEnd),
		FreqLow:        set("freq-low", o.freqLow),
		FreqHigh:       set("freq-high", o.freqHigh),
	}
}

func printResult(w io.Writer, res *models.AnalysisResult) error {
	fmt.Fprintln(w, titleStyle.Render(res.Kind))
	var out bytes.Buffer
	if err := json.Indent(&out, res.Data, "", "  "); err != nil {
		_, err = w.Write(res.Data)
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func newPredictCmd(opts *globalOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "predict <job-id>",
		Short: "Evaluate a trained model and save the prediction results as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()
			c, err := newClient(cfg, logger)
			if err != nil {
				return err
			}

			path, err := analysis.ExportPredictions(cmd.Context(), c, args[0], outDir, time.Now(), logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Prediction results saved to", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	return cmd
}
