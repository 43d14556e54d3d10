package main

import (
	"net/http"

	"signal-monitor/api/client"
	"signal-monitor/config"
	"signal-monitor/core/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type globalOptions struct {
	configPath string
	baseURL    string
	csrfToken  string
	logLevel   string
	logFile    string
}

func (o *globalOptions) bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.configPath, "config", "", "YAML config file (default $SIGNAL_MONITOR_CONFIG)")
	f.StringVar(&o.baseURL, "base-url", "", "backend base URL")
	f.StringVar(&o.csrfToken, "csrf-token", "", "pin the CSRF token instead of reading the cookie")
	f.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&o.logFile, "log-file", "", "write logs to this file instead of stderr")
}

// load resolves the config with command-line flags applied last
func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.csrfToken != "" {
		cfg.CSRFToken = o.csrfToken
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFile != "" {
		cfg.LogFile = o.logFile
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
}

func newClient(cfg *config.Config, logger *zap.Logger) (*client.Client, error) {
	opts := []client.Option{
		client.WithLogger(logger),
		client.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.CSRFToken != "" {
		opts = append(opts, client.WithCSRFToken(cfg.CSRFToken))
	}
	return client.New(cfg.BaseURL, opts...)
}
