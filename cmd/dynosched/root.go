package main

import (
	"fmt"

	"dynosched/pkg/config"
	"dynosched/pkg/heroku"
	"dynosched/pkg/history"
	"dynosched/pkg/logger"
	"dynosched/pkg/scheduler"
	"dynosched/pkg/status"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "dynosched",
	Short: "Turn Heroku apps on and off on a cron schedule",
	Long: `dynosched scales Heroku dyno formations up and down on per-app cron
schedules, records every action in a bounded history, and reports app status
and dyno health.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml, ~/.dynosched/config.yaml, /etc/dynosched/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(startCmd, statusCmd, historyCmd, healthCmd, statsCmd,
		onCmd, offCmd, jobsCmd, cleanupCmd)
}

// runtimeDeps is what every command that talks to Heroku needs.
type runtimeDeps struct {
	cfg        *config.Config
	cfgPath    string
	platform   heroku.Platform
	log        *history.ActionLog
	controller *scheduler.Controller
	reporter   *status.Reporter
}

func (d *runtimeDeps) Close() {
	if d.log == nil {
		return
	}
	if err := d.log.Close(); err != nil {
		logger.Warn("Failed to close action log", zap.Error(err))
	}
}

// loadConfig loads the configuration and initializes logging from it.
func loadConfig() (*config.Config, string, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}

	if err := logger.InitLogger(logger.Options{
		Development: cfg.App.IsDevelopment(),
		LogPath:     cfg.App.LogFile,
		Level:       cfg.App.LogLevel,
	}); err != nil {
		return nil, "", fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, path, nil
}

// bootstrap builds the Heroku client, action log and controller. The
// controller is not started.
func bootstrap(opts ...scheduler.Option) (*runtimeDeps, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return bootstrapWith(cfg, path, opts...)
}

func bootstrapWith(cfg *config.Config, path string, opts ...scheduler.Option) (*runtimeDeps, error) {
	client, err := heroku.NewClient(cfg.Heroku)
	if err != nil {
		return nil, &config.ConfigurationError{Field: "heroku.api_token", Err: err}
	}

	log, err := history.OpenFromConfig(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("opening action log: %w", err)
	}
	logger.Debug("Action log opened", zap.String("driver", cfg.History.Driver), zap.Int("capacity", log.Capacity()))

	opts = append([]scheduler.Option{scheduler.WithDefaults(cfg.Defaults)}, opts...)
	ctrl, err := scheduler.NewController(client, log, cfg.Apps, opts...)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	return &runtimeDeps{
		cfg:        cfg,
		cfgPath:    path,
		platform:   client,
		log:        log,
		controller: ctrl,
		reporter:   status.NewReporter(client, cfg.Runtime.StatusConcurrency),
	}, nil
}
