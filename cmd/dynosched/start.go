package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dynosched/pkg/config"
	"dynosched/pkg/logger"
	"dynosched/pkg/notifier"
	"dynosched/pkg/scheduler"
	"dynosched/pkg/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the scheduler until interrupted",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateConfig(); err != nil {
		return err
	}
	for _, w := range cfg.Warnings() {
		logger.Warn("Configuration warning", zap.String("warning", w))
	}

	var opts []scheduler.Option
	if tg := notifier.NewTelegramNotifier(cfg.Telegram); tg.Enabled() {
		if err := tg.ValidateConfig(); err != nil {
			return &config.ConfigurationError{Field: "telegram", Err: err}
		}
		opts = append(opts, scheduler.WithNotifier(tg))
	}

	deps, err := bootstrapWith(cfg, path, opts...)
	if err != nil {
		return err
	}
	defer deps.Close()

	logger.Info("Starting dynosched", zap.Any("config", deps.cfg.Summary()), zap.String("config_path", deps.cfgPath))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := deps.controller.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	var httpSrv *server.HTTPServer
	if deps.cfg.Server.Enabled {
		httpSrv = server.NewHTTPServer(deps.cfg, deps.controller, deps.reporter)
		g.Go(httpSrv.Start)
	}

	if deps.cfg.Runtime.WatchConfig {
		if _, statErr := os.Stat(deps.cfgPath); statErr == nil {
			w := config.NewWatcher(deps.cfgPath, deps.cfg, func(next *config.Config) {
				if err := deps.controller.Reconcile(gctx, next.Apps); err != nil {
					logger.Warn("Config reload applied with errors", zap.Error(err))
				}
			})
			g.Go(func() error { return w.Watch(gctx) })
		}
	}

	logger.Info("Scheduler running",
		zap.Int("apps", len(deps.controller.AppNames())),
		zap.Int("jobs", len(deps.controller.Jobs())),
		zap.Int("skipped", len(deps.controller.Warnings())))

	<-gctx.Done()
	logger.Info("Shutdown signal received")

	timeout := time.Duration(deps.cfg.Runtime.GracefulShutdownTimeout) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}
	if err := deps.controller.Shutdown(shutdownCtx); err != nil {
		logger.Error("Scheduler shutdown failed", zap.Error(err))
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("dynosched stopped")
	return nil
}
