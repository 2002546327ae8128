package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"dynosched/pkg/config"
	"dynosched/pkg/heroku"
	"dynosched/pkg/history"
	"dynosched/pkg/logger"
	"dynosched/pkg/notifier"
	"dynosched/pkg/scheduler"
	"dynosched/pkg/status"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	statusApp      string
	statusJSON     bool
	historyDays    int
	statsDays      int
	actionApp      string
	cleanupOlder   int
	commandTimeout = 2 * time.Minute
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the remote status of configured apps",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := bootstrap()
		if err != nil {
			return err
		}
		defer deps.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		apps := deps.controller.AppNames()
		if statusApp != "" {
			apps = []string{statusApp}
		}
		statuses := deps.reporter.Collect(ctx, apps)
		if statusJSON {
			return printJSON(statuses)
		}
		fmt.Print(status.FormatReport(statuses, time.Now()))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the action history report",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := openActionLog()
		if err != nil {
			return err
		}
		defer log.Close()

		report, err := log.GenerateReport(cmd.Context(), historyDays)
		if err != nil {
			return err
		}
		fmt.Print(report)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print action statistics as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := openActionLog()
		if err != nil {
			return err
		}
		defer log.Close()

		stats, err := log.Statistics(cmd.Context(), statsDays)
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check dyno health of configured apps; exits 1 when unhealthy",
	Long: `Check dyno health of configured apps and exit 1 when any issue is found.
When Telegram is enabled the issues are also sent as an alert.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := bootstrap()
		if err != nil {
			return err
		}
		defer deps.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		return runHealth(ctx, deps, healthNotifier(deps.cfg.Telegram))
	},
}

var onCmd = &cobra.Command{
	Use:   "on",
	Short: "Turn an app on now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd.Context(), history.ActionTurnOn)
	},
}

var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Turn an app off now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd.Context(), history.ActionTurnOff)
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the jobs the configuration would schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		jobs, skipped := scheduler.Preview(cfg.Apps)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "JOB\tCRON\tTIMEZONE\tNEXT FIRE\n")
		for _, j := range jobs {
			next := "N/A"
			if j.NextFire != nil {
				next = j.NextFire.Format(time.RFC3339)
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", j.Name, j.Expr, j.Timezone, next)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		for _, s := range skipped {
			fmt.Fprintf(os.Stderr, "skipped: %v\n", s)
		}
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete history records older than N days",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := openActionLog()
		if err != nil {
			return err
		}
		defer log.Close()

		removed, err := log.Cleanup(cmd.Context(), cleanupOlder)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d records older than %d days\n", removed, cleanupOlder)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusApp, "app", "", "only show this app")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print JSON instead of the report")
	historyCmd.Flags().IntVar(&historyDays, "days", 7, "number of days to include")
	statsCmd.Flags().IntVar(&statsDays, "days", 30, "number of days to include")
	cleanupCmd.Flags().IntVar(&cleanupOlder, "older-than", 90, "remove records older than this many days")

	for _, c := range []*cobra.Command{onCmd, offCmd} {
		c.Flags().StringVar(&actionApp, "app", "", "app name")
		_ = c.MarkFlagRequired("app")
	}
}

// runHealth prints the health result, alerts n about issues and turns an
// unhealthy result into exit status 1. A failed alert does not change the
// exit status.
func runHealth(ctx context.Context, deps *runtimeDeps, n status.HealthNotifier) error {
	res, err := deps.reporter.CheckHealth(ctx, deps.controller.AppNames(), n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if err := printJSON(res); err != nil {
		return err
	}
	if !res.Healthy {
		return &exitError{code: 1}
	}
	return nil
}

// healthNotifier returns the Telegram notifier when alerts are enabled.
func healthNotifier(cfg *config.TelegramConfig) status.HealthNotifier {
	tg := notifier.NewTelegramNotifier(cfg)
	if !tg.Enabled() {
		return nil
	}
	return tg
}

func runAction(ctx context.Context, action history.Action) error {
	deps, err := bootstrap()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	rec, err := deps.controller.ExecuteAction(ctx, actionApp, action)
	if err != nil {
		return &exitError{code: 1, msg: fmt.Sprintf("Failed to turn %s %s: %s", action.Short(), actionApp, heroku.ErrorMessage(err))}
	}
	fmt.Printf("%s: %s -> %s\n", actionApp, rec.PreviousState, rec.NewState)
	return nil
}

// openActionLog opens only the history store, so history commands work
// without a Heroku token.
func openActionLog() (*history.ActionLog, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := history.OpenFromConfig(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("opening action log: %w", err)
	}
	logger.Debug("Action log opened", zap.String("driver", cfg.History.Driver), zap.Int("capacity", log.Capacity()))
	return log, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
