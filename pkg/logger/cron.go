package logger

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger routes robfig/cron's internal logging through zap.
type cronLogger struct {
	verbose bool
}

// CronLogger returns a cron.Logger backed by the global zap logger.
// Info-level cron chatter (schedule/wake/run) is only emitted when verbose.
func CronLogger(verbose bool) cron.Logger {
	return cronLogger{verbose: verbose}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if !l.verbose {
		return
	}
	Logger.WithOptions(zap.AddCallerSkip(1)).Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	Logger.WithOptions(zap.AddCallerSkip(1)).Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
