package scheduler

import (
	"errors"
	"fmt"
)

var (
	ErrAppNotFound    = errors.New("app not found")
	ErrAppUnreachable = errors.New("app not found or not accessible")
)

// ValidationError reports an app that the platform could not confirm.
type ValidationError struct {
	App string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("app %s validation failed: %v", e.App, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// MalformedScheduleError reports a cron expression or timezone that could not
// be parsed. The job is skipped; other jobs are unaffected.
type MalformedScheduleError struct {
	Key      JobKey
	Expr     string
	Timezone string
	Err      error
}

func (e *MalformedScheduleError) Error() string {
	return fmt.Sprintf("skipping job %s: schedule %q (%s): %v", e.Key, e.Expr, e.Timezone, e.Err)
}

func (e *MalformedScheduleError) Unwrap() error {
	return e.Err
}
