package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dynosched/pkg/config"
	"dynosched/pkg/heroku"
	"dynosched/pkg/history"
	"dynosched/pkg/logger"

	"go.uber.org/zap"
)

// Notifier is told about scheduled actions that failed.
type Notifier interface {
	NotifyActionFailure(ctx context.Context, rec history.ActionRecord) error
}

// Option customises a Controller.
type Option func(*Controller)

// WithNotifier sends failure alerts for scheduled actions to n.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithDefaults sets the values applied to apps added at runtime.
func WithDefaults(d *config.ScheduleDefaults) Option {
	return func(c *Controller) { c.defaults = d }
}

// Controller maps the configured apps onto jobs in a JobRegistry and runs
// turn-on/turn-off actions against the platform, recording every outcome.
type Controller struct {
	platform heroku.Platform
	log      *history.ActionLog
	registry *JobRegistry
	notifier Notifier
	defaults *config.ScheduleDefaults

	mu       sync.RWMutex
	apps     map[string]config.AppSchedule
	order    []string
	running  bool
	warnings []*MalformedScheduleError
	runCtx   context.Context
}

// NewController validates apps and returns a stopped controller.
func NewController(platform heroku.Platform, log *history.ActionLog, apps []config.AppSchedule, opts ...Option) (*Controller, error) {
	if platform == nil {
		return nil, errors.New("platform client is required")
	}
	if log == nil {
		return nil, errors.New("action log is required")
	}

	c := &Controller{
		platform: platform,
		log:      log,
		apps:     make(map[string]config.AppSchedule, len(apps)),
		runCtx:   context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.registry = NewJobRegistry()

	for _, app := range apps {
		app = c.defaults.ApplyDefaults(app)
		if err := config.ValidateAppSchedule(app); err != nil {
			return nil, err
		}
		if _, dup := c.apps[app.Name]; dup {
			return nil, &config.ConfigurationError{Field: "apps", Err: fmt.Errorf("%w: %s", config.ErrDuplicateApp, app.Name)}
		}
		c.apps[app.Name] = app
		c.order = append(c.order, app.Name)
	}
	return c, nil
}

// Start validates every app with the platform, registers their jobs and
// starts the runner. An unreachable app fails startup and leaves no jobs
// registered. Starting a running controller is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.running {
		c.mu.RUnlock()
		return nil
	}
	apps := c.appsLocked()
	c.mu.RUnlock()

	logger.Info("Starting scheduler", zap.Int("apps", len(apps)))

	for _, app := range apps {
		if err := c.validate(ctx, app.Name); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	c.runCtx = context.WithoutCancel(ctx)
	c.warnings = nil
	for _, app := range c.appsLocked() {
		c.warnings = append(c.warnings, c.registry.Register(app, c.fire)...)
	}
	c.registry.Start()
	c.running = true

	logger.Info("Scheduler started",
		zap.Int("jobs", c.registry.Len()),
		zap.Int("skipped", len(c.warnings)))
	for _, job := range c.registry.Snapshot() {
		fields := []zap.Field{zap.String("job", job.Name), zap.String("cron", job.Expr), zap.String("timezone", job.Timezone)}
		if job.NextFire != nil {
			fields = append(fields, zap.Time("next_run", *job.NextFire))
		}
		logger.Info("Scheduled job", fields...)
	}
	return nil
}

// Stop removes every job. It always succeeds.
func (c *Controller) Stop() {
	c.stop()
}

// Shutdown stops every job and waits for firings in progress until ctx is
// done.
func (c *Controller) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down scheduler")
	done := c.stop()

	select {
	case <-done.Done():
		logger.Info("All scheduled jobs completed")
	case <-ctx.Done():
		logger.Warn("Scheduler shutdown timeout, some jobs may still be running")
	}
	return nil
}

func (c *Controller) stop() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	wasRunning := c.running
	c.running = false
	done := c.registry.StopAll()
	if wasRunning {
		logger.Info("Scheduler stopped")
	}
	return done
}

// AddApp adds or replaces an app. While running, the app is validated with
// the platform and its jobs are registered immediately.
func (c *Controller) AddApp(ctx context.Context, app config.AppSchedule) ([]*MalformedScheduleError, error) {
	app = c.defaults.ApplyDefaults(app)
	if err := config.ValidateAppSchedule(app); err != nil {
		return nil, err
	}

	if c.IsRunning() {
		if err := c.validate(ctx, app.Name); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.apps[app.Name]; !exists {
		c.order = append(c.order, app.Name)
	}
	c.apps[app.Name] = app

	var skipped []*MalformedScheduleError
	if c.running {
		c.registry.Unregister(app.Name)
		skipped = c.registry.Register(app, c.fire)
		c.replaceWarnings(app.Name, skipped)
	}
	logger.Info("Added app to scheduler", logger.AppField(app.Name))
	return skipped, nil
}

// RemoveApp unregisters the app's jobs and forgets it. Removing an unknown
// app changes nothing and returns ErrAppNotFound.
func (c *Controller) RemoveApp(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registry.Unregister(name)
	c.replaceWarnings(name, nil)
	if _, ok := c.apps[name]; !ok {
		return fmt.Errorf("%w: %s", ErrAppNotFound, name)
	}
	delete(c.apps, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	logger.Info("Removed app from scheduler", logger.AppField(name))
	return nil
}

// Reconcile makes the app set equal to apps: missing apps are removed, new
// and changed ones are added. Per-app failures are joined; they do not stop
// the others from being applied.
func (c *Controller) Reconcile(ctx context.Context, apps []config.AppSchedule) error {
	desired := make(map[string]config.AppSchedule, len(apps))
	for _, app := range apps {
		app = c.defaults.ApplyDefaults(app)
		desired[app.Name] = app
	}

	for _, name := range c.AppNames() {
		if _, keep := desired[name]; !keep {
			_ = c.RemoveApp(name)
		}
	}

	var errs []error
	for _, app := range apps {
		app = c.defaults.ApplyDefaults(app)
		c.mu.RLock()
		current, exists := c.apps[app.Name]
		c.mu.RUnlock()
		if exists && current.Equal(app) {
			continue
		}
		if _, err := c.AddApp(ctx, app); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", app.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ExecuteAction runs action against app as a manual action and returns the
// platform error, if any, after recording it. Apps outside the configured
// set use the default process type and quantity.
func (c *Controller) ExecuteAction(ctx context.Context, app string, action history.Action) (history.ActionRecord, error) {
	return c.execute(ctx, app, action, history.TriggerManual)
}

// fire is the scheduled path. The returned error only marks the job status;
// it is never propagated further.
func (c *Controller) fire(key JobKey) error {
	c.mu.RLock()
	ctx := c.runCtx
	c.mu.RUnlock()

	rec, err := c.execute(ctx, key.App, key.Action, history.TriggerScheduled)
	if err == nil {
		return nil
	}
	if c.notifier != nil {
		if nerr := c.notifier.NotifyActionFailure(ctx, rec); nerr != nil {
			logger.Warn("Failed to send failure notification", logger.AppField(key.App), zap.Error(nerr))
		}
	}
	return err
}

func (c *Controller) execute(ctx context.Context, app string, action history.Action, trigger history.Trigger) (history.ActionRecord, error) {
	ctx = logger.WithTrigger(logger.WithAction(logger.WithApp(ctx, app), string(action)), string(trigger))
	log := logger.FromContext(ctx)
	target := c.target(app)

	rec := history.ActionRecord{
		AppName: app,
		Action:  action,
		Trigger: trigger,
	}
	if st, err := c.platform.GetAppStatus(ctx, app); err == nil {
		rec.PreviousState = history.StateOf(st.Running)
	} else {
		log.Warn("Could not read state before action", zap.Error(err))
	}

	log.Info("Executing action")
	start := time.Now()

	var err error
	switch action {
	case history.ActionTurnOn:
		err = c.platform.TurnOnApp(ctx, target)
	case history.ActionTurnOff:
		err = c.platform.TurnOffApp(ctx, target)
	default:
		err = fmt.Errorf("%w: %q", history.ErrUnknownAction, action)
	}

	rec.Success = err == nil
	if err != nil {
		rec.Error = heroku.ErrorMessage(err)
	}
	// resulting state is read after failures too
	if st, serr := c.platform.GetAppStatus(ctx, app); serr == nil {
		rec.NewState = history.StateOf(st.Running)
	} else {
		log.Warn("Could not read state after action", zap.Error(serr))
	}

	if err != nil {
		log.Error("Action failed", zap.Error(err), zap.Duration("duration", time.Since(start)),
			zap.String("new_state", string(rec.NewState)))
	} else {
		log.Info("Action completed", zap.Duration("duration", time.Since(start)), zap.String("new_state", string(rec.NewState)))
	}

	saved, aerr := c.log.Append(ctx, rec)
	if aerr != nil {
		log.Error("Failed to record action", zap.Error(aerr))
	} else {
		rec = saved
	}
	return rec, err
}

func (c *Controller) target(app string) heroku.Target {
	c.mu.RLock()
	sched, ok := c.apps[app]
	c.mu.RUnlock()
	if !ok {
		sched = c.defaults.ApplyDefaults(config.AppSchedule{Name: app})
	}
	return heroku.Target{App: app, ProcessType: sched.ProcessType, Quantity: sched.Quantity}
}

func (c *Controller) validate(ctx context.Context, app string) error {
	if !c.platform.ValidateApp(ctx, app) {
		logger.Error("App validation failed", logger.AppField(app))
		return &ValidationError{App: app, Err: ErrAppUnreachable}
	}
	logger.Info("App validated successfully", logger.AppField(app))
	return nil
}

// ValidateApp checks that app is reachable on the platform.
func (c *Controller) ValidateApp(ctx context.Context, app string) error {
	return c.validate(ctx, app)
}

// Apps returns the configured schedules in insertion order.
func (c *Controller) Apps() []config.AppSchedule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.appsLocked()
}

// App looks up one schedule.
func (c *Controller) App(name string) (config.AppSchedule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	app, ok := c.apps[name]
	return app, ok
}

// AppNames returns the configured app names in insertion order.
func (c *Controller) AppNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Jobs returns a snapshot of the registered jobs.
func (c *Controller) Jobs() []JobStatus {
	return c.registry.Snapshot()
}

// IsRunning reports whether Start has completed and Stop has not been called.
func (c *Controller) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Warnings returns the schedules skipped at registration.
func (c *Controller) Warnings() []*MalformedScheduleError {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*MalformedScheduleError(nil), c.warnings...)
}

// GetStats returns action statistics over the last days days.
func (c *Controller) GetStats(ctx context.Context, days int) (*history.Statistics, error) {
	return c.log.Statistics(ctx, days)
}

// GetHistory returns the action records of the last days days.
func (c *Controller) GetHistory(ctx context.Context, days int) ([]history.ActionRecord, error) {
	return c.log.Query(ctx, days)
}

// History exposes the action log.
func (c *Controller) History() *history.ActionLog {
	return c.log
}

func (c *Controller) appsLocked() []config.AppSchedule {
	out := make([]config.AppSchedule, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.apps[name])
	}
	return out
}

func (c *Controller) replaceWarnings(app string, with []*MalformedScheduleError) {
	kept := c.warnings[:0]
	for _, w := range c.warnings {
		if w.Key.App != app {
			kept = append(kept, w)
		}
	}
	c.warnings = append(kept, with...)
}

// Preview registers apps in a registry that is never started and returns
// the jobs that would be created along with the skipped schedules.
func Preview(apps []config.AppSchedule) ([]JobStatus, []*MalformedScheduleError) {
	reg := NewJobRegistry()
	var skipped []*MalformedScheduleError
	noop := func(JobKey) error { return nil }
	for _, app := range apps {
		skipped = append(skipped, reg.Register(app, noop)...)
	}
	return reg.Snapshot(), skipped
}
