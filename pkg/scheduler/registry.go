package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"dynosched/pkg/config"
	"dynosched/pkg/history"
	"dynosched/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job statuses
const (
	JobStatusScheduled = "scheduled"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// JobKey identifies one job: an app and the action it performs.
type JobKey struct {
	App    string
	Action history.Action
}

// String renders the key as "<app>-on" or "<app>-off".
func (k JobKey) String() string {
	return k.App + "-" + k.Action.Short()
}

// FireFunc is invoked on every firing of the job bound to key.
type FireFunc func(key JobKey) error

// JobStatus is a read-only view of a registered job.
type JobStatus struct {
	Name     string         `json:"name"`
	App      string         `json:"app"`
	Action   history.Action `json:"action"`
	Expr     string         `json:"expr"`
	Timezone string         `json:"timezone"`
	Running  bool           `json:"running"`
	NextFire *time.Time     `json:"next_fire,omitempty"`
	LastRun  *time.Time     `json:"last_run,omitempty"`
	Status   string         `json:"status"`
}

// scheduledJob is bound to a single key and implements cron.Job.
type scheduledJob struct {
	key      JobKey
	expr     string
	timezone string
	schedule cron.Schedule
	entryID  cron.EntryID
	fire     FireFunc
	reg      *JobRegistry

	lastRun time.Time
	status  string
}

// Run never lets a failure or panic escape to the cron runner.
func (j *scheduledJob) Run() {
	j.reg.setJobState(j, JobStatusRunning, true)

	status := JobStatusCompleted
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Scheduled job panicked", zap.String("job", j.key.String()), zap.Any("panic", r))
			status = JobStatusFailed
		}
		j.reg.setJobState(j, status, false)
	}()

	if err := j.fire(j.key); err != nil {
		status = JobStatusFailed
	}
}

// JobRegistry owns the live cron jobs, at most one per key.
type JobRegistry struct {
	cron    *cron.Cron
	mu      sync.RWMutex
	jobs    map[JobKey]*scheduledJob
	started bool
	now     func() time.Time
}

// NewJobRegistry creates an empty, stopped registry.
func NewJobRegistry() *JobRegistry {
	cronLog := logger.CronLogger(false)
	return &JobRegistry{
		cron: cron.New(
			cron.WithParser(config.CronParser),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog)),
		),
		jobs: make(map[JobKey]*scheduledJob),
		now:  time.Now,
	}
}

// Register creates the on and off jobs of app, replacing any existing job
// under the same key. Expressions that fail to parse are skipped and
// returned; they never block the other expression.
func (r *JobRegistry) Register(app config.AppSchedule, fire FireFunc) []*MalformedScheduleError {
	var skipped []*MalformedScheduleError
	for _, spec := range []struct {
		action history.Action
		expr   string
	}{
		{history.ActionTurnOn, app.ScheduleOn},
		{history.ActionTurnOff, app.ScheduleOff},
	} {
		if spec.expr == "" {
			continue
		}
		key := JobKey{App: app.Name, Action: spec.action}
		if err := r.add(key, spec.expr, app.Timezone, fire); err != nil {
			logger.Warn("Skipping malformed schedule",
				zap.String("job", key.String()),
				zap.String("cron", spec.expr),
				zap.String("timezone", app.Timezone),
				zap.Error(err.Err))
			skipped = append(skipped, err)
		}
	}
	return skipped
}

func (r *JobRegistry) add(key JobKey, expr, tz string, fire FireFunc) *MalformedScheduleError {
	schedule, err := config.ParseSchedule(expr, tz)
	if err != nil {
		return &MalformedScheduleError{Key: key, Expr: expr, Timezone: tz, Err: err}
	}

	job := &scheduledJob{
		key:      key,
		expr:     expr,
		timezone: tz,
		schedule: schedule,
		fire:     fire,
		reg:      r,
		status:   JobStatusScheduled,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.jobs[key]; ok {
		r.cron.Remove(prev.entryID)
	}
	job.entryID = r.cron.Schedule(schedule, job)
	r.jobs[key] = job

	logger.Info("Added scheduled job",
		zap.String("job", key.String()),
		zap.String("cron", expr),
		zap.String("timezone", tz),
		zap.Time("next_run", schedule.Next(r.now())))
	return nil
}

// Unregister removes every job of app. It is a no-op for unknown apps.
func (r *JobRegistry) Unregister(app string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, job := range r.jobs {
		if key.App != app {
			continue
		}
		r.cron.Remove(job.entryID)
		delete(r.jobs, key)
		logger.Info("Removed scheduled job", zap.String("job", key.String()))
	}
}

// Start starts the cron runner. Calling it again is a no-op.
func (r *JobRegistry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.cron.Start()
	r.started = true
}

// StopAll removes every job and stops the runner. The returned context is
// done once firings already in progress have returned. Safe to call more
// than once.
func (r *JobRegistry) StopAll() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, job := range r.jobs {
		r.cron.Remove(job.entryID)
		delete(r.jobs, key)
	}
	r.started = false
	return r.cron.Stop()
}

// Len returns the number of registered jobs.
func (r *JobRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Has reports whether a job is registered under key.
func (r *JobRegistry) Has(key JobKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.jobs[key]
	return ok
}

// Snapshot lists the registered jobs sorted by name.
func (r *JobRegistry) Snapshot() []JobStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]JobStatus, 0, len(r.jobs))
	for key, job := range r.jobs {
		st := JobStatus{
			Name:     key.String(),
			App:      key.App,
			Action:   key.Action,
			Expr:     job.expr,
			Timezone: job.timezone,
			Status:   job.status,
		}

		var next time.Time
		if r.started {
			entry := r.cron.Entry(job.entryID)
			st.Running = entry.Valid()
			next = entry.Next
		}
		if next.IsZero() {
			next = job.schedule.Next(r.now())
		}
		if !next.IsZero() {
			st.NextFire = &next
		}
		if !job.lastRun.IsZero() {
			last := job.lastRun
			st.LastRun = &last
		}
		out = append(out, st)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *JobRegistry) setJobState(job *scheduledJob, status string, started bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job.status = status
	if started {
		job.lastRun = r.now()
	}
}
