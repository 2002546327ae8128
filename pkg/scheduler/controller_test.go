package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dynosched/pkg/config"
	"dynosched/pkg/heroku"
	"dynosched/pkg/heroku/herokutest"
	"dynosched/pkg/history"
)

type recordingNotifier struct {
	mu      sync.Mutex
	records []history.ActionRecord
}

func (n *recordingNotifier) NotifyActionFailure(ctx context.Context, rec history.ActionRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, rec)
	return nil
}

func alphaSchedule() config.AppSchedule {
	return config.AppSchedule{
		Name:        "alpha",
		ScheduleOn:  "0 9 * * 1-5",
		ScheduleOff: "0 18 * * 1-5",
		Timezone:    "America/New_York",
	}
}

func newTestController(t *testing.T, platform heroku.Platform, apps []config.AppSchedule, opts ...Option) *Controller {
	t.Helper()
	log, err := history.Open(history.NewMemoryStore(), history.Options{})
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	c, err := NewController(platform, log, apps, opts...)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	t.Cleanup(c.Stop)
	return c
}

func TestStartRegistersAlphaJobs(t *testing.T) {
	fake := herokutest.New()
	fake.SetApp("alpha", &herokutest.App{})
	c := newTestController(t, fake, []config.AppSchedule{alphaSchedule()})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !c.IsRunning() {
		t.Fatal("expected controller to be running")
	}
	jobs := c.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Name != "alpha-off" || jobs[1].Name != "alpha-on" {
		t.Errorf("unexpected job names %s, %s", jobs[0].Name, jobs[1].Name)
	}
	for _, job := range jobs {
		if !job.Running {
			t.Errorf("job %s should be running", job.Name)
		}
		if job.NextFire == nil {
			t.Errorf("job %s has no next fire time", job.Name)
		}
	}

	// second start is a no-op
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if len(c.Jobs()) != 2 {
		t.Errorf("expected still 2 jobs")
	}
}

func TestStartFailsForUnreachableApp(t *testing.T) {
	fake := herokutest.New()
	fake.SetApp("alpha", &herokutest.App{})
	c := newTestController(t, fake, []config.AppSchedule{alphaSchedule(), {Name: "ghost"}})

	err := c.Start(context.Background())
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.App != "ghost" {
		t.Fatalf("expected ValidationError for ghost, got %v", err)
	}
	if c.IsRunning() || len(c.Jobs()) != 0 {
		t.Error("no jobs should be registered after a failed start")
	}
}

func TestStartCollectsMalformedSchedules(t *testing.T) {
	fake := herokutest.New()
	fake.SetApp("alpha", &herokutest.App{})
	app := alphaSchedule()
	app.ScheduleOn = "every morning"
	c := newTestController(t, fake, []config.AppSchedule{app})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if w := c.Warnings(); len(w) != 1 || w[0].Key.String() != "alpha-on" {
		t.Fatalf("unexpected warnings %v", w)
	}
	if jobs := c.Jobs(); len(jobs) != 1 || jobs[0].Name != "alpha-off" {
		t.Errorf("unexpected jobs %+v", jobs)
	}
}

func TestExecuteActionRecordsSuccess(t *testing.T) {
	fake := herokutest.New()
	fake.SetApp("alpha", &herokutest.App{})
	c := newTestController(t, fake, []config.AppSchedule{alphaSchedule()})
	ctx := context.Background()

	rec, err := c.ExecuteAction(ctx, "alpha", history.ActionTurnOn)
	if err != nil {
		t.Fatalf("ExecuteAction: %v", err)
	}
	if rec.Trigger != history.TriggerManual {
		t.Errorf("expected manual trigger, got %s", rec.Trigger)
	}

	records, _ := c.GetHistory(ctx, 1)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	newest := records[0]
	if !newest.Success || newest.NewState != history.StateRunning || newest.PreviousState != history.StateStopped {
		t.Errorf("unexpected record %+v", newest)
	}
}

func TestExecuteActionPropagatesRemoteError(t *testing.T) {
	fake := herokutest.New()
	boom := &heroku.RemoteActionError{Op: "scale", App: "alpha", StatusCode: 503, Message: "service unavailable"}
	fake.SetApp("alpha", &herokutest.App{Running: true, ActionErr: boom})
	c := newTestController(t, fake, []config.AppSchedule{alphaSchedule()})
	ctx := context.Background()

	_, err := c.ExecuteAction(ctx, "alpha", history.ActionTurnOff)
	var remote *heroku.RemoteActionError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteActionError, got %v", err)
	}

	records, _ := c.GetHistory(ctx, 0)
	if len(records) != 1 || records[0].Success || records[0].Error != "service unavailable" {
		t.Errorf("unexpected records %+v", records)
	}
	if records[0].PreviousState != history.StateRunning || records[0].NewState != history.StateRunning {
		t.Errorf("unexpected states %+v", records[0])
	}
}

func TestScheduledFailureIsRecordedAndSwallowed(t *testing.T) {
	fake := herokutest.New()
	fake.SetApp("alpha", &herokutest.App{ActionErr: errors.New("api down")})
	notifier := &recordingNotifier{}
	c := newTestController(t, fake, []config.AppSchedule{alphaSchedule()}, WithNotifier(notifier))
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	before := c.Jobs()

	job := c.registry.jobs[JobKey{App: "alpha", Action: history.ActionTurnOn}]
	job.Run()

	records, _ := c.GetHistory(ctx, 0)
	if len(records) != 1 || records[0].Success || records[0].Trigger != history.TriggerScheduled {
		t.Fatalf("unexpected records %+v", records)
	}
	if len(notifier.records) != 1 {
		t.Errorf("expected one notification, got %d", len(notifier.records))
	}

	after := c.Jobs()
	if len(after) != len(before) {
		t.Fatalf("registry changed: %d -> %d jobs", len(before), len(after))
	}
	for i := range after {
		if after[i].Name != before[i].Name || !after[i].Running {
			t.Errorf("job %s changed after failure: %+v", before[i].Name, after[i])
		}
	}
	if after[1].Status != JobStatusFailed {
		t.Errorf("expected alpha-on status failed, got %s", after[1].Status)
	}
}

func TestCronFiringRunsAction(t *testing.T) {
	fake := herokutest.New()
	fake.SetApp("alpha", &herokutest.App{})
	c := newTestController(t, fake, []config.AppSchedule{{Name: "alpha", ScheduleOn: "@every 1s", Timezone: "UTC"}})
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		records, _ := c.GetHistory(ctx, 0)
		if len(records) > 0 {
			if !records[0].Success || records[0].Action != history.ActionTurnOn {
				t.Fatalf("unexpected record %+v", records[0])
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("scheduled job did not fire")
}

func TestAddAndRemoveAppWhileRunning(t *testing.T) {
	fake := herokutest.New()
	fake.SetApp("alpha", &herokutest.App{})
	fake.SetApp("beta", &herokutest.App{})
	c := newTestController(t, fake, []config.AppSchedule{alphaSchedule()})
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := c.AddApp(ctx, config.AppSchedule{Name: "beta", ScheduleOn: "0 7 * * *"}); err != nil {
		t.Fatalf("AddApp: %v", err)
	}
	if len(c.Jobs()) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(c.Jobs()))
	}

	var verr *ValidationError
	if _, err := c.AddApp(ctx, config.AppSchedule{Name: "ghost"}); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
	var cerr *config.ConfigurationError
	if _, err := c.AddApp(ctx, config.AppSchedule{Name: " "}); !errors.As(err, &cerr) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}

	if err := c.RemoveApp("alpha"); err != nil {
		t.Fatalf("RemoveApp: %v", err)
	}
	if err := c.RemoveApp("alpha"); !errors.Is(err, ErrAppNotFound) {
		t.Errorf("expected ErrAppNotFound on second remove, got %v", err)
	}
	if names := c.AppNames(); len(names) != 1 || names[0] != "beta" {
		t.Errorf("unexpected apps %v", names)
	}
	if jobs := c.Jobs(); len(jobs) != 1 || jobs[0].Name != "beta-on" {
		t.Errorf("unexpected jobs %+v", jobs)
	}
}

func TestReconcile(t *testing.T) {
	fake := herokutest.New()
	for _, name := range []string{"alpha", "beta", "gamma"} {
		fake.SetApp(name, &herokutest.App{})
	}
	c := newTestController(t, fake, []config.AppSchedule{alphaSchedule(), {Name: "beta"}})
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	changed := alphaSchedule()
	changed.ScheduleOff = ""
	err := c.Reconcile(ctx, []config.AppSchedule{changed, {Name: "gamma"}, {Name: "ghost"}})
	if err == nil {
		t.Fatal("expected an error for ghost")
	}

	names := c.AppNames()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "gamma" {
		t.Fatalf("unexpected apps %v", names)
	}
	want := map[string]bool{"alpha-on": true, "gamma-on": true, "gamma-off": true}
	jobs := c.Jobs()
	if len(jobs) != len(want) {
		t.Fatalf("unexpected jobs %+v", jobs)
	}
	for _, job := range jobs {
		if !want[job.Name] {
			t.Errorf("unexpected job %s", job.Name)
		}
	}
}

func TestGetStats(t *testing.T) {
	fake := herokutest.New()
	fake.SetApp("alpha", &herokutest.App{})
	c := newTestController(t, fake, []config.AppSchedule{alphaSchedule()})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.ExecuteAction(ctx, "alpha", history.ActionTurnOn); err != nil {
			t.Fatalf("ExecuteAction: %v", err)
		}
	}
	fake.SetApp("alpha", &herokutest.App{ActionErr: errors.New("nope")})
	c.ExecuteAction(ctx, "alpha", history.ActionTurnOff)

	stats, err := c.GetStats(ctx, 30)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalActions != 4 || stats.SuccessfulActions != 3 || stats.FailedActions != 1 || stats.SuccessRate != 75.0 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if got := stats.ActionsByApp["alpha"]; got != (history.AppStats{TurnOn: 3, TurnOff: 0, Failures: 1}) {
		t.Errorf("unexpected alpha stats %+v", got)
	}
}

func TestShutdownStopsJobs(t *testing.T) {
	fake := herokutest.New()
	fake.SetApp("alpha", &herokutest.App{})
	c := newTestController(t, fake, []config.AppSchedule{alphaSchedule()})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if c.IsRunning() || len(c.Jobs()) != 0 {
		t.Error("expected no jobs after shutdown")
	}
}

func TestPreview(t *testing.T) {
	jobs, skipped := Preview([]config.AppSchedule{alphaSchedule(), {Name: "beta", ScheduleOff: "bad", Timezone: "UTC"}})
	if len(jobs) != 2 || len(skipped) != 1 {
		t.Fatalf("unexpected preview jobs=%d skipped=%d", len(jobs), len(skipped))
	}
	for _, job := range jobs {
		if job.Running {
			t.Errorf("preview job %s should not be running", job.Name)
		}
	}
}
