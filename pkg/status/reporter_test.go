package status

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dynosched/pkg/heroku"
	"dynosched/pkg/heroku/herokutest"
)

func TestHealthRunningWithoutDynos(t *testing.T) {
	fake := herokutest.New()
	fake.SetApp("alpha", &herokutest.App{Running: true})

	res := NewReporter(fake, 2).Health(context.Background(), []string{"alpha"})
	if res.Healthy {
		t.Fatal("expected unhealthy result")
	}
	if len(res.Issues) != 1 || !strings.HasPrefix(res.Issues[0], "alpha:") {
		t.Errorf("expected exactly one alpha issue, got %v", res.Issues)
	}
	if res.Summary.Running != 1 || res.Summary.Errors != 1 {
		t.Errorf("unexpected summary %+v", res.Summary)
	}
}

func TestEvaluateDynoIssues(t *testing.T) {
	res := Evaluate([]AppStatus{
		{Name: "alpha", Running: true, Dynos: []heroku.Dyno{
			{Name: "web.1", State: heroku.DynoStateUp},
			{Name: "web.2", State: heroku.DynoStateCrashed},
			{Name: "worker.1", State: heroku.DynoStateIdle},
		}},
		{Name: "beta", Running: false, Dynos: []heroku.Dyno{{Name: "web.1", State: heroku.DynoStateIdle}}},
		{Name: "gamma", Running: true, Dynos: []heroku.Dyno{{Name: "web.1", State: heroku.DynoStateUp}}},
	})
	want := []string{"alpha: Dyno web.2 is crashed", "alpha: Dyno worker.1 is idle"}
	if len(res.Issues) != len(want) {
		t.Fatalf("expected %v, got %v", want, res.Issues)
	}
	for i := range want {
		if res.Issues[i] != want[i] {
			t.Errorf("issue %d: expected %q, got %q", i, want[i], res.Issues[i])
		}
	}
	if res.Summary.Running != 2 || res.Summary.Stopped != 1 || res.Summary.Errors != 1 {
		t.Errorf("unexpected summary %+v", res.Summary)
	}
}

func TestEvaluateHealthy(t *testing.T) {
	res := Evaluate([]AppStatus{{Name: "alpha", Running: false, Dynos: []heroku.Dyno{}}})
	if !res.Healthy || len(res.Issues) != 0 {
		t.Errorf("expected healthy, got %+v", res)
	}
}

func TestCollectDegradesPerApp(t *testing.T) {
	fake := herokutest.New()
	fake.SetApp("alpha", &herokutest.App{Running: true, WebURL: "https://alpha.example/", Dynos: []heroku.Dyno{{Name: "web.1", Type: "web", State: heroku.DynoStateUp}}})
	fake.SetApp("beta", &herokutest.App{StatusErr: errors.New("timeout")})

	statuses := NewReporter(fake, 1).Collect(context.Background(), []string{"alpha", "beta", "ghost"})
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if statuses[0].Name != "alpha" || !statuses[0].Running || statuses[0].URL != "https://alpha.example/" {
		t.Errorf("unexpected alpha status %+v", statuses[0])
	}
	for _, st := range statuses[1:] {
		if st.Running || len(st.Dynos) != 0 || st.Formation == nil || st.Error == "" {
			t.Errorf("expected degraded status for %s, got %+v", st.Name, st)
		}
	}
}

func TestReport(t *testing.T) {
	fake := herokutest.New()
	fake.SetApp("alpha", &herokutest.App{Running: true, WebURL: "https://alpha.example/", Dynos: []heroku.Dyno{{Name: "web.1", Type: "web", Size: "basic", State: heroku.DynoStateUp}}})
	fake.SetApp("beta", &herokutest.App{})

	report := NewReporter(fake, 0).Report(context.Background(), []string{"alpha", "beta"})
	for _, want := range []string{"ALPHA", "Status: RUNNING", "- web: up (basic)", "URL: https://alpha.example/", "BETA", "Running: 1", "Stopped: 1"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

type recordingHealthNotifier struct {
	issues []string
	calls  int
	err    error
}

func (n *recordingHealthNotifier) NotifyHealth(ctx context.Context, issues []string) error {
	n.calls++
	n.issues = issues
	return n.err
}

func TestCheckHealthAlertsOnlyWhenUnhealthy(t *testing.T) {
	fake := herokutest.New()
	fake.SetApp("alpha", &herokutest.App{Running: false})
	r := NewReporter(fake, 2)
	n := &recordingHealthNotifier{}

	res, err := r.CheckHealth(context.Background(), []string{"alpha"}, n)
	if err != nil || !res.Healthy {
		t.Fatalf("expected healthy result, got %+v, %v", res, err)
	}
	if n.calls != 0 {
		t.Errorf("expected no alert for a healthy check, got %d", n.calls)
	}

	fake.SetApp("alpha", &herokutest.App{Running: true})
	res, err = r.CheckHealth(context.Background(), []string{"alpha"}, n)
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if n.calls != 1 || len(n.issues) != len(res.Issues) || len(n.issues) == 0 {
		t.Errorf("expected issues %v to be sent, got %d calls with %v", res.Issues, n.calls, n.issues)
	}
}

func TestCheckHealthNotifierFailure(t *testing.T) {
	fake := herokutest.New()
	fake.SetApp("alpha", &herokutest.App{Running: true})
	sendErr := errors.New("telegram down")

	res, err := NewReporter(fake, 1).CheckHealth(context.Background(), []string{"alpha"}, &recordingHealthNotifier{err: sendErr})
	if !errors.Is(err, sendErr) {
		t.Fatalf("expected notifier error, got %v", err)
	}
	if res.Healthy || len(res.Issues) != 1 {
		t.Errorf("expected the unhealthy result to survive, got %+v", res)
	}

	if _, err := NewReporter(fake, 1).CheckHealth(context.Background(), []string{"alpha"}, nil); err != nil {
		t.Errorf("expected nil notifier to be skipped, got %v", err)
	}
}
