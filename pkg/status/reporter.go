package status

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dynosched/pkg/heroku"
	"dynosched/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of apps fetched at once.
const DefaultConcurrency = 4

// AppStatus is the combined remote view of one app. A fetch failure leaves
// Running false, empty Dynos and Formation, and sets Error.
type AppStatus struct {
	Name       string             `json:"name"`
	Running    bool               `json:"running"`
	Dynos      []heroku.Dyno      `json:"dynos"`
	Formation  []heroku.Formation `json:"formation"`
	URL        string             `json:"url,omitempty"`
	LastUpdate time.Time          `json:"last_update"`
	Error      string             `json:"error,omitempty"`
}

// HealthSummary counts apps by state. Errors counts crashed dynos and apps
// that report running without dynos; Unavailable counts failed fetches.
type HealthSummary struct {
	Running     int `json:"running"`
	Stopped     int `json:"stopped"`
	Errors      int `json:"errors"`
	Unavailable int `json:"unavailable"`
}

// HealthResult is healthy iff Issues is empty.
type HealthResult struct {
	Healthy bool          `json:"healthy"`
	Issues  []string      `json:"issues"`
	Summary HealthSummary `json:"summary"`
}

// Reporter composes platform status queries into reports.
type Reporter struct {
	platform    heroku.Platform
	concurrency int
	now         func() time.Time
}

// NewReporter returns a reporter fetching at most concurrency apps at once.
func NewReporter(platform heroku.Platform, concurrency int) *Reporter {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Reporter{platform: platform, concurrency: concurrency, now: time.Now}
}

// Collect fetches every app, keeping the input order. It never fails as a
// whole; per-app failures are reported in AppStatus.Error.
func (r *Reporter) Collect(ctx context.Context, apps []string) []AppStatus {
	out := make([]AppStatus, len(apps))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, name := range apps {
		i, name := i, name
		g.Go(func() error {
			out[i] = r.AppStatus(ctx, name)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// AppStatus fetches the status, formation and app details of one app.
func (r *Reporter) AppStatus(ctx context.Context, name string) AppStatus {
	var (
		st        *heroku.AppStatus
		formation []heroku.Formation
		app       *heroku.App
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st, err = r.platform.GetAppStatus(gctx, name)
		return err
	})
	g.Go(func() (err error) {
		formation, err = r.platform.GetFormation(gctx, name)
		return err
	})
	g.Go(func() (err error) {
		app, err = r.platform.GetApp(gctx, name)
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Failed to get status", logger.AppField(name), zap.Error(err))
		return AppStatus{
			Name:       name,
			Dynos:      []heroku.Dyno{},
			Formation:  []heroku.Formation{},
			LastUpdate: r.now(),
			Error:      heroku.ErrorMessage(err),
		}
	}

	dynos := st.Dynos
	if dynos == nil {
		dynos = []heroku.Dyno{}
	}
	if formation == nil {
		formation = []heroku.Formation{}
	}
	return AppStatus{
		Name:       name,
		Running:    st.Running,
		Dynos:      dynos,
		Formation:  formation,
		URL:        app.WebURL,
		LastUpdate: r.now(),
	}
}

// Health checks every app.
func (r *Reporter) Health(ctx context.Context, apps []string) HealthResult {
	return Evaluate(r.Collect(ctx, apps))
}

// HealthNotifier receives the issues of an unhealthy check.
type HealthNotifier interface {
	NotifyHealth(ctx context.Context, issues []string) error
}

// CheckHealth runs Health and sends the issues to n when the result is
// unhealthy. The result is valid even when the notification fails. A nil n
// only checks.
func (r *Reporter) CheckHealth(ctx context.Context, apps []string, n HealthNotifier) (HealthResult, error) {
	res := r.Health(ctx, apps)
	if res.Healthy || n == nil {
		return res, nil
	}
	if err := n.NotifyHealth(ctx, res.Issues); err != nil {
		logger.Warn("Failed to send health alert", zap.Int("issues", len(res.Issues)), zap.Error(err))
		return res, fmt.Errorf("send health alert: %w", err)
	}
	logger.Info("Health alert sent", zap.Int("issues", len(res.Issues)))
	return res, nil
}

// Evaluate derives a health result from collected statuses.
func Evaluate(statuses []AppStatus) HealthResult {
	res := HealthResult{Issues: []string{}}
	for _, st := range statuses {
		if st.Running {
			res.Summary.Running++
		} else {
			res.Summary.Stopped++
		}
		if st.Error != "" {
			res.Summary.Unavailable++
		}

		if st.Running && len(st.Dynos) == 0 {
			res.Issues = append(res.Issues, fmt.Sprintf("%s: Reports running but has no dynos", st.Name))
			res.Summary.Errors++
		}
		for _, d := range st.Dynos {
			switch {
			case d.State == heroku.DynoStateCrashed:
				res.Issues = append(res.Issues, fmt.Sprintf("%s: Dyno %s is crashed", st.Name, d.Name))
				res.Summary.Errors++
			case d.State == heroku.DynoStateIdle && st.Running:
				res.Issues = append(res.Issues, fmt.Sprintf("%s: Dyno %s is idle", st.Name, d.Name))
			}
		}
	}
	res.Healthy = len(res.Issues) == 0
	return res
}

// Report renders a text status report of every app.
func (r *Reporter) Report(ctx context.Context, apps []string) string {
	return FormatReport(r.Collect(ctx, apps), r.now())
}

// FormatReport renders statuses collected at generated.
func FormatReport(statuses []AppStatus, generated time.Time) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	fmt.Fprintf(&b, "\n%s\nHEROKU APPS STATUS REPORT\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Generated: %s\n", generated.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total Apps: %d\n\n", len(statuses))

	running := 0
	for _, st := range statuses {
		state := "STOPPED"
		if st.Running {
			state = "RUNNING"
			running++
		}
		fmt.Fprintf(&b, "%s\n", strings.ToUpper(st.Name))
		fmt.Fprintf(&b, "   Status: %s\n", state)
		fmt.Fprintf(&b, "   Dynos: %d\n", len(st.Dynos))
		for _, d := range st.Dynos {
			fmt.Fprintf(&b, "     - %s: %s (%s)\n", d.Type, d.State, d.Size)
		}
		if st.URL != "" {
			fmt.Fprintf(&b, "   URL: %s\n", st.URL)
		}
		if st.Error != "" {
			fmt.Fprintf(&b, "   Error: %s\n", st.Error)
		}
		fmt.Fprintf(&b, "   Last Check: %s\n\n", st.LastUpdate.Format("15:04:05"))
	}

	fmt.Fprintf(&b, "SUMMARY\n%s\n", strings.Repeat("-", 30))
	fmt.Fprintf(&b, "Running: %d\n", running)
	fmt.Fprintf(&b, "Stopped: %d\n", len(statuses)-running)
	fmt.Fprintf(&b, "%s\n", rule)
	return b.String()
}
