// Package herokutest provides an in-memory heroku.Platform for tests.
package herokutest

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"dynosched/pkg/heroku"
)

// App is the fake state of one application.
type App struct {
	Running   bool
	Dynos     []heroku.Dyno
	Formation []heroku.Formation
	WebURL    string

	// StatusErr fails GetAppStatus, GetDynos and GetFormation.
	StatusErr error
	// ActionErr fails TurnOnApp and TurnOffApp.
	ActionErr error
}

// Platform is a concurrency-safe fake of heroku.Platform. Unknown apps
// behave like a 404 from the API.
type Platform struct {
	mu    sync.Mutex
	apps  map[string]*App
	calls []string
}

var _ heroku.Platform = (*Platform)(nil)

// New returns a fake with no apps.
func New() *Platform {
	return &Platform{apps: make(map[string]*App)}
}

// SetApp installs or replaces app.
func (p *Platform) SetApp(name string, app *App) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.apps[name] = app
}

// Calls returns the recorded operations as "op:app".
func (p *Platform) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *Platform) lookup(op, name string) (*App, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, op+":"+name)
	app, ok := p.apps[name]
	if !ok {
		return nil, &heroku.RemoteActionError{Op: op, App: name, StatusCode: http.StatusNotFound, ID: "not_found", Message: "Couldn't find that app."}
	}
	return app, nil
}

func (p *Platform) GetApp(ctx context.Context, name string) (*heroku.App, error) {
	app, err := p.lookup("get_app", name)
	if err != nil {
		return nil, err
	}
	return &heroku.App{Name: name, WebURL: app.WebURL}, nil
}

func (p *Platform) GetDynos(ctx context.Context, name string) ([]heroku.Dyno, error) {
	app, err := p.lookup("get_dynos", name)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if app.StatusErr != nil {
		return nil, app.StatusErr
	}
	return append([]heroku.Dyno(nil), app.Dynos...), nil
}

func (p *Platform) GetFormation(ctx context.Context, name string) ([]heroku.Formation, error) {
	app, err := p.lookup("get_formation", name)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if app.StatusErr != nil {
		return nil, app.StatusErr
	}
	return append([]heroku.Formation(nil), app.Formation...), nil
}

func (p *Platform) ScaleFormation(ctx context.Context, name, processType string, quantity int) (*heroku.Formation, error) {
	app, err := p.lookup("scale", name)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if app.ActionErr != nil {
		return nil, app.ActionErr
	}
	app.Running = quantity > 0
	app.Dynos = nil
	for i := 1; i <= quantity; i++ {
		app.Dynos = append(app.Dynos, heroku.Dyno{
			Name:  fmt.Sprintf("%s.%d", processType, i),
			Type:  processType,
			Size:  "basic",
			State: heroku.DynoStateUp,
		})
	}
	f := heroku.Formation{Type: processType, Quantity: quantity, Size: "basic"}
	app.Formation = []heroku.Formation{f}
	return &f, nil
}

func (p *Platform) TurnOnApp(ctx context.Context, target heroku.Target) error {
	qty := target.Quantity
	if qty <= 0 {
		qty = 1
	}
	_, err := p.ScaleFormation(ctx, target.App, processType(target), qty)
	return err
}

func (p *Platform) TurnOffApp(ctx context.Context, target heroku.Target) error {
	_, err := p.ScaleFormation(ctx, target.App, processType(target), 0)
	return err
}

func (p *Platform) GetAppStatus(ctx context.Context, name string) (*heroku.AppStatus, error) {
	app, err := p.lookup("status", name)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if app.StatusErr != nil {
		return nil, app.StatusErr
	}
	return &heroku.AppStatus{Running: app.Running, Dynos: append([]heroku.Dyno{}, app.Dynos...)}, nil
}

func (p *Platform) ValidateApp(ctx context.Context, name string) bool {
	_, err := p.lookup("validate", name)
	return err == nil
}

func processType(t heroku.Target) string {
	if t.ProcessType == "" {
		return heroku.DefaultProcessType
	}
	return t.ProcessType
}
