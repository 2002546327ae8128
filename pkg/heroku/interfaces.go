package heroku

import "context"

// Platform is the full set of Heroku operations the scheduler relies on.
// *Client implements it; tests substitute fakes.
type Platform interface {
	GetApp(ctx context.Context, app string) (*App, error)
	GetDynos(ctx context.Context, app string) ([]Dyno, error)
	GetFormation(ctx context.Context, app string) ([]Formation, error)
	ScaleFormation(ctx context.Context, app, processType string, quantity int) (*Formation, error)
	TurnOnApp(ctx context.Context, target Target) error
	TurnOffApp(ctx context.Context, target Target) error
	GetAppStatus(ctx context.Context, app string) (*AppStatus, error)
	ValidateApp(ctx context.Context, app string) bool
}

var _ Platform = (*Client)(nil)
