package heroku

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dynosched/pkg/config"
	"dynosched/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL     = "https://api.heroku.com"
	DefaultProcessType = "web"
	acceptHeader       = "application/vnd.heroku+json; version=3"
)

// Client talks to the Heroku Platform API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client from configuration.
func NewClient(cfg *config.HerokuConfig) (*Client, error) {
	if cfg == nil || cfg.APIToken == "" {
		return nil, ErrMissingToken
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Heroku grants a token bucket of 4500 requests per hour.
	perHour := cfg.RateLimitPerHour
	if perHour <= 0 {
		perHour = 4500
	}
	limiter := rate.NewLimiter(rate.Limit(float64(perHour)/3600.0), 10)

	return &Client{
		baseURL:    baseURL,
		token:      cfg.APIToken,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}, nil
}

// GetApp returns app information
func (c *Client) GetApp(ctx context.Context, app string) (*App, error) {
	var out App
	if err := c.do(ctx, "get app", app, http.MethodGet, "/apps/"+url.PathEscape(app), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDynos lists the app's dynos
func (c *Client) GetDynos(ctx context.Context, app string) ([]Dyno, error) {
	var out []Dyno
	if err := c.do(ctx, "get dynos", app, http.MethodGet, "/apps/"+url.PathEscape(app)+"/dynos", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetFormation lists process types and their scale
func (c *Client) GetFormation(ctx context.Context, app string) ([]Formation, error) {
	var out []Formation
	if err := c.do(ctx, "get formation", app, http.MethodGet, "/apps/"+url.PathEscape(app)+"/formation", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ScaleFormation sets the quantity of one process type.
func (c *Client) ScaleFormation(ctx context.Context, app, processType string, quantity int) (*Formation, error) {
	if processType == "" {
		processType = DefaultProcessType
	}
	var out Formation
	path := fmt.Sprintf("/apps/%s/formation/%s", url.PathEscape(app), url.PathEscape(processType))
	if err := c.do(ctx, "scale", app, http.MethodPatch, path, scaleRequest{Quantity: quantity}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TurnOnApp scales the target process type up (quantity 1 unless configured).
func (c *Client) TurnOnApp(ctx context.Context, target Target) error {
	qty := target.Quantity
	if qty <= 0 {
		qty = 1
	}
	log := logger.FromContext(ctx)
	log.Info("Turning on app", zap.String("app", target.App), zap.String("process_type", target.ProcessType), zap.Int("quantity", qty))
	if _, err := c.ScaleFormation(ctx, target.App, target.ProcessType, qty); err != nil {
		log.Error("Failed to turn on app", zap.String("app", target.App), zap.Error(err))
		return err
	}
	log.Info("Successfully turned on app", zap.String("app", target.App))
	return nil
}

// TurnOffApp scales the target process type to zero.
func (c *Client) TurnOffApp(ctx context.Context, target Target) error {
	log := logger.FromContext(ctx)
	log.Info("Turning off app", zap.String("app", target.App), zap.String("process_type", target.ProcessType))
	if _, err := c.ScaleFormation(ctx, target.App, target.ProcessType, 0); err != nil {
		log.Error("Failed to turn off app", zap.String("app", target.App), zap.Error(err))
		return err
	}
	log.Info("Successfully turned off app", zap.String("app", target.App))
	return nil
}

// GetAppStatus reports the app as running when any dyno is up.
func (c *Client) GetAppStatus(ctx context.Context, app string) (*AppStatus, error) {
	dynos, err := c.GetDynos(ctx, app)
	if err != nil {
		return nil, err
	}
	return &AppStatus{Running: IsRunning(dynos), Dynos: dynos}, nil
}

// ValidateApp reports whether the app exists and the token can read it.
func (c *Client) ValidateApp(ctx context.Context, app string) bool {
	if app == "" {
		return false
	}
	if _, err := c.GetApp(ctx, app); err != nil {
		logger.Debug("App validation failed", zap.String("app", app), zap.Error(err))
		return false
	}
	return true
}

// IsRunning reports whether any dyno in the list is up.
func IsRunning(dynos []Dyno) bool {
	for _, d := range dynos {
		if d.State == DynoStateUp {
			return true
		}
	}
	return false
}

func (c *Client) do(ctx context.Context, op, app, method, path string, body, out interface{}) error {
	if app == "" {
		return &RemoteActionError{Op: op, Message: ErrMissingApp.Error(), Err: ErrMissingApp}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &RemoteActionError{Op: op, App: app, Message: err.Error(), Err: err}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteActionError{Op: op, App: app, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RemoteActionError{Op: op, App: app, StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}

	logger.Debug("Heroku API call",
		zap.String("op", op),
		zap.String("app", app),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(op, app, resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &RemoteActionError{Op: op, App: app, StatusCode: resp.StatusCode, Message: "invalid response body: " + err.Error(), Err: err}
	}
	return nil
}

func decodeError(op, app string, status int, data []byte) error {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
		body.Message = strings.TrimSpace(string(data))
		if body.Message == "" {
			body.Message = http.StatusText(status)
		}
	}
	return &RemoteActionError{Op: op, App: app, StatusCode: status, ID: body.ID, Message: body.Message}
}
