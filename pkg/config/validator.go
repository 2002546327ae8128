package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	herokuTokenPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	appNamePattern     = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// ValidateConfig 验证配置。返回的错误均为 *ConfigurationError。
func (c *Config) ValidateConfig() error {
	if c.Heroku == nil || strings.TrimSpace(c.Heroku.APIToken) == "" {
		return configErr("heroku.api_token", fmt.Errorf("%w: HEROKU_API_TOKEN is required", ErrMissingRequired))
	}
	if len(c.Apps) == 0 {
		return configErr("apps", fmt.Errorf("%w: at least one app must be configured (HEROKU_APP_NAME or HEROKU_APP_NAMES)", ErrMissingRequired))
	}

	seen := make(map[string]struct{}, len(c.Apps))
	for i, app := range c.Apps {
		if err := ValidateAppSchedule(app); err != nil {
			var ce *ConfigurationError
			if errors.As(err, &ce) {
				ce.Field = fmt.Sprintf("apps[%d].%s", i, ce.Field)
			}
			return err
		}
		if _, dup := seen[app.Name]; dup {
			return configErr(fmt.Sprintf("apps[%d].name", i), fmt.Errorf("%w: %s", ErrDuplicateApp, app.Name))
		}
		seen[app.Name] = struct{}{}
	}

	if c.History != nil {
		switch c.History.Driver {
		case "", "file", "sqlite":
		default:
			return configErr("history.driver", fmt.Errorf("%w: unknown driver %q", ErrInvalidValue, c.History.Driver))
		}
	}
	if c.Server != nil && c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return configErr("server.port", fmt.Errorf("%w: %d", ErrInvalidValue, c.Server.Port))
	}
	if c.Telegram != nil && c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return configErr("telegram", fmt.Errorf("%w: bot_token and chat_id are required when enabled", ErrMissingRequired))
	}
	return nil
}

// ValidateAppSchedule checks the shape of a single schedule. Cron and
// timezone problems are not checked here; they surface as warnings when the
// jobs are registered.
func ValidateAppSchedule(app AppSchedule) error {
	if strings.TrimSpace(app.Name) == "" {
		return configErr("name", fmt.Errorf("%w: app name is empty", ErrMissingRequired))
	}
	if app.Quantity < 0 {
		return configErr("quantity", fmt.Errorf("%w: %d", ErrInvalidValue, app.Quantity))
	}
	return nil
}

// Warnings lists non-fatal problems: token format, app naming conventions
// and schedules that will be skipped.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Heroku != nil && c.Heroku.APIToken != "" && !herokuTokenPattern.MatchString(c.Heroku.APIToken) {
		warnings = append(warnings, "HEROKU_API_TOKEN format looks unusual; expected a UUID-like value")
	}
	for _, app := range c.Apps {
		if !appNamePattern.MatchString(app.Name) {
			warnings = append(warnings, fmt.Sprintf("app %q does not follow Heroku naming conventions (lowercase, numbers, hyphens)", app.Name))
		}
		if app.ScheduleOn == "" && app.ScheduleOff == "" {
			warnings = append(warnings, fmt.Sprintf("app %q has no schedule", app.Name))
		}
		if app.ScheduleOn != "" {
			if _, err := ParseSchedule(app.ScheduleOn, app.Timezone); err != nil {
				warnings = append(warnings, fmt.Sprintf("app %q turn-on schedule skipped: %v", app.Name, err))
			}
		}
		if app.ScheduleOff != "" {
			if _, err := ParseSchedule(app.ScheduleOff, app.Timezone); err != nil {
				warnings = append(warnings, fmt.Sprintf("app %q turn-off schedule skipped: %v", app.Name, err))
			}
		}
	}
	return warnings
}
