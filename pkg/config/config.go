package config

import (
	"strings"
)

// Default schedule values used for apps that do not set their own.
const (
	DefaultScheduleOn  = "0 9 * * 1-5"  // 9 AM weekdays
	DefaultScheduleOff = "0 18 * * 1-5" // 6 PM weekdays
	DefaultTimezone    = "America/New_York"
	DefaultProcessType = "web"
	DefaultQuantity    = 1
	DefaultHistoryPath = "logs/schedule-history.json"
	DefaultMaxEntries  = 1000

	DefaultShutdownTimeout   = 30 // seconds
	DefaultStatusConcurrency = 4
)

// Config 主配置结构体
type Config struct {
	Heroku   *HerokuConfig     `json:"heroku" yaml:"heroku"`
	Defaults *ScheduleDefaults `json:"defaults" yaml:"defaults"`
	Apps     []AppSchedule     `json:"apps" yaml:"apps"`
	History  *HistoryConfig    `json:"history" yaml:"history"`
	Server   *ServerConfig     `json:"server" yaml:"server"`
	Telegram *TelegramConfig   `json:"telegram" yaml:"telegram"`
	Runtime  *RuntimeConfig    `json:"runtime" yaml:"runtime"`
	App      *AppConfig        `json:"app" yaml:"app"`
}

// HerokuConfig holds Platform API access settings
type HerokuConfig struct {
	APIToken         string `json:"api_token" yaml:"api_token"`
	BaseURL          string `json:"base_url" yaml:"base_url"`
	Timeout          int    `json:"timeout" yaml:"timeout"` // seconds
	RateLimitPerHour int    `json:"rate_limit_per_hour" yaml:"rate_limit_per_hour"`
}

// ScheduleDefaults are applied to apps that leave a field empty
type ScheduleDefaults struct {
	ScheduleOn  string `json:"schedule_on" yaml:"schedule_on"`
	ScheduleOff string `json:"schedule_off" yaml:"schedule_off"`
	Timezone    string `json:"timezone" yaml:"timezone"`
	ProcessType string `json:"process_type" yaml:"process_type"`
	Quantity    int    `json:"quantity" yaml:"quantity"`
}

// AppSchedule describes when one app is turned on and off. An empty
// expression means that action is not scheduled.
type AppSchedule struct {
	Name        string `json:"name" yaml:"name"`
	ScheduleOn  string `json:"schedule_on,omitempty" yaml:"schedule_on,omitempty"`
	ScheduleOff string `json:"schedule_off,omitempty" yaml:"schedule_off,omitempty"`
	Timezone    string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	ProcessType string `json:"process_type,omitempty" yaml:"process_type,omitempty"`
	Quantity    int    `json:"quantity,omitempty" yaml:"quantity,omitempty"`
}

// HistoryConfig selects and sizes the action log store
type HistoryConfig struct {
	Driver     string `json:"driver" yaml:"driver"` // file, sqlite
	Path       string `json:"path" yaml:"path"`
	MaxEntries int    `json:"max_entries" yaml:"max_entries"`
}

// ServerConfig represents the optional HTTP control API
type ServerConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Address string `json:"address" yaml:"address"`
}

// TelegramConfig enables failure alerts for scheduled actions
type TelegramConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	BotToken string `json:"bot_token" yaml:"bot_token"`
	ChatID   string `json:"chat_id" yaml:"chat_id"`
	Timeout  int    `json:"timeout" yaml:"timeout"` // seconds
}

// RuntimeConfig represents runtime configuration settings
type RuntimeConfig struct {
	GracefulShutdownTimeout int  `json:"graceful_shutdown_timeout" yaml:"graceful_shutdown_timeout"` // seconds
	StatusConcurrency       int  `json:"status_concurrency" yaml:"status_concurrency"`
	WatchConfig             bool `json:"watch_config" yaml:"watch_config"`
}

// AppConfig represents logging settings
type AppConfig struct {
	LogLevel    string `json:"log_level" yaml:"log_level"`
	LogFile     string `json:"log_file" yaml:"log_file"`
	Environment string `json:"environment" yaml:"environment"`
}

// IsDevelopment reports whether development logging should be used.
func (a *AppConfig) IsDevelopment() bool {
	return a != nil && strings.EqualFold(a.Environment, "development")
}

// getDefaultConfig 获取默认配置，所有配置项都使用各自的默认值
func getDefaultConfig() *Config {
	return &Config{
		Heroku:   NewHerokuConfig(),
		Defaults: NewScheduleDefaults(),
		History:  NewHistoryConfig(),
		Server:   NewServerConfig(),
		Telegram: NewTelegramConfig(),
		Runtime:  NewRuntimeConfig(),
		App:      NewAppConfig(),
	}
}

// NewHerokuConfig creates a Heroku configuration populated from environment variables
func NewHerokuConfig() *HerokuConfig {
	return &HerokuConfig{
		APIToken:         getEnv("HEROKU_API_TOKEN", ""),
		BaseURL:          getEnv("HEROKU_API_URL", ""),
		Timeout:          getEnvInt("HEROKU_API_TIMEOUT", 30),
		RateLimitPerHour: getEnvInt("HEROKU_RATE_LIMIT", 4500),
	}
}

// NewScheduleDefaults creates schedule defaults populated from environment variables
func NewScheduleDefaults() *ScheduleDefaults {
	return &ScheduleDefaults{
		ScheduleOn:  getEnv("SCHEDULE_ON", DefaultScheduleOn),
		ScheduleOff: getEnv("SCHEDULE_OFF", DefaultScheduleOff),
		Timezone:    getEnv("TIMEZONE", DefaultTimezone),
		ProcessType: getEnv("PROCESS_TYPE", DefaultProcessType),
		Quantity:    getEnvInt("DYNO_QUANTITY", DefaultQuantity),
	}
}

// NewHistoryConfig creates a history configuration populated from environment variables
func NewHistoryConfig() *HistoryConfig {
	return &HistoryConfig{
		Driver:     getEnv("HISTORY_DRIVER", "file"),
		Path:       getEnv("HISTORY_PATH", DefaultHistoryPath),
		MaxEntries: getEnvInt("HISTORY_MAX_ENTRIES", DefaultMaxEntries),
	}
}

// NewServerConfig creates a server configuration populated from environment variables
func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Enabled: getEnvBool("SERVER_ENABLED", false),
		Port:    getEnvInt("SERVER_PORT", 8080),
		Address: getEnv("SERVER_ADDRESS", "0.0.0.0"),
	}
}

// NewTelegramConfig creates a Telegram configuration populated from environment variables
func NewTelegramConfig() *TelegramConfig {
	return &TelegramConfig{
		Enabled:  getEnvBool("TELEGRAM_ENABLED", false),
		BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		Timeout:  getEnvInt("TELEGRAM_TIMEOUT", 10),
	}
}

// NewRuntimeConfig creates a runtime configuration populated from environment variables
func NewRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		GracefulShutdownTimeout: getEnvInt("RUNTIME_GRACEFUL_SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
		StatusConcurrency:       getEnvInt("RUNTIME_STATUS_CONCURRENCY", DefaultStatusConcurrency),
		WatchConfig:             getEnvBool("RUNTIME_WATCH_CONFIG", true),
	}
}

// NewAppConfig creates an application configuration populated from environment variables
func NewAppConfig() *AppConfig {
	return &AppConfig{
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),
		Environment: getEnv("APP_ENV", "production"),
	}
}

// AppNames returns the configured app names in order.
func (c *Config) AppNames() []string {
	names := make([]string, 0, len(c.Apps))
	for _, app := range c.Apps {
		names = append(names, app.Name)
	}
	return names
}

// FindApp looks up an app by name.
func (c *Config) FindApp(name string) (AppSchedule, bool) {
	for _, app := range c.Apps {
		if app.Name == name {
			return app, true
		}
	}
	return AppSchedule{}, false
}

// Summary returns a loggable view of the configuration without secrets.
func (c *Config) Summary() map[string]interface{} {
	apps := make([]map[string]interface{}, 0, len(c.Apps))
	for _, app := range c.Apps {
		apps = append(apps, map[string]interface{}{
			"name":         app.Name,
			"schedule_on":  app.ScheduleOn,
			"schedule_off": app.ScheduleOff,
			"timezone":     app.Timezone,
		})
	}
	return map[string]interface{}{
		"apps_count":       len(c.Apps),
		"apps":             apps,
		"default_timezone": c.Defaults.Timezone,
		"log_level":        c.App.LogLevel,
		"history_driver":   c.History.Driver,
	}
}

// ApplyDefaults fills empty per-app fields. An app with neither expression
// gets both default expressions; an app with one expression keeps the other
// action unscheduled.
func (d *ScheduleDefaults) ApplyDefaults(app AppSchedule) AppSchedule {
	if d == nil {
		d = &ScheduleDefaults{ScheduleOn: DefaultScheduleOn, ScheduleOff: DefaultScheduleOff, Timezone: DefaultTimezone}
	}
	app.Name = strings.TrimSpace(app.Name)
	if app.ScheduleOn == "" && app.ScheduleOff == "" {
		app.ScheduleOn = d.ScheduleOn
		app.ScheduleOff = d.ScheduleOff
	}
	if app.Timezone == "" {
		app.Timezone = d.Timezone
	}
	if app.Timezone == "" {
		app.Timezone = DefaultTimezone
	}
	if app.ProcessType == "" {
		app.ProcessType = d.ProcessType
	}
	if app.ProcessType == "" {
		app.ProcessType = DefaultProcessType
	}
	if app.Quantity <= 0 {
		app.Quantity = d.Quantity
	}
	if app.Quantity <= 0 {
		app.Quantity = DefaultQuantity
	}
	return app
}

// Equal reports whether two schedules would produce the same jobs.
func (a AppSchedule) Equal(b AppSchedule) bool {
	return a == b
}
