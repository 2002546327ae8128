package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig 从指定路径加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}

	// 如果配置文件不存在，返回默认配置
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := getDefaultConfig()
		mergeEnvVars(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigNotFound, err)
	}

	cfg, err := Parse(data, filepath.Ext(configPath))
	if err != nil {
		return nil, err
	}
	mergeEnvVars(cfg)
	return cfg, nil
}

// Parse decodes a config document by file extension (".yaml", ".yml", ".json").
func Parse(data []byte, ext string) (*Config, error) {
	cfg := &Config{}
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: JSON parsing failed: %v", ErrInvalidFormat, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: YAML parsing failed: %v", ErrInvalidFormat, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config file format: %s", ErrInvalidFormat, ext)
	}
	return cfg, nil
}

// SaveConfig 保存配置到指定路径
func SaveConfig(cfg *Config, configPath string) error {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch filepath.Ext(configPath) {
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		return fmt.Errorf("%w: unsupported config file format: %s", ErrInvalidFormat, filepath.Ext(configPath))
	}
	if err != nil {
		return fmt.Errorf("config serialization failed: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfigPath 获取默认配置文件路径
// 优先级：当前目录 > 用户配置目录 > 系统配置目录
func DefaultConfigPath() string {
	paths := []string{"./config.yaml", "./config.yml", "./config.json"}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".dynosched", "config.yaml"),
			filepath.Join(homeDir, ".dynosched", "config.json"),
		)
	}
	paths = append(paths, "/etc/dynosched/config.yaml", "/etc/dynosched/config.json")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return "./config.yaml"
}

// mergeEnvVars 将环境变量合并到配置中
func mergeEnvVars(cfg *Config) {
	mergeHerokuEnvVars(cfg)
	mergeDefaultsEnvVars(cfg)
	mergeAppsEnvVars(cfg)
	mergeHistoryEnvVars(cfg)
	mergeServerEnvVars(cfg)
	mergeTelegramEnvVars(cfg)
	mergeRuntimeEnvVars(cfg)
	mergeAppEnvVars(cfg)
	applyAppDefaults(cfg)
}

func mergeHerokuEnvVars(cfg *Config) {
	if cfg.Heroku == nil {
		cfg.Heroku = NewHerokuConfig()
		return
	}
	if token := os.Getenv("HEROKU_API_TOKEN"); token != "" {
		cfg.Heroku.APIToken = token
	}
	if u := os.Getenv("HEROKU_API_URL"); u != "" {
		cfg.Heroku.BaseURL = u
	}
	if t := getEnvInt("HEROKU_API_TIMEOUT", 0); t > 0 {
		cfg.Heroku.Timeout = t
	}
	if r := getEnvInt("HEROKU_RATE_LIMIT", 0); r > 0 {
		cfg.Heroku.RateLimitPerHour = r
	}
}

func mergeDefaultsEnvVars(cfg *Config) {
	if cfg.Defaults == nil {
		cfg.Defaults = NewScheduleDefaults()
		return
	}
	d := cfg.Defaults
	envMappings := map[string]*string{
		"SCHEDULE_ON":  &d.ScheduleOn,
		"SCHEDULE_OFF": &d.ScheduleOff,
		"TIMEZONE":     &d.Timezone,
		"PROCESS_TYPE": &d.ProcessType,
	}
	for envKey, ptr := range envMappings {
		if value := os.Getenv(envKey); value != "" {
			*ptr = value
		}
	}
	if d.ScheduleOn == "" && d.ScheduleOff == "" {
		d.ScheduleOn, d.ScheduleOff = DefaultScheduleOn, DefaultScheduleOff
	}
	if d.Timezone == "" {
		d.Timezone = DefaultTimezone
	}
	if q := getEnvInt("DYNO_QUANTITY", 0); q > 0 {
		d.Quantity = q
	}
}

// mergeAppsEnvVars adds apps named by HEROKU_APP_NAME / HEROKU_APP_NAMES and
// applies <APP>_SCHEDULE_ON, <APP>_SCHEDULE_OFF and <APP>_TIMEZONE overrides.
func mergeAppsEnvVars(cfg *Config) {
	var names []string
	if single := strings.TrimSpace(os.Getenv("HEROKU_APP_NAME")); single != "" {
		names = append(names, single)
	}
	names = append(names, parseStringList(os.Getenv("HEROKU_APP_NAMES"))...)

	for _, name := range names {
		if _, ok := cfg.FindApp(name); !ok {
			cfg.Apps = append(cfg.Apps, AppSchedule{Name: name})
		}
	}

	for i := range cfg.Apps {
		app := &cfg.Apps[i]
		if v := appEnv(app.Name, "SCHEDULE_ON"); v != "" {
			app.ScheduleOn = v
		}
		if v := appEnv(app.Name, "SCHEDULE_OFF"); v != "" {
			app.ScheduleOff = v
		}
		if v := appEnv(app.Name, "TIMEZONE"); v != "" {
			app.Timezone = v
		}
		if v := appEnv(app.Name, "PROCESS_TYPE"); v != "" {
			app.ProcessType = v
		}
	}
}

func mergeHistoryEnvVars(cfg *Config) {
	if cfg.History == nil {
		cfg.History = NewHistoryConfig()
		return
	}
	if v := os.Getenv("HISTORY_DRIVER"); v != "" {
		cfg.History.Driver = v
	}
	if v := os.Getenv("HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if n := getEnvInt("HISTORY_MAX_ENTRIES", 0); n > 0 {
		cfg.History.MaxEntries = n
	}
	if cfg.History.Driver == "" {
		cfg.History.Driver = "file"
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.MaxEntries <= 0 {
		cfg.History.MaxEntries = DefaultMaxEntries
	}
}

// mergeServerEnvVars 合并Server环境变量
func mergeServerEnvVars(cfg *Config) {
	if cfg.Server == nil {
		cfg.Server = NewServerConfig()
		return
	}
	if enabled := os.Getenv("SERVER_ENABLED"); enabled != "" {
		cfg.Server.Enabled = enabled == "true" || enabled == "1"
	}
	if port := getEnvInt("SERVER_PORT", 0); port != 0 {
		cfg.Server.Port = port
	}
	if address := os.Getenv("SERVER_ADDRESS"); address != "" {
		cfg.Server.Address = address
	}
}

func mergeTelegramEnvVars(cfg *Config) {
	if cfg.Telegram == nil {
		cfg.Telegram = NewTelegramConfig()
		return
	}
	if enabled := os.Getenv("TELEGRAM_ENABLED"); enabled != "" {
		cfg.Telegram.Enabled = enabled == "true" || enabled == "1"
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
}

// mergeRuntimeEnvVars 合并Runtime环境变量
func mergeRuntimeEnvVars(cfg *Config) {
	if cfg.Runtime == nil {
		cfg.Runtime = NewRuntimeConfig()
		return
	}
	if t := getEnvInt("RUNTIME_GRACEFUL_SHUTDOWN_TIMEOUT", 0); t != 0 {
		cfg.Runtime.GracefulShutdownTimeout = t
	}
	if n := getEnvInt("RUNTIME_STATUS_CONCURRENCY", 0); n != 0 {
		cfg.Runtime.StatusConcurrency = n
	}
	if w := os.Getenv("RUNTIME_WATCH_CONFIG"); w != "" {
		cfg.Runtime.WatchConfig = w == "true" || w == "1"
	}
	if cfg.Runtime.GracefulShutdownTimeout <= 0 {
		cfg.Runtime.GracefulShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Runtime.StatusConcurrency <= 0 {
		cfg.Runtime.StatusConcurrency = DefaultStatusConcurrency
	}
}

// mergeAppEnvVars 合并App环境变量
func mergeAppEnvVars(cfg *Config) {
	if cfg.App == nil {
		cfg.App = NewAppConfig()
		return
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.App.LogLevel = logLevel
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		cfg.App.LogFile = logFile
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.App.Environment = env
	}
}

func applyAppDefaults(cfg *Config) {
	for i := range cfg.Apps {
		cfg.Apps[i] = cfg.Defaults.ApplyDefaults(cfg.Apps[i])
	}
}
