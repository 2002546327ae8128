package config

import (
	"os"
	"strconv"
	"strings"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

// parseStringList splits a comma separated list, dropping blanks.
func parseStringList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// appEnvPrefix maps an app name to its env var prefix: "my-app" -> "MY_APP".
func appEnvPrefix(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// appEnv reads a per-app setting, accepting both MY_APP_X and the raw
// upper-cased MY-APP_X form.
func appEnv(name, suffix string) string {
	if v := os.Getenv(appEnvPrefix(name) + "_" + suffix); v != "" {
		return v
	}
	return os.Getenv(strings.ToUpper(name) + "_" + suffix)
}
