// Package config loads per-service configuration from environment
// variables, with an optional co-located .env file as a lower-precedence
// source. Every netplay service (lobby, rendezvous, udprelay, tcprelay)
// has its own Config struct built the same way: defaults, then .env,
// then real environment variables, in that order of increasing priority.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file located next to the running executable
// (falling back to the current working directory). Existing environment
// variables always win; godotenv.Load never overwrites a key that is
// already set. Missing .env files are not an error.
func LoadDotEnv() {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), ".env")
		if _, statErr := os.Stat(candidate); statErr == nil {
			_ = godotenv.Load(candidate)
			return
		}
	}
	if wd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(wd, ".env")
		if _, statErr := os.Stat(candidate); statErr == nil {
			_ = godotenv.Load(candidate)
		}
	}
}

// GetString returns the environment variable's value, or def if unset/empty.
func GetString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// GetInt returns the environment variable parsed as an int, or def if
// unset or unparsable.
func GetInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// GetFloat returns the environment variable parsed as a float64, or def.
func GetFloat(name string, def float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// GetBool accepts 1/true/yes/on (case-insensitive) as true.
func GetBool(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
