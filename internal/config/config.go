// Package config provides environment-driven configuration for the profile agent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults for stage timeouts, in seconds. The fetch stage talks to the
// code-hosting provider and is given the largest budget.
const (
	DefaultFetchTimeoutSec     = 120
	DefaultFilterTimeoutSec    = 60
	DefaultTranslateTimeoutSec = 60
)

// Config holds all runtime settings for the server and pipeline.
// Values come from environment variables; godotenv loads a .env file
// before this is built.
type Config struct {
	Port        int    `validate:"min=1,max=65535"`
	DatabaseURL string `validate:"required"`

	// PipelineDir is the root under which each subject gets its own
	// working directory for stage artifacts.
	PipelineDir string `validate:"required"`

	// Stage executables. Absolute paths or names resolved via PATH.
	FetchExe     string `validate:"required"`
	FilterExe    string `validate:"required"`
	TranslateExe string `validate:"required"`

	// ProfileURLBase is joined with the subject username to form the
	// public profile URL handed to the fetch stage.
	ProfileURLBase string `validate:"required,url"`

	// MaxConcurrentRuns bounds how many pipeline runs may execute at once
	// across all subjects.
	MaxConcurrentRuns int `validate:"min=1"`

	FetchTimeout     time.Duration
	FilterTimeout    time.Duration
	TranslateTimeout time.Duration
}

// Load builds a Config from the environment and validates it.
func Load() (*Config, error) {
	port, err := getenvInt("PORT", 8000)
	if err != nil {
		return nil, err
	}
	maxRuns, err := getenvInt("MAX_CONCURRENT_RUNS", 2)
	if err != nil {
		return nil, err
	}
	fetchSec, err := getenvInt("FETCH_TIMEOUT_SECONDS", DefaultFetchTimeoutSec)
	if err != nil {
		return nil, err
	}
	filterSec, err := getenvInt("FILTER_TIMEOUT_SECONDS", DefaultFilterTimeoutSec)
	if err != nil {
		return nil, err
	}
	translateSec, err := getenvInt("TRANSLATE_TIMEOUT_SECONDS", DefaultTranslateTimeoutSec)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:              port,
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		PipelineDir:       getenv("PIPELINE_DIR", "pipeline"),
		FetchExe:          getenv("STAGE_FETCH_EXE", "profile-fetch"),
		FilterExe:         getenv("STAGE_FILTER_EXE", "profile-filter"),
		TranslateExe:      getenv("STAGE_TRANSLATE_EXE", "profile-translate"),
		ProfileURLBase:    getenv("PROFILE_URL_BASE", "https://github.com"),
		MaxConcurrentRuns: maxRuns,
		FetchTimeout:      time.Duration(fetchSec) * time.Second,
		FilterTimeout:     time.Duration(filterSec) * time.Second,
		TranslateTimeout:  time.Duration(translateSec) * time.Second,
	}

	if abs, err := filepath.Abs(cfg.PipelineDir); err == nil {
		cfg.PipelineDir = abs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration using struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.FetchTimeout <= 0 || c.FilterTimeout <= 0 || c.TranslateTimeout <= 0 {
		return fmt.Errorf("invalid configuration: stage timeouts must be positive")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}
