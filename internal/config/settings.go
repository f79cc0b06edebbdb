// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Recognized values of Config.Mode. Only ModeProduction reconciles; in
// ModeDevelopment the job validates its configuration and exits.
const (
	ModeProduction  = "production"
	ModeDevelopment = "development"
)

// Config is the full keysync configuration. It is read once at startup and
// passed by value to the components that need it.
type Config struct {
	Mode     string   `mapstructure:"mode" yaml:"mode"`
	Signer   Endpoint `mapstructure:"signer" yaml:"signer"`
	Client   Endpoint `mapstructure:"client" yaml:"client"`
	HTTP     HTTP     `mapstructure:"http" yaml:"http"`
	Log      Log      `mapstructure:"log" yaml:"log"`
	Language string   `mapstructure:"language" yaml:"language"`
	Schedule string   `mapstructure:"schedule" yaml:"schedule"`
	History  History  `mapstructure:"history" yaml:"history"`
	Metrics  Metrics  `mapstructure:"metrics" yaml:"metrics"`
}

// Endpoint is the base URL of a remote API, without the /eth/v1 path.
type Endpoint struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// HTTP tunes the outgoing API requests. A zero Timeout leaves the Go
// transport default in place.
type HTTP struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Log selects log verbosity and output format (text, json, logfmt).
type Log struct {
	Format  string `mapstructure:"format" yaml:"format"`
	Verbose bool   `mapstructure:"verbose" yaml:"verbose"`
}

// History configures the optional run history database. An empty DSN
// disables it.
type History struct {
	Type string `mapstructure:"type" yaml:"type"`
	DSN  string `mapstructure:"dsn" yaml:"dsn"`
}

// Metrics configures the Prometheus endpoint served by `keysync watch`.
type Metrics struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// Defaults returns the default value of every key. Each key must appear
// here so that Viper picks it up from the environment.
func Defaults() map[string]any {
	return map[string]any{
		"mode":           "",
		"signer.url":     "",
		"client.url":     "",
		"http.timeout":   "0s",
		"log.format":     "text",
		"log.verbose":    false,
		"language":       "en",
		"schedule":       "@every 1m",
		"history.type":   "sqlite",
		"history.dsn":    "",
		"metrics.listen": "",
	}
}

// ErrInvalidConfig matches every *ValidationError.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError lists every problem found in a Config.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidConfig.Error() + ": " + strings.Join(e.Problems, "; ")
}

// Is lets errors.Is match ErrInvalidConfig.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Validate checks the settings required before any run: a recognized mode
// and both endpoint URLs. It returns a *ValidationError or nil.
func (c Config) Validate() error {
	var problems []string

	switch c.Mode {
	case "":
		problems = append(problems, "mode must be set (production or development)")
	case ModeProduction, ModeDevelopment:
	default:
		problems = append(problems, fmt.Sprintf("mode must be production or development, got %q", c.Mode))
	}

	if p := checkURL("signer.url", c.Signer.URL); p != "" {
		problems = append(problems, p)
	}
	if p := checkURL("client.url", c.Client.URL); p != "" {
		problems = append(problems, p)
	}

	if c.HTTP.Timeout < 0 {
		problems = append(problems, "http.timeout must not be negative")
	}

	if c.History.DSN != "" {
		switch c.History.Type {
		case "sqlite", "postgres", "mysql":
		default:
			problems = append(problems, fmt.Sprintf("history.type must be sqlite, postgres or mysql, got %q", c.History.Type))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Reconciles reports whether the configured mode applies changes.
func (c Config) Reconciles() bool {
	return c.Mode == ModeProduction
}

func checkURL(key, raw string) string {
	if raw == "" {
		return key + " must be set"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("%s is not a valid URL: %v", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("%s must use http or https, got %q", key, raw)
	}
	if u.Host == "" {
		return fmt.Sprintf("%s has no host: %q", key, raw)
	}
	return ""
}
