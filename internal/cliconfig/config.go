package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cardpile/cardpile/internal/domain"
	"github.com/cardpile/cardpile/pkg/log"
)

// DefaultServiceURL is the default scanner backend endpoint.
const DefaultServiceURL = "https://api.digicard.example.com"

// Config holds CLI configuration for cardpile.
type Config struct {
	ServiceURL string
	AuthToken  string

	WatchDir string
	Mode     string // "single" or "two-sided"
	Bulk     bool   // enable bulk accumulation on startup

	SettleDelay        time.Duration
	SubmitPollInterval time.Duration
	HTTPTimeout        time.Duration
	JPEGQuality        int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ServiceURL:         DefaultServiceURL,
		Mode:               "single",
		SettleDelay:        300 * time.Millisecond,
		SubmitPollInterval: 500 * time.Millisecond,
		HTTPTimeout:        30 * time.Second,
		JPEGQuality:        90,
		AuthToken:          os.Getenv("CARDPILE_AUTH_TOKEN"),
	}
}

// Logger returns the CLI's console logger.
func Logger() *log.ZerologAdapter {
	return log.NewZerologAdapter()
}

// CaptureMode converts the configured mode string.
func (c *Config) CaptureMode() (domain.CaptureMode, error) {
	switch c.Mode {
	case "", "single":
		return domain.SingleSided, nil
	case "two-sided", "double":
		return domain.TwoSided, nil
	default:
		return domain.SingleSided, fmt.Errorf("mode must be \"single\" or \"two-sided\", got %q", c.Mode)
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.AuthToken == "" {
		return fmt.Errorf("auth-token is required")
	}
	if c.WatchDir == "" {
		return fmt.Errorf("watch-dir is required")
	}
	if c.ServiceURL == "" {
		c.ServiceURL = DefaultServiceURL
	}
	// Ensure no trailing slash
	if c.ServiceURL[len(c.ServiceURL)-1] == '/' {
		c.ServiceURL = c.ServiceURL[:len(c.ServiceURL)-1]
	}
	if _, err := c.CaptureMode(); err != nil {
		return err
	}
	if c.SubmitPollInterval <= 0 {
		return fmt.Errorf("submit poll interval must be positive")
	}
	if c.SettleDelay <= 0 {
		return fmt.Errorf("settle delay must be positive")
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
