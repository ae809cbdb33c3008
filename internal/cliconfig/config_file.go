package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	ServiceURL         string `toml:"service_url"`
	AuthToken          string `toml:"auth_token"`
	WatchDir           string `toml:"watch_dir"`
	Mode               string `toml:"mode"`
	Bulk               *bool  `toml:"bulk"`
	SettleDelay        string `toml:"settle_delay"`
	SubmitPollInterval string `toml:"submit_poll_interval"`
	HTTPTimeout        string `toml:"http_timeout"`
	JPEGQuality        int    `toml:"jpeg_quality"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.cardpile/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".cardpile", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("service-url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("auth-token", fc.AuthToken, &cfg.AuthToken)
	s.setString("watch-dir", fc.WatchDir, &cfg.WatchDir)
	s.setString("mode", fc.Mode, &cfg.Mode)
	s.setBool("bulk", fc.Bulk, &cfg.Bulk)

	if err := s.setDuration("settle", fc.SettleDelay, &cfg.SettleDelay); err != nil {
		return err
	}
	if err := s.setDuration("submit-poll", fc.SubmitPollInterval, &cfg.SubmitPollInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}

	s.setInt("jpeg-quality", fc.JPEGQuality, &cfg.JPEGQuality)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
