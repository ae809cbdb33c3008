package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (CARDPILE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("service-url", os.Getenv("CARDPILE_SERVICE_URL"), &cfg.ServiceURL)
	s.setString("auth-token", os.Getenv("CARDPILE_AUTH_TOKEN"), &cfg.AuthToken)
	s.setString("watch-dir", os.Getenv("CARDPILE_WATCH_DIR"), &cfg.WatchDir)
	s.setString("mode", os.Getenv("CARDPILE_MODE"), &cfg.Mode)

	if err := s.setDuration("settle", os.Getenv("CARDPILE_SETTLE_DELAY"), &cfg.SettleDelay); err != nil {
		return err
	}
	if err := s.setDuration("submit-poll", os.Getenv("CARDPILE_SUBMIT_POLL_INTERVAL"), &cfg.SubmitPollInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("CARDPILE_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("jpeg-quality", os.Getenv("CARDPILE_JPEG_QUALITY"), &cfg.JPEGQuality); err != nil {
		return err
	}

	s.setBoolFromString("bulk", os.Getenv("CARDPILE_BULK"), &cfg.Bulk)

	return nil
}
