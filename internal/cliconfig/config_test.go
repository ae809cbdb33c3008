package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cardpile/cardpile/internal/domain"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.AuthToken = "tok"
	cfg.WatchDir = "/tmp/scans"
	return cfg
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	missingToken := validConfig()
	missingToken.AuthToken = ""
	if err := missingToken.Validate(); err == nil || !strings.Contains(err.Error(), "auth-token") {
		t.Errorf("missing token: err = %v", err)
	}

	missingDir := validConfig()
	missingDir.WatchDir = ""
	if err := missingDir.Validate(); err == nil || !strings.Contains(err.Error(), "watch-dir") {
		t.Errorf("missing watch dir: err = %v", err)
	}

	badMode := validConfig()
	badMode.Mode = "triple"
	if err := badMode.Validate(); err == nil {
		t.Error("invalid mode accepted")
	}

	badPoll := validConfig()
	badPoll.SubmitPollInterval = 0
	if err := badPoll.Validate(); err == nil {
		t.Error("zero poll interval accepted")
	}
}

func TestValidateStripsTrailingSlash(t *testing.T) {
	cfg := validConfig()
	cfg.ServiceURL = "https://backend.example.com/"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.ServiceURL != "https://backend.example.com" {
		t.Errorf("ServiceURL = %q", cfg.ServiceURL)
	}
}

func TestCaptureMode(t *testing.T) {
	tests := []struct {
		mode    string
		want    domain.CaptureMode
		wantErr bool
	}{
		{"", domain.SingleSided, false},
		{"single", domain.SingleSided, false},
		{"two-sided", domain.TwoSided, false},
		{"double", domain.TwoSided, false},
		{"duplex", domain.SingleSided, true},
	}
	for _, tt := range tests {
		cfg := Config{Mode: tt.mode}
		got, err := cfg.CaptureMode()
		if (err != nil) != tt.wantErr {
			t.Errorf("CaptureMode(%q) err = %v", tt.mode, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("CaptureMode(%q) = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestApplyFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
service_url = "https://file.example.com"
auth_token = "file-token"
watch_dir = "/file/scans"
mode = "two-sided"
bulk = true
settle_delay = "1s"
submit_poll_interval = "250ms"
http_timeout = "45s"
jpeg_quality = 75
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}

	cfg := DefaultConfig()
	cfg.AuthToken = ""
	if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}

	if cfg.ServiceURL != "https://file.example.com" {
		t.Errorf("ServiceURL = %q", cfg.ServiceURL)
	}
	if cfg.AuthToken != "file-token" {
		t.Errorf("AuthToken = %q", cfg.AuthToken)
	}
	if cfg.WatchDir != "/file/scans" {
		t.Errorf("WatchDir = %q", cfg.WatchDir)
	}
	if cfg.Mode != "two-sided" {
		t.Errorf("Mode = %q", cfg.Mode)
	}
	if !cfg.Bulk {
		t.Error("Bulk = false, want true")
	}
	if cfg.SettleDelay != time.Second {
		t.Errorf("SettleDelay = %v", cfg.SettleDelay)
	}
	if cfg.SubmitPollInterval != 250*time.Millisecond {
		t.Errorf("SubmitPollInterval = %v", cfg.SubmitPollInterval)
	}
	if cfg.HTTPTimeout != 45*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.JPEGQuality != 75 {
		t.Errorf("JPEGQuality = %d", cfg.JPEGQuality)
	}
}

func TestApplyFileConfigRespectsFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServiceURL = "https://flag.example.com"
	cfg.JPEGQuality = 50

	fc := FileConfig{
		ServiceURL:  "https://file.example.com",
		JPEGQuality: 75,
		WatchDir:    "/file/scans",
	}
	changed := map[string]bool{"service-url": true, "jpeg-quality": true}
	if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}

	if cfg.ServiceURL != "https://flag.example.com" {
		t.Errorf("ServiceURL = %q; explicit flag must win", cfg.ServiceURL)
	}
	if cfg.JPEGQuality != 50 {
		t.Errorf("JPEGQuality = %d; explicit flag must win", cfg.JPEGQuality)
	}
	if cfg.WatchDir != "/file/scans" {
		t.Errorf("WatchDir = %q; unflagged value must apply", cfg.WatchDir)
	}
}

func TestApplyFileConfigBadDuration(t *testing.T) {
	cfg := DefaultConfig()
	fc := FileConfig{SettleDelay: "not-a-duration"}
	if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err == nil {
		t.Error("invalid duration accepted")
	}
}

func TestApplyEnvConfig(t *testing.T) {
	t.Setenv("CARDPILE_SERVICE_URL", "https://env.example.com")
	t.Setenv("CARDPILE_AUTH_TOKEN", "env-token")
	t.Setenv("CARDPILE_WATCH_DIR", "/env/scans")
	t.Setenv("CARDPILE_MODE", "two-sided")
	t.Setenv("CARDPILE_BULK", "1")
	t.Setenv("CARDPILE_SETTLE_DELAY", "2s")
	t.Setenv("CARDPILE_JPEG_QUALITY", "80")

	cfg := DefaultConfig()
	cfg.AuthToken = ""
	if err := ApplyEnvConfig(&cfg, map[string]bool{}); err != nil {
		t.Fatalf("ApplyEnvConfig: %v", err)
	}

	if cfg.ServiceURL != "https://env.example.com" {
		t.Errorf("ServiceURL = %q", cfg.ServiceURL)
	}
	if cfg.AuthToken != "env-token" {
		t.Errorf("AuthToken = %q", cfg.AuthToken)
	}
	if cfg.WatchDir != "/env/scans" {
		t.Errorf("WatchDir = %q", cfg.WatchDir)
	}
	if !cfg.Bulk {
		t.Error("Bulk = false, want true")
	}
	if cfg.SettleDelay != 2*time.Second {
		t.Errorf("SettleDelay = %v", cfg.SettleDelay)
	}
	if cfg.JPEGQuality != 80 {
		t.Errorf("JPEGQuality = %d", cfg.JPEGQuality)
	}
}

func TestApplyEnvConfigRespectsFlags(t *testing.T) {
	t.Setenv("CARDPILE_SERVICE_URL", "https://env.example.com")

	cfg := DefaultConfig()
	cfg.ServiceURL = "https://flag.example.com"
	changed := map[string]bool{"service-url": true}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig: %v", err)
	}
	if cfg.ServiceURL != "https://flag.example.com" {
		t.Errorf("ServiceURL = %q; explicit flag must win", cfg.ServiceURL)
	}
}

func TestApplyEnvConfigBadValue(t *testing.T) {
	t.Setenv("CARDPILE_HTTP_TIMEOUT", "soon")
	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, map[string]bool{}); err == nil {
		t.Error("invalid duration accepted")
	}
}
