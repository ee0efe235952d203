package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies that DefaultConfig returns sensible defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		getValue func(*Config) string
		want     string
	}{
		{"listen address", func(c *Config) string { return c.Server.Listen }, "0.0.0.0:8080"},
		{"db path", func(c *Config) string { return c.Server.DBPath }, "adpipe.db"},
		{"root folder", func(c *Config) string { return c.Source.RootFolder }, "/"},
		{"api version", func(c *Config) string { return c.Platform.APIVersion }, "v19.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.getValue(cfg)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if cfg.Upload.Workers != 5 {
		t.Errorf("Upload.Workers = %d, want 5", cfg.Upload.Workers)
	}
	if cfg.Upload.MaxRetryRounds != 5 {
		t.Errorf("Upload.MaxRetryRounds = %d, want 5", cfg.Upload.MaxRetryRounds)
	}
	if cfg.Upload.RateLimitCooldown.Std() != 10*time.Minute {
		t.Errorf("Upload.RateLimitCooldown = %v, want 10m", cfg.Upload.RateLimitCooldown.Std())
	}
	if cfg.Poll.Attempts != 10 {
		t.Errorf("Poll.Attempts = %d, want 10", cfg.Poll.Attempts)
	}
	if cfg.Poll.Interval.Std() != 30*time.Second {
		t.Errorf("Poll.Interval = %v, want 30s", cfg.Poll.Interval.Std())
	}
	if len(cfg.Pattern.Extensions) != 1 || cfg.Pattern.Extensions[0] != ".mp4" {
		t.Errorf("Pattern.Extensions = %v, want [.mp4]", cfg.Pattern.Extensions)
	}
	if cfg.Platform.PageSize != 100 {
		t.Errorf("Platform.PageSize = %d, want 100", cfg.Platform.PageSize)
	}
}

// TestLoad tests loading a valid config file
func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "adpipe.yaml")

	configContent := `
server:
  listen: "0.0.0.0:9000"
  db_path: "/custom/data/app.db"
scratch_dir: "/custom/scratch"
source:
  access_token: "file-token"
  root_folder: "/Jobs"
  job_min: 600
  job_max: 650
platform:
  account_id: "123456"
  api_version: "v20.0"
  template_campaign_ids:
    - "111"
    - "222"
  page_size: 50
upload:
  workers: 3
  max_retry_rounds: 2
  rate_limit_cooldown: "5m"
poll:
  attempts: 4
  interval: "15s"
pattern:
  extensions:
    - ".mp4"
    - ".mov"
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Listen != "0.0.0.0:9000" {
		t.Errorf("Server.Listen = %q, want %q", cfg.Server.Listen, "0.0.0.0:9000")
	}
	if cfg.ScratchDir != "/custom/scratch" {
		t.Errorf("ScratchDir = %q, want %q", cfg.ScratchDir, "/custom/scratch")
	}
	if cfg.Source.RootFolder != "/Jobs" {
		t.Errorf("Source.RootFolder = %q, want /Jobs", cfg.Source.RootFolder)
	}
	if cfg.Source.JobMin != 600 || cfg.Source.JobMax != 650 {
		t.Errorf("job window = [%d, %d), want [600, 650)", cfg.Source.JobMin, cfg.Source.JobMax)
	}
	if cfg.Platform.AccountID != "123456" {
		t.Errorf("Platform.AccountID = %q", cfg.Platform.AccountID)
	}
	if len(cfg.Platform.TemplateCampaignIDs) != 2 || cfg.Platform.TemplateCampaignIDs[1] != "222" {
		t.Errorf("TemplateCampaignIDs = %v, want [111 222]", cfg.Platform.TemplateCampaignIDs)
	}
	if cfg.Platform.PageSize != 50 {
		t.Errorf("Platform.PageSize = %d, want 50", cfg.Platform.PageSize)
	}
	if cfg.Upload.Workers != 3 {
		t.Errorf("Upload.Workers = %d, want 3", cfg.Upload.Workers)
	}
	if cfg.Upload.RateLimitCooldown.Std() != 5*time.Minute {
		t.Errorf("RateLimitCooldown = %v, want 5m", cfg.Upload.RateLimitCooldown.Std())
	}
	if cfg.Poll.Attempts != 4 || cfg.Poll.Interval.Std() != 15*time.Second {
		t.Errorf("poll = %d attempts at %v", cfg.Poll.Attempts, cfg.Poll.Interval.Std())
	}
	if len(cfg.Pattern.Extensions) != 2 {
		t.Errorf("Pattern.Extensions = %v, want 2 entries", cfg.Pattern.Extensions)
	}
}

// TestLoadEnvOverrides tests that environment credentials win over file values
func TestLoadEnvOverrides(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "adpipe.yaml")

	configContent := `
source:
  access_token: "file-source-token"
platform:
  access_token: "file-platform-token"
  template_campaign_ids: ["999"]
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("DROPBOX_ACCESS_TOKEN", "env-source-token")
	t.Setenv("FB_ACCESS_TOKEN", "env-platform-token")
	t.Setenv("FB_TEMPLATE_CAMPAIGN_IDS", "111, 222,")

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Source.AccessToken != "env-source-token" {
		t.Errorf("Source.AccessToken = %q, want env value", cfg.Source.AccessToken)
	}
	if cfg.Platform.AccessToken != "env-platform-token" {
		t.Errorf("Platform.AccessToken = %q, want env value", cfg.Platform.AccessToken)
	}
	if len(cfg.Platform.TemplateCampaignIDs) != 2 || cfg.Platform.TemplateCampaignIDs[0] != "111" {
		t.Errorf("TemplateCampaignIDs = %v, want [111 222]", cfg.Platform.TemplateCampaignIDs)
	}
}

// TestLoadInvalidDuration tests that a malformed duration is rejected
func TestLoadInvalidDuration(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "adpipe.yaml")

	configContent := `
upload:
  rate_limit_cooldown: "ten minutes"
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(configFile)
	if err == nil {
		t.Error("Load() succeeded, want error for invalid duration")
	}
}

// TestLoadInvalidYAML tests that Load returns an error for invalid YAML
func TestLoadInvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "invalid.yaml")

	invalidContent := `
server:
  listen: "0.0.0.0:8080"
  invalid: [unclosed bracket
`

	if err := os.WriteFile(configFile, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(configFile)
	if err == nil {
		t.Error("Load() succeeded, want error for invalid YAML")
	}
}

// TestLoadNonexistentFile tests that Load returns an error for missing files
func TestLoadNonexistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/to/config.yaml")
	if err == nil {
		t.Error("Load() succeeded, want error for nonexistent file")
	}
}

// TestFindConfigFileFound tests that FindConfigFile returns the found config
func TestFindConfigFileFound(t *testing.T) {
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	tempDir := t.TempDir()
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("failed to restore working directory: %v", err)
		}
	})

	configFile := filepath.Join(tempDir, "adpipe.yaml")
	if err := os.WriteFile(configFile, []byte("server:\n  listen: \"0.0.0.0:8080\""), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	found, err := FindConfigFile()
	if err != nil {
		t.Fatalf("FindConfigFile() failed: %v", err)
	}
	if found != "adpipe.yaml" {
		t.Errorf("FindConfigFile() = %q, want adpipe.yaml", found)
	}
}

// TestValidate exercises the run-readiness checks
func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Source.AccessToken = "source-token"
		cfg.Platform.AccessToken = "platform-token"
		cfg.Platform.AccountID = "123"
		cfg.Platform.TemplateCampaignIDs = []string{"111"}
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing source token", func(c *Config) { c.Source.AccessToken = "" }},
		{"missing platform token", func(c *Config) { c.Platform.AccessToken = "" }},
		{"missing account id", func(c *Config) { c.Platform.AccountID = "" }},
		{"zero workers", func(c *Config) { c.Upload.Workers = 0 }},
		{"zero retry rounds", func(c *Config) { c.Upload.MaxRetryRounds = 0 }},
		{"empty job window", func(c *Config) { c.Source.JobMin = 700; c.Source.JobMax = 600 }},
		{"no extensions", func(c *Config) { c.Pattern.Extensions = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() succeeded, want error")
			}
		})
	}
}

// TestValidateZeroTemplateCampaigns verifies that an upload-only config,
// with no template campaigns to duplicate, is still runnable
func TestValidateZeroTemplateCampaigns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source.AccessToken = "source-token"
	cfg.Platform.AccessToken = "platform-token"
	cfg.Platform.AccountID = "123"
	cfg.Platform.TemplateCampaignIDs = nil

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() rejected a config with zero template campaign ids: %v", err)
	}
}

// TestLoadTemplateIDsScalar tests the comma-separated scalar form of
// template_campaign_ids
func TestLoadTemplateIDsScalar(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "adpipe.yaml")

	configContent := `
platform:
  template_campaign_ids: "111, 222,"
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(cfg.Platform.TemplateCampaignIDs) != 2 ||
		cfg.Platform.TemplateCampaignIDs[0] != "111" ||
		cfg.Platform.TemplateCampaignIDs[1] != "222" {
		t.Errorf("TemplateCampaignIDs = %v, want [111 222]", cfg.Platform.TemplateCampaignIDs)
	}
}
