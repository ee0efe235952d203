package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration
type Config struct {
	Server     ServerConfig   `yaml:"server"`
	ScratchDir string         `yaml:"scratch_dir"`
	Source     SourceConfig   `yaml:"source"`
	Platform   PlatformConfig `yaml:"platform"`
	Upload     UploadConfig   `yaml:"upload"`
	Poll       PollConfig     `yaml:"poll"`
	Pattern    PatternConfig  `yaml:"pattern"`
}

// ServerConfig holds reporting server settings
type ServerConfig struct {
	Listen string `yaml:"listen"`
	DBPath string `yaml:"db_path"`
}

// SourceConfig holds file store settings
type SourceConfig struct {
	AccessToken string `yaml:"access_token"`
	RootFolder  string `yaml:"root_folder"`
	JobMin      int    `yaml:"job_min"`
	JobMax      int    `yaml:"job_max"`
}

// PlatformConfig holds ads platform settings
type PlatformConfig struct {
	AppID               string   `yaml:"app_id"`
	AppSecret           string   `yaml:"app_secret"`
	AccessToken         string   `yaml:"access_token"`
	AccountID           string `yaml:"account_id"`
	APIVersion          string `yaml:"api_version"`
	TemplateCampaignIDs IDList `yaml:"template_campaign_ids"`
	PageSize            int    `yaml:"page_size"`
}

// UploadConfig holds upload worker settings
type UploadConfig struct {
	Workers           int      `yaml:"workers"`
	MaxRetryRounds    int      `yaml:"max_retry_rounds"`
	RateLimitCooldown Duration `yaml:"rate_limit_cooldown"`
}

// PollConfig holds video processing poll settings
type PollConfig struct {
	Attempts int      `yaml:"attempts"`
	Interval Duration `yaml:"interval"`
}

// PatternConfig holds deliverable matching settings
type PatternConfig struct {
	Extensions []string `yaml:"extensions"`
}

// IDList is a list of object ids. YAML may supply either a sequence or a
// comma-separated scalar like "id1,id2".
type IDList []string

// UnmarshalYAML implements yaml.Unmarshaler
func (l *IDList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = splitIDs(value.Value)
		return nil
	case yaml.SequenceNode:
		var ids []string
		if err := value.Decode(&ids); err != nil {
			return err
		}
		*l = ids
		return nil
	default:
		return fmt.Errorf("expected a list or comma-separated string of ids")
	}
}

// Duration wraps time.Duration so YAML values like "10m" parse directly
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen: "0.0.0.0:8080",
			DBPath: "adpipe.db",
		},
		ScratchDir: os.TempDir(),
		Source: SourceConfig{
			RootFolder: "/",
		},
		Platform: PlatformConfig{
			APIVersion: "v19.0",
			PageSize:   100,
		},
		Upload: UploadConfig{
			Workers:           5,
			MaxRetryRounds:    5,
			RateLimitCooldown: Duration(10 * time.Minute),
		},
		Poll: PollConfig{
			Attempts: 10,
			Interval: Duration(30 * time.Second),
		},
		Pattern: PatternConfig{
			Extensions: []string{".mp4"},
		},
	}
}

// Load reads a config file from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyEnv()

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"adpipe.yaml",
		"/etc/adpipe/adpipe.yaml",
	}

	// Add user config path
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "adpipe", "adpipe.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPaths)
}

// applyEnv overlays credentials from the environment. Tokens belong in the
// environment, not on disk, so env values win over file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("DROPBOX_ACCESS_TOKEN"); v != "" {
		c.Source.AccessToken = v
	}
	if v := os.Getenv("FB_APP_ID"); v != "" {
		c.Platform.AppID = v
	}
	if v := os.Getenv("FB_APP_SECRET"); v != "" {
		c.Platform.AppSecret = v
	}
	if v := os.Getenv("FB_ACCESS_TOKEN"); v != "" {
		c.Platform.AccessToken = v
	}
	if v := os.Getenv("FB_TEMPLATE_CAMPAIGN_IDS"); v != "" {
		c.Platform.TemplateCampaignIDs = splitIDs(v)
	}
}

func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

// Validate checks the settings a pipeline run depends on
func (c *Config) Validate() error {
	if c.Source.AccessToken == "" {
		return fmt.Errorf("source access token is required (set DROPBOX_ACCESS_TOKEN or source.access_token)")
	}
	if c.Platform.AccessToken == "" {
		return fmt.Errorf("platform access token is required (set FB_ACCESS_TOKEN or platform.access_token)")
	}
	if c.Platform.AccountID == "" {
		return fmt.Errorf("platform account id is required")
	}
	if c.Upload.Workers < 1 {
		return fmt.Errorf("upload workers must be at least 1, got %d", c.Upload.Workers)
	}
	if c.Upload.MaxRetryRounds < 1 {
		return fmt.Errorf("upload max retry rounds must be at least 1, got %d", c.Upload.MaxRetryRounds)
	}
	if c.Source.JobMax != 0 && c.Source.JobMax <= c.Source.JobMin {
		return fmt.Errorf("source job window is empty: min %d, max %d", c.Source.JobMin, c.Source.JobMax)
	}
	if len(c.Pattern.Extensions) == 0 {
		return fmt.Errorf("at least one deliverable extension is required")
	}
	return nil
}
