// Package assistant wires the WhatsApp gateway, conversation store, session
// state, completion service and scenario tools into the message processing
// pipeline.
package assistant

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bottihq/botti/pkg/botti/gateway"
	"github.com/bottihq/botti/pkg/botti/llm"
	"github.com/bottihq/botti/pkg/botti/media"
	"github.com/bottihq/botti/pkg/botti/session"
)

// Config is the top level configuration.
type Config struct {
	// AssistantName is the persona name used in prompts.
	AssistantName string `yaml:"assistant_name"`

	// Scenario selects the deployment persona and its tool set.
	Scenario string `yaml:"scenario"`

	// Admins lists the phone numbers or JIDs allowed to run ! commands.
	Admins []string `yaml:"admins"`

	// Database is the SQLite file for conversation history.
	Database string `yaml:"database"`

	// DownloadDir is where incoming attachments are staged.
	DownloadDir string `yaml:"download_dir"`

	// Staleness drops messages older than this on arrival.
	Staleness time.Duration `yaml:"staleness"`

	// PacingMin and PacingMax bound the randomized delay before delivery.
	PacingMin time.Duration `yaml:"pacing_min"`
	PacingMax time.Duration `yaml:"pacing_max"`

	// HistoryWindow is how many recent messages feed the prompt context.
	HistoryWindow int `yaml:"history_window"`

	// Feature toggles. All default to on.
	ScrapeLinks bool `yaml:"scrape_links"`
	IngestFiles bool `yaml:"ingest_files"`
	Greeting    bool `yaml:"greeting"`

	RateLimit session.RateLimit `yaml:"rate_limit"`

	// SessionPruneSchedule is a cron expression for idle session cleanup.
	SessionPruneSchedule string        `yaml:"session_prune_schedule"`
	SessionMaxIdle       time.Duration `yaml:"session_max_idle"`

	LogLevel string `yaml:"log_level"`

	LLM      llm.Config             `yaml:"llm"`
	Media    media.Config           `yaml:"media"`
	WhatsApp gateway.WhatsAppConfig `yaml:"whatsapp"`
}

// DefaultConfig returns a config with working defaults for everything but
// credentials.
func DefaultConfig() *Config {
	return &Config{
		AssistantName:        "Juha Botti",
		Scenario:             "base",
		Database:             "./data/botti.db",
		DownloadDir:          "./data/downloads",
		Staleness:            60 * time.Second,
		PacingMin:            2 * time.Second,
		PacingMax:            10 * time.Second,
		HistoryWindow:        30,
		ScrapeLinks:          true,
		IngestFiles:          true,
		Greeting:             true,
		RateLimit:            session.DefaultRateLimit,
		SessionPruneSchedule: "*/10 * * * *",
		SessionMaxIdle:       time.Hour,
		LogLevel:             "info",
		WhatsApp:             gateway.DefaultWhatsAppConfig(),
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} references in config
// values.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// LoadConfig reads a YAML config file, loading .env files first and
// expanding ${VAR} references before parsing. Credentials missing from the
// file are resolved from the OS keyring and environment.
func LoadConfig(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := ParseConfig([]byte(expandEnvVars(string(data))))
	if err != nil {
		return nil, err
	}

	resolveSecrets(cfg)
	return cfg, nil
}

// ParseConfig parses YAML bytes over the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes a Config as YAML to the specified path. The API key
// never lands in the file; it is replaced with an env reference.
func SaveConfig(cfg *Config, path string) error {
	sanitized := *cfg
	if sanitized.LLM.APIKey != "" {
		sanitized.LLM.APIKey = "${BOTTI_API_KEY}"
	}
	sanitized.Media.APIKey = ""

	data, err := yaml.Marshal(&sanitized)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// FindConfigFile searches standard locations for a config file.
func FindConfigFile() string {
	candidates := []string{
		"config.yaml",
		"config.yml",
		"botti.yaml",
		"botti.yml",
		"configs/config.yaml",
		"configs/botti.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate checks config invariants.
func (c *Config) Validate() error {
	if c.PacingMin < 0 || c.PacingMax < c.PacingMin {
		return fmt.Errorf("invalid pacing range: min=%s max=%s", c.PacingMin, c.PacingMax)
	}
	if c.RateLimit.MaxResponses <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("invalid rate limit: %d in %s",
			c.RateLimit.MaxResponses, c.RateLimit.Window)
	}
	if c.Staleness <= 0 {
		return fmt.Errorf("staleness must be positive, got %s", c.Staleness)
	}
	return nil
}

// loadEnvFiles loads .env files from standard locations. godotenv does not
// overwrite variables that are already set.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} references with their
// environment values. Unset variables without a default keep the
// placeholder.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		name, def := sub[1], sub[2]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		if def != "" {
			return def
		}
		return match
	})
}

// resolveSecrets fills missing credentials from keyring and environment.
func resolveSecrets(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = ResolveAPIKey()
	}
	if cfg.Media.APIKey == "" {
		cfg.Media.APIKey = cfg.LLM.APIKey
	}
	if cfg.Media.BaseURL == "" {
		cfg.Media.BaseURL = cfg.LLM.BaseURL
	}
}
