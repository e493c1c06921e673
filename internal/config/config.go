package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete devswarm configuration: the
// environment-level settings from spec §6 plus a per-mode baseline block
// for each of the four execution modes.
type Config struct {
	API          APIConfig             `mapstructure:"api"`
	DefaultMode  string                `mapstructure:"default_mode"`
	OutputFormat string                `mapstructure:"output_format"`
	ProjectPath  string                `mapstructure:"project_path"`
	Modes        map[string]ModeConfig `mapstructure:"modes"`
	EventStore   EventStoreConfig      `mapstructure:"event_store"`
	Logging      LoggingConfig         `mapstructure:"logging"`
	Cost         CostConfig            `mapstructure:"cost"`
}

// APIConfig holds the provider connection settings.
type APIConfig struct {
	// URL is the base URL for the primary AI provider.
	URL string `mapstructure:"url"`
	// Key is the API key/token for the primary provider. Normally supplied
	// via the DEVSWARM_API_KEY environment variable rather than the file.
	Key string `mapstructure:"key"`
}

// ModelDescriptor identifies a model and the generation parameters to use
// with it (spec §3 "primary and fallback model descriptors").
type ModelDescriptor struct {
	// Provider names the backend: "anthropic", "bedrock", "local".
	Provider string `mapstructure:"provider"`
	// ModelID is the provider-specific model identifier.
	ModelID string `mapstructure:"model_id"`
	// Temperature controls sampling randomness, 0.0-1.0.
	Temperature float64 `mapstructure:"temperature"`
	// MaxTokens caps the response length.
	MaxTokens int `mapstructure:"max_tokens"`
}

// ModeConfig is the per-mode baseline record from spec §3: decomposition
// depth, parallelization level, validation depth, human-approval flag,
// primary/fallback models, local-model preference, required/optional
// agent lists, task timeout, max retries, and an optional cost cap.
type ModeConfig struct {
	// DecompositionDepth is one of "shallow", "standard", "deep".
	DecompositionDepth string `mapstructure:"decomposition_depth"`
	// ParallelizationLevel is one of "aggressive", "balanced", "conservative".
	ParallelizationLevel string `mapstructure:"parallelization_level"`
	// ValidationDepth is one of "minimal", "standard", "comprehensive".
	ValidationDepth string `mapstructure:"validation_depth"`
	// HumanApproval pauses each task of the mode in paused status after
	// decomposition until the orchestrator's Approve or Reject is called.
	HumanApproval bool `mapstructure:"human_approval"`
	// PrimaryModel is the model a strategy's SelectModel names for complex
	// work, and for every complexity in SPEED and QUALITY.
	PrimaryModel ModelDescriptor `mapstructure:"primary_model"`
	// FallbackModel is the model AUTONOMY's and COST's SelectModel name for
	// simple and medium work. No strategy switches to it when the primary
	// model fails.
	FallbackModel ModelDescriptor `mapstructure:"fallback_model"`
	// PreferLocalModel records the mode's local-model preference. No
	// strategy's model choice and no provider routing depends on it.
	PreferLocalModel bool `mapstructure:"prefer_local_model"`
	// RequiredAgents lists the agents the mode relies on. The validator
	// requires it to be non-empty; task submission does not check it
	// against the registry.
	RequiredAgents []string `mapstructure:"required_agents"`
	// OptionalAgents are used opportunistically when available.
	OptionalAgents []string `mapstructure:"optional_agents"`
	// TaskTimeoutSeconds is the hard wall-clock timeout per subtask
	// submission to the worker pool (spec §4.6).
	TaskTimeoutSeconds int `mapstructure:"task_timeout_seconds"`
	// MaxRetries bounds the retry loop for transient/provider failures
	// (spec §7).
	MaxRetries int `mapstructure:"max_retries"`
	// CostCapUSD fails the task with cost_exceeded once its cumulative
	// cost reaches this value, 0 = no cap.
	CostCapUSD float64 `mapstructure:"cost_cap_usd"`
}

// TaskTimeout returns the mode's task timeout as a time.Duration.
func (m *ModeConfig) TaskTimeout() time.Duration {
	return time.Duration(m.TaskTimeoutSeconds) * time.Second
}

// HasCostCap reports whether this mode enforces a cost cap.
func (m *ModeConfig) HasCostCap() bool {
	return m.CostCapUSD > 0
}

// EventStoreConfig selects and configures the event store backend.
type EventStoreConfig struct {
	// Backend is "memory" or "nats".
	Backend string `mapstructure:"backend"`
	// SnapshotInterval is the number of events per aggregate between
	// snapshots (spec §3).
	SnapshotInterval int `mapstructure:"snapshot_interval"`
	// NATSURL is the JetStream connection URL, used when Backend == "nats".
	NATSURL string `mapstructure:"nats_url"`
	// NATSStream is the JetStream stream name for event persistence.
	NATSStream string `mapstructure:"nats_stream"`
}

// CostConfig controls process-wide cost tracking independent of any
// single mode's cap.
type CostConfig struct {
	// WarningThresholdUSD logs a warning once cumulative cost crosses it.
	WarningThresholdUSD float64 `mapstructure:"warning_threshold_usd"`
}

// LoggingConfig controls structured logging behavior, adapted from the
// teacher's debug-log config onto the orchestrator's per-component
// loggers (internal/logging).
type LoggingConfig struct {
	// Enabled controls whether file logging is enabled (default: true).
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info").
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10).
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3).
	MaxBackups int `mapstructure:"max_backups"`
}

// Default returns a Config with sensible default values, including
// baseline ModeConfig records for all four modes (SPEED, QUALITY,
// AUTONOMY, COST).
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL: "https://api.anthropic.com",
			Key: "",
		},
		DefaultMode:  "SPEED",
		OutputFormat: "json",
		ProjectPath:  ".",
		Modes: map[string]ModeConfig{
			"SPEED":    defaultSpeedMode(),
			"QUALITY":  defaultQualityMode(),
			"AUTONOMY": defaultAutonomyMode(),
			"COST":     defaultCostMode(),
		},
		EventStore: EventStoreConfig{
			Backend:          "memory",
			SnapshotInterval: 100,
			NATSURL:          "nats://localhost:4222",
			NATSStream:       "DEVSWARM_EVENTS",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Cost: CostConfig{
			WarningThresholdUSD: 5.00,
		},
	}
}

func defaultSpeedMode() ModeConfig {
	return ModeConfig{
		DecompositionDepth:   "shallow",
		ParallelizationLevel: "aggressive",
		ValidationDepth:      "minimal",
		HumanApproval:        false,
		PrimaryModel:         ModelDescriptor{Provider: "anthropic", ModelID: "claude-haiku-4", Temperature: 0.3, MaxTokens: 4096},
		FallbackModel:        ModelDescriptor{Provider: "anthropic", ModelID: "claude-haiku-4", Temperature: 0.3, MaxTokens: 4096},
		PreferLocalModel:     false,
		RequiredAgents:       []string{"implement"},
		OptionalAgents:       []string{"test"},
		TaskTimeoutSeconds:   120,
		MaxRetries:           2,
		CostCapUSD:           0,
	}
}

func defaultQualityMode() ModeConfig {
	return ModeConfig{
		DecompositionDepth:   "deep",
		ParallelizationLevel: "balanced",
		ValidationDepth:      "comprehensive",
		HumanApproval:        false,
		PrimaryModel:         ModelDescriptor{Provider: "anthropic", ModelID: "claude-opus-4", Temperature: 0.2, MaxTokens: 8192},
		FallbackModel:        ModelDescriptor{Provider: "anthropic", ModelID: "claude-sonnet-4", Temperature: 0.2, MaxTokens: 8192},
		PreferLocalModel:     false,
		RequiredAgents:       []string{"implement", "test", "review"},
		OptionalAgents:       []string{"security"},
		TaskTimeoutSeconds:   600,
		MaxRetries:           3,
		CostCapUSD:           0,
	}
}

func defaultAutonomyMode() ModeConfig {
	return ModeConfig{
		DecompositionDepth:   "deep",
		ParallelizationLevel: "conservative",
		ValidationDepth:      "comprehensive",
		HumanApproval:        true,
		PrimaryModel:         ModelDescriptor{Provider: "anthropic", ModelID: "claude-opus-4", Temperature: 0.1, MaxTokens: 8192},
		FallbackModel:        ModelDescriptor{Provider: "bedrock", ModelID: "anthropic.claude-3-sonnet", Temperature: 0.1, MaxTokens: 8192},
		PreferLocalModel:     false,
		RequiredAgents:       []string{"implement", "test", "review", "security"},
		OptionalAgents:       []string{},
		TaskTimeoutSeconds:   900,
		MaxRetries:           5,
		CostCapUSD:           25.00,
	}
}

func defaultCostMode() ModeConfig {
	return ModeConfig{
		DecompositionDepth:   "shallow",
		ParallelizationLevel: "conservative",
		ValidationDepth:      "standard",
		HumanApproval:        false,
		PrimaryModel:         ModelDescriptor{Provider: "bedrock", ModelID: "anthropic.claude-3-haiku", Temperature: 0.3, MaxTokens: 4096},
		FallbackModel:        ModelDescriptor{Provider: "bedrock", ModelID: "anthropic.claude-3-haiku", Temperature: 0.3, MaxTokens: 4096},
		PreferLocalModel:     true,
		RequiredAgents:       []string{"implement"},
		OptionalAgents:       []string{},
		TaskTimeoutSeconds:   180,
		MaxRetries:           1,
		CostCapUSD:           2.00,
	}
}

// SetDefaults registers default values with viper so env/file overrides
// layer correctly on top of the built-in baseline.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("api.url", defaults.API.URL)
	viper.SetDefault("api.key", defaults.API.Key)
	viper.SetDefault("default_mode", defaults.DefaultMode)
	viper.SetDefault("output_format", defaults.OutputFormat)
	viper.SetDefault("project_path", defaults.ProjectPath)

	for name, mode := range defaults.Modes {
		prefix := "modes." + name + "."
		viper.SetDefault(prefix+"decomposition_depth", mode.DecompositionDepth)
		viper.SetDefault(prefix+"parallelization_level", mode.ParallelizationLevel)
		viper.SetDefault(prefix+"validation_depth", mode.ValidationDepth)
		viper.SetDefault(prefix+"human_approval", mode.HumanApproval)
		viper.SetDefault(prefix+"primary_model", mode.PrimaryModel)
		viper.SetDefault(prefix+"fallback_model", mode.FallbackModel)
		viper.SetDefault(prefix+"prefer_local_model", mode.PreferLocalModel)
		viper.SetDefault(prefix+"required_agents", mode.RequiredAgents)
		viper.SetDefault(prefix+"optional_agents", mode.OptionalAgents)
		viper.SetDefault(prefix+"task_timeout_seconds", mode.TaskTimeoutSeconds)
		viper.SetDefault(prefix+"max_retries", mode.MaxRetries)
		viper.SetDefault(prefix+"cost_cap_usd", mode.CostCapUSD)
	}

	viper.SetDefault("event_store.backend", defaults.EventStore.Backend)
	viper.SetDefault("event_store.snapshot_interval", defaults.EventStore.SnapshotInterval)
	viper.SetDefault("event_store.nats_url", defaults.EventStore.NATSURL)
	viper.SetDefault("event_store.nats_stream", defaults.EventStore.NATSStream)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	viper.SetDefault("cost.warning_threshold_usd", defaults.Cost.WarningThresholdUSD)
}

// Load reads the configuration from viper into a Config struct and
// validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// unmarshaling fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ModeConfigFor returns the named mode's baseline, falling back to the
// default baseline for that mode name if it is not present in the loaded
// config (e.g. a user config that only overrides one mode).
func (c *Config) ModeConfigFor(mode string) ModeConfig {
	if m, ok := c.Modes[mode]; ok {
		return m
	}
	return Default().Modes[mode]
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "devswarm")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".devswarm"
	}
	return filepath.Join(home, ".config", "devswarm")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidModeNames returns the closed set of mode names.
func ValidModeNames() []string {
	return []string{"SPEED", "QUALITY", "AUTONOMY", "COST"}
}

// IsValidModeName checks if the given mode name is one of the four modes.
func IsValidModeName(mode string) bool {
	for _, valid := range ValidModeNames() {
		if mode == valid {
			return true
		}
	}
	return false
}
