package config

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "modes.SPEED.max_retries")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidDecompositionDepths returns the closed set of decomposition depths.
func ValidDecompositionDepths() []string {
	return []string{"shallow", "standard", "deep"}
}

// ValidParallelizationLevels returns the closed set of parallelization levels.
func ValidParallelizationLevels() []string {
	return []string{"aggressive", "balanced", "conservative"}
}

// ValidValidationDepths returns the closed set of validation depths.
func ValidValidationDepths() []string {
	return []string{"minimal", "standard", "comprehensive"}
}

// ValidProviders returns the closed set of model descriptor providers.
func ValidProviders() []string {
	return []string{"anthropic", "bedrock", "local"}
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidOutputFormats returns the list of valid CLI output formats.
func ValidOutputFormats() []string {
	return []string{"json", "table", "yaml"}
}

// ValidEventStoreBackends returns the list of valid event store backends.
func ValidEventStoreBackends() []string {
	return []string{"memory", "nats"}
}

func containsString(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// Validate checks the Config for invalid values and returns all validation
// errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateTop()...)
	errors = append(errors, c.validateModes()...)
	errors = append(errors, c.validateEventStore()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateCost()...)

	return errors
}

func (c *Config) validateTop() []ValidationError {
	var errors []ValidationError

	if c.DefaultMode != "" && !IsValidModeName(c.DefaultMode) {
		errors = append(errors, ValidationError{
			Field:   "default_mode",
			Value:   c.DefaultMode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidModeNames(), ", ")),
		})
	}

	if c.OutputFormat != "" && !containsString(ValidOutputFormats(), c.OutputFormat) {
		errors = append(errors, ValidationError{
			Field:   "output_format",
			Value:   c.OutputFormat,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidOutputFormats(), ", ")),
		})
	}

	if c.ProjectPath == "" {
		errors = append(errors, ValidationError{
			Field:   "project_path",
			Value:   c.ProjectPath,
			Message: "must not be empty",
		})
	}

	return errors
}

// validateModes validates every mode baseline present in the config. Modes
// are validated in sorted key order so ValidationErrors output is
// deterministic across runs.
func (c *Config) validateModes() []ValidationError {
	var errors []ValidationError

	names := make([]string, 0, len(c.Modes))
	for name := range c.Modes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		mode := c.Modes[name]
		errors = append(errors, mode.validate(name)...)
	}

	return errors
}

func (m *ModeConfig) validate(name string) []ValidationError {
	var errors []ValidationError
	prefix := "modes." + name + "."

	if !containsString(ValidDecompositionDepths(), m.DecompositionDepth) {
		errors = append(errors, ValidationError{
			Field:   prefix + "decomposition_depth",
			Value:   m.DecompositionDepth,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidDecompositionDepths(), ", ")),
		})
	}
	if !containsString(ValidParallelizationLevels(), m.ParallelizationLevel) {
		errors = append(errors, ValidationError{
			Field:   prefix + "parallelization_level",
			Value:   m.ParallelizationLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidParallelizationLevels(), ", ")),
		})
	}
	if !containsString(ValidValidationDepths(), m.ValidationDepth) {
		errors = append(errors, ValidationError{
			Field:   prefix + "validation_depth",
			Value:   m.ValidationDepth,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidValidationDepths(), ", ")),
		})
	}

	errors = append(errors, m.PrimaryModel.validate(prefix+"primary_model")...)
	errors = append(errors, m.FallbackModel.validate(prefix+"fallback_model")...)

	if len(m.RequiredAgents) == 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + "required_agents",
			Value:   m.RequiredAgents,
			Message: "must name at least one required agent type",
		})
	}

	const minTaskTimeoutSeconds = 1
	const maxTaskTimeoutSeconds = 3600
	if m.TaskTimeoutSeconds < minTaskTimeoutSeconds {
		errors = append(errors, ValidationError{
			Field:   prefix + "task_timeout_seconds",
			Value:   m.TaskTimeoutSeconds,
			Message: fmt.Sprintf("must be at least %d second", minTaskTimeoutSeconds),
		})
	}
	if m.TaskTimeoutSeconds > maxTaskTimeoutSeconds {
		errors = append(errors, ValidationError{
			Field:   prefix + "task_timeout_seconds",
			Value:   m.TaskTimeoutSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d seconds", maxTaskTimeoutSeconds),
		})
	}

	if m.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + "max_retries",
			Value:   m.MaxRetries,
			Message: "must be non-negative",
		})
	}

	if m.CostCapUSD < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + "cost_cap_usd",
			Value:   m.CostCapUSD,
			Message: "must be non-negative (0 disables the cap)",
		})
	}

	return errors
}

func (d *ModelDescriptor) validate(field string) []ValidationError {
	var errors []ValidationError

	if !containsString(ValidProviders(), d.Provider) {
		errors = append(errors, ValidationError{
			Field:   field + ".provider",
			Value:   d.Provider,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidProviders(), ", ")),
		})
	}
	if d.ModelID == "" {
		errors = append(errors, ValidationError{
			Field:   field + ".model_id",
			Value:   d.ModelID,
			Message: "must not be empty",
		})
	}
	if d.Temperature < 0 || d.Temperature > 1 {
		errors = append(errors, ValidationError{
			Field:   field + ".temperature",
			Value:   d.Temperature,
			Message: "must be between 0.0 and 1.0",
		})
	}
	if d.MaxTokens <= 0 {
		errors = append(errors, ValidationError{
			Field:   field + ".max_tokens",
			Value:   d.MaxTokens,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateEventStore() []ValidationError {
	var errors []ValidationError

	if !containsString(ValidEventStoreBackends(), c.EventStore.Backend) {
		errors = append(errors, ValidationError{
			Field:   "event_store.backend",
			Value:   c.EventStore.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidEventStoreBackends(), ", ")),
		})
	}

	if c.EventStore.SnapshotInterval < 1 {
		errors = append(errors, ValidationError{
			Field:   "event_store.snapshot_interval",
			Value:   c.EventStore.SnapshotInterval,
			Message: "must be at least 1",
		})
	}

	if c.EventStore.Backend == "nats" && c.EventStore.NATSURL == "" {
		errors = append(errors, ValidationError{
			Field:   "event_store.nats_url",
			Value:   c.EventStore.NATSURL,
			Message: "must not be empty when backend is nats",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !containsString(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateCost() []ValidationError {
	var errors []ValidationError

	if c.Cost.WarningThresholdUSD < 0 {
		errors = append(errors, ValidationError{
			Field:   "cost.warning_threshold_usd",
			Value:   c.Cost.WarningThresholdUSD,
			Message: "must be non-negative",
		})
	}

	return errors
}
