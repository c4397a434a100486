package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // config field path (e.g., "lock.ttl_seconds")
	Value   any    // the invalid value
	Message string // human-readable error description
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
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
}

// ValidLockBackends returns the recognized lock backend names.
func ValidLockBackends() []string {
	return []string{"file", "kv"}
}

// ValidLogLevels returns the recognized log level names.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the configuration and returns all failures.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, c.validateLock()...)
	errs = append(errs, c.validateScheduler()...)
	errs = append(errs, c.validatePipeline()...)
	errs = append(errs, c.validateExecutor()...)
	errs = append(errs, c.validateChange()...)
	errs = append(errs, c.validateNotify()...)
	errs = append(errs, c.validateLogging()...)
	return errs
}

func (c *Config) validateLock() []ValidationError {
	var errs []ValidationError
	if !slices.Contains(ValidLockBackends(), c.Lock.Backend) {
		errs = append(errs, ValidationError{
			Field:   "lock.backend",
			Value:   c.Lock.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLockBackends(), ", ")),
		})
	}
	if c.Lock.TTLSeconds <= 0 {
		errs = append(errs, ValidationError{
			Field:   "lock.ttl_seconds",
			Value:   c.Lock.TTLSeconds,
			Message: "must be positive",
		})
	}
	return errs
}

func (c *Config) validateScheduler() []ValidationError {
	var errs []ValidationError
	if c.Scheduler.IntervalSeconds <= 0 {
		errs = append(errs, ValidationError{
			Field:   "scheduler.interval_seconds",
			Value:   c.Scheduler.IntervalSeconds,
			Message: "must be positive",
		})
	}
	if c.Scheduler.MaxUnitsPerRun <= 0 {
		errs = append(errs, ValidationError{
			Field:   "scheduler.max_units_per_run",
			Value:   c.Scheduler.MaxUnitsPerRun,
			Message: "must be positive",
		})
	}
	return errs
}

func (c *Config) validatePipeline() []ValidationError {
	var errs []ValidationError
	if c.Pipeline.MaxIterations < 1 || c.Pipeline.MaxIterations > 10 {
		errs = append(errs, ValidationError{
			Field:   "pipeline.max_iterations",
			Value:   c.Pipeline.MaxIterations,
			Message: "must be between 1 and 10",
		})
	}
	if c.Pipeline.IronWillThreshold < 0 || c.Pipeline.IronWillThreshold > 100 {
		errs = append(errs, ValidationError{
			Field:   "pipeline.iron_will_threshold",
			Value:   c.Pipeline.IronWillThreshold,
			Message: "must be between 0 and 100",
		})
	}
	if c.Pipeline.EngineCommand == "" {
		errs = append(errs, ValidationError{
			Field:   "pipeline.engine_command",
			Value:   c.Pipeline.EngineCommand,
			Message: "must not be empty",
		})
	}
	if c.Pipeline.PerUnitTimeoutSeconds <= 0 {
		errs = append(errs, ValidationError{
			Field:   "pipeline.per_unit_timeout_seconds",
			Value:   c.Pipeline.PerUnitTimeoutSeconds,
			Message: "must be positive",
		})
	}
	return errs
}

func (c *Config) validateExecutor() []ValidationError {
	var errs []ValidationError
	if c.Executor.MinWidth < 1 {
		errs = append(errs, ValidationError{
			Field:   "executor.min_width",
			Value:   c.Executor.MinWidth,
			Message: "must be at least 1",
		})
	}
	if c.Executor.MaxWidth < c.Executor.MinWidth {
		errs = append(errs, ValidationError{
			Field:   "executor.max_width",
			Value:   c.Executor.MaxWidth,
			Message: "must be >= executor.min_width",
		})
	}
	if c.Executor.FallbackWidth < 1 || c.Executor.FallbackWidth > c.Executor.MaxWidth {
		errs = append(errs, ValidationError{
			Field:   "executor.fallback_width",
			Value:   c.Executor.FallbackWidth,
			Message: "must be between 1 and executor.max_width",
		})
	}
	if c.Executor.ScalingCooldownSeconds < 0 {
		errs = append(errs, ValidationError{
			Field:   "executor.scaling_cooldown_seconds",
			Value:   c.Executor.ScalingCooldownSeconds,
			Message: "must not be negative",
		})
	}
	if c.Executor.BreakerThreshold < 1 {
		errs = append(errs, ValidationError{
			Field:   "executor.breaker_threshold",
			Value:   c.Executor.BreakerThreshold,
			Message: "must be at least 1",
		})
	}
	return errs
}

func (c *Config) validateChange() []ValidationError {
	var errs []ValidationError
	if c.Change.BranchPrefix == "" {
		errs = append(errs, ValidationError{
			Field:   "change.branch_prefix",
			Value:   c.Change.BranchPrefix,
			Message: "must not be empty",
		})
	}
	if strings.ContainsAny(c.Change.BranchPrefix, " ~^:?*[\\") {
		errs = append(errs, ValidationError{
			Field:   "change.branch_prefix",
			Value:   c.Change.BranchPrefix,
			Message: "contains characters invalid in branch names",
		})
	}
	if c.Change.TargetBranch == "" {
		errs = append(errs, ValidationError{
			Field:   "change.target_branch",
			Value:   c.Change.TargetBranch,
			Message: "must not be empty",
		})
	}
	return errs
}

func (c *Config) validateNotify() []ValidationError {
	var errs []ValidationError
	if c.Notify.Enabled && c.Notify.WebhookURL == "" {
		errs = append(errs, ValidationError{
			Field:   "notify.webhook_url",
			Value:   c.Notify.WebhookURL,
			Message: "required when notify.enabled is true",
		})
	}
	if c.Notify.TimeoutSeconds <= 0 {
		errs = append(errs, ValidationError{
			Field:   "notify.timeout_seconds",
			Value:   c.Notify.TimeoutSeconds,
			Message: "must be positive",
		})
	}
	return errs
}

func (c *Config) validateLogging() []ValidationError {
	var errs []ValidationError
	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must not be negative",
		})
	}
	return errs
}
