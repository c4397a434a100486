// Package config defines quell's configuration surface. Configuration is
// loaded once via viper (yaml file + QUELL_* environment overrides) into
// an explicit Config struct that is passed to components at construction.
// No component reads ambient viper state after startup.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete quell configuration.
type Config struct {
	Lock      LockConfig      `mapstructure:"lock"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Change    ChangeConfig    `mapstructure:"change"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Paths     PathsConfig     `mapstructure:"paths"`
}

// LockConfig controls the per-unit mutual exclusion backend.
type LockConfig struct {
	// Backend selects the lock implementation: "file" or "kv"
	Backend string `mapstructure:"backend"`
	// TTLSeconds is the lock time-to-live. An unreleased lock becomes
	// acquirable again after this elapses (crash recovery).
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// TTL returns the lock TTL as a duration.
func (c *LockConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// SchedulerConfig controls the periodic scheduler pass.
type SchedulerConfig struct {
	// IntervalSeconds is the time between scheduler passes
	IntervalSeconds int `mapstructure:"interval_seconds"`
	// MaxUnitsPerRun bounds the batch size submitted per pass
	MaxUnitsPerRun int `mapstructure:"max_units_per_run"`
	// Parallel routes batches through the adaptive executor when true,
	// sequentially otherwise
	Parallel bool `mapstructure:"parallel"`
}

// Interval returns the scheduler pass interval as a duration.
func (c *SchedulerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// PipelineConfig controls the execute-and-judge pipeline.
type PipelineConfig struct {
	// MaxIterations is the engine→judge iteration safety cap
	MaxIterations int `mapstructure:"max_iterations"`
	// IronWillThreshold is the minimum aggregate score (0-100) a
	// composite judgment must reach for approval
	IronWillThreshold float64 `mapstructure:"iron_will_threshold"`
	// PerUnitTimeoutSeconds bounds one engine run; an overrun is a
	// failed judgment, not a hang
	PerUnitTimeoutSeconds int `mapstructure:"per_unit_timeout_seconds"`
	// Profile is an optional yaml file of judge threshold overrides
	Profile string `mapstructure:"profile"`
	// EngineCommand is the resolution engine executable invoked per unit
	EngineCommand string `mapstructure:"engine_command"`
	// EngineArgs are fixed arguments passed before the per-unit flags
	EngineArgs []string `mapstructure:"engine_args"`
}

// PerUnitTimeout returns the engine run timeout as a duration.
func (c *PipelineConfig) PerUnitTimeout() time.Duration {
	return time.Duration(c.PerUnitTimeoutSeconds) * time.Second
}

// ExecutorConfig controls the adaptive parallel executor.
type ExecutorConfig struct {
	// MinWidth is the smallest worker pool width
	MinWidth int `mapstructure:"min_width"`
	// MaxWidth is the largest worker pool width
	MaxWidth int `mapstructure:"max_width"`
	// FallbackWidth is used when the resource monitor is unhealthy
	FallbackWidth int `mapstructure:"fallback_width"`
	// ScalingCooldownSeconds is the minimum time between width changes
	ScalingCooldownSeconds int `mapstructure:"scaling_cooldown_seconds"`
	// SampleIntervalMs is the resource monitor sampling cadence
	SampleIntervalMs int `mapstructure:"sample_interval_ms"`
	// BreakerThreshold is the consecutive-failure count that opens the
	// circuit breaker for a work class
	BreakerThreshold int `mapstructure:"breaker_threshold"`
	// BreakerCooldownSeconds is how long an open breaker waits before
	// half-opening to probe
	BreakerCooldownSeconds int `mapstructure:"breaker_cooldown_seconds"`
}

// ScalingCooldown returns the scaling cooldown as a duration.
func (c *ExecutorConfig) ScalingCooldown() time.Duration {
	return time.Duration(c.ScalingCooldownSeconds) * time.Second
}

// SampleInterval returns the monitor sampling cadence as a duration.
func (c *ExecutorConfig) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalMs) * time.Millisecond
}

// BreakerCooldown returns the breaker cooldown as a duration.
func (c *ExecutorConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownSeconds) * time.Second
}

// ChangeConfig controls change-request creation.
type ChangeConfig struct {
	// BranchPrefix is the source branch prefix (default: "quell")
	BranchPrefix string `mapstructure:"branch_prefix"`
	// UseTimestampedBranches appends a timestamp suffix to branch names
	// to avoid collisions when branches are reused
	UseTimestampedBranches bool `mapstructure:"use_timestamped_branches"`
	// TargetBranch is the change-request target (default: "main")
	TargetBranch string `mapstructure:"target_branch"`
	// Draft creates change-requests as drafts
	Draft bool `mapstructure:"draft"`
	// Labels to apply to created change-requests
	Labels []string `mapstructure:"labels"`
}

// NotifyConfig controls best-effort outcome notifications.
type NotifyConfig struct {
	// Enabled turns notification delivery on
	Enabled bool `mapstructure:"enabled"`
	// WebhookURL receives a JSON POST per terminal outcome
	WebhookURL string `mapstructure:"webhook_url"`
	// TimeoutSeconds bounds one delivery attempt
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// Timeout returns the notification delivery timeout as a duration.
func (c *NotifyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryConfig controls retries of transient external failures with
// bounded exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the total attempt cap including the first try
	MaxAttempts int `mapstructure:"max_attempts"`
	// BaseDelayMs is the first backoff delay
	BaseDelayMs int `mapstructure:"base_delay_ms"`
}

// BaseDelay returns the first backoff delay as a duration.
func (c *RetryConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// MaxSizeMB is the log file size before rotation
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep
	MaxBackups int `mapstructure:"max_backups"`
}

// PathsConfig controls where quell stores state.
type PathsConfig struct {
	// DataDir holds the ledger, lock files, and logs.
	// Defaults to ~/.local/share/quell. Supports ~ expansion.
	DataDir string `mapstructure:"data_dir"`
}

// ResolveDataDir expands ~ and falls back to the default data directory.
func (p *PathsConfig) ResolveDataDir() string {
	dir := p.DataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ".quell"
		}
		return filepath.Join(home, ".local", "share", "quell")
	}
	if dir == "~" || len(dir) > 1 && dir[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, dir[1:])
		}
	}
	return dir
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Lock: LockConfig{
			Backend:    "file",
			TTLSeconds: 1800,
		},
		Scheduler: SchedulerConfig{
			IntervalSeconds: 300,
			MaxUnitsPerRun:  5,
			Parallel:        true,
		},
		Pipeline: PipelineConfig{
			MaxIterations:         5,
			IronWillThreshold:     95.0,
			PerUnitTimeoutSeconds: 600,
			EngineCommand:         "quell-engine",
		},
		Executor: ExecutorConfig{
			MinWidth:               1,
			MaxWidth:               8,
			FallbackWidth:          2,
			ScalingCooldownSeconds: 30,
			SampleIntervalMs:       1000,
			BreakerThreshold:       5,
			BreakerCooldownSeconds: 60,
		},
		Change: ChangeConfig{
			BranchPrefix:           "quell",
			UseTimestampedBranches: true,
			TargetBranch:           "main",
			Draft:                  false,
			Labels:                 []string{"quell"},
		},
		Retry: RetryConfig{
			MaxAttempts: 4,
			BaseDelayMs: 1000,
		},
		Notify: NotifyConfig{
			Enabled:        false,
			TimeoutSeconds: 5,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Paths: PathsConfig{},
	}
}

// SetDefaults registers all default values with viper. Call before
// viper.ReadInConfig so defaults apply even without a config file.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("lock.backend", defaults.Lock.Backend)
	viper.SetDefault("lock.ttl_seconds", defaults.Lock.TTLSeconds)

	viper.SetDefault("scheduler.interval_seconds", defaults.Scheduler.IntervalSeconds)
	viper.SetDefault("scheduler.max_units_per_run", defaults.Scheduler.MaxUnitsPerRun)
	viper.SetDefault("scheduler.parallel", defaults.Scheduler.Parallel)

	viper.SetDefault("pipeline.max_iterations", defaults.Pipeline.MaxIterations)
	viper.SetDefault("pipeline.iron_will_threshold", defaults.Pipeline.IronWillThreshold)
	viper.SetDefault("pipeline.per_unit_timeout_seconds", defaults.Pipeline.PerUnitTimeoutSeconds)
	viper.SetDefault("pipeline.profile", defaults.Pipeline.Profile)
	viper.SetDefault("pipeline.engine_command", defaults.Pipeline.EngineCommand)
	viper.SetDefault("pipeline.engine_args", defaults.Pipeline.EngineArgs)

	viper.SetDefault("executor.min_width", defaults.Executor.MinWidth)
	viper.SetDefault("executor.max_width", defaults.Executor.MaxWidth)
	viper.SetDefault("executor.fallback_width", defaults.Executor.FallbackWidth)
	viper.SetDefault("executor.scaling_cooldown_seconds", defaults.Executor.ScalingCooldownSeconds)
	viper.SetDefault("executor.sample_interval_ms", defaults.Executor.SampleIntervalMs)
	viper.SetDefault("executor.breaker_threshold", defaults.Executor.BreakerThreshold)
	viper.SetDefault("executor.breaker_cooldown_seconds", defaults.Executor.BreakerCooldownSeconds)

	viper.SetDefault("change.branch_prefix", defaults.Change.BranchPrefix)
	viper.SetDefault("change.use_timestamped_branches", defaults.Change.UseTimestampedBranches)
	viper.SetDefault("change.target_branch", defaults.Change.TargetBranch)
	viper.SetDefault("change.draft", defaults.Change.Draft)
	viper.SetDefault("change.labels", defaults.Change.Labels)

	viper.SetDefault("retry.max_attempts", defaults.Retry.MaxAttempts)
	viper.SetDefault("retry.base_delay_ms", defaults.Retry.BaseDelayMs)

	viper.SetDefault("notify.enabled", defaults.Notify.Enabled)
	viper.SetDefault("notify.webhook_url", defaults.Notify.WebhookURL)
	viper.SetDefault("notify.timeout_seconds", defaults.Notify.TimeoutSeconds)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	viper.SetDefault("paths.data_dir", defaults.Paths.DataDir)
}

// Load unmarshals the current viper state into a validated Config.
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

// ConfigDir returns the directory searched for config.yaml.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "quell")
}
