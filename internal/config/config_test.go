package config

import (
	"strings"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("default config should validate cleanly, got: %v", ValidationErrors(errs))
	}
}

func TestValidate_LockBackend(t *testing.T) {
	cfg := Default()
	cfg.Lock.Backend = "redis"

	errs := cfg.Validate()
	if !hasField(errs, "lock.backend") {
		t.Errorf("expected lock.backend error, got: %v", errs)
	}
}

func TestValidate_TTLMustBePositive(t *testing.T) {
	cfg := Default()
	cfg.Lock.TTLSeconds = 0

	if !hasField(cfg.Validate(), "lock.ttl_seconds") {
		t.Error("expected lock.ttl_seconds error")
	}
}

func TestValidate_IronWillRange(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		wantErr   bool
	}{
		{"zero", 0, false},
		{"typical", 95, false},
		{"max", 100, false},
		{"negative", -1, true},
		{"over", 100.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Pipeline.IronWillThreshold = tt.threshold
			got := hasField(cfg.Validate(), "pipeline.iron_will_threshold")
			if got != tt.wantErr {
				t.Errorf("threshold %v: error=%v, want %v", tt.threshold, got, tt.wantErr)
			}
		})
	}
}

func TestValidate_IterationCapBounds(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.MaxIterations = 11
	if !hasField(cfg.Validate(), "pipeline.max_iterations") {
		t.Error("iteration cap above 10 should be rejected")
	}

	cfg.Pipeline.MaxIterations = 0
	if !hasField(cfg.Validate(), "pipeline.max_iterations") {
		t.Error("iteration cap of 0 should be rejected")
	}
}

func TestValidate_ExecutorWidths(t *testing.T) {
	cfg := Default()
	cfg.Executor.MinWidth = 4
	cfg.Executor.MaxWidth = 2

	if !hasField(cfg.Validate(), "executor.max_width") {
		t.Error("max_width below min_width should be rejected")
	}
}

func TestValidate_BranchPrefixCharacters(t *testing.T) {
	cfg := Default()
	cfg.Change.BranchPrefix = "bad prefix"

	if !hasField(cfg.Validate(), "change.branch_prefix") {
		t.Error("branch prefix with spaces should be rejected")
	}
}

func TestValidate_NotifyRequiresURL(t *testing.T) {
	cfg := Default()
	cfg.Notify.Enabled = true
	cfg.Notify.WebhookURL = ""

	if !hasField(cfg.Validate(), "notify.webhook_url") {
		t.Error("enabled notifications without a webhook URL should be rejected")
	}
}

func TestValidationErrors_Message(t *testing.T) {
	errs := ValidationErrors{
		{Field: "lock.ttl_seconds", Value: -1, Message: "must be positive"},
	}
	msg := errs.Error()
	if !strings.Contains(msg, "lock.ttl_seconds") || !strings.Contains(msg, "must be positive") {
		t.Errorf("unexpected message: %q", msg)
	}
}

func hasField(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}
