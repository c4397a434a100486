package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/quell-dev/quell/internal/errors"
	"github.com/quell-dev/quell/internal/tracker"
)

// Engine performs the deterministic work for one unit: formatting,
// test execution, static scanning. Engines must be idempotent: running
// twice on unchanged input yields an equivalent result. Constraints
// carry rationale from prior NeedsRevision judgments.
type Engine interface {
	// Name identifies the engine in logs and diagnostics.
	Name() string

	// Execute runs the engine once and emits one result.
	Execute(ctx context.Context, unit tracker.WorkUnit, constraints []string) (*ExecutionResult, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc struct {
	EngineName string
	Fn         func(ctx context.Context, unit tracker.WorkUnit, constraints []string) (*ExecutionResult, error)
}

func (e EngineFunc) Name() string { return e.EngineName }

func (e EngineFunc) Execute(ctx context.Context, unit tracker.WorkUnit, constraints []string) (*ExecutionResult, error) {
	return e.Fn(ctx, unit, constraints)
}

// CommandExecutor runs a command and returns its combined output.
// Injectable for tests.
type CommandExecutor func(ctx context.Context, name string, args ...string) ([]byte, error)

var defaultExecutor CommandExecutor = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// CommandEngine runs an external command and parses its stdout as an
// execution result. The command contract: read the unit and constraints
// from flags, write a single JSON object
// {"metrics": {...}, "artifacts": [...], "summary": "..."} to stdout,
// exit zero. Commands are expected to be deterministic.
type CommandEngine struct {
	name     string
	command  string
	args     []string
	executor CommandExecutor
}

// NewCommandEngine creates a CommandEngine running the given command.
func NewCommandEngine(name, command string, args ...string) *CommandEngine {
	return &CommandEngine{
		name:     name,
		command:  command,
		args:     args,
		executor: defaultExecutor,
	}
}

// WithExecutor replaces the command executor. For tests.
func (e *CommandEngine) WithExecutor(executor CommandExecutor) *CommandEngine {
	e.executor = executor
	return e
}

func (e *CommandEngine) Name() string { return e.name }

// commandOutput is the JSON contract with engine commands.
type commandOutput struct {
	Metrics   map[string]float64 `json:"metrics"`
	Artifacts []string           `json:"artifacts"`
	Summary   string             `json:"summary"`
}

// Execute runs the command with the unit id and accumulated constraints
// and parses its output.
func (e *CommandEngine) Execute(ctx context.Context, unit tracker.WorkUnit, constraints []string) (*ExecutionResult, error) {
	args := append([]string{}, e.args...)
	args = append(args, "--unit", unit.ID)
	for _, c := range constraints {
		args = append(args, "--constraint", c)
	}

	output, err := e.executor(ctx, e.command, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := fmt.Sprintf("engine %s: %s", e.name, strings.TrimSpace(string(output)))
		return nil, errors.NewPipelineError(msg, errors.Join(errors.ErrEngineFailed, err)).WithUnit(unit.ID)
	}

	var out commandOutput
	if err := json.Unmarshal(output, &out); err != nil {
		msg := fmt.Sprintf("engine %s emitted unparseable output", e.name)
		return nil, errors.NewPipelineError(msg, errors.Join(errors.ErrEngineFailed, err)).WithUnit(unit.ID)
	}

	if out.Metrics == nil {
		out.Metrics = map[string]float64{}
	}
	return &ExecutionResult{
		Metrics:   out.Metrics,
		Artifacts: out.Artifacts,
		Summary:   out.Summary,
	}, nil
}
