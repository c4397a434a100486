// Package errors provides centralized error definitions and error handling
// utilities for the quell codebase. It defines domain-specific errors,
// semantic error types, constructors with context wrapping, and
// classification helpers used by the retry and processor layers.
//
// # Error Types
//
// Domain-specific errors cover quell's subsystems:
//   - LockError: lock backend failures
//   - PipelineError: execute-and-judge pipeline failures
//   - ExternalError: failures talking to the issue tracker or
//     change-request system
//
// Semantic errors cover common conditions:
//   - NotFoundError: resource not found
//   - TimeoutError: operation timed out
//   - ValidationError: invalid input or state
//
// # Error Classification
//
// The retry layer uses IsRetryable to decide whether a failed external
// call should be re-attempted; the processor uses Severity to pick the
// log level for terminal outcomes.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// Callers can import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Lock-related sentinel errors
var (
	// ErrLockHeld indicates the lock is held by another worker.
	ErrLockHeld = New("lock held by another worker")
	// ErrLockBackendUnavailable indicates the lock backend cannot be reached.
	ErrLockBackendUnavailable = New("lock backend unavailable")
	// ErrNotLockHolder indicates a release attempt by a non-holder.
	ErrNotLockHolder = New("caller does not hold this lock")
)

// Pipeline-related sentinel errors
var (
	// ErrIterationCapReached indicates the pipeline hit its iteration cap
	// without an approved judgment.
	ErrIterationCapReached = New("iteration cap reached without approval")
	// ErrNoEngineForCategory indicates no engine/judge binding exists for
	// a detected work unit category.
	ErrNoEngineForCategory = New("no engine registered for category")
	// ErrEngineFailed indicates a deterministic engine run failed.
	ErrEngineFailed = New("engine execution failed")
)

// Executor-related sentinel errors
var (
	// ErrBreakerOpen indicates the circuit breaker is rejecting work of
	// this class.
	ErrBreakerOpen = New("circuit breaker open for work class")
	// ErrExecutorStopped indicates the executor is shut down.
	ErrExecutorStopped = New("executor stopped")
	// ErrQueueFull indicates the executor's submission queue is at
	// capacity.
	ErrQueueFull = New("executor queue full")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error {
	return e.cause
}

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// LockError represents errors from the lock backend.
type LockError struct {
	baseError
	Key string
}

// NewLockError creates a new LockError.
func NewLockError(message string, cause error) *LockError {
	return &LockError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityWarning,
		},
	}
}

// WithKey adds the lock key to the error context.
func (e *LockError) WithKey(key string) *LockError {
	e.Key = key
	return e
}

// Error returns the formatted error message.
func (e *LockError) Error() string {
	prefix := "lock error"
	if e.Key != "" {
		prefix = fmt.Sprintf("lock error [key=%s]", e.Key)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *LockError) Is(target error) bool {
	if _, ok := target.(*LockError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// PipelineError represents errors from the execute-and-judge pipeline.
type PipelineError struct {
	baseError
	UnitID    string
	Iteration int
}

// NewPipelineError creates a new PipelineError.
func NewPipelineError(message string, cause error) *PipelineError {
	return &PipelineError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// WithUnit adds the work unit ID to the error context.
func (e *PipelineError) WithUnit(unitID string) *PipelineError {
	e.UnitID = unitID
	return e
}

// WithIteration adds the failing iteration number to the error context.
func (e *PipelineError) WithIteration(n int) *PipelineError {
	e.Iteration = n
	return e
}

// Error returns the formatted error message.
func (e *PipelineError) Error() string {
	var parts []string
	if e.UnitID != "" {
		parts = append(parts, fmt.Sprintf("unit=%s", e.UnitID))
	}
	if e.Iteration > 0 {
		parts = append(parts, fmt.Sprintf("iteration=%d", e.Iteration))
	}

	prefix := "pipeline error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("pipeline error [%s]", strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *PipelineError) Is(target error) bool {
	if _, ok := target.(*PipelineError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ExternalError represents a failure talking to an external system
// (issue tracker, change-request host, notification channel).
// External errors are retryable by default.
type ExternalError struct {
	baseError
	System string // "tracker", "changereq", "notify"
}

// NewExternalError creates a new ExternalError for the named system.
func NewExternalError(system, message string, cause error) *ExternalError {
	return &ExternalError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityWarning,
			retryable: true,
		},
		System: system,
	}
}

// WithRetryable overrides whether the error is retryable.
func (e *ExternalError) WithRetryable(r bool) *ExternalError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *ExternalError) Error() string {
	prefix := fmt.Sprintf("%s error", e.System)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ExternalError) Is(target error) bool {
	if _, ok := target.(*ExternalError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError indicates a resource could not be found.
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// TimeoutError indicates an operation exceeded its deadline.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{Operation: operation, Duration: duration}
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Duration)
}

// Is reports whether the target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ValidationError indicates invalid input or state.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Is reports whether the target is ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// classifier is implemented by errors that know their own retry/severity
// behavior.
type classifier interface {
	IsRetryable() bool
	Severity() Severity
}

// IsRetryable reports whether err is transient and the operation may
// succeed on retry. Timeouts are retryable; lock contention is not (the
// unit is simply skipped this pass).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var c classifier
	if As(err, &c) {
		return c.IsRetryable()
	}

	var te *TimeoutError
	if As(err, &te) {
		return true
	}
	return Is(err, ErrTimeout)
}

// IsRetryable on baseError satisfies classifier for the domain types.
func (e *baseError) IsRetryable() bool { return e.retryable }

// Severity on baseError satisfies classifier for the domain types.
func (e *baseError) Severity() Severity { return e.severity }

// SeverityOf returns the severity of err, defaulting to SeverityError
// for unclassified errors.
func SeverityOf(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var c classifier
	if As(err, &c) {
		return c.Severity()
	}
	return SeverityError
}
