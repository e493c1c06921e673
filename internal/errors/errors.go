// Package errors provides centralized error definitions and error handling
// utilities for the orchestrator core. It defines domain-specific errors,
// semantic error types mapped onto the closed failure taxonomy, error
// constructors with context wrapping, and classification helpers.
//
// # Error Types
//
// Domain-specific errors represent errors raised by a particular subsystem:
//   - TaskError: errors tied to a specific task/phase/agent
//   - RegistryError: errors from agent registration and dependency resolution
//   - ProviderError: errors returned by an AI provider implementation
//   - StoreError: errors from the event store
//
// Semantic errors map directly onto the ten-member failure taxonomy:
// validation, not_found, conflict, unresolvable, transient, timeout,
// cancelled, cost_exceeded, provider, internal.
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewTaskError("phase failed", cause).WithTaskID("t-1").WithPhase("test")
//	err := errors.NewNotFoundError("task", "t-1")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrTaskNotFound) { ... }
//	var taskErr *errors.TaskError
//	if errors.As(err, &taskErr) { ... }
//	if errors.IsRetryable(err) { ... }
//	if errors.Classify(err) == errors.ClassCostExceeded { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience so callers only need
// to import this package for error construction and inspection.
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
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityCritical
)

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

// Class is the closed failure taxonomy from the error-handling design.
// Every error surfaced across an aggregate boundary classifies into exactly
// one of these.
type Class string

const (
	ClassValidation   Class = "validation"
	ClassNotFound     Class = "not_found"
	ClassConflict     Class = "conflict"
	ClassUnresolvable Class = "unresolvable"
	ClassTransient    Class = "transient"
	ClassTimeout      Class = "timeout"
	ClassCancelled    Class = "cancelled"
	ClassCostExceeded Class = "cost_exceeded"
	ClassProvider     Class = "provider"
	ClassInternal     Class = "internal"
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Task/phase/orchestration sentinel errors.
var (
	ErrTaskNotFound     = New("task not found")
	ErrPhaseNotFound    = New("phase not found")
	ErrPlanInvalid      = New("plan is invalid")
	ErrTaskNotCancelled = New("task is not in a cancellable state")
	ErrTaskNotFailed    = New("task is not in a retryable (failed) state")
	ErrDependencyCycle  = New("dependency cycle detected")
)

// Registry sentinel errors.
var (
	ErrAgentAlreadyRegistered = New("agent already registered")
	ErrAgentNotRegistered     = New("agent not registered")
	ErrAgentActive            = New("agent is active and cannot be unregistered")
	ErrConcurrencyCapReached  = New("concurrency cap reached")
	ErrUnresolvableDependency = New("unresolvable dependency")
)

// Mode manager sentinel errors.
var (
	ErrModeSwitchBusy = New("mode switch already in progress")
	ErrUnknownMode    = New("unknown mode")
	ErrMaxListeners   = New("maximum listener count reached")
)

// Event store sentinel errors.
var (
	ErrVersionConflict  = New("version conflict")
	ErrAggregateEmpty   = New("aggregate has no events")
	ErrSnapshotNotFound = New("snapshot not found")
)

// General sentinel errors.
var (
	ErrTimeout      = New("operation timed out")
	ErrCancelled    = New("operation cancelled")
	ErrInvalidInput = New("invalid input")
	ErrCostExceeded = New("cost cap exceeded")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// TypedError is the base interface for all orchestrator errors. It extends
// the standard error interface with classification used for retry policy,
// user-facing display decisions, and logging severity.
type TypedError interface {
	error

	Unwrap() error
	Is(target error) bool
	Severity() Severity
	IsRetryable() bool
	IsUserFacing() bool
	Class() Class
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
	class      Class
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error { return e.cause }

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) IsRetryable() bool  { return e.retryable }
func (e *baseError) IsUserFacing() bool { return e.userFacing }
func (e *baseError) Class() Class       { return e.class }

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// TaskError represents a failure tied to a specific task, phase, or subtask.
//
// Example:
//
//	err := errors.NewTaskError("subtask failed", cause).WithTaskID("t-1").WithPhase("test").WithAgent("test")
type TaskError struct {
	baseError
	TaskID string
	Phase  string
	Agent  string
}

// NewTaskError creates a TaskError classified as internal by default; use
// WithClass to override.
func NewTaskError(message string, cause error) *TaskError {
	return &TaskError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
			class:      ClassInternal,
		},
	}
}

func (e *TaskError) WithTaskID(id string) *TaskError    { e.TaskID = id; return e }
func (e *TaskError) WithPhase(phase string) *TaskError  { e.Phase = phase; return e }
func (e *TaskError) WithAgent(agent string) *TaskError  { e.Agent = agent; return e }
func (e *TaskError) WithSeverity(s Severity) *TaskError { e.severity = s; return e }
func (e *TaskError) WithRetryable(r bool) *TaskError    { e.retryable = r; return e }
func (e *TaskError) WithClass(c Class) *TaskError       { e.class = c; return e }

func (e *TaskError) Error() string {
	var parts []string
	if e.TaskID != "" {
		parts = append(parts, fmt.Sprintf("task=%s", e.TaskID))
	}
	if e.Phase != "" {
		parts = append(parts, fmt.Sprintf("phase=%s", e.Phase))
	}
	if e.Agent != "" {
		parts = append(parts, fmt.Sprintf("agent=%s", e.Agent))
	}

	prefix := "task error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("task error [%s]", strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

func (e *TaskError) Is(target error) bool {
	if _, ok := target.(*TaskError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// RegistryError represents a failure in agent registration or dependency
// resolution.
//
// Example:
//
//	err := errors.NewRegistryError("cycle in dependency graph", errors.ErrDependencyCycle).WithAgentType("deploy")
type RegistryError struct {
	baseError
	AgentType string
}

func NewRegistryError(message string, cause error) *RegistryError {
	return &RegistryError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
			class:      ClassUnresolvable,
		},
	}
}

func (e *RegistryError) WithAgentType(t string) *RegistryError  { e.AgentType = t; return e }
func (e *RegistryError) WithClass(c Class) *RegistryError       { e.class = c; return e }
func (e *RegistryError) WithSeverity(s Severity) *RegistryError { e.severity = s; return e }

func (e *RegistryError) Error() string {
	prefix := "registry error"
	if e.AgentType != "" {
		prefix = fmt.Sprintf("registry error [agent=%s]", e.AgentType)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

func (e *RegistryError) Is(target error) bool {
	if _, ok := target.(*RegistryError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ProviderError represents an error returned by an AI provider implementation,
// including a non-stop finish reason.
//
// Example:
//
//	err := errors.NewProviderError("generation failed", cause).WithModel("claude-opus-4-5").WithFinishReason("error")
type ProviderError struct {
	baseError
	Model        string
	FinishReason string
}

func NewProviderError(message string, cause error) *ProviderError {
	return &ProviderError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
			class:      ClassProvider,
		},
	}
}

func (e *ProviderError) WithModel(m string) *ProviderError        { e.Model = m; return e }
func (e *ProviderError) WithFinishReason(r string) *ProviderError { e.FinishReason = r; return e }
func (e *ProviderError) WithRetryable(r bool) *ProviderError      { e.retryable = r; return e }

func (e *ProviderError) Error() string {
	var parts []string
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}
	if e.FinishReason != "" {
		parts = append(parts, fmt.Sprintf("finish_reason=%s", e.FinishReason))
	}
	prefix := "provider error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("provider error [%s]", strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

func (e *ProviderError) Is(target error) bool {
	if _, ok := target.(*ProviderError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// StoreError represents a failure in the event store (version conflicts,
// missing aggregates, snapshot I/O).
type StoreError struct {
	baseError
	AggregateID string
	Version     int64
}

func NewStoreError(message string, cause error) *StoreError {
	return &StoreError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: false,
			class:      ClassInternal,
		},
	}
}

func (e *StoreError) WithAggregateID(id string) *StoreError { e.AggregateID = id; return e }
func (e *StoreError) WithVersion(v int64) *StoreError       { e.Version = v; return e }
func (e *StoreError) WithClass(c Class) *StoreError         { e.class = c; return e }

func (e *StoreError) Error() string {
	var parts []string
	if e.AggregateID != "" {
		parts = append(parts, fmt.Sprintf("aggregate=%s", e.AggregateID))
	}
	if e.Version != 0 {
		parts = append(parts, fmt.Sprintf("version=%d", e.Version))
	}
	prefix := "store error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("store error [%s]", strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

func (e *StoreError) Is(target error) bool {
	if _, ok := target.(*StoreError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors (one per taxonomy member not already covered above)
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
			class:      ClassNotFound,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

func (e *NotFoundError) WithCause(cause error) *NotFoundError { e.cause = cause; return e }

func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ConflictError represents a duplicate version, duplicate registration, or
// an in-progress mode switch.
type ConflictError struct {
	baseError
	Resource string
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
			class:      ClassConflict,
		},
	}
}

func (e *ConflictError) WithResource(r string) *ConflictError { e.Resource = r; return e }
func (e *ConflictError) WithCause(cause error) *ConflictError { e.cause = cause; return e }

func (e *ConflictError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("conflict [%s]: %s", e.Resource, e.message)
	}
	return fmt.Sprintf("conflict: %s", e.message)
}

func (e *ConflictError) Is(target error) bool {
	if _, ok := target.(*ConflictError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or result state.
type ValidationError struct {
	baseError
	Field string
	Value any
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
			class:      ClassValidation,
		},
	}
}

func (e *ValidationError) WithField(field string) *ValidationError { e.Field = field; return e }
func (e *ValidationError) WithValue(value any) *ValidationError    { e.Value = value; return e }
func (e *ValidationError) WithCause(cause error) *ValidationError  { e.cause = cause; return e }

func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that exceeded its wall-clock budget.
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
			class:      ClassTimeout,
		},
		Operation: operation,
		Duration:  duration,
	}
}

func (e *TimeoutError) WithCause(cause error) *TimeoutError { e.cause = cause; return e }
func (e *TimeoutError) WithRetryable(r bool) *TimeoutError  { e.retryable = r; return e }

func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// CancelledError represents a user-requested or cascaded cancellation.
type CancelledError struct {
	baseError
	TaskID string
}

func NewCancelledError(taskID string) *CancelledError {
	return &CancelledError{
		baseError: baseError{
			message:    "operation cancelled",
			severity:   SeverityInfo,
			retryable:  false,
			userFacing: true,
			class:      ClassCancelled,
		},
		TaskID: taskID,
	}
}

func (e *CancelledError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("cancelled [task=%s]: %s", e.TaskID, e.message)
	}
	return e.message
}

func (e *CancelledError) Is(target error) bool {
	if _, ok := target.(*CancelledError); ok {
		return true
	}
	if errors.Is(target, ErrCancelled) {
		return true
	}
	return e.baseError.Is(target)
}

// TransientError represents a provider rate limit or network hiccup that the
// retry loop may absorb.
type TransientError struct {
	baseError
}

func NewTransientError(message string, cause error) *TransientError {
	return &TransientError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: false,
			class:      ClassTransient,
		},
	}
}

func (e *TransientError) Is(target error) bool {
	if _, ok := target.(*TransientError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// CostExceededError represents the cost cap being crossed mid-task.
type CostExceededError struct {
	baseError
	TaskID   string
	Limit    float64
	Incurred float64
}

func NewCostExceededError(taskID string, limit, incurred float64) *CostExceededError {
	return &CostExceededError{
		baseError: baseError{
			message:    "cost cap exceeded",
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
			class:      ClassCostExceeded,
		},
		TaskID:   taskID,
		Limit:    limit,
		Incurred: incurred,
	}
}

func (e *CostExceededError) Error() string {
	return fmt.Sprintf("cost cap exceeded [task=%s]: incurred %.6f > limit %.6f", e.TaskID, e.Incurred, e.Limit)
}

func (e *CostExceededError) Is(target error) bool {
	if _, ok := target.(*CostExceededError); ok {
		return true
	}
	if errors.Is(target, ErrCostExceeded) {
		return true
	}
	return e.baseError.Is(target)
}

// InternalError represents an invariant violation. It is always logged with
// full context and never shown to end users.
type InternalError struct {
	baseError
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityCritical,
			retryable:  false,
			userFacing: false,
			class:      ClassInternal,
		},
	}
}

func (e *InternalError) Is(target error) bool {
	if _, ok := target.(*InternalError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var typed TypedError
	if As(err, &typed) {
		return typed.IsRetryable()
	}
	return Is(err, ErrTimeout)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var typed TypedError
	if As(err, &typed) {
		return typed.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error, defaulting to
// SeverityError for plain errors.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var typed TypedError
	if As(err, &typed) {
		return typed.Severity()
	}
	return SeverityError
}

// Classify maps an error onto the closed failure taxonomy. Plain errors
// (not implementing TypedError) classify as ClassInternal.
func Classify(err error) Class {
	if err == nil {
		return ""
	}
	var typed TypedError
	if As(err, &typed) {
		return typed.Class()
	}
	return ClassInternal
}

// Wrap wraps an error with additional context message using the standard
// %w verb, preserving Is/As compatibility.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
