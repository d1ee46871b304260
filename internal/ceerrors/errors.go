// Package ceerrors implements the CE cycle's error taxonomy (spec.md §7),
// generalized from the ChaosError/ErrorType classification pattern in
// neogan74/k8s-chaos's internal/controller/errors.go from one source
// (Kubernetes API errors) to the engine's eight error kinds.
package ceerrors

import "fmt"

// Kind categorizes a CE-cycle error for retry/propagation policy.
type Kind string

const (
	// TransientInfra covers API timeouts and rate-limits: retry with
	// backoff, capped.
	TransientInfra Kind = "transient_infra"
	// ValidationFail covers dry-run rejection and non-zero unit-test exit:
	// re-prompt the oracle with the error, retry bounded by max_retries.
	ValidationFail Kind = "validation_fail"
	// SchemaFail covers malformed oracle JSON: re-prompt once, then fail
	// the phase.
	SchemaFail Kind = "schema_fail"
	// BudgetExceeded covers any retry counter reaching its cap: fail the
	// cycle with the snapshot preserved.
	BudgetExceeded Kind = "budget_exceeded"
	// WorkflowDeadline covers a workflow that ran past its total deadline.
	WorkflowDeadline Kind = "workflow_deadline"
	// DeployFail covers the deploy tool exiting non-zero: treated as a
	// ValidationFail against the reconfiguration.
	DeployFail Kind = "deploy_fail"
	// UserCancel covers an externally requested cancellation.
	UserCancel Kind = "user_cancel"
	// Internal covers contract violations: fatal, never retried.
	Internal Kind = "internal"
)

// CEError wraps an underlying error with the taxonomy classification plus
// enough context for a re-prompt or a user-visible snapshot summary.
type CEError struct {
	Kind      Kind
	Component string
	Operation string
	Original  error
	// MissingTasks is populated for WorkflowDeadline errors, naming the
	// workflow_name of every task that never reached a terminal state.
	MissingTasks []string
}

func (e *CEError) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s failed during %s", e.Kind, e.Component, e.Operation)
	if e.Original != nil {
		base = fmt.Sprintf("%s: %v", base, e.Original)
	}
	if len(e.MissingTasks) > 0 {
		base = fmt.Sprintf("%s (missing tasks: %v)", base, e.MissingTasks)
	}
	return base
}

func (e *CEError) Unwrap() error { return e.Original }

// Retriable reports whether the engine's per-phase retry loop should
// re-attempt after this error, as opposed to propagating it.
func (e *CEError) Retriable() bool {
	switch e.Kind {
	case TransientInfra, ValidationFail, DeployFail:
		return true
	case SchemaFail:
		return true // exactly once, enforced by the caller's retry cap
	default:
		return false
	}
}

// New constructs a classified CEError.
func New(kind Kind, component, operation string, original error) *CEError {
	return &CEError{Kind: kind, Component: component, Operation: operation, Original: original}
}

// Workflow builds a WorkflowDeadline error naming the tasks that never
// reached a terminal state.
func Workflow(component, operation string, missing []string) *CEError {
	return &CEError{Kind: WorkflowDeadline, Component: component, Operation: operation, MissingTasks: missing}
}

// BudgetExceededErr builds a BudgetExceeded error for a retry counter that
// reached its configured cap.
func BudgetExceededErr(component, operation string, attempts, cap int) *CEError {
	return &CEError{
		Kind:      BudgetExceeded,
		Component: component,
		Operation: operation,
		Original:  fmt.Errorf("exhausted %d/%d attempts", attempts, cap),
	}
}
