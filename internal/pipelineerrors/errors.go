// Package pipelineerrors defines the error taxonomy processors and the
// workflow engine classify failures into, so the engine can decide retry
// vs. fail-job without inspecting processor-specific error strings.
package pipelineerrors

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Processors and the activity runner wrap one of these
// with fmt.Errorf("...: %w", KindX) rather than returning bare strings, so
// errors.Is classification works all the way up through the engine.
var (
	// ErrConfiguration means the processor's step config or its returned
	// output failed schema validation, or the step references a
	// dependency/credential that does not exist. Not retryable: re-running
	// the same step produces the same error.
	ErrConfiguration = errors.New("pipeline: configuration error")

	// ErrDependencyNotSatisfied means a prior step this step declared a
	// dependency on has not produced output yet (or failed). Not
	// retryable by the engine directly; resolved by the prior step
	// completing or the job failing.
	ErrDependencyNotSatisfied = errors.New("pipeline: dependency not satisfied")

	// ErrInput means the document or a prior step's output did not match
	// what this processor expects. Not retryable.
	ErrInput = errors.New("pipeline: input error")

	// ErrCredential means credential resolution failed: missing,
	// expired, or rejected by the upstream provider. Not retryable
	// without operator intervention.
	ErrCredential = errors.New("pipeline: credential error")

	// ErrTransient means the processor hit a retryable condition:
	// timeout, upstream 5xx, connection reset. Retryable per the step's
	// backoff policy.
	ErrTransient = errors.New("pipeline: transient error")

	// ErrCallbackPending means the processor suspended the step pending
	// an external signal (e.g. a KYC provider webhook). Not a failure;
	// the activity runner treats it as "park this step" rather than
	// "retry" or "fail".
	ErrCallbackPending = errors.New("pipeline: callback pending")

	// ErrCancelled means the job was cancelled while this step was
	// running. Not retryable.
	ErrCancelled = errors.New("pipeline: cancelled")
)

// ConfigurationError wraps ErrConfiguration with the offending detail.
func ConfigurationError(detail string) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, detail)
}

// DependencyNotSatisfiedError wraps ErrDependencyNotSatisfied, naming the
// unmet processor slug.
func DependencyNotSatisfiedError(slug string) error {
	return fmt.Errorf("%w: %s", ErrDependencyNotSatisfied, slug)
}

// InputError wraps ErrInput with the offending detail.
func InputError(detail string) error {
	return fmt.Errorf("%w: %s", ErrInput, detail)
}

// CredentialError wraps ErrCredential with the offending detail.
func CredentialError(detail string) error {
	return fmt.Errorf("%w: %s", ErrCredential, detail)
}

// TransientError wraps ErrTransient, preserving the underlying cause.
func TransientError(cause error) error {
	return fmt.Errorf("%w: %v", ErrTransient, cause)
}

// CallbackDetail carries the signal name and external transaction id a
// processor suspended on. The activity runner recovers it from the
// returned error via errors.As to know which CallbackMapping to write.
type CallbackDetail struct {
	Signal        string
	TransactionID string
}

func (d *CallbackDetail) Error() string {
	return fmt.Sprintf("pipeline: callback pending: waiting on signal %q (transaction %q)", d.Signal, d.TransactionID)
}

func (d *CallbackDetail) Unwrap() error { return ErrCallbackPending }

// CallbackPendingError wraps ErrCallbackPending, naming the signal the
// step is waiting on and the external transaction id that will resolve
// it.
func CallbackPendingError(signal, transactionID string) error {
	return &CallbackDetail{Signal: signal, TransactionID: transactionID}
}

// CancelledError wraps ErrCancelled.
func CancelledError() error {
	return fmt.Errorf("%w", ErrCancelled)
}

// IsRetryable reports whether the activity runner should retry the step
// that produced err per its backoff policy, rather than failing the job
// or parking it for a callback.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrTransient):
		return true
	case errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrDependencyNotSatisfied),
		errors.Is(err, ErrInput),
		errors.Is(err, ErrCredential),
		errors.Is(err, ErrCallbackPending),
		errors.Is(err, ErrCancelled):
		return false
	default:
		// Unclassified errors from a processor are treated as
		// transient: a panic recovery or an unexpected stdlib error is
		// more often a blip than a permanent misconfiguration.
		return true
	}
}

// IsCallbackPending reports whether err means the step suspended waiting
// on an external signal rather than failing.
func IsCallbackPending(err error) bool {
	return errors.Is(err, ErrCallbackPending)
}

// IsCancelled reports whether err means the job was cancelled mid-step.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
