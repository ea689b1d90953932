package pipelineerrors

import (
	"errors"
	"testing"
)

func TestIsRetryableClassifiesKnownKinds(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"transient", TransientError(errors.New("timeout")), true},
		{"configuration", ConfigurationError("bad schema"), false},
		{"dependency", DependencyNotSatisfiedError("ocr"), false},
		{"input", InputError("missing field"), false},
		{"credential", CredentialError("expired token"), false},
		{"callback-pending", CallbackPendingError("kyc-approved", "txn-1"), false},
		{"cancelled", CancelledError(), false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsRetryable(c.err); got != c.retryable {
				t.Errorf("IsRetryable(%v) = %v, want %v", c.err, got, c.retryable)
			}
		})
	}
}

func TestIsRetryableDefaultsUnclassifiedToTrue(t *testing.T) {
	if !IsRetryable(errors.New("something unexpected")) {
		t.Error("expected unclassified error to default to retryable")
	}
}

func TestWrappedErrorsSatisfyErrorsIs(t *testing.T) {
	err := DependencyNotSatisfiedError("ocr")
	if !errors.Is(err, ErrDependencyNotSatisfied) {
		t.Error("expected DependencyNotSatisfiedError to wrap ErrDependencyNotSatisfied")
	}
}

func TestIsCallbackPending(t *testing.T) {
	if !IsCallbackPending(CallbackPendingError("kyc-approved", "txn-1")) {
		t.Error("expected CallbackPendingError to report as callback-pending")
	}
	if IsCallbackPending(ConfigurationError("bad")) {
		t.Error("expected configuration error not to report as callback-pending")
	}
}

func TestCallbackDetailRecoverableViaErrorsAs(t *testing.T) {
	err := CallbackPendingError("kyc-approved", "txn-42")

	var detail *CallbackDetail
	if !errors.As(err, &detail) {
		t.Fatal("expected errors.As to recover *CallbackDetail")
	}
	if detail.Signal != "kyc-approved" || detail.TransactionID != "txn-42" {
		t.Errorf("unexpected detail: %+v", detail)
	}
}

func TestIsCancelled(t *testing.T) {
	if !IsCancelled(CancelledError()) {
		t.Error("expected CancelledError to report as cancelled")
	}
	if IsCancelled(TransientError(errors.New("timeout"))) {
		t.Error("expected transient error not to report as cancelled")
	}
}
