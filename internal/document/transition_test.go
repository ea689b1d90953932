package document

import "testing"

func TestTransitionHappyPath(t *testing.T) {
	d := &Document{Status: StatusPending}

	steps := []Status{StatusQueued, StatusProcessing, StatusCompleted}
	for _, to := range steps {
		if err := d.Transition(to); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}
	if d.ProcessedAt == nil {
		t.Error("expected processed_at to be set on entering completed")
	}
}

func TestTransitionBypassToProcessing(t *testing.T) {
	d := &Document{Status: StatusPending}
	if err := d.Transition(StatusProcessing); err != nil {
		t.Fatalf("expected pending->processing bypass to be allowed: %v", err)
	}
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	d := &Document{Status: StatusCompleted}
	err := d.Transition(StatusProcessing)
	if err == nil {
		t.Fatal("expected error transitioning out of a terminal state")
	}
	var invalidErr *ErrInvalidTransition
	if _, ok := err.(*ErrInvalidTransition); !ok {
		_ = invalidErr
		t.Fatalf("expected *ErrInvalidTransition, got %T", err)
	}
}

func TestTransitionIntoFailedSetsFailedAt(t *testing.T) {
	d := &Document{Status: StatusProcessing}
	if err := d.Transition(StatusFailed); err != nil {
		t.Fatalf("transition to failed: %v", err)
	}
	if d.FailedAt == nil {
		t.Error("expected failed_at to be set")
	}
}

func TestTransitionReentryIntoTerminalIsNoop(t *testing.T) {
	d := &Document{Status: StatusCompleted}
	if err := d.Transition(StatusCompleted); err != nil {
		t.Fatalf("expected re-entry into terminal state to be a no-op, got %v", err)
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	nonTerminal := []Status{StatusPending, StatusQueued, StatusProcessing}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
}
