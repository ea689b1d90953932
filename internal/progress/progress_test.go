package progress

import (
	"testing"
	"time"
)

func TestStepLifecycleAndFraction(t *testing.T) {
	p := &PipelineProgress{JobID: "job-1", TotalSteps: 2}

	p.StepStarted(0, "ocr", time.Now())
	if p.Steps[0].State != StepRunning {
		t.Fatalf("expected step 0 running, got %s", p.Steps[0].State)
	}
	if frac := p.Fraction(); frac != 0 {
		t.Errorf("expected fraction 0 before any completion, got %f", frac)
	}

	p.StepCompleted(0, time.Now())
	p.StepStarted(1, "classify", time.Now())
	if frac := p.Fraction(); frac != 0.5 {
		t.Errorf("expected fraction 0.5, got %f", frac)
	}

	p.StepFailed(1, time.Now(), "timeout")
	if p.Steps[1].State != StepFailed || p.Steps[1].Error != "timeout" {
		t.Errorf("expected step 1 failed with reason, got %+v", p.Steps[1])
	}
}

func TestFractionZeroStepsIsComplete(t *testing.T) {
	p := &PipelineProgress{JobID: "job-2", TotalSteps: 0}
	if frac := p.Fraction(); frac != 1 {
		t.Errorf("expected fraction 1 for zero-step pipeline, got %f", frac)
	}
}

func TestBusPublishSubscribe(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe("job-1", 4)

	b.Publish(Event{JobID: "job-1", Step: 0, State: StepRunning})
	b.Publish(Event{JobID: "other-job", Step: 0, State: StepRunning})

	select {
	case ev := <-sub:
		if ev.JobID != "job-1" {
			t.Errorf("expected event for job-1, got %s", ev.JobID)
		}
	default:
		t.Fatal("expected an event to be delivered")
	}

	select {
	case ev := <-sub:
		t.Fatalf("did not expect event from other-job, got %+v", ev)
	default:
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe("job-1", 1)
	b.Unsubscribe("job-1", sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
}

func TestBusPublishDropsWhenSubscriberBufferFull(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe("job-1", 1)

	b.Publish(Event{JobID: "job-1", Step: 0, State: StepRunning})
	b.Publish(Event{JobID: "job-1", Step: 1, State: StepRunning}) // should be dropped, not block

	count := 0
	for {
		select {
		case <-sub:
			count++
			continue
		default:
		}
		break
	}
	if count != 1 {
		t.Errorf("expected exactly 1 buffered event, got %d", count)
	}
}
