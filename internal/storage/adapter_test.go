package storage

import (
	"context"
	"errors"
	"testing"
)

type fakeLocator struct {
	executionID string
	err         error
}

func (f *fakeLocator) LatestCompletedExecutionID(ctx context.Context, documentID, processorCategory string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.executionID, nil
}

func TestArtifactPathConvention(t *testing.T) {
	got := ArtifactPath("exec-123", "extracted-text")
	want := "executions/exec-123/extracted-text"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestLatestArtifactPath(t *testing.T) {
	a := NewAdapter(nil, &fakeLocator{executionID: "exec-123"})
	path, err := a.LatestArtifactPath(context.Background(), "doc-1", "ocr", "extracted-text")
	if err != nil {
		t.Fatalf("latest artifact path: %v", err)
	}
	if path != "executions/exec-123/extracted-text" {
		t.Errorf("unexpected path: %q", path)
	}
}

func TestLatestArtifactPathWithoutLocatorErrors(t *testing.T) {
	a := NewAdapter(nil, nil)
	if _, err := a.LatestArtifactPath(context.Background(), "doc-1", "ocr", "extracted-text"); err == nil {
		t.Fatal("expected error when no locator is configured")
	}
}

func TestLatestArtifactPathPropagatesLocatorError(t *testing.T) {
	locErr := errors.New("no completed execution found")
	a := NewAdapter(nil, &fakeLocator{err: locErr})
	if _, err := a.LatestArtifactPath(context.Background(), "doc-1", "ocr", "extracted-text"); !errors.Is(err, locErr) {
		t.Errorf("expected locator error to propagate, got %v", err)
	}
}
