package engine

import (
	"fmt"
	"testing"
)

func TestErrorPredicates(t *testing.T) {
	if !IsTooBusy(tooBusyError{reason: "x"}) || IsTooBusy(fmt.Errorf("plain")) {
		t.Fatalf("IsTooBusy misclassified")
	}
	wrapped := fmt.Errorf("ctx: %w", ErrInvalidInput("bad %s", "bbox"))
	if !IsInvalidInput(wrapped) || wrapped.Error() != "ctx: bad bbox" {
		t.Fatalf("IsInvalidInput on wrapped error: %v", wrapped)
	}
	if !IsDependencyUnavailable(ErrDependencyUnavailable("vllm down")) {
		t.Fatalf("IsDependencyUnavailable false")
	}
}
