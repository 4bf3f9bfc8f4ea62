package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/toyinlola/commitgroup/internal/errkind"
)

func TestDo_RetriesNetworkErrorsThenSucceeds(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), 3, func() error {
		attempts++
		if attempts < 2 {
			return errkind.New(errkind.Network, "connecting", errors.New("refused"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestDo_NeverRetriesDiffFormatErrors(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), 3, func() error {
		attempts++
		return errkind.New(errkind.DiffFormat, "parsing", errors.New("bad hunk"))
	})
	if err == nil {
		t.Fatal("expected error to surface")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry for non-transient kind)", attempts)
	}
}

func TestDo_SurfacesLastErrorAfterExhaustingAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), 2, func() error {
		attempts++
		return errkind.New(errkind.Network, "connecting", errors.New("refused"))
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}
