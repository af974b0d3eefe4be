package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestClassifiedMatchesItselfAndClass(t *testing.T) {
	errThing := New(ErrValidation, "thing: bad")
	wrapped := fmt.Errorf("create: %w", errThing)

	if !stderrors.Is(wrapped, errThing) {
		t.Fatalf("expected wrapped error to match sentinel")
	}
	if !stderrors.Is(wrapped, ErrValidation) {
		t.Fatalf("expected wrapped error to match its class")
	}
	if stderrors.Is(wrapped, ErrLedger) {
		t.Fatalf("did not expect ledger class match")
	}
	if got := ClassName(wrapped); got != "validation" {
		t.Fatalf("unexpected class name %q", got)
	}
}

func TestOverflowIsArithmetic(t *testing.T) {
	if Class(ErrOverflow) != ErrArithmetic {
		t.Fatalf("overflow must be an arithmetic error")
	}
	if ClassName(stderrors.New("plain")) != "unknown" {
		t.Fatalf("plain errors have no class")
	}
}
