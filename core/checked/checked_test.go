package checked

import (
	"errors"
	"math"
	"testing"

	coreerrors "fusionswap/core/errors"
)

func TestAddSubOverflow(t *testing.T) {
	if _, err := Add(math.MaxUint64, 1); !errors.Is(err, coreerrors.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if got, err := Add(40, 2); err != nil || got != 42 {
		t.Fatalf("unexpected add result %d, %v", got, err)
	}
	if _, err := Sub(1, 2); !errors.Is(err, coreerrors.ErrArithmetic) {
		t.Fatalf("expected underflow, got %v", err)
	}
	if got, err := Sub(5, 5); err != nil || got != 0 {
		t.Fatalf("unexpected sub result %d, %v", got, err)
	}
}

func TestMulDivRounding(t *testing.T) {
	cases := []struct {
		a, b, d     uint64
		floor, ceil uint64
	}{
		{10, 3, 4, 7, 8},
		{2_000_000, 500_000, 1_000_000, 1_000_000, 1_000_000},
		{1, 1, 3, 0, 1},
		{math.MaxUint64, 2, 2, math.MaxUint64, math.MaxUint64},
	}
	for _, tc := range cases {
		floor, err := MulDivFloor(tc.a, tc.b, tc.d)
		if err != nil || floor != tc.floor {
			t.Fatalf("floor(%d*%d/%d) = %d, %v; want %d", tc.a, tc.b, tc.d, floor, err, tc.floor)
		}
		ceil, err := MulDivCeil(tc.a, tc.b, tc.d)
		if err != nil || ceil != tc.ceil {
			t.Fatalf("ceil(%d*%d/%d) = %d, %v; want %d", tc.a, tc.b, tc.d, ceil, err, tc.ceil)
		}
	}
}

func TestMulDivOverflowAndZeroDivisor(t *testing.T) {
	if _, err := MulDivFloor(math.MaxUint64, 3, 2); !errors.Is(err, coreerrors.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := MulDivCeil(math.MaxUint64, 3, 3); err != nil {
		t.Fatalf("exact division should fit: %v", err)
	}
	if _, err := MulDivCeil(1, 1, 0); !errors.Is(err, coreerrors.ErrOverflow) {
		t.Fatalf("expected zero divisor to fail, got %v", err)
	}
}

func TestMin(t *testing.T) {
	if Min(5, 9, 2, 7) != 2 {
		t.Fatalf("unexpected min")
	}
	if Min(3) != 3 {
		t.Fatalf("single value min")
	}
}
