// Package checked implements overflow-checked uint64 arithmetic. Intermediate
// products are evaluated in 256-bit precision so mul-div helpers never lose
// precision, and every result that does not fit a uint64 is reported as
// errors.ErrOverflow instead of wrapping.
package checked

import (
	"fmt"

	"github.com/holiman/uint256"

	coreerrors "fusionswap/core/errors"
)

// Add returns a+b.
func Add(a, b uint64) (uint64, error) {
	sum, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !sum.IsUint64() {
		return 0, fmt.Errorf("add %d+%d: %w", a, b, coreerrors.ErrOverflow)
	}
	return sum.Uint64(), nil
}

// Sub returns a-b and fails when b exceeds a.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, fmt.Errorf("sub %d-%d: %w", a, b, coreerrors.ErrOverflow)
	}
	return a - b, nil
}

// MulDivFloor returns floor(a*b/d).
func MulDivFloor(a, b, d uint64) (uint64, error) {
	quo, _, err := mulDiv(a, b, d)
	if err != nil {
		return 0, err
	}
	return quo.Uint64(), nil
}

// MulDivCeil returns ceil(a*b/d).
func MulDivCeil(a, b, d uint64) (uint64, error) {
	quo, rem, err := mulDiv(a, b, d)
	if err != nil {
		return 0, err
	}
	if !rem.IsZero() {
		if quo.Uint64() == ^uint64(0) {
			return 0, fmt.Errorf("mul-div ceil %d*%d/%d: %w", a, b, d, coreerrors.ErrOverflow)
		}
		return quo.Uint64() + 1, nil
	}
	return quo.Uint64(), nil
}

func mulDiv(a, b, d uint64) (*uint256.Int, *uint256.Int, error) {
	if d == 0 {
		return nil, nil, fmt.Errorf("mul-div by zero: %w", coreerrors.ErrOverflow)
	}
	product := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	divisor := uint256.NewInt(d)
	quo := new(uint256.Int).Div(product, divisor)
	if !quo.IsUint64() {
		return nil, nil, fmt.Errorf("mul-div %d*%d/%d: %w", a, b, d, coreerrors.ErrOverflow)
	}
	rem := new(uint256.Int).Mod(product, divisor)
	return quo, rem, nil
}

// Min returns the smallest of the supplied values.
func Min(first uint64, rest ...uint64) uint64 {
	out := first
	for _, v := range rest {
		if v < out {
			out = v
		}
	}
	return out
}
