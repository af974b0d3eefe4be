// Package auction implements the two time-based pricing curves used by the
// settlement engine: the Dutch-auction rate bump applied to fill prices and
// the linear cancellation premium paid to resolvers that reclaim expired
// orders. Everything here is a pure function of its arguments.
package auction

import (
	"fmt"
	"math"

	"fusionswap/core/checked"
	coreerrors "fusionswap/core/errors"
)

// BumpScale is the fixed-point denominator of rate bumps: a bump of BumpScale
// doubles the destination amount.
const BumpScale uint64 = 100_000

// ErrInvalidConfig is returned when an auction configuration cannot describe a
// well-formed decay curve.
var ErrInvalidConfig = coreerrors.New(coreerrors.ErrValidation, "auction: invalid config")

// Point is an intermediate checkpoint of the decay curve. TimeDelta is the
// distance in seconds from the previous checkpoint (or from the auction start
// for the first point).
type Point struct {
	RateBump  uint32 `json:"rateBump" yaml:"rateBump"`
	TimeDelta uint16 `json:"timeDelta" yaml:"timeDelta"`
}

// Config describes the Dutch auction applied to an order's fill price.
type Config struct {
	StartTime       int64   `json:"startTime" yaml:"startTime"`
	Duration        uint32  `json:"duration" yaml:"duration"`
	InitialRateBump uint32  `json:"initialRateBump" yaml:"initialRateBump"`
	Points          []Point `json:"points,omitempty" yaml:"points,omitempty"`
}

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	clone := c
	clone.Points = append([]Point(nil), c.Points...)
	return clone
}

// Validate checks that the checkpoints fit inside the auction window and
// keep the curve continuous: a checkpoint may not change the bump without
// time passing, and one that lands on the end of the window must reach zero.
func Validate(cfg Config) error {
	if cfg.StartTime < 0 || cfg.StartTime > math.MaxInt64-int64(cfg.Duration) {
		return fmt.Errorf("%w: start time %d out of range", ErrInvalidConfig, cfg.StartTime)
	}
	var offset uint64
	previous := cfg.InitialRateBump
	for i, point := range cfg.Points {
		offset += uint64(point.TimeDelta)
		if offset > uint64(cfg.Duration) {
			return fmt.Errorf("%w: point %d ends at +%ds beyond duration %ds", ErrInvalidConfig, i, offset, cfg.Duration)
		}
		if point.TimeDelta == 0 && point.RateBump != previous {
			return fmt.Errorf("%w: point %d jumps from %d to %d without a time delta", ErrInvalidConfig, i, previous, point.RateBump)
		}
		if offset == uint64(cfg.Duration) && point.RateBump != 0 {
			return fmt.Errorf("%w: point %d ends the auction at bump %d instead of zero", ErrInvalidConfig, i, point.RateBump)
		}
		previous = point.RateBump
	}
	return nil
}

// RateBump evaluates the decay curve at now. Before the auction starts the
// initial bump applies, after it finishes the bump is zero, and in between the
// value is interpolated linearly through the checkpoints. Without checkpoints
// the curve is a straight line from the initial bump down to zero.
func RateBump(now int64, cfg Config) uint64 {
	if now <= cfg.StartTime {
		return uint64(cfg.InitialRateBump)
	}
	finish := cfg.StartTime + int64(cfg.Duration)
	if now >= finish {
		return 0
	}
	t := uint64(now)
	currentBump := uint64(cfg.InitialRateBump)
	currentTime := uint64(cfg.StartTime)
	for _, point := range cfg.Points {
		nextBump := uint64(point.RateBump)
		delta := uint64(point.TimeDelta)
		nextTime := currentTime + delta
		if t <= nextTime {
			// t > currentTime here, so delta is never zero.
			return ((t-currentTime)*nextBump + (nextTime-t)*currentBump) / delta
		}
		currentBump = nextBump
		currentTime = nextTime
	}
	end := uint64(finish)
	return (end - t) * currentBump / (end - currentTime)
}

// ApplyBump scales base by (BumpScale+bump)/BumpScale rounding up, so rounding
// always favours the maker.
func ApplyBump(base, bump uint64) (uint64, error) {
	factor, err := checked.Add(BumpScale, bump)
	if err != nil {
		return 0, err
	}
	return checked.MulDivCeil(base, factor, BumpScale)
}

// DstAmount prices a fill of srcAmount out of an order exchanging srcTotal for
// dstTotal: the pro-rata share is rounded up and then bumped.
func DstAmount(srcTotal, dstTotal, srcAmount, bump uint64) (uint64, error) {
	base, err := checked.MulDivCeil(dstTotal, srcAmount, srcTotal)
	if err != nil {
		return 0, err
	}
	return ApplyBump(base, bump)
}

// CancellationPremium evaluates the linear cancellation incentive ramp. It is
// zero up to the expiration, grows linearly over duration seconds and stays at
// maxPremium afterwards.
func CancellationPremium(now, expiration int64, duration uint32, maxPremium uint64) uint64 {
	if now <= expiration {
		return 0
	}
	elapsed := uint64(now - expiration)
	if elapsed >= uint64(duration) {
		return maxPremium
	}
	// elapsed < duration, so the quotient is below maxPremium and always fits.
	premium, err := checked.MulDivFloor(elapsed, maxPremium, uint64(duration))
	if err != nil {
		return maxPremium
	}
	return premium
}
