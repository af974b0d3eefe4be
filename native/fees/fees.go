package fees

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"fusionswap/core/checked"
	coreerrors "fusionswap/core/errors"
)

const (
	// RateScale is the denominator of protocol and integrator fee rates.
	RateScale uint64 = 100_000
	// ShareScale is the denominator of the protocol's surplus share.
	ShareScale uint64 = 100
)

// ErrInvalidConfig is returned when a fee configuration is out of range or
// routes a nonzero fee to an unset payout identity.
var ErrInvalidConfig = coreerrors.New(coreerrors.ErrValidation, "fees: invalid fee config")

// Config captures the fee terms negotiated for a single order.
type Config struct {
	ProtocolFee            uint16         `json:"protocolFee" yaml:"protocolFee"`
	IntegratorFee          uint16         `json:"integratorFee" yaml:"integratorFee"`
	SurplusPercentage      uint8          `json:"surplusPercentage" yaml:"surplusPercentage"`
	MaxCancellationPremium uint64         `json:"maxCancellationPremium" yaml:"maxCancellationPremium"`
	ProtocolPayout         common.Address `json:"protocolPayout" yaml:"protocolPayout"`
	IntegratorPayout       common.Address `json:"integratorPayout" yaml:"integratorPayout"`
}

// Validate checks that the combined fee rates are nonzero and stay within 100%
// once expressed on the same scale, and that every nonzero fee has somewhere
// to go.
func (c Config) Validate() error {
	if uint64(c.SurplusPercentage) > ShareScale {
		return fmt.Errorf("%w: surplus share %d exceeds %d", ErrInvalidConfig, c.SurplusPercentage, ShareScale)
	}
	if c.TotalRate() == 0 {
		return fmt.Errorf("%w: protocol fee, integrator fee and surplus share are all zero", ErrInvalidConfig)
	}
	if c.TotalRate() > RateScale {
		return fmt.Errorf("%w: protocol %d + integrator %d + surplus %d%% exceeds 100%%", ErrInvalidConfig, c.ProtocolFee, c.IntegratorFee, c.SurplusPercentage)
	}
	if (c.ProtocolFee > 0 || c.SurplusPercentage > 0) && c.ProtocolPayout == (common.Address{}) {
		return fmt.Errorf("%w: protocol payout required", ErrInvalidConfig)
	}
	if c.IntegratorFee > 0 && c.IntegratorPayout == (common.Address{}) {
		return fmt.Errorf("%w: integrator payout required", ErrInvalidConfig)
	}
	return nil
}

// TotalRate returns protocol fee, integrator fee and surplus share combined on
// the RateScale.
func (c Config) TotalRate() uint64 {
	return uint64(c.ProtocolFee) + uint64(c.IntegratorFee) + uint64(c.SurplusPercentage)*(RateScale/ShareScale)
}

// SplitInput carries the amounts a fill settles. Estimated must have been put
// through the same auction adjustment as Actual.
type SplitInput struct {
	IntegratorFee     uint16
	ProtocolFee       uint16
	SurplusPercentage uint8
	Actual            uint64
	Estimated         uint64
}

// SplitResult summarises how a settled destination amount is divided.
type SplitResult struct {
	// ProtocolFee includes SurplusFee.
	ProtocolFee   uint64
	SurplusFee    uint64
	IntegratorFee uint64
	MakerAmount   uint64
}

// Split divides the actual destination amount between the integrator, the
// protocol and the maker. Fees round down; any amount above the estimate is
// surplus and the protocol takes its configured share of it.
func Split(input SplitInput) (SplitResult, error) {
	var result SplitResult
	integratorFee, err := checked.MulDivFloor(input.Actual, uint64(input.IntegratorFee), RateScale)
	if err != nil {
		return result, err
	}
	protocolFee, err := checked.MulDivFloor(input.Actual, uint64(input.ProtocolFee), RateScale)
	if err != nil {
		return result, err
	}
	if input.Actual > input.Estimated {
		surplus, err := checked.MulDivFloor(input.Actual-input.Estimated, uint64(input.SurplusPercentage), ShareScale)
		if err != nil {
			return result, err
		}
		result.SurplusFee = surplus
		if protocolFee, err = checked.Add(protocolFee, surplus); err != nil {
			return SplitResult{}, err
		}
	}
	maker, err := checked.Sub(input.Actual, protocolFee)
	if err != nil {
		return SplitResult{}, err
	}
	if maker, err = checked.Sub(maker, integratorFee); err != nil {
		return SplitResult{}, err
	}
	result.ProtocolFee = protocolFee
	result.IntegratorFee = integratorFee
	result.MakerAmount = maker
	return result, nil
}
