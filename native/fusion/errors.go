package fusion

import (
	"errors"
	"fmt"

	coreerrors "fusionswap/core/errors"
)

// Validation errors.
var (
	ErrInvalidExpiration      = coreerrors.New(coreerrors.ErrValidation, "fusion: invalid expiration")
	ErrInvalidFeeConfig       = coreerrors.New(coreerrors.ErrValidation, "fusion: invalid fee config")
	ErrInconsistentNativeFlag = coreerrors.New(coreerrors.ErrValidation, "fusion: inconsistent native flag")
	ErrInvalidAmount          = coreerrors.New(coreerrors.ErrValidation, "fusion: invalid amount")
	ErrInvalidReceiver        = coreerrors.New(coreerrors.ErrValidation, "fusion: invalid receiver")
	ErrInvalidAuction         = coreerrors.New(coreerrors.ErrValidation, "fusion: invalid auction config")
	ErrDuplicateOrder         = coreerrors.New(coreerrors.ErrValidation, "fusion: duplicate order")
	ErrOrderExpired           = coreerrors.New(coreerrors.ErrValidation, "fusion: order expired")
	ErrOrderNotExpired        = coreerrors.New(coreerrors.ErrValidation, "fusion: order not expired")
	ErrInsufficientRemaining  = coreerrors.New(coreerrors.ErrValidation, "fusion: insufficient remaining balance")
	ErrOrderHashMismatch      = coreerrors.New(coreerrors.ErrValidation, "fusion: order hash mismatch")
	ErrEscrowNotFound         = coreerrors.New(coreerrors.ErrValidation, "fusion: escrow not found")
	ErrNothingToCancel        = coreerrors.New(coreerrors.ErrValidation, "fusion: nothing to cancel")
	ErrCancellationForbidden  = coreerrors.New(coreerrors.ErrValidation, "fusion: cancellation by resolver forbidden")
)

// ErrUnauthorized is returned when the caller is neither the maker (where the
// maker is required) nor an authorized resolver.
var ErrUnauthorized = coreerrors.New(coreerrors.ErrAuthorization, "fusion: unauthorized")

// ErrArithmeticOverflow is returned when a fee, price or incentive computation
// would not fit its integer type.
var ErrArithmeticOverflow = coreerrors.ErrOverflow

var errNilHost = errors.New("fusion engine: host not configured")

func errInconsistentNative(side string, flag bool) error {
	return fmt.Errorf("%w: %s native flag %t disagrees with asset id", ErrInconsistentNativeFlag, side, flag)
}
