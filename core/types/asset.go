package types

import "github.com/ethereum/go-ethereum/common"

// NativeAsset is the reserved asset identifier standing for the ledger's native
// currency. An order side is native if and only if its asset id equals this
// value.
var NativeAsset = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// IsNativeAsset reports whether the supplied asset id is the reserved native
// currency identifier.
func IsNativeAsset(asset common.Address) bool {
	return asset == NativeAsset
}
