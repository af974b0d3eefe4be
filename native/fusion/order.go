package fusion

import (
	"github.com/ethereum/go-ethereum/common"

	"fusionswap/core/types"
	"fusionswap/native/auction"
	"fusionswap/native/fees"
)

// Order holds the immutable swap terms a maker escrows. Orders are never
// persisted; the engine only keeps their hash and expects the full terms to be
// supplied again on every call.
type Order struct {
	// ID is a maker-chosen nonce that lets identical terms be escrowed more
	// than once.
	ID                          uint32         `json:"id" yaml:"id"`
	Maker                       common.Address `json:"maker" yaml:"maker"`
	Receiver                    common.Address `json:"receiver" yaml:"receiver"`
	SrcAsset                    common.Address `json:"srcAsset" yaml:"srcAsset"`
	DstAsset                    common.Address `json:"dstAsset" yaml:"dstAsset"`
	SrcAmount                   uint64         `json:"srcAmount" yaml:"srcAmount"`
	MinDstAmount                uint64         `json:"minDstAmount" yaml:"minDstAmount"`
	EstimatedDstAmount          uint64         `json:"estimatedDstAmount" yaml:"estimatedDstAmount"`
	ExpirationTime              int64          `json:"expirationTime" yaml:"expirationTime"`
	SrcAssetIsNative            bool           `json:"srcAssetIsNative" yaml:"srcAssetIsNative"`
	DstAssetIsNative            bool           `json:"dstAssetIsNative" yaml:"dstAssetIsNative"`
	Fee                         fees.Config    `json:"fee" yaml:"fee"`
	Auction                     auction.Config `json:"auction" yaml:"auction"`
	CancellationAuctionDuration uint32         `json:"cancellationAuctionDuration" yaml:"cancellationAuctionDuration"`
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Auction = o.Auction.Clone()
	return &clone
}

// Expired reports whether the order can no longer be filled at now.
func (o *Order) Expired(now int64) bool {
	return now >= o.ExpirationTime
}

// validateNativeFlags enforces that each side's native flag holds exactly when
// its asset id is the reserved native id.
func (o *Order) validateNativeFlags() error {
	if o.SrcAssetIsNative != types.IsNativeAsset(o.SrcAsset) {
		return errInconsistentNative("source", o.SrcAssetIsNative)
	}
	if o.DstAssetIsNative != types.IsNativeAsset(o.DstAsset) {
		return errInconsistentNative("destination", o.DstAssetIsNative)
	}
	return nil
}
