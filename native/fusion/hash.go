package fusion

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"fusionswap/native/auction"
)

var (
	orderHashDomain   = []byte("fusion/order/v1")
	holdingHashDomain = []byte("fusion/holding/v1")
)

type canonicalFee struct {
	ProtocolFee            uint16
	IntegratorFee          uint16
	SurplusPercentage      uint8
	MaxCancellationPremium uint64
	ProtocolPayout         common.Address
	IntegratorPayout       common.Address
}

type canonicalAuction struct {
	StartTime       uint64
	Duration        uint32
	InitialRateBump uint32
	Points          []auction.Point
}

// canonicalOrder fixes the field order of the hashed encoding. Signed times are
// reinterpreted as uint64 so that every distinct value stays distinct.
type canonicalOrder struct {
	ID                          uint32
	Maker                       common.Address
	Receiver                    common.Address
	SrcAsset                    common.Address
	DstAsset                    common.Address
	SrcAmount                   uint64
	MinDstAmount                uint64
	EstimatedDstAmount          uint64
	ExpirationTime              uint64
	SrcAssetIsNative            bool
	DstAssetIsNative            bool
	Fee                         canonicalFee
	Auction                     canonicalAuction
	CancellationAuctionDuration uint32
}

func canonical(o *Order) canonicalOrder {
	points := o.Auction.Points
	if points == nil {
		points = []auction.Point{}
	}
	return canonicalOrder{
		ID:                 o.ID,
		Maker:              o.Maker,
		Receiver:           o.Receiver,
		SrcAsset:           o.SrcAsset,
		DstAsset:           o.DstAsset,
		SrcAmount:          o.SrcAmount,
		MinDstAmount:       o.MinDstAmount,
		EstimatedDstAmount: o.EstimatedDstAmount,
		ExpirationTime:     uint64(o.ExpirationTime),
		SrcAssetIsNative:   o.SrcAssetIsNative,
		DstAssetIsNative:   o.DstAssetIsNative,
		Fee: canonicalFee{
			ProtocolFee:            o.Fee.ProtocolFee,
			IntegratorFee:          o.Fee.IntegratorFee,
			SurplusPercentage:      o.Fee.SurplusPercentage,
			MaxCancellationPremium: o.Fee.MaxCancellationPremium,
			ProtocolPayout:         o.Fee.ProtocolPayout,
			IntegratorPayout:       o.Fee.IntegratorPayout,
		},
		Auction: canonicalAuction{
			StartTime:       uint64(o.Auction.StartTime),
			Duration:        o.Auction.Duration,
			InitialRateBump: o.Auction.InitialRateBump,
			Points:          points,
		},
		CancellationAuctionDuration: o.CancellationAuctionDuration,
	}
}

// HashOrder returns the keccak256 digest of the canonical RLP encoding of
// every order field, prefixed with a domain tag.
func HashOrder(o *Order) common.Hash {
	if o == nil {
		return common.Hash{}
	}
	return ethcrypto.Keccak256Hash(orderHashDomain, encodeCanonical(o))
}

// encodeCanonical panics if canonicalOrder ever holds a type rlp rejects.
func encodeCanonical(o *Order) []byte {
	enc, err := rlp.EncodeToBytes(canonical(o))
	if err != nil {
		panic(fmt.Sprintf("fusion: encode canonical order: %v", err))
	}
	return enc
}

// EscrowKey identifies an escrow by its maker and order hash.
type EscrowKey struct {
	Maker     common.Address
	OrderHash common.Hash
}

// KeyFor derives the escrow key of the supplied order.
func KeyFor(o *Order) EscrowKey {
	return EscrowKey{Maker: o.Maker, OrderHash: HashOrder(o)}
}

// Bytes returns the concatenation of maker and order hash.
func (k EscrowKey) Bytes() []byte {
	buf := make([]byte, 0, common.AddressLength+common.HashLength)
	buf = append(buf, k.Maker.Bytes()...)
	return append(buf, k.OrderHash.Bytes()...)
}

// HoldingID derives the ledger holding that backs the escrow.
func (k EscrowKey) HoldingID() common.Hash {
	return ethcrypto.Keccak256Hash(holdingHashDomain, k.Maker.Bytes(), k.OrderHash.Bytes())
}

// String implements fmt.Stringer.
func (k EscrowKey) String() string {
	return k.Maker.Hex() + "/" + k.OrderHash.Hex()
}
