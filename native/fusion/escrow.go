package fusion

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// Escrow is the persisted record of an open order. It stores only what is
// needed to re-derive and check the order's key; the remaining balance lives
// in the ledger holding. The record exists exactly while the escrow is open.
type Escrow struct {
	Maker     common.Address
	OrderHash common.Hash
	Holding   common.Hash
	SrcAsset  common.Address
	Funding   Funding
	CreatedAt int64
}

// Key returns the escrow's storage key.
func (e *Escrow) Key() EscrowKey {
	return EscrowKey{Maker: e.Maker, OrderHash: e.OrderHash}
}

// Clone returns a copy of the escrow record.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

type storedEscrow struct {
	Maker     common.Address
	OrderHash common.Hash
	Holding   common.Hash
	SrcAsset  common.Address
	Funding   storedFunding
	CreatedAt uint64
}

// EncodeRLP implements rlp.Encoder.
func (e *Escrow) EncodeRLP(w io.Writer) error {
	if e.CreatedAt < 0 {
		return fmt.Errorf("fusion: negative escrow creation time")
	}
	return rlp.Encode(w, storedEscrow{
		Maker:     e.Maker,
		OrderHash: e.OrderHash,
		Holding:   e.Holding,
		SrcAsset:  e.SrcAsset,
		Funding:   e.Funding.stored(),
		CreatedAt: uint64(e.CreatedAt),
	})
}

// DecodeRLP implements rlp.Decoder.
func (e *Escrow) DecodeRLP(s *rlp.Stream) error {
	var stored storedEscrow
	if err := s.Decode(&stored); err != nil {
		return err
	}
	funding, err := stored.Funding.funding()
	if err != nil {
		return err
	}
	*e = Escrow{
		Maker:     stored.Maker,
		OrderHash: stored.OrderHash,
		Holding:   stored.Holding,
		SrcAsset:  stored.SrcAsset,
		Funding:   funding,
		CreatedAt: int64(stored.CreatedAt),
	}
	return nil
}
