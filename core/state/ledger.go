package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"fusionswap/core/checked"
	"fusionswap/core/types"
	"fusionswap/native/fusion"
)

type storedHolding struct {
	Asset   common.Address
	Balance uint64
	Reserve uint64
}

// Ledger is the reference asset gateway. Wallet balances are keyed by owner
// and asset; the native currency is the NativeAsset balance. Holdings carry
// their own balance plus the reserve charged to their sponsor.
type Ledger struct {
	tx      *Tx
	reserve uint64
}

var _ fusion.AssetGateway = (*Ledger)(nil)

func (l *Ledger) balance(owner, asset common.Address) (uint64, error) {
	var balance uint64
	if _, err := l.tx.getRLP(balanceKey(owner, asset), &balance); err != nil {
		return 0, fmt.Errorf("ledger: decode balance: %w", err)
	}
	return balance, nil
}

func (l *Ledger) setBalance(owner, asset common.Address, amount uint64) error {
	key := balanceKey(owner, asset)
	if amount == 0 {
		l.tx.del(key)
		return nil
	}
	return l.tx.putRLP(key, amount)
}

func (l *Ledger) holding(id common.Hash) (fusion.Holding, bool, error) {
	var stored storedHolding
	ok, err := l.tx.getRLP(holdingKey(id), &stored)
	if err != nil {
		return fusion.Holding{}, false, fmt.Errorf("ledger: decode holding: %w", err)
	}
	if !ok {
		return fusion.Holding{}, false, nil
	}
	return fusion.Holding{Asset: stored.Asset, Balance: stored.Balance, Reserve: stored.Reserve}, true, nil
}

func (l *Ledger) putHolding(id common.Hash, h fusion.Holding) error {
	return l.tx.putRLP(holdingKey(id), storedHolding{Asset: h.Asset, Balance: h.Balance, Reserve: h.Reserve})
}

// OpenHolding implements fusion.AssetGateway. Holding ids are tombstoned on
// first use and can never be opened again.
func (l *Ledger) OpenHolding(id common.Hash, asset common.Address, sponsor common.Address) error {
	used, err := l.tx.getRLP(holdingUsedKey(id), nil)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("%w: %s", fusion.ErrHoldingExists, id.Hex())
	}
	if l.reserve > 0 {
		if err := l.Debit(fusion.WalletAccount(sponsor), types.NativeAsset, l.reserve); err != nil {
			return fmt.Errorf("holding reserve: %w", err)
		}
	}
	if err := l.tx.putRLP(holdingUsedKey(id), true); err != nil {
		return err
	}
	return l.putHolding(id, fusion.Holding{Asset: asset, Reserve: l.reserve})
}

// Holding implements fusion.AssetGateway.
func (l *Ledger) Holding(id common.Hash) (fusion.Holding, error) {
	h, ok, err := l.holding(id)
	if err != nil {
		return fusion.Holding{}, err
	}
	if !ok {
		return fusion.Holding{}, fmt.Errorf("%w: %s", fusion.ErrHoldingNotFound, id.Hex())
	}
	return h, nil
}

// Debit implements fusion.AssetGateway.
func (l *Ledger) Debit(acct fusion.Account, asset common.Address, amount uint64) error {
	if id, ok := acct.Holding(); ok {
		h, err := l.Holding(id)
		if err != nil {
			return err
		}
		if h.Asset != asset {
			return fmt.Errorf("%w: holding %s holds %s", fusion.ErrAssetMismatch, id.Hex(), h.Asset.Hex())
		}
		if h.Balance < amount {
			return fmt.Errorf("%w: holding %s has %d, needs %d", fusion.ErrInsufficientFunds, id.Hex(), h.Balance, amount)
		}
		h.Balance -= amount
		return l.putHolding(id, h)
	}
	owner, _ := acct.Wallet()
	balance, err := l.balance(owner, asset)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: %s has %d of %s, needs %d", fusion.ErrInsufficientFunds, owner.Hex(), balance, asset.Hex(), amount)
	}
	return l.setBalance(owner, asset, balance-amount)
}

// Credit implements fusion.AssetGateway.
func (l *Ledger) Credit(acct fusion.Account, asset common.Address, amount uint64) error {
	if id, ok := acct.Holding(); ok {
		h, err := l.Holding(id)
		if err != nil {
			return err
		}
		if h.Asset != asset {
			return fmt.Errorf("%w: holding %s holds %s", fusion.ErrAssetMismatch, id.Hex(), h.Asset.Hex())
		}
		if h.Balance, err = checked.Add(h.Balance, amount); err != nil {
			return err
		}
		return l.putHolding(id, h)
	}
	owner, _ := acct.Wallet()
	balance, err := l.balance(owner, asset)
	if err != nil {
		return err
	}
	next, err := checked.Add(balance, amount)
	if err != nil {
		return err
	}
	return l.setBalance(owner, asset, next)
}

// CloseHolding implements fusion.AssetGateway.
func (l *Ledger) CloseHolding(id common.Hash, beneficiary common.Address) (uint64, error) {
	h, err := l.Holding(id)
	if err != nil {
		return 0, err
	}
	if h.Balance != 0 {
		return 0, fmt.Errorf("%w: holding %s has %d left", fusion.ErrHoldingNotEmpty, id.Hex(), h.Balance)
	}
	l.tx.del(holdingKey(id))
	if h.Reserve > 0 {
		if err := l.Credit(fusion.WalletAccount(beneficiary), types.NativeAsset, h.Reserve); err != nil {
			return 0, err
		}
	}
	return h.Reserve, nil
}
