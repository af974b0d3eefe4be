package fusion

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"fusionswap/core/checked"
	"fusionswap/core/types"
)

const testReserve uint64 = 2_039_280

type balanceKey struct {
	owner common.Address
	asset common.Address
}

type mockState struct {
	balances map[balanceKey]uint64
	holdings map[common.Hash]Holding
	used     map[common.Hash]bool
	escrows  map[EscrowKey]*Escrow
}

func newMockState() *mockState {
	return &mockState{
		balances: make(map[balanceKey]uint64),
		holdings: make(map[common.Hash]Holding),
		used:     make(map[common.Hash]bool),
		escrows:  make(map[EscrowKey]*Escrow),
	}
}

func (m *mockState) clone() *mockState {
	out := newMockState()
	for k, v := range m.balances {
		out.balances[k] = v
	}
	for k, v := range m.holdings {
		out.holdings[k] = v
	}
	for k, v := range m.used {
		out.used[k] = v
	}
	for k, v := range m.escrows {
		out.escrows[k] = v.Clone()
	}
	return out
}

func newTestAddress(fill byte) common.Address {
	var addr common.Address
	copy(addr[:], bytes.Repeat([]byte{fill}, common.AddressLength))
	return addr
}

type mockAccess struct {
	resolvers map[common.Address]bool
	err       error
}

func (a *mockAccess) IsAuthorizedResolver(id common.Address) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	return a.resolvers[id], nil
}

// mockHost applies each transaction to a copy of the state and swaps it in
// only when the callback succeeds.
type mockHost struct {
	state  *mockState
	access *mockAccess
	txs    int
}

func newMockHost() *mockHost {
	return &mockHost{
		state:  newMockState(),
		access: &mockAccess{resolvers: make(map[common.Address]bool)},
	}
}

func (h *mockHost) Atomic(fn func(Tx) error) error {
	h.txs++
	working := h.state.clone()
	if err := fn(&mockTx{state: working, access: h.access}); err != nil {
		return err
	}
	h.state = working
	return nil
}

func (h *mockHost) mint(owner, asset common.Address, amount uint64) {
	h.state.balances[balanceKey{owner, asset}] += amount
}

func (h *mockHost) balance(owner, asset common.Address) uint64 {
	return h.state.balances[balanceKey{owner, asset}]
}

func (h *mockHost) authorize(resolver common.Address) {
	h.access.resolvers[resolver] = true
}

type mockTx struct {
	state  *mockState
	access *mockAccess
}

func (t *mockTx) EscrowGet(key EscrowKey) (*Escrow, bool, error) {
	esc, ok := t.state.escrows[key]
	if !ok {
		return nil, false, nil
	}
	return esc.Clone(), true, nil
}

func (t *mockTx) EscrowPut(esc *Escrow) error {
	if esc == nil {
		return errors.New("nil escrow")
	}
	t.state.escrows[esc.Key()] = esc.Clone()
	return nil
}

func (t *mockTx) EscrowDelete(key EscrowKey) error {
	delete(t.state.escrows, key)
	return nil
}

func (t *mockTx) Assets() AssetGateway { return (*mockLedger)(t.state) }

func (t *mockTx) Access() AccessGateway {
	if t.access == nil {
		return nil
	}
	return t.access
}

type mockLedger mockState

func (l *mockLedger) OpenHolding(id common.Hash, asset common.Address, sponsor common.Address) error {
	if l.used[id] {
		return ErrHoldingExists
	}
	if err := l.Debit(WalletAccount(sponsor), types.NativeAsset, testReserve); err != nil {
		return fmt.Errorf("holding reserve: %w", err)
	}
	l.used[id] = true
	l.holdings[id] = Holding{Asset: asset, Reserve: testReserve}
	return nil
}

func (l *mockLedger) Holding(id common.Hash) (Holding, error) {
	h, ok := l.holdings[id]
	if !ok {
		return Holding{}, ErrHoldingNotFound
	}
	return h, nil
}

func (l *mockLedger) Debit(acct Account, asset common.Address, amount uint64) error {
	if id, ok := acct.Holding(); ok {
		h, err := l.Holding(id)
		if err != nil {
			return err
		}
		if h.Asset != asset {
			return ErrAssetMismatch
		}
		if h.Balance < amount {
			return ErrInsufficientFunds
		}
		h.Balance -= amount
		l.holdings[id] = h
		return nil
	}
	owner, _ := acct.Wallet()
	key := balanceKey{owner, asset}
	if l.balances[key] < amount {
		return fmt.Errorf("%w: %s has %d %s, needs %d", ErrInsufficientFunds, owner.Hex(), l.balances[key], asset.Hex(), amount)
	}
	l.balances[key] -= amount
	return nil
}

func (l *mockLedger) Credit(acct Account, asset common.Address, amount uint64) error {
	if id, ok := acct.Holding(); ok {
		h, err := l.Holding(id)
		if err != nil {
			return err
		}
		if h.Asset != asset {
			return ErrAssetMismatch
		}
		next, err := checked.Add(h.Balance, amount)
		if err != nil {
			return err
		}
		h.Balance = next
		l.holdings[id] = h
		return nil
	}
	owner, _ := acct.Wallet()
	key := balanceKey{owner, asset}
	next, err := checked.Add(l.balances[key], amount)
	if err != nil {
		return err
	}
	l.balances[key] = next
	return nil
}

func (l *mockLedger) CloseHolding(id common.Hash, beneficiary common.Address) (uint64, error) {
	h, err := l.Holding(id)
	if err != nil {
		return 0, err
	}
	if h.Balance != 0 {
		return 0, ErrHoldingNotEmpty
	}
	delete(l.holdings, id)
	if err := l.Credit(WalletAccount(beneficiary), types.NativeAsset, h.Reserve); err != nil {
		return 0, err
	}
	return h.Reserve, nil
}
