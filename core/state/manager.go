package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"fusionswap/core/types"
	"fusionswap/native/fusion"
	"fusionswap/native/whitelist"
	"fusionswap/storage"
)

// DefaultHoldingReserve is the native amount charged to keep a holding open.
const DefaultHoldingReserve uint64 = 2_039_280

// Option customises a Manager.
type Option func(*Manager)

// WithHoldingReserve overrides the reserve charged when a holding is opened.
func WithHoldingReserve(reserve uint64) Option {
	return func(m *Manager) { m.reserve = reserve }
}

// WithWhitelistBootstrap sets the identity allowed to claim the resolver
// registry authority.
func WithWhitelistBootstrap(addr common.Address) Option {
	return func(m *Manager) { m.bootstrap = addr }
}

// Manager hosts escrow state on top of a key/value database. Transactions are
// serialised; each one buffers its writes and commits them as a single batch.
type Manager struct {
	mu        sync.Mutex
	db        storage.Database
	reserve   uint64
	bootstrap common.Address
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database, opts ...Option) *Manager {
	m := &Manager{db: db, reserve: DefaultHoldingReserve}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// HoldingReserve returns the reserve charged per holding.
func (m *Manager) HoldingReserve() uint64 { return m.reserve }

// Atomic runs fn against a fresh transaction and commits its writes only when
// fn returns nil.
func (m *Manager) Atomic(fn func(fusion.Tx) error) error {
	return m.update(func(tx *Tx) error { return fn(tx) })
}

// Whitelist runs fn against the resolver registry inside a transaction.
func (m *Manager) Whitelist(fn func(*whitelist.Registry) error) error {
	return m.update(func(tx *Tx) error { return fn(tx.registry()) })
}

// Mint credits amount of asset to owner. It is an operator facility used to
// seed balances.
func (m *Manager) Mint(owner, asset common.Address, amount uint64) error {
	return m.update(func(tx *Tx) error {
		return tx.Assets().Credit(fusion.WalletAccount(owner), asset, amount)
	})
}

// Balance returns the wallet balance of owner in asset.
func (m *Manager) Balance(owner, asset common.Address) (uint64, error) {
	var balance uint64
	err := m.update(func(tx *Tx) error {
		var err error
		balance, err = tx.ledger().balance(owner, asset)
		return err
	})
	return balance, err
}

// Holding returns the holding stored under id.
func (m *Manager) Holding(id common.Hash) (fusion.Holding, bool, error) {
	var (
		holding fusion.Holding
		ok      bool
	)
	err := m.update(func(tx *Tx) error {
		var err error
		holding, ok, err = tx.ledger().holding(id)
		return err
	})
	return holding, ok, err
}

func (m *Manager) update(fn func(*Tx) error) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: database not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &Tx{
		manager: m,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// Tx is a transaction overlay: reads fall through to the database unless the
// key was written or deleted earlier in the same transaction.
type Tx struct {
	manager *Manager
	writes  map[string][]byte
	deletes map[string]struct{}
}

var _ fusion.Tx = (*Tx)(nil)

func (tx *Tx) get(key []byte) ([]byte, bool, error) {
	k := string(key)
	if _, ok := tx.deletes[k]; ok {
		return nil, false, nil
	}
	if value, ok := tx.writes[k]; ok {
		return value, true, nil
	}
	value, err := tx.manager.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (tx *Tx) put(key []byte, value []byte) {
	k := string(key)
	delete(tx.deletes, k)
	tx.writes[k] = value
}

func (tx *Tx) del(key []byte) {
	k := string(key)
	delete(tx.writes, k)
	tx.deletes[k] = struct{}{}
}

func (tx *Tx) getRLP(key []byte, out interface{}) (bool, error) {
	data, ok, err := tx.get(key)
	if err != nil || !ok {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (tx *Tx) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	tx.put(key, encoded)
	return nil
}

func (tx *Tx) commit() error {
	if len(tx.writes) == 0 && len(tx.deletes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tx.writes))
	for k := range tx.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	batch := tx.manager.db.NewBatch()
	for _, k := range keys {
		batch.Put([]byte(k), tx.writes[k])
	}
	for k := range tx.deletes {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	return nil
}

// KVPut stores the RLP encoding of value under key.
func (tx *Tx) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return tx.putRLP(kvKey(key), value)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (tx *Tx) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	return tx.getRLP(kvKey(key), out)
}

// KVDelete removes key.
func (tx *Tx) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	tx.del(kvKey(key))
	return nil
}

// EscrowGet implements fusion.Tx.
func (tx *Tx) EscrowGet(key fusion.EscrowKey) (*fusion.Escrow, bool, error) {
	esc := new(fusion.Escrow)
	ok, err := tx.getRLP(escrowKey(key), esc)
	if err != nil {
		return nil, false, fmt.Errorf("state: decode escrow %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return esc, true, nil
}

// EscrowPut implements fusion.Tx.
func (tx *Tx) EscrowPut(esc *fusion.Escrow) error {
	if esc == nil {
		return fmt.Errorf("state: nil escrow")
	}
	return tx.putRLP(escrowKey(esc.Key()), esc)
}

// EscrowDelete implements fusion.Tx.
func (tx *Tx) EscrowDelete(key fusion.EscrowKey) error {
	tx.del(escrowKey(key))
	return nil
}

// Assets implements fusion.Tx.
func (tx *Tx) Assets() fusion.AssetGateway { return tx.ledger() }

// Access implements fusion.Tx. The registry reads through this transaction,
// so authorization reflects every change committed before it began.
func (tx *Tx) Access() fusion.AccessGateway { return tx.registry() }

func (tx *Tx) ledger() *Ledger { return &Ledger{tx: tx, reserve: tx.manager.reserve} }

func (tx *Tx) registry() *whitelist.Registry {
	return whitelist.NewRegistry(tx, tx.manager.bootstrap)
}

// NativeBalance is a convenience wrapper returning owner's native balance.
func (m *Manager) NativeBalance(owner common.Address) (uint64, error) {
	return m.Balance(owner, types.NativeAsset)
}
