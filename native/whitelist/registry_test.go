package whitelist

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	coreerrors "fusionswap/core/errors"
)

type mockStore struct {
	data map[string][]byte
	err  error
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string][]byte)}
}

func (m *mockStore) KVGet(key []byte, out interface{}) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	raw, ok := m.data[string(key)]
	if !ok {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	return true, rlp.DecodeBytes(raw, out)
}

func (m *mockStore) KVPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.data[string(key)] = encoded
	return nil
}

func (m *mockStore) KVDelete(key []byte) error {
	delete(m.data, string(key))
	return nil
}

func newTestAddress(fill byte) common.Address {
	var addr common.Address
	copy(addr[:], bytes.Repeat([]byte{fill}, common.AddressLength))
	return addr
}

var (
	bootstrap = newTestAddress(0x01)
	successor = newTestAddress(0x02)
	resolver  = newTestAddress(0x03)
	stranger  = newTestAddress(0x04)
)

func TestInitializeOnlyBootstrapOnce(t *testing.T) {
	reg := NewRegistry(newMockStore(), bootstrap)
	if _, err := reg.Authority(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected uninitialized registry, got %v", err)
	}
	if err := reg.Initialize(stranger); !errors.Is(err, ErrNotBootstrap) || !errors.Is(err, coreerrors.ErrAuthorization) {
		t.Fatalf("expected first-caller claim to fail, got %v", err)
	}
	if err := reg.Initialize(bootstrap); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := reg.Initialize(bootstrap); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected second initialize to fail, got %v", err)
	}
	authority, err := reg.Authority()
	if err != nil || authority != bootstrap {
		t.Fatalf("expected bootstrap authority, got %s (%v)", authority.Hex(), err)
	}
}

func TestInitializeWithoutBootstrap(t *testing.T) {
	reg := NewRegistry(newMockStore(), common.Address{})
	if err := reg.Initialize(common.Address{}); !errors.Is(err, ErrNotBootstrap) {
		t.Fatalf("expected unset bootstrap to refuse, got %v", err)
	}
}

func TestRegisterAndDeregister(t *testing.T) {
	reg := NewRegistry(newMockStore(), bootstrap)
	if err := reg.Register(bootstrap, resolver); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected register before initialize to fail, got %v", err)
	}
	if err := reg.Initialize(bootstrap); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := reg.Register(stranger, resolver); !errors.Is(err, ErrNotAuthority) {
		t.Fatalf("expected non-authority register to fail, got %v", err)
	}
	if err := reg.Register(bootstrap, common.Address{}); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected zero resolver rejected, got %v", err)
	}
	if err := reg.Register(bootstrap, resolver); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(bootstrap, resolver); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected duplicate register to fail, got %v", err)
	}
	ok, err := reg.IsAuthorizedResolver(resolver)
	if err != nil || !ok {
		t.Fatalf("expected resolver authorized, ok=%v err=%v", ok, err)
	}
	if ok, _ := reg.IsAuthorizedResolver(stranger); ok {
		t.Fatalf("unknown identity must not be authorized")
	}
	if ok, _ := reg.IsAuthorizedResolver(common.Address{}); ok {
		t.Fatalf("zero identity must not be authorized")
	}

	if err := reg.Deregister(stranger, resolver); !errors.Is(err, ErrNotAuthority) {
		t.Fatalf("expected non-authority deregister to fail, got %v", err)
	}
	if err := reg.Deregister(bootstrap, resolver); err != nil {
		t.Fatalf("deregister: %v", err)
	}
	if ok, _ := reg.IsAuthorizedResolver(resolver); ok {
		t.Fatalf("expected resolver revoked")
	}
	if err := reg.Deregister(bootstrap, resolver); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected second deregister to fail, got %v", err)
	}
}

func TestTransferAuthority(t *testing.T) {
	reg := NewRegistry(newMockStore(), bootstrap)
	if err := reg.Initialize(bootstrap); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := reg.TransferAuthority(stranger, successor); !errors.Is(err, ErrNotAuthority) {
		t.Fatalf("expected stranger transfer to fail, got %v", err)
	}
	if err := reg.TransferAuthority(bootstrap, common.Address{}); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected zero successor rejected, got %v", err)
	}
	if err := reg.TransferAuthority(bootstrap, successor); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := reg.Register(bootstrap, resolver); !errors.Is(err, ErrNotAuthority) {
		t.Fatalf("expected former authority to lose rights, got %v", err)
	}
	if err := reg.Register(successor, resolver); err != nil {
		t.Fatalf("register by successor: %v", err)
	}
	// The bootstrap identity cannot reclaim the slot after handing it over.
	if err := reg.Initialize(bootstrap); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected re-initialize to fail, got %v", err)
	}
}

func TestIsAuthorizedResolverPropagatesStorageErrors(t *testing.T) {
	store := newMockStore()
	reg := NewRegistry(store, bootstrap)
	store.err = errors.New("disk failure")
	ok, err := reg.IsAuthorizedResolver(resolver)
	if err == nil || ok {
		t.Fatalf("expected failure to deny, ok=%v err=%v", ok, err)
	}
	var nilRegistry *Registry
	if ok, err := nilRegistry.IsAuthorizedResolver(resolver); err == nil || ok {
		t.Fatalf("expected nil registry to deny")
	}
}
