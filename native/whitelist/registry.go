// Package whitelist maintains the set of identities allowed to act as
// resolvers. A single authority manages the set; the authority slot can only
// be claimed by the bootstrap identity agreed at deployment.
package whitelist

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	coreerrors "fusionswap/core/errors"
)

var (
	authorityKey   = []byte("whitelist/authority")
	resolverPrefix = []byte("whitelist/resolver/")
)

var (
	ErrNotInitialized     = coreerrors.New(coreerrors.ErrValidation, "whitelist: not initialized")
	ErrAlreadyInitialized = coreerrors.New(coreerrors.ErrValidation, "whitelist: already initialized")
	ErrInvalidAddress     = coreerrors.New(coreerrors.ErrValidation, "whitelist: invalid address")
	ErrAlreadyRegistered  = coreerrors.New(coreerrors.ErrValidation, "whitelist: resolver already registered")
	ErrNotRegistered      = coreerrors.New(coreerrors.ErrValidation, "whitelist: resolver not registered")
	ErrNotBootstrap       = coreerrors.New(coreerrors.ErrAuthorization, "whitelist: caller is not the bootstrap identity")
	ErrNotAuthority       = coreerrors.New(coreerrors.ErrAuthorization, "whitelist: caller is not the authority")
)

// Storage captures the key/value capabilities the registry persists through.
// Values are RLP encoded by the implementation.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

type resolverEntry struct {
	RegisteredBy common.Address
}

// Registry reads and mutates the resolver set held in storage. It carries no
// state of its own, so a fresh value can be bound to every transaction.
type Registry struct {
	store     Storage
	bootstrap common.Address
}

// NewRegistry binds a registry to store. bootstrap is the only identity that
// may claim the authority slot.
func NewRegistry(store Storage, bootstrap common.Address) *Registry {
	return &Registry{store: store, bootstrap: bootstrap}
}

func (r *Registry) withStore() (Storage, error) {
	if r == nil || r.store == nil {
		return nil, fmt.Errorf("whitelist: storage not configured")
	}
	return r.store, nil
}

func resolverKey(addr common.Address) []byte {
	key := make([]byte, 0, len(resolverPrefix)+common.AddressLength)
	key = append(key, resolverPrefix...)
	return append(key, addr.Bytes()...)
}

// Initialize records caller as the authority. It succeeds once, and only for
// the bootstrap identity.
func (r *Registry) Initialize(caller common.Address) error {
	store, err := r.withStore()
	if err != nil {
		return err
	}
	if r.bootstrap == (common.Address{}) {
		return fmt.Errorf("%w: no bootstrap identity configured", ErrNotBootstrap)
	}
	if caller != r.bootstrap {
		return ErrNotBootstrap
	}
	var existing common.Address
	ok, err := store.KVGet(authorityKey, &existing)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	return store.KVPut(authorityKey, caller)
}

// Authority returns the current authority.
func (r *Registry) Authority() (common.Address, error) {
	store, err := r.withStore()
	if err != nil {
		return common.Address{}, err
	}
	var authority common.Address
	ok, err := store.KVGet(authorityKey, &authority)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, ErrNotInitialized
	}
	return authority, nil
}

func (r *Registry) requireAuthority(caller common.Address) error {
	authority, err := r.Authority()
	if err != nil {
		return err
	}
	if caller != authority {
		return ErrNotAuthority
	}
	return nil
}

// TransferAuthority hands the authority slot to next.
func (r *Registry) TransferAuthority(caller, next common.Address) error {
	if err := r.requireAuthority(caller); err != nil {
		return err
	}
	if next == (common.Address{}) {
		return ErrInvalidAddress
	}
	return r.store.KVPut(authorityKey, next)
}

// Register adds resolver to the set.
func (r *Registry) Register(caller, resolver common.Address) error {
	if err := r.requireAuthority(caller); err != nil {
		return err
	}
	if resolver == (common.Address{}) {
		return ErrInvalidAddress
	}
	key := resolverKey(resolver)
	ok, err := r.store.KVGet(key, nil)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, resolver.Hex())
	}
	return r.store.KVPut(key, resolverEntry{RegisteredBy: caller})
}

// Deregister removes resolver from the set.
func (r *Registry) Deregister(caller, resolver common.Address) error {
	if err := r.requireAuthority(caller); err != nil {
		return err
	}
	key := resolverKey(resolver)
	ok, err := r.store.KVGet(key, nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, resolver.Hex())
	}
	return r.store.KVDelete(key)
}

// IsAuthorizedResolver reports whether id is in the set. Unknown and zero
// identities are never authorized.
func (r *Registry) IsAuthorizedResolver(id common.Address) (bool, error) {
	store, err := r.withStore()
	if err != nil {
		return false, err
	}
	if id == (common.Address{}) {
		return false, nil
	}
	var entry resolverEntry
	ok, err := store.KVGet(resolverKey(id), &entry)
	if err != nil {
		return false, err
	}
	return ok, nil
}
