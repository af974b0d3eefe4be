package fusion

import (
	"github.com/ethereum/go-ethereum/common"

	coreerrors "fusionswap/core/errors"
)

// Ledger errors raised by AssetGateway implementations.
var (
	ErrInsufficientFunds = coreerrors.New(coreerrors.ErrLedger, "ledger: insufficient funds")
	ErrHoldingExists     = coreerrors.New(coreerrors.ErrLedger, "ledger: holding id already used")
	ErrHoldingNotFound   = coreerrors.New(coreerrors.ErrLedger, "ledger: holding not found")
	ErrHoldingNotEmpty   = coreerrors.New(coreerrors.ErrLedger, "ledger: holding not empty")
	ErrAssetMismatch     = coreerrors.New(coreerrors.ErrLedger, "ledger: asset does not match holding")
)

// Account addresses a balance on the ledger: either a wallet or an escrow
// holding.
type Account struct {
	wallet    common.Address
	holding   common.Hash
	isHolding bool
}

// WalletAccount addresses the balances of a wallet identity.
func WalletAccount(addr common.Address) Account { return Account{wallet: addr} }

// HoldingAccount addresses an escrow holding.
func HoldingAccount(id common.Hash) Account { return Account{holding: id, isHolding: true} }

// Wallet returns the wallet address and true for wallet accounts.
func (a Account) Wallet() (common.Address, bool) { return a.wallet, !a.isHolding }

// Holding returns the holding id and true for holding accounts.
func (a Account) Holding() (common.Hash, bool) { return a.holding, a.isHolding }

// String implements fmt.Stringer.
func (a Account) String() string {
	if a.isHolding {
		return "holding:" + a.holding.Hex()
	}
	return "wallet:" + a.wallet.Hex()
}

// Holding describes the state of an escrow holding on the ledger.
type Holding struct {
	Asset   common.Address
	Balance uint64
	// Reserve is the native amount locked to keep the holding open. It is
	// released when the holding closes.
	Reserve uint64
}

// AssetGateway is the only path by which value moves. Implementations must
// apply every call within the enclosing transaction so that a failing
// operation leaves no trace.
type AssetGateway interface {
	// OpenHolding creates an empty holding for asset, charging the reserve to
	// sponsor. A holding id can be opened at most once, ever.
	OpenHolding(id common.Hash, asset common.Address, sponsor common.Address) error
	// Holding reports the holding's asset, balance and reserve.
	Holding(id common.Hash) (Holding, error)
	// Debit removes amount of asset from the account.
	Debit(acct Account, asset common.Address, amount uint64) error
	// Credit adds amount of asset to the account. Crediting the native asset to
	// a wallet settles in native form.
	Credit(acct Account, asset common.Address, amount uint64) error
	// CloseHolding closes an empty holding and releases its reserve to
	// beneficiary. Closing a holding with a nonzero balance fails with
	// ErrHoldingNotEmpty.
	CloseHolding(id common.Hash, beneficiary common.Address) (uint64, error)
}

// AccessGateway answers whether an identity may act as a resolver.
// Implementations must answer false (or fail) for unknown identities; the
// engine treats any error as a denial.
type AccessGateway interface {
	IsAuthorizedResolver(id common.Address) (bool, error)
}

// Tx is a transactional view of the hosting environment. Reads observe the
// writes made earlier in the same transaction.
type Tx interface {
	EscrowGet(key EscrowKey) (*Escrow, bool, error)
	EscrowPut(esc *Escrow) error
	EscrowDelete(key EscrowKey) error
	Assets() AssetGateway
	Access() AccessGateway
}

// Host runs engine operations as atomic transactions. If fn returns an error
// none of its writes may become visible. Conflicting transactions must be
// serialised or aborted by the host.
type Host interface {
	Atomic(fn func(Tx) error) error
}
