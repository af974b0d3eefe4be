package fusion

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// FundingKind distinguishes the two ways a maker can fund an escrow.
type FundingKind uint8

const (
	// FundingNative wraps the maker's native balance into the holding.
	FundingNative FundingKind = iota + 1
	// FundingExternal pulls the source asset from an external account.
	FundingExternal
)

// String implements fmt.Stringer.
func (k FundingKind) String() string {
	switch k {
	case FundingNative:
		return "native"
	case FundingExternal:
		return "external"
	default:
		return fmt.Sprintf("funding(%d)", uint8(k))
	}
}

// Funding selects where the escrowed source asset comes from and where it is
// returned to. The variant is chosen once at creation and carried on the
// escrow record, so a native source can never be paired with an external
// account reference.
type Funding struct {
	kind FundingKind
	ref  common.Address
}

// NativeFunding returns the native-wrap funding variant.
func NativeFunding() Funding { return Funding{kind: FundingNative} }

// ExternalFunding returns the funding variant that debits the source asset
// from the supplied account.
func ExternalFunding(ref common.Address) Funding {
	return Funding{kind: FundingExternal, ref: ref}
}

// Kind returns the funding variant.
func (f Funding) Kind() FundingKind { return f.kind }

// IsNative reports whether the funding wraps native currency.
func (f Funding) IsNative() bool { return f.kind == FundingNative }

// Ref returns the external account reference, if any.
func (f Funding) Ref() (common.Address, bool) {
	if f.kind != FundingExternal {
		return common.Address{}, false
	}
	return f.ref, true
}

// Account returns the ledger account the source asset is drawn from and
// returned to for the given maker.
func (f Funding) Account(maker common.Address) Account {
	if ref, ok := f.Ref(); ok {
		return WalletAccount(ref)
	}
	return WalletAccount(maker)
}

func (f Funding) valid() bool {
	switch f.kind {
	case FundingNative:
		return f.ref == (common.Address{})
	case FundingExternal:
		return f.ref != (common.Address{})
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (f Funding) String() string {
	if ref, ok := f.Ref(); ok {
		return fmt.Sprintf("external(%s)", ref.Hex())
	}
	return f.kind.String()
}

// storedFunding is the RLP representation of Funding.
type storedFunding struct {
	Kind uint8
	Ref  common.Address
}

func (f Funding) stored() storedFunding {
	return storedFunding{Kind: uint8(f.kind), Ref: f.ref}
}

func (s storedFunding) funding() (Funding, error) {
	f := Funding{kind: FundingKind(s.Kind), ref: s.Ref}
	if !f.valid() {
		return Funding{}, fmt.Errorf("fusion: invalid stored funding %d", s.Kind)
	}
	return f, nil
}
