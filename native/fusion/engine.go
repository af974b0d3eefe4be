package fusion

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"fusionswap/core/checked"
	coreerrors "fusionswap/core/errors"
	"fusionswap/core/events"
	"fusionswap/core/types"
	"fusionswap/native/auction"
	"fusionswap/native/fees"
	"fusionswap/observability/metrics"
)

// FillResult captures the amounts settled by a single fill.
type FillResult struct {
	RateBump           uint64 `json:"rateBump"`
	DstAmount          uint64 `json:"dstAmount"`
	EstimatedDstAmount uint64 `json:"estimatedDstAmount"`
	// ProtocolFee includes SurplusFee.
	ProtocolFee   uint64 `json:"protocolFee"`
	SurplusFee    uint64 `json:"surplusFee"`
	IntegratorFee uint64 `json:"integratorFee"`
	MakerAmount   uint64 `json:"makerAmount"`
	Remaining     uint64 `json:"remaining"`
	Closed        bool   `json:"closed"`
}

// CancellationResult captures the amounts moved when an escrow is cancelled.
type CancellationResult struct {
	// Refunded is the source balance drained from the holding.
	Refunded uint64 `json:"refunded"`
	// Reserve is the holding reserve released on close.
	Reserve uint64 `json:"reserve"`
	// Incentive is the resolver reward; zero for maker cancellations.
	Incentive      uint64 `json:"incentive"`
	ResolverPayout uint64 `json:"resolverPayout"`
	// MakerRefund is the native value the maker receives: the reserve plus a
	// native source balance, less the incentive.
	MakerRefund uint64 `json:"makerRefund"`
}

type orderEvent interface {
	events.Event
	Event() *types.Event
}

// Engine is the escrow lifecycle manager. It owns no state between calls:
// every operation samples the clock once and runs inside a single host
// transaction, and events are emitted only once that transaction commits.
type Engine struct {
	host    Host
	emitter events.Emitter
	logger  *slog.Logger
	metrics *metrics.FusionMetrics
	nowFn   func() int64
}

// NewEngine creates an engine bound to host with a no-op emitter and the
// process-wide metrics.
func NewEngine(host Host) *Engine {
	return &Engine{
		host:    host,
		emitter: events.NoopEmitter{},
		logger:  slog.Default().With("component", "fusion"),
		metrics: metrics.Fusion(),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger configures the structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger.With("component", "fusion")
}

// SetMetrics overrides the metrics sink. Passing nil disables metrics.
func (e *Engine) SetMetrics(m *metrics.FusionMetrics) { e.metrics = m }

func (e *Engine) now() int64 {
	if e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt orderEvent) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) atomic(fn func(Tx) error) error {
	if e == nil || e.host == nil {
		return errNilHost
	}
	return e.host.Atomic(fn)
}

func (e *Engine) reject(op string, key EscrowKey, err error) error {
	e.metrics.ObserveRejection(op, coreerrors.ClassName(err))
	if e.logger != nil {
		e.logger.Warn("fusion operation rejected",
			slog.String("op", op),
			slog.String("escrow", key.String()),
			slog.String("class", coreerrors.ClassName(err)),
			slog.Any("error", err))
	}
	return err
}

// CreateOrder validates the order, opens its holding and moves SrcAmount from
// the maker into it according to funding.
func (e *Engine) CreateOrder(order *Order, funding Funding) (*Escrow, error) {
	if order == nil {
		return nil, fmt.Errorf("%w: nil order", ErrInvalidAmount)
	}
	now := e.now()
	key := KeyFor(order)
	if err := validateOrder(order, funding, now); err != nil {
		return nil, e.reject("create", key, err)
	}
	esc := &Escrow{
		Maker:     order.Maker,
		OrderHash: key.OrderHash,
		Holding:   key.HoldingID(),
		SrcAsset:  order.SrcAsset,
		Funding:   funding,
		CreatedAt: now,
	}
	err := e.atomic(func(tx Tx) error {
		if _, exists, err := tx.EscrowGet(key); err != nil {
			return err
		} else if exists {
			return ErrDuplicateOrder
		}
		assets := tx.Assets()
		if err := assets.OpenHolding(esc.Holding, order.SrcAsset, order.Maker); err != nil {
			if errors.Is(err, ErrHoldingExists) {
				return fmt.Errorf("%w: %w", ErrDuplicateOrder, err)
			}
			return err
		}
		if err := assets.Debit(funding.Account(order.Maker), order.SrcAsset, order.SrcAmount); err != nil {
			return fmt.Errorf("fund escrow: %w", err)
		}
		if err := assets.Credit(HoldingAccount(esc.Holding), order.SrcAsset, order.SrcAmount); err != nil {
			return fmt.Errorf("fund escrow: %w", err)
		}
		return tx.EscrowPut(esc)
	})
	if err != nil {
		return nil, e.reject("create", key, err)
	}
	e.metrics.ObserveCreated(funding.Kind().String())
	e.logger.Debug("escrow created", slog.String("escrow", key.String()), slog.Uint64("srcAmount", order.SrcAmount), slog.String("funding", funding.String()))
	e.emit(OrderCreated{Escrow: esc.Clone(), SrcAmount: order.SrcAmount})
	return esc.Clone(), nil
}

func validateOrder(order *Order, funding Funding, now int64) error {
	if order.ExpirationTime <= now {
		return fmt.Errorf("%w: expiration %d is not after %d", ErrInvalidExpiration, order.ExpirationTime, now)
	}
	if order.SrcAmount == 0 || order.MinDstAmount == 0 {
		return fmt.Errorf("%w: source and minimum destination amounts must be positive", ErrInvalidAmount)
	}
	if order.Receiver == (common.Address{}) {
		return ErrInvalidReceiver
	}
	if err := order.Fee.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFeeConfig, err)
	}
	if err := auction.Validate(order.Auction); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAuction, err)
	}
	if err := order.validateNativeFlags(); err != nil {
		return err
	}
	if !funding.valid() || funding.IsNative() != order.SrcAssetIsNative {
		return fmt.Errorf("%w: funding %s for native source %t", ErrInconsistentNativeFlag, funding, order.SrcAssetIsNative)
	}
	return nil
}

// loadEscrow fetches the escrow for key and checks that the stored record
// matches the key re-derived from the supplied order. Terms that hash to no
// open escrow are reported as a hash mismatch that also matches
// ErrEscrowNotFound.
func loadEscrow(tx Tx, key EscrowKey) (*Escrow, error) {
	esc, ok, err := tx.EscrowGet(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %w for %s", ErrOrderHashMismatch, ErrEscrowNotFound, key)
	}
	if esc.OrderHash != key.OrderHash || esc.Maker != key.Maker || esc.Holding != key.HoldingID() {
		return nil, fmt.Errorf("%w: stored %s, supplied %s", ErrOrderHashMismatch, esc.Key(), key)
	}
	return esc, nil
}

// authorizeResolver consults the access gateway inside the caller's
// transaction so a revocation committed before this transaction is always
// observed. Errors and unset answers deny.
func authorizeResolver(tx Tx, caller common.Address) error {
	access := tx.Access()
	if access == nil {
		return fmt.Errorf("%w: no access gateway", ErrUnauthorized)
	}
	ok, err := access.IsAuthorizedResolver(caller)
	if err != nil {
		return fmt.Errorf("%w: %s: access check failed: %v", ErrUnauthorized, caller.Hex(), err)
	}
	if !ok {
		return fmt.Errorf("%w: %s is not an authorized resolver", ErrUnauthorized, caller.Hex())
	}
	return nil
}

// QuoteFill prices a fill of amount source units at now. The estimated
// destination amount goes through the same rate bump as the actual one before
// the surplus comparison.
func QuoteFill(order *Order, amount uint64, now int64) (FillResult, error) {
	var result FillResult
	if order == nil || order.SrcAmount == 0 {
		return result, fmt.Errorf("%w: order has no source amount", ErrInvalidAmount)
	}
	bump := auction.RateBump(now, order.Auction)
	dstAmount, err := auction.DstAmount(order.SrcAmount, order.MinDstAmount, amount, bump)
	if err != nil {
		return result, fmt.Errorf("destination amount: %w", err)
	}
	estimated, err := auction.DstAmount(order.SrcAmount, order.EstimatedDstAmount, amount, bump)
	if err != nil {
		return result, fmt.Errorf("estimated destination amount: %w", err)
	}
	split, err := fees.Split(fees.SplitInput{
		IntegratorFee:     order.Fee.IntegratorFee,
		ProtocolFee:       order.Fee.ProtocolFee,
		SurplusPercentage: order.Fee.SurplusPercentage,
		Actual:            dstAmount,
		Estimated:         estimated,
	})
	if err != nil {
		return result, fmt.Errorf("fee split: %w", err)
	}
	result.RateBump = bump
	result.DstAmount = dstAmount
	result.EstimatedDstAmount = estimated
	result.ProtocolFee = split.ProtocolFee
	result.SurplusFee = split.SurplusFee
	result.IntegratorFee = split.IntegratorFee
	result.MakerAmount = split.MakerAmount
	return result, nil
}

// FillOrder lets an authorized resolver take amount source units out of the
// escrow in exchange for the auction-priced destination amount. The escrow is
// closed and its reserve released to the maker once the balance reaches zero.
func (e *Engine) FillOrder(order *Order, amount uint64, caller common.Address) (FillResult, error) {
	if order == nil {
		return FillResult{}, fmt.Errorf("%w: nil order", ErrInvalidAmount)
	}
	now := e.now()
	key := KeyFor(order)
	var (
		result FillResult
		esc    *Escrow
	)
	err := e.atomic(func(tx Tx) error {
		if err := authorizeResolver(tx, caller); err != nil {
			return err
		}
		if order.Expired(now) {
			return fmt.Errorf("%w: expired at %d, now %d", ErrOrderExpired, order.ExpirationTime, now)
		}
		stored, err := loadEscrow(tx, key)
		if err != nil {
			return err
		}
		if amount == 0 {
			return fmt.Errorf("%w: fill amount must be positive", ErrInvalidAmount)
		}
		assets := tx.Assets()
		holding, err := assets.Holding(stored.Holding)
		if err != nil {
			return err
		}
		if amount > holding.Balance {
			return fmt.Errorf("%w: requested %d, remaining %d", ErrInsufficientRemaining, amount, holding.Balance)
		}
		quote, err := QuoteFill(order, amount, now)
		if err != nil {
			return err
		}
		quote.Remaining = holding.Balance - amount

		// Source leg: holding to resolver.
		if err := assets.Debit(HoldingAccount(stored.Holding), order.SrcAsset, amount); err != nil {
			return err
		}
		if err := assets.Credit(WalletAccount(caller), order.SrcAsset, amount); err != nil {
			return err
		}
		// Destination legs: resolver to receiver and fee payouts.
		if err := assets.Debit(WalletAccount(caller), order.DstAsset, quote.DstAmount); err != nil {
			return fmt.Errorf("resolver payment: %w", err)
		}
		legs := []struct {
			to     common.Address
			amount uint64
		}{
			{order.Receiver, quote.MakerAmount},
			{order.Fee.ProtocolPayout, quote.ProtocolFee},
			{order.Fee.IntegratorPayout, quote.IntegratorFee},
		}
		for _, leg := range legs {
			if leg.amount == 0 {
				continue
			}
			if err := assets.Credit(WalletAccount(leg.to), order.DstAsset, leg.amount); err != nil {
				return err
			}
		}
		if quote.Remaining == 0 {
			if _, err := assets.CloseHolding(stored.Holding, order.Maker); err != nil {
				return err
			}
			if err := tx.EscrowDelete(key); err != nil {
				return err
			}
			quote.Closed = true
		}
		result = quote
		esc = stored
		return nil
	})
	if err != nil {
		return FillResult{}, e.reject("fill", key, err)
	}
	e.metrics.ObserveFill(amount, result.DstAmount, result.Closed)
	e.metrics.ObserveFees(result.ProtocolFee, result.SurplusFee, result.IntegratorFee)
	e.logger.Debug("escrow filled",
		slog.String("escrow", key.String()),
		slog.String("resolver", caller.Hex()),
		slog.Uint64("amount", amount),
		slog.Uint64("dstAmount", result.DstAmount),
		slog.Uint64("remaining", result.Remaining))
	e.emit(OrderFilled{Escrow: esc, Resolver: caller, Amount: amount, Result: result})
	return result, nil
}

// CancelOrder lets the maker close the escrow at any time. Whatever balance
// remains in the holding is returned through the escrow's funding channel
// before the holding is closed and its reserve released to the maker.
func (e *Engine) CancelOrder(order *Order, caller common.Address) (CancellationResult, error) {
	if order == nil {
		return CancellationResult{}, fmt.Errorf("%w: nil order", ErrInvalidAmount)
	}
	key := KeyFor(order)
	var (
		result CancellationResult
		esc    *Escrow
	)
	err := e.atomic(func(tx Tx) error {
		if caller != order.Maker {
			return fmt.Errorf("%w: only the maker may cancel", ErrUnauthorized)
		}
		stored, err := loadEscrow(tx, key)
		if errors.Is(err, ErrEscrowNotFound) {
			return ErrNothingToCancel
		}
		if err != nil {
			return err
		}
		assets := tx.Assets()
		holding, err := assets.Holding(stored.Holding)
		if err != nil {
			return err
		}
		if holding.Balance > 0 {
			if err := assets.Debit(HoldingAccount(stored.Holding), stored.SrcAsset, holding.Balance); err != nil {
				return err
			}
			if err := assets.Credit(stored.Funding.Account(order.Maker), stored.SrcAsset, holding.Balance); err != nil {
				return err
			}
		}
		reserve, err := assets.CloseHolding(stored.Holding, order.Maker)
		if err != nil {
			return err
		}
		if err := tx.EscrowDelete(key); err != nil {
			return err
		}
		result = CancellationResult{Refunded: holding.Balance, Reserve: reserve, MakerRefund: reserve}
		if stored.Funding.IsNative() {
			if result.MakerRefund, err = checked.Add(reserve, holding.Balance); err != nil {
				return err
			}
		}
		esc = stored
		return nil
	})
	if err != nil {
		return CancellationResult{}, e.reject("cancel", key, err)
	}
	e.metrics.ObserveCancellation("maker", 0)
	e.logger.Debug("escrow cancelled", slog.String("escrow", key.String()), slog.Uint64("refunded", result.Refunded))
	e.emit(OrderCancelled{Escrow: esc, Result: result})
	return result, nil
}

// CancelOrderByResolver reclaims an expired escrow on the maker's behalf and
// pays the caller the cancellation incentive accrued so far.
func (e *Engine) CancelOrderByResolver(order *Order, caller common.Address) (CancellationResult, error) {
	return e.CancelOrderByResolverWithLimit(order, caller, math.MaxUint64)
}

// CancelOrderByResolverWithLimit is CancelOrderByResolver with the incentive
// additionally capped at rewardLimit.
//
// The incentive is derived from the native value locked before anything is
// refunded: the reserve plus, for native sources, the holding balance. The
// native part of the locked value is routed to the resolver, which forwards
// everything but its incentive to the maker within the same transaction; a
// non-native source balance goes straight back to the maker.
func (e *Engine) CancelOrderByResolverWithLimit(order *Order, caller common.Address, rewardLimit uint64) (CancellationResult, error) {
	if order == nil {
		return CancellationResult{}, fmt.Errorf("%w: nil order", ErrInvalidAmount)
	}
	now := e.now()
	key := KeyFor(order)
	var (
		result CancellationResult
		esc    *Escrow
	)
	err := e.atomic(func(tx Tx) error {
		if err := authorizeResolver(tx, caller); err != nil {
			return err
		}
		if !order.Expired(now) {
			return fmt.Errorf("%w: expires at %d, now %d", ErrOrderNotExpired, order.ExpirationTime, now)
		}
		if order.Fee.MaxCancellationPremium == 0 {
			return ErrCancellationForbidden
		}
		stored, err := loadEscrow(tx, key)
		if err != nil {
			return err
		}
		assets := tx.Assets()
		holding, err := assets.Holding(stored.Holding)
		if err != nil {
			return err
		}

		locked := holding.Reserve
		if stored.Funding.IsNative() {
			if locked, err = checked.Add(locked, holding.Balance); err != nil {
				return err
			}
		}
		premium := auction.CancellationPremium(now, order.ExpirationTime, order.CancellationAuctionDuration, order.Fee.MaxCancellationPremium)
		incentive := checked.Min(premium, order.Fee.MaxCancellationPremium, rewardLimit, locked)
		makerRefund, err := checked.Sub(locked, incentive)
		if err != nil {
			return err
		}

		if holding.Balance > 0 {
			refundTo := stored.Funding.Account(order.Maker)
			if stored.Funding.IsNative() {
				refundTo = WalletAccount(caller)
			}
			if err := assets.Debit(HoldingAccount(stored.Holding), stored.SrcAsset, holding.Balance); err != nil {
				return err
			}
			if err := assets.Credit(refundTo, stored.SrcAsset, holding.Balance); err != nil {
				return err
			}
		}
		reserve, err := assets.CloseHolding(stored.Holding, caller)
		if err != nil {
			return err
		}
		if reserve != holding.Reserve {
			return fmt.Errorf("%w: released reserve %d, expected %d", ErrInsufficientFunds, reserve, holding.Reserve)
		}
		if makerRefund > 0 {
			if err := assets.Debit(WalletAccount(caller), types.NativeAsset, makerRefund); err != nil {
				return err
			}
			if err := assets.Credit(WalletAccount(order.Maker), types.NativeAsset, makerRefund); err != nil {
				return err
			}
		}
		if err := tx.EscrowDelete(key); err != nil {
			return err
		}
		result = CancellationResult{
			Refunded:       holding.Balance,
			Reserve:        reserve,
			Incentive:      incentive,
			ResolverPayout: incentive,
			MakerRefund:    makerRefund,
		}
		esc = stored
		return nil
	})
	if err != nil {
		return CancellationResult{}, e.reject("cancel_by_resolver", key, err)
	}
	e.metrics.ObserveCancellation("resolver", result.Incentive)
	e.logger.Debug("escrow cancelled by resolver",
		slog.String("escrow", key.String()),
		slog.String("resolver", caller.Hex()),
		slog.Uint64("incentive", result.Incentive))
	e.emit(OrderCancelled{Escrow: esc, Resolver: caller, Result: result})
	return result, nil
}

// Escrow returns the open escrow stored under key.
func (e *Engine) Escrow(key EscrowKey) (*Escrow, bool, error) {
	var (
		esc *Escrow
		ok  bool
	)
	err := e.atomic(func(tx Tx) error {
		var err error
		esc, ok, err = tx.EscrowGet(key)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return esc, ok, nil
}

// Remaining reports the source balance still escrowed for order. A closed or
// unknown escrow reports ErrEscrowNotFound.
func (e *Engine) Remaining(order *Order) (uint64, error) {
	if order == nil {
		return 0, fmt.Errorf("%w: nil order", ErrInvalidAmount)
	}
	key := KeyFor(order)
	var remaining uint64
	err := e.atomic(func(tx Tx) error {
		stored, err := loadEscrow(tx, key)
		if err != nil {
			return err
		}
		holding, err := tx.Assets().Holding(stored.Holding)
		if err != nil {
			return err
		}
		remaining = holding.Balance
		return nil
	})
	return remaining, err
}
