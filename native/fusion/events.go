package fusion

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"fusionswap/core/types"
)

const (
	EventTypeOrderCreated             = "fusion.order.created"
	EventTypeOrderFilled              = "fusion.order.filled"
	EventTypeOrderCancelled           = "fusion.order.cancelled"
	EventTypeOrderCancelledByResolver = "fusion.order.cancelled_by_resolver"
)

// OrderCreated is emitted once an escrow has been funded.
type OrderCreated struct {
	Escrow    *Escrow
	SrcAmount uint64
}

// EventType satisfies the events.Event interface.
func (OrderCreated) EventType() string { return EventTypeOrderCreated }

// Event converts the payload into its canonical attribute form.
func (e OrderCreated) Event() *types.Event {
	attrs := escrowAttributes(e.Escrow)
	attrs["srcAmount"] = strconv.FormatUint(e.SrcAmount, 10)
	return &types.Event{Type: EventTypeOrderCreated, Attributes: attrs}
}

// OrderFilled is emitted for every committed fill.
type OrderFilled struct {
	Escrow   *Escrow
	Resolver common.Address
	Amount   uint64
	Result   FillResult
}

// EventType satisfies the events.Event interface.
func (OrderFilled) EventType() string { return EventTypeOrderFilled }

// Event converts the payload into its canonical attribute form.
func (e OrderFilled) Event() *types.Event {
	attrs := escrowAttributes(e.Escrow)
	attrs["resolver"] = e.Resolver.Hex()
	attrs["amount"] = strconv.FormatUint(e.Amount, 10)
	attrs["rateBump"] = strconv.FormatUint(e.Result.RateBump, 10)
	attrs["dstAmount"] = strconv.FormatUint(e.Result.DstAmount, 10)
	attrs["protocolFee"] = strconv.FormatUint(e.Result.ProtocolFee, 10)
	attrs["surplusFee"] = strconv.FormatUint(e.Result.SurplusFee, 10)
	attrs["integratorFee"] = strconv.FormatUint(e.Result.IntegratorFee, 10)
	attrs["makerAmount"] = strconv.FormatUint(e.Result.MakerAmount, 10)
	attrs["remaining"] = strconv.FormatUint(e.Result.Remaining, 10)
	attrs["closed"] = strconv.FormatBool(e.Result.Closed)
	return &types.Event{Type: EventTypeOrderFilled, Attributes: attrs}
}

// OrderCancelled is emitted when an escrow is closed by a cancel path.
// Resolver is zero for maker cancellations.
type OrderCancelled struct {
	Escrow   *Escrow
	Resolver common.Address
	Result   CancellationResult
}

// EventType satisfies the events.Event interface.
func (e OrderCancelled) EventType() string {
	if e.Resolver != (common.Address{}) {
		return EventTypeOrderCancelledByResolver
	}
	return EventTypeOrderCancelled
}

// Event converts the payload into its canonical attribute form.
func (e OrderCancelled) Event() *types.Event {
	attrs := escrowAttributes(e.Escrow)
	attrs["refunded"] = strconv.FormatUint(e.Result.Refunded, 10)
	attrs["reserve"] = strconv.FormatUint(e.Result.Reserve, 10)
	attrs["makerRefund"] = strconv.FormatUint(e.Result.MakerRefund, 10)
	if e.Resolver != (common.Address{}) {
		attrs["resolver"] = e.Resolver.Hex()
		attrs["incentive"] = strconv.FormatUint(e.Result.Incentive, 10)
		attrs["resolverPayout"] = strconv.FormatUint(e.Result.ResolverPayout, 10)
	}
	return &types.Event{Type: e.EventType(), Attributes: attrs}
}

func escrowAttributes(esc *Escrow) map[string]string {
	attrs := make(map[string]string)
	if esc == nil {
		return attrs
	}
	attrs["maker"] = esc.Maker.Hex()
	attrs["orderHash"] = esc.OrderHash.Hex()
	attrs["holding"] = esc.Holding.Hex()
	attrs["srcAsset"] = esc.SrcAsset.Hex()
	attrs["funding"] = esc.Funding.String()
	attrs["createdAt"] = strconv.FormatInt(esc.CreatedAt, 10)
	return attrs
}
