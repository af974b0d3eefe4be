package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"fusionswap/native/auction"
	"fusionswap/native/fusion"
	"fusionswap/native/whitelist"
)

func runInitWhitelist(e *env, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("init-whitelist", stderr)
	as := fs.String("as", "", "caller identity (must be the configured bootstrap)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	caller, err := parseAddress("as", *as)
	if err != nil {
		return printError(stderr, err.Error())
	}
	if err := e.mgr.Whitelist(func(reg *whitelist.Registry) error { return reg.Initialize(caller) }); err != nil {
		return printError(stderr, err.Error())
	}
	e.logger.Info("resolver registry initialized", "authority", caller.Hex())
	return printJSON(stdout, map[string]string{"authority": caller.Hex()})
}

func runRegistryChange(e *env, name string, args []string, stdout, stderr io.Writer, apply func(*whitelist.Registry, common.Address, common.Address) error) int {
	fs := newFlagSet(name, stderr)
	as := fs.String("as", "", "registry authority")
	target := fs.String("target", "", "identity to act on")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	caller, err := parseAddress("as", *as)
	if err != nil {
		return printError(stderr, err.Error())
	}
	subject, err := parseAddress("target", *target)
	if err != nil {
		return printError(stderr, err.Error())
	}
	if err := e.mgr.Whitelist(func(reg *whitelist.Registry) error { return apply(reg, caller, subject) }); err != nil {
		return printError(stderr, err.Error())
	}
	e.logger.Info("resolver registry updated", "op", name, "target", subject.Hex())
	return printJSON(stdout, map[string]string{"op": name, "target": subject.Hex()})
}

func runRegisterResolver(e *env, args []string, stdout, stderr io.Writer) int {
	return runRegistryChange(e, "register-resolver", args, stdout, stderr, (*whitelist.Registry).Register)
}

func runDeregisterResolver(e *env, args []string, stdout, stderr io.Writer) int {
	return runRegistryChange(e, "deregister-resolver", args, stdout, stderr, (*whitelist.Registry).Deregister)
}

func runTransferAuthority(e *env, args []string, stdout, stderr io.Writer) int {
	return runRegistryChange(e, "transfer-authority", args, stdout, stderr, (*whitelist.Registry).TransferAuthority)
}

func runMint(e *env, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("mint", stderr)
	to := fs.String("to", "", "recipient identity")
	asset := fs.String("asset", "native", "asset id or \"native\"")
	amount := fs.String("amount", "", "amount in whole units")
	decimals := fs.Int("decimals", 0, "asset decimals used to interpret --amount")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	owner, err := parseAddress("to", *to)
	if err != nil {
		return printError(stderr, err.Error())
	}
	assetID, err := parseAsset(*asset)
	if err != nil {
		return printError(stderr, err.Error())
	}
	value, err := parseAmount(*amount, int32(*decimals))
	if err != nil {
		return printError(stderr, err.Error())
	}
	if err := e.mgr.Mint(owner, assetID, value); err != nil {
		return printError(stderr, err.Error())
	}
	return printJSON(stdout, map[string]string{"owner": owner.Hex(), "asset": assetID.Hex(), "minted": strconv.FormatUint(value, 10)})
}

func runBalance(e *env, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("balance", stderr)
	owner := fs.String("owner", "", "identity to inspect")
	asset := fs.String("asset", "native", "asset id or \"native\"")
	decimals := fs.Int("decimals", 0, "asset decimals used for display")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	addr, err := parseAddress("owner", *owner)
	if err != nil {
		return printError(stderr, err.Error())
	}
	assetID, err := parseAsset(*asset)
	if err != nil {
		return printError(stderr, err.Error())
	}
	balance, err := e.mgr.Balance(addr, assetID)
	if err != nil {
		return printError(stderr, err.Error())
	}
	return printJSON(stdout, map[string]string{
		"owner":   addr.Hex(),
		"asset":   assetID.Hex(),
		"balance": formatAmount(balance, int32(*decimals)),
	})
}

func runCreate(e *env, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("create", stderr)
	orderPath := fs.String("order", "", "order terms (JSON or YAML)")
	fundingKind := fs.String("funding", "", "native or external (defaults to native for native sources)")
	ref := fs.String("ref", "", "funding account for external funding (defaults to the maker)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	order, err := loadOrder(*orderPath)
	if err != nil {
		return printError(stderr, err.Error())
	}
	funding, err := parseFunding(*fundingKind, *ref, order)
	if err != nil {
		return printError(stderr, err.Error())
	}
	esc, err := e.engine.CreateOrder(order, funding)
	if err != nil {
		return printError(stderr, err.Error())
	}
	return printJSON(stdout, escrowView(esc))
}

func parseFunding(kind, ref string, order *fusion.Order) (fusion.Funding, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "":
		if order.SrcAssetIsNative {
			return fusion.NativeFunding(), nil
		}
		return fusion.ExternalFunding(order.Maker), nil
	case "native":
		return fusion.NativeFunding(), nil
	case "external":
		if strings.TrimSpace(ref) == "" {
			return fusion.ExternalFunding(order.Maker), nil
		}
		addr, err := parseAddress("ref", ref)
		if err != nil {
			return fusion.Funding{}, err
		}
		return fusion.ExternalFunding(addr), nil
	default:
		return fusion.Funding{}, fmt.Errorf("--funding must be native or external")
	}
}

func runFill(e *env, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("fill", stderr)
	orderPath := fs.String("order", "", "order terms (JSON or YAML)")
	as := fs.String("as", "", "resolver identity")
	amount := fs.String("amount", "", "source amount to fill, in whole units")
	decimals := fs.Int("decimals", 0, "source asset decimals used to interpret --amount")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	order, err := loadOrder(*orderPath)
	if err != nil {
		return printError(stderr, err.Error())
	}
	caller, err := parseAddress("as", *as)
	if err != nil {
		return printError(stderr, err.Error())
	}
	value, err := parseAmount(*amount, int32(*decimals))
	if err != nil {
		return printError(stderr, err.Error())
	}
	result, err := e.engine.FillOrder(order, value, caller)
	if err != nil {
		return printError(stderr, err.Error())
	}
	return printJSON(stdout, result)
}

func runCancel(e *env, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("cancel", stderr)
	orderPath := fs.String("order", "", "order terms (JSON or YAML)")
	as := fs.String("as", "", "maker identity")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	order, err := loadOrder(*orderPath)
	if err != nil {
		return printError(stderr, err.Error())
	}
	caller, err := parseAddress("as", *as)
	if err != nil {
		return printError(stderr, err.Error())
	}
	result, err := e.engine.CancelOrder(order, caller)
	if err != nil {
		return printError(stderr, err.Error())
	}
	return printJSON(stdout, result)
}

func runCancelByResolver(e *env, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("cancel-by-resolver", stderr)
	orderPath := fs.String("order", "", "order terms (JSON or YAML)")
	as := fs.String("as", "", "resolver identity")
	limit := fs.Uint64("reward-limit", math.MaxUint64, "upper bound on the incentive, in native base units")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	order, err := loadOrder(*orderPath)
	if err != nil {
		return printError(stderr, err.Error())
	}
	caller, err := parseAddress("as", *as)
	if err != nil {
		return printError(stderr, err.Error())
	}
	result, err := e.engine.CancelOrderByResolverWithLimit(order, caller, *limit)
	if err != nil {
		return printError(stderr, err.Error())
	}
	return printJSON(stdout, result)
}

func runStatus(e *env, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("status", stderr)
	orderPath := fs.String("order", "", "order terms (JSON or YAML)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	order, err := loadOrder(*orderPath)
	if err != nil {
		return printError(stderr, err.Error())
	}
	key := fusion.KeyFor(order)
	esc, ok, err := e.engine.Escrow(key)
	if err != nil {
		return printError(stderr, err.Error())
	}
	if !ok {
		return printJSON(stdout, map[string]string{"orderHash": key.OrderHash.Hex(), "status": "closed"})
	}
	remaining, err := e.engine.Remaining(order)
	if err != nil {
		return printError(stderr, err.Error())
	}
	view := escrowView(esc)
	view["status"] = "open"
	view["remaining"] = strconv.FormatUint(remaining, 10)
	return printJSON(stdout, view)
}

func escrowView(esc *fusion.Escrow) map[string]string {
	return map[string]string{
		"maker":     esc.Maker.Hex(),
		"orderHash": esc.OrderHash.Hex(),
		"holding":   esc.Holding.Hex(),
		"srcAsset":  esc.SrcAsset.Hex(),
		"funding":   esc.Funding.String(),
		"createdAt": strconv.FormatInt(esc.CreatedAt, 10),
	}
}

// runQuote prices a fill without touching state.
func runQuote(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("quote", stderr)
	orderPath := fs.String("order", "", "order terms (JSON or YAML)")
	amount := fs.String("amount", "", "source amount to price, in whole units")
	srcDecimals := fs.Int("src-decimals", 0, "source asset decimals")
	dstDecimals := fs.Int("dst-decimals", 0, "destination asset decimals used for display")
	at := fs.Int64("at", 0, "unix time to price at (defaults to now)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	order, err := loadOrder(*orderPath)
	if err != nil {
		return printError(stderr, err.Error())
	}
	value, err := parseAmount(*amount, int32(*srcDecimals))
	if err != nil {
		return printError(stderr, err.Error())
	}
	now := *at
	if now == 0 {
		now = cliNow()
	}
	quote, err := fusion.QuoteFill(order, value, now)
	if err != nil {
		return printError(stderr, err.Error())
	}
	dec := int32(*dstDecimals)
	return printJSON(stdout, map[string]string{
		"orderHash":     fusion.HashOrder(order).Hex(),
		"at":            strconv.FormatInt(now, 10),
		"rateBump":      formatRate(quote.RateBump, auction.BumpScale),
		"dstAmount":     formatAmount(quote.DstAmount, dec),
		"estimated":     formatAmount(quote.EstimatedDstAmount, dec),
		"protocolFee":   formatAmount(quote.ProtocolFee, dec),
		"surplusFee":    formatAmount(quote.SurplusFee, dec),
		"integratorFee": formatAmount(quote.IntegratorFee, dec),
		"makerAmount":   formatAmount(quote.MakerAmount, dec),
	})
}
