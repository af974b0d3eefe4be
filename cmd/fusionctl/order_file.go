package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"fusionswap/core/types"
	"fusionswap/native/fusion"
)

// loadOrder reads order terms from a JSON or YAML file, chosen by extension.
func loadOrder(path string) (*fusion.Order, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("--order is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	order := new(fusion.Order)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(order); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(order); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return order, nil
}

func parseAddress(name, value string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return common.Address{}, fmt.Errorf("--%s is required", name)
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("--%s must be a hex address", name)
	}
	return common.HexToAddress(trimmed), nil
}

// parseAsset accepts a hex asset id or the word "native".
func parseAsset(value string) (common.Address, error) {
	if strings.EqualFold(strings.TrimSpace(value), "native") {
		return types.NativeAsset, nil
	}
	return parseAddress("asset", value)
}

// parseAmount converts a decimal amount expressed in whole units into base
// units, rejecting fractions finer than decimals.
func parseAmount(value string, decimals int32) (uint64, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if trimmed == "" {
		return 0, fmt.Errorf("--amount is required")
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("--amount must be a number")
	}
	if amount.IsNegative() {
		return 0, fmt.Errorf("--amount must not be negative")
	}
	scaled := amount.Shift(decimals)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("--amount has more than %d decimal places", decimals)
	}
	base := scaled.BigInt()
	if !base.IsUint64() {
		return 0, fmt.Errorf("--amount exceeds %d base units", uint64(math.MaxUint64))
	}
	return base.Uint64(), nil
}

// formatAmount renders base units as a decimal with the given precision.
func formatAmount(amount uint64, decimals int32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -decimals).StringFixed(decimals)
}

// formatRate renders a fixed-point rate as a percentage.
func formatRate(rate, scale uint64) string {
	if scale == 0 {
		return "0"
	}
	pct := decimal.NewFromBigInt(new(big.Int).SetUint64(rate), 0).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromBigInt(new(big.Int).SetUint64(scale), 0))
	return pct.StringFixed(3) + "%"
}
