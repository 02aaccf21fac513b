package domain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amount scaling between the human-readable decimal representation and the
// smallest indivisible unit of each external system. Fiat is settled by the
// mobile-money provider in hundredths (cents), the asset ledger counts
// tinybar (10^-8) and the ramp contract tracks fiat in 18-decimal fixed
// point. All conversions are exact; an amount that does not fit the target
// granularity is rejected rather than rounded.
const (
	FiatDecimals     = 2
	AssetDecimals    = 8
	ContractDecimals = 18
)

// FiatToCents converts a fiat amount to provider cents. Fails if the amount
// carries sub-cent precision.
func FiatToCents(amount decimal.Decimal) (int64, error) {
	return toUnits(amount, FiatDecimals)
}

// CentsToFiat converts provider cents back to a fiat decimal.
func CentsToFiat(cents int64) decimal.Decimal {
	return decimal.New(cents, -FiatDecimals)
}

// AssetToTinybar converts an asset amount to tinybar. Fails if the amount
// carries more than 8 decimal places.
func AssetToTinybar(amount decimal.Decimal) (int64, error) {
	return toUnits(amount, AssetDecimals)
}

// TinybarToAsset converts tinybar back to an asset decimal.
func TinybarToAsset(tinybar int64) decimal.Decimal {
	return decimal.New(tinybar, -AssetDecimals)
}

// FiatToContractUnits converts a fiat amount to the contract's 18-decimal
// fixed-point representation. The result exceeds int64 range for realistic
// amounts, so it is returned as a big.Int.
func FiatToContractUnits(amount decimal.Decimal) (*big.Int, error) {
	scaled := amount.Shift(ContractDecimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, ContractDecimals)
	}
	return scaled.BigInt(), nil
}

// ContractUnitsToFiat converts 18-decimal contract units back to fiat.
func ContractUnitsToFiat(units *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(units, -ContractDecimals)
}

func toUnits(amount decimal.Decimal, decimals int32) (int64, error) {
	scaled := amount.Shift(decimals)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s overflows unit range", amount)
	}
	return scaled.IntPart(), nil
}

// RatePair holds the current conversion rates between the fiat currency and
// the ledger asset, as published by the ramp contract.
type RatePair struct {
	FiatToAsset decimal.Decimal `json:"fiat_to_asset"`
	AssetToFiat decimal.Decimal `json:"asset_to_fiat"`
}

// ConvertFiatToAsset quotes the asset amount for a fiat amount, truncated to
// the asset's tinybar granularity.
func (r RatePair) ConvertFiatToAsset(fiat decimal.Decimal) decimal.Decimal {
	return fiat.Mul(r.FiatToAsset).Truncate(AssetDecimals)
}

// ConvertAssetToFiat quotes the fiat amount for an asset amount, truncated to
// cent granularity.
func (r RatePair) ConvertAssetToFiat(asset decimal.Decimal) decimal.Decimal {
	return asset.Mul(r.AssetToFiat).Truncate(FiatDecimals)
}
