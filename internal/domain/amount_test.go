package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiatToCentsRoundTrip(t *testing.T) {
	// Every amount representable at cent granularity must survive the trip.
	for _, s := range []string{"25", "25.01", "100", "149999.99", "150000", "0.01"} {
		amount, err := decimal.NewFromString(s)
		require.NoError(t, err)

		cents, err := FiatToCents(amount)
		require.NoError(t, err)
		assert.True(t, CentsToFiat(cents).Equal(amount), "round trip failed for %s", s)
	}
}

func TestFiatToCentsRejectsSubCent(t *testing.T) {
	_, err := FiatToCents(decimal.RequireFromString("25.001"))
	assert.Error(t, err)
}

func TestAssetToTinybarRoundTrip(t *testing.T) {
	amount := decimal.RequireFromString("2.34567891")
	tb, err := AssetToTinybar(amount)
	require.NoError(t, err)
	assert.Equal(t, int64(234567891), tb)
	assert.True(t, TinybarToAsset(tb).Equal(amount))
}

func TestAssetToTinybarRejectsExcessPrecision(t *testing.T) {
	_, err := AssetToTinybar(decimal.RequireFromString("1.123456789"))
	assert.Error(t, err)
}

func TestFiatToContractUnits(t *testing.T) {
	units, err := FiatToContractUnits(decimal.RequireFromString("100"))
	require.NoError(t, err)
	assert.Equal(t, "100000000000000000000", units.String())
	assert.True(t, ContractUnitsToFiat(units).Equal(decimal.RequireFromString("100")))
}

func TestFiatToContractUnitsMaxAmount(t *testing.T) {
	// The provider maximum exceeds int64 at 18 decimals and must still convert.
	units, err := FiatToContractUnits(decimal.RequireFromString("150000"))
	require.NoError(t, err)
	assert.Equal(t, "150000000000000000000000", units.String())
}

func TestRatePairConversion(t *testing.T) {
	rates := RatePair{
		FiatToAsset: decimal.RequireFromString("0.0234"),
		AssetToFiat: decimal.RequireFromString("42.74"),
	}

	asset := rates.ConvertFiatToAsset(decimal.RequireFromString("100"))
	assert.Equal(t, "2.34", asset.String())

	fiat := rates.ConvertAssetToFiat(decimal.RequireFromString("2.34"))
	assert.Equal(t, "100.01", fiat.String())
}

func TestRatePairConversionTruncatesToGranularity(t *testing.T) {
	rates := RatePair{
		FiatToAsset: decimal.RequireFromString("0.333333333333"),
		AssetToFiat: decimal.RequireFromString("3.000000001"),
	}

	asset := rates.ConvertFiatToAsset(decimal.RequireFromString("1"))
	_, err := AssetToTinybar(asset)
	assert.NoError(t, err)

	fiat := rates.ConvertAssetToFiat(decimal.RequireFromString("1"))
	_, err = FiatToCents(fiat)
	assert.NoError(t, err)
}
