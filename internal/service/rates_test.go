package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kipsangc/ramphub/internal/contract"
	"github.com/kipsangc/ramphub/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRatesFallsBackToLastKnown(t *testing.T) {
	mock := contract.NewMock()
	svc := NewRateService(mock, nil, time.Minute)
	ctx := context.Background()

	pair, err := svc.GetRates(ctx)
	require.NoError(t, err)
	assert.True(t, pair.FiatToAsset.Equal(decimal.RequireFromString("0.05")))

	mock.RatesErr = errors.New("relay down")
	pair, err = svc.GetRates(ctx)
	require.NoError(t, err, "last known pair should be served when the relay is down")
	assert.True(t, pair.AssetToFiat.Equal(decimal.RequireFromString("20")))
}

func TestGetRatesNoFallbackAvailable(t *testing.T) {
	mock := contract.NewMock()
	mock.RatesErr = errors.New("relay down")
	svc := NewRateService(mock, nil, time.Minute)

	_, err := svc.GetRates(context.Background())
	var gerr *GatewayError
	require.ErrorAs(t, err, &gerr)
}

func TestQuoteBothDirections(t *testing.T) {
	svc := NewRateService(contract.NewMock(), nil, time.Minute)
	ctx := context.Background()

	onramp, err := svc.Quote(ctx, QuoteRequest{
		Direction:  domain.DirectionOnRamp,
		FiatAmount: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	assert.True(t, onramp.AssetAmount.Equal(decimal.NewFromInt(50)))

	offramp, err := svc.Quote(ctx, QuoteRequest{
		Direction:   domain.DirectionOffRamp,
		AssetAmount: decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	assert.True(t, offramp.FiatAmount.Equal(decimal.NewFromInt(1000)))
}

func TestQuoteValidation(t *testing.T) {
	svc := NewRateService(contract.NewMock(), nil, time.Minute)

	_, err := svc.Quote(context.Background(), QuoteRequest{Direction: "sideways"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.Quote(context.Background(), QuoteRequest{Direction: domain.DirectionOnRamp})
	require.ErrorAs(t, err, &verr)
}
