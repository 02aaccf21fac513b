package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kipsangc/ramphub/internal/contract"
	"github.com/kipsangc/ramphub/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const ratesCacheKey = "ramphub:rates"

// RateService serves the contract's exchange rates with a short Redis
// cache in front and the last known pair as a fallback when the relay is
// unreachable.
type RateService struct {
	contract contract.Gateway
	redis    redis.Cmdable
	ttl      time.Duration

	mu        sync.Mutex
	lastKnown *domain.RatePair
}

func NewRateService(contractGW contract.Gateway, rdb redis.Cmdable, ttl time.Duration) *RateService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RateService{contract: contractGW, redis: rdb, ttl: ttl}
}

type cachedRates struct {
	FiatToAsset decimal.Decimal `json:"fiat_to_asset"`
	AssetToFiat decimal.Decimal `json:"asset_to_fiat"`
}

// GetRates returns the current rate pair: cache, then contract, then the
// last pair this process saw.
func (s *RateService) GetRates(ctx context.Context) (domain.RatePair, error) {
	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, ratesCacheKey).Bytes(); err == nil {
			var cached cachedRates
			if json.Unmarshal(raw, &cached) == nil && !cached.FiatToAsset.IsZero() {
				return domain.RatePair{FiatToAsset: cached.FiatToAsset, AssetToFiat: cached.AssetToFiat}, nil
			}
		}
	}

	pair, err := s.contract.GetRates(ctx)
	if err != nil {
		s.mu.Lock()
		last := s.lastKnown
		s.mu.Unlock()
		if last != nil {
			zap.L().Warn("contract rates unavailable, serving last known pair", zap.Error(err))
			return *last, nil
		}
		return domain.RatePair{}, &GatewayError{Op: "contract get rates", Err: err}
	}

	s.mu.Lock()
	s.lastKnown = &pair
	s.mu.Unlock()

	if s.redis != nil {
		raw, _ := json.Marshal(cachedRates{FiatToAsset: pair.FiatToAsset, AssetToFiat: pair.AssetToFiat})
		if err := s.redis.Set(ctx, ratesCacheKey, raw, s.ttl).Err(); err != nil {
			zap.L().Warn("failed to cache rates", zap.Error(err))
		}
	}
	return pair, nil
}

// QuoteRequest asks what one side of a conversion is worth. Exactly one of
// the amounts should be set.
type QuoteRequest struct {
	Direction   string
	FiatAmount  decimal.Decimal
	AssetAmount decimal.Decimal
}

// QuoteResponse is a non-binding conversion preview.
type QuoteResponse struct {
	Direction   string          `json:"direction"`
	FiatAmount  decimal.Decimal `json:"fiat_amount"`
	AssetAmount decimal.Decimal `json:"asset_amount"`
	Rate        decimal.Decimal `json:"rate"`
}

// Quote converts between fiat and asset at the current rate.
func (s *RateService) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	switch req.Direction {
	case domain.DirectionOnRamp, domain.DirectionOffRamp:
	default:
		return nil, validationErrorf("direction must be %q or %q", domain.DirectionOnRamp, domain.DirectionOffRamp)
	}

	pair, err := s.GetRates(ctx)
	if err != nil {
		return nil, err
	}

	resp := &QuoteResponse{Direction: req.Direction}
	if req.Direction == domain.DirectionOnRamp {
		if !req.FiatAmount.IsPositive() {
			return nil, validationErrorf("fiat_amount must be positive")
		}
		resp.FiatAmount = req.FiatAmount
		resp.AssetAmount = pair.ConvertFiatToAsset(req.FiatAmount)
		resp.Rate = pair.FiatToAsset
	} else {
		if !req.AssetAmount.IsPositive() {
			return nil, validationErrorf("asset_amount must be positive")
		}
		resp.AssetAmount = req.AssetAmount
		resp.FiatAmount = pair.ConvertAssetToFiat(req.AssetAmount)
		resp.Rate = pair.AssetToFiat
	}
	return resp, nil
}

// Stats proxies the contract's aggregate view.
func (s *RateService) Stats(ctx context.Context) (*contract.Stats, error) {
	stats, err := s.contract.GetStats(ctx)
	if err != nil {
		return nil, &GatewayError{Op: "contract get stats", Err: err}
	}
	return &stats, nil
}
