package contract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kipsangc/ramphub/internal/domain"
	"github.com/shopspring/decimal"
)

// Mock is an in-process Gateway for local development and tests. It records
// every intent and status submission and serves fixed rates.
type Mock struct {
	mu       sync.Mutex
	nextID   int
	Intents  []Intent
	Statuses map[string][]int

	RegisterErr error
	SubmitErr   error
	RatesErr    error
	Rates       domain.RatePair
}

func NewMock() *Mock {
	return &Mock{
		Statuses: make(map[string][]int),
		Rates: domain.RatePair{
			FiatToAsset: decimal.RequireFromString("0.05"),
			AssetToFiat: decimal.RequireFromString("20"),
		},
	}
}

func (m *Mock) RegisterIntent(ctx context.Context, intent Intent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RegisterErr != nil {
		return "", m.RegisterErr
	}
	m.nextID++
	m.Intents = append(m.Intents, intent)
	return fmt.Sprintf("0.0.1234@%d.%d", time.Now().Unix(), m.nextID), nil
}

func (m *Mock) SubmitStatus(ctx context.Context, contractTxID string, statusCode int, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return m.SubmitErr
	}
	m.Statuses[contractTxID] = append(m.Statuses[contractTxID], statusCode)
	return nil
}

func (m *Mock) GetRates(ctx context.Context) (domain.RatePair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RatesErr != nil {
		return domain.RatePair{}, m.RatesErr
	}
	return m.Rates, nil
}

func (m *Mock) GetStats(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		TotalOnRampVolume:  decimal.NewFromInt(0),
		TotalOffRampVolume: decimal.NewFromInt(0),
		TransactionCount:   int64(len(m.Intents)),
	}, nil
}
