// Package contract talks to the on-ledger ramp contract through an HTTP
// relay. The contract mirrors transaction lifecycle status; the local
// database stays authoritative, so mirror writes are best-effort.
package contract

import (
	"context"
	"math/big"

	"github.com/kipsangc/ramphub/internal/domain"
	"github.com/shopspring/decimal"
)

// Intent registers a transaction on the contract before any fiat moves.
// AmountUnits is in contract base units: wei-style 10^18 fiat units for
// onramps, tinybar for offramps.
type Intent struct {
	TransactionID int64
	Direction     string
	AmountUnits   *big.Int
	Phone         string
	Wallet        string
}

// Stats is the contract-side aggregate view exposed on the ramp stats
// endpoint.
type Stats struct {
	TotalOnRampVolume  decimal.Decimal `json:"total_onramp_volume"`
	TotalOffRampVolume decimal.Decimal `json:"total_offramp_volume"`
	TransactionCount   int64           `json:"transaction_count"`
	ActiveUsers        int64           `json:"active_users"`
}

// Gateway is the relay client interface. RegisterIntent returns the
// contract-side transaction id used for later status submissions.
type Gateway interface {
	RegisterIntent(ctx context.Context, intent Intent) (string, error)
	SubmitStatus(ctx context.Context, contractTxID string, statusCode int, note string) error
	GetRates(ctx context.Context) (domain.RatePair, error)
	GetStats(ctx context.Context) (Stats, error)
}
