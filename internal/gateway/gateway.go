package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Payment describes a single fiat movement handed to a provider. Amount is
// in whole fiat units (KES); providers that want integer shillings truncate
// themselves.
type Payment struct {
	Direction   string
	Amount      decimal.Decimal
	Currency    string
	Phone       string
	Reference   string
	Description string
}

// Gateway is the external payment provider interface. Send dispatches a
// collection (onramp) or disbursement (offramp) and returns the provider's
// correlation id, which later callbacks are matched against.
type Gateway interface {
	Name() string
	Send(ctx context.Context, p Payment) (string, error)
}

// CallbackResult is the provider-neutral form of an asynchronous payment
// notification, produced by the provider-specific payload parsers.
type CallbackResult struct {
	ProviderRef string
	Status      string
	Receipt     string
	Description string
	Raw         map[string]any
}
