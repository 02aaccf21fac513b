package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Mock simulates a payment provider for local development. It introduces a
// small random delay and fails a configurable fraction of requests.
type Mock struct {
	// FailureRate is the probability of failure (0.0 to 1.0).
	FailureRate float64
	// Delay is the simulated network latency per call.
	Delay time.Duration
}

func NewMock() *Mock {
	return &Mock{
		FailureRate: 0.1,
		Delay:       500 * time.Millisecond,
	}
}

func (g *Mock) Name() string { return "mock" }

func (g *Mock) Send(ctx context.Context, p Payment) (string, error) {
	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return "", fmt.Errorf("gateway call canceled: %w", ctx.Err())
		}
	}

	if rand.Float64() < g.FailureRate {
		return "", fmt.Errorf("gateway temporarily unavailable")
	}

	ref := fmt.Sprintf("MOCK-%s-%05d", time.Now().Format("20060102-150405"), rand.Intn(100000))
	return ref, nil
}
