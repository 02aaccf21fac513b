package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kipsangc/ramphub/internal/domain"
	"go.uber.org/zap"
)

// SweeperService fails out PENDING transactions whose initiation never
// finished, typically after a crash between the contract and provider
// calls. Rows that progressed in the meantime are skipped.
type SweeperService struct {
	store     TransactionStore
	grace     time.Duration
	batchSize int
}

func NewSweeperService(store TransactionStore, grace time.Duration, batchSize int) *SweeperService {
	if grace <= 0 {
		grace = 30 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &SweeperService{store: store, grace: grace, batchSize: batchSize}
}

// Run sweeps one batch of stale PENDING transactions into FAILED.
func (s *SweeperService) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-s.grace)
	ids, err := s.store.ListStalePendingIDs(ctx, cutoff, s.batchSize)
	if err != nil {
		return fmt.Errorf("list stale pending transactions: %w", err)
	}

	swept := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.store.UpdateTransaction(ctx, id, func(t *domain.Transaction) error {
			if t.Status != domain.TxStatusPending {
				return nil
			}
			t.Metadata = t.Metadata.Merge(domain.Metadata{
				FailureReason: "timed out waiting for provider acceptance",
			})
			return transitionTransaction(t, domain.TxStatusFailed, time.Now())
		})
		if err != nil {
			zap.L().Error("failed to sweep stale transaction", zap.Error(err), zap.Int64("transaction_id", id))
			continue
		}
		swept++
	}

	if swept > 0 {
		zap.L().Warn("swept stale pending transactions", zap.Int("count", swept))
	}
	return nil
}
