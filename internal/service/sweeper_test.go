package service

import (
	"context"
	"testing"
	"time"

	"github.com/kipsangc/ramphub/internal/domain"
	"github.com/kipsangc/ramphub/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTransaction(t *testing.T, store *repository.Memory, status string, age time.Duration) int64 {
	t.Helper()
	tx := &domain.Transaction{
		UserID:        1,
		Direction:     domain.DirectionOnRamp,
		Currency:      "KES",
		FiatAmount:    decimal.NewFromInt(100),
		Status:        status,
		PaymentMethod: "mpesa",
	}
	require.NoError(t, store.CreateTransaction(context.Background(), tx))
	store.SetTransactionCreatedAt(tx.ID, time.Now().Add(-age))
	return tx.ID
}

func TestSweeperFailsStalePending(t *testing.T) {
	store := repository.NewMemory()
	ctx := context.Background()

	stale := seedTransaction(t, store, domain.TxStatusPending, time.Hour)
	fresh := seedTransaction(t, store, domain.TxStatusPending, time.Minute)
	processing := seedTransaction(t, store, domain.TxStatusProcessing, time.Hour)

	svc := NewSweeperService(store, 30*time.Minute, 100)
	require.NoError(t, svc.Run(ctx))

	got, err := store.GetTransaction(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, got.Status)
	assert.Contains(t, got.Metadata.FailureReason, "timed out")

	got, err = store.GetTransaction(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, got.Status, "recent pending rows are left alone")

	got, err = store.GetTransaction(ctx, processing)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusProcessing, got.Status, "processing rows wait for their callback")
}

func TestSweeperIsIdempotent(t *testing.T) {
	store := repository.NewMemory()
	stale := seedTransaction(t, store, domain.TxStatusPending, time.Hour)

	svc := NewSweeperService(store, 30*time.Minute, 100)
	require.NoError(t, svc.Run(context.Background()))
	require.NoError(t, svc.Run(context.Background()))

	got, err := store.GetTransaction(context.Background(), stale)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, got.Status)
}
