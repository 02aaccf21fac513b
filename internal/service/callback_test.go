package service

import (
	"context"
	"sync"
	"testing"

	"github.com/kipsangc/ramphub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCallbackFixture(t *testing.T) (*rampFixture, *CallbackService, int64) {
	t.Helper()
	f := newRampFixture(t)
	resp, err := f.svc.Initiate(context.Background(), validOnrampRequest())
	require.NoError(t, err)
	cb := NewCallbackService(f.store, f.contract, "", true)
	return f, cb, resp.TransactionID
}

func TestIngestCallbackSuccessCompletesTransaction(t *testing.T) {
	f, cb, txID := newCallbackFixture(t)

	ack, err := cb.IngestCallback(context.Background(), CallbackEvent{
		ProviderRef: "ws_CO_123",
		Status:      domain.ProviderStatusSuccess,
		Receipt:     "QGH7SK61SU",
		Raw:         map[string]any{"ResultCode": float64(0)},
	})
	require.NoError(t, err)
	assert.Equal(t, txID, ack.TransactionID)
	assert.Equal(t, domain.TxStatusCompleted, ack.Status)
	assert.False(t, ack.AlreadyTerminal)
	cb.WaitMirrors()

	tx, err := f.store.GetTransaction(context.Background(), txID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, tx.Status)
	require.NotNil(t, tx.CompletedAt)
	assert.Equal(t, "QGH7SK61SU", tx.Metadata.ProviderReceipt)
	assert.Equal(t, "254712345678", tx.Metadata.PhoneNumber, "existing metadata must survive the merge")
	assert.Contains(t, tx.Metadata.Extra, "callback_payload")

	// Terminal status mirrored to the contract.
	require.Len(t, f.contract.Statuses[tx.ContractRef], 1)
	assert.Equal(t, domain.ContractStatusCompleted, f.contract.Statuses[tx.ContractRef][0])
	assert.Equal(t, "completed", tx.Metadata.ContractStatus)
}

func TestIngestCallbackFailureRecordsReason(t *testing.T) {
	f, cb, txID := newCallbackFixture(t)

	_, err := cb.IngestCallback(context.Background(), CallbackEvent{
		ProviderRef: "ws_CO_123",
		Status:      domain.ProviderStatusFailure,
		Description: "insufficient funds on handset",
	})
	require.NoError(t, err)
	cb.WaitMirrors()

	tx, err := f.store.GetTransaction(context.Background(), txID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusFailed, tx.Status)
	assert.Nil(t, tx.CompletedAt)
	assert.Equal(t, "insufficient funds on handset", tx.Metadata.FailureReason)
	require.Len(t, f.contract.Statuses[tx.ContractRef], 1)
	assert.Equal(t, domain.ContractStatusFailed, f.contract.Statuses[tx.ContractRef][0])
}

func TestIngestCallbackCancel(t *testing.T) {
	f, cb, txID := newCallbackFixture(t)

	_, err := cb.IngestCallback(context.Background(), CallbackEvent{
		ProviderRef: "ws_CO_123",
		Status:      domain.ProviderStatusCancel,
	})
	require.NoError(t, err)

	tx, err := f.store.GetTransaction(context.Background(), txID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCancelled, tx.Status)
}

func TestIngestCallbackDuplicateIsNoOp(t *testing.T) {
	f, cb, txID := newCallbackFixture(t)
	ctx := context.Background()

	_, err := cb.IngestCallback(ctx, CallbackEvent{ProviderRef: "ws_CO_123", Status: domain.ProviderStatusSuccess})
	require.NoError(t, err)
	cb.WaitMirrors()

	// A late contradictory duplicate must not flip the terminal status.
	ack, err := cb.IngestCallback(ctx, CallbackEvent{ProviderRef: "ws_CO_123", Status: domain.ProviderStatusFailure})
	require.NoError(t, err)
	assert.True(t, ack.AlreadyTerminal)
	assert.Equal(t, domain.TxStatusCompleted, ack.Status)

	tx, err := f.store.GetTransaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, tx.Status)
	require.Len(t, f.contract.Statuses[tx.ContractRef], 1)
}

func TestIngestCallbackConcurrentDuplicatesApplyOnce(t *testing.T) {
	f, cb, txID := newCallbackFixture(t)
	ctx := context.Background()

	const n = 8
	acks := make([]*CallbackAck, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ack, err := cb.IngestCallback(ctx, CallbackEvent{ProviderRef: "ws_CO_123", Status: domain.ProviderStatusSuccess})
			assert.NoError(t, err)
			acks[i] = ack
		}(i)
	}
	wg.Wait()
	cb.WaitMirrors()

	applied := 0
	for _, ack := range acks {
		if ack != nil && !ack.AlreadyTerminal {
			applied++
		}
	}
	assert.Equal(t, 1, applied, "exactly one delivery should apply the transition")

	tx, err := f.store.GetTransaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, tx.Status)
}

func TestIngestCallbackUnrecognizedStatusLeavesRowUntouched(t *testing.T) {
	f, cb, txID := newCallbackFixture(t)

	_, err := cb.IngestCallback(context.Background(), CallbackEvent{
		ProviderRef: "ws_CO_123",
		Status:      "maybe",
	})
	var uerr *UnrecognizedStatusError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "maybe", uerr.Status)

	tx, err := f.store.GetTransaction(context.Background(), txID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusProcessing, tx.Status)
}

func TestIngestCallbackUnknownProviderRef(t *testing.T) {
	_, cb, _ := newCallbackFixture(t)

	_, err := cb.IngestCallback(context.Background(), CallbackEvent{
		ProviderRef: "no-such-ref",
		Status:      domain.ProviderStatusSuccess,
	})
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestIngestCallbackContractMirrorFailureKeepsLocalState(t *testing.T) {
	f, cb, txID := newCallbackFixture(t)
	f.contract.SubmitErr = assert.AnError

	ack, err := cb.IngestCallback(context.Background(), CallbackEvent{
		ProviderRef: "ws_CO_123",
		Status:      domain.ProviderStatusSuccess,
	})
	require.NoError(t, err, "mirror failure must not surface to the provider")
	assert.Equal(t, domain.TxStatusCompleted, ack.Status)
	cb.WaitMirrors()

	tx, err := f.store.GetTransaction(context.Background(), txID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, tx.Status)
	assert.Equal(t, "initiated", tx.Metadata.ContractStatus)
}

func TestVerifySignature(t *testing.T) {
	cb := NewCallbackService(nil, nil, "secret", false)
	payload := []byte(`{"provider_ref":"abc"}`)

	// sha256 HMAC of payload with key "secret".
	assert.False(t, cb.VerifySignature(payload, "sha256=deadbeef"))

	open := NewCallbackService(nil, nil, "", true)
	assert.True(t, open.VerifySignature(payload, ""))
}
