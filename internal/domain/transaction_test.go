package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataMergePreservesExistingKeys(t *testing.T) {
	initial := Metadata{
		PhoneNumber:  "254712345678",
		Provider:     PaymentMethodIntersend,
		ContractTxID: "0.0.1234@169",
		Extra:        map[string]any{"amount_kes": "100"},
	}

	merged := initial.Merge(Metadata{
		ProviderReceipt: "QK12XYZ",
		Extra:           map[string]any{"callback_received_at": "2024-01-02T03:04:05Z"},
	})

	assert.Equal(t, "254712345678", merged.PhoneNumber)
	assert.Equal(t, "0.0.1234@169", merged.ContractTxID)
	assert.Equal(t, "QK12XYZ", merged.ProviderReceipt)
	assert.Equal(t, "100", merged.Extra["amount_kes"])
	assert.Equal(t, "2024-01-02T03:04:05Z", merged.Extra["callback_received_at"])
}

func TestMetadataMergeEmptyIncomingFieldDoesNotClobber(t *testing.T) {
	initial := Metadata{ContractTxID: "ctx-1"}
	merged := initial.Merge(Metadata{FailureReason: "provider timeout"})
	assert.Equal(t, "ctx-1", merged.ContractTxID)
	assert.Equal(t, "provider timeout", merged.FailureReason)
}

func TestMetadataMergeDoesNotMutateReceiver(t *testing.T) {
	initial := Metadata{Extra: map[string]any{"a": "1"}}
	_ = initial.Merge(Metadata{Extra: map[string]any{"b": "2"}})
	_, ok := initial.Extra["b"]
	assert.False(t, ok)
}

func TestMetadataJSONRoundTrip(t *testing.T) {
	m := Metadata{
		PhoneNumber:    "254712345678",
		Provider:       PaymentMethodMpesa,
		ContractTxID:   "0.0.77@12",
		ContractStatus: "initiated",
		Extra:          map[string]any{"checkout_request_id": "ws_CO_123"},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Metadata
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, m.PhoneNumber, decoded.PhoneNumber)
	assert.Equal(t, m.Provider, decoded.Provider)
	assert.Equal(t, m.ContractTxID, decoded.ContractTxID)
	assert.Equal(t, m.ContractStatus, decoded.ContractStatus)
	assert.Equal(t, "ws_CO_123", decoded.Extra["checkout_request_id"])
}

func TestIsTerminalStatus(t *testing.T) {
	assert.False(t, IsTerminalStatus(TxStatusPending))
	assert.False(t, IsTerminalStatus(TxStatusProcessing))
	assert.True(t, IsTerminalStatus(TxStatusCompleted))
	assert.True(t, IsTerminalStatus(TxStatusFailed))
	assert.True(t, IsTerminalStatus(TxStatusCancelled))
}
