package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the authoritative ledger record of a single on/off-ramp
// operation. It is created by the reconciliation engine and mutated only
// through the engine's state transitions.
type Transaction struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	Direction     string          `json:"direction"`
	AssetAmount   decimal.Decimal `json:"asset_amount"`
	FiatAmount    decimal.Decimal `json:"fiat_amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	ProviderRef   string          `json:"provider_ref,omitempty"`
	ContractRef   string          `json:"contract_ref,omitempty"`
	Metadata      Metadata        `json:"metadata"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// IsTerminal reports whether the transaction has reached a terminal status.
func (t *Transaction) IsTerminal() bool {
	return IsTerminalStatus(t.Status)
}

// IsTerminalStatus reports whether a status admits no further transitions.
func IsTerminalStatus(status string) bool {
	switch status {
	case TxStatusCompleted, TxStatusFailed, TxStatusCancelled:
		return true
	default:
		return false
	}
}

// Metadata carries the known cross-system correlation fields plus an open
// extension map for provider-specific payload echoes. Field ownership:
// the engine writes the contract fields during Initiate, the callback path
// writes the provider fields, and raw provider payloads land in Extra.
type Metadata struct {
	PhoneNumber     string
	Provider        string
	ContractTxID    string
	ContractStatus  string
	ProviderReceipt string
	FailureReason   string
	Extra           map[string]any
}

const (
	metaKeyPhone           = "phone_number"
	metaKeyProvider        = "provider"
	metaKeyContractTxID    = "contract_transaction_id"
	metaKeyContractStatus  = "contract_status"
	metaKeyProviderReceipt = "provider_receipt"
	metaKeyFailureReason   = "failure_reason"
)

// Merge folds in another metadata record without discarding anything already
// present: a known field is replaced only when the incoming value is
// non-empty, and extension keys are unioned with incoming values winning per
// key. The receiver is not modified.
func (m Metadata) Merge(in Metadata) Metadata {
	out := m
	if in.PhoneNumber != "" {
		out.PhoneNumber = in.PhoneNumber
	}
	if in.Provider != "" {
		out.Provider = in.Provider
	}
	if in.ContractTxID != "" {
		out.ContractTxID = in.ContractTxID
	}
	if in.ContractStatus != "" {
		out.ContractStatus = in.ContractStatus
	}
	if in.ProviderReceipt != "" {
		out.ProviderReceipt = in.ProviderReceipt
	}
	if in.FailureReason != "" {
		out.FailureReason = in.FailureReason
	}
	if len(in.Extra) > 0 {
		merged := make(map[string]any, len(m.Extra)+len(in.Extra))
		for k, v := range m.Extra {
			merged[k] = v
		}
		for k, v := range in.Extra {
			merged[k] = v
		}
		out.Extra = merged
	}
	return out
}

// MarshalJSON flattens the known fields and the extension map into a single
// JSON object, the shape stored in the ledger's metadata column.
func (m Metadata) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(m.Extra)+6)
	for k, v := range m.Extra {
		flat[k] = v
	}
	if m.PhoneNumber != "" {
		flat[metaKeyPhone] = m.PhoneNumber
	}
	if m.Provider != "" {
		flat[metaKeyProvider] = m.Provider
	}
	if m.ContractTxID != "" {
		flat[metaKeyContractTxID] = m.ContractTxID
	}
	if m.ContractStatus != "" {
		flat[metaKeyContractStatus] = m.ContractStatus
	}
	if m.ProviderReceipt != "" {
		flat[metaKeyProviderReceipt] = m.ProviderReceipt
	}
	if m.FailureReason != "" {
		flat[metaKeyFailureReason] = m.FailureReason
	}
	return json.Marshal(flat)
}

// UnmarshalJSON lifts the known keys out of the flat object and keeps the
// remainder as extension data.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	flat := map[string]any{}
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	*m = Metadata{}
	if v, ok := flat[metaKeyPhone].(string); ok {
		m.PhoneNumber = v
		delete(flat, metaKeyPhone)
	}
	if v, ok := flat[metaKeyProvider].(string); ok {
		m.Provider = v
		delete(flat, metaKeyProvider)
	}
	if v, ok := flat[metaKeyContractTxID].(string); ok {
		m.ContractTxID = v
		delete(flat, metaKeyContractTxID)
	}
	if v, ok := flat[metaKeyContractStatus].(string); ok {
		m.ContractStatus = v
		delete(flat, metaKeyContractStatus)
	}
	if v, ok := flat[metaKeyProviderReceipt].(string); ok {
		m.ProviderReceipt = v
		delete(flat, metaKeyProviderReceipt)
	}
	if v, ok := flat[metaKeyFailureReason].(string); ok {
		m.FailureReason = v
		delete(flat, metaKeyFailureReason)
	}
	if len(flat) > 0 {
		m.Extra = flat
	}
	return nil
}
