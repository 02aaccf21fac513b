package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kipsangc/ramphub/internal/contract"
	"github.com/kipsangc/ramphub/internal/domain"
	"github.com/kipsangc/ramphub/internal/observability"
	"github.com/kipsangc/ramphub/internal/repository"
	"go.uber.org/zap"
)

var ErrInvalidSignature = errors.New("invalid signature")

// providerStatusToTx is the fixed mapping from provider callback statuses to
// transaction statuses. Anything outside it is rejected unchanged.
var providerStatusToTx = map[string]string{
	domain.ProviderStatusSuccess: domain.TxStatusCompleted,
	domain.ProviderStatusFailure: domain.TxStatusFailed,
	domain.ProviderStatusCancel:  domain.TxStatusCancelled,
}

var txStatusToContractCode = map[string]int{
	domain.TxStatusCompleted: domain.ContractStatusCompleted,
	domain.TxStatusFailed:    domain.ContractStatusFailed,
	domain.TxStatusCancelled: domain.ContractStatusCancelled,
}

// CallbackService reconciles asynchronous provider notifications into the
// local ledger and mirrors the outcome to the contract.
type CallbackService struct {
	store           TransactionStore
	contract        contract.Gateway
	hmacKey         []byte
	skipSig         bool
	contractTimeout time.Duration

	mirrors sync.WaitGroup
}

func NewCallbackService(store TransactionStore, contractGW contract.Gateway, hmacKey string, skipSignature bool) *CallbackService {
	return &CallbackService{
		store:           store,
		contract:        contractGW,
		hmacKey:         []byte(hmacKey),
		skipSig:         skipSignature,
		contractTimeout: 15 * time.Second,
	}
}

// CallbackEvent is a provider notification in neutral form.
type CallbackEvent struct {
	ProviderRef string
	Status      string
	Receipt     string
	Description string
	Raw         map[string]any
}

// CallbackAck reports what ingestion did with the event.
type CallbackAck struct {
	TransactionID   int64  `json:"transaction_id"`
	Status          string `json:"status"`
	AlreadyTerminal bool   `json:"already_terminal"`
	Unmatched       bool   `json:"unmatched,omitempty"`
}

// IngestCallback applies one provider event to the matching transaction.
// The row is read and written under its lock, so a duplicate delivered
// concurrently serializes behind the first and lands on a terminal row,
// where it becomes a no-op. The local write is authoritative; the contract
// mirror afterwards is best effort.
func (s *CallbackService) IngestCallback(ctx context.Context, ev CallbackEvent) (*CallbackAck, error) {
	if ev.ProviderRef == "" {
		return nil, validationErrorf("provider_ref is required")
	}
	target, ok := providerStatusToTx[normalizeProviderStatus(ev.Status)]
	if !ok {
		observability.IncCallbackEvent("unrecognized")
		return nil, &UnrecognizedStatusError{Status: ev.Status}
	}

	var snapshot domain.Transaction
	alreadyTerminal := false
	err := s.store.UpdateTransactionByProviderRef(ctx, ev.ProviderRef, func(t *domain.Transaction) error {
		if t.IsTerminal() {
			alreadyTerminal = true
			snapshot = *t
			return nil
		}
		if err := transitionTransaction(t, target, time.Now()); err != nil {
			return err
		}
		incoming := domain.Metadata{
			ProviderReceipt: ev.Receipt,
			Extra:           map[string]any{"callback_received_at": time.Now().UTC().Format(time.RFC3339)},
		}
		if target != domain.TxStatusCompleted && ev.Description != "" {
			incoming.FailureReason = ev.Description
		}
		if len(ev.Raw) > 0 {
			incoming.Extra["callback_payload"] = ev.Raw
		}
		t.Metadata = t.Metadata.Merge(incoming)
		snapshot = *t
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	if alreadyTerminal {
		observability.IncCallbackEvent("noop")
		zap.L().Info("callback ignored, transaction already terminal",
			zap.Int64("transaction_id", snapshot.ID),
			zap.String("status", snapshot.Status),
			zap.String("provider_ref", ev.ProviderRef),
		)
		return &CallbackAck{TransactionID: snapshot.ID, Status: snapshot.Status, AlreadyTerminal: true}, nil
	}

	observability.IncCallbackEvent("applied")
	zap.L().Info("callback applied",
		zap.Int64("transaction_id", snapshot.ID),
		zap.String("status", snapshot.Status),
		zap.String("provider_ref", ev.ProviderRef),
	)

	// The mirror runs off the request path so a slow relay never delays
	// the provider's ack.
	s.mirrors.Add(1)
	go func() {
		defer s.mirrors.Done()
		s.mirrorToContract(snapshot)
	}()

	return &CallbackAck{TransactionID: snapshot.ID, Status: snapshot.Status}, nil
}

// WaitMirrors blocks until all in-flight contract mirrors have finished.
// Called on shutdown so terminal statuses are not lost.
func (s *CallbackService) WaitMirrors() {
	s.mirrors.Wait()
}

// mirrorToContract pushes the terminal status to the contract. A failure
// here never rolls back the local write.
func (s *CallbackService) mirrorToContract(tx domain.Transaction) {
	if tx.ContractRef == "" {
		return
	}
	code, ok := txStatusToContractCode[tx.Status]
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.contractTimeout)
	defer cancel()
	if err := s.contract.SubmitStatus(ctx, tx.ContractRef, code, tx.Metadata.FailureReason); err != nil {
		observability.IncContractMirrorFailure()
		zap.L().Warn("contract status mirror failed, local state kept",
			zap.Error(err),
			zap.Int64("transaction_id", tx.ID),
			zap.String("contract_ref", tx.ContractRef),
		)
		return
	}

	err := s.store.UpdateTransaction(ctx, tx.ID, func(t *domain.Transaction) error {
		t.Metadata = t.Metadata.Merge(domain.Metadata{ContractStatus: contractStatusName(code)})
		return nil
	})
	if err != nil {
		zap.L().Warn("failed to record contract mirror result", zap.Error(err), zap.Int64("transaction_id", tx.ID))
	}
}

func contractStatusName(code int) string {
	switch code {
	case domain.ContractStatusCompleted:
		return "completed"
	case domain.ContractStatusFailed:
		return "failed"
	case domain.ContractStatusCancelled:
		return "cancelled"
	default:
		return "initiated"
	}
}

func normalizeProviderStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// VerifySignature checks the HMAC-SHA256 signature on a raw callback body.
func (s *CallbackService) VerifySignature(payload []byte, signature string) bool {
	if s.skipSig {
		return true
	}
	if len(s.hmacKey) == 0 {
		return false
	}
	h := hmac.New(sha256.New, s.hmacKey)
	h.Write(payload)
	expected := "sha256=" + hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
