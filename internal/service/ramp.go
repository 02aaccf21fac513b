package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/kipsangc/ramphub/internal/contract"
	"github.com/kipsangc/ramphub/internal/domain"
	"github.com/kipsangc/ramphub/internal/gateway"
	"github.com/kipsangc/ramphub/internal/observability"
	"github.com/kipsangc/ramphub/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var phonePattern = regexp.MustCompile(`^254\d{9}$`)

// RampConfig bounds what a single transaction may move.
type RampConfig struct {
	Currency       string
	MinFiatAmount  decimal.Decimal
	MaxFiatAmount  decimal.Decimal
	GatewayTimeout time.Duration
}

// RampService drives the on/off-ramp transaction lifecycle: validate,
// record, register on the contract, then hand off to the payment provider.
type RampService struct {
	store       TransactionStore
	gateways    map[string]gateway.Gateway
	contract    contract.Gateway
	eligibility EligibilityChecker
	cfg         RampConfig
}

func NewRampService(store TransactionStore, gateways map[string]gateway.Gateway, contractGW contract.Gateway, eligibility EligibilityChecker, cfg RampConfig) *RampService {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 15 * time.Second
	}
	return &RampService{
		store:       store,
		gateways:    gateways,
		contract:    contractGW,
		eligibility: eligibility,
		cfg:         cfg,
	}
}

// InitiateRequest holds the parameters for starting a ramp transaction.
type InitiateRequest struct {
	UserID        int64
	Direction     string
	PaymentMethod string
	Phone         string
	Wallet        string
	FiatAmount    decimal.Decimal
	AssetAmount   decimal.Decimal
}

// InitiateResponse is returned once the transaction is accepted by the
// provider and waiting on its callback.
type InitiateResponse struct {
	TransactionID int64  `json:"transaction_id"`
	Status        string `json:"status"`
	ProviderRef   string `json:"provider_ref,omitempty"`
	ContractRef   string `json:"contract_ref,omitempty"`
}

// Initiate runs the ordered ramp sequence: validate with no side effects,
// create the PENDING row, register the intent on the contract, then call the
// payment provider. A contract failure means the provider is never called;
// either external failure parks the transaction in FAILED with the reason
// recorded in metadata.
func (s *RampService) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	gw, err := s.validateInitiate(&req)
	if err != nil {
		return nil, err
	}

	eligible, err := s.eligibility.IsEligible(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("check eligibility: %w", err)
	}
	if !eligible {
		return nil, ErrNotEligible
	}

	tx := &domain.Transaction{
		UserID:        req.UserID,
		Direction:     req.Direction,
		Currency:      s.cfg.Currency,
		FiatAmount:    req.FiatAmount,
		AssetAmount:   req.AssetAmount,
		Status:        domain.TxStatusPending,
		PaymentMethod: req.PaymentMethod,
		Metadata: domain.Metadata{
			PhoneNumber: req.Phone,
			Provider:    gw.Name(),
		},
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	contractRef, err := s.registerIntent(ctx, tx, req)
	if err != nil {
		s.failTransaction(ctx, tx.ID, "contract intent registration failed: "+err.Error())
		observability.IncRampInitiated(req.Direction, "contract_failed")
		return nil, &GatewayError{Op: "contract register intent", Err: err}
	}

	if err := s.store.UpdateTransaction(ctx, tx.ID, func(t *domain.Transaction) error {
		t.ContractRef = contractRef
		t.Metadata = t.Metadata.Merge(domain.Metadata{
			ContractTxID:   contractRef,
			ContractStatus: "initiated",
		})
		return nil
	}); err != nil {
		return nil, fmt.Errorf("record contract ref: %w", err)
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	providerRef, err := gw.Send(gwCtx, gateway.Payment{
		Direction:   req.Direction,
		Amount:      req.FiatAmount,
		Currency:    s.cfg.Currency,
		Phone:       req.Phone,
		Reference:   fmt.Sprintf("RAMP-%d", tx.ID),
		Description: req.Direction + " transaction",
	})
	if err != nil {
		s.failTransaction(ctx, tx.ID, "provider dispatch failed: "+err.Error())
		observability.IncRampInitiated(req.Direction, "provider_failed")
		return nil, &GatewayError{Op: "provider send", Err: err}
	}

	if err := s.store.UpdateTransaction(ctx, tx.ID, func(t *domain.Transaction) error {
		t.ProviderRef = providerRef
		return transitionTransaction(t, domain.TxStatusProcessing, time.Now())
	}); err != nil {
		return nil, fmt.Errorf("mark transaction processing: %w", err)
	}

	observability.IncRampInitiated(req.Direction, "accepted")
	zap.L().Info("ramp transaction dispatched",
		zap.Int64("transaction_id", tx.ID),
		zap.String("direction", req.Direction),
		zap.String("provider", gw.Name()),
		zap.String("provider_ref", providerRef),
	)

	return &InitiateResponse{
		TransactionID: tx.ID,
		Status:        domain.TxStatusProcessing,
		ProviderRef:   providerRef,
		ContractRef:   contractRef,
	}, nil
}

func (s *RampService) validateInitiate(req *InitiateRequest) (gateway.Gateway, error) {
	switch req.Direction {
	case domain.DirectionOnRamp, domain.DirectionOffRamp:
	default:
		return nil, validationErrorf("direction must be %q or %q", domain.DirectionOnRamp, domain.DirectionOffRamp)
	}
	if !phonePattern.MatchString(req.Phone) {
		return nil, validationErrorf("phone_number must match 254XXXXXXXXX")
	}
	if !req.FiatAmount.IsPositive() {
		return nil, validationErrorf("fiat_amount must be positive")
	}
	if req.FiatAmount.LessThan(s.cfg.MinFiatAmount) {
		return nil, validationErrorf("fiat_amount below minimum of %s %s", s.cfg.MinFiatAmount, s.cfg.Currency)
	}
	if req.FiatAmount.GreaterThan(s.cfg.MaxFiatAmount) {
		return nil, validationErrorf("fiat_amount above maximum of %s %s", s.cfg.MaxFiatAmount, s.cfg.Currency)
	}
	if _, err := domain.FiatToCents(req.FiatAmount); err != nil {
		return nil, validationErrorf("fiat_amount: %v", err)
	}
	if req.Direction == domain.DirectionOffRamp {
		if !req.AssetAmount.IsPositive() {
			return nil, validationErrorf("asset_amount must be positive for offramp")
		}
		if _, err := domain.AssetToTinybar(req.AssetAmount); err != nil {
			return nil, validationErrorf("asset_amount: %v", err)
		}
	}
	gw, ok := s.gateways[req.PaymentMethod]
	if !ok {
		return nil, validationErrorf("unknown payment_method %q", req.PaymentMethod)
	}
	return gw, nil
}

func (s *RampService) registerIntent(ctx context.Context, tx *domain.Transaction, req InitiateRequest) (string, error) {
	intent := contract.Intent{
		TransactionID: tx.ID,
		Direction:     req.Direction,
		Phone:         req.Phone,
		Wallet:        req.Wallet,
	}
	if req.Direction == domain.DirectionOnRamp {
		units, err := domain.FiatToContractUnits(req.FiatAmount)
		if err != nil {
			return "", err
		}
		intent.AmountUnits = units
	} else {
		tinybar, err := domain.AssetToTinybar(req.AssetAmount)
		if err != nil {
			return "", err
		}
		intent.AmountUnits = bigFromInt64(tinybar)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	return s.contract.RegisterIntent(ctx, intent)
}

// failTransaction parks a transaction in FAILED after an external call
// failed. Best effort; the sweeper picks up anything this misses.
func (s *RampService) failTransaction(ctx context.Context, id int64, reason string) {
	err := s.store.UpdateTransaction(ctx, id, func(t *domain.Transaction) error {
		if t.IsTerminal() {
			return nil
		}
		t.Metadata = t.Metadata.Merge(domain.Metadata{FailureReason: reason})
		return transitionTransaction(t, domain.TxStatusFailed, time.Now())
	})
	if err != nil {
		zap.L().Error("failed to mark transaction failed",
			zap.Error(err),
			zap.Int64("transaction_id", id),
			zap.String("reason", reason),
		)
	}
}

// GetTransaction retrieves a transaction by ID.
func (s *RampService) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// ListTransactions returns a user's transactions, newest first.
func (s *RampService) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListTransactionsByUser(ctx, userID, limit, offset)
}

// Config exposes the operational limits for client discovery.
func (s *RampService) Config() RampConfig {
	return s.cfg
}

// PaymentMethods lists the configured provider names, sorted.
func (s *RampService) PaymentMethods() []string {
	names := make([]string, 0, len(s.gateways))
	for name := range s.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
