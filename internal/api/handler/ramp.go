package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kipsangc/ramphub/internal/domain"
	"github.com/kipsangc/ramphub/internal/service"
)

// RampHandler exposes the on/off-ramp transaction endpoints.
type RampHandler struct {
	ramp  *service.RampService
	rates *service.RateService
}

func NewRampHandler(ramp *service.RampService, rates *service.RateService) *RampHandler {
	return &RampHandler{ramp: ramp, rates: rates}
}

type initiateBody struct {
	PaymentMethod string          `json:"payment_method"`
	Phone         string          `json:"phone"`
	Wallet        string          `json:"wallet_address"`
	FiatAmount    decimal.Decimal `json:"fiat_amount"`
	AssetAmount   decimal.Decimal `json:"asset_amount"`
}

// InitiateOnRamp starts a fiat collection that credits asset on completion.
func (h *RampHandler) InitiateOnRamp(w http.ResponseWriter, r *http.Request) {
	h.initiate(w, r, domain.DirectionOnRamp)
}

// InitiateOffRamp starts an asset burn that pays out fiat on completion.
func (h *RampHandler) InitiateOffRamp(w http.ResponseWriter, r *http.Request) {
	h.initiate(w, r, domain.DirectionOffRamp)
}

func (h *RampHandler) initiate(w http.ResponseWriter, r *http.Request, direction string) {
	userID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-actor", "Authentication required")
		return
	}

	var body initiateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	resp, err := h.ramp.Initiate(r.Context(), service.InitiateRequest{
		UserID:        userID,
		Direction:     direction,
		PaymentMethod: body.PaymentMethod,
		Phone:         body.Phone,
		Wallet:        body.Wallet,
		FiatAmount:    body.FiatAmount,
		AssetAmount:   body.AssetAmount,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	zap.L().Info("ramp transaction accepted",
		zap.Int64("transaction_id", resp.TransactionID),
		zap.Int64("user_id", userID),
		zap.String("direction", direction),
	)
	RespondJSON(w, http.StatusAccepted, resp)
}

// GetTransaction returns one of the caller's transactions.
func (h *RampHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, isAdmin, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-actor", "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid transaction id")
		return
	}

	tx, err := h.ramp.GetTransaction(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if tx.UserID != userID && !isAdmin {
		RespondError(w, r, http.StatusNotFound, "transaction/not-found", "Transaction not found")
		return
	}

	RespondJSON(w, http.StatusOK, tx)
}

// ListTransactions pages through the caller's transactions, newest first.
func (h *RampHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-actor", "Authentication required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txs, err := h.ramp.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"count":        len(txs),
	})
}

// GetRates returns the current buy and sell rates.
func (h *RampHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.rates.GetRates(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, rates)
}

// Quote previews a conversion without creating anything.
func (h *RampHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Direction   string          `json:"direction"`
		FiatAmount  decimal.Decimal `json:"fiat_amount"`
		AssetAmount decimal.Decimal `json:"asset_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	quote, err := h.rates.Quote(r.Context(), service.QuoteRequest{
		Direction:   body.Direction,
		FiatAmount:  body.FiatAmount,
		AssetAmount: body.AssetAmount,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, quote)
}

// GetConfig publishes the operational limits clients need before initiating.
func (h *RampHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.ramp.Config()
	RespondJSON(w, http.StatusOK, map[string]any{
		"currency":        cfg.Currency,
		"min_fiat_amount": cfg.MinFiatAmount,
		"max_fiat_amount": cfg.MaxFiatAmount,
		"payment_methods": h.ramp.PaymentMethods(),
	})
}

// GetStats proxies platform-wide volume figures from the contract.
func (h *RampHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.rates.Stats(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, stats)
}
