package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/kipsangc/ramphub/internal/gateway"
	"github.com/kipsangc/ramphub/internal/observability"
	"github.com/kipsangc/ramphub/internal/service"
)

const maxCallbackBody = 1 << 20

// CallbackHandler ingests asynchronous provider notifications. Providers
// retry on non-2xx, so everything that reaches the reconciliation layer is
// acknowledged with 200 even when it lands on a terminal row.
type CallbackHandler struct {
	callbacks *service.CallbackService
}

func NewCallbackHandler(callbacks *service.CallbackService) *CallbackHandler {
	return &CallbackHandler{callbacks: callbacks}
}

// Provider handles the neutral callback format used by signed webhook
// integrations.
func (h *CallbackHandler) Provider(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readSignedBody(w, r)
	if !ok {
		return
	}

	var payload struct {
		ProviderRef string `json:"provider_ref"`
		Status      string `json:"status"`
		Receipt     string `json:"receipt"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		observability.IncCallbackEvent("invalid_body")
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid callback body")
		return
	}

	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	h.ingest(w, r, service.CallbackEvent{
		ProviderRef: payload.ProviderRef,
		Status:      payload.Status,
		Receipt:     payload.Receipt,
		Description: payload.Description,
		Raw:         raw,
	})
}

// MpesaSTK handles Daraja STK push result callbacks for on-ramp collections.
func (h *CallbackHandler) MpesaSTK(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readSignedBody(w, r)
	if !ok {
		return
	}

	result, err := gateway.ParseSTKCallback(body)
	if err != nil {
		observability.IncCallbackEvent("invalid_body")
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid STK callback body")
		return
	}
	h.ingest(w, r, toEvent(result))
}

// MpesaB2C handles Daraja B2C result callbacks for off-ramp payouts.
func (h *CallbackHandler) MpesaB2C(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readSignedBody(w, r)
	if !ok {
		return
	}

	result, err := gateway.ParseB2CResult(body)
	if err != nil {
		observability.IncCallbackEvent("invalid_body")
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid B2C result body")
		return
	}
	h.ingest(w, r, toEvent(result))
}

func toEvent(result gateway.CallbackResult) service.CallbackEvent {
	return service.CallbackEvent{
		ProviderRef: result.ProviderRef,
		Status:      result.Status,
		Receipt:     result.Receipt,
		Description: result.Description,
		Raw:         result.Raw,
	}
}

func (h *CallbackHandler) readSignedBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read callback body")
		return nil, false
	}

	if !h.callbacks.VerifySignature(body, r.Header.Get("X-Signature")) {
		observability.IncCallbackEvent("bad_signature")
		zap.L().Warn("callback signature rejected", zap.String("remote", r.RemoteAddr))
		respondServiceError(w, r, service.ErrInvalidSignature)
		return nil, false
	}
	return body, true
}

func (h *CallbackHandler) ingest(w http.ResponseWriter, r *http.Request, ev service.CallbackEvent) {
	ack, err := h.callbacks.IngestCallback(r.Context(), ev)
	if err != nil {
		// An event with no matching row still gets a 200 so the provider
		// stops retrying. The miss is counted and logged for operators.
		if errors.Is(err, service.ErrTransactionNotFound) {
			observability.IncCallbackEvent("not_found")
			zap.L().Warn("callback for unknown provider_ref",
				zap.String("provider_ref", ev.ProviderRef),
				zap.String("status", ev.Status),
			)
			RespondJSON(w, http.StatusOK, service.CallbackAck{Unmatched: true})
			return
		}
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, ack)
}
