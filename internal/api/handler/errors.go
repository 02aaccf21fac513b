package handler

import (
	"errors"
	"net/http"

	"github.com/kipsangc/ramphub/internal/api/problem"
	"github.com/kipsangc/ramphub/internal/service"
	"go.uber.org/zap"
)

// respondServiceError translates service layer errors into problem responses.
// Anything unmapped is logged and surfaced as a 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	var lockedErr *service.StillLockedError
	var statusErr *service.UnrecognizedStatusError
	var gatewayErr *service.GatewayError

	switch {
	case errors.As(err, &validationErr):
		RespondError(w, r, http.StatusBadRequest, "request/validation", validationErr.Reason)
	case errors.As(err, &lockedErr):
		problem.WriteWithExtensions(
			w,
			r,
			http.StatusPreconditionFailed,
			problem.Type("investment/still-locked"),
			http.StatusText(http.StatusPreconditionFailed),
			err.Error(),
			map[string]any{"remaining_lock_days": lockedErr.RemainingDays},
		)
	case errors.As(err, &statusErr):
		RespondError(w, r, http.StatusUnprocessableEntity, "callback/unrecognized-status", err.Error())
	case errors.As(err, &gatewayErr):
		zap.L().Error("upstream gateway failure", zap.String("op", gatewayErr.Op), zap.Error(gatewayErr.Err))
		RespondError(w, r, http.StatusBadGateway, "gateway/unavailable", "upstream service is unavailable")
	case errors.Is(err, service.ErrTransactionNotFound):
		RespondError(w, r, http.StatusNotFound, "transaction/not-found", "Transaction not found")
	case errors.Is(err, service.ErrInvestmentNotFound):
		RespondError(w, r, http.StatusNotFound, "investment/not-found", "Investment not found")
	case errors.Is(err, service.ErrStudentNotFound):
		RespondError(w, r, http.StatusNotFound, "student/not-found", "Student profile not found")
	case errors.Is(err, service.ErrStudentExists):
		RespondError(w, r, http.StatusConflict, "student/already-registered", "Student profile already registered")
	case errors.Is(err, service.ErrStudentNotVerified):
		RespondError(w, r, http.StatusPreconditionFailed, "student/not-verified", "Student profile must be verified first")
	case errors.Is(err, service.ErrNotEligible):
		RespondError(w, r, http.StatusPreconditionFailed, "ramp/not-eligible", "Account is not eligible for ramp operations")
	case errors.Is(err, service.ErrNotReady):
		RespondError(w, r, http.StatusPreconditionFailed, "investment/not-ready", "Investment withdrawal has not been requested")
	case errors.Is(err, service.ErrNotActive):
		RespondError(w, r, http.StatusPreconditionFailed, "investment/not-active", "Investment is not active")
	case errors.Is(err, service.ErrInvalidSignature):
		RespondError(w, r, http.StatusUnauthorized, "callback/invalid-signature", "Callback signature verification failed")
	default:
		if status, pType, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("unhandled service error", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "internal", "Internal server error")
	}
}
