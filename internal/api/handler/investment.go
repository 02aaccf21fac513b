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

// InvestmentHandler exposes the student investment lock endpoints.
type InvestmentHandler struct {
	investments *service.InvestmentService
}

func NewInvestmentHandler(investments *service.InvestmentService) *InvestmentHandler {
	return &InvestmentHandler{investments: investments}
}

func (h *InvestmentHandler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	userID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-actor", "Authentication required")
		return
	}

	var body struct {
		StudentNumber  string `json:"student_number"`
		University     string `json:"university"`
		GraduationYear int    `json:"graduation_year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	student, err := h.investments.RegisterStudent(r.Context(), service.RegisterStudentRequest{
		UserID:         userID,
		StudentNumber:  body.StudentNumber,
		University:     body.University,
		GraduationYear: body.GraduationYear,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusCreated, student)
}

func (h *InvestmentHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-actor", "Authentication required")
		return
	}

	student, err := h.investments.GetProfile(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, student)
}

// VerifyStudent marks a profile verified. Admin only, routed behind
// RequireRole.
func (h *InvestmentHandler) VerifyStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || studentID <= 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid student id")
		return
	}

	if err := h.investments.VerifyStudent(r.Context(), studentID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	zap.L().Info("student verified", zap.Int64("student_id", studentID))
	RespondJSON(w, http.StatusOK, map[string]any{"student_id": studentID, "verified": true})
}

func (h *InvestmentHandler) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	userID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-actor", "Authentication required")
		return
	}

	var body struct {
		InvestmentType     string          `json:"investment_type"`
		Principal          decimal.Decimal `json:"principal"`
		Currency           string          `json:"currency"`
		LockPeriodMonths   int             `json:"lock_period_months"`
		ExpectedReturnRate decimal.Decimal `json:"expected_return_rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	investment, err := h.investments.CreateInvestment(r.Context(), service.CreateInvestmentRequest{
		UserID:             userID,
		InvestmentType:     body.InvestmentType,
		Principal:          body.Principal,
		Currency:           body.Currency,
		LockPeriodMonths:   body.LockPeriodMonths,
		ExpectedReturnRate: body.ExpectedReturnRate,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusCreated, investment)
}

func (h *InvestmentHandler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	userID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-actor", "Authentication required")
		return
	}

	investments, err := h.investments.ListInvestments(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"investments": investments,
		"count":       len(investments),
	})
}

func (h *InvestmentHandler) GetInvestment(w http.ResponseWriter, r *http.Request) {
	userID, investmentID, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	investment, err := h.investments.GetInvestment(r.Context(), userID, investmentID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, investment)
}

// RequestWithdrawal moves a matured investment to MATURED-withdrawable
// state. Requests before maturity report the remaining lock days.
func (h *InvestmentHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, investmentID, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	investment, err := h.investments.RequestWithdrawal(r.Context(), userID, investmentID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, investment)
}

// CompleteWithdrawal settles a requested withdrawal once the payout leg has
// landed. The payout is principal plus the accrued return on record; the
// request body carries nothing.
func (h *InvestmentHandler) CompleteWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, investmentID, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	investment, err := h.investments.CompleteWithdrawal(r.Context(), userID, investmentID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, withdrawalResponse{
		Investment:  investment,
		TotalAmount: investment.Payout(),
	})
}

type withdrawalResponse struct {
	*domain.Investment
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (h *InvestmentHandler) CancelInvestment(w http.ResponseWriter, r *http.Request) {
	userID, investmentID, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	investment, err := h.investments.CancelInvestment(r.Context(), userID, investmentID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, investment)
}

func (h *InvestmentHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-actor", "Authentication required")
		return
	}

	stats, err := h.investments.Stats(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, stats)
}

func (h *InvestmentHandler) actorAndID(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/missing-actor", "Authentication required")
		return 0, 0, false
	}
	investmentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || investmentID <= 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-id", "Invalid investment id")
		return 0, 0, false
	}
	return userID, investmentID, true
}
