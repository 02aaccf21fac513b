package handler

import (
	"encoding/json"
	"net/http"
	"regexp"

	"go.uber.org/zap"

	"github.com/kipsangc/ramphub/internal/domain"
	"github.com/kipsangc/ramphub/internal/repository"
)

var phonePattern = regexp.MustCompile(`^254\d{9}$`)

type UserHandler struct {
	repo *repository.Repository
}

func NewUserHandler(repo *repository.Repository) *UserHandler {
	return &UserHandler{repo: repo}
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		PhoneNumber string `json:"phone_number"`
		Wallet      string `json:"wallet_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" {
		RespondError(w, r, http.StatusBadRequest, "request/validation", "username and email are required")
		return
	}
	if req.PhoneNumber != "" && !phonePattern.MatchString(req.PhoneNumber) {
		RespondError(w, r, http.StatusBadRequest, "request/validation", "phone_number must match 254XXXXXXXXX")
		return
	}

	user := &domain.User{
		Username:      req.Username,
		Email:         req.Email,
		PhoneNumber:   req.PhoneNumber,
		Role:          "user",
		KYCStatus:     domain.KYCStatusPending,
		IsActive:      true,
		WalletAddress: req.Wallet,
	}
	if err := h.repo.CreateUser(r.Context(), user); err != nil {
		if status, pType, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, pType, msg)
			return
		}
		zap.L().Error("create user failed", zap.Error(err), zap.String("email", req.Email))
		RespondError(w, r, http.StatusInternalServerError, "user/create-failed", "Failed to create user")
		return
	}

	RespondJSON(w, http.StatusCreated, user)
}
