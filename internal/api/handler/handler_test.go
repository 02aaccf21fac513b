package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kipsangc/ramphub/internal/api/handler"
	"github.com/kipsangc/ramphub/internal/api/middleware"
	"github.com/kipsangc/ramphub/internal/contract"
	"github.com/kipsangc/ramphub/internal/domain"
	"github.com/kipsangc/ramphub/internal/gateway"
	"github.com/kipsangc/ramphub/internal/repository"
	"github.com/kipsangc/ramphub/internal/service"
)

const testSecret = "test-secret-0123456789-0123456789-01"

type stubGateway struct {
	nextRef string
}

func (g *stubGateway) Name() string { return "mock" }

func (g *stubGateway) Send(ctx context.Context, p gateway.Payment) (string, error) {
	return g.nextRef, nil
}

type fixture struct {
	store    *repository.Memory
	contract *contract.Mock
	gateway  *stubGateway
	router   chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	middleware.SetJWTSecret(testSecret)
	middleware.SetJWTValidation("", "")

	store := repository.NewMemory()
	store.EligibleUsers[1] = true

	contractGW := contract.NewMock()
	gw := &stubGateway{nextRef: "ws_CO_1001"}

	ramp := service.NewRampService(store, map[string]gateway.Gateway{"mock": gw}, contractGW, store, service.RampConfig{
		Currency:      "KES",
		MinFiatAmount: decimal.NewFromInt(25),
		MaxFiatAmount: decimal.NewFromInt(150000),
	})
	callbacks := service.NewCallbackService(store, contractGW, "", true)
	investments := service.NewInvestmentService(store)
	rates := service.NewRateService(contractGW, nil, time.Minute)

	rampHandler := handler.NewRampHandler(ramp, rates)
	callbackHandler := handler.NewCallbackHandler(callbacks)
	investmentHandler := handler.NewInvestmentHandler(investments)

	r := chi.NewRouter()
	r.Get("/v1/rates", rampHandler.GetRates)
	r.Get("/v1/config", rampHandler.GetConfig)
	r.Post("/v1/rates/quote", rampHandler.Quote)
	r.Post("/v1/callbacks/provider", callbackHandler.Provider)
	r.Post("/v1/callbacks/mpesa/stk", callbackHandler.MpesaSTK)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Post("/v1/transactions/onramp", rampHandler.InitiateOnRamp)
		r.Post("/v1/transactions/offramp", rampHandler.InitiateOffRamp)
		r.Get("/v1/transactions", rampHandler.ListTransactions)
		r.Get("/v1/transactions/{id}", rampHandler.GetTransaction)

		r.Post("/v1/students", investmentHandler.RegisterStudent)
		r.Get("/v1/students/me", investmentHandler.GetProfile)
		r.With(middleware.RequireRole("admin")).Post("/v1/students/{id}/verify", investmentHandler.VerifyStudent)

		r.Post("/v1/investments", investmentHandler.CreateInvestment)
		r.Get("/v1/investments", investmentHandler.ListInvestments)
		r.Post("/v1/investments/{id}/withdraw", investmentHandler.RequestWithdrawal)
		r.Post("/v1/investments/{id}/withdraw/complete", investmentHandler.CompleteWithdrawal)
	})

	return &fixture{store: store, contract: contractGW, gateway: gw, router: r}
}

func signToken(t *testing.T, userID int64, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": fmt.Sprintf("%d", userID),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestInitiateOnRampAccepted(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, 1, "user")

	rec := f.do(t, http.MethodPost, "/v1/transactions/onramp", token, map[string]any{
		"payment_method": "mock",
		"phone":          "254712345678",
		"fiat_amount":    "1000",
	})

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decodeJSON(t, rec)
	assert.Equal(t, "PROCESSING", body["status"])
	assert.Equal(t, "ws_CO_1001", body["provider_ref"])
	assert.NotEmpty(t, body["contract_ref"])
}

func TestInitiateRequiresAuth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/transactions/onramp", "", map[string]any{
		"payment_method": "mock",
		"phone":          "254712345678",
		"fiat_amount":    "1000",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestInitiateValidationProblem(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, 1, "user")

	rec := f.do(t, http.MethodPost, "/v1/transactions/onramp", token, map[string]any{
		"payment_method": "mock",
		"phone":          "0712345678",
		"fiat_amount":    "1000",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestInitiateIneligibleUser(t *testing.T) {
	f := newFixture(t)
	f.store.EligibleUsers[2] = false
	token := signToken(t, 2, "user")

	rec := f.do(t, http.MethodPost, "/v1/transactions/onramp", token, map[string]any{
		"payment_method": "mock",
		"phone":          "254712345678",
		"fiat_amount":    "1000",
	})

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestGetTransactionHidesOtherUsers(t *testing.T) {
	f := newFixture(t)
	owner := signToken(t, 1, "user")

	rec := f.do(t, http.MethodPost, "/v1/transactions/onramp", owner, map[string]any{
		"payment_method": "mock",
		"phone":          "254712345678",
		"fiat_amount":    "1000",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	txID := int64(decodeJSON(t, rec)["transaction_id"].(float64))

	f.store.EligibleUsers[2] = true
	other := signToken(t, 2, "user")
	rec = f.do(t, http.MethodGet, fmt.Sprintf("/v1/transactions/%d", txID), other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/v1/transactions/%d", txID), owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProviderCallbackCompletesTransaction(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, 1, "user")

	rec := f.do(t, http.MethodPost, "/v1/transactions/onramp", token, map[string]any{
		"payment_method": "mock",
		"phone":          "254712345678",
		"fiat_amount":    "1000",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	txID := int64(decodeJSON(t, rec)["transaction_id"].(float64))

	rec = f.do(t, http.MethodPost, "/v1/callbacks/provider", "", map[string]any{
		"provider_ref": "ws_CO_1001",
		"status":       "success",
		"receipt":      "QK12XYZ",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ack := decodeJSON(t, rec)
	assert.Equal(t, "COMPLETED", ack["status"])
	assert.Equal(t, false, ack["already_terminal"])

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/v1/transactions/%d", txID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "COMPLETED", decodeJSON(t, rec)["status"])
}

func TestProviderCallbackUnknownRefStillAcked(t *testing.T) {
	f := newFixture(t)

	// Providers retry on non-2xx, so an event with no matching row is
	// acknowledged rather than rejected.
	rec := f.do(t, http.MethodPost, "/v1/callbacks/provider", "", map[string]any{
		"provider_ref": "no-such-ref",
		"status":       "success",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeJSON(t, rec)
	assert.Equal(t, true, body["unmatched"])
}

func TestProviderCallbackUnrecognizedStatus(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, 1, "user")
	rec := f.do(t, http.MethodPost, "/v1/transactions/onramp", token, map[string]any{
		"payment_method": "mock",
		"phone":          "254712345678",
		"fiat_amount":    "1000",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/callbacks/provider", "", map[string]any{
		"provider_ref": "ws_CO_1001",
		"status":       "maybe",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMpesaSTKCallback(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, 1, "user")
	rec := f.do(t, http.MethodPost, "/v1/transactions/onramp", token, map[string]any{
		"payment_method": "mock",
		"phone":          "254712345678",
		"fiat_amount":    "1000",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	payload := map[string]any{
		"Body": map[string]any{
			"stkCallback": map[string]any{
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_1001",
				"ResultCode":        0,
				"ResultDesc":        "The service request is processed successfully.",
				"CallbackMetadata": map[string]any{
					"Item": []map[string]any{
						{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
					},
				},
			},
		},
	}
	rec = f.do(t, http.MethodPost, "/v1/callbacks/mpesa/stk", "", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "COMPLETED", decodeJSON(t, rec)["status"])
}

func TestCallbackSignatureRejected(t *testing.T) {
	store := repository.NewMemory()
	callbacks := service.NewCallbackService(store, contract.NewMock(), "webhook-key", false)
	h := handler.NewCallbackHandler(callbacks)

	body := []byte(`{"provider_ref":"x","status":"success"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/callbacks/provider", bytes.NewReader(body))
	req.Header.Set("X-Signature", "sha256=deadbeef")
	rec := httptest.NewRecorder()
	h.Provider(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStudentInvestmentFlow(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, 1, "user")
	admin := signToken(t, 99, "admin")

	rec := f.do(t, http.MethodPost, "/v1/students", token, map[string]any{
		"student_number":  "SCT211-0001/2024",
		"university":      "JKUAT",
		"graduation_year": time.Now().Year() + 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	studentID := int64(decodeJSON(t, rec)["id"].(float64))

	// Unverified students cannot invest.
	rec = f.do(t, http.MethodPost, "/v1/investments", token, map[string]any{
		"investment_type":    "fixed",
		"principal":          "5000",
		"currency":           "KES",
		"lock_period_months": 6,
	})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	// Verification is admin only.
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/v1/students/%d/verify", studentID), token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/v1/students/%d/verify", studentID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/investments", token, map[string]any{
		"investment_type":    "fixed",
		"principal":          "5000",
		"currency":           "KES",
		"lock_period_months": 6,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeJSON(t, rec)
	assert.Equal(t, "ACTIVE", body["status"])
	investmentID := int64(body["id"].(float64))

	// Locked: withdrawal reports the remaining wait.
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/v1/investments/%d/withdraw", investmentID), token, nil)
	require.Equal(t, http.StatusPreconditionFailed, rec.Code)
	problemBody := decodeJSON(t, rec)
	remaining, ok := problemBody["remaining_lock_days"].(float64)
	require.True(t, ok, "expected remaining_lock_days extension: %s", rec.Body.String())
	assert.Greater(t, remaining, float64(0))
}

func TestWithdrawalPayoutUsesStoredReturn(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, 1, "user")
	admin := signToken(t, 99, "admin")

	rec := f.do(t, http.MethodPost, "/v1/students", token, map[string]any{
		"student_number":  "SCT211-0001/2024",
		"university":      "JKUAT",
		"graduation_year": time.Now().Year() + 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	studentID := int64(decodeJSON(t, rec)["id"].(float64))

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/v1/students/%d/verify", studentID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/investments", token, map[string]any{
		"investment_type":    "fixed",
		"principal":          "5000",
		"currency":           "KES",
		"lock_period_months": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	investmentID := int64(decodeJSON(t, rec)["id"].(float64))

	// The accrual job credits returns; maturity arrives.
	require.NoError(t, f.store.UpdateInvestment(context.Background(), investmentID, func(inv *domain.Investment) error {
		inv.ActualReturn = decimal.NewFromInt(250)
		inv.Status = domain.InvestmentStatusMatured
		inv.IsLocked = false
		return nil
	}))

	// A figure in the request body must not influence the payout.
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/v1/investments/%d/withdraw/complete", investmentID), token, map[string]any{
		"actual_return": "1000000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeJSON(t, rec)
	assert.Equal(t, "WITHDRAWN", body["status"])
	assert.Equal(t, "250", body["actual_return"])
	assert.Equal(t, "5250", body["total_amount"])

	stored, err := f.store.GetInvestment(context.Background(), investmentID)
	require.NoError(t, err)
	assert.True(t, stored.ActualReturn.Equal(decimal.NewFromInt(250)))
}

func TestRatesAndQuotePublic(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/rates", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.NotEmpty(t, body["fiat_to_asset"])

	rec = f.do(t, http.MethodPost, "/v1/rates/quote", "", map[string]any{
		"direction":   "onramp",
		"fiat_amount": "1000",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	quote := decodeJSON(t, rec)
	assert.Equal(t, "onramp", quote["direction"])
}

func TestConfigEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/config", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "KES", body["currency"])
	methods, ok := body["payment_methods"].([]any)
	require.True(t, ok)
	assert.Contains(t, methods, "mock")
}
