package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/kipsangc/ramphub/internal/domain"
)

// MpesaConfig holds Daraja API credentials and the public URLs Safaricom
// calls back on.
type MpesaConfig struct {
	BaseURL            string
	ConsumerKey        string
	ConsumerSecret     string
	ShortCode          string
	PassKey            string
	InitiatorName      string
	SecurityCredential string
	CallbackURL        string
	ResultURL          string
	TimeoutURL         string
}

// Mpesa speaks the Safaricom Daraja API. Onramps go out as STK push
// collections, offramps as B2C disbursements. OAuth tokens are cached until
// shortly before expiry.
type Mpesa struct {
	cfg  MpesaConfig
	http *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewMpesa(cfg MpesaConfig, client *http.Client) *Mpesa {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Mpesa{cfg: cfg, http: client}
}

func (m *Mpesa) Name() string { return domain.PaymentMethodMpesa }

func (m *Mpesa) Send(ctx context.Context, p Payment) (string, error) {
	switch p.Direction {
	case domain.DirectionOnRamp:
		return m.stkPush(ctx, p)
	case domain.DirectionOffRamp:
		return m.b2c(ctx, p)
	default:
		return "", fmt.Errorf("mpesa: unsupported direction %q", p.Direction)
	}
}

func (m *Mpesa) accessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != "" && time.Now().Before(m.tokenExpiry) {
		return m.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(m.cfg.ConsumerKey, m.cfg.ConsumerSecret)

	resp, err := m.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("mpesa oauth: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mpesa oauth: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("mpesa oauth: decode response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("mpesa oauth: empty access token")
	}

	// Daraja tokens last an hour; refresh a minute early.
	m.token = body.AccessToken
	m.tokenExpiry = time.Now().Add(59 * time.Minute)
	return m.token, nil
}

func (m *Mpesa) stkPush(ctx context.Context, p Payment) (string, error) {
	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(m.cfg.ShortCode + m.cfg.PassKey + timestamp))

	payload := map[string]any{
		"BusinessShortCode": m.cfg.ShortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            p.Amount.IntPart(),
		"PartyA":            p.Phone,
		"PartyB":            m.cfg.ShortCode,
		"PhoneNumber":       p.Phone,
		"CallBackURL":       m.cfg.CallbackURL,
		"AccountReference":  p.Reference,
		"TransactionDesc":   p.Description,
	}

	var resp struct {
		CheckoutRequestID string `json:"CheckoutRequestID"`
		ResponseCode      string `json:"ResponseCode"`
		ResponseDesc      string `json:"ResponseDescription"`
	}
	if err := m.post(ctx, "/mpesa/stkpush/v1/processrequest", payload, &resp); err != nil {
		return "", err
	}
	if resp.ResponseCode != "0" {
		return "", fmt.Errorf("mpesa stk push rejected: %s %s", resp.ResponseCode, resp.ResponseDesc)
	}
	if resp.CheckoutRequestID == "" {
		return "", fmt.Errorf("mpesa stk push: missing CheckoutRequestID")
	}
	return resp.CheckoutRequestID, nil
}

func (m *Mpesa) b2c(ctx context.Context, p Payment) (string, error) {
	payload := map[string]any{
		"InitiatorName":      m.cfg.InitiatorName,
		"SecurityCredential": m.cfg.SecurityCredential,
		"CommandID":          "BusinessPayment",
		"Amount":             p.Amount.IntPart(),
		"PartyA":             m.cfg.ShortCode,
		"PartyB":             p.Phone,
		"Remarks":            p.Description,
		"QueueTimeOutURL":    m.cfg.TimeoutURL,
		"ResultURL":          m.cfg.ResultURL,
		"Occasion":           p.Reference,
	}

	var resp struct {
		ConversationID string `json:"ConversationID"`
		ResponseCode   string `json:"ResponseCode"`
		ResponseDesc   string `json:"ResponseDescription"`
	}
	if err := m.post(ctx, "/mpesa/b2c/v1/paymentrequest", payload, &resp); err != nil {
		return "", err
	}
	if resp.ResponseCode != "0" {
		return "", fmt.Errorf("mpesa b2c rejected: %s %s", resp.ResponseCode, resp.ResponseDesc)
	}
	if resp.ConversationID == "" {
		return "", fmt.Errorf("mpesa b2c: missing ConversationID")
	}
	return resp.ConversationID, nil
}

func (m *Mpesa) post(ctx context.Context, path string, payload any, out any) error {
	token, err := m.accessToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("mpesa %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("mpesa %s: read response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mpesa %s: status %d: %s", path, resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("mpesa %s: decode response: %w", path, err)
	}
	return nil
}
