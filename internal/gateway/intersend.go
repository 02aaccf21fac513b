package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kipsangc/ramphub/internal/domain"
)

// IntersendConfig holds the IntaSend-compatible API settings.
type IntersendConfig struct {
	BaseURL string
	APIKey  string
}

// Intersend is the fallback provider. Collections and payouts are plain
// bearer-token JSON calls; the invoice or tracking id is the correlation id.
type Intersend struct {
	cfg  IntersendConfig
	http *http.Client
}

func NewIntersend(cfg IntersendConfig, client *http.Client) *Intersend {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Intersend{cfg: cfg, http: client}
}

func (g *Intersend) Name() string { return domain.PaymentMethodIntersend }

func (g *Intersend) Send(ctx context.Context, p Payment) (string, error) {
	switch p.Direction {
	case domain.DirectionOnRamp:
		return g.collect(ctx, p)
	case domain.DirectionOffRamp:
		return g.payout(ctx, p)
	default:
		return "", fmt.Errorf("intersend: unsupported direction %q", p.Direction)
	}
}

func (g *Intersend) collect(ctx context.Context, p Payment) (string, error) {
	payload := map[string]any{
		"phone_number": p.Phone,
		"amount":       p.Amount.IntPart(),
		"currency":     p.Currency,
		"api_ref":      p.Reference,
		"narrative":    p.Description,
	}
	var resp struct {
		Invoice struct {
			InvoiceID string `json:"invoice_id"`
		} `json:"invoice"`
	}
	if err := g.post(ctx, "/payment/collection/", payload, &resp); err != nil {
		return "", err
	}
	if resp.Invoice.InvoiceID == "" {
		return "", fmt.Errorf("intersend collection: missing invoice_id")
	}
	return resp.Invoice.InvoiceID, nil
}

func (g *Intersend) payout(ctx context.Context, p Payment) (string, error) {
	payload := map[string]any{
		"currency": p.Currency,
		"transactions": []map[string]any{{
			"account":   p.Phone,
			"amount":    p.Amount.IntPart(),
			"narrative": p.Description,
		}},
	}
	var resp struct {
		TrackingID string `json:"tracking_id"`
	}
	if err := g.post(ctx, "/payment/send-money/initiate/", payload, &resp); err != nil {
		return "", err
	}
	if resp.TrackingID == "" {
		return "", fmt.Errorf("intersend payout: missing tracking_id")
	}
	return resp.TrackingID, nil
}

func (g *Intersend) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("intersend %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("intersend %s: read response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("intersend %s: status %d: %s", path, resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("intersend %s: decode response: %w", path, err)
	}
	return nil
}
