package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kipsangc/ramphub/internal/domain"
	"github.com/shopspring/decimal"
)

// RelayConfig points at the contract relay service.
type RelayConfig struct {
	BaseURL string
	APIKey  string
}

// Relay is the HTTP implementation of Gateway.
type Relay struct {
	cfg  RelayConfig
	http *http.Client
}

func NewRelay(cfg RelayConfig, client *http.Client) *Relay {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Relay{cfg: cfg, http: client}
}

func (r *Relay) RegisterIntent(ctx context.Context, intent Intent) (string, error) {
	payload := map[string]any{
		"transaction_id": intent.TransactionID,
		"direction":      intent.Direction,
		"amount_units":   intent.AmountUnits.String(),
		"phone_number":   intent.Phone,
		"wallet_address": intent.Wallet,
	}
	var resp struct {
		ContractTransactionID string `json:"contract_transaction_id"`
	}
	if err := r.do(ctx, http.MethodPost, "/contract/transactions", payload, &resp); err != nil {
		return "", err
	}
	if resp.ContractTransactionID == "" {
		return "", fmt.Errorf("contract relay: missing contract_transaction_id")
	}
	return resp.ContractTransactionID, nil
}

func (r *Relay) SubmitStatus(ctx context.Context, contractTxID string, statusCode int, note string) error {
	payload := map[string]any{
		"status_code": statusCode,
		"note":        note,
	}
	path := fmt.Sprintf("/contract/transactions/%s/status", contractTxID)
	return r.do(ctx, http.MethodPost, path, payload, nil)
}

func (r *Relay) GetRates(ctx context.Context) (domain.RatePair, error) {
	var resp struct {
		FiatToAsset decimal.Decimal `json:"fiat_to_asset"`
		AssetToFiat decimal.Decimal `json:"asset_to_fiat"`
	}
	if err := r.do(ctx, http.MethodGet, "/contract/rates", nil, &resp); err != nil {
		return domain.RatePair{}, err
	}
	if resp.FiatToAsset.IsZero() || resp.AssetToFiat.IsZero() {
		return domain.RatePair{}, fmt.Errorf("contract relay: zero rate in response")
	}
	return domain.RatePair{FiatToAsset: resp.FiatToAsset, AssetToFiat: resp.AssetToFiat}, nil
}

func (r *Relay) GetStats(ctx context.Context) (Stats, error) {
	var resp Stats
	if err := r.do(ctx, http.MethodGet, "/contract/stats", nil, &resp); err != nil {
		return Stats{}, err
	}
	return resp, nil
}

func (r *Relay) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("contract relay %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("contract relay %s %s: read response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("contract relay %s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("contract relay %s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}
