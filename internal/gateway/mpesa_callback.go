package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/kipsangc/ramphub/internal/domain"
)

// STKCallback is the payload Safaricom POSTs after an STK push resolves.
type STKCallback struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// B2CResult is the payload Safaricom POSTs on the ResultURL after a B2C
// disbursement resolves.
type B2CResult struct {
	Result struct {
		ResultCode     int    `json:"ResultCode"`
		ResultDesc     string `json:"ResultDesc"`
		ConversationID string `json:"ConversationID"`
		TransactionID  string `json:"TransactionID"`
	} `json:"Result"`
}

// Daraja result code for a payment declined on the handset.
const mpesaResultCancelled = 1032

// ParseSTKCallback maps a raw STK push callback body to the neutral result
// form. Receipt is the MpesaReceiptNumber metadata item when present.
func ParseSTKCallback(body []byte) (CallbackResult, error) {
	var cb STKCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return CallbackResult{}, fmt.Errorf("decode stk callback: %w", err)
	}
	sc := cb.Body.StkCallback
	if sc.CheckoutRequestID == "" {
		return CallbackResult{}, fmt.Errorf("stk callback missing CheckoutRequestID")
	}

	res := CallbackResult{
		ProviderRef: sc.CheckoutRequestID,
		Description: sc.ResultDesc,
		Raw:         rawMap(body),
	}
	switch sc.ResultCode {
	case 0:
		res.Status = domain.ProviderStatusSuccess
	case mpesaResultCancelled:
		res.Status = domain.ProviderStatusCancel
	default:
		res.Status = domain.ProviderStatusFailure
	}
	for _, item := range sc.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			if s, ok := item.Value.(string); ok {
				res.Receipt = s
			}
		}
	}
	return res, nil
}

// ParseB2CResult maps a raw B2C result body to the neutral result form.
func ParseB2CResult(body []byte) (CallbackResult, error) {
	var cb B2CResult
	if err := json.Unmarshal(body, &cb); err != nil {
		return CallbackResult{}, fmt.Errorf("decode b2c result: %w", err)
	}
	r := cb.Result
	if r.ConversationID == "" {
		return CallbackResult{}, fmt.Errorf("b2c result missing ConversationID")
	}

	res := CallbackResult{
		ProviderRef: r.ConversationID,
		Receipt:     r.TransactionID,
		Description: r.ResultDesc,
		Raw:         rawMap(body),
	}
	if r.ResultCode == 0 {
		res.Status = domain.ProviderStatusSuccess
	} else {
		res.Status = domain.ProviderStatusFailure
	}
	return res, nil
}

func rawMap(body []byte) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil
	}
	return m
}
