package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentReceipt is what the payment provider reports for a reference.
type PaymentReceipt struct {
	Reference string
	Paid      bool
	Amount    decimal.Decimal
	Currency  string
}

// PaymentVerifier confirms that a buyer payment actually happened.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, reference string) (*PaymentReceipt, error)
}

type PaystackService struct {
	SecretKey string
	BaseURL   string
	Client    *http.Client
}

type InitializePaymentResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type VerifyPaymentResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID              int64  `json:"id"`
		Status          string `json:"status"`
		Reference       string `json:"reference"`
		Amount          int64  `json:"amount"` // in the currency's subunit (kobo for NGN)
		GatewayResponse string `json:"gateway_response"`
		PaidAt          string `json:"paid_at"`
		Currency        string `json:"currency"`
	} `json:"data"`
}

// NewPaystackService creates a new Paystack service instance
func NewPaystackService(secretKey, baseURL string) *PaystackService {
	return &PaystackService{
		SecretKey: secretKey,
		BaseURL:   baseURL,
		Client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// makeRequest makes HTTP request to Paystack API
func (ps *PaystackService) makeRequest(ctx context.Context, method, endpoint string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, ps.BaseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+ps.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	client := ps.Client
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

// InitializePayment starts a checkout for an escrow account. The reference is
// later handed back to Fund.
func (ps *PaystackService) InitializePayment(ctx context.Context, email string, amount decimal.Decimal, reference, callbackURL string) (*InitializePaymentResponse, error) {
	payload := map[string]any{
		"email":        email,
		"amount":       amount.Shift(2).IntPart(),
		"reference":    reference,
		"callback_url": callbackURL,
		"currency":     "NGN",
		"metadata": map[string]string{
			"custom_fields": "Escrow Funding",
		},
	}

	resp, err := ps.makeRequest(ctx, http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result InitializePaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.Status {
		return nil, fmt.Errorf("paystack error: %s", result.Message)
	}

	return &result, nil
}

// VerifyPayment verifies a payment transaction
func (ps *PaystackService) VerifyPayment(ctx context.Context, reference string) (*PaymentReceipt, error) {
	resp, err := ps.makeRequest(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result VerifyPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.Status {
		return nil, fmt.Errorf("paystack error: %s", result.Message)
	}

	return &PaymentReceipt{
		Reference: result.Data.Reference,
		Paid:      result.Data.Status == "success",
		Amount:    decimal.New(result.Data.Amount, -2),
		Currency:  result.Data.Currency,
	}, nil
}
