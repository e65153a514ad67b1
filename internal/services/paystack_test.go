package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaystackVerifyPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/transaction/verify/SD-1":
			_, _ = w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"status":"success","reference":"SD-1","amount":1500050,"currency":"NGN"}}`))
		case "/transaction/verify/SD-2":
			_, _ = w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"status":"abandoned","reference":"SD-2","amount":1000,"currency":"NGN"}}`))
		default:
			_, _ = w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
		}
	}))
	defer srv.Close()

	ps := NewPaystackService("sk_test", srv.URL)
	ctx := context.Background()

	receipt, err := ps.VerifyPayment(ctx, "SD-1")
	require.NoError(t, err)
	assert.True(t, receipt.Paid)
	assert.True(t, receipt.Amount.Equal(dec("15000.50")))
	assert.Equal(t, "NGN", receipt.Currency)

	receipt, err = ps.VerifyPayment(ctx, "SD-2")
	require.NoError(t, err)
	assert.False(t, receipt.Paid)

	_, err = ps.VerifyPayment(ctx, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Transaction reference not found")
}

func TestPaystackInitializePayment(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"SD-9"}}`))
	}))
	defer srv.Close()

	resp, err := NewPaystackService("sk_test", srv.URL).InitializePayment(context.Background(), "buyer@example.com", dec("150.25"), "SD-9", "")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc", resp.Data.AuthorizationURL)
	assert.Equal(t, "SD-9", resp.Data.Reference)

	assert.Equal(t, "buyer@example.com", got["email"])
	assert.Equal(t, float64(15025), got["amount"])
	assert.Equal(t, "SD-9", got["reference"])
}
