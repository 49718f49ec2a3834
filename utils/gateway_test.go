package utils

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/phillip/freelance-marketplace-go/config"
	models "github.com/phillip/freelance-marketplace-go/models"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		GatewayKeyID:     "key_test",
		GatewayKeySecret: "secret_test",
		GatewayBaseURL:   baseURL,
		DefaultCurrency:  "USD",
	}
}

func signProof(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestNewGatewayRequiresCredentials(t *testing.T) {
	_, err := NewGateway(&config.Config{})
	assert.ErrorIs(t, err, models.ErrNotConfigured)

	_, err = NewGateway(&config.Config{GatewayKeyID: "key_only"})
	assert.ErrorIs(t, err, models.ErrNotConfigured)

	gw, err := NewGateway(testConfig("https://gateway.example.com"))
	require.NoError(t, err)
	assert.NotNil(t, gw)
}

func TestVerifyProof(t *testing.T) {
	gw, err := NewGateway(testConfig("https://gateway.example.com"))
	require.NoError(t, err)

	t.Run("accepts a matching signature", func(t *testing.T) {
		sig := signProof("secret_test", "order_1", "pay_1")
		assert.NoError(t, gw.VerifyProof("order_1", "pay_1", sig))
	})

	t.Run("rejects a mismatched signature", func(t *testing.T) {
		err := gw.VerifyProof("order_1", "pay_1", "deadbeef")
		assert.ErrorIs(t, err, models.ErrInvalidSignature)
	})

	t.Run("rejects a signature for different identifiers", func(t *testing.T) {
		sig := signProof("secret_test", "order_1", "pay_1")
		err := gw.VerifyProof("order_1", "pay_2", sig)
		assert.ErrorIs(t, err, models.ErrInvalidSignature)
	})
}

func TestCreateOrder(t *testing.T) {
	t.Run("returns the gateway order handle", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/orders", r.URL.Path)
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "key_test", user)
			assert.Equal(t, "secret_test", pass)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, 250.0, body["amount"])
			assert.Equal(t, "USD", body["currency"])

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id": "order_abc", "amount": 250.0, "currency": "USD",
			})
		}))
		defer srv.Close()

		gw, err := NewGateway(testConfig(srv.URL))
		require.NoError(t, err)

		order, err := gw.CreateOrder(context.Background(), 250, "USD", map[string]string{"project_id": "p1"})
		require.NoError(t, err)
		assert.Equal(t, "order_abc", order.OrderID)
		assert.Equal(t, 250.0, order.Amount)
		assert.Equal(t, "USD", order.Currency)
	})

	t.Run("wraps gateway errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "insufficient merchant balance", http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		gw, err := NewGateway(testConfig(srv.URL))
		require.NoError(t, err)

		_, err = gw.CreateOrder(context.Background(), 250, "USD", nil)
		assert.ErrorIs(t, err, models.ErrGatewayFailure)
		assert.Contains(t, err.Error(), "insufficient merchant balance")
	})

	t.Run("surfaces network failures as gateway errors", func(t *testing.T) {
		gw, err := NewGateway(testConfig("http://127.0.0.1:1"))
		require.NoError(t, err)

		_, err = gw.CreateOrder(context.Background(), 250, "USD", nil)
		assert.ErrorIs(t, err, models.ErrGatewayFailure)
	})
}

func TestCreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout/sessions", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Project funding", body["product_name"])
		assert.Equal(t, "https://app.example.com/projects/p1?payment=success", body["success_url"])
		assert.Equal(t, "https://app.example.com/projects/p1?payment=cancelled", body["cancel_url"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": "sess_123"})
	}))
	defer srv.Close()

	gw, err := NewGateway(testConfig(srv.URL))
	require.NoError(t, err)

	session, err := gw.CreateCheckoutSession(
		context.Background(), 500, "Project funding",
		"https://app.example.com/projects/p1?payment=success",
		"https://app.example.com/projects/p1?payment=cancelled",
		map[string]string{"project_id": "p1", "client_id": "c1"},
	)
	require.NoError(t, err)
	assert.Equal(t, "sess_123", session.SessionID)
}
