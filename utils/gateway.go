package utils

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	config "github.com/phillip/freelance-marketplace-go/config"
	models "github.com/phillip/freelance-marketplace-go/models"
)

// PaymentGateway is the single capability the payment controllers depend on.
// Both the order/signature flow and the hosted checkout flow go through it,
// so the funding logic never talks to a concrete gateway.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount float64, currency string, notes map[string]string) (*models.GatewayOrder, error)
	CreateCheckoutSession(ctx context.Context, amount float64, productName, successURL, cancelURL string, metadata map[string]string) (*models.CheckoutSession, error)
	VerifyProof(orderID, paymentID, signature string) error
}

// HTTPGateway talks to the payment provider's REST API with key-id/secret
// credentials.
type HTTPGateway struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

// NewGateway builds the gateway client from config. Missing credentials are
// a deployment problem, reported as ErrNotConfigured rather than a request
// failure.
func NewGateway(cfg *config.Config) (*HTTPGateway, error) {
	if cfg.GatewayKeyID == "" || cfg.GatewayKeySecret == "" {
		return nil, models.ErrNotConfigured
	}
	return &HTTPGateway{
		keyID:     cfg.GatewayKeyID,
		keySecret: cfg.GatewayKeySecret,
		baseURL:   strings.TrimRight(cfg.GatewayBaseURL, "/"),
		client:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type orderRequest struct {
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// CreateOrder asks the gateway for an order handle the client can pay
// against. No local state is touched; gateway failures surface verbatim.
func (g *HTTPGateway) CreateOrder(ctx context.Context, amount float64, currency string, notes map[string]string) (*models.GatewayOrder, error) {
	var out orderResponse
	err := g.post(ctx, "/orders", orderRequest{Amount: amount, Currency: currency, Notes: notes}, &out)
	if err != nil {
		return nil, err
	}
	return &models.GatewayOrder{OrderID: out.ID, Amount: out.Amount, Currency: out.Currency}, nil
}

type sessionRequest struct {
	Amount      float64           `json:"amount"`
	ProductName string            `json:"product_name"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type sessionResponse struct {
	ID string `json:"id"`
}

// CreateCheckoutSession starts the gateway's hosted checkout flow.
func (g *HTTPGateway) CreateCheckoutSession(ctx context.Context, amount float64, productName, successURL, cancelURL string, metadata map[string]string) (*models.CheckoutSession, error) {
	var out sessionResponse
	err := g.post(ctx, "/checkout/sessions", sessionRequest{
		Amount:      amount,
		ProductName: productName,
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
		Metadata:    metadata,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &models.CheckoutSession{SessionID: out.ID}, nil
}

// VerifyProof recomputes the HMAC-SHA256 signature over "orderId|paymentId"
// with the shared secret and compares it in constant time.
func (g *HTTPGateway) VerifyProof(orderID, paymentID, signature string) error {
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return models.ErrInvalidSignature
	}
	return nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrGatewayFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrGatewayFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrGatewayFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", models.ErrGatewayFailure, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: bad response body: %v", models.ErrGatewayFailure, err)
	}
	return nil
}
