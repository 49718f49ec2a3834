package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Typed failures surfaced by the payment flow. Controllers map these to
// HTTP statuses; nothing below touches project state when returned.
var (
	ErrNotConfigured    = errors.New("payment gateway is not configured")
	ErrGatewayFailure   = errors.New("payment gateway request failed")
	ErrInvalidSignature = errors.New("payment signature mismatch")
	ErrProjectNotFound  = errors.New("project not found")
	ErrConflict         = errors.New("concurrent update conflict")
)

// Payment is one settled amount applied to a project, recorded after the
// project document has been updated. The ledger is for audit and listing;
// the applied_payment_ids array on the project is the replay guard.
type Payment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID primitive.ObjectID `bson:"project_id" json:"project_id"`
	ClientID  primitive.ObjectID `bson:"client_id" json:"client_id"`
	OrderID   string             `bson:"order_id" json:"order_id"`
	PaymentID string             `bson:"payment_id" json:"payment_id"` // gateway payment id
	Amount    float64            `bson:"amount" json:"amount"`
	Currency  string             `bson:"currency" json:"currency"`
	NewStatus string             `bson:"new_status" json:"new_status"` // project status after applying
	ReceiptID string             `bson:"receipt_id" json:"receipt_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// GatewayOrder is the opaque order handle returned by the gateway.
type GatewayOrder struct {
	OrderID  string  `json:"order_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// CheckoutSession is the handle for the gateway's hosted checkout flow.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
}
