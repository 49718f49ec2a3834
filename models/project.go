package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project statuses
const (
	StatusOpen       = "OPEN"
	StatusInProgress = "IN_PROGRESS"
	StatusClosed     = "CLOSED"
)

// Payment types
const (
	PaymentTypeFixed  = "FIXED"
	PaymentTypeHourly = "HOURLY"
	PaymentTypeDaily  = "DAILY"
)

type Project struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Title       string             `bson:"title" json:"title"`
	Brief       string             `bson:"brief" json:"brief"`
	Skills      []string           `bson:"skills" json:"skills"`
	Budget      float64            `bson:"budget" json:"budget"`
	PaymentType string             `bson:"payment_type" json:"payment_type"` // FIXED, HOURLY, DAILY
	AmountPaid  float64            `bson:"amount_paid" json:"amount_paid"`
	Status      string             `bson:"status" json:"status"` // OPEN, IN_PROGRESS, CLOSED
	Deadline    *time.Time         `bson:"deadline,omitempty" json:"deadline,omitempty"`
	Attachments []string           `bson:"attachments" json:"attachments"`

	// Gateway payment ids already settled against this project. Guards the
	// funding update against replayed verification callbacks.
	AppliedPaymentIDs []string `bson:"applied_payment_ids" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NextStatus computes the project status after a funding event. Closed is
// terminal; an admin force-close wins unconditionally, full settlement of the
// budget closes the project, and the first payment activates an open one.
func NextStatus(current string, amountPaid, budget float64, adminForceClose bool) string {
	if adminForceClose {
		return StatusClosed
	}
	if amountPaid >= budget {
		return StatusClosed
	}
	if current == StatusOpen && amountPaid > 0 {
		return StatusInProgress
	}
	return current
}

var budgetPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,2})?$`)

// ValidBudget reports whether s is a positive decimal amount with at most
// two fraction digits.
func ValidBudget(s string) bool {
	if !budgetPattern.MatchString(s) {
		return false
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && v > 0
}

// ValidateProjectFields checks a new project's fields and returns the names
// of the offending ones. An empty slice means the input is acceptable.
func ValidateProjectFields(title, brief string, skills []string, budget string, deadline *time.Time, paymentType string) []string {
	var fields []string

	title = strings.TrimSpace(title)
	if len(title) < 5 || len(title) > 120 {
		fields = append(fields, "title")
	}
	if l := len(strings.TrimSpace(brief)); l < 20 || l > 5000 {
		fields = append(fields, "brief")
	}

	hasSkill := false
	for _, s := range skills {
		if strings.TrimSpace(s) != "" {
			hasSkill = true
			break
		}
	}
	if !hasSkill {
		fields = append(fields, "skills")
	}

	if !ValidBudget(budget) {
		fields = append(fields, "budget")
	}

	if deadline == nil || !deadline.After(time.Now()) {
		fields = append(fields, "deadline")
	}

	switch paymentType {
	case PaymentTypeFixed, PaymentTypeHourly, PaymentTypeDaily:
	default:
		fields = append(fields, "payment_type")
	}

	return fields
}
