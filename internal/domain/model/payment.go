package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"paypal-billing/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"   // remote order opened, money not moved yet
	PaymentStatusCompleted PaymentStatus = "COMPLETED" // captured at provider
	PaymentStatusFailed    PaymentStatus = "FAILED"    // capture declined or remote payment failed
)

// Terminal reports whether no further status transition is allowed.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

type PaymentMethod string

const (
	PaymentMethodPayPal PaymentMethod = "PAYPAL"
	PaymentMethodCard   PaymentMethod = "CARD"
)

// Payment records a single monetary transaction against the gateway.
type Payment struct {
	ID             string // UUID
	UserID         string
	SubscriptionID *string // set when the payment belongs to a subscription
	Amount         int64   // minor units (cents), to avoid float errors
	Currency       string  // ISO 4217, restricted to AllowedCurrencies
	Status         PaymentStatus
	RemoteOrderID  *string // gateway order id; set before status may leave PENDING
	// RemoteTransactionID is the gateway sale/capture id reported by webhooks.
	// A unique index on it keeps redelivered payment events from inserting twice.
	RemoteTransactionID *string
	PaymentMethod       PaymentMethod
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

var AllowedCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
}

// ParseAmount converts a decimal string like "29.99" into minor units.
// At most two fraction digits are allowed and the value must be positive.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, domain.ErrInvalidRequest
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || len(frac) > 2 {
		return 0, domain.ErrInvalidRequest
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidRequest
	}
	// units*100+cents must stay inside int64.
	if units > (math.MaxInt64-99)/100 {
		return 0, domain.ErrInvalidRequest
	}
	cents := int64(0)
	if frac != "" {
		// pad "9" -> "90" so "29.9" means 29.90
		for len(frac) < 2 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, domain.ErrInvalidRequest
		}
	}
	total := units*100 + cents
	if total <= 0 {
		return 0, domain.ErrInvalidRequest
	}
	return total, nil
}

// FormatAmount renders minor units as the gateway's "value" string ("29.99").
func FormatAmount(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

// ValidateCurrency checks the code against the allowed set.
func ValidateCurrency(code string) error {
	if !AllowedCurrencies[code] {
		return domain.ErrInvalidRequest
	}
	return nil
}
