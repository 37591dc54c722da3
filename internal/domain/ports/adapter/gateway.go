package adapter

import "context"

// CardDetails is required when an order is paid by card.
type CardDetails struct {
	Number          string
	ExpirationMonth string
	ExpirationYear  string
	SecurityCode    string
	Name            string
}

// BillingAddress accompanies card payments.
type BillingAddress struct {
	AddressLine1 string
	AddressLine2 string
	AdminArea1   string
	AdminArea2   string
	PostalCode   string
	CountryCode  string
}

// OrderSpec describes a one-off charge to open at the gateway.
type OrderSpec struct {
	Amount   int64 // minor units
	Currency string
	Card     *CardDetails
	Billing  *BillingAddress
}

// Subscriber is the contact block sent with a remote subscription creation.
type Subscriber struct {
	Email     string
	GivenName string
	Surname   string
}

// SubscriptionDetail mirrors the fields we read back from the gateway.
type SubscriptionDetail struct {
	ID         string
	PlanID     string
	Status     string
	StatusTime string
}

// WebhookHeaders are the signature headers the gateway sends with every delivery.
type WebhookHeaders struct {
	AuthAlgo         string
	CertURL          string
	TransmissionID   string
	TransmissionSig  string
	TransmissionTime string
}

// VerificationSuccess is the verdict the gateway returns for an authentic event.
const VerificationSuccess = "SUCCESS"

// GatewayClient is the hex port for the payment provider. All calls are network
// I/O; implementations must carry a bounded timeout and classify failures as
// domain.ErrInvalidRequest (provider rejected the request) or
// domain.ErrGatewayUnavailable (transport/auth failure).
type GatewayClient interface {
	// CreateOrder opens a one-off order; idempotencyKey dedupes client retries.
	CreateOrder(ctx context.Context, spec OrderSpec, idempotencyKey string) (remoteOrderID string, err error)
	// CaptureOrder captures an approved order and returns the provider status.
	CaptureOrder(ctx context.Context, remoteOrderID string) (status string, err error)
	// CreateSubscription provisions a remote recurring agreement.
	CreateSubscription(ctx context.Context, planID string, sub Subscriber, idempotencyKey string) (remoteSubscriptionID string, err error)
	// CancelSubscription cancels the remote agreement; idempotent provider-side.
	CancelSubscription(ctx context.Context, remoteSubscriptionID, reason string) error
	// GetSubscription fetches the remote agreement detail.
	GetSubscription(ctx context.Context, remoteSubscriptionID string) (*SubscriptionDetail, error)
	// VerifyWebhookSignature returns the provider's verification verdict string.
	VerifyWebhookSignature(ctx context.Context, rawEvent []byte, headers WebhookHeaders, webhookID string) (string, error)
}
