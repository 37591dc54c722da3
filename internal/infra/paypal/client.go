// File: internal/infra/paypal/client.go
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"paypal-billing/internal/config"
	"paypal-billing/internal/domain"
	"paypal-billing/internal/domain/ports/adapter"
)

var _ adapter.GatewayClient = (*Client)(nil)

const (
	liveBase    = "https://api-m.paypal.com"
	sandboxBase = "https://api-m.sandbox.paypal.com"
)

// Client implements adapter.GatewayClient against the PayPal REST API
// (checkout orders v2, billing subscriptions v1, webhook verification v1).
type Client struct {
	clientID     string
	clientSecret string
	base         string
	brandName    string
	returnURL    string
	cancelURL    string

	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	log     *zerolog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg config.PayPalConfig, logger *zerolog.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("paypal client credentials empty")
	}
	base := liveBase
	if cfg.Sandbox {
		base = sandboxBase
	}
	c := &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		base:         base,
		brandName:    cfg.BrandName,
		returnURL:    cfg.ReturnURL,
		cancelURL:    cfg.CancelURL,
		client:       &http.Client{Timeout: 15 * time.Second},
		log:          logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    "paypal",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("gateway circuit breaker state change")
		},
	})
	return c, nil
}

// WithBaseURL overrides the API base, used by tests against httptest servers.
func (c *Client) WithBaseURL(base string) *Client {
	c.base = strings.TrimRight(base, "/")
	return c
}

func (c *Client) CreateOrder(ctx context.Context, spec adapter.OrderSpec, idempotencyKey string) (string, error) {
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{
				"amount": map[string]string{
					"currency_code": spec.Currency,
					"value":         formatValue(spec.Amount),
				},
			},
		},
	}
	if spec.Card != nil {
		card := map[string]any{
			"number":        spec.Card.Number,
			"expiry":        formatCardExpiry(spec.Card.ExpirationMonth, spec.Card.ExpirationYear),
			"name":          spec.Card.Name,
			"security_code": spec.Card.SecurityCode,
		}
		if spec.Billing != nil {
			addr := map[string]string{
				"address_line_1": spec.Billing.AddressLine1,
				"admin_area_2":   spec.Billing.AdminArea2,
				"admin_area_1":   spec.Billing.AdminArea1,
				"postal_code":    spec.Billing.PostalCode,
				"country_code":   spec.Billing.CountryCode,
			}
			if spec.Billing.AddressLine2 != "" {
				addr["address_line_2"] = spec.Billing.AddressLine2
			}
			card["billing_address"] = addr
		}
		body["payment_source"] = map[string]any{"card": card}
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, idempotencyKey, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("order response missing id: %w", domain.ErrGatewayUnavailable)
	}
	return out.ID, nil
}

func (c *Client) CaptureOrder(ctx context.Context, remoteOrderID string) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	path := "/v2/checkout/orders/" + url.PathEscape(remoteOrderID) + "/capture"
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, "", &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *Client) CreateSubscription(ctx context.Context, planID string, sub adapter.Subscriber, idempotencyKey string) (string, error) {
	body := map[string]any{
		"plan_id":    planID,
		"start_time": time.Now().UTC().Format(time.RFC3339),
		"subscriber": map[string]any{
			"name": map[string]string{
				"given_name": sub.GivenName,
				"surname":    sub.Surname,
			},
			"email_address": sub.Email,
		},
		"application_context": map[string]any{
			"brand_name":          c.brandName,
			"locale":              "en-US",
			"shipping_preference": "NO_SHIPPING",
			"user_action":         "SUBSCRIBE_NOW",
			"payment_method": map[string]string{
				"payer_selected":  "PAYPAL",
				"payee_preferred": "IMMEDIATE_PAYMENT_REQUIRED",
			},
			"return_url": c.returnURL,
			"cancel_url": c.cancelURL,
		},
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/billing/subscriptions", body, idempotencyKey, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("subscription response missing id: %w", domain.ErrGatewayUnavailable)
	}
	return out.ID, nil
}

func (c *Client) CancelSubscription(ctx context.Context, remoteSubscriptionID, reason string) error {
	path := "/v1/billing/subscriptions/" + url.PathEscape(remoteSubscriptionID) + "/cancel"
	return c.do(ctx, http.MethodPost, path, map[string]string{"reason": reason}, "", nil)
}

func (c *Client) GetSubscription(ctx context.Context, remoteSubscriptionID string) (*adapter.SubscriptionDetail, error) {
	var out struct {
		ID         string `json:"id"`
		PlanID     string `json:"plan_id"`
		Status     string `json:"status"`
		StatusTime string `json:"status_update_time"`
	}
	path := "/v1/billing/subscriptions/" + url.PathEscape(remoteSubscriptionID)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	return &adapter.SubscriptionDetail{
		ID:         out.ID,
		PlanID:     out.PlanID,
		Status:     out.Status,
		StatusTime: out.StatusTime,
	}, nil
}

func (c *Client) VerifyWebhookSignature(ctx context.Context, rawEvent []byte, headers adapter.WebhookHeaders, webhookID string) (string, error) {
	body := map[string]any{
		"auth_algo":         headers.AuthAlgo,
		"cert_url":          headers.CertURL,
		"transmission_id":   headers.TransmissionID,
		"transmission_sig":  headers.TransmissionSig,
		"transmission_time": headers.TransmissionTime,
		"webhook_id":        webhookID,
		"webhook_event":     json.RawMessage(rawEvent),
	}
	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", body, "", &out); err != nil {
		return "", err
	}
	return out.VerificationStatus, nil
}

// do runs one authenticated API call through the circuit breaker and decodes
// the response into out (when non-nil). Gateway rejections with parseable issue
// details map to domain.ErrInvalidRequest; everything else that goes wrong maps
// to domain.ErrGatewayUnavailable.
func (c *Client) do(ctx context.Context, method, path string, body any, idempotencyKey string, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if idempotencyKey != "" {
		req.Header.Set("PayPal-Request-Id", idempotencyKey)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.client.Do(req)
	})
	if err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("gateway call failed")
		return fmt.Errorf("%s %s: %w", method, path, domain.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", domain.ErrGatewayUnavailable)
		}
		return nil
	}

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		if msg, ok := parseIssueDetails(payload); ok {
			return fmt.Errorf("gateway rejected request: %s: %w", msg, domain.ErrInvalidRequest)
		}
	}
	c.log.Warn().Int("status", resp.StatusCode).Str("path", path).
		Str("body", string(payload)).Msg("gateway error response")
	return fmt.Errorf("%s %s: http %d: %w", method, path, resp.StatusCode, domain.ErrGatewayUnavailable)
}

// token returns a cached OAuth2 access token, refreshing it when close to expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/oauth2/token", form)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", domain.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: http %d: %w", resp.StatusCode, domain.ErrGatewayUnavailable)
	}
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.AccessToken == "" {
		return "", fmt.Errorf("token response: %w", domain.ErrGatewayUnavailable)
	}
	c.accessToken = out.AccessToken
	// refresh a minute early
	c.tokenExpiry = time.Now().Add(time.Duration(out.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

// parseIssueDetails extracts PayPal's structured validation issues
// ("issue: description; ...") from an error payload.
func parseIssueDetails(payload []byte) (string, bool) {
	var out struct {
		Name    string `json:"name"`
		Message string `json:"message"`
		Details []struct {
			Issue       string `json:"issue"`
			Description string `json:"description"`
		} `json:"details"`
	}
	if err := json.Unmarshal(payload, &out); err != nil || len(out.Details) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(out.Details))
	for _, d := range out.Details {
		parts = append(parts, fmt.Sprintf("%s: %s", d.Issue, d.Description))
	}
	return strings.Join(parts, "; "), true
}

func formatValue(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

// formatCardExpiry renders the provider's required YYYY-MM expiry format,
// accepting "7"/"07" months and "27"/"2027" years.
func formatCardExpiry(month, year string) string {
	if len(month) == 1 {
		month = "0" + month
	}
	if len(year) == 2 {
		year = "20" + year
	}
	return year + "-" + month
}
