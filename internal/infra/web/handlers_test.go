//go:build !integration

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"paypal-billing/internal/domain"
	"paypal-billing/internal/domain/model"
	"paypal-billing/internal/domain/ports/adapter"
	"paypal-billing/internal/usecase"
)

// --- Mock use cases ---

type mockPaymentUC struct {
	CreateOrderFunc func(ctx context.Context, in usecase.CreateOrderInput) (*model.Payment, error)
	GetPaymentFunc  func(ctx context.Context, id string) (*model.Payment, error)
	CaptureFunc     func(ctx context.Context, id string) (*model.Payment, error)
}

var _ usecase.PaymentUseCase = (*mockPaymentUC)(nil)

func (m *mockPaymentUC) CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*model.Payment, error) {
	return m.CreateOrderFunc(ctx, in)
}
func (m *mockPaymentUC) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	return m.GetPaymentFunc(ctx, id)
}
func (m *mockPaymentUC) Capture(ctx context.Context, id string) (*model.Payment, error) {
	return m.CaptureFunc(ctx, id)
}

type mockSubUC struct {
	CreateFunc       func(ctx context.Context, in usecase.CreateSubscriptionInput) (*usecase.CreateSubscriptionResult, error)
	GetFunc          func(ctx context.Context, id string) (*model.Subscription, error)
	CancelFunc       func(ctx context.Context, id string) (*model.Subscription, error)
	RemoteDetailFunc func(ctx context.Context, id string) (*adapter.SubscriptionDetail, error)
}

var _ usecase.SubscriptionUseCase = (*mockSubUC)(nil)

func (m *mockSubUC) Create(ctx context.Context, in usecase.CreateSubscriptionInput) (*usecase.CreateSubscriptionResult, error) {
	return m.CreateFunc(ctx, in)
}
func (m *mockSubUC) Get(ctx context.Context, id string) (*model.Subscription, error) {
	return m.GetFunc(ctx, id)
}
func (m *mockSubUC) Cancel(ctx context.Context, id string) (*model.Subscription, error) {
	return m.CancelFunc(ctx, id)
}
func (m *mockSubUC) RemoteDetail(ctx context.Context, id string) (*adapter.SubscriptionDetail, error) {
	return m.RemoteDetailFunc(ctx, id)
}

type mockWebhookUC struct {
	HandleFunc func(ctx context.Context, rawEvent []byte, headers adapter.WebhookHeaders) error
}

var _ usecase.WebhookUseCase = (*mockWebhookUC)(nil)

func (m *mockWebhookUC) Handle(ctx context.Context, rawEvent []byte, headers adapter.WebhookHeaders) error {
	return m.HandleFunc(ctx, rawEvent, headers)
}

// --- helpers ---

func newTestServer(p *mockPaymentUC, s *mockSubUC, wh *mockWebhookUC) (*Server, *AuthManager) {
	logger := zerolog.New(io.Discard)
	auth := NewAuthManager("test-secret", time.Hour)
	return NewServer(p, s, wh, auth, &logger), auth
}

func authedRequest(t *testing.T, auth *AuthManager, method, target string, body []byte) *http.Request {
	t.Helper()
	token, err := auth.Mint("user-1")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func samplePayment() *model.Payment {
	orderID := "ORDER-1"
	return &model.Payment{
		ID:            "pay-1",
		UserID:        "user-1",
		Amount:        2999,
		Currency:      "USD",
		Status:        model.PaymentStatusPending,
		RemoteOrderID: &orderID,
		PaymentMethod: model.PaymentMethodPayPal,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func TestCreatePaymentHandler(t *testing.T) {
	t.Run("should create a payment and render the amount as a decimal", func(t *testing.T) {
		var gotInput usecase.CreateOrderInput
		p := &mockPaymentUC{
			CreateOrderFunc: func(_ context.Context, in usecase.CreateOrderInput) (*model.Payment, error) {
				gotInput = in
				return samplePayment(), nil
			},
		}
		srv, auth := newTestServer(p, &mockSubUC{}, &mockWebhookUC{})

		body := []byte(`{"amount":"29.99","currency":"USD","payment_method":"PAYPAL"}`)
		req := authedRequest(t, auth, http.MethodPost, "/api/v1/payments", body)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotInput.Amount != 2999 || gotInput.Currency != "USD" {
			t.Errorf("unexpected input: %+v", gotInput)
		}
		if gotInput.UserID != "user-1" {
			t.Errorf("expected user id from the token, got %q", gotInput.UserID)
		}
		var resp map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("bad response body: %v", err)
		}
		if resp["amount"] != "29.99" {
			t.Errorf("expected decimal amount string, got %v", resp["amount"])
		}
	})

	t.Run("should also accept a numeric amount", func(t *testing.T) {
		p := &mockPaymentUC{
			CreateOrderFunc: func(_ context.Context, in usecase.CreateOrderInput) (*model.Payment, error) {
				if in.Amount != 2999 {
					t.Errorf("expected 2999 minor units, got %d", in.Amount)
				}
				return samplePayment(), nil
			},
		}
		srv, auth := newTestServer(p, &mockSubUC{}, &mockWebhookUC{})

		body := []byte(`{"amount":29.99,"currency":"USD","payment_method":"PAYPAL"}`)
		req := authedRequest(t, auth, http.MethodPost, "/api/v1/payments", body)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("should reject a malformed amount before reaching the use case", func(t *testing.T) {
		called := false
		p := &mockPaymentUC{
			CreateOrderFunc: func(context.Context, usecase.CreateOrderInput) (*model.Payment, error) {
				called = true
				return samplePayment(), nil
			},
		}
		srv, auth := newTestServer(p, &mockSubUC{}, &mockWebhookUC{})

		body := []byte(`{"amount":"29.999","currency":"USD","payment_method":"PAYPAL"}`)
		req := authedRequest(t, auth, http.MethodPost, "/api/v1/payments", body)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if called {
			t.Error("use case must not run for an invalid amount")
		}
	})

	t.Run("should require a bearer token", func(t *testing.T) {
		srv, _ := newTestServer(&mockPaymentUC{}, &mockSubUC{}, &mockWebhookUC{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader([]byte(`{}`)))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid request", domain.ErrInvalidRequest, http.StatusBadRequest},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"invalid state", domain.ErrInvalidState, http.StatusConflict},
		{"gateway unavailable", domain.ErrGatewayUnavailable, http.StatusBadGateway},
		{"internal failure", domain.ErrInternalFailure, http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := &mockPaymentUC{
				CaptureFunc: func(context.Context, string) (*model.Payment, error) {
					return nil, c.err
				},
			}
			srv, auth := newTestServer(p, &mockSubUC{}, &mockWebhookUC{})

			req := authedRequest(t, auth, http.MethodPost, "/api/v1/payments/pay-1/capture", nil)
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)

			if rec.Code != c.want {
				t.Errorf("expected %d, got %d", c.want, rec.Code)
			}
		})
	}
}

func TestSubscriptionHandlers(t *testing.T) {
	t.Run("should create a subscription with an initial payment", func(t *testing.T) {
		var gotInput usecase.CreateSubscriptionInput
		s := &mockSubUC{
			CreateFunc: func(_ context.Context, in usecase.CreateSubscriptionInput) (*usecase.CreateSubscriptionResult, error) {
				gotInput = in
				remoteID := "I-REMOTE1"
				orderID := "ORDER-1"
				return &usecase.CreateSubscriptionResult{
					Subscription: &model.Subscription{
						ID: "sub-1", UserID: in.UserID, PlanID: in.PlanID,
						Amount: in.Amount, Currency: in.Currency,
						Status:               model.SubscriptionStatusPending,
						RemoteSubscriptionID: &remoteID,
						StartDate:            time.Now(),
					},
					InitialPaymentOrderID: &orderID,
				}, nil
			},
		}
		srv, auth := newTestServer(&mockPaymentUC{}, s, &mockWebhookUC{})

		body := []byte(`{"plan_id":"P-PLAN1","amount":"29.99","currency":"USD","initial_payment_amount":"9.99"}`)
		req := authedRequest(t, auth, http.MethodPost, "/api/v1/subscriptions", body)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotInput.Amount != 2999 {
			t.Errorf("expected 2999 minor units, got %d", gotInput.Amount)
		}
		if gotInput.InitialPaymentAmount == nil || *gotInput.InitialPaymentAmount != 999 {
			t.Errorf("unexpected initial payment amount: %v", gotInput.InitialPaymentAmount)
		}
		var resp map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["initial_payment_order_id"] != "ORDER-1" {
			t.Errorf("expected initial payment order id in response, got %v", resp["initial_payment_order_id"])
		}
	})

	t.Run("should map a cancel of a missing subscription to 404", func(t *testing.T) {
		s := &mockSubUC{
			CancelFunc: func(context.Context, string) (*model.Subscription, error) {
				return nil, domain.ErrNotFound
			},
		}
		srv, auth := newTestServer(&mockPaymentUC{}, s, &mockWebhookUC{})

		req := authedRequest(t, auth, http.MethodPost, "/api/v1/subscriptions/ghost/cancel", nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("should render terminal dates on a cancelled subscription", func(t *testing.T) {
		end := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
		s := &mockSubUC{
			GetFunc: func(context.Context, string) (*model.Subscription, error) {
				return &model.Subscription{
					ID: "sub-1", UserID: "user-1", PlanID: "P", Amount: 2999, Currency: "USD",
					Status: model.SubscriptionStatusCancelled, StartDate: end.AddDate(0, -1, 0),
					EndDate: &end,
				}, nil
			},
		}
		srv, auth := newTestServer(&mockPaymentUC{}, s, &mockWebhookUC{})

		req := authedRequest(t, auth, http.MethodGet, "/api/v1/subscriptions/sub-1", nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["end_date"] != "2026-02-01T10:00:00Z" {
			t.Errorf("unexpected end date %v", resp["end_date"])
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(&mockPaymentUC{}, &mockSubUC{}, &mockWebhookUC{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
