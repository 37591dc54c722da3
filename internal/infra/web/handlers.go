// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"paypal-billing/internal/domain"
	"paypal-billing/internal/domain/model"
	"paypal-billing/internal/domain/ports/adapter"
	"paypal-billing/internal/usecase"
)

// ===== request/response DTOs =====

type cardRequest struct {
	Number          string `json:"number"`
	ExpirationMonth string `json:"expiration_month"`
	ExpirationYear  string `json:"expiration_year"`
	SecurityCode    string `json:"security_code"`
	Name            string `json:"name"`
}

type billingAddressRequest struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	AdminArea1   string `json:"admin_area_1"`
	AdminArea2   string `json:"admin_area_2"`
	PostalCode   string `json:"postal_code"`
	CountryCode  string `json:"country_code"`
}

type paymentCreateRequest struct {
	Amount         json.Number            `json:"amount"`
	Currency       string                 `json:"currency"`
	PaymentMethod  string                 `json:"payment_method"`
	Card           *cardRequest           `json:"card_details"`
	BillingAddress *billingAddressRequest `json:"billing_address"`
	SubscriptionID *string                `json:"subscription_id"`
}

type paymentResponse struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	SubscriptionID *string `json:"subscription_id,omitempty"`
	Amount         string  `json:"amount"`
	Currency       string  `json:"currency"`
	Status         string  `json:"status"`
	RemoteOrderID  *string `json:"remote_order_id,omitempty"`
	PaymentMethod  string  `json:"payment_method"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

func toPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:             p.ID,
		UserID:         p.UserID,
		SubscriptionID: p.SubscriptionID,
		Amount:         model.FormatAmount(p.Amount),
		Currency:       p.Currency,
		Status:         string(p.Status),
		RemoteOrderID:  p.RemoteOrderID,
		PaymentMethod:  string(p.PaymentMethod),
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type subscriptionCreateRequest struct {
	PlanID               string       `json:"plan_id"`
	Amount               json.Number  `json:"amount"`
	Currency             string       `json:"currency"`
	InitialPaymentAmount *json.Number `json:"initial_payment_amount"`
}

type subscriptionResponse struct {
	ID                   string  `json:"id"`
	UserID               string  `json:"user_id"`
	PlanID               string  `json:"plan_id"`
	Amount               string  `json:"amount"`
	Currency             string  `json:"currency"`
	Status               string  `json:"status"`
	RemoteSubscriptionID *string `json:"remote_subscription_id,omitempty"`
	StartDate            string  `json:"start_date"`
	EndDate              *string `json:"end_date,omitempty"`
	LastPaymentDate      *string `json:"last_payment_date,omitempty"`
	InitialPaymentOrder  *string `json:"initial_payment_order_id,omitempty"`
}

func toSubscriptionResponse(s *model.Subscription, initialOrderID *string) subscriptionResponse {
	resp := subscriptionResponse{
		ID:                   s.ID,
		UserID:               s.UserID,
		PlanID:               s.PlanID,
		Amount:               model.FormatAmount(s.Amount),
		Currency:             s.Currency,
		Status:               string(s.Status),
		RemoteSubscriptionID: s.RemoteSubscriptionID,
		StartDate:            s.StartDate.UTC().Format(time.RFC3339),
		InitialPaymentOrder:  initialOrderID,
	}
	if s.EndDate != nil {
		v := s.EndDate.UTC().Format(time.RFC3339)
		resp.EndDate = &v
	}
	if s.LastPaymentDate != nil {
		v := s.LastPaymentDate.UTC().Format(time.RFC3339)
		resp.LastPaymentDate = &v
	}
	return resp
}

// ===== helpers =====

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrBadSignature):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrGatewayUnavailable):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// do not leak internals
		msg = "internal failure"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseAmountField(n json.Number) (int64, error) {
	if n == "" {
		return 0, domain.ErrInvalidRequest
	}
	return model.ParseAmount(n.String())
}

// ===== payments =====

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	amount, err := parseAmountField(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	in := usecase.CreateOrderInput{
		UserID:         UserIDFrom(r.Context()),
		Amount:         amount,
		Currency:       req.Currency,
		Method:         model.PaymentMethod(req.PaymentMethod),
		SubscriptionID: req.SubscriptionID,
	}
	if req.Card != nil {
		in.Card = &adapter.CardDetails{
			Number:          req.Card.Number,
			ExpirationMonth: req.Card.ExpirationMonth,
			ExpirationYear:  req.Card.ExpirationYear,
			SecurityCode:    req.Card.SecurityCode,
			Name:            req.Card.Name,
		}
	}
	if req.BillingAddress != nil {
		in.Billing = &adapter.BillingAddress{
			AddressLine1: req.BillingAddress.AddressLine1,
			AddressLine2: req.BillingAddress.AddressLine2,
			AdminArea1:   req.BillingAddress.AdminArea1,
			AdminArea2:   req.BillingAddress.AdminArea2,
			PostalCode:   req.BillingAddress.PostalCode,
			CountryCode:  req.BillingAddress.CountryCode,
		}
	}

	payment, err := s.paymentUC.CreateOrder(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(payment))
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	payment, err := s.paymentUC.GetPayment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (s *Server) handleCapturePayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	payment, err := s.paymentUC.Capture(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

// ===== subscriptions =====

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	amount, err := parseAmountField(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	in := usecase.CreateSubscriptionInput{
		UserID:   UserIDFrom(r.Context()),
		PlanID:   req.PlanID,
		Amount:   amount,
		Currency: req.Currency,
	}
	if req.InitialPaymentAmount != nil {
		initial, err := parseAmountField(*req.InitialPaymentAmount)
		if err != nil {
			writeError(w, err)
			return
		}
		in.InitialPaymentAmount = &initial
	}

	result, err := s.subUC.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubscriptionResponse(result.Subscription, result.InitialPaymentOrderID))
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sub, err := s.subUC.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub, nil))
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sub, err := s.subUC.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub, nil))
}
