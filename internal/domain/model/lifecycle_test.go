//go:build !integration

package model_test

import (
	"testing"

	"paypal-billing/internal/domain/model"
)

func TestDecodeGatewayEvent(t *testing.T) {
	cases := []struct {
		eventType string
		want      model.LifecycleEvent
	}{
		{"BILLING.SUBSCRIPTION.CREATED", model.EventRemoteCreated},
		{"BILLING.SUBSCRIPTION.ACTIVATED", model.EventRemoteActivated},
		{"BILLING.SUBSCRIPTION.UPDATED", model.EventRemoteUpdated},
		{"BILLING.SUBSCRIPTION.CANCELLED", model.EventRemoteCancelled},
		{"BILLING.SUBSCRIPTION.SUSPENDED", model.EventRemoteSuspended},
		{"BILLING.SUBSCRIPTION.PAYMENT.FAILED", model.EventRemotePaymentFailed},
		{"PAYMENT.SALE.COMPLETED", model.EventRemotePaymentCompleted},
		{"PAYMENT.CAPTURE.REFUNDED", model.EventUnhandled},
		{"", model.EventUnhandled},
	}
	for _, c := range cases {
		if got := model.DecodeGatewayEvent(c.eventType); got != c.want {
			t.Errorf("DecodeGatewayEvent(%q) = %v, want %v", c.eventType, got, c.want)
		}
	}
}

func TestNextState(t *testing.T) {
	t.Run("should activate a pending subscription", func(t *testing.T) {
		tr, ok := model.NextState(model.SubscriptionStatusPending, model.EventRemoteActivated)
		if !ok {
			t.Fatal("expected transition to be allowed")
		}
		if tr.Next != model.SubscriptionStatusActive {
			t.Errorf("expected ACTIVE, got %s", tr.Next)
		}
		if tr.Notice != model.NoticeActivated {
			t.Errorf("expected activated notice, got %q", tr.Notice)
		}
		if tr.SetEndDate {
			t.Error("activation must not set the end date")
		}
	})

	t.Run("should keep a pending subscription pending on remote created", func(t *testing.T) {
		tr, ok := model.NextState(model.SubscriptionStatusPending, model.EventRemoteCreated)
		if !ok {
			t.Fatal("expected transition to be allowed")
		}
		if tr.Next != model.SubscriptionStatusPending {
			t.Errorf("expected PENDING, got %s", tr.Next)
		}
	})

	t.Run("should cancel with end date from every live state on user cancel", func(t *testing.T) {
		for _, from := range []model.SubscriptionStatus{
			model.SubscriptionStatusPending,
			model.SubscriptionStatusActive,
			model.SubscriptionStatusSuspended,
		} {
			tr, ok := model.NextState(from, model.EventUserCancel)
			if !ok {
				t.Fatalf("user cancel from %s should be allowed", from)
			}
			if tr.Next != model.SubscriptionStatusCancelled || !tr.SetEndDate {
				t.Errorf("user cancel from %s: got next=%s setEndDate=%v", from, tr.Next, tr.SetEndDate)
			}
		}
	})

	t.Run("should suspend only an active subscription", func(t *testing.T) {
		tr, ok := model.NextState(model.SubscriptionStatusActive, model.EventRemoteSuspended)
		if !ok || tr.Next != model.SubscriptionStatusSuspended {
			t.Fatalf("suspend from ACTIVE: ok=%v next=%s", ok, tr.Next)
		}
		if _, ok := model.NextState(model.SubscriptionStatusPending, model.EventRemoteSuspended); ok {
			t.Error("suspend from PENDING should not be allowed")
		}
	})

	t.Run("should record a completed payment and bump last payment date", func(t *testing.T) {
		tr, ok := model.NextState(model.SubscriptionStatusActive, model.EventRemotePaymentCompleted)
		if !ok {
			t.Fatal("expected transition to be allowed")
		}
		if tr.Next != model.SubscriptionStatusActive {
			t.Errorf("expected status to stay ACTIVE, got %s", tr.Next)
		}
		if tr.RecordPayment != model.PaymentStatusCompleted {
			t.Errorf("expected COMPLETED payment record, got %q", tr.RecordPayment)
		}
		if !tr.SetLastPaymentDate {
			t.Error("expected last payment date to be set")
		}
	})

	t.Run("should record a failed payment without changing status", func(t *testing.T) {
		for _, from := range []model.SubscriptionStatus{
			model.SubscriptionStatusActive,
			model.SubscriptionStatusSuspended,
		} {
			tr, ok := model.NextState(from, model.EventRemotePaymentFailed)
			if !ok {
				t.Fatalf("payment failed from %s should be allowed", from)
			}
			if tr.Next != from {
				t.Errorf("payment failed from %s should not move the status, got %s", from, tr.Next)
			}
			if tr.RecordPayment != model.PaymentStatusFailed {
				t.Errorf("expected FAILED payment record, got %q", tr.RecordPayment)
			}
		}
	})

	t.Run("terminal states absorb every event", func(t *testing.T) {
		events := []model.LifecycleEvent{
			model.EventRemoteCreated,
			model.EventRemoteActivated,
			model.EventRemoteUpdated,
			model.EventRemoteCancelled,
			model.EventRemoteSuspended,
			model.EventRemotePaymentFailed,
			model.EventRemotePaymentCompleted,
			model.EventUserCancel,
		}
		for _, status := range []model.SubscriptionStatus{
			model.SubscriptionStatusCancelled,
			model.SubscriptionStatusExpired,
		} {
			for _, ev := range events {
				if _, ok := model.NextState(status, ev); ok {
					t.Errorf("event %s must not move a %s subscription", ev, status)
				}
			}
		}
	})

	t.Run("duplicate cancellation is not a valid transition", func(t *testing.T) {
		if _, ok := model.NextState(model.SubscriptionStatusCancelled, model.EventRemoteCancelled); ok {
			t.Error("CANCELLED + remote cancelled should be rejected, not reapplied")
		}
	})
}
