package model

// LifecycleEvent is the closed set of triggers that may move a subscription
// through its lifecycle. Gateway event-type strings are decoded into this enum
// up front; anything we do not recognize maps to EventUnhandled.
type LifecycleEvent string

const (
	EventRemoteCreated          LifecycleEvent = "remote:CREATED"
	EventRemoteActivated        LifecycleEvent = "remote:ACTIVATED"
	EventRemoteUpdated          LifecycleEvent = "remote:UPDATED"
	EventRemoteCancelled        LifecycleEvent = "remote:CANCELLED"
	EventRemoteSuspended        LifecycleEvent = "remote:SUSPENDED"
	EventRemotePaymentFailed    LifecycleEvent = "remote:PAYMENT_FAILED"
	EventRemotePaymentCompleted LifecycleEvent = "remote:PAYMENT_COMPLETED"
	EventUserCancel             LifecycleEvent = "user:cancel"
	EventUnhandled              LifecycleEvent = "unhandled"
)

// DecodeGatewayEvent maps the gateway's dotted webhook event types onto the enum.
func DecodeGatewayEvent(eventType string) LifecycleEvent {
	switch eventType {
	case "BILLING.SUBSCRIPTION.CREATED":
		return EventRemoteCreated
	case "BILLING.SUBSCRIPTION.ACTIVATED":
		return EventRemoteActivated
	case "BILLING.SUBSCRIPTION.UPDATED":
		return EventRemoteUpdated
	case "BILLING.SUBSCRIPTION.CANCELLED":
		return EventRemoteCancelled
	case "BILLING.SUBSCRIPTION.SUSPENDED":
		return EventRemoteSuspended
	case "BILLING.SUBSCRIPTION.PAYMENT.FAILED":
		return EventRemotePaymentFailed
	case "PAYMENT.SALE.COMPLETED":
		return EventRemotePaymentCompleted
	default:
		return EventUnhandled
	}
}

// Notice identifies which outbound notification a transition triggers.
type Notice string

const (
	NoticeNone             Notice = ""
	NoticeCreated          Notice = "created"
	NoticeActivated        Notice = "activated"
	NoticeUpdated          Notice = "updated"
	NoticeCancelled        Notice = "cancelled"
	NoticeSuspended        Notice = "suspended"
	NoticePaymentFailed    Notice = "payment_failed"
	NoticePaymentCompleted Notice = "payment_completed"
)

// Transition is the outcome of applying an event to a subscription status:
// the next status plus the side effects the caller must perform.
type Transition struct {
	Next               SubscriptionStatus
	SetEndDate         bool
	SetLastPaymentDate bool
	RecordPayment      PaymentStatus // "" when the event records no payment row
	Notice             Notice
}

// NextState is the authoritative transition table. It returns ok=false when the
// (status, event) pair is not in the table; callers treat that as a warning-level
// no-op so duplicate or out-of-order deliveries converge instead of erroring.
func NextState(current SubscriptionStatus, ev LifecycleEvent) (Transition, bool) {
	// Terminal states absorb every event.
	if current.Terminal() {
		return Transition{}, false
	}

	switch ev {
	case EventRemoteCreated:
		if current == SubscriptionStatusPending {
			return Transition{Next: SubscriptionStatusPending, Notice: NoticeCreated}, true
		}
	case EventRemoteActivated:
		if current == SubscriptionStatusPending {
			return Transition{Next: SubscriptionStatusActive, Notice: NoticeActivated}, true
		}
	case EventUserCancel:
		switch current {
		case SubscriptionStatusPending, SubscriptionStatusActive, SubscriptionStatusSuspended:
			return Transition{Next: SubscriptionStatusCancelled, SetEndDate: true, Notice: NoticeCancelled}, true
		}
	case EventRemoteCancelled:
		switch current {
		case SubscriptionStatusActive, SubscriptionStatusSuspended:
			return Transition{Next: SubscriptionStatusCancelled, SetEndDate: true, Notice: NoticeCancelled}, true
		}
	case EventRemoteSuspended:
		if current == SubscriptionStatusActive {
			return Transition{Next: SubscriptionStatusSuspended, Notice: NoticeSuspended}, true
		}
	case EventRemoteUpdated:
		if current == SubscriptionStatusActive {
			return Transition{Next: SubscriptionStatusActive, Notice: NoticeUpdated}, true
		}
	case EventRemotePaymentFailed:
		switch current {
		case SubscriptionStatusActive, SubscriptionStatusSuspended:
			return Transition{Next: current, RecordPayment: PaymentStatusFailed, Notice: NoticePaymentFailed}, true
		}
	case EventRemotePaymentCompleted:
		if current == SubscriptionStatusActive {
			return Transition{
				Next:               SubscriptionStatusActive,
				SetLastPaymentDate: true,
				RecordPayment:      PaymentStatusCompleted,
				Notice:             NoticePaymentCompleted,
			}, true
		}
	}
	return Transition{}, false
}
