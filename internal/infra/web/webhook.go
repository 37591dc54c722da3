// File: internal/infra/web/webhook.go
package web

import (
	"errors"
	"io"
	"net/http"

	"paypal-billing/internal/domain"
	"paypal-billing/internal/domain/ports/adapter"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// handleWebhook ingests a PayPal webhook delivery. All five signature headers
// must be present; verification itself happens in the use case. PayPal retries
// on any non-2xx, so per-event application problems still acknowledge with 200
// and only persistence failures return 500.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	headers := adapter.WebhookHeaders{
		AuthAlgo:         r.Header.Get("paypal-auth-algo"),
		CertURL:          r.Header.Get("paypal-cert-url"),
		TransmissionID:   r.Header.Get("paypal-transmission-id"),
		TransmissionSig:  r.Header.Get("paypal-transmission-sig"),
		TransmissionTime: r.Header.Get("paypal-transmission-time"),
	}
	if headers.AuthAlgo == "" || headers.CertURL == "" || headers.TransmissionID == "" ||
		headers.TransmissionSig == "" || headers.TransmissionTime == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing webhook signature headers"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable request body"})
		return
	}

	if err := s.webhookUC.Handle(r.Context(), body, headers); err != nil {
		switch {
		case errors.Is(err, domain.ErrBadSignature):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "webhook signature verification failed"})
		default:
			// persistence failure: let the gateway redeliver
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal failure"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
