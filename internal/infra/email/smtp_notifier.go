// File: internal/infra/email/smtp_notifier.go
package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"

	"paypal-billing/internal/config"
	"paypal-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*SMTPNotifier)(nil)

// SMTPNotifier sends plain-text lifecycle emails over authenticated SMTP.
type SMTPNotifier struct {
	addr string
	auth smtp.Auth
	from string
	log  *zerolog.Logger
}

func NewSMTPNotifier(cfg config.SMTPConfig, logger *zerolog.Logger) *SMTPNotifier {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPNotifier{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
		from: cfg.From,
		log:  logger,
	}
}

func (n *SMTPNotifier) send(to, subject, body string) error {
	msg := []byte("From: " + n.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")
	if err := smtp.SendMail(n.addr, n.auth, n.from, []string{to}, msg); err != nil {
		n.log.Error().Err(err).Str("to", to).Str("subject", subject).Msg("email send failed")
		return err
	}
	n.log.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

func (n *SMTPNotifier) SubscriptionCreated(_ context.Context, email string) error {
	return n.send(email, "Subscription Created",
		"Your subscription has been successfully created. It will be activated once the initial payment is processed.")
}

func (n *SMTPNotifier) SubscriptionActivated(_ context.Context, email string) error {
	return n.send(email, "Subscription Activated",
		"Your subscription has been activated. You now have access to all the features included in your subscription plan.")
}

func (n *SMTPNotifier) SubscriptionUpdated(_ context.Context, email string) error {
	return n.send(email, "Subscription Updated",
		"Your subscription details have been updated. Please log in to your account to view the changes.")
}

func (n *SMTPNotifier) SubscriptionCancelled(_ context.Context, email string) error {
	return n.send(email, "Subscription Cancelled",
		"Your subscription has been cancelled. We're sorry to see you go. If you have any feedback, please let us know.")
}

func (n *SMTPNotifier) SubscriptionSuspended(_ context.Context, email string) error {
	return n.send(email, "Subscription Suspended",
		"Your subscription has been suspended. This may be due to a payment issue. Please check your payment method and contact support if you need assistance.")
}

func (n *SMTPNotifier) PaymentFailed(_ context.Context, email string) error {
	return n.send(email, "Payment Failed",
		"We were unable to process your latest payment. Please update your payment method to avoid interruption of your service. If you need assistance, please contact our support team.")
}

func (n *SMTPNotifier) PaymentCompleted(_ context.Context, email string) error {
	return n.send(email, "Payment Successful",
		"Your latest payment has been successfully processed. Thank you for your continued subscription.")
}

func (n *SMTPNotifier) SubscriptionFailed(_ context.Context, email, errorMessage string) error {
	return n.send(email, "Subscription Creation Failed",
		"We're sorry, but we encountered an error while trying to create your subscription. The error was: "+
			errorMessage+". Please contact our support team for assistance.")
}
