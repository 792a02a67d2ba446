package service

import (
	"context"
)

// NotificationDispatcher sends the account emails.
type NotificationDispatcher interface {
	// SendVerification emails the link that confirms ownership of the address.
	SendVerification(ctx context.Context, email, verificationToken string) error

	// SendPasswordReset emails the password reset link.
	SendPasswordReset(ctx context.Context, email, resetURL string) error
}
