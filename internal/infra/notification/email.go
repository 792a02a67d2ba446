// Package notification delivers the account emails through the configured mail provider.
package notification

import (
	"context"
)

// Kind tags an email with the flow that produced it.
type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
)

// Email is a rendered message ready for delivery.
// It is also the JSON payload handed to queue-based providers.
type Email struct {
	Kind    Kind   `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, email *Email) error

	// Close releases any resources held by the sender
	Close() error
}
