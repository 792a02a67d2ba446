package notification

import (
	"context"
	"log/slog"
)

// logSender writes emails to the log instead of delivering them
type logSender struct {
	logger *slog.Logger
}

// NewLogSender creates a development sender that only logs.
func NewLogSender(logger *slog.Logger) Sender {
	return &logSender{logger: logger}
}

func (s *logSender) Send(ctx context.Context, email *Email) error {
	s.logger.InfoContext(ctx, "[LogMail] Email not delivered, logging instead",
		slog.String("kind", string(email.Kind)),
		slog.String("to", email.To),
		slog.String("subject", email.Subject),
		slog.String("body", email.Text),
	)

	return nil
}

func (s *logSender) Close() error {
	return nil
}
