package notification

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"account/config"
	"account/internal/domain/service"
	"account/internal/util"

	"github.com/pkg/errors"
)

type dispatcher struct {
	sender        Sender
	publicBaseURL string
	resetTTL      time.Duration
	logger        *slog.Logger
}

// NewDispatcher renders the account emails and hands them to sender.
func NewDispatcher(sender Sender, cfg *config.Config, logger *slog.Logger) service.NotificationDispatcher {
	return &dispatcher{
		sender:        sender,
		publicBaseURL: strings.TrimRight(cfg.Account.PublicBaseURL, "/"),
		resetTTL:      cfg.Account.ResetTokenTTL,
		logger:        logger,
	}
}

// SendVerification emails {publicBaseUrl}/verify/{token}.
func (d *dispatcher) SendVerification(ctx context.Context, email, verificationToken string) error {
	link := d.publicBaseURL + "/verify/" + url.PathEscape(verificationToken)

	msg, err := verificationTemplate.render(KindVerification, email, templateData{Link: link})
	if err != nil {
		return err
	}

	return d.send(ctx, msg)
}

// SendPasswordReset emails the reset link together with how long it stays valid.
func (d *dispatcher) SendPasswordReset(ctx context.Context, email, resetURL string) error {
	msg, err := passwordResetTemplate.render(KindPasswordReset, email, templateData{
		Link:      resetURL,
		ExpiresIn: util.FormatDuration(d.resetTTL),
	})
	if err != nil {
		return err
	}

	return d.send(ctx, msg)
}

func (d *dispatcher) send(ctx context.Context, msg *Email) error {
	if err := d.sender.Send(ctx, msg); err != nil {
		return errors.Wrapf(err, "failed to send %s email", msg.Kind)
	}

	d.logger.DebugContext(ctx, "Email dispatched",
		slog.String("kind", string(msg.Kind)),
		slog.String("to", msg.To),
	)

	return nil
}
