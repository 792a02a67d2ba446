package notification

import (
	"context"
	"log/slog"

	"account/config"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// SenderParams holds dependencies for Sender, injected by Fx
type SenderParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewSender creates a Sender based on the mail provider configuration
func NewSender(params SenderParams) (Sender, error) {
	cfg := params.Config.Mail
	logger := params.Logger

	var (
		sender Sender
		err    error
	)

	switch cfg.Provider {
	case "", config.MailProviderLog:
		logger.Info("Mail provider not configured, logging emails instead")
		sender = NewLogSender(logger)

	case config.MailProviderSMTP:
		logger.Info("Using SMTP mail provider",
			slog.String("host", cfg.SMTP.Host),
			slog.Int("port", cfg.SMTP.Port),
		)
		sender, err = NewSMTPSender(cfg)

	case config.MailProviderMailtrap:
		logger.Info("Using Mailtrap mail provider", slog.String("api_url", cfg.Mailtrap.APIURL))
		sender, err = NewMailtrapSender(cfg)

	case config.MailProviderAMQP:
		logger.Info("Using AMQP mail provider",
			slog.String("exchange", cfg.AMQP.Exchange),
			slog.String("routing_key", cfg.AMQP.RoutingKey),
		)
		sender, err = NewAMQPSender(cfg)

	case config.MailProviderPubSub:
		logger.Info("Using Google Pub/Sub mail provider",
			slog.String("project_id", cfg.PubSub.ProjectID),
			slog.String("topic_id", cfg.PubSub.TopicID),
		)
		sender, err = NewGooglePubSubSender(context.Background(), cfg.PubSub.ProjectID, cfg.PubSub.TopicID, logger)

	default:
		return nil, errors.Errorf("unknown mail provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	// Register lifecycle hook to close sender on shutdown
	params.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Closing mail sender")

			return sender.Close()
		},
	})

	return sender, nil
}

// Module provides the mail FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewSender),
	fx.Provide(NewDispatcher),
)
