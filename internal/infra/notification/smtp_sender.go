package notification

import (
	"context"

	"account/config"

	"github.com/pkg/errors"
	"github.com/wneessen/go-mail"
)

// smtpSender delivers email through an SMTP relay
type smtpSender struct {
	client   *mail.Client
	from     string
	fromName string
}

// NewSMTPSender creates a sender for the configured relay. Authentication is used when a username is set.
func NewSMTPSender(cfg *config.MailConfig) (Sender, error) {
	if cfg.SMTP.Host == "" {
		return nil, errors.New("smtp host is required for smtp provider")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.SMTP.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.SMTP.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTP.Username),
			mail.WithPassword(cfg.SMTP.Password),
		)
	}

	client, err := mail.NewClient(cfg.SMTP.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create smtp client")
	}

	return &smtpSender{
		client:   client,
		from:     cfg.From,
		fromName: cfg.FromName,
	}, nil
}

func (s *smtpSender) Send(ctx context.Context, email *Email) error {
	msg, err := s.buildMessage(email)
	if err != nil {
		return err
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Wrap(err, "failed to deliver email over smtp")
	}

	return nil
}

func (s *smtpSender) buildMessage(email *Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.from); err != nil {
		return nil, errors.Wrap(err, "invalid sender address")
	}
	if err := msg.To(email.To); err != nil {
		return nil, errors.Wrap(err, "invalid recipient address")
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextPlain, email.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, email.HTML)

	return msg, nil
}

func (s *smtpSender) Close() error {
	return nil
}
