package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"account/config"

	"github.com/pkg/errors"
)

const mailtrapTimeout = 30 * time.Second

// mailtrapSender delivers email through the Mailtrap send API
type mailtrapSender struct {
	apiURL     string
	apiKey     string
	from       mailtrapAddress
	httpClient *http.Client
}

type mailtrapAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailtrapRequest struct {
	From     mailtrapAddress   `json:"from"`
	To       []mailtrapAddress `json:"to"`
	Subject  string            `json:"subject"`
	HTML     string            `json:"html,omitempty"`
	Text     string            `json:"text,omitempty"`
	Category string            `json:"category,omitempty"`
}

// NewMailtrapSender creates a sender for the Mailtrap HTTP API.
func NewMailtrapSender(cfg *config.MailConfig) (Sender, error) {
	if cfg.Mailtrap.APIURL == "" || cfg.Mailtrap.APIKey == "" {
		return nil, errors.New("api url and api key are required for mailtrap provider")
	}

	return &mailtrapSender{
		apiURL: cfg.Mailtrap.APIURL,
		apiKey: cfg.Mailtrap.APIKey,
		from:   mailtrapAddress{Email: cfg.From, Name: cfg.FromName},
		httpClient: &http.Client{
			Timeout: mailtrapTimeout,
		},
	}, nil
}

func (s *mailtrapSender) Send(ctx context.Context, email *Email) error {
	payload, err := json.Marshal(mailtrapRequest{
		From:     s.from,
		To:       []mailtrapAddress{{Email: email.To}},
		Subject:  email.Subject,
		HTML:     email.HTML,
		Text:     email.Text,
		Category: string(email.Kind),
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal mailtrap request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create mailtrap request")
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to call mailtrap")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return errors.Errorf("mailtrap API returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

func (s *mailtrapSender) Close() error {
	s.httpClient.CloseIdleConnections()

	return nil
}
