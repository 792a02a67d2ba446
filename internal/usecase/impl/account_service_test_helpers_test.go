package impl

import (
	"io"
	"log/slog"
	"time"

	"account/config"
)

func newQuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAccountTestConfig(requireEmailDelivery bool) *config.Config {
	return &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost: 4,
			TokenTTL:   time.Hour,
		},
		Account: &config.AccountConfig{
			PublicBaseURL:        "https://app.example.com",
			ResetTokenTTL:        time.Hour,
			RequireEmailDelivery: requireEmailDelivery,
		},
		Upload: &config.UploadConfig{
			PublicBaseURL: "https://cdn.example.com",
			MaxSize:       "1KB",
			KeyPrefix:     "user_profiles",
		},
	}
}

// pngImage returns a payload that sniffs as image/png.
func pngImage(size int) []byte {
	data := make([]byte, size)
	copy(data, "\x89PNG\r\n\x1a\n")

	return data
}
