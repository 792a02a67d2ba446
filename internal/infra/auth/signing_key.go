package auth

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"account/config"

	"github.com/pkg/errors"
)

const signingKeyBytes = 32

// SigningKey is the HMAC secret used for bearer tokens.
type SigningKey []byte

// LoadSigningKey resolves the signing key once per process.
// An explicit value wins, then the key file, and a missing file is created with a fresh random key.
func LoadSigningKey(cfg *config.Config, logger *slog.Logger) (SigningKey, error) {
	if v := strings.TrimSpace(cfg.SecretKey.Access); v != "" {
		return SigningKey(v), nil
	}

	path := cfg.SecretKey.Path
	if path == "" {
		return nil, errors.New("secret key path is empty")
	}

	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		key := strings.TrimSpace(string(content))
		if key == "" {
			return nil, errors.Errorf("secret key file %s is empty", path)
		}
		return SigningKey(key), nil
	case !os.IsNotExist(err):
		return nil, errors.Wrapf(err, "failed to read secret key file %s", path)
	}

	key, err := generateSigningKey()
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrapf(err, "failed to create directory for %s", path)
		}
	}
	if err := os.WriteFile(path, []byte(key), 0o600); err != nil {
		return nil, errors.Wrapf(err, "failed to write secret key file %s", path)
	}

	logger.Info("Generated new token signing key", slog.String("path", path))

	return SigningKey(key), nil
}

func generateSigningKey() (string, error) {
	buf := make([]byte, signingKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "failed to generate secret key")
	}

	return hex.EncodeToString(buf), nil
}
