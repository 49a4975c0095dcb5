package bootstrap

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/target/clinic-session/config"
	"github.com/target/clinic-session/internal/adapters/devauth"
)

const generatedKeyBytes = 32

// BuildDevAuth constructs the development auth server. It serves under the
// path of AUTH_API_URL so a client built from the same config reaches it.
func BuildDevAuth(cfg config.AppConfig, logger *slog.Logger) (*devauth.Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	key := []byte(cfg.DevAuth.SigningKey)
	if len(key) == 0 {
		key = make([]byte, generatedKeyBytes)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		logger.Warn("DEV_AUTH_SIGNING_KEY not set, using a random key; tokens will not survive a restart")
	}

	basePath := ""
	if u, err := url.Parse(cfg.Auth.APIURL); err == nil {
		basePath = u.Path
	}

	return devauth.NewServer(devauth.Config{
		SigningKey: key,
		TokenTTL:   cfg.DevAuth.TokenTTL,
		LoginRate:  cfg.DevAuth.LoginRate,
		LoginBurst: cfg.DevAuth.LoginBurst,
		BasePath:   basePath,
		Logger:     logger,
	})
}
