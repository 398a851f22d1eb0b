package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/bulkmeta/internal/auth"
	"github.com/listenupapp/bulkmeta/internal/config"
	"github.com/listenupapp/bulkmeta/internal/logger"
	"github.com/listenupapp/bulkmeta/internal/ratelimit"
)

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the authentication key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Storage.KeyPath)
	if err != nil {
		return nil, err
	}

	// Update config with the loaded key
	cfg.Auth.AccessTokenKey = key

	log.Info("Authentication key loaded",
		"path", cfg.Storage.KeyPath,
		"access_token_duration", cfg.Auth.AccessTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(authKey), cfg.Auth.AccessTokenDuration)
}

// UploadLimiterHandle wraps the per-user upload limiter. It is nil when
// uploads are not rate limited.
type UploadLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.ShutdownerWithError.
func (h *UploadLimiterHandle) Shutdown() error {
	if h.KeyedRateLimiter == nil {
		return nil
	}
	return h.KeyedRateLimiter.Shutdown()
}

// ProvideUploadLimiter provides the per-user upload rate limiter.
func ProvideUploadLimiter(i do.Injector) (*UploadLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Tools.UploadsPerMinute <= 0 {
		log.Info("Upload rate limiting disabled")
		return &UploadLimiterHandle{}, nil
	}

	log.Info("Upload rate limiting enabled", "per_minute", cfg.Tools.UploadsPerMinute)
	return &UploadLimiterHandle{KeyedRateLimiter: ratelimit.PerMinute(cfg.Tools.UploadsPerMinute)}, nil
}
