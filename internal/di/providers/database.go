package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/bulkmeta/internal/config"
	"github.com/listenupapp/bulkmeta/internal/domain"
	"github.com/listenupapp/bulkmeta/internal/logger"
	"github.com/listenupapp/bulkmeta/internal/service"
	"github.com/listenupapp/bulkmeta/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.ShutdownerWithError.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := sqlite.Open(cfg.Storage.DatabasePath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", cfg.Storage.DatabasePath)

	return &StoreHandle{Store: db}, nil
}

// AdminBootstrap records the account created on first start, if any.
type AdminBootstrap struct {
	Admin *domain.User
}

// ProvideAdminBootstrap creates the configured admin when the database has
// no users yet.
func ProvideAdminBootstrap(i do.Injector) (*AdminBootstrap, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	authService := do.MustInvoke[*service.AuthService](i)

	if cfg.Auth.AdminEmail == "" || cfg.Auth.AdminPassword == "" {
		log.Info("No bootstrap admin configured")
		return &AdminBootstrap{}, nil
	}

	admin, err := authService.EnsureAdmin(context.Background(), cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
	if err != nil {
		return nil, err
	}
	if admin != nil {
		log.Info("Bootstrap admin created", "user_id", admin.ID, "email", admin.Email)
	}
	return &AdminBootstrap{Admin: admin}, nil
}
