// Package di provides dependency injection configuration for the bulkmeta
// server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/bulkmeta/internal/archive"
	"github.com/listenupapp/bulkmeta/internal/auth"
	"github.com/listenupapp/bulkmeta/internal/config"
	"github.com/listenupapp/bulkmeta/internal/di/providers"
	"github.com/listenupapp/bulkmeta/internal/logger"
	"github.com/listenupapp/bulkmeta/internal/metrics"
	"github.com/listenupapp/bulkmeta/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideMetrics)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideMailbox)
	do.Provide(injector, providers.ProvideArchiver)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideUploadLimiter)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideBulkService)
	do.Provide(injector, providers.ProvideContentService)
	do.Provide(injector, providers.ProvideRunService)
	do.Provide(injector, providers.ProvideAdminBootstrap)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services. The HTTP server is started last.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*metrics.Metrics](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.MailboxHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[archive.Archiver](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*providers.UploadLimiterHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.BulkService](injector)
	_ = do.MustInvoke[*service.ContentService](injector)
	_ = do.MustInvoke[*service.RunService](injector)
	if _, err := do.Invoke[*providers.AdminBootstrap](injector); err != nil {
		return err
	}

	// Fill a new search index from the database
	providers.TriggerSearchReindexIfNeeded(injector)

	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	return nil
}
