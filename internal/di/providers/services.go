package providers

import (
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/listenupapp/bulkmeta/internal/archive"
	"github.com/listenupapp/bulkmeta/internal/auth"
	"github.com/listenupapp/bulkmeta/internal/batch"
	"github.com/listenupapp/bulkmeta/internal/config"
	"github.com/listenupapp/bulkmeta/internal/logger"
	"github.com/listenupapp/bulkmeta/internal/metrics"
	"github.com/listenupapp/bulkmeta/internal/service"
)

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideBulkService provides the alt-text and SERP tool runner.
func ProvideBulkService(i do.Injector) (*service.BulkService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	mailbox := do.MustInvoke[*MailboxHandle](i)
	archiver := do.MustInvoke[archive.Archiver](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	limiter := do.MustInvoke[*UploadLimiterHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	tmpDir := filepath.Join(cfg.Storage.DataDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, err
	}

	return service.NewBulkService(
		storeHandle.Store,
		indexHandle.SearchIndex,
		mailbox.Mailbox,
		archiver,
		m,
		limiter.KeyedRateLimiter,
		service.BulkConfig{
			MaxUploadBytes:  cfg.Tools.MaxUploadBytes,
			SEOPluginActive: cfg.Tools.SEOPluginActive,
			SerpEmptyCells:  batch.EmptyCellPolicy(cfg.Tools.SerpEmptyCells),
			TempDir:         tmpDir,
			SiteURL:         cfg.Tools.SiteURL,
		},
		log.Logger,
	), nil
}

// ProvideContentService provides the content administration service.
func ProvideContentService(i do.Injector) (*service.ContentService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewContentService(storeHandle.Store, indexHandle.SearchIndex, log.Logger), nil
}

// ProvideRunService provides the run history service.
func ProvideRunService(i do.Injector) (*service.RunService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	return service.NewRunService(storeHandle.Store), nil
}
