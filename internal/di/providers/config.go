// Package providers contains dependency injection providers for the
// bulkmeta server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/bulkmeta/internal/config"
	"github.com/listenupapp/bulkmeta/internal/logger"
	"github.com/listenupapp/bulkmeta/internal/metrics"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(_ do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting bulkmeta server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_dir", cfg.Storage.DataDir,
		"seo_plugin_active", cfg.Tools.SEOPluginActive,
		"serp_empty_cells", cfg.Tools.SerpEmptyCells,
	)

	return log, nil
}

// ProvideMetrics provides the Prometheus collectors.
func ProvideMetrics(_ do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}
