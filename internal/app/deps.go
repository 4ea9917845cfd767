package app

import (
	"fmt"

	"github.com/wintergreen/academia-backend/config"
	"github.com/wintergreen/academia-backend/internal/metrics"
	"github.com/wintergreen/academia-backend/internal/notification"
	"github.com/wintergreen/academia-backend/internal/storage"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"github.com/wintergreen/academia-backend/pkg/pdf"
	"github.com/wintergreen/academia-backend/pkg/redis"
)

// BuildDeps assembles the production collaborators. The caller starts and
// stops the returned dispatcher.
func BuildDeps(cfg *config.Config, m *metrics.Metrics) (Deps, *notification.Dispatcher, error) {
	renderer, err := pdf.NewRenderer(cfg.PDF.TemplatePath, cfg.PDF.FontPath)
	if err != nil {
		return Deps{}, nil, fmt.Errorf("failed to load certificate assets: %w", err)
	}
	if !renderer.HasUnicodeFont() {
		logger.Warn("Certificate font not found, Cyrillic text will not render", map[string]interface{}{
			"font_path": cfg.PDF.FontPath,
		})
	}

	dispatcher := notification.NewDispatcher(notification.NewSMTPMailer(cfg.SMTP),
		cfg.Scheduler.NotifyWorkers, cfg.Scheduler.NotifyQueueLen, m)

	deps := Deps{
		Notifier: dispatcher,
		Renderer: renderer,
		Metrics:  m,
	}
	if archive := storage.NewS3Archive(cfg.S3); archive != nil {
		deps.Archiver = archive
	}

	if cfg.RateLimit.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, rate limiting disabled", map[string]interface{}{
				"error": err.Error(),
			})
		}
		deps.Redis = redis.GetClient()
	}
	return deps, dispatcher, nil
}
