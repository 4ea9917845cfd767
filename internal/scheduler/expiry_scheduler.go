package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/wintergreen/academia-backend/pkg/logger"
)

// DefaultExpirySpec runs once a day at 09:00 server time.
const DefaultExpirySpec = "0 9 * * *"

// ExpiryNotifier is satisfied by service.CertificateService.
type ExpiryNotifier interface {
	NotifyExpiring(now time.Time, lead time.Duration) (int, error)
}

// ExpiryScheduler sends reminders for certificates nearing valid_until.
type ExpiryScheduler struct {
	cron     *cron.Cron
	notifier ExpiryNotifier
	spec     string
	lead     time.Duration
	now      func() time.Time
}

func NewExpiryScheduler(notifier ExpiryNotifier, spec string, lead time.Duration) *ExpiryScheduler {
	if spec == "" {
		spec = DefaultExpirySpec
	}
	return &ExpiryScheduler{
		cron:     cron.New(),
		notifier: notifier,
		spec:     spec,
		lead:     lead,
		now:      time.Now,
	}
}

func (s *ExpiryScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.RunOnce); err != nil {
		logger.Error("Failed to add certificate expiry job", err, map[string]interface{}{
			"spec": s.spec,
		})
		return fmt.Errorf("invalid expiry cron spec %q: %w", s.spec, err)
	}

	s.cron.Start()
	logger.Info("Certificate expiry scheduler started", map[string]interface{}{
		"spec":      s.spec,
		"lead_days": int(s.lead.Hours() / 24),
	})
	return nil
}

// RunOnce performs a single reminder sweep.
func (s *ExpiryScheduler) RunOnce() {
	logger.Info("Starting certificate expiry sweep", nil)

	sent, err := s.notifier.NotifyExpiring(s.now(), s.lead)
	if err != nil {
		logger.Error("Certificate expiry sweep failed", err)
		return
	}

	logger.Info("Certificate expiry sweep finished", map[string]interface{}{
		"reminders": sent,
	})
}

// Stop waits for a running sweep to finish.
func (s *ExpiryScheduler) Stop() {
	logger.Info("Stopping certificate expiry scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Certificate expiry scheduler stopped", nil)
}
