// Package app wires repositories, engines and HTTP handlers into one graph.
package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/wintergreen/academia-backend/config"
	"github.com/wintergreen/academia-backend/internal/app/controller"
	"github.com/wintergreen/academia-backend/internal/app/repository"
	"github.com/wintergreen/academia-backend/internal/app/service"
	"github.com/wintergreen/academia-backend/internal/metrics"
	"github.com/wintergreen/academia-backend/internal/middleware"
	"github.com/wintergreen/academia-backend/internal/notification"
	"github.com/wintergreen/academia-backend/internal/router"
	"github.com/wintergreen/academia-backend/pkg/crypto"
	"gorm.io/gorm"
)

// Deps are the collaborators that live outside the store.
type Deps struct {
	Notifier notification.Notifier
	Renderer service.PDFRenderer
	Archiver service.FileArchiver // nil disables import archiving
	Redis    *redis.Client        // nil disables rate limiting
	Metrics  *metrics.Metrics
}

type Container struct {
	Config *config.Config

	Audit          service.AuditService
	Auth           service.AuthService
	Establishments service.EstablishmentService
	Employees      service.EmployeeService
	Registration   service.RegistrationService
	Certificates   service.CertificateService
	Imports        service.TrainingImportService
	Requests       service.RequestService
	Dashboard      service.DashboardService

	router *router.Router
}

func NewContainer(db *gorm.DB, cfg *config.Config, deps Deps) (*Container, error) {
	var key []byte
	if cfg.Encryption.IINKey != "" {
		decoded, err := cfg.Encryption.Key()
		if err != nil {
			return nil, err
		}
		key = decoded
	}
	encryptor, err := crypto.NewEncryptor(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build IIN encryptor: %w", err)
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notification.NopNotifier{}
	}

	userRepo := repository.NewUserRepository(db)
	establishmentRepo := repository.NewEstablishmentRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)
	resultRepo := repository.NewTrainingResultRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	c := &Container{Config: cfg}
	c.Audit = service.NewAuditService(auditRepo)
	issuer := service.NewCertificateIssuer(certificateRepo, employeeRepo, cfg.App.CertificateValidity)

	c.Auth = service.NewAuthService(db, userRepo, employeeRepo, certificateRepo, c.Audit, cfg.JWT, cfg.App.BootstrapKey)
	c.Establishments = service.NewEstablishmentService(db, establishmentRepo, c.Audit)
	c.Employees = service.NewEmployeeService(db, employeeRepo, establishmentRepo, transferRepo, c.Audit, notifier, cfg.App)
	c.Registration = service.NewRegistrationService(db, employeeRepo, userRepo, c.Audit, encryptor, notifier, deps.Metrics)
	c.Certificates = service.NewCertificateService(db, certificateRepo, employeeRepo, issuer, c.Audit, notifier,
		deps.Renderer, deps.Metrics, cfg.App)
	c.Imports = service.NewTrainingImportService(db, employeeRepo, resultRepo, issuer, c.Audit, notifier,
		deps.Archiver, deps.Metrics)
	c.Requests = service.NewRequestService(db, requestRepo, c.Audit)
	c.Dashboard = service.NewDashboardService(establishmentRepo, employeeRepo, certificateRepo)

	actor := cfg.App.DefaultActor
	controllers := router.Controllers{
		Auth:          controller.NewAuthController(c.Auth, cfg.Server.CookieSecure),
		Establishment: controller.NewEstablishmentController(c.Establishments, actor),
		Employee:      controller.NewEmployeeController(c.Employees, actor),
		Registration:  controller.NewRegistrationController(c.Registration),
		Certificate:   controller.NewCertificateController(c.Certificates, actor),
		Training:      controller.NewTrainingController(c.Imports, cfg.Upload.MaxImportSize, actor),
		Request:       controller.NewRequestController(c.Requests, actor),
		Admin:         controller.NewAdminController(c.Dashboard, c.Audit),
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(deps.Redis, cfg.RateLimit.Window, deps.Metrics)
	}
	c.router = router.NewRouter(controllers, middleware.NewAuthMiddleware(c.Auth), limiter, deps.Metrics, cfg)
	return c, nil
}

// Router returns the HTTP route table.
func (c *Container) Router() *router.Router {
	return c.router
}
