package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wintergreen/academia-backend/config"
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/app/repository"
	"github.com/wintergreen/academia-backend/internal/metrics"
	"github.com/wintergreen/academia-backend/internal/notification"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"github.com/wintergreen/academia-backend/pkg/pdf"
	"gorm.io/gorm"
)

const (
	minRevokeReasonLength = 3
	expiryWindow          = 24 * time.Hour
)

// PDFRenderer draws a certificate document.
type PDFRenderer interface {
	Render(data pdf.CertificateData) ([]byte, error)
}

// CertificateListFilter accepts the display statuses active, revoked and expired.
type CertificateListFilter struct {
	EstablishmentID string
	EmployeeID      string
	Status          model.CertificateStatus
	Search          string
}

type CertificateService interface {
	Issue(actor Actor, employeeID string, validUntil *time.Time) (*model.Certificate, error)
	Revoke(actor Actor, id, reason string) (*model.Certificate, error)
	Get(id string) (*model.CertificateView, error)
	List(filter CertificateListFilter) ([]model.CertificateView, error)
	History(id string) ([]model.CertificateHistory, error)
	RenderPDF(id string) ([]byte, string, error)
	NotifyExpiring(now time.Time, lead time.Duration) (int, error)
}

type certificateService struct {
	db              *gorm.DB
	certificateRepo repository.CertificateRepository
	employeeRepo    repository.EmployeeRepository
	issuer          *CertificateIssuer
	audit           AuditService
	notifier        notification.Notifier
	renderer        PDFRenderer
	metrics         *metrics.Metrics
	app             config.AppConfig
	now             func() time.Time
}

func NewCertificateService(
	db *gorm.DB,
	certificateRepo repository.CertificateRepository,
	employeeRepo repository.EmployeeRepository,
	issuer *CertificateIssuer,
	audit AuditService,
	notifier notification.Notifier,
	renderer PDFRenderer,
	m *metrics.Metrics,
	app config.AppConfig,
) CertificateService {
	return &certificateService{
		db:              db,
		certificateRepo: certificateRepo,
		employeeRepo:    employeeRepo,
		issuer:          issuer,
		audit:           audit,
		notifier:        notifier,
		renderer:        renderer,
		metrics:         m,
		app:             app,
		now:             time.Now,
	}
}

func (s *certificateService) Issue(actor Actor, employeeID string, validUntil *time.Time) (*model.Certificate, error) {
	issuedAt := s.now()
	expires := s.issuer.DefaultValidUntil(issuedAt)
	if validUntil != nil {
		if !validUntil.After(issuedAt) {
			return nil, newValidationError("valid_until", "must be in the future")
		}
		expires = *validUntil
	}

	var (
		certificate *model.Certificate
		employee    *model.Employee
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		found, err := s.employeeRepo.WithTx(tx).FindByIDForUpdate(employeeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmployeeNotFound
			}
			return err
		}
		if found.IsArchived() {
			return ErrEmployeeNotFound
		}
		employee = found

		active, err := s.issuer.claimActiveSlot(tx, employee.ID, actor, issuedAt)
		if err != nil {
			return err
		}
		if active {
			return ErrActiveCertificateExists
		}

		certificate, err = s.issuer.IssueInTx(tx, employee, actor, issuedAt, expires, model.ReasonManualIssue)
		if err != nil {
			return err
		}
		return s.audit.Record(tx, AuditEntry{
			Actor:      actor,
			Action:     "certificates.create",
			EntityType: "certificate",
			EntityID:   certificate.ID,
			Metadata: map[string]interface{}{
				"employee_id":        employee.ID,
				"certificate_number": certificate.CertificateNumber,
			},
		})
	})
	if err != nil {
		logger.Warn("Certificate issue rejected", map[string]interface{}{
			"employee_id": employeeID,
			"error":       err.Error(),
		})
		return nil, err
	}

	s.metrics.CertificateIssued("manual")
	s.notifier.Notify(notification.Event{
		Kind:              notification.CertificateIssued,
		Email:             employee.Email,
		FullName:          employee.FullName,
		CertificateNumber: certificate.CertificateNumber,
		ValidUntil:        certificate.ValidUntil,
	})

	logger.Info("Certificate issued", map[string]interface{}{
		"certificate_id": certificate.ID,
		"employee_id":    employee.ID,
	})
	return certificate, nil
}

func (s *certificateService) Revoke(actor Actor, id, reason string) (*model.Certificate, error) {
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) < minRevokeReasonLength {
		return nil, newValidationError("reason", fmt.Sprintf("must be at least %d characters", minRevokeReasonLength))
	}

	var revoked *model.Certificate
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.certificateRepo.WithTx(tx)
		certificate, err := repo.FindByIDForUpdate(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCertificateNotFound
			}
			return err
		}
		if certificate.Status == model.CertificateRevoked {
			return ErrCertificateAlreadyRevoked
		}

		now := s.now()
		certificate.Status = model.CertificateRevoked
		certificate.RevokedAt = &now
		certificate.RevokedReason = &reason
		if err := repo.MarkRevoked(certificate); err != nil {
			return err
		}
		if err := repo.AppendHistory(&model.CertificateHistory{
			CertificateID: certificate.ID,
			Status:        model.CertificateRevoked,
			Reason:        &reason,
			Actor:         actor.namePtr(),
		}); err != nil {
			return err
		}

		revoked = certificate
		return s.audit.Record(tx, AuditEntry{
			Actor:      actor,
			Action:     "certificates.revoke",
			EntityType: "certificate",
			EntityID:   certificate.ID,
			Metadata:   map[string]interface{}{"reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CertificateRevoked()
	logger.Info("Certificate revoked", map[string]interface{}{
		"certificate_id": id,
	})
	return revoked, nil
}

func (s *certificateService) Get(id string) (*model.CertificateView, error) {
	certificate, err := s.certificateRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificateNotFound
		}
		return nil, err
	}
	view := model.NewCertificateView(certificate, s.now())
	return &view, nil
}

func (s *certificateService) List(filter CertificateListFilter) ([]model.CertificateView, error) {
	query := repository.CertificateFilter{
		EstablishmentID: filter.EstablishmentID,
		EmployeeID:      filter.EmployeeID,
		Search:          filter.Search,
	}
	switch filter.Status {
	case "":
	case model.CertificateActive, model.CertificateExpired:
		query.Status = model.CertificateActive
	case model.CertificateRevoked:
		query.Status = model.CertificateRevoked
	default:
		return nil, newValidationError("status", "unknown certificate status")
	}

	certificates, err := s.certificateRepo.List(query)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]model.CertificateView, 0, len(certificates))
	for i := range certificates {
		view := model.NewCertificateView(&certificates[i], now)
		if filter.Status != "" && view.DisplayStatus != filter.Status {
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *certificateService) History(id string) ([]model.CertificateHistory, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	return s.certificateRepo.ListHistory(id)
}

// RenderPDF returns the document and its download filename.
func (s *certificateService) RenderPDF(id string) ([]byte, string, error) {
	certificate, err := s.certificateRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrCertificateNotFound
		}
		return nil, "", err
	}

	var recipient string
	if certificate.Employee != nil {
		recipient = certificate.Employee.FullName
	}
	data, err := s.renderer.Render(pdf.CertificateData{
		RecipientName:      recipient,
		Qualification:      s.app.Qualification,
		TrainingCenterName: s.app.TrainingCenterName,
		IssuedAt:           certificate.IssuedAt,
		CertificateNumber:  certificate.CertificateNumber,
	})
	if err != nil {
		logger.Error("Failed to render certificate PDF", err, map[string]interface{}{
			"certificate_id": id,
		})
		return nil, "", fmt.Errorf("failed to render certificate: %w", err)
	}
	return data, pdf.Filename(certificate.CertificateNumber), nil
}

// NotifyExpiring queues a reminder for every active certificate whose validity
// ends in the day starting lead from now. Running it once a day reminds each
// holder once.
func (s *certificateService) NotifyExpiring(now time.Time, lead time.Duration) (int, error) {
	from := now.Add(lead)
	certificates, err := s.certificateRepo.ListActiveExpiringBetween(from, from.Add(expiryWindow))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, certificate := range certificates {
		if certificate.Employee == nil || certificate.Employee.IsArchived() {
			continue
		}
		s.notifier.Notify(notification.Event{
			Kind:              notification.CertificateExpiring,
			Email:             certificate.Employee.Email,
			FullName:          certificate.Employee.FullName,
			CertificateNumber: certificate.CertificateNumber,
			ValidUntil:        certificate.ValidUntil,
		})
		sent++
	}

	logger.Info("Expiry reminders queued", map[string]interface{}{
		"count": sent,
		"from":  from,
	})
	return sent, nil
}
