package service

import (
	"fmt"
	"time"

	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/app/repository"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"github.com/wintergreen/academia-backend/pkg/util"
	"gorm.io/gorm"
)

const certificateNumberAttempts = 3

const oneYear = 365 * 24 * time.Hour

// CertificateIssuer mints certificates inside a caller-owned transaction.
type CertificateIssuer struct {
	certificateRepo repository.CertificateRepository
	employeeRepo    repository.EmployeeRepository
	validity        time.Duration
	numbers         func(time.Time) (string, error)
}

func NewCertificateIssuer(
	certificateRepo repository.CertificateRepository,
	employeeRepo repository.EmployeeRepository,
	validity time.Duration,
) *CertificateIssuer {
	return &CertificateIssuer{
		certificateRepo: certificateRepo,
		employeeRepo:    employeeRepo,
		validity:        validity,
		numbers:         util.GenerateCertificateNumber,
	}
}

// DefaultValidUntil is one calendar year after issuedAt unless another
// validity period is configured.
func (i *CertificateIssuer) DefaultValidUntil(issuedAt time.Time) time.Time {
	if i.validity <= 0 || i.validity == oneYear {
		return issuedAt.AddDate(1, 0, 0)
	}
	return issuedAt.Add(i.validity)
}

// IssueInTx inserts the certificate, appends the issue history row and marks
// the employee certified. The caller checks for an existing active certificate.
func (i *CertificateIssuer) IssueInTx(
	tx *gorm.DB,
	employee *model.Employee,
	actor Actor,
	issuedAt, validUntil time.Time,
	reason string,
) (*model.Certificate, error) {
	certificateRepo := i.certificateRepo.WithTx(tx)

	var certificate *model.Certificate
	for attempt := 1; attempt <= certificateNumberAttempts; attempt++ {
		number, err := i.numbers(issuedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to generate certificate number: %w", err)
		}
		candidate := &model.Certificate{
			EmployeeID:        employee.ID,
			EstablishmentID:   employee.EstablishmentID,
			CertificateNumber: number,
			Status:            model.CertificateActive,
			IssuedAt:          issuedAt,
			ValidUntil:        validUntil,
		}

		// savepoint so a number collision does not abort the outer transaction
		err = tx.Transaction(func(sp *gorm.DB) error {
			return i.certificateRepo.WithTx(sp).Create(candidate)
		})
		if err == nil {
			certificate = candidate
			break
		}
		if !repository.IsUniqueViolation(err) {
			return nil, err
		}
		logger.Warn("Certificate number collision, retrying", map[string]interface{}{
			"employee_id": employee.ID,
			"attempt":     attempt,
		})
	}
	if certificate == nil {
		return nil, ErrCertificateNumberConflict
	}

	if err := certificateRepo.AppendHistory(&model.CertificateHistory{
		CertificateID: certificate.ID,
		Status:        model.CertificateActive,
		Reason:        model.StringPtr(reason),
		Actor:         actor.namePtr(),
	}); err != nil {
		return nil, err
	}

	if err := employee.ApplyStatus(model.StatusCertified); err != nil {
		return nil, err
	}
	if err := i.employeeRepo.WithTx(tx).Update(employee); err != nil {
		return nil, err
	}
	return certificate, nil
}

// claimActiveSlot reports whether the employee still holds an unexpired
// active certificate. When only expired ones are stored as active, they are
// revoked with ReasonExpiredOnRenewal so the new certificate is the single
// active one.
func (i *CertificateIssuer) claimActiveSlot(tx *gorm.DB, employeeID string, actor Actor, now time.Time) (bool, error) {
	certificateRepo := i.certificateRepo.WithTx(tx)
	stored, err := certificateRepo.ListActiveByEmployeeForUpdate(employeeID)
	if err != nil {
		return false, err
	}
	for _, c := range stored {
		if c.DisplayStatus(now) == model.CertificateActive {
			return true, nil
		}
	}

	for idx := range stored {
		expired := &stored[idx]
		revokedAt := now
		expired.Status = model.CertificateRevoked
		expired.RevokedAt = &revokedAt
		expired.RevokedReason = model.StringPtr(model.ReasonExpiredOnRenewal)
		if err := certificateRepo.MarkRevoked(expired); err != nil {
			return false, err
		}
		if err := certificateRepo.AppendHistory(&model.CertificateHistory{
			CertificateID: expired.ID,
			Status:        model.CertificateRevoked,
			Reason:        model.StringPtr(model.ReasonExpiredOnRenewal),
			Actor:         actor.namePtr(),
		}); err != nil {
			return false, err
		}
		logger.Info("Expired certificate retired on renewal", map[string]interface{}{
			"employee_id":    employeeID,
			"certificate_id": expired.ID,
		})
	}
	return false, nil
}
