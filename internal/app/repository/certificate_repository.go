package repository

import (
	"strings"
	"time"

	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CertificateFilter narrows certificate listings. Status is the stored status.
type CertificateFilter struct {
	EstablishmentID string
	EmployeeID      string
	Status          model.CertificateStatus
	Search          string
}

type CertificateRepository interface {
	WithTx(tx *gorm.DB) CertificateRepository
	Create(certificate *model.Certificate) error
	FindByID(id string) (*model.Certificate, error)
	FindByIDForUpdate(id string) (*model.Certificate, error)
	ListActiveByEmployeeForUpdate(employeeID string) ([]model.Certificate, error)
	MarkRevoked(certificate *model.Certificate) error
	List(filter CertificateFilter) ([]model.Certificate, error)
	ListActiveExpiringBetween(from, to time.Time) ([]model.Certificate, error)
	CountActive(now time.Time) (int64, error)
	AppendHistory(entry *model.CertificateHistory) error
	ListHistory(certificateID string) ([]model.CertificateHistory, error)
}

type certificateRepository struct {
	db *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) CertificateRepository {
	return &certificateRepository{db: db}
}

func (r *certificateRepository) WithTx(tx *gorm.DB) CertificateRepository {
	return &certificateRepository{db: tx}
}

// withOwners preloads employee and establishment, archived rows included.
func withOwners(db *gorm.DB) *gorm.DB {
	unscoped := func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }
	return db.Preload("Employee", unscoped).Preload("Establishment", unscoped)
}

func (r *certificateRepository) Create(certificate *model.Certificate) error {
	logger.Debug("Creating certificate in database", map[string]interface{}{
		"employee_id":        certificate.EmployeeID,
		"certificate_number": certificate.CertificateNumber,
	})

	if err := r.db.Create(certificate).Error; err != nil {
		if !IsUniqueViolation(err) {
			logger.Error("Failed to create certificate in database", err, map[string]interface{}{
				"employee_id": certificate.EmployeeID,
			})
		}
		return err
	}

	logger.Debug("Certificate created in database", map[string]interface{}{
		"certificate_id": certificate.ID,
	})
	return nil
}

func (r *certificateRepository) FindByID(id string) (*model.Certificate, error) {
	var certificate model.Certificate
	if err := withOwners(r.db).Where("certificates.id = ?", id).First(&certificate).Error; err != nil {
		if !IsNotFound(err) {
			logger.Error("Failed to find certificate by ID", err, map[string]interface{}{
				"certificate_id": id,
			})
		}
		return nil, err
	}
	return &certificate, nil
}

func (r *certificateRepository) FindByIDForUpdate(id string) (*model.Certificate, error) {
	var certificate model.Certificate
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&certificate).Error
	if err != nil {
		if !IsNotFound(err) {
			logger.Error("Failed to lock certificate", err, map[string]interface{}{
				"certificate_id": id,
			})
		}
		return nil, err
	}
	return &certificate, nil
}

// ListActiveByEmployeeForUpdate locks every certificate stored as active for
// the employee, expired ones included.
func (r *certificateRepository) ListActiveByEmployeeForUpdate(employeeID string) ([]model.Certificate, error) {
	var certificates []model.Certificate
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("employee_id = ? AND status = ?", employeeID, model.CertificateActive).
		Order("issued_at DESC").
		Find(&certificates).Error
	if err != nil {
		logger.Error("Failed to lock active certificates", err, map[string]interface{}{
			"employee_id": employeeID,
		})
		return nil, err
	}
	return certificates, nil
}

func (r *certificateRepository) MarkRevoked(certificate *model.Certificate) error {
	err := r.db.Model(certificate).
		Select("status", "revoked_at", "revoked_reason").
		Updates(certificate).Error
	if err != nil {
		logger.Error("Failed to revoke certificate in database", err, map[string]interface{}{
			"certificate_id": certificate.ID,
		})
		return err
	}
	return nil
}

func (r *certificateRepository) List(filter CertificateFilter) ([]model.Certificate, error) {
	logger.Debug("Listing certificates", map[string]interface{}{
		"establishment_id": filter.EstablishmentID,
		"status":           filter.Status,
	})

	query := withOwners(r.db.Model(&model.Certificate{}))
	if filter.EstablishmentID != "" {
		query = query.Where("certificates.establishment_id = ?", filter.EstablishmentID)
	}
	if filter.EmployeeID != "" {
		query = query.Where("certificates.employee_id = ?", filter.EmployeeID)
	}
	if filter.Status != "" {
		query = query.Where("certificates.status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Joins("JOIN employees ON employees.id = certificates.employee_id").
			Where("(LOWER(certificates.certificate_number) LIKE ? OR LOWER(employees.full_name) LIKE ? OR LOWER(employees.email) LIKE ?)",
				like, like, like)
	}

	var certificates []model.Certificate
	if err := query.Order("certificates.issued_at DESC").Find(&certificates).Error; err != nil {
		logger.Error("Failed to list certificates", err)
		return nil, err
	}
	return certificates, nil
}

// ListActiveExpiringBetween returns active certificates with valid_until in [from, to).
func (r *certificateRepository) ListActiveExpiringBetween(from, to time.Time) ([]model.Certificate, error) {
	var certificates []model.Certificate
	err := withOwners(r.db).
		Where("status = ? AND valid_until >= ? AND valid_until < ?", model.CertificateActive, from, to).
		Order("valid_until").
		Find(&certificates).Error
	if err != nil {
		logger.Error("Failed to list expiring certificates", err, map[string]interface{}{
			"from": from,
			"to":   to,
		})
		return nil, err
	}
	return certificates, nil
}

// CountActive counts stored-active certificates that have not yet expired.
func (r *certificateRepository) CountActive(now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.Certificate{}).
		Where("status = ? AND valid_until > ?", model.CertificateActive, now).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to count active certificates", err)
		return 0, err
	}
	return count, nil
}

func (r *certificateRepository) AppendHistory(entry *model.CertificateHistory) error {
	if err := r.db.Create(entry).Error; err != nil {
		logger.Error("Failed to append certificate history", err, map[string]interface{}{
			"certificate_id": entry.CertificateID,
			"status":         entry.Status,
		})
		return err
	}
	return nil
}

func (r *certificateRepository) ListHistory(certificateID string) ([]model.CertificateHistory, error) {
	var history []model.CertificateHistory
	err := r.db.Where("certificate_id = ?", certificateID).
		Order("created_at DESC").
		Find(&history).Error
	if err != nil {
		logger.Error("Failed to list certificate history", err, map[string]interface{}{
			"certificate_id": certificateID,
		})
		return nil, err
	}
	return history, nil
}
