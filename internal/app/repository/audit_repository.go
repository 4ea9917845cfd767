package repository

import (
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"gorm.io/gorm"
)

type AuditRepository interface {
	WithTx(tx *gorm.DB) AuditRepository
	Create(entry *model.AuditLog) error
	List(limit int) ([]model.AuditLog, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) WithTx(tx *gorm.DB) AuditRepository {
	return &auditRepository{db: tx}
}

func (r *auditRepository) Create(entry *model.AuditLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		logger.Error("Failed to write audit log", err, map[string]interface{}{
			"action":      entry.Action,
			"entity_type": entry.EntityType,
		})
		return err
	}
	return nil
}

func (r *auditRepository) List(limit int) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		logger.Error("Failed to list audit logs", err)
		return nil, err
	}
	return entries, nil
}
