package repository

import (
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"gorm.io/gorm"
)

type TransferRepository interface {
	WithTx(tx *gorm.DB) TransferRepository
	Create(transfer *model.EmployeeTransfer) error
	ListByEmployee(employeeID string) ([]model.EmployeeTransfer, error)
}

type transferRepository struct {
	db *gorm.DB
}

func NewTransferRepository(db *gorm.DB) TransferRepository {
	return &transferRepository{db: db}
}

func (r *transferRepository) WithTx(tx *gorm.DB) TransferRepository {
	return &transferRepository{db: tx}
}

func (r *transferRepository) Create(transfer *model.EmployeeTransfer) error {
	if err := r.db.Create(transfer).Error; err != nil {
		logger.Error("Failed to record employee transfer", err, map[string]interface{}{
			"employee_id": transfer.EmployeeID,
			"to":          transfer.ToEstablishmentID,
		})
		return err
	}

	logger.Debug("Employee transfer recorded", map[string]interface{}{
		"employee_id": transfer.EmployeeID,
		"to":          transfer.ToEstablishmentID,
	})
	return nil
}

func (r *transferRepository) ListByEmployee(employeeID string) ([]model.EmployeeTransfer, error) {
	var transfers []model.EmployeeTransfer
	err := r.db.Where("employee_id = ?", employeeID).
		Order("created_at DESC").
		Find(&transfers).Error
	if err != nil {
		logger.Error("Failed to list employee transfers", err, map[string]interface{}{
			"employee_id": employeeID,
		})
		return nil, err
	}
	return transfers, nil
}
