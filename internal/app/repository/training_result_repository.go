package repository

import (
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"gorm.io/gorm"
)

type TrainingResultRepository interface {
	WithTx(tx *gorm.DB) TrainingResultRepository
	Create(result *model.TrainingResult) error
	ListByEmployee(employeeID string) ([]model.TrainingResult, error)
}

type trainingResultRepository struct {
	db *gorm.DB
}

func NewTrainingResultRepository(db *gorm.DB) TrainingResultRepository {
	return &trainingResultRepository{db: db}
}

func (r *trainingResultRepository) WithTx(tx *gorm.DB) TrainingResultRepository {
	return &trainingResultRepository{db: tx}
}

func (r *trainingResultRepository) Create(result *model.TrainingResult) error {
	if err := r.db.Create(result).Error; err != nil {
		logger.Error("Failed to store training result", err, map[string]interface{}{
			"employee_id": result.EmployeeID,
			"status":      result.Status,
		})
		return err
	}
	return nil
}

func (r *trainingResultRepository) ListByEmployee(employeeID string) ([]model.TrainingResult, error) {
	var results []model.TrainingResult
	err := r.db.Where("employee_id = ?", employeeID).Order("created_at DESC").Find(&results).Error
	if err != nil {
		logger.Error("Failed to list training results", err, map[string]interface{}{
			"employee_id": employeeID,
		})
		return nil, err
	}
	return results, nil
}
