package repository

import (
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"gorm.io/gorm"
)

type RequestRepository interface {
	WithTx(tx *gorm.DB) RequestRepository
	Create(request *model.Request) error
	FindByID(id string) (*model.Request, error)
	UpdateStatus(request *model.Request) error
	List(status model.RequestStatus) ([]model.Request, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) WithTx(tx *gorm.DB) RequestRepository {
	return &requestRepository{db: tx}
}

func (r *requestRepository) Create(request *model.Request) error {
	if err := r.db.Create(request).Error; err != nil {
		logger.Error("Failed to create request in database", err)
		return err
	}

	logger.Debug("Request created in database", map[string]interface{}{
		"request_id": request.ID,
	})
	return nil
}

func (r *requestRepository) FindByID(id string) (*model.Request, error) {
	var request model.Request
	if err := r.db.Where("id = ?", id).First(&request).Error; err != nil {
		if !IsNotFound(err) {
			logger.Error("Failed to find request by ID", err, map[string]interface{}{
				"request_id": id,
			})
		}
		return nil, err
	}
	return &request, nil
}

func (r *requestRepository) UpdateStatus(request *model.Request) error {
	if err := r.db.Model(request).Update("status", request.Status).Error; err != nil {
		logger.Error("Failed to update request status", err, map[string]interface{}{
			"request_id": request.ID,
		})
		return err
	}
	return nil
}

func (r *requestRepository) List(status model.RequestStatus) ([]model.Request, error) {
	query := r.db.Model(&model.Request{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []model.Request
	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		logger.Error("Failed to list requests", err)
		return nil, err
	}
	return requests, nil
}
