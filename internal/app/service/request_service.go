package service

import (
	"errors"
	"strings"

	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/app/repository"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"gorm.io/gorm"
)

type CreateRequestInput struct {
	FullName          string
	Email             *string
	Phone             *string
	City              *string
	EstablishmentName *string
	Message           *string
}

type RequestService interface {
	Create(input CreateRequestInput) (*model.Request, error)
	List(status model.RequestStatus) ([]model.Request, error)
	UpdateStatus(actor Actor, id string, status model.RequestStatus) (*model.Request, error)
}

type requestService struct {
	db          *gorm.DB
	requestRepo repository.RequestRepository
	audit       AuditService
}

func NewRequestService(db *gorm.DB, requestRepo repository.RequestRepository, audit AuditService) RequestService {
	return &requestService{db: db, requestRepo: requestRepo, audit: audit}
}

func (s *requestService) Create(input CreateRequestInput) (*model.Request, error) {
	name := strings.TrimSpace(input.FullName)
	if len([]rune(name)) < 2 {
		return nil, newValidationError("full_name", "must be at least 2 characters")
	}

	request := &model.Request{
		FullName:          name,
		Email:             input.Email,
		Phone:             input.Phone,
		City:              input.City,
		EstablishmentName: input.EstablishmentName,
		Message:           input.Message,
		Status:            model.RequestNew,
	}
	if request.Email != nil {
		email := normalizeEmail(*request.Email)
		request.Email = &email
	}
	if err := s.requestRepo.Create(request); err != nil {
		return nil, err
	}

	logger.Info("Request received", map[string]interface{}{
		"request_id": request.ID,
	})
	return request, nil
}

func (s *requestService) List(status model.RequestStatus) ([]model.Request, error) {
	if status != "" && !status.Valid() {
		return nil, newValidationError("status", "unknown request status")
	}
	return s.requestRepo.List(status)
}

func (s *requestService) UpdateStatus(actor Actor, id string, status model.RequestStatus) (*model.Request, error) {
	if !status.Valid() {
		return nil, newValidationError("status", "unknown request status")
	}

	var updated *model.Request
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.requestRepo.WithTx(tx)
		request, err := repo.FindByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		request.Status = status
		if err := repo.UpdateStatus(request); err != nil {
			return err
		}
		updated = request
		return s.audit.Record(tx, AuditEntry{
			Actor:      actor,
			Action:     "requests.update",
			EntityType: "request",
			EntityID:   id,
			Metadata:   map[string]interface{}{"status": status},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
