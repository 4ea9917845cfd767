package service

import (
	"errors"
	"strings"

	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/app/repository"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"gorm.io/gorm"
)

type CreateEstablishmentInput struct {
	Name                string
	City                string
	Representative      *string
	RepresentativePhone *string
	Address             *string
}

// UpdateEstablishmentInput leaves nil fields untouched.
type UpdateEstablishmentInput struct {
	Name                *string
	City                *string
	Representative      *string
	RepresentativePhone *string
	Address             *string
}

type EstablishmentService interface {
	Create(actor Actor, input CreateEstablishmentInput) (*model.Establishment, error)
	Update(actor Actor, id string, input UpdateEstablishmentInput) (*model.Establishment, error)
	Get(id string) (*model.Establishment, error)
	Archive(actor Actor, id string) (*model.Establishment, error)
	Restore(actor Actor, id string) (*model.Establishment, error)
	List(includeArchived bool) ([]model.EstablishmentSummary, error)
}

type establishmentService struct {
	db                *gorm.DB
	establishmentRepo repository.EstablishmentRepository
	audit             AuditService
}

func NewEstablishmentService(
	db *gorm.DB,
	establishmentRepo repository.EstablishmentRepository,
	audit AuditService,
) EstablishmentService {
	return &establishmentService{
		db:                db,
		establishmentRepo: establishmentRepo,
		audit:             audit,
	}
}

func (s *establishmentService) Create(actor Actor, input CreateEstablishmentInput) (*model.Establishment, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, newValidationError("name", "is required")
	}

	establishment := &model.Establishment{
		Name:                name,
		City:                model.StringPtr(strings.TrimSpace(input.City)),
		Representative:      input.Representative,
		RepresentativePhone: input.RepresentativePhone,
		Address:             input.Address,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.establishmentRepo.WithTx(tx).Create(establishment); err != nil {
			return err
		}
		return s.audit.Record(tx, AuditEntry{
			Actor:      actor,
			Action:     "establishments.create",
			EntityType: "establishment",
			EntityID:   establishment.ID,
			Metadata:   map[string]interface{}{"name": establishment.Name},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Establishment created", map[string]interface{}{
		"establishment_id": establishment.ID,
		"name":             establishment.Name,
	})
	return establishment, nil
}

func (s *establishmentService) Update(actor Actor, id string, input UpdateEstablishmentInput) (*model.Establishment, error) {
	var establishment *model.Establishment

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.establishmentRepo.WithTx(tx)
		found, err := repo.FindByIDUnscoped(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEstablishmentNotFound
			}
			return err
		}

		changes := map[string]interface{}{}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return newValidationError("name", "must not be empty")
			}
			found.Name = name
			changes["name"] = name
		}
		if input.City != nil {
			found.City = input.City
			changes["city"] = *input.City
		}
		if input.Representative != nil {
			found.Representative = input.Representative
			changes["representative"] = *input.Representative
		}
		if input.RepresentativePhone != nil {
			found.RepresentativePhone = input.RepresentativePhone
			changes["representative_phone"] = *input.RepresentativePhone
		}
		if input.Address != nil {
			found.Address = input.Address
			changes["address"] = *input.Address
		}

		if err := repo.Update(found); err != nil {
			return err
		}
		establishment = found
		return s.audit.Record(tx, AuditEntry{
			Actor:      actor,
			Action:     "establishments.update",
			EntityType: "establishment",
			EntityID:   id,
			Metadata:   changes,
		})
	})
	if err != nil {
		return nil, err
	}
	return establishment, nil
}

func (s *establishmentService) Get(id string) (*model.Establishment, error) {
	establishment, err := s.establishmentRepo.FindByIDUnscoped(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEstablishmentNotFound
		}
		return nil, err
	}
	return establishment, nil
}

func (s *establishmentService) Archive(actor Actor, id string) (*model.Establishment, error) {
	var establishment *model.Establishment

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.establishmentRepo.WithTx(tx)
		found, err := repo.FindByIDUnscoped(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEstablishmentNotFound
			}
			return err
		}
		if found.IsArchived() {
			return ErrEstablishmentAlreadyArchived
		}
		if err := repo.Archive(found); err != nil {
			return err
		}
		establishment = found
		return s.audit.Record(tx, AuditEntry{
			Actor:      actor,
			Action:     "establishments.archive",
			EntityType: "establishment",
			EntityID:   id,
			Metadata:   map[string]interface{}{"name": found.Name},
		})
	})
	if err != nil {
		if errors.Is(err, ErrEstablishmentAlreadyArchived) {
			logger.Warn("Archive rejected: establishment already archived", map[string]interface{}{
				"establishment_id": id,
			})
		}
		return nil, err
	}

	logger.Info("Establishment archived", map[string]interface{}{
		"establishment_id": id,
	})
	return establishment, nil
}

func (s *establishmentService) Restore(actor Actor, id string) (*model.Establishment, error) {
	var establishment *model.Establishment

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.establishmentRepo.WithTx(tx)
		found, err := repo.FindByIDUnscoped(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEstablishmentNotFound
			}
			return err
		}
		if !found.IsArchived() {
			return ErrEstablishmentAlreadyActive
		}
		if err := repo.Restore(found); err != nil {
			return err
		}
		establishment = found
		return s.audit.Record(tx, AuditEntry{
			Actor:      actor,
			Action:     "establishments.restore",
			EntityType: "establishment",
			EntityID:   id,
			Metadata:   map[string]interface{}{"name": found.Name},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Establishment restored", map[string]interface{}{
		"establishment_id": id,
	})
	return establishment, nil
}

func (s *establishmentService) List(includeArchived bool) ([]model.EstablishmentSummary, error) {
	return s.establishmentRepo.ListWithCounts(includeArchived)
}
