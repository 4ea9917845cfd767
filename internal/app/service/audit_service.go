package service

import (
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/app/repository"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// Actor identifies who performed an action.
type Actor struct {
	Name string
	Role model.UserRole
}

// AdminActor falls back to systemName when the admin has no email.
func AdminActor(email, systemName string) Actor {
	if email == "" {
		email = systemName
	}
	return Actor{Name: email, Role: model.RoleAdmin}
}

func (a Actor) namePtr() *string {
	return model.StringPtr(a.Name)
}

type AuditEntry struct {
	Actor      Actor
	Action     string
	EntityType string
	EntityID   string
	Metadata   map[string]interface{}
}

type AuditService interface {
	// Record writes inside tx so the entry commits or rolls back with the action.
	Record(tx *gorm.DB, entry AuditEntry) error
	List(limit int) ([]model.AuditLog, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) Record(tx *gorm.DB, entry AuditEntry) error {
	repo := s.auditRepo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	log := &model.AuditLog{
		Actor:      entry.Actor.Name,
		ActorRole:  string(entry.Actor.Role),
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   model.StringPtr(entry.EntityID),
		Metadata:   model.JSONMap(entry.Metadata),
	}
	if err := repo.Create(log); err != nil {
		return err
	}

	logger.Debug("Audit entry recorded", map[string]interface{}{
		"action":    entry.Action,
		"entity_id": entry.EntityID,
	})
	return nil
}

func (s *auditService) List(limit int) ([]model.AuditLog, error) {
	switch {
	case limit <= 0:
		limit = defaultAuditLimit
	case limit > maxAuditLimit:
		limit = maxAuditLimit
	}
	return s.auditRepo.List(limit)
}
