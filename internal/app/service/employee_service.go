package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wintergreen/academia-backend/config"
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/app/repository"
	"github.com/wintergreen/academia-backend/internal/notification"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"gorm.io/gorm"
)

type CreateEmployeeInput struct {
	EstablishmentID string
	FullName        string
	Email           string
	City            *string
	Phone           *string
}

// UpdateEmployeeInput leaves nil fields untouched.
type UpdateEmployeeInput struct {
	FullName *string
	City     *string
	Phone    *string
	Status   *model.EmployeeStatus
}

// EmployeeWithLink is a freshly created employee and their registration link.
type EmployeeWithLink struct {
	*model.Employee
	RegistrationLink string `json:"registration_link"`
}

type TrainingInvite struct {
	Message     string `json:"message"`
	TrainingURL string `json:"training_url"`
}

type EmployeeService interface {
	Create(actor Actor, input CreateEmployeeInput) (*EmployeeWithLink, error)
	BulkCreate(actor Actor, inputs []CreateEmployeeInput) ([]EmployeeWithLink, error)
	Update(actor Actor, id string, input UpdateEmployeeInput) (*model.Employee, error)
	Archive(actor Actor, id string) (*model.Employee, error)
	Restore(actor Actor, id, establishmentID string) (*model.Employee, error)
	Transfer(actor Actor, id, establishmentID string, reason *string) (*model.Employee, error)
	Get(id string) (*model.Employee, error)
	List(filter repository.EmployeeFilter) ([]model.Employee, error)
	ListTransfers(id string) ([]model.EmployeeTransfer, error)
	SendTrainingInvite(actor Actor, id string) (*TrainingInvite, error)
}

type employeeService struct {
	db                *gorm.DB
	employeeRepo      repository.EmployeeRepository
	establishmentRepo repository.EstablishmentRepository
	transferRepo      repository.TransferRepository
	audit             AuditService
	notifier          notification.Notifier
	app               config.AppConfig
}

func NewEmployeeService(
	db *gorm.DB,
	employeeRepo repository.EmployeeRepository,
	establishmentRepo repository.EstablishmentRepository,
	transferRepo repository.TransferRepository,
	audit AuditService,
	notifier notification.Notifier,
	app config.AppConfig,
) EmployeeService {
	return &employeeService{
		db:                db,
		employeeRepo:      employeeRepo,
		establishmentRepo: establishmentRepo,
		transferRepo:      transferRepo,
		audit:             audit,
		notifier:          notifier,
		app:               app,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegistrationLink builds the public self-registration URL for token.
func RegistrationLink(publicURL, token string) string {
	return fmt.Sprintf("%s/register/%s", publicURL, token)
}

func (s *employeeService) withLink(employee *model.Employee) EmployeeWithLink {
	result := EmployeeWithLink{Employee: employee}
	if employee.RegistrationToken != nil {
		result.RegistrationLink = RegistrationLink(s.app.PublicURL, *employee.RegistrationToken)
	}
	return result
}

// requireActiveEstablishment separates a missing establishment from an archived one.
func requireActiveEstablishment(repo repository.EstablishmentRepository, id string) (*model.Establishment, error) {
	establishment, err := repo.FindByIDUnscoped(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEstablishmentNotFound
		}
		return nil, err
	}
	if establishment.IsArchived() {
		return nil, ErrEstablishmentArchived
	}
	return establishment, nil
}

func newPendingEmployee(input CreateEmployeeInput) (*model.Employee, error) {
	employee := &model.Employee{
		EstablishmentID: input.EstablishmentID,
		FullName:        strings.TrimSpace(input.FullName),
		Email:           normalizeEmail(input.Email),
		City:            input.City,
		Phone:           input.Phone,
	}
	if err := employee.ApplyStatus(model.StatusPendingRegistration); err != nil {
		return nil, fmt.Errorf("failed to generate registration token: %w", err)
	}
	return employee, nil
}

func (s *employeeService) Create(actor Actor, input CreateEmployeeInput) (*EmployeeWithLink, error) {
	employee, err := newPendingEmployee(input)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := requireActiveEstablishment(s.establishmentRepo.WithTx(tx), input.EstablishmentID); err != nil {
			return err
		}
		if err := s.employeeRepo.WithTx(tx).Create(employee); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrEmailAlreadyExists
			}
			return err
		}
		if err := s.transferRepo.WithTx(tx).Create(&model.EmployeeTransfer{
			EmployeeID:        employee.ID,
			ToEstablishmentID: employee.EstablishmentID,
			Reason:            model.StringPtr(model.TransferCreate),
			Actor:             actor.namePtr(),
		}); err != nil {
			return err
		}
		return s.audit.Record(tx, AuditEntry{
			Actor:      actor,
			Action:     "employees.create",
			EntityType: "employee",
			EntityID:   employee.ID,
			Metadata:   map[string]interface{}{"email": employee.Email},
		})
	})
	if err != nil {
		logger.Warn("Employee creation rejected", map[string]interface{}{
			"establishment_id": input.EstablishmentID,
			"error":            err.Error(),
		})
		return nil, err
	}

	logger.Info("Employee created", map[string]interface{}{
		"employee_id":      employee.ID,
		"establishment_id": employee.EstablishmentID,
	})
	result := s.withLink(employee)
	return &result, nil
}

func (s *employeeService) BulkCreate(actor Actor, inputs []CreateEmployeeInput) ([]EmployeeWithLink, error) {
	employees := make([]*model.Employee, 0, len(inputs))
	var ids []string
	seen := map[string]bool{}
	for _, input := range inputs {
		employee, err := newPendingEmployee(input)
		if err != nil {
			return nil, err
		}
		employees = append(employees, employee)
		if !seen[input.EstablishmentID] {
			seen[input.EstablishmentID] = true
			ids = append(ids, input.EstablishmentID)
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		active, err := s.establishmentRepo.WithTx(tx).FindActiveIDs(ids)
		if err != nil {
			return err
		}
		activeSet := make(map[string]bool, len(active))
		for _, id := range active {
			activeSet[id] = true
		}
		var missing []string
		for _, id := range ids {
			if !activeSet[id] {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return &ArchivedEstablishmentsError{Missing: missing}
		}

		employeeRepo := s.employeeRepo.WithTx(tx)
		transferRepo := s.transferRepo.WithTx(tx)
		for _, employee := range employees {
			if err := employeeRepo.Create(employee); err != nil {
				if repository.IsUniqueViolation(err) {
					return ErrDuplicateEmailInBatch
				}
				return err
			}
			if err := transferRepo.Create(&model.EmployeeTransfer{
				EmployeeID:        employee.ID,
				ToEstablishmentID: employee.EstablishmentID,
				Reason:            model.StringPtr(model.TransferBulkCreate),
				Actor:             actor.namePtr(),
			}); err != nil {
				return err
			}
		}

		return s.audit.Record(tx, AuditEntry{
			Actor:      actor,
			Action:     "employees.bulk_create",
			EntityType: "employee",
			Metadata:   map[string]interface{}{"count": len(employees)},
		})
	})
	if err != nil {
		logger.Warn("Bulk employee creation rolled back", map[string]interface{}{
			"count": len(inputs),
			"error": err.Error(),
		})
		return nil, err
	}

	created := make([]EmployeeWithLink, 0, len(employees))
	for _, employee := range employees {
		created = append(created, s.withLink(employee))
	}

	logger.Info("Employees created in bulk", map[string]interface{}{
		"count": len(created),
	})
	return created, nil
}

// loadMutable returns the employee locked for update, rejecting archived rows.
func loadMutable(repo repository.EmployeeRepository, id string) (*model.Employee, error) {
	employee, err := repo.FindByIDForUpdate(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	if employee.IsArchived() {
		return nil, ErrEmployeeArchived
	}
	return employee, nil
}

func (s *employeeService) Update(actor Actor, id string, input UpdateEmployeeInput) (*model.Employee, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, newValidationError("status", "unknown employee status")
	}
	if input.FullName != nil && len([]rune(strings.TrimSpace(*input.FullName))) < 2 {
		return nil, newValidationError("full_name", "must be at least 2 characters")
	}

	var updated *model.Employee
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.employeeRepo.WithTx(tx)
		employee, err := loadMutable(repo, id)
		if err != nil {
			return err
		}

		changes := map[string]interface{}{}
		if input.FullName != nil {
			employee.FullName = strings.TrimSpace(*input.FullName)
			changes["full_name"] = employee.FullName
		}
		if input.City != nil {
			employee.City = input.City
			changes["city"] = *input.City
		}
		if input.Phone != nil {
			employee.Phone = input.Phone
			changes["phone"] = *input.Phone
		}
		if input.Status != nil {
			if err := employee.ApplyStatus(*input.Status); err != nil {
				return err
			}
			changes["status"] = *input.Status
		}

		if err := repo.Update(employee); err != nil {
			return err
		}
		updated = employee
		return s.audit.Record(tx, AuditEntry{
			Actor:      actor,
			Action:     "employees.update",
			EntityType: "employee",
			EntityID:   id,
			Metadata:   changes,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Employee updated", map[string]interface{}{
		"employee_id": id,
		"status":      updated.Status,
	})
	return updated, nil
}

func (s *employeeService) Archive(actor Actor, id string) (*model.Employee, error) {
	var archived *model.Employee
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.employeeRepo.WithTx(tx)
		employee, err := repo.FindByIDForUpdate(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmployeeNotFound
			}
			return err
		}
		if employee.IsArchived() {
			return ErrEmployeeAlreadyArchived
		}
		if err := repo.Archive(employee); err != nil {
			return err
		}
		archived = employee
		return s.audit.Record(tx, AuditEntry{
			Actor:      actor,
			Action:     "employees.archive",
			EntityType: "employee",
			EntityID:   id,
			Metadata:   map[string]interface{}{"email": employee.Email},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Employee archived", map[string]interface{}{
		"employee_id": id,
	})
	return archived, nil
}

func (s *employeeService) Restore(actor Actor, id, establishmentID string) (*model.Employee, error) {
	var restored *model.Employee
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.employeeRepo.WithTx(tx)
		employee, err := repo.FindByIDForUpdate(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmployeeNotFound
			}
			return err
		}
		if !employee.IsArchived() {
			return ErrEmployeeAlreadyActive
		}

		previous := employee.EstablishmentID
		target := previous
		if establishmentID != "" {
			target = establishmentID
		}
		if _, err := requireActiveEstablishment(s.establishmentRepo.WithTx(tx), target); err != nil {
			return err
		}

		employee.EstablishmentID = target
		if err := employee.MarkRestored(); err != nil {
			return fmt.Errorf("failed to generate registration token: %w", err)
		}
		if err := repo.Restore(employee); err != nil {
			return err
		}

		if target != previous {
			if err := s.transferRepo.WithTx(tx).Create(&model.EmployeeTransfer{
				EmployeeID:          employee.ID,
				FromEstablishmentID: model.StringPtr(previous),
				ToEstablishmentID:   target,
				Reason:              model.StringPtr(model.TransferRestore),
				Actor:               actor.namePtr(),
			}); err != nil {
				return err
			}
		}

		restored = employee
		return s.audit.Record(tx, AuditEntry{
			Actor:      actor,
			Action:     "employees.restore",
			EntityType: "employee",
			EntityID:   id,
			Metadata: map[string]interface{}{
				"email":            employee.Email,
				"establishment_id": target,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Employee restored", map[string]interface{}{
		"employee_id":      id,
		"establishment_id": restored.EstablishmentID,
	})
	return restored, nil
}

func (s *employeeService) Transfer(actor Actor, id, establishmentID string, reason *string) (*model.Employee, error) {
	var transferred *model.Employee
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.employeeRepo.WithTx(tx)
		employee, err := loadMutable(repo, id)
		if err != nil {
			return err
		}
		if employee.EstablishmentID == establishmentID {
			return ErrSameEstablishment
		}
		if _, err := requireActiveEstablishment(s.establishmentRepo.WithTx(tx), establishmentID); err != nil {
			return err
		}

		previous := employee.EstablishmentID
		employee.EstablishmentID = establishmentID
		if err := repo.Update(employee); err != nil {
			return err
		}
		if err := s.transferRepo.WithTx(tx).Create(&model.EmployeeTransfer{
			EmployeeID:          employee.ID,
			FromEstablishmentID: model.StringPtr(previous),
			ToEstablishmentID:   establishmentID,
			Reason:              reason,
			Actor:               actor.namePtr(),
		}); err != nil {
			return err
		}

		transferred = employee
		return s.audit.Record(tx, AuditEntry{
			Actor:      actor,
			Action:     "employees.transfer",
			EntityType: "employee",
			EntityID:   id,
			Metadata: map[string]interface{}{
				"from_establishment_id": previous,
				"to_establishment_id":   establishmentID,
			},
		})
	})
	if err != nil {
		if errors.Is(err, ErrSameEstablishment) {
			logger.Warn("Transfer rejected: employee already in establishment", map[string]interface{}{
				"employee_id": id,
			})
		}
		return nil, err
	}

	logger.Info("Employee transferred", map[string]interface{}{
		"employee_id":      id,
		"establishment_id": establishmentID,
	})
	return transferred, nil
}

func (s *employeeService) Get(id string) (*model.Employee, error) {
	employee, err := s.employeeRepo.FindByIDUnscoped(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return employee, nil
}

func (s *employeeService) List(filter repository.EmployeeFilter) ([]model.Employee, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, newValidationError("status", "unknown employee status")
	}
	return s.employeeRepo.List(filter)
}

func (s *employeeService) ListTransfers(id string) ([]model.EmployeeTransfer, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	return s.transferRepo.ListByEmployee(id)
}

func (s *employeeService) SendTrainingInvite(actor Actor, id string) (*TrainingInvite, error) {
	var employee *model.Employee
	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.employeeRepo.WithTx(tx)
		found, err := loadMutable(repo, id)
		if err != nil {
			return err
		}
		if err := found.ApplyStatus(model.StatusTrainingPending); err != nil {
			return err
		}
		if err := repo.Update(found); err != nil {
			return err
		}
		employee = found
		return s.audit.Record(tx, AuditEntry{
			Actor:      actor,
			Action:     "employees.send_training",
			EntityType: "employee",
			EntityID:   id,
			Metadata:   map[string]interface{}{"email": found.Email},
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(notification.Event{
		Kind:        notification.TrainingInvited,
		Email:       employee.Email,
		FullName:    employee.FullName,
		TrainingURL: s.app.TrainingURL,
	})

	logger.Info("Training invitation queued", map[string]interface{}{
		"employee_id": id,
	})
	return &TrainingInvite{
		Message:     "Training invitation queued",
		TrainingURL: s.app.TrainingURL,
	}, nil
}
