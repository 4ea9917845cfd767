package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/app/repository"
	"github.com/wintergreen/academia-backend/internal/metrics"
	"github.com/wintergreen/academia-backend/internal/notification"
	"github.com/wintergreen/academia-backend/pkg/crypto"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"github.com/wintergreen/academia-backend/pkg/util"
	"gorm.io/gorm"
)

const (
	ModeRegistered    = "registered"
	ModePasswordReset = "password_reset"
)

// Encryptor seals the national ID before it reaches the store.
type Encryptor interface {
	Encrypt(value string) (crypto.Sealed, error)
}

type RegistrationPayload struct {
	FullName     string  `json:"full_name"`
	City         string  `json:"city"`
	Phone        string  `json:"phone"`
	IIN          *string `json:"iin"`
	Password     string  `json:"password"`
	AcceptPolicy bool    `json:"accept_policy"`
	AcceptOffer  bool    `json:"accept_offer"`
	AcceptAge    bool    `json:"accept_age"`
}

type registrationForm struct {
	FullName     string `json:"full_name" validate:"required,min=2"`
	City         string `json:"city" validate:"required,min=2"`
	Phone        string `json:"phone" validate:"required,min=6"`
	Password     string `json:"password" validate:"required,min=8"`
	AcceptPolicy bool   `json:"accept_policy" validate:"eq=true"`
	AcceptOffer  bool   `json:"accept_offer" validate:"eq=true"`
	AcceptAge    bool   `json:"accept_age" validate:"eq=true"`
}

type passwordResetForm struct {
	Password     string `json:"password" validate:"required,min=8"`
	AcceptPolicy bool   `json:"accept_policy" validate:"eq=true"`
	AcceptOffer  bool   `json:"accept_offer" validate:"eq=true"`
	AcceptAge    bool   `json:"accept_age" validate:"eq=true"`
}

// RegistrationInfo is what the public registration page may show.
type RegistrationInfo struct {
	EmployeeID           string               `json:"id"`
	Email                string               `json:"email"`
	FullName             string               `json:"full_name"`
	Status               model.EmployeeStatus `json:"status"`
	Mode                 string               `json:"mode"`
	EmployeeCity         *string              `json:"employee_city"`
	EmployeePhone        *string              `json:"employee_phone"`
	EstablishmentName    string               `json:"establishment_name"`
	EstablishmentCity    *string              `json:"establishment_city"`
	EstablishmentAddress *string              `json:"establishment_address"`
}

type RegistrationOutcome struct {
	Message    string `json:"message"`
	Mode       string `json:"mode"`
	EmployeeID string `json:"employee_id"`
}

type RegistrationService interface {
	Lookup(token string) (*RegistrationInfo, error)
	Complete(token string, payload RegistrationPayload) (*RegistrationOutcome, error)
}

type registrationService struct {
	db           *gorm.DB
	employeeRepo repository.EmployeeRepository
	userRepo     repository.UserRepository
	audit        AuditService
	encryptor    Encryptor
	notifier     notification.Notifier
	metrics      *metrics.Metrics
	validate     *validator.Validate
}

func NewRegistrationService(
	db *gorm.DB,
	employeeRepo repository.EmployeeRepository,
	userRepo repository.UserRepository,
	audit AuditService,
	encryptor Encryptor,
	notifier notification.Notifier,
	m *metrics.Metrics,
) RegistrationService {
	return &registrationService{
		db:           db,
		employeeRepo: employeeRepo,
		userRepo:     userRepo,
		audit:        audit,
		encryptor:    encryptor,
		notifier:     notifier,
		metrics:      m,
		validate:     newFormValidator(),
	}
}

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateForm maps validator failures to a field -> problem map.
func validateForm(v *validator.Validate, form interface{}) error {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "is required"
		case "min":
			fields[fe.Field()] = fmt.Sprintf("must be at least %s characters", fe.Param())
		case "eq":
			fields[fe.Field()] = "must be accepted"
		default:
			fields[fe.Field()] = "is invalid"
		}
	}
	return &ValidationError{Fields: fields}
}

func modeFor(status model.EmployeeStatus) string {
	if status == model.StatusResetPassword {
		return ModePasswordReset
	}
	return ModeRegistered
}

func (s *registrationService) Lookup(token string) (*RegistrationInfo, error) {
	employee, err := s.employeeRepo.FindByToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}

	info := &RegistrationInfo{
		EmployeeID:    employee.ID,
		Email:         employee.Email,
		FullName:      employee.FullName,
		Status:        employee.Status,
		Mode:          modeFor(employee.Status),
		EmployeeCity:  employee.City,
		EmployeePhone: employee.Phone,
	}
	if employee.Establishment != nil {
		info.EstablishmentName = employee.Establishment.Name
		info.EstablishmentCity = employee.Establishment.City
		info.EstablishmentAddress = employee.Establishment.Address
	}
	return info, nil
}

// Complete consumes the token. The employee row stays locked until commit, so a
// second submission of the same token sees it already consumed.
func (s *registrationService) Complete(token string, payload RegistrationPayload) (*RegistrationOutcome, error) {
	var (
		outcome  *RegistrationOutcome
		employee *model.Employee
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		employeeRepo := s.employeeRepo.WithTx(tx)
		userRepo := s.userRepo.WithTx(tx)

		found, err := employeeRepo.FindByTokenForUpdate(token)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationNotFound
			}
			return err
		}
		employee = found

		existing, err := userRepo.FindByEmail(employee.Email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if employee.Status == model.StatusResetPassword && existing != nil {
			outcome, err = s.resetPassword(tx, employeeRepo, userRepo, employee, existing, payload)
			return err
		}
		outcome, err = s.register(tx, employeeRepo, userRepo, employee, existing, payload)
		return err
	})
	if err != nil {
		var validationErr *ValidationError
		switch {
		case errors.As(err, &validationErr), errors.Is(err, ErrUserExists), errors.Is(err, ErrRegistrationNotFound):
			logger.Warn("Registration rejected", map[string]interface{}{
				"error": err.Error(),
			})
		default:
			logger.Error("Registration failed", err)
		}
		return nil, err
	}

	s.metrics.RegistrationCompleted(outcome.Mode)
	if outcome.Mode == ModeRegistered {
		s.notifier.Notify(notification.Event{
			Kind:     notification.RegistrationCompleted,
			Email:    employee.Email,
			FullName: employee.FullName,
		})
	}

	logger.Info("Registration completed", map[string]interface{}{
		"employee_id": employee.ID,
		"mode":        outcome.Mode,
	})
	return outcome, nil
}

// resetPassword touches only the credential and the status/token pair.
func (s *registrationService) resetPassword(
	tx *gorm.DB,
	employeeRepo repository.EmployeeRepository,
	userRepo repository.UserRepository,
	employee *model.Employee,
	user *model.User,
	payload RegistrationPayload,
) (*RegistrationOutcome, error) {
	form := passwordResetForm{
		Password:     payload.Password,
		AcceptPolicy: payload.AcceptPolicy,
		AcceptOffer:  payload.AcceptOffer,
		AcceptAge:    payload.AcceptAge,
	}
	if err := validateForm(s.validate, form); err != nil {
		return nil, err
	}

	hash, err := util.HashPassword(form.Password)
	if err != nil {
		return nil, err
	}
	if err := userRepo.UpdatePassword(user.ID, hash); err != nil {
		return nil, err
	}
	if err := employee.ApplyStatus(model.StatusRegistered); err != nil {
		return nil, err
	}
	if err := employeeRepo.Update(employee); err != nil {
		return nil, err
	}

	if err := s.audit.Record(tx, AuditEntry{
		Actor:      Actor{Name: employee.Email, Role: model.RoleEmployee},
		Action:     "employees.reset_password",
		EntityType: "employee",
		EntityID:   employee.ID,
		Metadata:   map[string]interface{}{"email": employee.Email},
	}); err != nil {
		return nil, err
	}

	return &RegistrationOutcome{
		Message:    "Password reset completed",
		Mode:       ModePasswordReset,
		EmployeeID: employee.ID,
	}, nil
}

func (s *registrationService) register(
	tx *gorm.DB,
	employeeRepo repository.EmployeeRepository,
	userRepo repository.UserRepository,
	employee *model.Employee,
	existing *model.User,
	payload RegistrationPayload,
) (*RegistrationOutcome, error) {
	form := registrationForm{
		FullName:     strings.TrimSpace(payload.FullName),
		City:         strings.TrimSpace(payload.City),
		Phone:        strings.TrimSpace(payload.Phone),
		Password:     payload.Password,
		AcceptPolicy: payload.AcceptPolicy,
		AcceptOffer:  payload.AcceptOffer,
		AcceptAge:    payload.AcceptAge,
	}
	if err := validateForm(s.validate, form); err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	var iin string
	if payload.IIN != nil {
		iin = *payload.IIN
	}
	sealed, err := s.encryptor.Encrypt(iin)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt national id: %w", err)
	}

	hash, err := util.HashPassword(form.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	employee.FullName = form.FullName
	employee.City = &form.City
	employee.Phone = &form.Phone
	employee.IINEncrypted = sealed.Ciphertext
	employee.IINLast4 = sealed.Last4
	employee.RegisteredAt = &now
	if err := employee.ApplyStatus(model.StatusRegistered); err != nil {
		return nil, err
	}
	if err := employeeRepo.Update(employee); err != nil {
		return nil, err
	}

	employeeID := employee.ID
	if err := userRepo.Create(&model.User{
		Email:        employee.Email,
		PasswordHash: hash,
		Role:         model.RoleEmployee,
		EmployeeID:   &employeeID,
	}); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	if err := s.audit.Record(tx, AuditEntry{
		Actor:      Actor{Name: employee.Email, Role: model.RoleEmployee},
		Action:     "employees.register",
		EntityType: "employee",
		EntityID:   employee.ID,
		Metadata:   map[string]interface{}{"email": employee.Email},
	}); err != nil {
		return nil, err
	}

	return &RegistrationOutcome{
		Message:    "Registration completed",
		Mode:       ModeRegistered,
		EmployeeID: employee.ID,
	}, nil
}
