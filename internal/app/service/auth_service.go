package service

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/wintergreen/academia-backend/config"
	"github.com/wintergreen/academia-backend/internal/app/model"
	"github.com/wintergreen/academia-backend/internal/app/repository"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"github.com/wintergreen/academia-backend/pkg/util"
	"gorm.io/gorm"
)

const minAdminPasswordLength = 8

// Session is the identity carried by a valid session token.
type Session struct {
	UserID string
	Email  string
	Role   model.UserRole
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == model.RoleAdmin
}

type AuthResult struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// EmployeeProfile is the employee record as shown to its owner.
type EmployeeProfile struct {
	ID                string               `json:"id"`
	FullName          string               `json:"full_name"`
	Email             string               `json:"email"`
	City              *string              `json:"city"`
	Phone             *string              `json:"phone"`
	IINLast4          *string              `json:"iin_last4"`
	Status            model.EmployeeStatus `json:"status"`
	EstablishmentID   string               `json:"establishment_id"`
	EstablishmentName string               `json:"establishment_name"`
	RegisteredAt      *time.Time           `json:"registered_at"`
}

type Account struct {
	ID           string                  `json:"id"`
	Email        string                  `json:"email"`
	Role         model.UserRole          `json:"role"`
	Employee     *EmployeeProfile        `json:"employee,omitempty"`
	Certificates []model.CertificateView `json:"certificates,omitempty"`
}

type AuthService interface {
	BootstrapAdmin(email, password, key string) (*AuthResult, error)
	Login(email, password string) (*AuthResult, error)
	ResolveSession(token string) *Session
	GetAccount(userID string) (*Account, error)
}

type authService struct {
	db              *gorm.DB
	userRepo        repository.UserRepository
	employeeRepo    repository.EmployeeRepository
	certificateRepo repository.CertificateRepository
	audit           AuditService
	jwt             config.JWTConfig
	bootstrapKey    string
}

func NewAuthService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	employeeRepo repository.EmployeeRepository,
	certificateRepo repository.CertificateRepository,
	audit AuditService,
	jwt config.JWTConfig,
	bootstrapKey string,
) AuthService {
	return &authService{
		db:              db,
		userRepo:        userRepo,
		employeeRepo:    employeeRepo,
		certificateRepo: certificateRepo,
		audit:           audit,
		jwt:             jwt,
		bootstrapKey:    bootstrapKey,
	}
}

func (s *authService) issue(user *model.User) (*AuthResult, error) {
	token, expiresAt, err := util.GenerateSessionToken(user.ID, user.Email, string(user.Role), s.jwt.Secret, s.jwt.SessionExpiry)
	if err != nil {
		logger.Error("Failed to generate session token", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// BootstrapAdmin creates the first admin account. It refuses once any admin exists.
func (s *authService) BootstrapAdmin(email, password, key string) (*AuthResult, error) {
	if s.bootstrapKey == "" {
		return nil, ErrBootstrapNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.bootstrapKey)) != 1 {
		logger.Warn("Admin bootstrap rejected: invalid key")
		return nil, ErrInvalidBootstrapKey
	}

	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, newValidationError("email", "must be a valid email")
	}
	if len(password) < minAdminPasswordLength {
		return nil, newValidationError("password", "must be at least 8 characters")
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{Email: email, PasswordHash: hash, Role: model.RoleAdmin}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.userRepo.WithTx(tx)
		exists, err := repo.AdminExists()
		if err != nil {
			return err
		}
		if exists {
			return ErrAdminAlreadyExists
		}
		if err := repo.Create(user); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrAdminAlreadyExists
			}
			return err
		}
		return s.audit.Record(tx, AuditEntry{
			Actor:      Actor{Name: user.Email, Role: model.RoleAdmin},
			Action:     "auth.bootstrap",
			EntityType: "user",
			EntityID:   user.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Admin bootstrapped", map[string]interface{}{
		"user_id": user.ID,
	})
	return s.issue(user)
}

func (s *authService) Login(email, password string) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.BurnPasswordCheck(password)
			logger.Warn("Login failed")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed")
		return nil, ErrInvalidCredentials
	}

	if user.Role == model.RoleEmployee {
		if _, err := s.activeEmployee(user); err != nil {
			logger.Warn("Login rejected: employee inactive", map[string]interface{}{
				"user_id": user.ID,
			})
			return nil, err
		}
	}

	logger.Info("User logged in", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return s.issue(user)
}

// ResolveSession yields nil for a missing, malformed or expired token.
func (s *authService) ResolveSession(token string) *Session {
	if token == "" {
		return nil
	}
	claims, err := util.ValidateSessionToken(token, s.jwt.Secret)
	if err != nil {
		return nil
	}
	return &Session{
		UserID: claims.UserID(),
		Email:  claims.Email,
		Role:   model.UserRole(claims.Role),
	}
}

// activeEmployee returns the employee linked to user, or ErrEmployeeInactive.
func (s *authService) activeEmployee(user *model.User) (*model.Employee, error) {
	if user.EmployeeID == nil {
		return nil, ErrEmployeeInactive
	}
	employee, err := s.employeeRepo.FindByID(*user.EmployeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeInactive
		}
		return nil, err
	}
	return employee, nil
}

func (s *authService) GetAccount(userID string) (*Account, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	account := &Account{ID: user.ID, Email: user.Email, Role: user.Role}
	if user.Role != model.RoleEmployee {
		return account, nil
	}

	employee, err := s.activeEmployee(user)
	if err != nil {
		return nil, err
	}
	profile := &EmployeeProfile{
		ID:              employee.ID,
		FullName:        employee.FullName,
		Email:           employee.Email,
		City:            employee.City,
		Phone:           employee.Phone,
		IINLast4:        employee.IINLast4,
		Status:          employee.Status,
		EstablishmentID: employee.EstablishmentID,
		RegisteredAt:    employee.RegisteredAt,
	}
	if employee.Establishment != nil {
		profile.EstablishmentName = employee.Establishment.Name
	}
	account.Employee = profile

	certificates, err := s.certificateRepo.List(repository.CertificateFilter{EmployeeID: employee.ID})
	if err != nil {
		return nil, err
	}
	now := time.Now()
	account.Certificates = make([]model.CertificateView, 0, len(certificates))
	for i := range certificates {
		account.Certificates = append(account.Certificates, model.NewCertificateView(&certificates[i], now))
	}
	return account, nil
}
