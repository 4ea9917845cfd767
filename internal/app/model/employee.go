package model

import (
	"time"

	"github.com/wintergreen/academia-backend/pkg/util"
	"gorm.io/gorm"
)

type EmployeeStatus string

const (
	StatusPendingRegistration EmployeeStatus = "pending_registration"
	StatusResetPassword       EmployeeStatus = "reset_password"
	StatusRegistered          EmployeeStatus = "registered"
	StatusTrainingPending     EmployeeStatus = "training_pending"
	StatusTrainingPassed      EmployeeStatus = "training_passed"
	StatusTrainingFailed      EmployeeStatus = "training_failed"
	StatusCertified           EmployeeStatus = "certified"
	StatusInactive            EmployeeStatus = "inactive"
)

var employeeStatuses = map[EmployeeStatus]bool{
	StatusPendingRegistration: true,
	StatusResetPassword:       true,
	StatusRegistered:          true,
	StatusTrainingPending:     true,
	StatusTrainingPassed:      true,
	StatusTrainingFailed:      true,
	StatusCertified:           true,
	StatusInactive:            true,
}

func (s EmployeeStatus) Valid() bool {
	return employeeStatuses[s]
}

// NeedsToken reports whether an employee in this status holds a registration link.
func (s EmployeeStatus) NeedsToken() bool {
	return s == StatusPendingRegistration || s == StatusResetPassword
}

type Employee struct {
	ID                string         `gorm:"type:uuid;primaryKey" json:"id"`
	EstablishmentID   string         `gorm:"type:uuid;not null;index" json:"establishment_id"`
	FullName          string         `gorm:"not null" json:"full_name"`
	Email             string         `gorm:"uniqueIndex;not null" json:"email"` // unique over archived rows too
	City              *string        `json:"city"`
	Phone             *string        `json:"phone"`
	IINEncrypted      *string        `gorm:"column:iin_encrypted;type:text" json:"-"`
	IINLast4          *string        `gorm:"column:iin_last4;type:varchar(4)" json:"iin_last4"`
	Status            EmployeeStatus `gorm:"type:varchar(32);not null;index" json:"status"`
	RegistrationToken *string        `gorm:"uniqueIndex" json:"registration_token"`
	RegisteredAt      *time.Time     `json:"registered_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at"`

	Establishment *Establishment `gorm:"foreignKey:EstablishmentID" json:"establishment,omitempty"`
}

func (Employee) TableName() string {
	return "employees"
}

func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	newID(&e.ID)
	return nil
}

func (e *Employee) IsArchived() bool {
	return e.DeletedAt.Valid
}

// ApplyStatus moves the employee to next and keeps the registration token in
// step: a token exists exactly while the status needs one. Entering
// reset_password mints a fresh token unless the employee is already in reset
// with a live token.
func (e *Employee) ApplyStatus(next EmployeeStatus) error {
	switch {
	case next == StatusResetPassword:
		if e.Status != StatusResetPassword || e.RegistrationToken == nil {
			if err := e.mintToken(); err != nil {
				return err
			}
		}
	case next.NeedsToken():
		if e.RegistrationToken == nil {
			if err := e.mintToken(); err != nil {
				return err
			}
		}
	default:
		e.RegistrationToken = nil
	}
	e.Status = next
	return nil
}

// MarkArchived invalidates any outstanding registration link.
func (e *Employee) MarkArchived() {
	e.RegistrationToken = nil
}

// MarkRestored re-issues a link when the restored status expects one.
func (e *Employee) MarkRestored() error {
	if e.Status.NeedsToken() && e.RegistrationToken == nil {
		return e.mintToken()
	}
	return nil
}

func (e *Employee) mintToken() error {
	token, err := util.GenerateRegistrationToken()
	if err != nil {
		return err
	}
	e.RegistrationToken = &token
	return nil
}

// Transfer reasons recorded by the engine itself.
const (
	TransferCreate     = "create"
	TransferBulkCreate = "bulk_create"
	TransferRestore    = "restore"
)

type EmployeeTransfer struct {
	ID                  string    `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeID          string    `gorm:"type:uuid;not null;index" json:"employee_id"`
	FromEstablishmentID *string   `gorm:"type:uuid" json:"from_establishment_id"` // nil on creation
	ToEstablishmentID   string    `gorm:"type:uuid;not null" json:"to_establishment_id"`
	Reason              *string   `json:"reason"`
	Actor               *string   `json:"actor"`
	CreatedAt           time.Time `json:"created_at"`
}

func (EmployeeTransfer) TableName() string {
	return "employee_transfers"
}

func (t *EmployeeTransfer) BeforeCreate(tx *gorm.DB) error {
	newID(&t.ID)
	return nil
}
