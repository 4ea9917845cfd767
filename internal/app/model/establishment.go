package model

import (
	"time"

	"gorm.io/gorm"
)

type Establishment struct {
	ID                  string         `gorm:"type:uuid;primaryKey" json:"id"`
	Name                string         `gorm:"not null" json:"name"`
	City                *string        `json:"city"`
	Representative      *string        `json:"representative"`       // contact person
	RepresentativePhone *string        `json:"representative_phone"` // contact phone
	Address             *string        `gorm:"type:text" json:"address"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"deleted_at"` // archive marker
}

func (Establishment) TableName() string {
	return "establishments"
}

func (e *Establishment) BeforeCreate(tx *gorm.DB) error {
	newID(&e.ID)
	return nil
}

func (e *Establishment) IsArchived() bool {
	return e.DeletedAt.Valid
}

// EstablishmentSummary is an establishment with its derived counters.
type EstablishmentSummary struct {
	Establishment
	EmployeesCount    int64 `json:"employees_count"`
	CertificatesCount int64 `json:"certificates_count"`
}
