package model

import (
	"time"

	"gorm.io/gorm"
)

type RequestStatus string

const (
	RequestNew        RequestStatus = "new"
	RequestInProgress RequestStatus = "in_progress"
	RequestClosed     RequestStatus = "closed"
)

func (s RequestStatus) Valid() bool {
	return s == RequestNew || s == RequestInProgress || s == RequestClosed
}

// Request is an inbound lead submitted from the public site.
type Request struct {
	ID                string        `gorm:"type:uuid;primaryKey" json:"id"`
	FullName          string        `gorm:"not null" json:"full_name"`
	Email             *string       `json:"email"`
	Phone             *string       `json:"phone"`
	City              *string       `json:"city"`
	EstablishmentName *string       `json:"establishment_name"`
	Message           *string       `gorm:"type:text" json:"message"`
	Status            RequestStatus `gorm:"type:varchar(16);not null;default:'new';index" json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

func (Request) TableName() string {
	return "requests"
}

func (r *Request) BeforeCreate(tx *gorm.DB) error {
	newID(&r.ID)
	if r.Status == "" {
		r.Status = RequestNew
	}
	return nil
}
