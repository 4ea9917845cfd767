package model

import (
	"time"

	"gorm.io/gorm"
)

type CertificateStatus string

const (
	CertificateActive  CertificateStatus = "active"
	CertificateRevoked CertificateStatus = "revoked"
	// CertificateExpired is derived from valid_until and never stored.
	CertificateExpired CertificateStatus = "expired"
)

// History reasons written by the issuer.
const (
	ReasonManualIssue = "manual_issue"
	ReasonImportIssue = "getcourse_import"
	// ReasonExpiredOnRenewal revokes an expired certificate replaced by a new one.
	ReasonExpiredOnRenewal = "expired_on_renewal"
)

type Certificate struct {
	ID                string            `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeID        string            `gorm:"type:uuid;not null;index" json:"employee_id"`
	EstablishmentID   string            `gorm:"type:uuid;not null;index" json:"establishment_id"` // snapshot at issue time
	CertificateNumber string            `gorm:"uniqueIndex;not null" json:"certificate_number"`
	Status            CertificateStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	IssuedAt          time.Time         `gorm:"not null" json:"issued_at"`
	ValidUntil        time.Time         `gorm:"not null;index" json:"valid_until"`
	RevokedAt         *time.Time        `json:"revoked_at"`
	RevokedReason     *string           `json:"revoked_reason"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`

	Employee      *Employee      `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	Establishment *Establishment `gorm:"foreignKey:EstablishmentID" json:"establishment,omitempty"`
}

func (Certificate) TableName() string {
	return "certificates"
}

func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	newID(&c.ID)
	return nil
}

// DisplayStatus folds expiry into the stored status.
func (c *Certificate) DisplayStatus(now time.Time) CertificateStatus {
	if c.Status == CertificateActive && !now.Before(c.ValidUntil) {
		return CertificateExpired
	}
	return c.Status
}

// CertificateView is a certificate as presented to clients.
type CertificateView struct {
	*Certificate
	DisplayStatus CertificateStatus `json:"display_status"`
}

func NewCertificateView(c *Certificate, now time.Time) CertificateView {
	return CertificateView{Certificate: c, DisplayStatus: c.DisplayStatus(now)}
}

// CertificateHistory is append-only; one row per issue and per revoke.
type CertificateHistory struct {
	ID            string            `gorm:"type:uuid;primaryKey" json:"id"`
	CertificateID string            `gorm:"type:uuid;not null;index" json:"certificate_id"`
	Status        CertificateStatus `gorm:"type:varchar(16);not null" json:"status"`
	Reason        *string           `json:"reason"`
	Actor         *string           `json:"actor"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (CertificateHistory) TableName() string {
	return "certificate_history"
}

func (h *CertificateHistory) BeforeCreate(tx *gorm.DB) error {
	newID(&h.ID)
	return nil
}
