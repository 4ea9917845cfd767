package model

import (
	"time"

	"gorm.io/gorm"
)

type AuditLog struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	Actor      string    `gorm:"not null" json:"actor"`
	ActorRole  string    `gorm:"type:varchar(20);not null" json:"actor_role"`
	Action     string    `gorm:"not null;index" json:"action"`
	EntityType string    `gorm:"not null" json:"entity_type"`
	EntityID   *string   `json:"entity_id"`
	Metadata   JSONMap   `gorm:"type:text" json:"metadata"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	newID(&a.ID)
	return nil
}
