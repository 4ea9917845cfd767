package model

import (
	"time"

	"gorm.io/gorm"
)

type TrainingStatus string

const (
	TrainingPassed  TrainingStatus = "passed"
	TrainingFailed  TrainingStatus = "failed"
	TrainingPending TrainingStatus = "pending"
)

// TrainingResult records every matched import row, whatever happened next.
type TrainingResult struct {
	ID         string         `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeID string         `gorm:"type:uuid;not null;index" json:"employee_id"`
	Status     TrainingStatus `gorm:"type:varchar(16);not null" json:"status"`
	Score      *float64       `json:"score"`
	SourceFile *string        `json:"source_file"`
	RawPayload JSONMap        `gorm:"type:text" json:"raw_payload"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (TrainingResult) TableName() string {
	return "training_results"
}

func (r *TrainingResult) BeforeCreate(tx *gorm.DB) error {
	newID(&r.ID)
	return nil
}
