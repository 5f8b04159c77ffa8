package types

import (
	"time"

	"github.com/google/uuid"
)

type ModuleProgress struct {
	ID           uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EnrollmentID uuid.UUID     `gorm:"type:uuid;not null;index:idx_enrollment_module,unique" json:"enrollment_id"`
	Enrollment   *Enrollment   `gorm:"constraint:OnDelete:CASCADE;foreignKey:EnrollmentID;references:ID" json:"enrollment,omitempty"`
	ModuleID     uuid.UUID     `gorm:"type:uuid;not null;index:idx_enrollment_module,unique" json:"module_id"`
	Module       *CourseModule `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	CompletedAt  time.Time     `gorm:"column:completed_at;not null" json:"completed_at"`
	CreatedAt    time.Time     `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null;default:now()" json:"updated_at"`
}

func (ModuleProgress) TableName() string { return "module_progress" }
