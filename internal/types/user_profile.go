package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type UserProfile struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User             *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Bio              string         `gorm:"column:bio" json:"bio"`
	Locale           string         `gorm:"column:locale;not null;default:'en'" json:"locale"`
	TotalXP          int            `gorm:"column:total_xp;not null;default:0" json:"total_xp"`
	StreakDays       int            `gorm:"column:streak_days;not null;default:0" json:"streak_days"`
	LastActivityDate *time.Time     `gorm:"column:last_activity_date" json:"last_activity_date,omitempty"`
	CoursesCompleted int            `gorm:"column:courses_completed;not null;default:0" json:"courses_completed"`
	ReviewsWritten   int            `gorm:"column:reviews_written;not null;default:0" json:"reviews_written"`
	Metadata         datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserProfile) TableName() string { return "user_profile" }
