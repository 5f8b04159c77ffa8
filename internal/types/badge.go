package types

import (
	"time"

	"github.com/google/uuid"
)

// Badge trigger kinds. Threshold semantics depend on the kind: total XP,
// completed course count, streak day count, or written review count.
const (
	BadgeTriggerXPTotal          = "xp_total"
	BadgeTriggerCoursesCompleted = "courses_completed"
	BadgeTriggerStreakDays       = "streak_days"
	BadgeTriggerReviewsWritten   = "reviews_written"
)

type Badge struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Slug          string    `gorm:"uniqueIndex;not null;column:slug" json:"slug"`
	NameEn        string    `gorm:"column:name_en;not null" json:"name_en"`
	NameEs        string    `gorm:"column:name_es" json:"name_es"`
	DescriptionEn string    `gorm:"column:description_en" json:"description_en"`
	DescriptionEs string    `gorm:"column:description_es" json:"description_es"`
	TriggerKind   string    `gorm:"column:trigger_kind;not null" json:"trigger_kind"`
	Threshold     int       `gorm:"column:threshold;not null" json:"threshold"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Badge) TableName() string { return "badge" }

type UserBadge struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_user_badge,unique" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	BadgeID   uuid.UUID `gorm:"type:uuid;not null;index:idx_user_badge,unique" json:"badge_id"`
	Badge     *Badge    `gorm:"constraint:OnDelete:CASCADE;foreignKey:BadgeID;references:ID" json:"badge,omitempty"`
	AwardedAt time.Time `gorm:"column:awarded_at;not null" json:"awarded_at"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (UserBadge) TableName() string { return "user_badge" }
