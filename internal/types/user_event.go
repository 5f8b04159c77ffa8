package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User event kinds feeding the recommendation scorer.
const (
	UserEventCourseViewed    = "course_viewed"
	UserEventCourseEnrolled  = "course_enrolled"
	UserEventModuleCompleted = "module_completed"
	UserEventCourseCompleted = "course_completed"
	UserEventArticleViewed   = "article_viewed"
	UserEventSearched        = "searched"
)

type UserEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CourseID  *uuid.UUID     `gorm:"type:uuid;index" json:"course_id,omitempty"`
	Course    *Course        `gorm:"constraint:OnDelete:SET NULL;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	ArticleID *uuid.UUID     `gorm:"type:uuid;index" json:"article_id,omitempty"`
	Article   *Article       `gorm:"constraint:OnDelete:SET NULL;foreignKey:ArticleID;references:ID" json:"article,omitempty"`
	Type      string         `gorm:"column:type;not null;index" json:"type"`
	Data      datatypes.JSON `gorm:"type:jsonb;column:data" json:"data"`
	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (UserEvent) TableName() string { return "user_event" }
