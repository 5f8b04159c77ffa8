package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Course struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID       *uuid.UUID     `gorm:"type:uuid;index" json:"owner_id,omitempty"`
	Owner         *User          `gorm:"constraint:OnDelete:SET NULL;foreignKey:OwnerID;references:ID" json:"owner,omitempty"`
	TitleEn       string         `gorm:"column:title_en;not null" json:"title_en"`
	TitleEs       string         `gorm:"column:title_es" json:"title_es"`
	DescriptionEn string         `gorm:"column:description_en" json:"description_en"`
	DescriptionEs string         `gorm:"column:description_es" json:"description_es"`
	Topic         string         `gorm:"column:topic;not null;index" json:"topic"`
	Difficulty    string         `gorm:"column:difficulty;not null;default:'beginner'" json:"difficulty"`
	Duration      string         `gorm:"column:duration;not null;default:'medium'" json:"duration"`
	Generated     bool           `gorm:"column:generated;not null;default:false" json:"generated"`
	CoverImageURL string         `gorm:"column:cover_image_url" json:"cover_image_url"`
	Metadata      datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

// Title returns the locale-appropriate title, falling back to English.
func (c *Course) Title(locale string) string {
	if locale == "es" && c.TitleEs != "" {
		return c.TitleEs
	}
	return c.TitleEn
}

// Description returns the locale-appropriate description, falling back to English.
func (c *Course) Description(locale string) string {
	if locale == "es" && c.DescriptionEs != "" {
		return c.DescriptionEs
	}
	return c.DescriptionEn
}
