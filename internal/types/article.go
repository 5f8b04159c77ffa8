package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Article struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Source      string         `gorm:"column:source;not null;index" json:"source"`
	URL         string         `gorm:"uniqueIndex;not null;column:url" json:"url"`
	TitleEn     string         `gorm:"column:title_en;not null" json:"title_en"`
	TitleEs     string         `gorm:"column:title_es" json:"title_es"`
	SummaryEn   string         `gorm:"column:summary_en;type:text" json:"summary_en"`
	SummaryEs   string         `gorm:"column:summary_es;type:text" json:"summary_es"`
	Category    string         `gorm:"column:category;index" json:"category"`
	PublishedAt time.Time      `gorm:"column:published_at;index" json:"published_at"`
	FetchedAt   time.Time      `gorm:"column:fetched_at;not null" json:"fetched_at"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Article) TableName() string { return "article" }
