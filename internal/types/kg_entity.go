package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Knowledge-graph entity kinds.
const (
	KGTypePerson       = "person"
	KGTypeOrganization = "organization"
	KGTypeModel        = "model"
	KGTypeConcept      = "concept"
)

type KGEntity struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name          string         `gorm:"column:name;not null;index" json:"name"`
	Type          string         `gorm:"column:type;not null;index" json:"type"`
	DescriptionEn string         `gorm:"column:description_en;type:text" json:"description_en"`
	DescriptionEs string         `gorm:"column:description_es;type:text" json:"description_es"`
	Metadata      datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (KGEntity) TableName() string { return "kg_entity" }

type KGRelation struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FromID    uuid.UUID `gorm:"type:uuid;not null;index" json:"from_id"`
	From      *KGEntity `gorm:"constraint:OnDelete:CASCADE;foreignKey:FromID;references:ID" json:"from,omitempty"`
	ToID      uuid.UUID `gorm:"type:uuid;not null;index" json:"to_id"`
	To        *KGEntity `gorm:"constraint:OnDelete:CASCADE;foreignKey:ToID;references:ID" json:"to,omitempty"`
	Label     string    `gorm:"column:label;not null" json:"label"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (KGRelation) TableName() string { return "kg_relation" }
