package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type XPLog struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Amount      int            `gorm:"column:amount;not null" json:"amount"`
	Action      string         `gorm:"column:action;not null;index" json:"action"`
	ReferenceID *uuid.UUID     `gorm:"type:uuid;column:reference_id" json:"reference_id,omitempty"`
	Data        datatypes.JSON `gorm:"type:jsonb;column:data" json:"data"`
	CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (XPLog) TableName() string { return "xp_log" }
