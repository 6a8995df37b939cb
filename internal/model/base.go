package model

import (
	"time"
)

// BaseModel carries the integer identity shared by catalog rows.
// Rows are hard-deleted so that database-level cascades and SET NULL
// references behave as declared.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}
