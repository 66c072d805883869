package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account holder. The Profile map carries any extra
// fields clients supply at registration or via partial update; it is stored
// as a JSON column alongside the fixed columns. Deletion is permanent, so
// there is no soft-delete column.
type User struct {
	ID           uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	Username     string         `json:"username" gorm:"uniqueIndex;size:255;not null"`
	Name         string         `json:"name" gorm:"size:255"`
	PasswordHash string         `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Profile      map[string]any `json:"profile,omitempty" gorm:"serializer:json"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
