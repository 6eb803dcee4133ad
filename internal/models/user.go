package models

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the identity provider's account row. The ID is the provider's user id.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"index" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
