package models

import "github.com/google/uuid"

// DocumentSequence holds the last number issued per company, document type and year.
type DocumentSequence struct {
	CompanyID uuid.UUID    `gorm:"type:uuid;primaryKey"`
	Type      DocumentType `gorm:"primaryKey;size:16"`
	Year      int          `gorm:"primaryKey"`
	LastValue int64
}
