package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultUnit = "unité"

type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID   uuid.UUID       `gorm:"type:uuid;index" json:"company_id"`
	Name        string          `gorm:"index" json:"name"`
	Description string          `json:"description"`
	Category    string          `gorm:"index" json:"category"`
	PriceHT     decimal.Decimal `gorm:"type:numeric(12,2)" json:"price_ht"`
	VATRate     decimal.Decimal `gorm:"type:numeric(5,2)" json:"vat_rate"`
	Unit        string          `json:"unit"`
	UsageCount  int             `json:"usage_count"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
