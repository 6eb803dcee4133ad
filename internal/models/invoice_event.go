package models

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceEvent is the audit trail of lifecycle transitions.
type InvoiceEvent struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   uuid.UUID     `gorm:"type:uuid;index" json:"invoice_id"`
	Action      string        `json:"action"`
	FromStatus  InvoiceStatus `json:"from_status"`
	ToStatus    InvoiceStatus `json:"to_status"`
	PerformedBy string        `json:"performed_by"`
	Reason      string        `json:"reason"`
	CreatedAt   time.Time     `json:"created_at"`
}
