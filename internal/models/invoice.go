package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DocumentType string

const (
	TypeQuote      DocumentType = "quote"
	TypeInvoice    DocumentType = "invoice"
	TypeCreditNote DocumentType = "credit_note"
)

func (t DocumentType) Valid() bool {
	switch t {
	case TypeQuote, TypeInvoice, TypeCreditNote:
		return true
	}
	return false
}

type InvoiceStatus string

const (
	StatusDraft InvoiceStatus = "draft"
	StatusSent  InvoiceStatus = "sent"
	StatusPaid  InvoiceStatus = "paid"
	StatusVoid  InvoiceStatus = "void"
	// StatusOverdue is never stored. See Invoice.StatusAt.
	StatusOverdue InvoiceStatus = "overdue"
)

// Invoice also represents quotes and credit notes, told apart by Type.
type Invoice struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID        uuid.UUID       `gorm:"type:uuid;index;uniqueIndex:idx_invoice_company_number" json:"company_id"`
	ClientID         *uuid.UUID      `gorm:"type:uuid;index" json:"client_id"`
	Type             DocumentType    `gorm:"size:16;index" json:"type"`
	Status           InvoiceStatus   `gorm:"size:16;index" json:"status"`
	Number           string          `gorm:"uniqueIndex:idx_invoice_company_number" json:"number"`
	IssueDate        time.Time       `gorm:"type:date" json:"issue_date"`
	DueDate          time.Time       `gorm:"type:date;index" json:"due_date"`
	Lines            []InvoiceLine   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"lines"`
	TotalHT          decimal.Decimal `gorm:"type:numeric(14,2)" json:"total_ht"`
	TotalVAT         decimal.Decimal `gorm:"type:numeric(14,2)" json:"total_vat"`
	TotalTTC         decimal.Decimal `gorm:"type:numeric(14,2)" json:"total_ttc"`
	PaymentMethod    string          `json:"payment_method"`
	PaymentDate      *time.Time      `json:"payment_date"`
	PaymentReference string          `json:"payment_reference"`
	SourceInvoiceID  *uuid.UUID      `gorm:"type:uuid" json:"source_invoice_id"`
	VoidReason       string          `json:"void_reason,omitempty"`
	Notes            string          `json:"notes"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// EffectiveStatus is filled on read with StatusAt(now).
	EffectiveStatus InvoiceStatus `gorm:"-" json:"effective_status"`
}

// StatusAt reports the status as seen at now: a sent document past its due date is overdue.
func (i *Invoice) StatusAt(now time.Time) InvoiceStatus {
	if i.Status == StatusSent && !i.DueDate.IsZero() && now.After(endOfDay(i.DueDate)) {
		return StatusOverdue
	}
	return i.Status
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

type InvoiceLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;index" json:"invoice_id"`
	Position    int             `json:"position"`
	ProductID   *uuid.UUID      `gorm:"type:uuid" json:"product_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(12,3)" json:"quantity"`
	UnitPriceHT decimal.Decimal `gorm:"type:numeric(12,2)" json:"unit_price_ht"`
	VATRate     decimal.Decimal `gorm:"type:numeric(5,2)" json:"vat_rate"`
	TotalHT     decimal.Decimal `gorm:"type:numeric(14,2)" json:"total_ht"`
	TotalVAT    decimal.Decimal `gorm:"type:numeric(14,2)" json:"total_vat"`
	TotalTTC    decimal.Decimal `gorm:"type:numeric(14,2)" json:"total_ttc"`
}
