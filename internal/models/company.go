package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Company struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	Name           string         `json:"name"`
	Siren          string         `gorm:"size:9" json:"siren"`
	VATNumber      string         `json:"vat_number"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Website        string         `json:"website"`
	LegalForm      string         `json:"legal_form"`
	Address        Address        `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	PaymentAccount PaymentAccount `gorm:"embedded;embeddedPrefix:payment_" json:"payment_account"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type AccountStatus string

const (
	AccountNone       AccountStatus = "none"
	AccountPending    AccountStatus = "pending"
	AccountActive     AccountStatus = "active"
	AccountRestricted AccountStatus = "restricted"
)

// PaymentAccount is the company's connected payment-processor account.
type PaymentAccount struct {
	AccountID         string                      `gorm:"index" json:"account_id"`
	Connected         bool                        `json:"connected"`
	CapabilitiesKnown bool                        `json:"capabilities_known"`
	ChargesEnabled    bool                        `json:"charges_enabled"`
	PayoutsEnabled    bool                        `json:"payouts_enabled"`
	DetailsSubmitted  bool                        `json:"details_submitted"`
	Requirements      datatypes.JSONSlice[string] `json:"requirements"`
	RefreshedAt       *time.Time                  `json:"refreshed_at"`
}

// Status derives the provisioning state from the stored flags.
func (p PaymentAccount) Status() AccountStatus {
	switch {
	case p.AccountID == "":
		return AccountNone
	case !p.CapabilitiesKnown:
		return AccountPending
	case p.ChargesEnabled && p.PayoutsEnabled && p.DetailsSubmitted:
		return AccountActive
	case len(p.Requirements) > 0:
		return AccountRestricted
	default:
		return AccountPending
	}
}
