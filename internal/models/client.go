package models

import (
	"time"

	"github.com/google/uuid"
)

// Client is a customer of a company.
type Client struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID       uuid.UUID `gorm:"type:uuid;index" json:"company_id"`
	Name            string    `gorm:"index" json:"name"`
	Siren           string    `json:"siren"`
	VATNumber       string    `json:"vat_number"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	BillingAddress  Address   `gorm:"embedded;embeddedPrefix:billing_" json:"billing_address"`
	DeliveryAddress Address   `gorm:"embedded;embeddedPrefix:delivery_" json:"delivery_address"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ShippingAddress falls back to the billing address when no delivery address was given.
func (c *Client) ShippingAddress() Address {
	if c.DeliveryAddress.IsZero() {
		return c.BillingAddress
	}
	return c.DeliveryAddress
}
