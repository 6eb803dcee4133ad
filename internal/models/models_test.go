package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPaymentAccountStatus(t *testing.T) {
	tests := []struct {
		name    string
		account PaymentAccount
		want    AccountStatus
	}{
		{"no account", PaymentAccount{}, AccountNone},
		{"created, never refreshed", PaymentAccount{AccountID: "acct_1"}, AccountPending},
		{"all capabilities", PaymentAccount{AccountID: "acct_1", CapabilitiesKnown: true, ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true}, AccountActive},
		{"requirements outstanding", PaymentAccount{AccountID: "acct_1", CapabilitiesKnown: true, Requirements: []string{"company.tax_id"}}, AccountRestricted},
		{"flags false, nothing due", PaymentAccount{AccountID: "acct_1", CapabilitiesKnown: true, DetailsSubmitted: true}, AccountPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.account.Status())
		})
	}
}

func TestInvoiceStatusAt(t *testing.T) {
	due := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	inv := &Invoice{Status: StatusSent, DueDate: due}

	assert.Equal(t, StatusSent, inv.StatusAt(due.Add(12*time.Hour)))
	assert.Equal(t, StatusOverdue, inv.StatusAt(due.AddDate(0, 0, 1)))
	// Stored status is untouched.
	assert.Equal(t, StatusSent, inv.Status)

	inv.Status = StatusPaid
	assert.Equal(t, StatusPaid, inv.StatusAt(due.AddDate(1, 0, 0)))
}

func TestClientShippingAddress(t *testing.T) {
	billing := Address{Street: "1 rue de la Paix", City: "Paris", PostalCode: "75002"}
	c := &Client{BillingAddress: billing}
	assert.Equal(t, billing, c.ShippingAddress())

	c.DeliveryAddress = Address{Street: "2 quai", City: "Lyon", PostalCode: "69002"}
	assert.Equal(t, "Lyon", c.ShippingAddress().City)
}
