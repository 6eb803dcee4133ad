package validation

import (
	"strings"

	"invoicing-backend/internal/models"
)

type addressRules struct {
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required,postcode_fr"`
	Country    string `json:"country" validate:"omitempty,oneof=FR"`
}

// accountIdentity is what the payment processor needs to open an account.
type accountIdentity struct {
	Name    string       `json:"name" validate:"required"`
	Siren   string       `json:"siren" validate:"required,siren"`
	Email   string       `json:"email" validate:"required,email"`
	Address addressRules `json:"address"`
}

// AccountIdentity checks that every field required for payment-account creation
// is present and well formed, and reports all failures together.
func AccountIdentity(c *models.Company) error {
	return Struct(accountIdentity{
		Name:  c.Name,
		Siren: c.Siren,
		Email: c.Email,
		Address: addressRules{
			Street:     c.Address.Street,
			City:       c.Address.City,
			PostalCode: c.Address.PostalCode,
			Country:    c.Address.Country,
		},
	})
}

type companyProfile struct {
	Name       string `json:"name" validate:"required"`
	Siren      string `json:"siren" validate:"omitempty,siren"`
	Email      string `json:"email" validate:"omitempty,email"`
	Website    string `json:"website" validate:"omitempty,url"`
	PostalCode string `json:"address.postal_code" validate:"omitempty,postcode_fr"`
	Country    string `json:"address.country" validate:"omitempty,oneof=FR"`
}

// CompanyProfile is the lighter check used when saving the company record.
func CompanyProfile(c *models.Company) error {
	return Struct(companyProfile{
		Name:       c.Name,
		Siren:      c.Siren,
		Email:      c.Email,
		Website:    c.Website,
		PostalCode: c.Address.PostalCode,
		Country:    c.Address.Country,
	})
}

type clientRules struct {
	Name           string `json:"name" validate:"required"`
	Siren          string `json:"siren" validate:"omitempty,siren"`
	Email          string `json:"email" validate:"omitempty,email"`
	BillingPostal  string `json:"billing_address.postal_code" validate:"omitempty,postcode_fr"`
	DeliveryPostal string `json:"delivery_address.postal_code" validate:"omitempty,postcode_fr"`
}

func Client(c *models.Client) error {
	return Struct(clientRules{
		Name:           c.Name,
		Siren:          c.Siren,
		Email:          c.Email,
		BillingPostal:  c.BillingAddress.PostalCode,
		DeliveryPostal: c.DeliveryAddress.PostalCode,
	})
}

// NormalizeCompany keeps only digits in SIREN and postal code.
func NormalizeCompany(c *models.Company) {
	c.Siren = Digits(c.Siren)
	c.Address.PostalCode = Digits(c.Address.PostalCode)
	c.Address.Country = strings.ToUpper(strings.TrimSpace(c.Address.Country))
	c.Address = c.Address.WithDefaults()
}

func NormalizeClient(c *models.Client) {
	c.Siren = Digits(c.Siren)
	c.BillingAddress.PostalCode = Digits(c.BillingAddress.PostalCode)
	c.BillingAddress = c.BillingAddress.WithDefaults()
	if !c.DeliveryAddress.IsZero() {
		c.DeliveryAddress.PostalCode = Digits(c.DeliveryAddress.PostalCode)
		c.DeliveryAddress = c.DeliveryAddress.WithDefaults()
	}
}
