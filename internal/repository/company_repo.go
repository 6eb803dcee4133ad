package repository

import (
	"context"

	"invoicing-backend/internal/models"

	"github.com/google/uuid"
)

func (r *GormStore) CreateCompany(ctx context.Context, c *models.Company) error {
	return translate(r.conn(ctx).Create(c).Error)
}

func (r *GormStore) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var c models.Company
	if err := r.conn(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *GormStore) GetCompanyByUser(ctx context.Context, userID uuid.UUID) (*models.Company, error) {
	var c models.Company
	if err := r.conn(ctx).First(&c, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// UpdateCompany writes the identity fields. The payment account is owned by UpdatePaymentAccount.
func (r *GormStore) UpdateCompany(ctx context.Context, c *models.Company) error {
	res := r.conn(ctx).Model(&models.Company{}).
		Where("id = ?", c.ID).
		Select("name", "siren", "vat_number", "email", "phone", "website", "legal_form",
			"address_street", "address_city", "address_postal_code", "address_country", "updated_at").
		Updates(map[string]any{
			"name":                c.Name,
			"siren":               c.Siren,
			"vat_number":          c.VATNumber,
			"email":               c.Email,
			"phone":               c.Phone,
			"website":             c.Website,
			"legal_form":          c.LegalForm,
			"address_street":      c.Address.Street,
			"address_city":        c.Address.City,
			"address_postal_code": c.Address.PostalCode,
			"address_country":     c.Address.Country,
			"updated_at":          c.UpdatedAt,
		})
	return affected(res)
}

func (r *GormStore) UpdatePaymentAccount(ctx context.Context, companyID uuid.UUID, acct models.PaymentAccount) error {
	res := r.conn(ctx).Model(&models.Company{}).
		Where("id = ?", companyID).
		Updates(map[string]any{
			"payment_account_id":         acct.AccountID,
			"payment_connected":          acct.Connected,
			"payment_capabilities_known": acct.CapabilitiesKnown,
			"payment_charges_enabled":    acct.ChargesEnabled,
			"payment_payouts_enabled":    acct.PayoutsEnabled,
			"payment_details_submitted":  acct.DetailsSubmitted,
			"payment_requirements":       acct.Requirements,
			"payment_refreshed_at":       acct.RefreshedAt,
		})
	return affected(res)
}
