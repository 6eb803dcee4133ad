package catalog

import (
	"context"
	"time"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/repository"
	"invoicing-backend/internal/validation"

	"github.com/google/uuid"
)

// Service manages a company's clients and products.
type Service struct {
	store repository.Store
	now   func() time.Time
}

func NewService(store repository.Store) *Service {
	return &Service{store: store, now: time.Now}
}

type ClientInput struct {
	Name            string         `json:"name"`
	Siren           string         `json:"siren"`
	VATNumber       string         `json:"vat_number"`
	Email           string         `json:"email"`
	Phone           string         `json:"phone"`
	BillingAddress  models.Address `json:"billing_address"`
	DeliveryAddress models.Address `json:"delivery_address"`
}

func (in ClientInput) applyTo(c *models.Client) {
	c.Name = in.Name
	c.Siren = in.Siren
	c.VATNumber = in.VATNumber
	c.Email = in.Email
	c.Phone = in.Phone
	c.BillingAddress = in.BillingAddress
	c.DeliveryAddress = in.DeliveryAddress
}

func (s *Service) CreateClient(ctx context.Context, companyID uuid.UUID, in ClientInput) (*models.Client, error) {
	c := &models.Client{ID: uuid.New(), CompanyID: companyID}
	in.applyTo(c)
	validation.NormalizeClient(c)
	if err := validation.Client(c); err != nil {
		return nil, err
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	if err := s.store.CreateClient(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetClient(ctx context.Context, companyID, id uuid.UUID) (*models.Client, error) {
	return s.store.GetClient(ctx, companyID, id)
}

func (s *Service) ListClients(ctx context.Context, companyID uuid.UUID, search string) ([]models.Client, error) {
	return s.store.ListClients(ctx, companyID, search)
}

func (s *Service) UpdateClient(ctx context.Context, companyID, id uuid.UUID, in ClientInput) (*models.Client, error) {
	c, err := s.store.GetClient(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	in.applyTo(c)
	validation.NormalizeClient(c)
	if err := validation.Client(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now()
	if err := s.store.UpdateClient(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteClient refuses while documents still reference the client.
func (s *Service) DeleteClient(ctx context.Context, companyID, id uuid.UUID) error {
	if _, err := s.store.GetClient(ctx, companyID, id); err != nil {
		return err
	}
	docs, err := s.store.ListInvoices(ctx, companyID, repository.InvoiceFilter{ClientID: &id, Now: s.now()})
	if err != nil {
		return err
	}
	if len(docs) > 0 {
		return apperr.Conflict("client is referenced by %d documents", len(docs))
	}
	return s.store.DeleteClient(ctx, companyID, id)
}
