package catalog

import (
	"context"
	"strings"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/money"
	"invoicing-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductInput struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	PriceHT     decimal.Decimal  `json:"price_ht"`
	VATRate     *decimal.Decimal `json:"vat_rate"`
	Unit        string           `json:"unit"`
}

func (in ProductInput) applyTo(p *models.Product) error {
	verr := &apperr.ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "is required")
	}
	if in.PriceHT.IsNegative() {
		verr.Add("price_ht", "must not be negative")
	}
	rate := money.DefaultVATRate
	if in.VATRate != nil {
		rate = *in.VATRate
	}
	if !money.IsValidVATRate(rate) {
		verr.Add("vat_rate", "must be one of 20, 10, 5.5, 2.1 or 0")
	}
	if err := verr.Err(); err != nil {
		return err
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Category = in.Category
	p.PriceHT = money.Round2(in.PriceHT)
	p.VATRate = rate
	p.Unit = in.Unit
	if p.Unit == "" {
		p.Unit = models.DefaultUnit
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, companyID uuid.UUID, in ProductInput) (*models.Product, error) {
	p := &models.Product{ID: uuid.New(), CompanyID: companyID}
	if err := in.applyTo(p); err != nil {
		return nil, err
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, companyID, id uuid.UUID) (*models.Product, error) {
	return s.store.GetProduct(ctx, companyID, id)
}

func (s *Service) ListProducts(ctx context.Context, companyID uuid.UUID, filter repository.ProductFilter) ([]models.Product, error) {
	return s.store.ListProducts(ctx, companyID, filter)
}

func (s *Service) UpdateProduct(ctx context.Context, companyID, id uuid.UUID, in ProductInput) (*models.Product, error) {
	p, err := s.store.GetProduct(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if err := in.applyTo(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProduct leaves existing document lines intact; they keep their own copy of price and rate.
func (s *Service) DeleteProduct(ctx context.Context, companyID, id uuid.UUID) error {
	return s.store.DeleteProduct(ctx, companyID, id)
}
