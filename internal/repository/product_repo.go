package repository

import (
	"context"
	"strings"

	"invoicing-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *GormStore) CreateProduct(ctx context.Context, p *models.Product) error {
	return translate(r.conn(ctx).Create(p).Error)
}

func (r *GormStore) GetProduct(ctx context.Context, companyID, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.conn(ctx).First(&p, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// ListProducts orders by usage so the most used products come first in pickers.
func (r *GormStore) ListProducts(ctx context.Context, companyID uuid.UUID, filter ProductFilter) ([]models.Product, error) {
	var products []models.Product
	q := r.conn(ctx).Where("company_id = ?", companyID)
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	err := q.Order("usage_count DESC").Order("name").Find(&products).Error
	return products, translate(err)
}

func (r *GormStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	res := r.conn(ctx).Model(p).Where("company_id = ?", p.CompanyID).Select("*").Omit("created_at", "usage_count").Updates(p)
	return affected(res)
}

func (r *GormStore) DeleteProduct(ctx context.Context, companyID, id uuid.UUID) error {
	return affected(r.conn(ctx).Where("company_id = ?", companyID).Delete(&models.Product{}, "id = ?", id))
}

func (r *GormStore) IncrementProductUsage(ctx context.Context, companyID, id uuid.UUID, by int) error {
	res := r.conn(ctx).Model(&models.Product{}).
		Where("id = ? AND company_id = ?", id, companyID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", by))
	return affected(res)
}
