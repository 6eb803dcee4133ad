package repository

import (
	"context"
	"strings"

	"invoicing-backend/internal/models"

	"github.com/google/uuid"
)

func (r *GormStore) CreateClient(ctx context.Context, c *models.Client) error {
	return translate(r.conn(ctx).Create(c).Error)
}

func (r *GormStore) GetClient(ctx context.Context, companyID, id uuid.UUID) (*models.Client, error) {
	var c models.Client
	if err := r.conn(ctx).First(&c, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *GormStore) ListClients(ctx context.Context, companyID uuid.UUID, search string) ([]models.Client, error) {
	var clients []models.Client
	q := r.conn(ctx).Where("company_id = ?", companyID)
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	err := q.Order("name").Find(&clients).Error
	return clients, translate(err)
}

func (r *GormStore) UpdateClient(ctx context.Context, c *models.Client) error {
	res := r.conn(ctx).Model(c).Where("company_id = ?", c.CompanyID).Select("*").Omit("created_at").Updates(c)
	return affected(res)
}

func (r *GormStore) DeleteClient(ctx context.Context, companyID, id uuid.UUID) error {
	return affected(r.conn(ctx).Where("company_id = ?", companyID).Delete(&models.Client{}, "id = ?", id))
}
