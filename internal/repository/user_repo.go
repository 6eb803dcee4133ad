package repository

import (
	"context"

	"invoicing-backend/internal/models"

	"github.com/google/uuid"
)

func (r *GormStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := r.conn(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// CreateUser returns apperr.ErrDuplicate when the row already exists.
func (r *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(r.conn(ctx).Create(u).Error)
}
