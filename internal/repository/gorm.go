package repository

import (
	"context"
	"errors"
	"fmt"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/models"

	"gorm.io/gorm"
)

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (r *GormStore) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Client{},
		&models.Product{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.InvoiceEvent{},
		&models.DocumentSequence{},
	)
}

// translate maps gorm errors onto the shared sentinels. It relies on TranslateError being enabled.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", apperr.ErrDuplicate, err)
	}
	return err
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
