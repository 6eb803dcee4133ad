package repository

import (
	"context"

	"invoicing-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NextSequence is a single upsert. The row lock it takes is held until the
// surrounding transaction ends, which serializes concurrent callers for the
// same key and lets a rollback give the number back.
func (r *GormStore) NextSequence(ctx context.Context, companyID uuid.UUID, docType models.DocumentType, year int) (int64, error) {
	seq := models.DocumentSequence{CompanyID: companyID, Type: docType, Year: year, LastValue: 1}

	err := r.conn(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "company_id"}, {Name: "type"}, {Name: "year"}},
			DoUpdates: clause.Assignments(map[string]any{
				"last_value": gorm.Expr("document_sequences.last_value + 1"),
			}),
		},
		clause.Returning{Columns: []clause.Column{{Name: "last_value"}}},
	).Create(&seq).Error
	if err != nil {
		return 0, translate(err)
	}
	return seq.LastValue, nil
}
