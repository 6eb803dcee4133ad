package repository

import (
	"context"
	"strings"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

// CreateInvoice inserts the document and its lines.
func (r *GormStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	return translate(r.conn(ctx).Create(inv).Error)
}

func (r *GormStore) GetInvoice(ctx context.Context, companyID, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.conn(ctx).
		Preload("Lines", orderedLines).
		First(&inv, "id = ? AND company_id = ?", id, companyID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

// ListInvoices applies the optional filters. Search matches the number or the
// client name. An overdue filter is evaluated against filter.Now.
func (r *GormStore) ListInvoices(ctx context.Context, companyID uuid.UUID, filter InvoiceFilter) ([]models.Invoice, error) {
	var invoices []models.Invoice

	q := r.conn(ctx).Model(&models.Invoice{}).Where("company_id = ?", companyID)

	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.ClientID != nil {
		q = q.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		clients := r.conn(ctx).Model(&models.Client{}).Select("id").
			Where("company_id = ? AND LOWER(name) LIKE ?", companyID, pattern)
		q = q.Where("(LOWER(number) LIKE ? OR client_id IN (?))", pattern, clients)
	}
	switch filter.Status {
	case "":
	case models.StatusOverdue:
		q = q.Where("status = ? AND due_date < ?", models.StatusSent, startOfDay(filter.Now))
	case models.StatusSent:
		q = q.Where("status = ? AND due_date >= ?", models.StatusSent, startOfDay(filter.Now))
	default:
		q = q.Where("status = ?", filter.Status)
	}

	err := q.Preload("Lines", orderedLines).
		Order("issue_date DESC").Order("number DESC").
		Find(&invoices).Error
	return invoices, translate(err)
}

func (r *GormStore) UpdateDraft(ctx context.Context, inv *models.Invoice) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invoice{}).
			Where("id = ? AND company_id = ? AND status = ?", inv.ID, inv.CompanyID, models.StatusDraft).
			Updates(map[string]any{
				"client_id":      inv.ClientID,
				"issue_date":     inv.IssueDate,
				"due_date":       inv.DueDate,
				"total_ht":       inv.TotalHT,
				"total_vat":      inv.TotalVAT,
				"total_ttc":      inv.TotalTTC,
				"payment_method": inv.PaymentMethod,
				"notes":          inv.Notes,
				"updated_at":     inv.UpdatedAt,
			})
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("invoice %s is no longer a draft", inv.ID)
		}

		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
			return err
		}
		if len(inv.Lines) == 0 {
			return nil
		}
		for i := range inv.Lines {
			inv.Lines[i].InvoiceID = inv.ID
		}
		return translate(tx.Create(&inv.Lines).Error)
	})
}

func (r *GormStore) TransitionInvoice(ctx context.Context, id uuid.UUID, from models.InvoiceStatus, change StatusChange) error {
	updates := map[string]any{"status": change.To}
	if change.PaymentDate != nil {
		updates["payment_date"] = change.PaymentDate
	}
	if change.PaymentMethod != "" {
		updates["payment_method"] = change.PaymentMethod
	}
	if change.PaymentReference != "" {
		updates["payment_reference"] = change.PaymentReference
	}
	if change.VoidReason != "" {
		updates["void_reason"] = change.VoidReason
	}

	res := r.conn(ctx).Model(&models.Invoice{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("invoice %s is no longer %s", id, from)
	}
	return nil
}

func (r *GormStore) AppendInvoiceEvent(ctx context.Context, ev *models.InvoiceEvent) error {
	return translate(r.conn(ctx).Create(ev).Error)
}

func (r *GormStore) ListInvoiceEvents(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceEvent, error) {
	var events []models.InvoiceEvent
	err := r.conn(ctx).Where("invoice_id = ?", invoiceID).Order("created_at").Find(&events).Error
	return events, translate(err)
}
