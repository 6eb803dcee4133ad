package invoicing

import (
	"context"
	"errors"
	"time"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/repository"

	"github.com/google/uuid"
)

// transition writes the new status only if the stored status is still the one
// the guards were checked against, and records the event alongside it.
func (s *Service) transition(ctx context.Context, inv *models.Invoice, action string, change repository.StatusChange, actor, reason string) error {
	from := inv.Status
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.TransitionInvoice(ctx, inv.ID, from, change); err != nil {
			return err
		}
		return tx.AppendInvoiceEvent(ctx, &models.InvoiceEvent{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			Action:      action,
			FromStatus:  from,
			ToStatus:    change.To,
			PerformedBy: actor,
			Reason:      reason,
			CreatedAt:   s.now(),
		})
	})
	if err != nil {
		return err
	}

	inv.Status = change.To
	if change.PaymentDate != nil {
		inv.PaymentDate = change.PaymentDate
	}
	if change.PaymentMethod != "" {
		inv.PaymentMethod = change.PaymentMethod
	}
	if change.PaymentReference != "" {
		inv.PaymentReference = change.PaymentReference
	}
	if change.VoidReason != "" {
		inv.VoidReason = change.VoidReason
	}

	s.log.Info().Str("number", inv.Number).Str("from", string(from)).Str("to", string(change.To)).
		Str("actor", actor).Msg("document status changed")
	return nil
}

// Send issues a draft. It needs at least one line and a client that still exists.
func (s *Service) Send(ctx context.Context, companyID, id uuid.UUID, actor string) (*Document, error) {
	inv, err := s.store.GetInvoice(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.StatusDraft {
		return nil, apperr.Conflict("%s %s is %s, only drafts can be sent", inv.Type, inv.Number, inv.Status)
	}
	if len(inv.Lines) == 0 {
		return nil, apperr.Conflict("%s %s has no lines", inv.Type, inv.Number)
	}
	if inv.ClientID == nil {
		return nil, apperr.Conflict("%s %s has no client", inv.Type, inv.Number)
	}
	if _, err := s.store.GetClient(ctx, companyID, *inv.ClientID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Conflict("client of %s %s no longer exists", inv.Type, inv.Number)
		}
		return nil, err
	}

	if err := s.transition(ctx, inv, "sent", repository.StatusChange{To: models.StatusSent}, actor, ""); err != nil {
		return nil, err
	}
	return s.document(inv)
}

type PaymentInput struct {
	Date      *time.Time `json:"payment_date"`
	Method    string     `json:"payment_method"`
	Reference string     `json:"payment_reference"`
}

// MarkPaid records a payment. Only sent documents qualify, overdue ones included.
func (s *Service) MarkPaid(ctx context.Context, companyID, id uuid.UUID, in PaymentInput, actor string) (*Document, error) {
	inv, err := s.store.GetInvoice(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if inv.Type == models.TypeQuote {
		return nil, apperr.Conflict("quote %s cannot be paid, convert it to an invoice first", inv.Number)
	}
	if inv.Status != models.StatusSent {
		return nil, apperr.Conflict("%s %s is %s, only sent documents can be marked paid", inv.Type, inv.Number, inv.Status)
	}

	paidAt := s.now().UTC()
	if in.Date != nil {
		paidAt = in.Date.UTC()
	}
	change := repository.StatusChange{
		To:               models.StatusPaid,
		PaymentDate:      &paidAt,
		PaymentMethod:    in.Method,
		PaymentReference: in.Reference,
	}
	if err := s.transition(ctx, inv, "paid", change, actor, ""); err != nil {
		return nil, err
	}
	return s.document(inv)
}

type VoidInput struct {
	Reason string `json:"reason"`
	// Administrative allows voiding an invoice or quote outright.
	Administrative bool `json:"administrative"`
}

// Void cancels a draft or sent credit note, or any draft or sent document
// when the administrative flag is set.
func (s *Service) Void(ctx context.Context, companyID, id uuid.UUID, in VoidInput, actor string) (*Document, error) {
	inv, err := s.store.GetInvoice(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.StatusDraft && inv.Status != models.StatusSent {
		return nil, apperr.Conflict("%s %s is %s and cannot be voided", inv.Type, inv.Number, inv.Status)
	}
	if inv.Type != models.TypeCreditNote && !in.Administrative {
		return nil, apperr.Conflict("%s %s can only be voided administratively, issue a credit note instead", inv.Type, inv.Number)
	}
	if in.Administrative && in.Reason == "" {
		return nil, apperr.Invalid("reason", "is required for an administrative cancellation")
	}

	change := repository.StatusChange{To: models.StatusVoid, VoidReason: in.Reason}
	if err := s.transition(ctx, inv, "void", change, actor, in.Reason); err != nil {
		return nil, err
	}
	return s.document(inv)
}

// IssueCreditNote drafts a credit note reversing every line of an issued invoice.
func (s *Service) IssueCreditNote(ctx context.Context, companyID, invoiceID uuid.UUID, actor string) (*Document, error) {
	src, err := s.store.GetInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	if src.Type != models.TypeInvoice {
		return nil, apperr.Conflict("credit notes can only be issued against invoices, %s is a %s", src.Number, src.Type)
	}
	if src.Status != models.StatusSent && src.Status != models.StatusPaid {
		return nil, apperr.Conflict("invoice %s is %s, only issued invoices can be credited", src.Number, src.Status)
	}

	note := s.derive(src, models.TypeCreditNote)
	for i := range note.Lines {
		note.Lines[i].Quantity = note.Lines[i].Quantity.Neg()
	}
	if err := s.finishDerived(ctx, note, "credit_note_issued", actor); err != nil {
		return nil, err
	}
	return s.document(note)
}

// ConvertQuote drafts an invoice carrying a sent quote's lines.
func (s *Service) ConvertQuote(ctx context.Context, companyID, quoteID uuid.UUID, actor string) (*Document, error) {
	src, err := s.store.GetInvoice(ctx, companyID, quoteID)
	if err != nil {
		return nil, err
	}
	if src.Type != models.TypeQuote {
		return nil, apperr.Conflict("%s is a %s, only quotes can be converted", src.Number, src.Type)
	}
	if src.Status != models.StatusSent {
		return nil, apperr.Conflict("quote %s is %s, only sent quotes can be converted", src.Number, src.Status)
	}

	inv := s.derive(src, models.TypeInvoice)
	if err := s.finishDerived(ctx, inv, "converted_from_quote", actor); err != nil {
		return nil, err
	}
	return s.document(inv)
}

// derive copies client and lines from src into a new draft of another type.
func (s *Service) derive(src *models.Invoice, docType models.DocumentType) *models.Invoice {
	issue := dateOf(s.now())
	id := uuid.New()
	srcID := src.ID

	out := &models.Invoice{
		ID:              id,
		CompanyID:       src.CompanyID,
		ClientID:        src.ClientID,
		Type:            docType,
		Status:          models.StatusDraft,
		IssueDate:       issue,
		DueDate:         issue.AddDate(0, 0, s.paymentTermDays),
		PaymentMethod:   src.PaymentMethod,
		SourceInvoiceID: &srcID,
		Notes:           src.Notes,
	}
	for _, l := range src.Lines {
		l.ID = uuid.New()
		l.InvoiceID = id
		out.Lines = append(out.Lines, l)
	}
	return out
}

func (s *Service) finishDerived(ctx context.Context, inv *models.Invoice, action, actor string) error {
	if err := s.recompute(inv); err != nil {
		return err
	}
	return s.insert(ctx, inv, actor, action)
}
