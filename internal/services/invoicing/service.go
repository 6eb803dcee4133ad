package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/logger"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/money"
	"invoicing-backend/internal/repository"
	"invoicing-backend/internal/services/billing"
	"invoicing-backend/internal/services/numbering"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const DefaultPaymentTermDays = 30

// Service owns document creation, draft edits and status transitions.
type Service struct {
	store           repository.Store
	now             func() time.Time
	paymentTermDays int
	log             zerolog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPaymentTerm sets the default gap between issue and due date.
func WithPaymentTerm(days int) Option {
	return func(s *Service) { s.paymentTermDays = days }
}

func NewService(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		now:             time.Now,
		paymentTermDays: DefaultPaymentTermDays,
		log:             logger.WithComponent("invoicing"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type LineInput struct {
	ProductID   *uuid.UUID       `json:"product_id"`
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPriceHT *decimal.Decimal `json:"unit_price_ht"`
	VATRate     *decimal.Decimal `json:"vat_rate"`
}

type DraftInput struct {
	Type          models.DocumentType `json:"type"`
	ClientID      *uuid.UUID          `json:"client_id"`
	IssueDate     *time.Time          `json:"issue_date"`
	DueDate       *time.Time          `json:"due_date"`
	PaymentMethod string              `json:"payment_method"`
	Notes         string              `json:"notes"`
	Lines         []LineInput         `json:"lines"`
}

// Document is an invoice together with its per-rate tax breakdown.
type Document struct {
	*models.Invoice
	Breakdown []billing.RateBreakdown `json:"breakdown"`
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CreateDraft saves a new draft and assigns its number in the same transaction.
func (s *Service) CreateDraft(ctx context.Context, companyID uuid.UUID, in DraftInput, actor string) (*Document, error) {
	if !in.Type.Valid() {
		return nil, apperr.Invalid("type", "must be one of quote, invoice, credit_note")
	}

	inv := &models.Invoice{
		ID:        uuid.New(),
		CompanyID: companyID,
		Type:      in.Type,
		Status:    models.StatusDraft,
	}
	if err := s.applyDraft(ctx, inv, in); err != nil {
		return nil, err
	}
	if err := s.insert(ctx, inv, actor, "created"); err != nil {
		return nil, err
	}
	return s.document(inv)
}

// UpdateDraft replaces a draft's editable content and recomputes its totals.
// The document type is fixed once saved, and the issue date cannot leave the
// year its number was allocated in. An omitted issue date keeps the current one.
func (s *Service) UpdateDraft(ctx context.Context, companyID, id uuid.UUID, in DraftInput) (*Document, error) {
	inv, err := s.store.GetInvoice(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.StatusDraft {
		return nil, apperr.Conflict("%s %s is %s and can no longer be edited", inv.Type, inv.Number, inv.Status)
	}
	if in.Type != "" && in.Type != inv.Type {
		return nil, apperr.Invalid("type", "cannot be changed once the document is saved")
	}

	known := map[uuid.UUID]bool{}
	for _, l := range inv.Lines {
		if l.ProductID != nil {
			known[*l.ProductID] = true
		}
	}

	year := inv.IssueDate.Year()
	if err := s.applyDraft(ctx, inv, in); err != nil {
		return nil, err
	}
	if inv.IssueDate.Year() != year {
		return nil, apperr.Invalid("issue_date", fmt.Sprintf("must stay in %d, the year of number %s", year, inv.Number))
	}
	inv.UpdatedAt = s.now()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.UpdateDraft(ctx, inv); err != nil {
			return err
		}
		return bumpUsage(ctx, tx, companyID, inv.Lines, known)
	})
	if err != nil {
		return nil, err
	}
	return s.document(inv)
}

// applyDraft resolves client, dates and lines onto inv and recomputes totals.
func (s *Service) applyDraft(ctx context.Context, inv *models.Invoice, in DraftInput) error {
	verr := &apperr.ValidationError{}

	if in.ClientID != nil {
		if _, err := s.store.GetClient(ctx, inv.CompanyID, *in.ClientID); err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				return err
			}
			verr.Add("client_id", "unknown client")
		}
	}
	inv.ClientID = in.ClientID

	issue := dateOf(s.now())
	if !inv.IssueDate.IsZero() {
		issue = dateOf(inv.IssueDate)
	}
	if in.IssueDate != nil {
		issue = dateOf(*in.IssueDate)
	}
	due := issue.AddDate(0, 0, s.paymentTermDays)
	if in.DueDate != nil {
		due = dateOf(*in.DueDate)
	}
	if due.Before(issue) {
		verr.Add("due_date", "must not be before the issue date")
	}
	inv.IssueDate, inv.DueDate = issue, due
	inv.PaymentMethod = in.PaymentMethod
	inv.Notes = in.Notes

	lines, err := s.resolveLines(ctx, inv.CompanyID, in.Lines, verr)
	if err != nil {
		return err
	}
	var lineErr *apperr.ValidationError
	if errors.As(billing.ValidateLines(inv.Type, lines), &lineErr) {
		verr.Fields = append(verr.Fields, lineErr.Fields...)
	}
	if err := verr.Err(); err != nil {
		return err
	}

	inv.Lines = lines
	return s.recompute(inv)
}

func (s *Service) recompute(inv *models.Invoice) error {
	totals, err := billing.Aggregate(inv.Type, inv.Lines)
	if err != nil {
		return err
	}
	billing.Apply(inv, totals)
	return nil
}

// resolveLines fills description, price and rate from the referenced product when the line omits them.
func (s *Service) resolveLines(ctx context.Context, companyID uuid.UUID, in []LineInput, verr *apperr.ValidationError) ([]models.InvoiceLine, error) {
	lines := make([]models.InvoiceLine, 0, len(in))
	for i, li := range in {
		line := models.InvoiceLine{
			ID:          uuid.New(),
			Position:    i + 1,
			ProductID:   li.ProductID,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPriceHT: decimal.Zero,
			VATRate:     money.DefaultVATRate,
		}

		if li.ProductID != nil {
			p, err := s.store.GetProduct(ctx, companyID, *li.ProductID)
			switch {
			case errors.Is(err, apperr.ErrNotFound):
				verr.Add(fmt.Sprintf("lines[%d].product_id", i), "unknown product")
			case err != nil:
				return nil, err
			default:
				if line.Description == "" {
					line.Description = p.Name
				}
				line.UnitPriceHT = p.PriceHT
				line.VATRate = p.VATRate
			}
		}
		if li.UnitPriceHT != nil {
			line.UnitPriceHT = *li.UnitPriceHT
		}
		if li.VATRate != nil {
			line.VATRate = *li.VATRate
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// insert numbers and stores a new document. A failure anywhere rolls the number back.
func (s *Service) insert(ctx context.Context, inv *models.Invoice, actor, action string) error {
	now := s.now()
	inv.CreatedAt, inv.UpdatedAt = now, now

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		number, err := numbering.New(tx).NextNumber(ctx, inv.CompanyID, inv.Type, inv.IssueDate.Year())
		if err != nil {
			return err
		}
		inv.Number = number

		if err := tx.CreateInvoice(ctx, inv); err != nil {
			if errors.Is(err, apperr.ErrDuplicate) {
				return apperr.Conflict("document number %s is already taken", number)
			}
			return err
		}
		if err := bumpUsage(ctx, tx, inv.CompanyID, inv.Lines, nil); err != nil {
			return err
		}
		return tx.AppendInvoiceEvent(ctx, &models.InvoiceEvent{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			Action:      action,
			ToStatus:    inv.Status,
			PerformedBy: actor,
			CreatedAt:   now,
		})
	})
	if err != nil {
		inv.Number = ""
		return err
	}

	s.log.Info().Str("company_id", inv.CompanyID.String()).Str("number", inv.Number).
		Str("type", string(inv.Type)).Msg("document created")
	return nil
}

// bumpUsage increments the usage counter of each product referenced by lines, skipping known ones.
func bumpUsage(ctx context.Context, tx repository.Store, companyID uuid.UUID, lines []models.InvoiceLine, known map[uuid.UUID]bool) error {
	for _, l := range lines {
		if l.ProductID == nil || known[*l.ProductID] {
			continue
		}
		if err := tx.IncrementProductUsage(ctx, companyID, *l.ProductID, 1); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *Service) document(inv *models.Invoice) (*Document, error) {
	inv.EffectiveStatus = inv.StatusAt(s.now())
	lines := append([]models.InvoiceLine(nil), inv.Lines...)
	totals, err := billing.Aggregate(inv.Type, lines)
	if err != nil {
		return nil, fmt.Errorf("recompute breakdown for %s: %w", inv.Number, err)
	}
	return &Document{Invoice: inv, Breakdown: totals.Breakdown}, nil
}

func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*Document, error) {
	inv, err := s.store.GetInvoice(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return s.document(inv)
}

// List returns documents with their effective status. Filtering on overdue
// is evaluated against the current time, never a stored flag.
func (s *Service) List(ctx context.Context, companyID uuid.UUID, filter repository.InvoiceFilter) ([]models.Invoice, error) {
	now := s.now()
	filter.Now = now
	invoices, err := s.store.ListInvoices(ctx, companyID, filter)
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		invoices[i].EffectiveStatus = invoices[i].StatusAt(now)
	}
	return invoices, nil
}

func (s *Service) History(ctx context.Context, companyID, id uuid.UUID) ([]models.InvoiceEvent, error) {
	if _, err := s.store.GetInvoice(ctx, companyID, id); err != nil {
		return nil, err
	}
	return s.store.ListInvoiceEvents(ctx, id)
}
