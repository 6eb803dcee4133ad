package invoicing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/repository"
	"invoicing-backend/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *memory.Store
	svc     *Service
	company uuid.UUID
	client  uuid.UUID
	now     time.Time
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   memory.New(),
		company: uuid.New(),
		client:  uuid.New(),
		now:     time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, WithClock(func() time.Time { return f.now }))
	require.NoError(t, f.store.CreateClient(context.Background(), &models.Client{ID: f.client, CompanyID: f.company, Name: "ACME"}))
	return f
}

func (f *fixture) draft(t *testing.T, docType models.DocumentType, lines ...LineInput) *Document {
	t.Helper()
	doc, err := f.svc.CreateDraft(context.Background(), f.company, DraftInput{
		Type:     docType,
		ClientID: &f.client,
		Lines:    lines,
	}, "tester")
	require.NoError(t, err)
	return doc
}

func consulting() LineInput {
	return LineInput{Description: "Consulting", Quantity: dec("2"), UnitPriceHT: decPtr("120"), VATRate: decPtr("20")}
}

func training() LineInput {
	return LineInput{Description: "Formation", Quantity: dec("1"), UnitPriceHT: decPtr("800"), VATRate: decPtr("10")}
}

func TestCreateDraftComputesTotalsAndNumber(t *testing.T) {
	f := newFixture(t)
	doc := f.draft(t, models.TypeInvoice, consulting(), training())

	assert.Equal(t, "FACT-2025-001", doc.Number)
	assert.Equal(t, models.StatusDraft, doc.Status)
	assert.Equal(t, "1040.00", doc.TotalHT.StringFixed(2))
	assert.Equal(t, "128.00", doc.TotalVAT.StringFixed(2))
	assert.Equal(t, "1168.00", doc.TotalTTC.StringFixed(2))
	assert.Len(t, doc.Breakdown, 2)

	assert.Equal(t, 1, doc.Lines[0].Position)
	assert.Equal(t, 2, doc.Lines[1].Position)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), doc.IssueDate)
	assert.Equal(t, time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC), doc.DueDate)

	quote := f.draft(t, models.TypeQuote, consulting())
	assert.Equal(t, "DEVI-2025-001", quote.Number)
}

func TestCreateDraftUsesProductDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := &models.Product{ID: uuid.New(), CompanyID: f.company, Name: "Audit", PriceHT: dec("450"), VATRate: dec("5.5")}
	require.NoError(t, f.store.CreateProduct(ctx, product))

	doc := f.draft(t, models.TypeInvoice, LineInput{ProductID: &product.ID, Quantity: dec("2")})

	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "Audit", doc.Lines[0].Description)
	assert.Equal(t, "900.00", doc.TotalHT.StringFixed(2))
	assert.Equal(t, "49.50", doc.TotalVAT.StringFixed(2))

	stored, err := f.store.GetProduct(ctx, f.company, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsageCount)
}

func TestCreateDraftValidation(t *testing.T) {
	f := newFixture(t)
	unknown := uuid.New()

	_, err := f.svc.CreateDraft(context.Background(), f.company, DraftInput{
		Type:     models.TypeInvoice,
		ClientID: &unknown,
		Lines: []LineInput{
			{Description: "refund", Quantity: dec("-1"), UnitPriceHT: decPtr("10"), VATRate: decPtr("20")},
			{ProductID: &unknown, Quantity: dec("1")},
			{Description: "half cent", Quantity: dec("3"), UnitPriceHT: decPtr("10.005"), VATRate: decPtr("20")},
		},
	}, "tester")

	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	var fields []string
	for _, fe := range verr.Fields {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "client_id")
	assert.Contains(t, fields, "lines[0].quantity")
	assert.Contains(t, fields, "lines[1].product_id")
	assert.Contains(t, fields, "lines[2].unit_price_ht")

	_, err = f.svc.CreateDraft(context.Background(), f.company, DraftInput{Type: "receipt"}, "tester")
	assert.True(t, apperr.IsValidation(err))

	// Nothing consumed a number.
	doc := f.draft(t, models.TypeInvoice, consulting())
	assert.Equal(t, "FACT-2025-001", doc.Number)
}

func TestConcurrentCreationYieldsSequentialNumbers(t *testing.T) {
	f := newFixture(t)
	const n = 25

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := f.svc.CreateDraft(context.Background(), f.company, DraftInput{
				Type:  models.TypeInvoice,
				Lines: []LineInput{consulting()},
			}, "tester")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers[doc.Number] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, numbers, n)
	for i := 1; i <= n; i++ {
		assert.True(t, numbers[fmt.Sprintf("FACT-2025-%03d", i)])
	}
}

func TestDraftCannotBePaidDirectly(t *testing.T) {
	f := newFixture(t)
	doc := f.draft(t, models.TypeInvoice, consulting())

	_, err := f.svc.MarkPaid(context.Background(), f.company, doc.ID, PaymentInput{}, "tester")
	assert.True(t, apperr.IsConflict(err))

	got, err := f.svc.Get(context.Background(), f.company, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, got.Status)
	assert.Nil(t, got.PaymentDate)
}

func TestSendThenPayStampsPaymentDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.draft(t, models.TypeInvoice, consulting())

	sent, err := f.svc.Send(ctx, f.company, doc.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, sent.Status)

	f.now = f.now.Add(48 * time.Hour)
	paid, err := f.svc.MarkPaid(ctx, f.company, doc.ID, PaymentInput{Method: "card", Reference: "pi_3N"}, "tester")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentDate)
	assert.True(t, paid.PaymentDate.Equal(f.now))
	assert.Equal(t, "pi_3N", paid.PaymentReference)

	// Terminal.
	_, err = f.svc.MarkPaid(ctx, f.company, doc.ID, PaymentInput{}, "tester")
	assert.True(t, apperr.IsConflict(err))
	_, err = f.svc.Void(ctx, f.company, doc.ID, VoidInput{Administrative: true, Reason: "typo"}, "tester")
	assert.True(t, apperr.IsConflict(err))

	events, err := f.svc.History(ctx, f.company, doc.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "created", events[0].Action)
	assert.Equal(t, models.StatusSent, events[2].FromStatus)
	assert.Equal(t, models.StatusPaid, events[2].ToStatus)
}

func TestSendGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty := f.draft(t, models.TypeInvoice)
	_, err := f.svc.Send(ctx, f.company, empty.ID, "tester")
	assert.True(t, apperr.IsConflict(err))

	noClient, err := f.svc.CreateDraft(ctx, f.company, DraftInput{Type: models.TypeInvoice, Lines: []LineInput{consulting()}}, "tester")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, f.company, noClient.ID, "tester")
	assert.True(t, apperr.IsConflict(err))
}

func TestOverdueIsComputedOnRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.draft(t, models.TypeInvoice, consulting())
	_, err := f.svc.Send(ctx, f.company, doc.ID, "tester")
	require.NoError(t, err)

	f.now = doc.DueDate.AddDate(0, 0, 1).Add(time.Hour)

	got, err := f.svc.Get(ctx, f.company, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, got.Status)
	assert.Equal(t, models.StatusOverdue, got.EffectiveStatus)

	overdue, err := f.svc.List(ctx, f.company, repository.InvoiceFilter{Status: models.StatusOverdue})
	require.NoError(t, err)
	require.Len(t, overdue, 1)

	// Overdue documents can still be paid.
	paid, err := f.svc.MarkPaid(ctx, f.company, doc.ID, PaymentInput{}, "tester")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, paid.EffectiveStatus)
}

func TestUpdateDraftRecomputesAndLocksType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.draft(t, models.TypeInvoice, consulting())

	updated, err := f.svc.UpdateDraft(ctx, f.company, doc.ID, DraftInput{
		ClientID: &f.client,
		Lines:    []LineInput{consulting(), training()},
	})
	require.NoError(t, err)
	assert.Equal(t, "1168.00", updated.TotalTTC.StringFixed(2))
	assert.Equal(t, doc.Number, updated.Number)

	_, err = f.svc.UpdateDraft(ctx, f.company, doc.ID, DraftInput{Type: models.TypeQuote})
	assert.True(t, apperr.IsValidation(err))

	nextYear := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.UpdateDraft(ctx, f.company, doc.ID, DraftInput{ClientID: &f.client, IssueDate: &nextYear, Lines: []LineInput{consulting()}})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "issue_date", verr.Fields[0].Field)

	december := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	moved, err := f.svc.UpdateDraft(ctx, f.company, doc.ID, DraftInput{ClientID: &f.client, IssueDate: &december, Lines: []LineInput{consulting()}})
	require.NoError(t, err)
	assert.Equal(t, december, moved.IssueDate)
	assert.Equal(t, doc.Number, moved.Number)

	_, err = f.svc.Send(ctx, f.company, doc.ID, "tester")
	require.NoError(t, err)
	_, err = f.svc.UpdateDraft(ctx, f.company, doc.ID, DraftInput{Lines: []LineInput{training()}})
	assert.True(t, apperr.IsConflict(err))
}

func TestVoidRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.draft(t, models.TypeInvoice, consulting())
	_, err := f.svc.Void(ctx, f.company, inv.ID, VoidInput{}, "tester")
	assert.True(t, apperr.IsConflict(err), "invoices need the administrative flag")

	_, err = f.svc.Void(ctx, f.company, inv.ID, VoidInput{Administrative: true}, "tester")
	assert.True(t, apperr.IsValidation(err), "administrative cancellation needs a reason")

	voided, err := f.svc.Void(ctx, f.company, inv.ID, VoidInput{Administrative: true, Reason: "duplicate"}, "tester")
	require.NoError(t, err)
	assert.Equal(t, models.StatusVoid, voided.Status)
	assert.Equal(t, "duplicate", voided.VoidReason)

	note := f.draft(t, models.TypeCreditNote, LineInput{Description: "refund", Quantity: dec("-1"), UnitPriceHT: decPtr("100"), VATRate: decPtr("20")})
	_, err = f.svc.Void(ctx, f.company, note.ID, VoidInput{}, "tester")
	assert.NoError(t, err)
}

func TestIssueCreditNoteNegatesLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.draft(t, models.TypeInvoice, consulting(), training())

	_, err := f.svc.IssueCreditNote(ctx, f.company, inv.ID, "tester")
	assert.True(t, apperr.IsConflict(err), "draft invoices cannot be credited")

	_, err = f.svc.Send(ctx, f.company, inv.ID, "tester")
	require.NoError(t, err)

	note, err := f.svc.IssueCreditNote(ctx, f.company, inv.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, "AVOIR-2025-001", note.Number)
	assert.Equal(t, models.TypeCreditNote, note.Type)
	assert.Equal(t, "-1168.00", note.TotalTTC.StringFixed(2))
	require.NotNil(t, note.SourceInvoiceID)
	assert.Equal(t, inv.ID, *note.SourceInvoiceID)
	assert.Equal(t, models.StatusDraft, note.Status)
}

func TestConvertQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quote := f.draft(t, models.TypeQuote, consulting())

	_, err := f.svc.ConvertQuote(ctx, f.company, quote.ID, "tester")
	assert.True(t, apperr.IsConflict(err))

	_, err = f.svc.Send(ctx, f.company, quote.ID, "tester")
	require.NoError(t, err)

	_, err = f.svc.MarkPaid(ctx, f.company, quote.ID, PaymentInput{}, "tester")
	assert.True(t, apperr.IsConflict(err), "quotes are never paid")

	inv, err := f.svc.ConvertQuote(ctx, f.company, quote.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, "FACT-2025-001", inv.Number)
	assert.Equal(t, quote.TotalTTC.String(), inv.TotalTTC.String())
}

func TestDocumentsAreScopedToCompany(t *testing.T) {
	f := newFixture(t)
	doc := f.draft(t, models.TypeInvoice, consulting())

	_, err := f.svc.Get(context.Background(), uuid.New(), doc.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
