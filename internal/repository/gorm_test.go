package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestStartOfDay(t *testing.T) {
	paris := time.FixedZone("CET", 3600)
	got := startOfDay(time.Date(2025, 3, 10, 0, 30, 0, 0, paris))
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), got)
}

// openTestDB connects to TEST_DATABASE_URL, skipping when it is unset.
func openTestDB(t *testing.T) *GormStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return NewGormStore(db)
}

func seedCompany(t *testing.T, s *GormStore) *models.Company {
	t.Helper()
	ctx := context.Background()
	u := &models.User{ID: uuid.New(), Email: "owner@example.fr", CreatedAt: time.Now()}
	require.NoError(t, s.CreateUser(ctx, u))
	c := &models.Company{ID: uuid.New(), UserID: u.ID, Name: "Atelier Dupont SARL"}
	require.NoError(t, s.CreateCompany(ctx, c))
	return c
}

func TestGormNextSequenceIsGaplessUnderConcurrency(t *testing.T) {
	s := openTestDB(t)
	c := seedCompany(t, s)
	ctx := context.Background()

	const n = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.NextSequence(ctx, c.ID, models.TypeInvoice, 2025)
			assert.NoError(t, err)
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
	for i := int64(1); i <= n; i++ {
		assert.True(t, seen[i], "missing %d", i)
	}
}

func TestGormRolledBackSequenceIsReused(t *testing.T) {
	s := openTestDB(t)
	c := seedCompany(t, s)
	ctx := context.Background()

	v, err := s.NextSequence(ctx, c.ID, models.TypeQuote, 2025)
	require.NoError(t, err)
	require.EqualValues(t, 1, v)

	boom := errors.New("insert failed")
	err = s.Transaction(ctx, func(tx Store) error {
		v, err := tx.NextSequence(ctx, c.ID, models.TypeQuote, 2025)
		require.NoError(t, err)
		assert.EqualValues(t, 2, v)
		return boom
	})
	require.ErrorIs(t, err, boom)

	v, err = s.NextSequence(ctx, c.ID, models.TypeQuote, 2025)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
}

func TestGormTransitionCompareAndSwap(t *testing.T) {
	s := openTestDB(t)
	c := seedCompany(t, s)
	ctx := context.Background()

	inv := &models.Invoice{
		ID:        uuid.New(),
		CompanyID: c.ID,
		Type:      models.TypeInvoice,
		Status:    models.StatusDraft,
		Number:    "FACT-2025-001",
		IssueDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC),
		Lines: []models.InvoiceLine{{
			ID:          uuid.New(),
			Position:    1,
			Description: "Consulting",
			Quantity:    decimal.NewFromInt(2),
			UnitPriceHT: decimal.NewFromInt(120),
			VATRate:     decimal.NewFromInt(20),
		}},
	}
	require.NoError(t, s.CreateInvoice(ctx, inv))

	dup := *inv
	dup.ID = uuid.New()
	dup.Lines = nil
	assert.ErrorIs(t, s.CreateInvoice(ctx, &dup), apperr.ErrDuplicate)

	require.NoError(t, s.TransitionInvoice(ctx, inv.ID, models.StatusDraft, StatusChange{To: models.StatusSent}))
	err := s.TransitionInvoice(ctx, inv.ID, models.StatusDraft, StatusChange{To: models.StatusVoid})
	assert.True(t, apperr.IsConflict(err))

	got, err := s.GetInvoice(ctx, c.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, got.Status)
	require.Len(t, got.Lines, 1)

	_, err = s.GetInvoice(ctx, uuid.New(), inv.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGormSearchMatchesClientName(t *testing.T) {
	s := openTestDB(t)
	c := seedCompany(t, s)
	ctx := context.Background()

	bakery := &models.Client{ID: uuid.New(), CompanyID: c.ID, Name: "Boulangerie Martin"}
	require.NoError(t, s.CreateClient(ctx, bakery))
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateInvoice(ctx, &models.Invoice{
		ID: uuid.New(), CompanyID: c.ID, ClientID: &bakery.ID, Type: models.TypeInvoice,
		Status: models.StatusDraft, Number: "FACT-2025-001", IssueDate: day, DueDate: day,
	}))
	require.NoError(t, s.CreateInvoice(ctx, &models.Invoice{
		ID: uuid.New(), CompanyID: c.ID, Type: models.TypeQuote,
		Status: models.StatusDraft, Number: "DEVI-2025-001", IssueDate: day, DueDate: day, Notes: "martin",
	}))

	got, err := s.ListInvoices(ctx, c.ID, InvoiceFilter{Search: "martin", Now: day})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "FACT-2025-001", got[0].Number)

	got, err = s.ListInvoices(ctx, c.ID, InvoiceFilter{Search: "devi", Now: day})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "DEVI-2025-001", got[0].Number)
}
