package repository

import (
	"context"
	"time"

	"invoicing-backend/internal/models"

	"github.com/google/uuid"
)

// Store is the persistence contract shared by the Postgres and in-memory backends.
// Lookups of company-owned records are always scoped by companyID.
type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error

	CreateCompany(ctx context.Context, c *models.Company) error
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	GetCompanyByUser(ctx context.Context, userID uuid.UUID) (*models.Company, error)
	UpdateCompany(ctx context.Context, c *models.Company) error
	UpdatePaymentAccount(ctx context.Context, companyID uuid.UUID, acct models.PaymentAccount) error

	CreateClient(ctx context.Context, c *models.Client) error
	GetClient(ctx context.Context, companyID, id uuid.UUID) (*models.Client, error)
	ListClients(ctx context.Context, companyID uuid.UUID, search string) ([]models.Client, error)
	UpdateClient(ctx context.Context, c *models.Client) error
	DeleteClient(ctx context.Context, companyID, id uuid.UUID) error

	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, companyID, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, companyID uuid.UUID, filter ProductFilter) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, companyID, id uuid.UUID) error
	IncrementProductUsage(ctx context.Context, companyID, id uuid.UUID, by int) error

	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	GetInvoice(ctx context.Context, companyID, id uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, companyID uuid.UUID, filter InvoiceFilter) ([]models.Invoice, error)
	// UpdateDraft replaces the editable fields and lines, only while the stored status is draft.
	UpdateDraft(ctx context.Context, inv *models.Invoice) error
	// TransitionInvoice applies change only if the stored status still equals from.
	TransitionInvoice(ctx context.Context, id uuid.UUID, from models.InvoiceStatus, change StatusChange) error
	AppendInvoiceEvent(ctx context.Context, ev *models.InvoiceEvent) error
	ListInvoiceEvents(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceEvent, error)

	// NextSequence atomically increments and returns the counter for (company, type, year).
	NextSequence(ctx context.Context, companyID uuid.UUID, docType models.DocumentType, year int) (int64, error)

	// Transaction runs fn against a Store bound to one transaction. Any error rolls everything back.
	Transaction(ctx context.Context, fn func(Store) error) error
}

type ProductFilter struct {
	Search   string
	Category string
}

type InvoiceFilter struct {
	Type     models.DocumentType
	Status   models.InvoiceStatus // may be overdue, evaluated against Now
	ClientID *uuid.UUID
	Search   string
	Now      time.Time
}

type StatusChange struct {
	To               models.InvoiceStatus
	PaymentDate      *time.Time
	PaymentMethod    string
	PaymentReference string
	VoidReason       string
}

// startOfDay is the cut-off used to decide overdue in queries: due dates before it have passed.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
