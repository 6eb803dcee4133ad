package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/repository"

	"github.com/google/uuid"
)

type seqKey struct {
	company uuid.UUID
	docType models.DocumentType
	year    int
}

type data struct {
	users     map[uuid.UUID]models.User
	companies map[uuid.UUID]models.Company
	clients   map[uuid.UUID]models.Client
	products  map[uuid.UUID]models.Product
	invoices  map[uuid.UUID]models.Invoice
	events    []models.InvoiceEvent
	sequences map[seqKey]int64
}

func newData() data {
	return data{
		users:     make(map[uuid.UUID]models.User),
		companies: make(map[uuid.UUID]models.Company),
		clients:   make(map[uuid.UUID]models.Client),
		products:  make(map[uuid.UUID]models.Product),
		invoices:  make(map[uuid.UUID]models.Invoice),
		sequences: make(map[seqKey]int64),
	}
}

// clone copies the maps. Records are stored by value and line slices are
// never mutated in place, so a shallow copy of each map is a full snapshot.
func (d data) clone() data {
	c := newData()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.companies {
		c.companies[k] = v
	}
	for k, v := range d.clients {
		c.clients[k] = v
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.invoices {
		c.invoices[k] = v
	}
	for k, v := range d.sequences {
		c.sequences[k] = v
	}
	c.events = append([]models.InvoiceEvent(nil), d.events...)
	return c
}

// Store keeps everything in process memory, meant for tests and local runs.
// A transaction holds the write lock throughout and works on a staged copy
// that replaces the live data only when it commits.
type Store struct {
	mu sync.RWMutex
	d  data
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{d: newData()}
}

func (s *Store) Transaction(ctx context.Context, fn func(repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &Store{d: s.d.clone()}
	if err := fn(staged); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.d = staged.d
	return nil
}

// Users

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.d.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &u, nil
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.d.users[u.ID]; exists {
		return apperr.ErrDuplicate
	}
	s.d.users[u.ID] = *u
	return nil
}

// Companies

func (s *Store) CreateCompany(_ context.Context, c *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.d.companies[c.ID]; exists {
		return apperr.ErrDuplicate
	}
	for _, existing := range s.d.companies {
		if existing.UserID == c.UserID {
			return apperr.ErrDuplicate
		}
	}
	s.d.companies[c.ID] = *c
	return nil
}

func (s *Store) GetCompany(_ context.Context, id uuid.UUID) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.d.companies[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &c, nil
}

func (s *Store) GetCompanyByUser(_ context.Context, userID uuid.UUID) (*models.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.d.companies {
		if c.UserID == userID {
			return &c, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *Store) UpdateCompany(_ context.Context, c *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.d.companies[c.ID]
	if !ok {
		return apperr.ErrNotFound
	}
	updated := *c
	updated.UserID = existing.UserID
	updated.CreatedAt = existing.CreatedAt
	updated.PaymentAccount = existing.PaymentAccount
	s.d.companies[c.ID] = updated
	return nil
}

func (s *Store) UpdatePaymentAccount(_ context.Context, companyID uuid.UUID, acct models.PaymentAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.d.companies[companyID]
	if !ok {
		return apperr.ErrNotFound
	}
	acct.Requirements = append([]string(nil), acct.Requirements...)
	c.PaymentAccount = acct
	s.d.companies[companyID] = c
	return nil
}

// Clients

func (s *Store) CreateClient(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.d.clients[c.ID]; exists {
		return apperr.ErrDuplicate
	}
	s.d.clients[c.ID] = *c
	return nil
}

func (s *Store) GetClient(_ context.Context, companyID, id uuid.UUID) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.d.clients[id]
	if !ok || c.CompanyID != companyID {
		return nil, apperr.ErrNotFound
	}
	return &c, nil
}

func (s *Store) ListClients(_ context.Context, companyID uuid.UUID, search string) ([]models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.ToLower(search)
	var out []models.Client
	for _, c := range s.d.clients {
		if c.CompanyID != companyID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Email), search) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateClient(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.d.clients[c.ID]
	if !ok || existing.CompanyID != c.CompanyID {
		return apperr.ErrNotFound
	}
	updated := *c
	updated.CreatedAt = existing.CreatedAt
	s.d.clients[c.ID] = updated
	return nil
}

func (s *Store) DeleteClient(_ context.Context, companyID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.d.clients[id]
	if !ok || c.CompanyID != companyID {
		return apperr.ErrNotFound
	}
	delete(s.d.clients, id)
	return nil
}

// Products

func (s *Store) CreateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.d.products[p.ID]; exists {
		return apperr.ErrDuplicate
	}
	s.d.products[p.ID] = *p
	return nil
}

func (s *Store) GetProduct(_ context.Context, companyID, id uuid.UUID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.d.products[id]
	if !ok || p.CompanyID != companyID {
		return nil, apperr.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListProducts(_ context.Context, companyID uuid.UUID, filter repository.ProductFilter) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var out []models.Product
	for _, p := range s.d.products {
		if p.CompanyID != companyID {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) UpdateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.d.products[p.ID]
	if !ok || existing.CompanyID != p.CompanyID {
		return apperr.ErrNotFound
	}
	updated := *p
	updated.CreatedAt = existing.CreatedAt
	updated.UsageCount = existing.UsageCount
	s.d.products[p.ID] = updated
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, companyID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.d.products[id]
	if !ok || p.CompanyID != companyID {
		return apperr.ErrNotFound
	}
	delete(s.d.products, id)
	return nil
}

func (s *Store) IncrementProductUsage(_ context.Context, companyID, id uuid.UUID, by int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.d.products[id]
	if !ok || p.CompanyID != companyID {
		return apperr.ErrNotFound
	}
	p.UsageCount += by
	s.d.products[id] = p
	return nil
}

// Invoices

func copyInvoice(inv models.Invoice) models.Invoice {
	inv.Lines = append([]models.InvoiceLine(nil), inv.Lines...)
	return inv
}

func (s *Store) CreateInvoice(_ context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.d.invoices[inv.ID]; exists {
		return apperr.ErrDuplicate
	}
	for _, existing := range s.d.invoices {
		if existing.CompanyID == inv.CompanyID && existing.Number == inv.Number {
			return apperr.ErrDuplicate
		}
	}
	for i := range inv.Lines {
		inv.Lines[i].InvoiceID = inv.ID
	}
	s.d.invoices[inv.ID] = copyInvoice(*inv)
	return nil
}

func (s *Store) GetInvoice(_ context.Context, companyID, id uuid.UUID) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.d.invoices[id]
	if !ok || inv.CompanyID != companyID {
		return nil, apperr.ErrNotFound
	}
	out := copyInvoice(inv)
	return &out, nil
}

func (s *Store) ListInvoices(_ context.Context, companyID uuid.UUID, filter repository.InvoiceFilter) ([]models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var out []models.Invoice
	for _, inv := range s.d.invoices {
		if inv.CompanyID != companyID {
			continue
		}
		if filter.Type != "" && inv.Type != filter.Type {
			continue
		}
		if filter.ClientID != nil && (inv.ClientID == nil || *inv.ClientID != *filter.ClientID) {
			continue
		}
		if filter.Status != "" && inv.StatusAt(filter.Now) != filter.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(inv.Number), search) &&
			!s.clientNameContains(inv.ClientID, search) {
			continue
		}
		out = append(out, copyInvoice(inv))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate) {
			return out[i].IssueDate.After(out[j].IssueDate)
		}
		return out[i].Number > out[j].Number
	})
	return out, nil
}

// clientNameContains must be called with mu held.
func (s *Store) clientNameContains(id *uuid.UUID, search string) bool {
	if id == nil {
		return false
	}
	c, ok := s.d.clients[*id]
	return ok && strings.Contains(strings.ToLower(c.Name), search)
}

func (s *Store) UpdateDraft(_ context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.d.invoices[inv.ID]
	if !ok || existing.CompanyID != inv.CompanyID {
		return apperr.ErrNotFound
	}
	if existing.Status != models.StatusDraft {
		return apperr.Conflict("invoice %s is no longer a draft", inv.ID)
	}

	existing.ClientID = inv.ClientID
	existing.IssueDate = inv.IssueDate
	existing.DueDate = inv.DueDate
	existing.TotalHT, existing.TotalVAT, existing.TotalTTC = inv.TotalHT, inv.TotalVAT, inv.TotalTTC
	existing.PaymentMethod = inv.PaymentMethod
	existing.Notes = inv.Notes
	existing.UpdatedAt = inv.UpdatedAt
	for i := range inv.Lines {
		inv.Lines[i].InvoiceID = inv.ID
	}
	existing.Lines = append([]models.InvoiceLine(nil), inv.Lines...)
	s.d.invoices[inv.ID] = existing
	return nil
}

func (s *Store) TransitionInvoice(_ context.Context, id uuid.UUID, from models.InvoiceStatus, change repository.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.d.invoices[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if inv.Status != from {
		return apperr.Conflict("invoice %s is no longer %s", id, from)
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
	s.d.invoices[id] = inv
	return nil
}

func (s *Store) AppendInvoiceEvent(_ context.Context, ev *models.InvoiceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.d.events = append(s.d.events, *ev)
	return nil
}

func (s *Store) ListInvoiceEvents(_ context.Context, invoiceID uuid.UUID) ([]models.InvoiceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.InvoiceEvent
	for _, ev := range s.d.events {
		if ev.InvoiceID == invoiceID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Numbering

func (s *Store) NextSequence(_ context.Context, companyID uuid.UUID, docType models.DocumentType, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := seqKey{company: companyID, docType: docType, year: year}
	s.d.sequences[k]++
	return s.d.sequences[k], nil
}
