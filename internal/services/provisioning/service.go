package provisioning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/logger"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/payments"
	"invoicing-backend/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

type CompanyStore interface {
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	UpdatePaymentAccount(ctx context.Context, companyID uuid.UUID, acct models.PaymentAccount) error
}

// Service drives a company's payment account through none, pending,
// restricted and active. Status only becomes active through RefreshStatus.
type Service struct {
	companies  CompanyStore
	processor  payments.Processor
	timeout    time.Duration
	returnURL  string
	refreshURL string
	saveRetry  func() retry.Backoff
	now        func() time.Time
	log        zerolog.Logger

	mu sync.Mutex
	// unsaved holds accounts created upstream whose local write failed, by company.
	unsaved map[uuid.UUID]string
}

type Option func(*Service)

// WithTimeout bounds each processor call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithOnboardingURLs sets the defaults used when a link request leaves them empty.
func WithOnboardingURLs(returnURL, refreshURL string) Option {
	return func(s *Service) {
		s.returnURL = returnURL
		s.refreshURL = refreshURL
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSaveBackoff controls retries of the local write after the processor created an account.
func WithSaveBackoff(attempts uint64, wait time.Duration) Option {
	return func(s *Service) {
		s.saveRetry = func() retry.Backoff {
			return retry.WithMaxRetries(attempts, retry.NewConstant(wait))
		}
	}
}

func NewService(companies CompanyStore, processor payments.Processor, opts ...Option) *Service {
	s := &Service{
		companies: companies,
		processor: processor,
		timeout:   15 * time.Second,
		now:       time.Now,
		log:       logger.WithComponent("provisioning"),
		unsaved:   map[uuid.UUID]string{},
	}
	WithSaveBackoff(2, 200*time.Millisecond)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type AccountView struct {
	Status  models.AccountStatus  `json:"status"`
	Account models.PaymentAccount `json:"account"`
}

// load reads the company. An account created upstream but never recorded is
// reported as the company's account, and recording it is attempted again.
func (s *Service) load(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	c, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.unsaved[companyID]
	if !ok {
		return c, nil
	}
	if c.PaymentAccount.AccountID != "" {
		delete(s.unsaved, companyID)
		return c, nil
	}

	acct := models.PaymentAccount{AccountID: id}
	if err := s.companies.UpdatePaymentAccount(ctx, companyID, acct); err != nil {
		s.log.Warn().Err(err).Str("company_id", companyID.String()).Str("account_id", id).
			Msg("payment account still not saved")
	} else {
		delete(s.unsaved, companyID)
	}
	c.PaymentAccount = acct
	return c, nil
}

func (s *Service) Get(ctx context.Context, companyID uuid.UUID) (*AccountView, error) {
	c, err := s.load(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return &AccountView{Status: c.PaymentAccount.Status(), Account: c.PaymentAccount}, nil
}

// CreateAccount opens the processor account for a company that has none.
// Nothing is sent to the processor unless every identity field is valid.
func (s *Service) CreateAccount(ctx context.Context, companyID uuid.UUID) (*AccountView, error) {
	c, err := s.load(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if id := c.PaymentAccount.AccountID; id != "" {
		return nil, apperr.Conflict("company already has payment account %s, request an onboarding link or refresh its status instead", id)
	}
	if err := validation.AccountIdentity(c); err != nil {
		return nil, err
	}

	req := accountRequest(c)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	st, err := s.processor.CreateAccount(callCtx, req)
	if err != nil {
		s.log.Error().Err(err).Str("company_id", companyID.String()).Msg("create payment account")
		return nil, err
	}

	// Capabilities stay unknown until the first refresh.
	acct := models.PaymentAccount{AccountID: st.ID}

	err = retry.Do(ctx, s.saveRetry(), func(ctx context.Context) error {
		if err := s.companies.UpdatePaymentAccount(ctx, companyID, acct); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		s.mu.Lock()
		s.unsaved[companyID] = st.ID
		s.mu.Unlock()
		s.log.Error().Err(err).Str("company_id", companyID.String()).Str("account_id", st.ID).
			Msg("payment account created upstream but not saved")
		return nil, &apperr.PartialFailureError{Op: "save payment account", ResourceID: st.ID, Err: err}
	}

	s.log.Info().Str("company_id", companyID.String()).Str("account_id", st.ID).Msg("payment account created")
	return &AccountView{Status: acct.Status(), Account: acct}, nil
}

// accountRequest builds the sanitized payload. Accounts are always opened in
// France. The idempotency key depends on the company alone, so a retry after
// the company was edited cannot open a second account.
func accountRequest(c *models.Company) payments.AccountRequest {
	return payments.AccountRequest{
		IdempotencyKey: "acct-create-" + c.ID.String(),
		CompanyID:      c.ID.String(),
		Name:           c.Name,
		Email:          c.Email,
		Siren:          validation.Digits(c.Siren),
		VATNumber:      c.VATNumber,
		Website:        c.Website,
		Street:         c.Address.Street,
		City:           c.Address.City,
		PostalCode:     validation.Digits(c.Address.PostalCode),
		Country:        models.DefaultCountry,
	}
}

type LinkRequest struct {
	ReturnURL  string `json:"return_url"`
	RefreshURL string `json:"refresh_url"`
}

// CreateOnboardingLink asks the processor for a single-use onboarding URL.
func (s *Service) CreateOnboardingLink(ctx context.Context, companyID uuid.UUID, in LinkRequest) (*payments.OnboardingLink, error) {
	c, err := s.load(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if c.PaymentAccount.AccountID == "" {
		return nil, apperr.Conflict("company has no payment account yet")
	}

	if in.ReturnURL == "" {
		in.ReturnURL = s.returnURL
	}
	if in.RefreshURL == "" {
		in.RefreshURL = s.refreshURL
	}
	verr := &apperr.ValidationError{}
	if in.ReturnURL == "" {
		verr.Add("return_url", "is required")
	}
	if in.RefreshURL == "" {
		verr.Add("refresh_url", "is required")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	link, err := s.processor.CreateAccountLink(callCtx, c.PaymentAccount.AccountID, in.ReturnURL, in.RefreshURL)
	if err != nil {
		s.log.Error().Err(err).Str("account_id", c.PaymentAccount.AccountID).Msg("create onboarding link")
		return nil, err
	}
	return link, nil
}

// RefreshStatus reads the account from the processor and stores its flags.
// Calling it repeatedly is harmless.
func (s *Service) RefreshStatus(ctx context.Context, companyID uuid.UUID) (*AccountView, error) {
	c, err := s.load(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if c.PaymentAccount.AccountID == "" {
		return nil, apperr.Conflict("company has no payment account yet")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	st, err := s.processor.GetAccount(callCtx, c.PaymentAccount.AccountID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	acct := models.PaymentAccount{
		AccountID:         c.PaymentAccount.AccountID,
		CapabilitiesKnown: true,
		ChargesEnabled:    st.ChargesEnabled,
		PayoutsEnabled:    st.PayoutsEnabled,
		DetailsSubmitted:  st.DetailsSubmitted,
		Requirements:      append([]string{}, st.Requirements...),
		RefreshedAt:       &now,
	}
	acct.Connected = acct.Status() == models.AccountActive

	if err := s.companies.UpdatePaymentAccount(ctx, companyID, acct); err != nil {
		return nil, fmt.Errorf("save payment account status: %w", err)
	}

	prev := c.PaymentAccount.Status()
	if next := acct.Status(); next != prev {
		s.log.Info().Str("account_id", acct.AccountID).
			Str("from", string(prev)).Str("to", string(next)).
			Msg("payment account status changed")
	}
	return &AccountView{Status: acct.Status(), Account: acct}, nil
}
