package provisioning

import (
	"context"
	"errors"
	"testing"
	"time"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/payments"
	"invoicing-backend/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) CreateAccount(ctx context.Context, req payments.AccountRequest) (*payments.AccountState, error) {
	args := m.Called(ctx, req)
	if st := args.Get(0); st != nil {
		return st.(*payments.AccountState), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProcessor) CreateAccountLink(ctx context.Context, accountID, returnURL, refreshURL string) (*payments.OnboardingLink, error) {
	args := m.Called(ctx, accountID, returnURL, refreshURL)
	if l := args.Get(0); l != nil {
		return l.(*payments.OnboardingLink), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProcessor) GetAccount(ctx context.Context, accountID string) (*payments.AccountState, error) {
	args := m.Called(ctx, accountID)
	if st := args.Get(0); st != nil {
		return st.(*payments.AccountState), args.Error(1)
	}
	return nil, args.Error(1)
}

func seedCompany(t *testing.T, store *memory.Store, mutate func(*models.Company)) *models.Company {
	t.Helper()
	c := &models.Company{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Name:   "Atelier Dupont SARL",
		Siren:  "123 456 789",
		Email:  "contact@atelier-dupont.fr",
		Address: models.Address{
			Street:     "12 rue des Lilas",
			City:       "Nantes",
			PostalCode: "44000",
			Country:    "FR",
		},
	}
	if mutate != nil {
		mutate(c)
	}
	require.NoError(t, store.CreateCompany(context.Background(), c))
	return c
}

func newService(store *memory.Store, p payments.Processor) *Service {
	return NewService(store, p,
		WithOnboardingURLs("https://app.example.fr/return", "https://app.example.fr/refresh"),
		WithSaveBackoff(0, time.Millisecond),
	)
}

func TestCreateAccountRejectsMalformedIdentityWithoutCallingProcessor(t *testing.T) {
	cases := map[string]struct {
		mutate func(*models.Company)
		field  string
	}{
		"8-digit siren":       {func(c *models.Company) { c.Siren = "12345678" }, "siren"},
		"10-digit siren":      {func(c *models.Company) { c.Siren = "1234567890" }, "siren"},
		"4-digit postal code": {func(c *models.Company) { c.Address.PostalCode = "4400" }, "address.postal_code"},
		"6-digit postal code": {func(c *models.Company) { c.Address.PostalCode = "440000" }, "address.postal_code"},
		"missing email":       {func(c *models.Company) { c.Email = "" }, "email"},
		"missing name":        {func(c *models.Company) { c.Name = "" }, "name"},
		"german address":      {func(c *models.Company) { c.Address.Country = "DE" }, "address.country"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			store := memory.New()
			p := new(mockProcessor)
			c := seedCompany(t, store, tc.mutate)

			_, err := newService(store, p).CreateAccount(context.Background(), c.ID)

			var verr *apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tc.field, verr.Fields[0].Field)
			p.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateAccountStoresPendingAccount(t *testing.T) {
	store := memory.New()
	p := new(mockProcessor)
	c := seedCompany(t, store, nil)

	p.On("CreateAccount", mock.Anything, mock.MatchedBy(func(req payments.AccountRequest) bool {
		return req.Siren == "123456789" && req.PostalCode == "44000" && req.Country == "FR" && req.IdempotencyKey != ""
	})).Return(&payments.AccountState{ID: "acct_123"}, nil).Once()

	view, err := newService(store, p).CreateAccount(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountPending, view.Status)

	stored, err := store.GetCompany(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "acct_123", stored.PaymentAccount.AccountID)
	assert.False(t, stored.PaymentAccount.CapabilitiesKnown)
	assert.Equal(t, models.AccountPending, stored.PaymentAccount.Status())
	p.AssertExpectations(t)
}

func TestCreateAccountTwiceIsConflict(t *testing.T) {
	store := memory.New()
	p := new(mockProcessor)
	c := seedCompany(t, store, nil)
	p.On("CreateAccount", mock.Anything, mock.Anything).Return(&payments.AccountState{ID: "acct_123"}, nil).Once()

	svc := newService(store, p)
	_, err := svc.CreateAccount(context.Background(), c.ID)
	require.NoError(t, err)

	_, err = svc.CreateAccount(context.Background(), c.ID)
	assert.True(t, apperr.IsConflict(err))
	p.AssertNumberOfCalls(t, "CreateAccount", 1)
}

func TestCreateAccountUpstreamFailureLeavesCompanyUntouched(t *testing.T) {
	store := memory.New()
	p := new(mockProcessor)
	c := seedCompany(t, store, nil)
	p.On("CreateAccount", mock.Anything, mock.Anything).
		Return(nil, &apperr.UpstreamError{Op: "account creation", StatusCode: 400, Message: "Invalid tax id"})

	_, err := newService(store, p).CreateAccount(context.Background(), c.ID)
	assert.True(t, apperr.IsUpstream(err))
	assert.Contains(t, err.Error(), "Invalid tax id")

	stored, _ := store.GetCompany(context.Background(), c.ID)
	assert.Equal(t, models.AccountNone, stored.PaymentAccount.Status())
}

type flakyCompanies struct {
	*memory.Store
	fail bool
}

func (f *flakyCompanies) UpdatePaymentAccount(ctx context.Context, id uuid.UUID, acct models.PaymentAccount) error {
	if f.fail {
		return errors.New("connection reset")
	}
	return f.Store.UpdatePaymentAccount(ctx, id, acct)
}

func TestCreateAccountResumesAfterLocalWriteFailure(t *testing.T) {
	store := memory.New()
	companies := &flakyCompanies{Store: store, fail: true}
	p := new(mockProcessor)
	c := seedCompany(t, store, nil)
	ctx := context.Background()

	p.On("CreateAccount", mock.Anything, mock.Anything).Return(&payments.AccountState{ID: "acct_123"}, nil).Once()

	svc := NewService(companies, p, WithSaveBackoff(1, time.Millisecond))
	_, err := svc.CreateAccount(ctx, c.ID)
	var pf *apperr.PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, "acct_123", pf.ResourceID)

	view, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountPending, view.Status)
	assert.Equal(t, "acct_123", view.Account.AccountID)

	// The company is edited before the retry.
	c.Address.Street = "14 rue des Lilas"
	require.NoError(t, store.UpdateCompany(ctx, c))

	companies.fail = false
	_, err = svc.CreateAccount(ctx, c.ID)
	assert.True(t, apperr.IsConflict(err))

	stored, err := store.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "acct_123", stored.PaymentAccount.AccountID)
	p.AssertNumberOfCalls(t, "CreateAccount", 1)
}

func TestAccountRequestIsPinnedToCompanyAndFrance(t *testing.T) {
	c := &models.Company{
		ID:      uuid.New(),
		Name:    "Atelier Dupont SARL",
		Siren:   "123 456 789",
		Address: models.Address{Street: "12 rue des Lilas", City: "Nantes", PostalCode: "44 000", Country: "DE"},
	}
	first := accountRequest(c)

	c.Address.Street = "14 rue des Lilas"
	c.Name = "Atelier Dupont"
	second := accountRequest(c)

	assert.Equal(t, "FR", first.Country)
	assert.Equal(t, "44000", first.PostalCode)
	assert.Equal(t, c.ID.String(), first.CompanyID)
	assert.Equal(t, "acct-create-"+c.ID.String(), first.IdempotencyKey)
	assert.Equal(t, first.IdempotencyKey, second.IdempotencyKey)
}

func TestCreateOnboardingLink(t *testing.T) {
	store := memory.New()
	p := new(mockProcessor)
	c := seedCompany(t, store, func(c *models.Company) { c.PaymentAccount.AccountID = "acct_123" })
	p.On("CreateAccountLink", mock.Anything, "acct_123", "https://app.example.fr/return", "https://app.example.fr/refresh").
		Return(&payments.OnboardingLink{URL: "https://connect.stripe.com/setup/x"}, nil)

	link, err := newService(store, p).CreateOnboardingLink(context.Background(), c.ID, LinkRequest{})
	require.NoError(t, err)
	assert.Equal(t, "https://connect.stripe.com/setup/x", link.URL)
}

func TestCreateOnboardingLinkNeedsAccount(t *testing.T) {
	store := memory.New()
	p := new(mockProcessor)
	c := seedCompany(t, store, nil)

	_, err := newService(store, p).CreateOnboardingLink(context.Background(), c.ID, LinkRequest{})
	assert.True(t, apperr.IsConflict(err))
	p.AssertNotCalled(t, "CreateAccountLink", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshStatusTransitions(t *testing.T) {
	store := memory.New()
	p := new(mockProcessor)
	c := seedCompany(t, store, func(c *models.Company) { c.PaymentAccount.AccountID = "acct_123" })
	svc := newService(store, p)
	ctx := context.Background()

	p.On("GetAccount", mock.Anything, "acct_123").
		Return(&payments.AccountState{ID: "acct_123", DetailsSubmitted: true, Requirements: []string{"external_account"}}, nil).Once()
	view, err := svc.RefreshStatus(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountRestricted, view.Status)
	assert.False(t, view.Account.Connected)

	p.On("GetAccount", mock.Anything, "acct_123").
		Return(&payments.AccountState{ID: "acct_123", ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true}, nil).Once()
	view, err = svc.RefreshStatus(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountActive, view.Status)

	stored, _ := store.GetCompany(ctx, c.ID)
	assert.True(t, stored.PaymentAccount.Connected)
	assert.NotNil(t, stored.PaymentAccount.RefreshedAt)
	assert.Empty(t, stored.PaymentAccount.Requirements)
}

func TestRefreshStatusUpstreamError(t *testing.T) {
	store := memory.New()
	p := new(mockProcessor)
	c := seedCompany(t, store, func(c *models.Company) { c.PaymentAccount.AccountID = "acct_gone" })
	p.On("GetAccount", mock.Anything, "acct_gone").
		Return(nil, &apperr.UpstreamError{Op: "account status", StatusCode: 404, Message: "No such account: 'acct_gone'"})

	_, err := newService(store, p).RefreshStatus(context.Background(), c.ID)
	assert.True(t, apperr.IsUpstream(err))

	stored, _ := store.GetCompany(context.Background(), c.ID)
	assert.Equal(t, models.AccountPending, stored.PaymentAccount.Status())
}
