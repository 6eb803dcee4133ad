package payments

import (
	"context"
	"errors"
	"net/http"

	"invoicing-backend/internal/apperr"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

// StripeProcessor talks to Stripe Connect and opens Express accounts.
type StripeProcessor struct {
	api *client.API
}

type StripeOption func(*stripe.BackendConfig)

// WithBaseURL points the client at another API host, such as a local mock.
func WithBaseURL(url string) StripeOption {
	return func(c *stripe.BackendConfig) {
		if url != "" {
			c.URL = stripe.String(url)
		}
	}
}

func WithHTTPClient(hc *http.Client) StripeOption {
	return func(c *stripe.BackendConfig) { c.HTTPClient = hc }
}

func NewStripeProcessor(secretKey string, opts ...StripeOption) *StripeProcessor {
	// Retries are left to the caller.
	cfg := &stripe.BackendConfig{MaxNetworkRetries: stripe.Int64(0)}
	for _, opt := range opts {
		opt(cfg)
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	}
	return &StripeProcessor{api: client.New(secretKey, backends)}
}

func (p *StripeProcessor) CreateAccount(ctx context.Context, req AccountRequest) (*AccountState, error) {
	params := &stripe.AccountParams{
		Type:         stripe.String(string(stripe.AccountTypeExpress)),
		Country:      stripe.String(req.Country),
		Email:        stripe.String(req.Email),
		BusinessType: stripe.String(string(stripe.AccountBusinessTypeCompany)),
		BusinessProfile: &stripe.AccountBusinessProfileParams{
			Name: stripe.String(req.Name),
		},
		Company: &stripe.AccountCompanyParams{
			Name:  stripe.String(req.Name),
			TaxID: stripe.String(req.Siren),
			Address: &stripe.AddressParams{
				Line1:      stripe.String(req.Street),
				City:       stripe.String(req.City),
				PostalCode: stripe.String(req.PostalCode),
				Country:    stripe.String(req.Country),
			},
		},
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	if req.Website != "" {
		params.BusinessProfile.URL = stripe.String(req.Website)
	}
	if req.VATNumber != "" {
		params.Company.VATID = stripe.String(req.VATNumber)
	}
	if req.CompanyID != "" {
		params.AddMetadata("company_id", req.CompanyID)
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	acct, err := p.api.Accounts.New(params)
	if err != nil {
		return nil, upstream("account creation", err)
	}
	return stateOf(acct), nil
}

func (p *StripeProcessor) CreateAccountLink(ctx context.Context, accountID, returnURL, refreshURL string) (*OnboardingLink, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		ReturnURL:  stripe.String(returnURL),
		RefreshURL: stripe.String(refreshURL),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx

	link, err := p.api.AccountLinks.New(params)
	if err != nil {
		return nil, upstream("onboarding link", err)
	}
	return &OnboardingLink{URL: link.URL, ExpiresAt: link.ExpiresAt}, nil
}

func (p *StripeProcessor) GetAccount(ctx context.Context, accountID string) (*AccountState, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := p.api.Accounts.GetByID(accountID, params)
	if err != nil {
		return nil, upstream("account status", err)
	}
	return stateOf(acct), nil
}

func stateOf(acct *stripe.Account) *AccountState {
	st := &AccountState{
		ID:               acct.ID,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}
	if acct.Requirements != nil {
		seen := map[string]bool{}
		for _, list := range [][]string{acct.Requirements.CurrentlyDue, acct.Requirements.PastDue} {
			for _, r := range list {
				if !seen[r] {
					seen[r] = true
					st.Requirements = append(st.Requirements, r)
				}
			}
		}
	}
	return st
}

// upstream keeps Stripe's own message intact.
func upstream(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &apperr.UpstreamError{Op: op, StatusCode: se.HTTPStatusCode, Message: se.Msg, Err: err}
	}
	return &apperr.UpstreamError{Op: op, Message: err.Error(), Err: err}
}
