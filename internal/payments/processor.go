package payments

import "context"

// AccountRequest carries the sanitized company identity sent to the processor.
type AccountRequest struct {
	IdempotencyKey string
	CompanyID      string
	Name           string
	Email          string
	Siren          string
	VATNumber      string
	Website        string
	Street         string
	City           string
	PostalCode     string
	Country        string
}

// AccountState is the processor's view of a connected account.
type AccountState struct {
	ID               string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
	Requirements     []string
}

type OnboardingLink struct {
	URL       string
	ExpiresAt int64
}

// Processor is the subset of the payment processor API the provisioning flow needs.
type Processor interface {
	CreateAccount(ctx context.Context, req AccountRequest) (*AccountState, error)
	CreateAccountLink(ctx context.Context, accountID, returnURL, refreshURL string) (*OnboardingLink, error)
	GetAccount(ctx context.Context, accountID string) (*AccountState, error)
}
