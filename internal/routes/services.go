package routes

import (
	"invoicing-backend/internal/config"
	"invoicing-backend/internal/payments"
	"invoicing-backend/internal/repository"
	"invoicing-backend/internal/services/catalog"
	"invoicing-backend/internal/services/companies"
	"invoicing-backend/internal/services/identity"
	"invoicing-backend/internal/services/invoicing"
	"invoicing-backend/internal/services/provisioning"
)

// NewServices wires every service onto one store and payment processor.
func NewServices(cfg *config.Config, store repository.Store, processor payments.Processor) Services {
	resolver := identity.NewResolver(store,
		identity.WithAttempts(cfg.IdentityAttempts),
		identity.WithBackoff(cfg.IdentityBackoff),
		identity.WithTimeout(cfg.IdentityTimeout),
	)
	return Services{
		Companies: companies.NewService(store, resolver),
		Provisioning: provisioning.NewService(store, processor,
			provisioning.WithTimeout(cfg.StripeTimeout),
			provisioning.WithOnboardingURLs(cfg.OnboardingReturnURL, cfg.OnboardingRefreshURL),
		),
		Catalog:   catalog.NewService(store),
		Invoicing: invoicing.NewService(store, invoicing.WithPaymentTerm(cfg.PaymentTermDays)),
	}
}
