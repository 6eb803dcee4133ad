package companies

import (
	"context"
	"errors"
	"time"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/logger"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Store interface {
	CreateCompany(ctx context.Context, c *models.Company) error
	GetCompanyByUser(ctx context.Context, userID uuid.UUID) (*models.Company, error)
	UpdateCompany(ctx context.Context, c *models.Company) error
}

// UserEnsurer guarantees the owning user row exists.
type UserEnsurer interface {
	EnsureUserExists(ctx context.Context, userID uuid.UUID, email string) error
}

type Service struct {
	store Store
	users UserEnsurer
	now   func() time.Time
	log   zerolog.Logger
}

func NewService(store Store, users UserEnsurer) *Service {
	return &Service{store: store, users: users, now: time.Now, log: logger.WithComponent("companies")}
}

// Profile holds the fields a user can edit on their company.
type Profile struct {
	Name      string         `json:"name"`
	Siren     string         `json:"siren"`
	VATNumber string         `json:"vat_number"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone"`
	Website   string         `json:"website"`
	LegalForm string         `json:"legal_form"`
	Address   models.Address `json:"address"`
}

func (p Profile) applyTo(c *models.Company) {
	c.Name = p.Name
	c.Siren = p.Siren
	c.VATNumber = p.VATNumber
	c.Email = p.Email
	c.Phone = p.Phone
	c.Website = p.Website
	c.LegalForm = p.LegalForm
	c.Address = p.Address
}

// Create registers the single company of a user. The user row is resolved first.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, userEmail string, p Profile) (*models.Company, error) {
	c := &models.Company{ID: uuid.New(), UserID: userID}
	p.applyTo(c)
	validation.NormalizeCompany(c)
	if c.Email == "" {
		c.Email = userEmail
	}
	if err := validation.CompanyProfile(c); err != nil {
		return nil, err
	}

	if err := s.users.EnsureUserExists(ctx, userID, userEmail); err != nil {
		return nil, err
	}

	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	if err := s.store.CreateCompany(ctx, c); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return nil, apperr.Conflict("user already has a company")
		}
		return nil, err
	}
	s.log.Info().Str("company_id", c.ID.String()).Str("user_id", userID.String()).Msg("company created")
	return c, nil
}

func (s *Service) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Company, error) {
	return s.store.GetCompanyByUser(ctx, userID)
}

// Update replaces the profile fields. The payment account is not touched.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, p Profile) (*models.Company, error) {
	c, err := s.store.GetCompanyByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.applyTo(c)
	validation.NormalizeCompany(c)
	if err := validation.CompanyProfile(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now()
	if err := s.store.UpdateCompany(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
