package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/logger"
	"invoicing-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
}

// Resolver makes sure the owning user row exists before anything that
// references it is written. The row is normally created by the identity
// provider's sign-up trigger, which can lag behind the first request.
type Resolver struct {
	users    UserStore
	attempts uint64
	backoff  time.Duration
	timeout  time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

type Option func(*Resolver)

func WithAttempts(n uint64) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.attempts = n
		}
	}
}

func WithBackoff(d time.Duration) Option {
	return func(r *Resolver) { r.backoff = d }
}

// WithTimeout bounds the whole operation, polling and fallback insert together.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func NewResolver(users UserStore, opts ...Option) *Resolver {
	r := &Resolver{
		users:    users,
		attempts: 3,
		backoff:  time.Second,
		timeout:  10 * time.Second,
		now:      time.Now,
		log:      logger.WithComponent("identity"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureUserExists polls for the user row, then inserts it itself.
// An insert that loses the race to the trigger counts as success.
func (r *Resolver) EnsureUserExists(ctx context.Context, userID uuid.UUID, email string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	b := retry.WithMaxRetries(r.attempts-1, retry.NewConstant(r.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		_, err := r.users.GetUser(ctx, userID)
		if errors.Is(err, apperr.ErrNotFound) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &apperr.DependencyNotReadyError{Dependency: "user record", Err: ctxErr}
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("look up user %s: %w", userID, err)
	}

	r.log.Warn().Str("user_id", userID.String()).Uint64("attempts", r.attempts).
		Msg("user row not found after polling, inserting it")

	err = r.users.CreateUser(ctx, &models.User{ID: userID, Email: email, CreatedAt: r.now()})
	if err == nil || errors.Is(err, apperr.ErrDuplicate) {
		return nil
	}
	return &apperr.DependencyNotReadyError{Dependency: "user record", Err: err}
}
