// Package identity maps an authentication session onto exactly one durable account.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrAccountExists is returned by AccountStore when a unique session ref or
// email is already taken.
var ErrAccountExists = errors.New("account already exists")

// AccountStore persists accounts.
type AccountStore interface {
	// FindBySessionRef and FindByEmail return nil, nil when nothing matches.
	FindBySessionRef(ctx context.Context, sessionRef string) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	// InsertAccount returns ErrAccountExists when the row conflicts with an existing one.
	InsertAccount(ctx context.Context, account *model.Account) error
	UpdateSessionRef(ctx context.Context, accountID uuid.UUID, sessionRef string) error
}

// Resolver turns a session into a durable account, creating one lazily.
type Resolver struct {
	accounts    AccountStore
	maxAttempts int
	newBackOff  func() backoff.BackOff
	logger      zerolog.Logger
}

// NewResolver creates an identity resolver that tries each resolution up to maxAttempts times.
func NewResolver(accounts AccountStore, maxAttempts int, logger zerolog.Logger) *Resolver {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Resolver{
		accounts:    accounts,
		maxAttempts: maxAttempts,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 50 * time.Millisecond
			b.MaxInterval = time.Second
			return b
		},
		logger: logger.With().Str("component", "identity-resolver").Logger(),
	}
}

// Resolve returns the account for session. Persistence failures are retried
// and then reported as *model.IdentityResolutionError. The session id is never
// used as an account id.
func (r *Resolver) Resolve(ctx context.Context, session model.Session) (*model.Account, error) {
	session.Email = model.NormalizeEmail(session.Email)
	if session.ID == "" || session.Email == "" {
		return nil, model.ErrMissingSession
	}

	log := r.logger.With().Str("session_id", session.ID).Logger()

	attempts := 0
	var account *model.Account
	operation := func() error {
		attempts++
		acc, err := r.resolveOnce(ctx, session, log)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempts).Msg("account resolution attempt failed")
			return err
		}
		account = acc
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), uint64(r.maxAttempts-1)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		log.Error().Err(err).Int("attempts", attempts).Msg("failed to resolve account")
		return nil, &model.IdentityResolutionError{Attempts: attempts, Err: err}
	}

	return account, nil
}

func (r *Resolver) resolveOnce(ctx context.Context, session model.Session, log zerolog.Logger) (*model.Account, error) {
	account, err := r.accounts.FindBySessionRef(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by session: %w", err)
	}
	if account != nil {
		return account, nil
	}

	account, err = r.accounts.FindByEmail(ctx, session.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	if account != nil {
		if !account.HasSession(session.ID) {
			if err := r.accounts.UpdateSessionRef(ctx, account.ID, session.ID); err != nil {
				return nil, fmt.Errorf("failed to update session ref: %w", err)
			}
			ref := session.ID
			account.SessionRef = &ref
			log.Info().Str("account_id", account.ID.String()).Msg("linked session to existing account")
		}
		return account, nil
	}

	ref := session.ID
	now := time.Now().UTC()
	account = &model.Account{
		ID:         uuid.New(),
		SessionRef: &ref,
		Email:      session.Email,
		FirstName:  session.FirstName,
		LastName:   session.LastName,
		Role:       model.RoleCustomer,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = r.accounts.InsertAccount(ctx, account)
	if err == nil {
		log.Info().Str("account_id", account.ID.String()).Msg("account created")
		return account, nil
	}
	if !errors.Is(err, ErrAccountExists) {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}

	// Lost the race to a concurrent insert; read the winner.
	existing, err := r.accounts.FindBySessionRef(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read account by session: %w", err)
	}
	if existing == nil {
		existing, err = r.accounts.FindByEmail(ctx, session.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to re-read account by email: %w", err)
		}
	}
	if existing == nil {
		return nil, fmt.Errorf("account conflict for session %s but no row found", session.ID)
	}
	return existing, nil
}
