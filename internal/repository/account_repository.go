package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/identity"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type accountRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAccountRepository creates a new PostgreSQL-backed account repository.
func NewAccountRepository(pool *pgxpool.Pool, logger zerolog.Logger) AccountRepository {
	return &accountRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "account").Logger(),
	}
}

const accountColumns = `id, session_ref, email, first_name, last_name, role, created_at, updated_at`

func (r *accountRepository) findOne(ctx context.Context, where string, arg any) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where

	var a model.Account
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID,
		&a.SessionRef,
		&a.Email,
		&a.FirstName,
		&a.LastName,
		&a.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("lookup", where).Msg("failed to query account")
		return nil, fmt.Errorf("failed to query account: %w", err)
	}

	return &a, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *accountRepository) FindBySessionRef(ctx context.Context, sessionRef string) (*model.Account, error) {
	return r.findOne(ctx, "session_ref = $1", sessionRef)
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.findOne(ctx, "email = $1", model.NormalizeEmail(email))
}

// InsertAccount returns identity.ErrAccountExists on a session ref or email conflict.
func (r *accountRepository) InsertAccount(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (id, session_ref, email, first_name, last_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.SessionRef,
		model.NormalizeEmail(account.Email),
		account.FirstName,
		account.LastName,
		account.Role,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Debug().Str("email", account.Email).Msg("account already exists")
			return identity.ErrAccountExists
		}
		r.logger.Error().Err(err).Str("account_id", account.ID.String()).Msg("failed to insert account")
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

func (r *accountRepository) UpdateSessionRef(ctx context.Context, accountID uuid.UUID, sessionRef string) error {
	query := `UPDATE accounts SET session_ref = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, accountID, sessionRef)
	if err != nil {
		if isUniqueViolation(err) {
			return identity.ErrAccountExists
		}
		r.logger.Error().Err(err).Str("account_id", accountID.String()).Msg("failed to update session ref")
		return fmt.Errorf("failed to update session ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s not found", accountID)
	}

	return nil
}
