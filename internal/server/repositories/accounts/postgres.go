package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/dbx"
	"github.com/dmitrijs2005/gophid/internal/server/models"
	"github.com/google/uuid"
)

const emailConstraint = "accounts_email_key"

const accountColumns = `id, email, password_hash, display_name, subscription, avatar_url,
	verified, verification_token, session_token, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.DisplayName, &a.Subscription, &a.AvatarURL,
		&a.Verified, &a.VerificationToken, &a.SessionToken, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// mapWriteError turns a violation of the email constraint into
// common.ErrorAlreadyExists.
func mapWriteError(err error) error {
	if name, ok := dbx.UniqueViolation(err); ok && name == emailConstraint {
		return common.ErrorAlreadyExists
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO accounts (id, email, password_hash, display_name, subscription, avatar_url, verified, verification_token)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.Email, account.PasswordHash, account.DisplayName, string(account.Subscription),
		account.AvatarURL, account.Verified, account.VerificationToken,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		return nil, mapWriteError(err)
	}

	return account, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) ConsumeVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	query :=
		`UPDATE accounts SET verified = TRUE, verification_token = NULL, updated_at = NOW()
		 WHERE verification_token = $1
		 RETURNING ` + accountColumns

	return scanAccount(r.db.QueryRowContext(ctx, query, token))
}

func (r *PostgresRepository) SetSessionToken(ctx context.Context, id string, token *string) error {
	query := `UPDATE accounts SET session_token = $2, updated_at = NOW() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (*models.Account, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}

	var subscription *string
	if patch.Subscription != nil {
		s := string(*patch.Subscription)
		subscription = &s
	}

	query :=
		`UPDATE accounts SET
			display_name = COALESCE($2, display_name),
			email = COALESCE($3, email),
			subscription = COALESCE($4, subscription),
			updated_at = NOW()
		 WHERE id = $1
		 RETURNING ` + accountColumns

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id, patch.DisplayName, patch.Email, subscription))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, mapWriteError(errors.Unwrap(err))
	}

	return account, nil
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id string, avatarURL string) error {
	query := `UPDATE accounts SET avatar_url = $2, updated_at = NOW() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, avatarURL)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
