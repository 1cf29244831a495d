// Package accounts declares the server-side store of Account records and its
// PostgreSQL and in-memory implementations.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/gophid/internal/server/models"
)

// Repository is the AccountStore contract.
//
// Lookups return common.ErrorNotFound when no record matches. Email
// uniqueness is enforced by the store itself: Create and UpdateProfile
// return common.ErrorAlreadyExists when the email is taken.
type Repository interface {
	// Create stores a new account, assigning ID and timestamps.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// ConsumeVerificationToken atomically marks the account holding token as
	// verified and clears the token. A token can be consumed only once.
	ConsumeVerificationToken(ctx context.Context, token string) (*models.Account, error)

	// SetSessionToken replaces the account's session token; nil clears it.
	SetSessionToken(ctx context.Context, id string, token *string) error

	// UpdateProfile applies the non-nil fields of patch.
	UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (*models.Account, error)

	UpdateAvatar(ctx context.Context, id string, avatarURL string) error
}
