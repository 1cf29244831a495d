// Package services contains server-side business logic. IdentityService runs
// the account lifecycle (registration, verification, login, logout and
// profile updates); AvatarPipeline ingests uploaded avatar images.
package services

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/cryptox"
	"github.com/dmitrijs2005/gophid/internal/logging"
	"github.com/dmitrijs2005/gophid/internal/server/auth"
	"github.com/dmitrijs2005/gophid/internal/server/config"
	"github.com/dmitrijs2005/gophid/internal/server/mail"
	"github.com/dmitrijs2005/gophid/internal/server/metrics"
	"github.com/dmitrijs2005/gophid/internal/server/models"
	"github.com/dmitrijs2005/gophid/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophid/internal/server/repositories/repomanager"
)

// User-facing messages.
const (
	MsgEmailInUse        = "Email in use"
	MsgUserNotFound      = "User not found"
	MsgWrongCredentials  = "Email or password is wrong"
	MsgMissingCredential = "Email or password is missing"
	MsgAlreadyVerified   = "Verification has already been passed"
	MsgNotAuthorized     = "Not authorized"
	MsgNotFound          = "Not found"
)

// Profile is the public projection returned by registration and /current.
type Profile struct {
	Email        string
	Subscription models.Subscription
	AvatarURL    string
}

// Session is the result of a successful login.
type Session struct {
	Token string
	User  Profile
}

type RegisterInput struct {
	Email        string
	Password     string
	DisplayName  *string
	Subscription *models.Subscription
}

type IdentityService struct {
	accounts   accounts.Repository
	mailer     mail.Dispatcher
	tokens     TokenIssuer
	log        logging.Logger
	metrics    *metrics.Metrics
	secret     []byte
	sessionTTL time.Duration
	baseURL    string
}

// NewIdentityService wires the service to the account store, the mail
// dispatcher and the token issuer. m may be nil.
func NewIdentityService(rm repomanager.RepositoryManager, mailer mail.Dispatcher, tokens TokenIssuer,
	cfg *config.Config, log logging.Logger, m *metrics.Metrics) *IdentityService {
	return &IdentityService{
		accounts:   rm.Accounts(),
		mailer:     mailer,
		tokens:     tokens,
		log:        log.With("module", "identity"),
		metrics:    m,
		secret:     []byte(cfg.SecretKey),
		sessionTTL: cfg.SessionTTL,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// NormalizeEmail trims and lower-cases an address. Stored emails are always
// normalised, so lookups must be too.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GravatarURL is the default avatar for a freshly registered account.
func GravatarURL(email string) string {
	sum := md5.Sum([]byte(NormalizeEmail(email)))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=identicon"
}

// VerificationLink is the URL mailed to the account owner.
func (s *IdentityService) VerificationLink(token string) string {
	return s.baseURL + "/users/verify/" + url.PathEscape(token)
}

// Register creates an unverified account and mails its verification link.
// Email uniqueness is left to the store, so concurrent registrations for the
// same address yield exactly one account.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (profile *Profile, err error) {
	defer func() { s.metrics.ObserveRegistration(err) }()

	email := NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, common.NewError(common.ErrorBadRequest, MsgMissingCredential)
	}

	subscription := models.SubscriptionFree
	if in.Subscription != nil {
		if !in.Subscription.Valid() {
			return nil, common.NewError(common.ErrorBadRequest, "Invalid subscription")
		}
		subscription = *in.Subscription
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	token, err := s.tokens.Issue()
	if err != nil {
		return nil, fmt.Errorf("error issuing verification token: %w", err)
	}

	account, err := s.accounts.Create(ctx, &models.Account{
		Email:             email,
		PasswordHash:      hash,
		DisplayName:       in.DisplayName,
		Subscription:      subscription,
		AvatarURL:         GravatarURL(email),
		VerificationToken: &token,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.NewError(common.ErrorConflict, MsgEmailInUse)
		}
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	s.log.Info(ctx, "account registered", "account_id", account.ID)

	if err := s.sendVerification(ctx, account.Email, token); err != nil {
		return nil, err
	}

	return &Profile{Email: account.Email, Subscription: account.Subscription, AvatarURL: account.AvatarURL}, nil
}

// Verify consumes a verification token. A token works exactly once; a
// repeated call fails with NotFound.
func (s *IdentityService) Verify(ctx context.Context, token string) (err error) {
	defer func() { s.metrics.ObserveVerification(err) }()

	if token == "" {
		return common.NewError(common.ErrorNotFound, MsgUserNotFound)
	}

	account, err := s.accounts.ConsumeVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NewError(common.ErrorNotFound, MsgUserNotFound)
		}
		return fmt.Errorf("error verifying account: %w", err)
	}

	s.log.Info(ctx, "account verified", "account_id", account.ID)
	return nil
}

// ResendVerification mails the existing verification token again.
func (s *IdentityService) ResendVerification(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return common.NewError(common.ErrorBadRequest, "missing required field email")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NewError(common.ErrorNotFound, MsgUserNotFound)
		}
		return fmt.Errorf("error loading account: %w", err)
	}

	if account.Verified {
		return common.NewError(common.ErrorBadRequest, MsgAlreadyVerified)
	}
	if account.VerificationToken == nil {
		return fmt.Errorf("unverified account %s has no verification token", account.ID)
	}

	return s.sendVerification(ctx, account.Email, *account.VerificationToken)
}

// dummyHash is compared against when the email is unknown so that both
// failure paths of Login cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() string {
	h, _ := cryptox.HashPassword("gophid-timing-equaliser")
	return h
})

// Login checks the credential, then the verification state, and starts a
// session that replaces any previous one.
func (s *IdentityService) Login(ctx context.Context, email, password string) (session *Session, err error) {
	defer func() { s.metrics.ObserveLogin(err) }()

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.NewError(common.ErrorBadRequest, MsgMissingCredential)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = cryptox.ComparePassword(dummyHash(), password)
			return nil, common.NewError(common.ErrorUnauthorized, MsgWrongCredentials)
		}
		return nil, fmt.Errorf("error loading account: %w", err)
	}

	ok, err := cryptox.ComparePassword(account.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("error checking password: %w", err)
	}
	if !ok {
		return nil, common.NewError(common.ErrorUnauthorized, MsgWrongCredentials)
	}

	if !account.Verified {
		return nil, common.NewError(common.ErrorNotFound, MsgUserNotFound)
	}

	token, err := auth.GenerateToken(account.ID, s.secret, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("error generating session token: %w", err)
	}

	if err := s.accounts.SetSessionToken(ctx, account.ID, &token); err != nil {
		return nil, fmt.Errorf("error storing session token: %w", err)
	}

	s.log.Info(ctx, "session started", "account_id", account.ID)

	return &Session{
		Token: token,
		User:  Profile{Email: account.Email, Subscription: account.Subscription, AvatarURL: account.AvatarURL},
	}, nil
}

// Logout clears the account's session token.
func (s *IdentityService) Logout(ctx context.Context, accountID string) error {
	if err := s.accounts.SetSessionToken(ctx, accountID, nil); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NewError(common.ErrorUnauthorized, MsgNotAuthorized)
		}
		return fmt.Errorf("error clearing session token: %w", err)
	}

	s.log.Info(ctx, "session ended", "account_id", accountID)
	return nil
}

// UpdateProfile applies a sparse patch. An empty patch returns the account
// unchanged.
func (s *IdentityService) UpdateProfile(ctx context.Context, accountID string, patch models.ProfilePatch) (*models.Account, error) {
	if patch.Email != nil {
		email := NormalizeEmail(*patch.Email)
		if email == "" {
			return nil, common.NewError(common.ErrorBadRequest, "email must not be empty")
		}
		patch.Email = &email
	}
	if patch.Subscription != nil && !patch.Subscription.Valid() {
		return nil, common.NewError(common.ErrorBadRequest, "Invalid subscription")
	}

	account, err := s.accounts.UpdateProfile(ctx, accountID, patch)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.NewError(common.ErrorNotFound, MsgNotFound)
		case errors.Is(err, common.ErrorAlreadyExists):
			return nil, common.NewError(common.ErrorConflict, MsgEmailInUse)
		}
		return nil, fmt.Errorf("error updating profile: %w", err)
	}

	return account, nil
}

// CurrentProfile returns the projection of the authenticated account.
func (s *IdentityService) CurrentProfile(ctx context.Context, accountID string) (*Profile, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorUnauthorized, MsgNotAuthorized)
		}
		return nil, fmt.Errorf("error loading account: %w", err)
	}

	return &Profile{Email: account.Email, Subscription: account.Subscription, AvatarURL: account.AvatarURL}, nil
}

// Authenticate resolves a bearer token to its account. The token must be
// validly signed, unexpired and still be the account's current session.
func (s *IdentityService) Authenticate(ctx context.Context, token string) (*models.Account, error) {
	unauthorized := common.NewError(common.ErrorUnauthorized, MsgNotAuthorized)

	if token == "" {
		return nil, unauthorized
	}

	accountID, err := auth.GetUserIDFromToken(token, s.secret)
	if err != nil {
		s.log.Debug(ctx, "rejected session token", "error", err)
		return nil, unauthorized
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, unauthorized
		}
		return nil, fmt.Errorf("error loading account: %w", err)
	}

	if account.SessionToken == nil || subtle.ConstantTimeCompare([]byte(*account.SessionToken), []byte(token)) != 1 {
		return nil, unauthorized
	}

	return account, nil
}

func (s *IdentityService) sendVerification(ctx context.Context, email, token string) error {
	msg, err := mail.VerificationMessage(email, s.VerificationLink(token))
	if err != nil {
		return fmt.Errorf("error rendering verification email: %w", err)
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Error(ctx, "verification email not dispatched", "to", email, "error", err)
		return fmt.Errorf("error sending verification email: %w", err)
	}

	return nil
}
