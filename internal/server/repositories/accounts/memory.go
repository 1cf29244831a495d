package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in process memory. It enforces the same
// uniqueness rules as the PostgreSQL schema and hands out copies, so callers
// never share state with the store.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.Account
	byEmail map[string]string
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*models.Account),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func clone(a *models.Account) *models.Account {
	c := *a
	c.DisplayName = cloneString(a.DisplayName)
	c.VerificationToken = cloneString(a.VerificationToken)
	c.SessionToken = cloneString(a.SessionToken)
	return &c
}

func (r *MemoryRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[account.Email]; taken {
		return nil, common.ErrorAlreadyExists
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := r.now()
	account.CreatedAt = now
	account.UpdatedAt = now

	r.byID[account.ID] = clone(account)
	r.byEmail[account.Email] = account.ID

	return account, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(a), nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryRepository) ConsumeVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.byID {
		if a.VerificationToken != nil && *a.VerificationToken == token {
			a.Verified = true
			a.VerificationToken = nil
			a.UpdatedAt = r.now()
			return clone(a), nil
		}
	}

	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) SetSessionToken(ctx context.Context, id string, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.SessionToken = cloneString(token)
	a.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if patch.Empty() {
		return clone(a), nil
	}

	if patch.Email != nil && *patch.Email != a.Email {
		if _, taken := r.byEmail[*patch.Email]; taken {
			return nil, common.ErrorAlreadyExists
		}
		delete(r.byEmail, a.Email)
		a.Email = *patch.Email
		r.byEmail[a.Email] = a.ID
	}
	if patch.DisplayName != nil {
		a.DisplayName = cloneString(patch.DisplayName)
	}
	if patch.Subscription != nil {
		a.Subscription = *patch.Subscription
	}
	a.UpdatedAt = r.now()

	return clone(a), nil
}

func (r *MemoryRepository) UpdateAvatar(ctx context.Context, id string, avatarURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.AvatarURL = avatarURL
	a.UpdatedAt = r.now()
	return nil
}
