package services

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophid/internal/server/config"
	"github.com/dmitrijs2005/gophid/internal/server/mail"
	"github.com/dmitrijs2005/gophid/internal/server/models"
	"github.com/dmitrijs2005/gophid/internal/server/repositories/accounts"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		SecretKey:     "k",
		SessionTTL:    time.Hour,
		BaseURL:       "http://localhost:8080/",
		TempDir:       t.TempDir(),
		AvatarTimeout: 5 * time.Second,
	}
}

// fakeMailer records every message it is asked to send.
type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) messages() []mail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mail.Message(nil), f.sent...)
}

// seqTokens issues tok-1, tok-2, ...
type seqTokens struct {
	mu  sync.Mutex
	n   int
	err error
}

func (s *seqTokens) Issue() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.n++
	return "tok-" + strconv.Itoa(s.n), nil
}

// faultyRepo wraps a working repository and fails selected calls.
type faultyRepo struct {
	accounts.Repository
	getByEmailErr   error
	setSessionErr   error
	updateAvatarErr error
	updateCalls     int
}

func (f *faultyRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if f.getByEmailErr != nil {
		return nil, f.getByEmailErr
	}
	return f.Repository.GetByEmail(ctx, email)
}

func (f *faultyRepo) SetSessionToken(ctx context.Context, id string, token *string) error {
	if f.setSessionErr != nil {
		return f.setSessionErr
	}
	return f.Repository.SetSessionToken(ctx, id, token)
}

func (f *faultyRepo) UpdateAvatar(ctx context.Context, id, url string) error {
	f.updateCalls++
	if f.updateAvatarErr != nil {
		return f.updateAvatarErr
	}
	return f.Repository.UpdateAvatar(ctx, id, url)
}

type fakeRepoManager struct {
	repo accounts.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context) error { return nil }
func (m *fakeRepoManager) Accounts() accounts.Repository       { return m.repo }
func (m *fakeRepoManager) Close() error                        { return nil }
