// Package repomanager wires storage backends: it vends the account store and
// owns the lifetime of the underlying connection.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophid/internal/server/repositories/accounts"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Accounts() accounts.Repository
	Close() error
}

// MemoryRepositoryManager serves a process-local account store. It is used
// when no database DSN is configured.
type MemoryRepositoryManager struct {
	accounts *accounts.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{accounts: accounts.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) RunMigrations(ctx context.Context) error { return nil }

func (m *MemoryRepositoryManager) Accounts() accounts.Repository { return m.accounts }

func (m *MemoryRepositoryManager) Close() error { return nil }
