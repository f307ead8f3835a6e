package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophaccount/internal/dbx"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/users"
)

// MemoryRepositoryManager serves process-local stores. Repositories ignore
// the DBTX they are given.
type MemoryRepositoryManager struct {
	users  *users.MemoryStore
	tokens *tokens.MemoryStore
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:  users.NewMemoryStore(),
		tokens: tokens.NewMemoryStore(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Runner() dbx.TxRunner { return dbx.NopRunner{} }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return users.NewMemoryRepository(m.users)
}

func (m *MemoryRepositoryManager) Tokens(dbx.DBTX) tokens.Repository {
	return tokens.NewMemoryRepository(m.tokens)
}

func (m *MemoryRepositoryManager) Close() error { return nil }
