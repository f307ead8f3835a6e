// Package repomanager vends repositories bound to a database handle and
// owns the transaction runner and schema migrations of the chosen backend.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophaccount/internal/dbx"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Runner() dbx.TxRunner
	Users(db dbx.DBTX) users.Repository
	Tokens(db dbx.DBTX) tokens.Repository
	Close() error
}
