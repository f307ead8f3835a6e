// Package session persists the client's current login in the local
// sqlite database so the CLI can resume it after a restart.
package session

import (
	"context"

	"github.com/dmitrijs2005/gophaccount/internal/client/models"
)

// Repository stores at most one session.
//
// Load returns (nil, nil) when nothing is stored.
type Repository interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Clear(ctx context.Context) error
}
