// Package users is the credential store: persistence of user accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophaccount/internal/server/models"
)

// Repository persists users. Lookups return common.ErrorNotFound when no
// row matches; Create returns common.ErrEmailInUse on a duplicate email.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByIdentity(ctx context.Context, identity string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}
