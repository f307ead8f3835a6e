// Package tokens is the token store: one row per device session holding the
// current access/refresh pair.
package tokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/server/models"
)

// Rotation carries the replacement values written by Rotate.
type Rotation struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// Repository persists token records.
//
// FindByPair locks the row for the rest of the surrounding transaction.
// Rotate only updates the row when it still holds oldAccess/oldRefresh and
// reports whether it did.
type Repository interface {
	Create(ctx context.Context, rec *models.TokenRecord) (*models.TokenRecord, error)
	FindByPair(ctx context.Context, accessToken, refreshToken string) (*models.TokenRecord, error)
	FindLive(ctx context.Context, userID int64, accessToken string, now time.Time) (*models.TokenRecord, error)
	Rotate(ctx context.Context, id int64, oldAccess, oldRefresh string, next Rotation) (bool, error)
	DeleteByUserAndAccess(ctx context.Context, userID int64, accessToken string) (int64, error)
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
