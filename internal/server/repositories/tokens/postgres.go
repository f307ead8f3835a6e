package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/dbx"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
)

const tokenColumns = `id, user_id, access_token, access_token_expires_at, refresh_token, refresh_token_expires_at,
		        device_model, device_brand, os_name, os_platform, os_version,
		        client_name, client_type, client_version, created_at, modified_at`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.TokenRecord) (*models.TokenRecord, error) {
	query := `
		INSERT INTO user_tokens (user_id, access_token, access_token_expires_at, refresh_token, refresh_token_expires_at,
		                         device_model, device_brand, os_name, os_platform, os_version,
		                         client_name, client_type, client_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, modified_at
	`
	d := rec.Device
	err := r.db.QueryRowContext(ctx, query,
		rec.UserID, rec.AccessToken, rec.AccessTokenExpiresAt, rec.RefreshToken, rec.RefreshTokenExpiresAt,
		d.DeviceModel, d.DeviceBrand, d.OSName, d.OSPlatform, d.OSVersion,
		d.ClientName, d.ClientType, d.ClientVersion,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.ModifiedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) FindByPair(ctx context.Context, accessToken, refreshToken string) (*models.TokenRecord, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM user_tokens
		WHERE access_token = $1 AND refresh_token = $2
		FOR UPDATE
	`
	return r.getOne(ctx, query, accessToken, refreshToken)
}

func (r *PostgresRepository) FindLive(ctx context.Context, userID int64, accessToken string, now time.Time) (*models.TokenRecord, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM user_tokens
		WHERE user_id = $1 AND access_token = $2 AND refresh_token_expires_at > $3
	`
	return r.getOne(ctx, query, userID, accessToken, now)
}

func (r *PostgresRepository) Rotate(ctx context.Context, id int64, oldAccess, oldRefresh string, next Rotation) (bool, error) {
	query := `
		UPDATE user_tokens
		SET access_token = $4, access_token_expires_at = $5,
		    refresh_token = $6, refresh_token_expires_at = $7, modified_at = now()
		WHERE id = $1 AND access_token = $2 AND refresh_token = $3
	`
	res, err := r.db.ExecContext(ctx, query, id, oldAccess, oldRefresh,
		next.AccessToken, next.AccessTokenExpiresAt, next.RefreshToken, next.RefreshTokenExpiresAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) DeleteByUserAndAccess(ctx context.Context, userID int64, accessToken string) (int64, error) {
	query := `
		DELETE FROM user_tokens
		WHERE user_id = $1 AND access_token = $2
	`
	return r.exec(ctx, query, userID, accessToken)
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	query := `
		DELETE FROM user_tokens
		WHERE user_id = $1
	`
	return r.exec(ctx, query, userID)
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM user_tokens
		WHERE refresh_token_expires_at <= $1
	`
	return r.exec(ctx, query, now)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.TokenRecord, error) {
	rec := &models.TokenRecord{}
	d := &rec.Device
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&rec.ID, &rec.UserID, &rec.AccessToken, &rec.AccessTokenExpiresAt, &rec.RefreshToken, &rec.RefreshTokenExpiresAt,
		&d.DeviceModel, &d.DeviceBrand, &d.OSName, &d.OSPlatform, &d.OSVersion,
		&d.ClientName, &d.ClientType, &d.ClientVersion, &rec.CreatedAt, &rec.ModifiedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}
