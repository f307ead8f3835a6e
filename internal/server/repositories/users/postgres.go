package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/dbx"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, identity, email, full_name, password_hash, birthday, phone, gender,
		        avatar, avatar_mime_type, status, social, created_at, modified_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (identity, email, full_name, password_hash, birthday, phone, gender,
		                    avatar, avatar_mime_type, status, social)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, modified_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Identity, user.Email, user.FullName, user.PasswordHash, nullTime(user.Birthday),
		user.Phone, user.Gender, user.Avatar, user.AvatarMimeType, user.Status, user.Social,
	).Scan(&user.ID, &user.CreatedAt, &user.ModifiedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrEmailInUse
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE email = $1
		 `
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByIdentity(ctx context.Context, identity string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE identity = $1
		 `
	return r.getOne(ctx, query, identity)
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users
		 SET full_name = $2, birthday = $3, phone = $4, gender = $5,
		     avatar = $6, avatar_mime_type = $7, status = $8, modified_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.FullName, nullTime(user.Birthday), user.Phone, user.Gender,
		user.Avatar, user.AvatarMimeType, user.Status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query :=
		`UPDATE users
		 SET password_hash = $2, modified_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var birthday sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Identity, &user.Email, &user.FullName, &user.PasswordHash, &birthday,
		&user.Phone, &user.Gender, &user.Avatar, &user.AvatarMimeType, &user.Status, &user.Social,
		&user.CreatedAt, &user.ModifiedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if birthday.Valid {
		b := birthday.Time
		user.Birthday = &b
	}
	return user, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505"
}
