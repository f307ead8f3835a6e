package tokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var tokenRowColumns = []string{
	"id", "user_id", "access_token", "access_token_expires_at", "refresh_token", "refresh_token_expires_at",
	"device_model", "device_brand", "os_name", "os_platform", "os_version",
	"client_name", "client_type", "client_version", "created_at", "modified_at",
}

func tokenRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(tokenRowColumns).AddRow(
		int64(5), int64(7), "acc", now.Add(time.Hour), "ref", now.Add(24*time.Hour),
		"iPhone", "Apple", "iOS", "mobile", "17.1", "Safari", "browser", "17.1", now, now)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+user_tokens\b.*VALUES\s*\(\$1,.*\$13\)\s*RETURNING\s+id,\s*created_at,\s*modified_at\s*$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs(int64(7), "acc", sqlmock.AnyArg(), "ref", sqlmock.AnyArg(),
			"iPhone", "Apple", "iOS", "mobile", "17.1", "Safari", "browser", "17.1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "modified_at"}).AddRow(int64(5), now, now))

	rec := &models.TokenRecord{
		UserID: 7, AccessToken: "acc", RefreshToken: "ref",
		AccessTokenExpiresAt: now.Add(time.Hour), RefreshTokenExpiresAt: now.Add(24 * time.Hour),
		Device: models.DeviceInfo{
			DeviceModel: "iPhone", DeviceBrand: "Apple", OSName: "iOS", OSPlatform: "mobile", OSVersion: "17.1",
			ClientName: "Safari", ClientType: "browser", ClientVersion: "17.1",
		},
	}
	got, err := repo.Create(context.Background(), rec)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 5 {
		t.Fatalf("unexpected id: %d", got.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+user_tokens`).WillReturnError(errors.New("boom"))

	_, err := repo.Create(context.Background(), &models.TokenRecord{UserID: 1})
	if err == nil || !regexp.MustCompile(`db error: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByPair_LocksRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*user_id,.*FROM\s+user_tokens\s+WHERE\s+access_token\s*=\s*\$1\s+AND\s+refresh_token\s*=\s*\$2\s+FOR\s+UPDATE\s*$`

	now := time.Now()
	mock.ExpectQuery(q).WithArgs("acc", "ref").WillReturnRows(tokenRow(now))

	got, err := repo.FindByPair(context.Background(), "acc", "ref")
	if err != nil {
		t.Fatalf("FindByPair error: %v", err)
	}
	if got.ID != 5 || got.UserID != 7 || got.Device.OSName != "iOS" || got.Device.ClientVersion != "17.1" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestFindByPair_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*FOR\s+UPDATE`).WithArgs("acc", "ref").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByPair(context.Background(), "acc", "ref")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestFindLive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,.*FROM\s+user_tokens\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+access_token\s*=\s*\$2\s+AND\s+refresh_token_expires_at\s*>\s*\$3\s*$`

	now := time.Now()
	mock.ExpectQuery(q).WithArgs(int64(7), "acc", now).WillReturnRows(tokenRow(now))

	got, err := repo.FindLive(context.Background(), 7, "acc", now)
	if err != nil {
		t.Fatalf("FindLive error: %v", err)
	}
	if got.RefreshToken != "ref" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestRotate(t *testing.T) {
	q := `(?s)^UPDATE\s+user_tokens\s+SET\s+access_token\s*=\s*\$4,.*WHERE\s+id\s*=\s*\$1\s+AND\s+access_token\s*=\s*\$2\s+AND\s+refresh_token\s*=\s*\$3\s*$`

	next := Rotation{AccessToken: "acc2", RefreshToken: "ref2", AccessTokenExpiresAt: time.Now(), RefreshTokenExpiresAt: time.Now()}

	tests := []struct {
		name     string
		affected int64
		dbErr    error
		want     bool
		wantErr  bool
	}{
		{name: "rotated", affected: 1, want: true},
		{name: "already rotated", affected: 0, want: false},
		{name: "db error", dbErr: errors.New("db err"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			e := mock.ExpectExec(q).WithArgs(int64(5), "acc", "ref", "acc2", next.AccessTokenExpiresAt, "ref2", next.RefreshTokenExpiresAt)
			if tt.dbErr != nil {
				e.WillReturnError(tt.dbErr)
			} else {
				e.WillReturnResult(sqlmock.NewResult(0, tt.affected))
			}

			got, err := repo.Rotate(context.Background(), 5, "acc", "ref", next)
			if tt.wantErr {
				if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
					t.Fatalf("expected wrapped db error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Rotate error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Rotate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeletes(t *testing.T) {
	now := time.Now()

	t.Run("by user and access", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(`(?s)^DELETE\s+FROM\s+user_tokens\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+access_token\s*=\s*\$2\s*$`).
			WithArgs(int64(7), "acc").
			WillReturnResult(sqlmock.NewResult(0, 2))

		n, err := repo.DeleteByUserAndAccess(context.Background(), 7, "acc")
		if err != nil || n != 2 {
			t.Fatalf("got n=%d err=%v", n, err)
		}
	})

	t.Run("by user", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(`(?s)^DELETE\s+FROM\s+user_tokens\s+WHERE\s+user_id\s*=\s*\$1\s*$`).
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 3))

		n, err := repo.DeleteByUser(context.Background(), 7)
		if err != nil || n != 3 {
			t.Fatalf("got n=%d err=%v", n, err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(`(?s)^DELETE\s+FROM\s+user_tokens\s+WHERE\s+refresh_token_expires_at\s*<=\s*\$1\s*$`).
			WithArgs(now).
			WillReturnResult(sqlmock.NewResult(0, 0))

		n, err := repo.DeleteExpired(context.Background(), now)
		if err != nil || n != 0 {
			t.Fatalf("got n=%d err=%v", n, err)
		}
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(`(?s)^DELETE`).WillReturnError(errors.New("db err"))

		_, err := repo.DeleteByUser(context.Background(), 7)
		if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
			t.Fatalf("expected wrapped db error, got %v", err)
		}
	})
}
