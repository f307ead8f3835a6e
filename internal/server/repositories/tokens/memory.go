package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
)

// MemoryStore keeps token records in process memory. Rotate is a
// compare-and-swap under the store mutex, which gives the same outcome for
// concurrent refreshes as the conditional UPDATE in Postgres.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]models.TokenRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[int64]models.TokenRecord)}
}

type MemoryRepository struct {
	store *MemoryStore
}

func NewMemoryRepository(store *MemoryStore) *MemoryRepository {
	return &MemoryRepository{store: store}
}

func (r *MemoryRepository) Create(ctx context.Context, rec *models.TokenRecord) (*models.TokenRecord, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now().UTC()
	rec.ID = s.nextID
	rec.CreatedAt = now
	rec.ModifiedAt = now
	s.byID[rec.ID] = *rec
	return rec, nil
}

func (r *MemoryRepository) FindByPair(ctx context.Context, accessToken, refreshToken string) (*models.TokenRecord, error) {
	return r.find(func(rec *models.TokenRecord) bool {
		return rec.AccessToken == accessToken && rec.RefreshToken == refreshToken
	})
}

func (r *MemoryRepository) FindLive(ctx context.Context, userID int64, accessToken string, now time.Time) (*models.TokenRecord, error) {
	return r.find(func(rec *models.TokenRecord) bool {
		return rec.UserID == userID && rec.AccessToken == accessToken && rec.RefreshTokenExpiresAt.After(now)
	})
}

func (r *MemoryRepository) Rotate(ctx context.Context, id int64, oldAccess, oldRefresh string, next Rotation) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok || rec.AccessToken != oldAccess || rec.RefreshToken != oldRefresh {
		return false, nil
	}
	rec.AccessToken = next.AccessToken
	rec.AccessTokenExpiresAt = next.AccessTokenExpiresAt
	rec.RefreshToken = next.RefreshToken
	rec.RefreshTokenExpiresAt = next.RefreshTokenExpiresAt
	rec.ModifiedAt = time.Now().UTC()
	s.byID[id] = rec
	return true, nil
}

func (r *MemoryRepository) DeleteByUserAndAccess(ctx context.Context, userID int64, accessToken string) (int64, error) {
	return r.deleteWhere(func(rec *models.TokenRecord) bool {
		return rec.UserID == userID && rec.AccessToken == accessToken
	}), nil
}

func (r *MemoryRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	return r.deleteWhere(func(rec *models.TokenRecord) bool { return rec.UserID == userID }), nil
}

func (r *MemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(func(rec *models.TokenRecord) bool { return !rec.RefreshTokenExpiresAt.After(now) }), nil
}

func (r *MemoryRepository) find(match func(rec *models.TokenRecord) bool) (*models.TokenRecord, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.byID {
		if match(&rec) {
			found := rec
			return &found, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) deleteWhere(match func(rec *models.TokenRecord) bool) int64 {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, rec := range s.byID {
		if match(&rec) {
			delete(s.byID, id)
			n++
		}
	}
	return n
}
