package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
)

// MemoryStore keeps users in process memory. It is shared by every
// MemoryRepository handed out for it.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[int64]models.User)}
}

// MemoryRepository is a Repository over a MemoryStore.
type MemoryRepository struct {
	store *MemoryStore
}

func NewMemoryRepository(store *MemoryStore) *MemoryRepository {
	return &MemoryRepository{store: store}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.byID {
		if strings.EqualFold(u.Email, user.Email) || u.Identity == user.Identity {
			return nil, common.ErrEmailInUse
		}
	}

	s.nextID++
	now := time.Now().UTC()
	user.ID = s.nextID
	user.CreatedAt = now
	user.ModifiedAt = now
	s.byID[user.ID] = *user

	return user, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *MemoryRepository) GetByIdentity(ctx context.Context, identity string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Identity == identity })
}

func (r *MemoryRepository) Update(ctx context.Context, user *models.User) error {
	return r.modify(user.ID, func(u *models.User) {
		u.FullName = user.FullName
		u.Birthday = user.Birthday
		u.Phone = user.Phone
		u.Gender = user.Gender
		u.Avatar = user.Avatar
		u.AvatarMimeType = user.AvatarMimeType
		u.Status = user.Status
	})
}

func (r *MemoryRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.modify(id, func(u *models.User) {
		u.PasswordHash = passwordHash
	})
}

func (r *MemoryRepository) find(match func(u *models.User) bool) (*models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byID {
		if match(&u) {
			found := u
			return &found, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) modify(id int64, fn func(u *models.User)) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(&u)
	u.ModifiedAt = time.Now().UTC()
	s.byID[id] = u
	return nil
}
