package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/contacts-identity/internal/domain/entity"
	"github.com/oksasatya/contacts-identity/internal/domain/repository"
)

// UserRepository keeps users in a map guarded by a mutex.
// Used by tests and by STORE_DRIVER=memory for local runs.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*entity.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*entity.User)}
}

// clone returns a copy so callers never share state with the map.
func clone(u *entity.User) *entity.User {
	c := *u
	if u.Token != nil {
		t := *u.Token
		c.Token = &t
	}
	return &c
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[u.ID] = clone(u)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Email == email })
}

func (r *UserRepository) GetByVerificationToken(_ context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	return r.find(func(u *entity.User) bool { return u.VerificationToken == token })
}

func (r *UserRepository) find(match func(u *entity.User) bool) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) UpdateToken(_ context.Context, id string, token *string) error {
	return r.update(id, func(u *entity.User) {
		if token == nil {
			u.Token = nil
			return
		}
		t := *token
		u.Token = &t
	})
}

func (r *UserRepository) UpdateAvatar(_ context.Context, id, avatarURL string) error {
	return r.update(id, func(u *entity.User) { u.AvatarURL = avatarURL })
}

func (r *UserRepository) SetVerificationToken(_ context.Context, id, token string) error {
	return r.update(id, func(u *entity.User) { u.VerificationToken = token })
}

func (r *UserRepository) MarkVerified(_ context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || token == "" || u.VerificationToken != token {
		return repository.ErrNotFound
	}
	u.Verified = true
	u.VerificationToken = ""
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) update(id string, fn func(u *entity.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
