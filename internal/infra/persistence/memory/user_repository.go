// Package memory provides an in-process user store for local development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"account/internal/domain/entity"
	domainerrors "account/internal/domain/errors"
	"account/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type userRepository struct {
	mu    sync.RWMutex
	users map[string]*entity.User
	now   func() time.Time
}

// NewUserRepository returns an empty map-backed repository.UserRepository.
func NewUserRepository() repository.UserRepository {
	return &userRepository{
		users: make(map[string]*entity.User),
		now:   time.Now,
	}
}

func (repo *userRepository) FindByID(_ context.Context, id string) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrInvalidUserID
	}

	repo.mu.RLock()
	defer repo.mu.RUnlock()

	user, ok := repo.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return clone(user), nil
}

func (repo *userRepository) FindByField(_ context.Context, field entity.UserField, value string) (*entity.User, error) {
	if !field.IsValid() {
		return nil, errors.Wrapf(repository.ErrUnsupportedField, "field %q", field)
	}

	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, user := range repo.users {
		if v := fieldValue(user, field); v != "" && v == value {
			return clone(user), nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (repo *userRepository) FindByOpenResetToken(_ context.Context, token string, now time.Time) (*entity.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, user := range repo.users {
		if token != "" && user.ResetToken == token && user.HasPendingReset(now) {
			return clone(user), nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (repo *userRepository) Create(_ context.Context, user *entity.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if repo.conflicts("", user.Username, user.Email, user.Phone) {
		return domainerrors.ErrUserAlreadyExists.WrapMessage("username, email or phone already exists")
	}

	stored := clone(user)
	stored.ID = uuid.NewString()
	if stored.JoinedAt.IsZero() {
		stored.JoinedAt = repo.now().UTC()
	}
	repo.users[stored.ID] = stored

	user.ID = stored.ID
	user.JoinedAt = stored.JoinedAt

	return nil
}

func (repo *userRepository) UpdateByID(_ context.Context, id string, patch *entity.UserPatch) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrInvalidUserID
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()

	current, ok := repo.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	updated := clone(current)
	updated.Apply(patch)

	if repo.conflicts(id, updated.Username, updated.Email, updated.Phone) {
		return nil, domainerrors.ErrUserAlreadyExists.WrapMessage("username, email or phone already exists")
	}

	repo.users[id] = updated

	return clone(updated), nil
}

func (repo *userRepository) DeleteByID(_ context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return repository.ErrInvalidUserID
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(repo.users, id)

	return nil
}

// conflicts reports whether another user already holds one of the unique values.
// Callers must hold the write lock.
func (repo *userRepository) conflicts(selfID, username, email, phone string) bool {
	for id, other := range repo.users {
		if id == selfID {
			continue
		}
		if other.Username == username || other.Email == email || other.Phone == phone {
			return true
		}
	}

	return false
}

func fieldValue(user *entity.User, field entity.UserField) string {
	switch field {
	case entity.UserFieldUsername:
		return user.Username
	case entity.UserFieldEmail:
		return user.Email
	case entity.UserFieldPhone:
		return user.Phone
	case entity.UserFieldVerificationToken:
		return user.VerificationToken
	case entity.UserFieldResetToken:
		return user.ResetToken
	default:
		return ""
	}
}

func clone(user *entity.User) *entity.User {
	c := *user
	if user.ResetTokenExpiresAt != nil {
		expiresAt := *user.ResetTokenExpiresAt
		c.ResetTokenExpiresAt = &expiresAt
	}

	return &c
}
