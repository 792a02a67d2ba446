// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"
	"time"

	"account/internal/domain/entity"
)

var (
	// ErrUserNotFound is a domain-specific error returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidUserID is returned when an identifier cannot belong to any user of the store.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrUnsupportedField is returned for lookups on fields that are not indexed.
	ErrUnsupportedField = errors.New("unsupported lookup field")
)

// UserRepository defines the standard operations for user persistence.
// Every operation touches a single document; concurrent updates are last-write-wins.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id string) (*entity.User, error)

	// FindByField retrieves the user whose field equals value exactly.
	FindByField(ctx context.Context, field entity.UserField, value string) (*entity.User, error)

	// FindByOpenResetToken retrieves the user holding token whose expiry is after now.
	FindByOpenResetToken(ctx context.Context, token string, now time.Time) (*entity.User, error)

	// Create persists a new user and fills in the generated ID.
	// A collision on username, email or phone yields domainerrors.ErrUserAlreadyExists.
	Create(ctx context.Context, user *entity.User) error

	// UpdateByID applies the non-nil patch fields and returns the updated user.
	UpdateByID(ctx context.Context, id string, patch *entity.UserPatch) (*entity.User, error)

	// DeleteByID removes the user.
	DeleteByID(ctx context.Context, id string) error
}
