// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"account/internal/domain/entity"
	domainerrors "account/internal/domain/errors"
	"account/internal/domain/repository"
	"account/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// userRepository implements the repository.UserRepository interface using GORM.
type userRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewUserRepository is the constructor for userRepository.
// It returns the repository as a repository.UserRepository interface, adhering to dependency inversion.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{
		db:  db,
		now: time.Now,
	}
}

// FindByID retrieves a single user by their unique ID.
func (repo *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.ErrInvalidUserID
	}

	return repo.first(ctx, "failed to find user by id", "id = ?", userID)
}

// FindByField retrieves the user whose column equals value.
func (repo *userRepository) FindByField(ctx context.Context, field entity.UserField, value string) (*entity.User, error) {
	if !field.IsValid() {
		return nil, errors.Wrapf(repository.ErrUnsupportedField, "field %q", field)
	}

	return repo.first(ctx, "failed to find user by "+field.String(), field.String()+" = ?", value)
}

// FindByOpenResetToken retrieves the user holding token while it is unexpired.
func (repo *userRepository) FindByOpenResetToken(ctx context.Context, token string, now time.Time) (*entity.User, error) {
	return repo.first(ctx, "failed to find user by reset token",
		"reset_token = ? AND reset_token_expires_at > ?", token, now)
}

// Create persists a new user entity to the database.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	userM := fromUserDomain(user)
	userM.ID = uuid.New()
	if userM.JoinedAt.IsZero() {
		userM.JoinedAt = repo.now().UTC()
	}

	if err := repo.db.WithContext(ctx).Create(userM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrUserAlreadyExists.WrapMessage("username, email or phone already exists")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required user information")
		}
		// For other database errors, return a generic database error
		return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
	}

	// Update the user entity with the generated ID and timestamps
	user.ID = userM.ID.String()
	user.JoinedAt = userM.JoinedAt

	return nil
}

// UpdateByID applies the provided patch fields and reloads the row.
func (repo *userRepository) UpdateByID(ctx context.Context, id string, patch *entity.UserPatch) (*entity.User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.ErrInvalidUserID
	}

	updates := toUpdateColumns(patch)
	if len(updates) > 0 {
		result := repo.db.WithContext(ctx).
			Model(&model.UserModel{}).
			Where("id = ?", userID).
			Updates(updates)
		if result.Error != nil {
			if isUniqueConstraintViolation(result.Error) {
				return nil, domainerrors.ErrUserAlreadyExists.WrapMessage("username, email or phone already exists")
			}

			return nil, domainerrors.NewDatabaseExecuteError(result.Error, "failed to update user")
		}
		if result.RowsAffected == 0 {
			return nil, repository.ErrUserNotFound
		}
	}

	return repo.first(ctx, "failed to reload user", "id = ?", userID)
}

// DeleteByID removes the user row.
func (repo *userRepository) DeleteByID(ctx context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return repository.ErrInvalidUserID
	}

	result := repo.db.WithContext(ctx).Where("id = ?", userID).Delete(&model.UserModel{})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete user")
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

func (repo *userRepository) first(ctx context.Context, action, query string, args ...any) (*entity.User, error) {
	var userM model.UserModel
	err := repo.db.WithContext(ctx).Where(query, args...).First(&userM).Error
	if err != nil {
		// If the error is 'record not found', return a domain-specific error.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, action)
	}

	// Map the persistence model back to a pure domain entity before returning.
	return toUserDomain(&userM), nil
}

// --- Mapper Functions ---
// These helpers convert between domain entities and persistence models.

// toUserDomain converts a GORM UserModel to a domain User entity.
func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	return &entity.User{
		ID:                  data.ID.String(),
		Username:            data.Username,
		Email:               data.Email,
		Phone:               data.Phone,
		PasswordHash:        data.PasswordHash,
		ProfileImageURL:     data.ProfileImageURL,
		JoinedAt:            data.JoinedAt,
		Verified:            data.Verified,
		VerificationToken:   derefString(data.VerificationToken),
		ResetToken:          derefString(data.ResetToken),
		ResetTokenExpiresAt: data.ResetTokenExpiresAt,
	}
}

// fromUserDomain converts a domain User entity to a GORM UserModel for persistence.
func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	return &model.UserModel{
		Username:            data.Username,
		Email:               data.Email,
		Phone:               data.Phone,
		PasswordHash:        data.PasswordHash,
		ProfileImageURL:     data.ProfileImageURL,
		JoinedAt:            data.JoinedAt,
		Verified:            data.Verified,
		VerificationToken:   nullableString(data.VerificationToken),
		ResetToken:          nullableString(data.ResetToken),
		ResetTokenExpiresAt: data.ResetTokenExpiresAt,
	}
}

// toUpdateColumns translates a patch into the column map handed to Updates.
// Cleared tokens become NULL.
func toUpdateColumns(patch *entity.UserPatch) map[string]any {
	updates := make(map[string]any)
	if patch == nil {
		return updates
	}

	if patch.Username != nil {
		updates["username"] = *patch.Username
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if patch.ProfileImageURL != nil {
		updates["profile_image_url"] = *patch.ProfileImageURL
	}
	if patch.PasswordHash != nil {
		updates["password_hash"] = *patch.PasswordHash
	}
	if patch.Verified != nil {
		updates["verified"] = *patch.Verified
	}
	if patch.VerificationToken != nil {
		updates["verification_token"] = nullableString(*patch.VerificationToken)
	}
	if patch.ResetToken != nil {
		updates["reset_token"] = nullableString(*patch.ResetToken)
		if *patch.ResetToken == "" {
			updates["reset_token_expires_at"] = nil
		} else if patch.ResetTokenExpiresAt != nil {
			updates["reset_token_expires_at"] = *patch.ResetTokenExpiresAt
		}
	}

	return updates
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
