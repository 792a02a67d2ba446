// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"account/internal/domain/entity"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new account.
type RegisterInput struct {
	Username string
	Email    string
	Phone    string
	Password string
}

// LoginInput defines the data required to log in. Identifier is an email address or a phone number.
type LoginInput struct {
	Identifier string
	Password   string
}

// UpdateProfileInput carries the fields to change. Nil fields are left untouched.
type UpdateProfileInput struct {
	Username        *string
	Email           *string
	Phone           *string
	ProfileImageURL *string
}

// UploadProfileImageInput carries an uploaded image. The content type is sniffed from Data.
type UploadProfileImageInput struct {
	Filename string
	Data     []byte
}

// ResetPasswordInput defines the data required to complete a password reset.
type ResetPasswordInput struct {
	Token       string
	NewPassword string
}

// --- Output DTOs ---

// UserView is the public representation of a user. It never carries the password verifier or tokens.
type UserView struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	JoinedAt        time.Time `json:"joinedAt"`
	Verified        bool      `json:"verified"`
}

// NewUserView maps a user entity to its public fields.
func NewUserView(user *entity.User) *UserView {
	if user == nil {
		return nil
	}

	return &UserView{
		ID:              user.ID,
		Username:        user.Username,
		Email:           user.Email,
		Phone:           user.Phone,
		ProfileImageURL: user.ProfileImageURL,
		JoinedAt:        user.JoinedAt,
		Verified:        user.Verified,
	}
}

// AuthOutput is returned by registration and login.
type AuthOutput struct {
	User  *UserView `json:"user"`
	Token string    `json:"token"`
}

// AccountUsecase defines the account lifecycle operations.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AccountUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*AuthOutput, error)
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, input *LoginInput) (*AuthOutput, error)
	GetProfile(ctx context.Context, userID string) (*UserView, error)
	UpdateProfile(ctx context.Context, userID string, input *UpdateProfileInput) (*UserView, error)
	UploadProfileImage(ctx context.Context, userID string, input *UploadProfileImageInput) (*UserView, error)
	DeleteAccount(ctx context.Context, userID string) error
	RequestPasswordReset(ctx context.Context, identifier string) error
	ResetPassword(ctx context.Context, input *ResetPasswordInput) error
}
