// Package handler contains the HTTP handlers for the application.
package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"account/internal/delivery/http/middleware"
	"account/internal/delivery/http/response"
	domainerrors "account/internal/domain/errors"
	"account/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// ImageFormField is the multipart field carrying a profile image.
const ImageFormField = "image"

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,loose_email"`
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required"`
}

func (r *registerRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Username        *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email           *string `json:"email" validate:"omitempty,loose_email"`
	Phone           *string `json:"phone" validate:"omitempty,phone"`
	ProfileImageURL *string `json:"profileImageUrl" validate:"omitempty,url"`
}

func (r *updateProfileRequest) normalize() {
	for _, field := range []*string{r.Username, r.Email, r.Phone, r.ProfileImageURL} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
}

// forgotPasswordRequest accepts an email or phone as identifier; older clients send email.
type forgotPasswordRequest struct {
	Identifier string `json:"identifier" validate:"required_without=Email"`
	Email      string `json:"email" validate:"omitempty,loose_email"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required"`
}

// AccountHandler holds dependencies for account-related handlers.
type AccountHandler struct {
	uc     usecase.AccountUsecase
	logger *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler, injected by Fx.
func NewAccountHandler(uc usecase.AccountUsecase, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		uc:     uc,
		logger: logger,
	}
}

// normalizer is implemented by requests whose fields are trimmed before validation.
type normalizer interface {
	normalize()
}

// bind decodes the body into req, trims it and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("request body is not valid JSON")
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}

	return errors.WithStack(c.Validate(req))
}

// Register handles account registration.
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	output, err := h.uc.Register(c.Request().Context(), &usecase.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, output, "User registered successfully. Please check your email to verify your account.")
}

// VerifyEmail handles the link emailed at registration.
func (h *AccountHandler) VerifyEmail(c echo.Context) error {
	if err := h.uc.VerifyEmail(c.Request().Context(), c.Param("token")); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Email verified successfully")
}

// Login handles the login request.
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	output, err := h.uc.Login(c.Request().Context(), &usecase.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, output, "Login successful")
}

// GetProfile returns the authenticated user's profile.
func (h *AccountHandler) GetProfile(c echo.Context) error {
	userID, err := authenticatedUser(c)
	if err != nil {
		return err
	}

	view, err := h.uc.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, view, "Profile retrieved successfully")
}

// UpdateProfile changes the supplied profile fields.
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	userID, err := authenticatedUser(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	view, err := h.uc.UpdateProfile(c.Request().Context(), userID, &usecase.UpdateProfileInput{
		Username:        req.Username,
		Email:           req.Email,
		Phone:           req.Phone,
		ProfileImageURL: req.ProfileImageURL,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, view, "Profile updated successfully")
}

// UploadProfileImage stores the multipart image and returns the updated profile.
func (h *AccountHandler) UploadProfileImage(c echo.Context) error {
	userID, err := authenticatedUser(c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile(ImageFormField)
	if err != nil {
		return domainerrors.ErrImageInvalid.WithDetails("no image uploaded")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errors.Wrap(err, "failed to open uploaded image")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return errors.Wrap(err, "failed to read uploaded image")
	}

	view, err := h.uc.UploadProfileImage(c.Request().Context(), userID, &usecase.UploadProfileImageInput{
		Filename: fileHeader.Filename,
		Data:     data,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, view, "Profile picture updated successfully")
}

// DeleteAccount removes the authenticated user.
func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	userID, err := authenticatedUser(c)
	if err != nil {
		return err
	}

	if err := h.uc.DeleteAccount(c.Request().Context(), userID); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "User deleted successfully")
}

// ForgotPassword emails a reset link. The response never carries the token.
func (h *AccountHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}

	if err := h.uc.RequestPasswordReset(c.Request().Context(), identifier); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Password reset link sent to your email")
}

// ResetPassword completes a reset with the token from the emailed link.
func (h *AccountHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	err := h.uc.ResetPassword(c.Request().Context(), &usecase.ResetPasswordInput{
		Token:       c.Param("token"),
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Password has been reset successfully")
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "Service is healthy")
}

func authenticatedUser(c echo.Context) (string, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return "", domainerrors.ErrTokenMissing
	}

	return userID, nil
}
