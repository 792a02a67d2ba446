// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"account/config"
	deliverycontext "account/internal/delivery/context"
	"account/internal/domain/entity"
	domainerrors "account/internal/domain/errors"
	"account/internal/domain/repository"
	"account/internal/domain/service"
	"account/internal/usecase"
	"account/internal/util"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// tokenBytes is the entropy of verification and reset tokens (40 hex characters).
const tokenBytes = 20

// accountService implements the AccountUsecase interface.
type accountService struct {
	userRepo             repository.UserRepository
	hasher               service.PasswordHasher
	tokenService         service.TokenService
	dispatcher           service.NotificationDispatcher
	imageStore           service.ImageStore
	tokenTTL             time.Duration
	resetTTL             time.Duration
	publicBaseURL        string
	requireEmailDelivery bool
	maxImageSize         int64
	imageKeyPrefix       string
	imageBaseURL         string
	logger               *slog.Logger
	now                  func() time.Time
}

// AccountServiceParams holds dependencies for AccountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	UserRepo     repository.UserRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Dispatcher   service.NotificationDispatcher
	ImageStore   service.ImageStore
	Config       *config.Config
	Logger       *slog.Logger
}

// NewAccountService is the constructor for accountService. It receives all dependencies as interfaces.
func NewAccountService(params AccountServiceParams) (usecase.AccountUsecase, error) {
	cfg := params.Config

	maxImageSize, err := humanize.ParseBytes(cfg.Upload.MaxSize)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid upload.maxSize %q", cfg.Upload.MaxSize)
	}

	return &accountService{
		userRepo:             params.UserRepo,
		hasher:               params.Hasher,
		tokenService:         params.TokenService,
		dispatcher:           params.Dispatcher,
		imageStore:           params.ImageStore,
		tokenTTL:             cfg.Auth.TokenTTL,
		resetTTL:             cfg.Account.ResetTokenTTL,
		publicBaseURL:        strings.TrimRight(cfg.Account.PublicBaseURL, "/"),
		requireEmailDelivery: cfg.Account.RequireEmailDelivery,
		maxImageSize:         int64(maxImageSize),
		imageKeyPrefix:       strings.Trim(cfg.Upload.KeyPrefix, "/"),
		imageBaseURL:         strings.TrimRight(cfg.Upload.PublicBaseURL, "/"),
		logger:               params.Logger,
		now:                  time.Now,
	}, nil
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates an unverified account, emails the verification link and signs the user in.
func (srv *accountService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.AuthOutput, error) {
	user := &entity.User{
		Username: entity.NormalizeIdentity(input.Username),
		Email:    entity.NormalizeEmail(input.Email),
		Phone:    entity.NormalizeIdentity(input.Phone),
	}

	srv.log(ctx).Info("Starting registration", slog.String("email", user.Email))

	if err := validateUsername(user.Username); err != nil {
		return nil, err
	}

	if err := srv.hasher.ValidatePasswordStrength(input.Password); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := srv.ensureAvailable(ctx, "", user.Username, user.Email, user.Phone); err != nil {
		return nil, err
	}

	hash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}
	user.PasswordHash = hash

	verificationToken, err := util.RandomHex(tokenBytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate verification token")
	}
	user.VerificationToken = verificationToken

	// The unique indexes decide concurrent registrations of the same identity.
	if err := srv.userRepo.Create(ctx, user); err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}

	sendErr := srv.deliver(ctx, "verification", func() error {
		return srv.dispatcher.SendVerification(ctx, user.Email, verificationToken)
	})
	if sendErr != nil {
		if err := srv.userRepo.DeleteByID(ctx, user.ID); err != nil {
			srv.log(ctx).Error("Failed to remove user after email failure",
				slog.String("userID", user.ID),
				slog.Any("error", err),
			)
		}

		return nil, sendErr
	}

	token, err := srv.issueToken(user.ID)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Debug("Registration completed", slog.String("userID", user.ID))

	return &usecase.AuthOutput{User: usecase.NewUserView(user), Token: token}, nil
}

// VerifyEmail marks the owner of token as verified and consumes the token.
func (srv *accountService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domainerrors.ErrVerificationTokenInvalid
	}

	user, err := srv.userRepo.FindByField(ctx, entity.UserFieldVerificationToken, token)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domainerrors.ErrVerificationTokenInvalid
		}

		return errors.Wrap(err, "failed to find user by verification token")
	}

	verified := true
	cleared := ""
	_, err = srv.userRepo.UpdateByID(ctx, user.ID, &entity.UserPatch{
		Verified:          &verified,
		VerificationToken: &cleared,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domainerrors.ErrVerificationTokenInvalid
		}

		return errors.Wrap(err, "failed to mark user verified")
	}

	srv.log(ctx).Info("Email verified", slog.String("userID", user.ID))

	return nil
}

// Login checks the password of the user identified by email or phone and issues a bearer token.
func (srv *accountService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.AuthOutput, error) {
	field, value := entity.IdentifierField(input.Identifier)

	user, err := srv.userRepo.FindByField(ctx, field, value)
	if err != nil {
		return nil, mapRepositoryError(err, "failed to find user for login")
	}

	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Info("Login rejected", slog.String("userID", user.ID))

		return nil, domainerrors.ErrInvalidCredentials
	}

	token, err := srv.issueToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &usecase.AuthOutput{User: usecase.NewUserView(user), Token: token}, nil
}

// GetProfile returns the public view of the user.
func (srv *accountService) GetProfile(ctx context.Context, userID string) (*usecase.UserView, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapRepositoryError(err, "failed to find user")
	}

	return usecase.NewUserView(user), nil
}

// UpdateProfile changes the supplied fields. An empty update returns the current profile.
func (srv *accountService) UpdateProfile(ctx context.Context, userID string, input *usecase.UpdateProfileInput) (*usecase.UserView, error) {
	patch := &entity.UserPatch{}
	if input != nil {
		if input.Username != nil {
			v := entity.NormalizeIdentity(*input.Username)
			if err := validateUsername(v); err != nil {
				return nil, err
			}
			patch.Username = &v
		}
		if input.Email != nil {
			v := entity.NormalizeEmail(*input.Email)
			patch.Email = &v
		}
		if input.Phone != nil {
			v := entity.NormalizeIdentity(*input.Phone)
			patch.Phone = &v
		}
		if input.ProfileImageURL != nil {
			v := strings.TrimSpace(*input.ProfileImageURL)
			patch.ProfileImageURL = &v
		}
	}

	if patch.IsEmpty() {
		return srv.GetProfile(ctx, userID)
	}

	user, err := srv.userRepo.UpdateByID(ctx, userID, patch)
	if err != nil {
		return nil, mapRepositoryError(err, "failed to update user")
	}

	srv.log(ctx).Info("Profile updated", slog.String("userID", userID))

	return usecase.NewUserView(user), nil
}

// UploadProfileImage stores a JPEG, PNG or GIF and points the profile at it.
func (srv *accountService) UploadProfileImage(ctx context.Context, userID string, input *usecase.UploadProfileImageInput) (*usecase.UserView, error) {
	if input == nil || len(input.Data) == 0 {
		return nil, domainerrors.ErrImageInvalid.WithDetails("no image uploaded")
	}
	if int64(len(input.Data)) > srv.maxImageSize {
		return nil, domainerrors.ErrImageTooLarge.WithDetails("maximum size is " + util.FormatBytes(srv.maxImageSize))
	}

	contentType, ext, ok := detectImageType(input.Data)
	if !ok {
		return nil, domainerrors.ErrImageInvalid.WithDetails("detected content type " + contentType)
	}

	current, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapRepositoryError(err, "failed to find user")
	}

	key := srv.imageKey(userID, util.Checksum(input.Data), ext)
	imageURL, err := srv.imageStore.Put(ctx, key, contentType, input.Data)
	if err != nil {
		return nil, domainerrors.ErrImageUploadFailed.WrapMessage(err.Error())
	}

	user, err := srv.userRepo.UpdateByID(ctx, userID, &entity.UserPatch{ProfileImageURL: &imageURL})
	if err != nil {
		if delErr := srv.imageStore.Delete(ctx, key); delErr != nil {
			srv.log(ctx).Warn("Failed to remove orphaned profile image", slog.String("key", key), slog.Any("error", delErr))
		}

		return nil, mapRepositoryError(err, "failed to store profile image url")
	}

	if previous, ok := srv.ownedImageKey(userID, current.ProfileImageURL); ok && previous != key {
		if delErr := srv.imageStore.Delete(ctx, previous); delErr != nil {
			srv.log(ctx).Warn("Failed to remove previous profile image", slog.String("key", previous), slog.Any("error", delErr))
		}
	}

	srv.log(ctx).Info("Profile image uploaded",
		slog.String("userID", userID),
		slog.String("key", key),
		slog.Int("bytes", len(input.Data)),
	)

	return usecase.NewUserView(user), nil
}

// DeleteAccount removes the user.
func (srv *accountService) DeleteAccount(ctx context.Context, userID string) error {
	if err := srv.userRepo.DeleteByID(ctx, userID); err != nil {
		return mapRepositoryError(err, "failed to delete user")
	}

	srv.log(ctx).Info("Account deleted", slog.String("userID", userID))

	return nil
}

// RequestPasswordReset opens a reset window and emails the reset link. The token is never returned.
func (srv *accountService) RequestPasswordReset(ctx context.Context, identifier string) error {
	field, value := entity.IdentifierField(identifier)

	user, err := srv.userRepo.FindByField(ctx, field, value)
	if err != nil {
		return mapRepositoryError(err, "failed to find user for password reset")
	}

	resetToken, err := util.RandomHex(tokenBytes)
	if err != nil {
		return errors.Wrap(err, "failed to generate reset token")
	}
	expiresAt := srv.now().Add(srv.resetTTL).UTC()

	_, err = srv.userRepo.UpdateByID(ctx, user.ID, &entity.UserPatch{
		ResetToken:          &resetToken,
		ResetTokenExpiresAt: &expiresAt,
	})
	if err != nil {
		return mapRepositoryError(err, "failed to store reset token")
	}

	resetURL := srv.publicBaseURL + "/reset-password/" + url.PathEscape(resetToken)

	srv.log(ctx).Info("Password reset requested",
		slog.String("userID", user.ID),
		slog.Time("expiresAt", expiresAt),
	)

	return srv.deliver(ctx, "password reset", func() error {
		return srv.dispatcher.SendPasswordReset(ctx, user.Email, resetURL)
	})
}

// ResetPassword replaces the password of the holder of an open reset token and closes the window.
func (srv *accountService) ResetPassword(ctx context.Context, input *usecase.ResetPasswordInput) error {
	token := strings.TrimSpace(input.Token)
	if token == "" {
		return domainerrors.ErrResetTokenInvalid
	}

	user, err := srv.userRepo.FindByOpenResetToken(ctx, token, srv.now())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domainerrors.ErrResetTokenInvalid
		}

		return errors.Wrap(err, "failed to find user by reset token")
	}

	if err := srv.hasher.ValidatePasswordStrength(input.NewPassword); err != nil {
		return errors.WithStack(err)
	}

	hash, err := srv.hasher.Hash(input.NewPassword)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	cleared := ""
	_, err = srv.userRepo.UpdateByID(ctx, user.ID, &entity.UserPatch{
		PasswordHash: &hash,
		ResetToken:   &cleared,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domainerrors.ErrResetTokenInvalid
		}

		return errors.Wrap(err, "failed to update password")
	}

	srv.log(ctx).Info("Password reset completed", slog.String("userID", user.ID))

	return nil
}

// ensureAvailable reports the first identity field already held by another user.
func (srv *accountService) ensureAvailable(ctx context.Context, selfID, username, email, phone string) error {
	checks := []struct {
		field entity.UserField
		value string
		label string
	}{
		{entity.UserFieldEmail, email, "email already registered"},
		{entity.UserFieldUsername, username, "username already taken"},
		{entity.UserFieldPhone, phone, "phone already registered"},
	}

	for _, check := range checks {
		existing, err := srv.userRepo.FindByField(ctx, check.field, check.value)
		if errors.Is(err, repository.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "failed to check %s availability", check.field)
		}
		if existing.ID != selfID {
			return domainerrors.ErrUserAlreadyExists.WithDetails(check.label)
		}
	}

	return nil
}

func (srv *accountService) issueToken(userID string) (string, error) {
	token, err := srv.tokenService.Issue(userID, service.WithTTL(srv.tokenTTL))
	if err != nil {
		return "", errors.Wrap(err, "failed to issue token")
	}

	return token, nil
}

// deliver runs send and applies the email delivery policy to its failure.
func (srv *accountService) deliver(ctx context.Context, kind string, send func() error) error {
	err := send()
	if err == nil {
		return nil
	}

	if srv.requireEmailDelivery {
		srv.log(ctx).Error("Email delivery failed", slog.String("kind", kind), slog.Any("error", err))

		return domainerrors.ErrEmailDeliveryFailed.WrapMessage(err.Error())
	}

	srv.log(ctx).Warn("Email delivery failed, continuing", slog.String("kind", kind), slog.Any("error", err))

	return nil
}

func (srv *accountService) imageKey(userID, checksum, ext string) string {
	return srv.userImageDir(userID) + checksum + "." + ext
}

// userImageDir is the key prefix, ending in a slash, under which a user's images are stored.
func (srv *accountService) userImageDir(userID string) string {
	if srv.imageKeyPrefix == "" {
		return userID + "/"
	}

	return srv.imageKeyPrefix + "/" + userID + "/"
}

// ownedImageKey returns the bucket key behind imageURL when it is an image this service stored for userID.
// External URLs set through UpdateProfile are never touched.
func (srv *accountService) ownedImageKey(userID, imageURL string) (string, bool) {
	if srv.imageBaseURL == "" || imageURL == "" {
		return "", false
	}

	key, ok := strings.CutPrefix(imageURL, srv.imageBaseURL+"/")
	if !ok || !strings.HasPrefix(key, srv.userImageDir(userID)) {
		return "", false
	}

	return key, true
}

func validateUsername(username string) error {
	if !entity.ValidUsername(username) {
		return domainerrors.ErrValidationFailed.WithDetails(
			"username must be " + strconv.Itoa(entity.UsernameMinLength) + " to " +
				strconv.Itoa(entity.UsernameMaxLength) + " characters")
	}

	return nil
}

// mapRepositoryError translates repository sentinels into domain errors.
func mapRepositoryError(err error, action string) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return domainerrors.ErrUserNotFound
	case errors.Is(err, repository.ErrInvalidUserID):
		return domainerrors.ErrInvalidUserID
	default:
		return errors.Wrap(err, action)
	}
}
