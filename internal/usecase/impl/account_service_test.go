package impl

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"account/internal/domain/entity"
	domainerrors "account/internal/domain/errors"
	"account/internal/domain/repository"
	mockRepo "account/internal/mocks/repository"
	mockSvc "account/internal/mocks/service"
	"account/internal/usecase"
	"account/internal/util"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow   = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	hexToken40 = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

// accountServiceFixtures holds all test dependencies for account service tests.
type accountServiceFixtures struct {
	service      usecase.AccountUsecase
	userRepo     *mockRepo.MockUserRepository
	hasher       *mockSvc.MockPasswordHasher
	tokenService *mockSvc.MockTokenService
	dispatcher   *mockSvc.MockNotificationDispatcher
	imageStore   *mockSvc.MockImageStore
}

func createTestAccountService(t *testing.T, requireEmailDelivery bool) accountServiceFixtures {
	t.Helper()

	userRepo := mockRepo.NewMockUserRepository(t)
	hasher := mockSvc.NewMockPasswordHasher(t)
	tokenService := mockSvc.NewMockTokenService(t)
	dispatcher := mockSvc.NewMockNotificationDispatcher(t)
	imageStore := mockSvc.NewMockImageStore(t)

	svc, err := NewAccountService(AccountServiceParams{
		UserRepo:     userRepo,
		Hasher:       hasher,
		TokenService: tokenService,
		Dispatcher:   dispatcher,
		ImageStore:   imageStore,
		Config:       newAccountTestConfig(requireEmailDelivery),
		Logger:       newQuietLogger(),
	})
	require.NoError(t, err)
	svc.(*accountService).now = func() time.Time { return fixedNow }

	return accountServiceFixtures{
		service:      svc,
		userRepo:     userRepo,
		hasher:       hasher,
		tokenService: tokenService,
		dispatcher:   dispatcher,
		imageStore:   imageStore,
	}
}

func existingUser() *entity.User {
	return &entity.User{
		ID:           "user-1",
		Username:     "alice",
		Email:        "alice@example.com",
		Phone:        "5551234567",
		PasswordHash: "hashed_password",
		JoinedAt:     fixedNow.Add(-24 * time.Hour),
	}
}

func TestNewAccountService_InvalidMaxSize(t *testing.T) {
	cfg := newAccountTestConfig(false)
	cfg.Upload.MaxSize = "lots"

	_, err := NewAccountService(AccountServiceParams{Config: cfg, Logger: newQuietLogger()})

	assert.Error(t, err)
}

func TestAccountService_Register_Success(t *testing.T) {
	fx := createTestAccountService(t, false)
	ctx := context.Background()
	input := &usecase.RegisterInput{
		Username: " alice ",
		Email:    " Alice@Example.COM ",
		Phone:    "5551234567",
		Password: "secret1",
	}

	fx.hasher.EXPECT().ValidatePasswordStrength("secret1").Return(nil)
	fx.userRepo.EXPECT().FindByField(ctx, entity.UserFieldEmail, "alice@example.com").Return(nil, repository.ErrUserNotFound)
	fx.userRepo.EXPECT().FindByField(ctx, entity.UserFieldUsername, "alice").Return(nil, repository.ErrUserNotFound)
	fx.userRepo.EXPECT().FindByField(ctx, entity.UserFieldPhone, "5551234567").Return(nil, repository.ErrUserNotFound)
	fx.hasher.EXPECT().Hash("secret1").Return("hashed_password", nil)

	var verificationToken string
	fx.userRepo.EXPECT().
		Create(ctx, mock.AnythingOfType("*entity.User")).
		Run(func(_ context.Context, user *entity.User) {
			assert.Equal(t, "hashed_password", user.PasswordHash)
			assert.False(t, user.Verified)
			verificationToken = user.VerificationToken
			user.ID = "user-1"
			user.JoinedAt = fixedNow
		}).
		Return(nil)
	fx.dispatcher.EXPECT().
		SendVerification(ctx, "alice@example.com", mock.AnythingOfType("string")).
		RunAndReturn(func(_ context.Context, _ string, token string) error {
			assert.Equal(t, verificationToken, token)
			return nil
		})
	fx.tokenService.EXPECT().Issue("user-1", mock.Anything).Return("bearer-token", nil)

	output, err := fx.service.Register(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, "bearer-token", output.Token)
	assert.Equal(t, "user-1", output.User.ID)
	assert.Equal(t, "alice", output.User.Username)
	assert.Equal(t, "alice@example.com", output.User.Email)
	assert.False(t, output.User.Verified)
	assert.Regexp(t, hexToken40, verificationToken)
}

func TestAccountService_Register_DuplicateIdentity(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(fx accountServiceFixtures)
		details string
	}{
		{
			name: "email",
			setup: func(fx accountServiceFixtures) {
				fx.userRepo.EXPECT().FindByField(mock.Anything, entity.UserFieldEmail, "alice@example.com").Return(existingUser(), nil)
			},
			details: "email already registered",
		},
		{
			name: "username",
			setup: func(fx accountServiceFixtures) {
				fx.userRepo.EXPECT().FindByField(mock.Anything, entity.UserFieldEmail, mock.Anything).Return(nil, repository.ErrUserNotFound)
				fx.userRepo.EXPECT().FindByField(mock.Anything, entity.UserFieldUsername, "alice").Return(existingUser(), nil)
			},
			details: "username already taken",
		},
		{
			name: "phone",
			setup: func(fx accountServiceFixtures) {
				fx.userRepo.EXPECT().FindByField(mock.Anything, entity.UserFieldEmail, mock.Anything).Return(nil, repository.ErrUserNotFound)
				fx.userRepo.EXPECT().FindByField(mock.Anything, entity.UserFieldUsername, mock.Anything).Return(nil, repository.ErrUserNotFound)
				fx.userRepo.EXPECT().FindByField(mock.Anything, entity.UserFieldPhone, "5551234567").Return(existingUser(), nil)
			},
			details: "phone already registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := createTestAccountService(t, false)
			fx.hasher.EXPECT().ValidatePasswordStrength(mock.Anything).Return(nil)
			tt.setup(fx)

			output, err := fx.service.Register(context.Background(), &usecase.RegisterInput{
				Username: "alice",
				Email:    "alice@example.com",
				Phone:    "5551234567",
				Password: "secret1",
			})

			assert.Nil(t, output)
			require.ErrorIs(t, err, domainerrors.ErrUserAlreadyExists)
			appErr, ok := domainerrors.Resolve(err)
			require.True(t, ok)
			assert.Equal(t, tt.details, appErr.Details())
		})
	}
}

func TestAccountService_Register_UsernameLength(t *testing.T) {
	for _, username := range []string{"  ab  ", "   ", strings.Repeat("a", 51)} {
		fx := createTestAccountService(t, false)

		_, err := fx.service.Register(context.Background(), &usecase.RegisterInput{
			Username: username,
			Email:    "alice@example.com",
			Phone:    "5551234567",
			Password: "secret1",
		})

		assert.ErrorIs(t, err, domainerrors.ErrValidationFailed, "%q", username)
	}
}

func TestAccountService_Register_WeakPassword(t *testing.T) {
	fx := createTestAccountService(t, false)

	fx.hasher.EXPECT().ValidatePasswordStrength("abc").
		Return(domainerrors.ErrPasswordStrength.WithDetails("password must be at least 6 characters long"))

	output, err := fx.service.Register(context.Background(), &usecase.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Phone:    "5551234567",
		Password: "abc",
	})

	assert.Nil(t, output)
	assert.ErrorIs(t, err, domainerrors.ErrPasswordStrength)
}

func TestAccountService_Register_CreateConflict(t *testing.T) {
	fx := createTestAccountService(t, false)
	ctx := context.Background()

	fx.hasher.EXPECT().ValidatePasswordStrength(mock.Anything).Return(nil)
	fx.userRepo.EXPECT().FindByField(ctx, mock.Anything, mock.Anything).Return(nil, repository.ErrUserNotFound).Times(3)
	fx.hasher.EXPECT().Hash(mock.Anything).Return("hashed_password", nil)
	fx.userRepo.EXPECT().Create(ctx, mock.Anything).
		Return(domainerrors.ErrUserAlreadyExists.WrapMessage("username, email or phone already exists"))

	output, err := fx.service.Register(ctx, &usecase.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Phone:    "5551234567",
		Password: "secret1",
	})

	assert.Nil(t, output)
	assert.ErrorIs(t, err, domainerrors.ErrUserAlreadyExists)
}

func expectRegistrationUpToSend(fx accountServiceFixtures, ctx context.Context) {
	fx.hasher.EXPECT().ValidatePasswordStrength(mock.Anything).Return(nil)
	fx.userRepo.EXPECT().FindByField(ctx, mock.Anything, mock.Anything).Return(nil, repository.ErrUserNotFound).Times(3)
	fx.hasher.EXPECT().Hash(mock.Anything).Return("hashed_password", nil)
	fx.userRepo.EXPECT().Create(ctx, mock.Anything).
		Run(func(_ context.Context, user *entity.User) { user.ID = "user-1" }).
		Return(nil)
	fx.dispatcher.EXPECT().SendVerification(ctx, mock.Anything, mock.Anything).Return(errors.New("smtp down"))
}

func TestAccountService_Register_EmailFailureIsBestEffort(t *testing.T) {
	fx := createTestAccountService(t, false)
	ctx := context.Background()

	expectRegistrationUpToSend(fx, ctx)
	fx.tokenService.EXPECT().Issue("user-1", mock.Anything).Return("bearer-token", nil)

	output, err := fx.service.Register(ctx, &usecase.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Phone:    "5551234567",
		Password: "secret1",
	})

	require.NoError(t, err)
	assert.Equal(t, "bearer-token", output.Token)
}

func TestAccountService_Register_EmailFailureWhenRequired(t *testing.T) {
	fx := createTestAccountService(t, true)
	ctx := context.Background()

	expectRegistrationUpToSend(fx, ctx)
	fx.userRepo.EXPECT().DeleteByID(ctx, "user-1").Return(nil)

	output, err := fx.service.Register(ctx, &usecase.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Phone:    "5551234567",
		Password: "secret1",
	})

	assert.Nil(t, output)
	assert.ErrorIs(t, err, domainerrors.ErrEmailDeliveryFailed)
}

func TestAccountService_VerifyEmail(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		ctx := context.Background()
		user := existingUser()
		user.VerificationToken = "token-abc"

		fx.userRepo.EXPECT().FindByField(ctx, entity.UserFieldVerificationToken, "token-abc").Return(user, nil)
		fx.userRepo.EXPECT().
			UpdateByID(ctx, "user-1", mock.MatchedBy(func(patch *entity.UserPatch) bool {
				return patch.Verified != nil && *patch.Verified &&
					patch.VerificationToken != nil && *patch.VerificationToken == ""
			})).
			Return(user, nil)

		assert.NoError(t, fx.service.VerifyEmail(ctx, "token-abc"))
	})

	t.Run("unknown token", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		fx.userRepo.EXPECT().FindByField(mock.Anything, entity.UserFieldVerificationToken, "nope").Return(nil, repository.ErrUserNotFound)

		assert.ErrorIs(t, fx.service.VerifyEmail(context.Background(), "nope"), domainerrors.ErrVerificationTokenInvalid)
	})

	t.Run("empty token", func(t *testing.T) {
		fx := createTestAccountService(t, false)

		assert.ErrorIs(t, fx.service.VerifyEmail(context.Background(), "  "), domainerrors.ErrVerificationTokenInvalid)
	})
}

func TestAccountService_Login(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		field      entity.UserField
		value      string
	}{
		{name: "by email", identifier: " Alice@Example.com", field: entity.UserFieldEmail, value: "alice@example.com"},
		{name: "by phone", identifier: "5551234567 ", field: entity.UserFieldPhone, value: "5551234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := createTestAccountService(t, false)
			ctx := context.Background()

			fx.userRepo.EXPECT().FindByField(ctx, tt.field, tt.value).Return(existingUser(), nil)
			fx.hasher.EXPECT().Check("secret1", "hashed_password").Return(true)
			fx.tokenService.EXPECT().Issue("user-1", mock.Anything).Return("bearer-token", nil)

			output, err := fx.service.Login(ctx, &usecase.LoginInput{Identifier: tt.identifier, Password: "secret1"})

			require.NoError(t, err)
			assert.Equal(t, "bearer-token", output.Token)
			assert.Equal(t, "user-1", output.User.ID)
		})
	}
}

func TestAccountService_Login_WrongPassword(t *testing.T) {
	fx := createTestAccountService(t, false)

	fx.userRepo.EXPECT().FindByField(mock.Anything, entity.UserFieldEmail, "alice@example.com").Return(existingUser(), nil)
	fx.hasher.EXPECT().Check("wrong", "hashed_password").Return(false)

	output, err := fx.service.Login(context.Background(), &usecase.LoginInput{Identifier: "alice@example.com", Password: "wrong"})

	assert.Nil(t, output)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestAccountService_Login_UnknownUser(t *testing.T) {
	fx := createTestAccountService(t, false)

	fx.userRepo.EXPECT().FindByField(mock.Anything, entity.UserFieldPhone, "5550000000").Return(nil, repository.ErrUserNotFound)

	output, err := fx.service.Login(context.Background(), &usecase.LoginInput{Identifier: "5550000000", Password: "secret1"})

	assert.Nil(t, output)
	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
}

func TestAccountService_GetProfile(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		fx.userRepo.EXPECT().FindByID(mock.Anything, "user-1").Return(existingUser(), nil)

		view, err := fx.service.GetProfile(context.Background(), "user-1")

		require.NoError(t, err)
		assert.Equal(t, "alice", view.Username)
	})

	t.Run("missing", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		fx.userRepo.EXPECT().FindByID(mock.Anything, "user-2").Return(nil, repository.ErrUserNotFound)

		_, err := fx.service.GetProfile(context.Background(), "user-2")

		assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		fx.userRepo.EXPECT().FindByID(mock.Anything, "???").Return(nil, repository.ErrInvalidUserID)

		_, err := fx.service.GetProfile(context.Background(), "???")

		assert.ErrorIs(t, err, domainerrors.ErrInvalidUserID)
	})

	t.Run("store failure", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		fx.userRepo.EXPECT().FindByID(mock.Anything, "user-1").Return(nil, errors.New("connection reset"))

		_, err := fx.service.GetProfile(context.Background(), "user-1")

		require.Error(t, err)
		_, ok := domainerrors.Resolve(err)
		assert.False(t, ok)
	})
}

func TestAccountService_UpdateProfile(t *testing.T) {
	t.Run("normalizes supplied fields", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		email := " Bob@Example.com "
		username := "bob "

		updated := existingUser()
		updated.Username = "bob"
		updated.Email = "bob@example.com"
		fx.userRepo.EXPECT().
			UpdateByID(mock.Anything, "user-1", mock.MatchedBy(func(patch *entity.UserPatch) bool {
				return *patch.Email == "bob@example.com" && *patch.Username == "bob" &&
					patch.Phone == nil && patch.PasswordHash == nil && patch.Verified == nil
			})).
			Return(updated, nil)

		view, err := fx.service.UpdateProfile(context.Background(), "user-1", &usecase.UpdateProfileInput{
			Username: &username,
			Email:    &email,
		})

		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", view.Email)
	})

	t.Run("empty update returns current profile", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		fx.userRepo.EXPECT().FindByID(mock.Anything, "user-1").Return(existingUser(), nil)

		view, err := fx.service.UpdateProfile(context.Background(), "user-1", &usecase.UpdateProfileInput{})

		require.NoError(t, err)
		assert.Equal(t, "alice", view.Username)
	})

	t.Run("username too short after trimming", func(t *testing.T) {
		for _, username := range []string{"  ab  ", "   "} {
			fx := createTestAccountService(t, false)

			_, err := fx.service.UpdateProfile(context.Background(), "user-1", &usecase.UpdateProfileInput{Username: &username})

			assert.ErrorIs(t, err, domainerrors.ErrValidationFailed, "%q", username)
		}
	})

	t.Run("conflict", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		phone := "5559999999"
		fx.userRepo.EXPECT().UpdateByID(mock.Anything, "user-1", mock.Anything).
			Return(nil, domainerrors.ErrUserAlreadyExists.WrapMessage("username, email or phone already exists"))

		_, err := fx.service.UpdateProfile(context.Background(), "user-1", &usecase.UpdateProfileInput{Phone: &phone})

		assert.ErrorIs(t, err, domainerrors.ErrUserAlreadyExists)
	})

	t.Run("missing user", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		phone := "5559999999"
		fx.userRepo.EXPECT().UpdateByID(mock.Anything, "user-9", mock.Anything).Return(nil, repository.ErrUserNotFound)

		_, err := fx.service.UpdateProfile(context.Background(), "user-9", &usecase.UpdateProfileInput{Phone: &phone})

		assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
	})
}

func TestAccountService_UploadProfileImage(t *testing.T) {
	data := pngImage(256)
	expectedKey := "user_profiles/user-1/" + util.Checksum(data) + ".png"
	expectedURL := "https://cdn.example.com/" + expectedKey

	t.Run("success", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		ctx := context.Background()

		updated := existingUser()
		updated.ProfileImageURL = expectedURL
		fx.userRepo.EXPECT().FindByID(ctx, "user-1").Return(existingUser(), nil)
		fx.imageStore.EXPECT().Put(ctx, expectedKey, "image/png", data).Return(expectedURL, nil)
		fx.userRepo.EXPECT().
			UpdateByID(ctx, "user-1", mock.MatchedBy(func(patch *entity.UserPatch) bool {
				return patch.ProfileImageURL != nil && *patch.ProfileImageURL == expectedURL
			})).
			Return(updated, nil)

		view, err := fx.service.UploadProfileImage(ctx, "user-1", &usecase.UploadProfileImageInput{Filename: "me.png", Data: data})

		require.NoError(t, err)
		assert.Equal(t, expectedURL, view.ProfileImageURL)
	})

	t.Run("removes previously uploaded image", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		ctx := context.Background()

		current := existingUser()
		current.ProfileImageURL = "https://cdn.example.com/user_profiles/user-1/old.png"
		updated := existingUser()
		updated.ProfileImageURL = expectedURL
		fx.userRepo.EXPECT().FindByID(ctx, "user-1").Return(current, nil)
		fx.imageStore.EXPECT().Put(ctx, expectedKey, "image/png", data).Return(expectedURL, nil)
		fx.userRepo.EXPECT().UpdateByID(ctx, "user-1", mock.Anything).Return(updated, nil)
		fx.imageStore.EXPECT().Delete(ctx, "user_profiles/user-1/old.png").Return(errors.New("already gone"))

		view, err := fx.service.UploadProfileImage(ctx, "user-1", &usecase.UploadProfileImageInput{Data: data})

		require.NoError(t, err)
		assert.Equal(t, expectedURL, view.ProfileImageURL)
	})

	t.Run("leaves foreign and unchanged images alone", func(t *testing.T) {
		for _, previous := range []string{
			"https://images.example.org/alice.png",
			"https://cdn.example.com/user_profiles/user-2/theirs.png",
			expectedURL,
		} {
			fx := createTestAccountService(t, false)

			current := existingUser()
			current.ProfileImageURL = previous
			updated := existingUser()
			updated.ProfileImageURL = expectedURL
			fx.userRepo.EXPECT().FindByID(mock.Anything, "user-1").Return(current, nil)
			fx.imageStore.EXPECT().Put(mock.Anything, expectedKey, "image/png", data).Return(expectedURL, nil)
			fx.userRepo.EXPECT().UpdateByID(mock.Anything, "user-1", mock.Anything).Return(updated, nil)

			_, err := fx.service.UploadProfileImage(context.Background(), "user-1", &usecase.UploadProfileImageInput{Data: data})

			require.NoError(t, err, previous)
		}
	})

	t.Run("too large", func(t *testing.T) {
		fx := createTestAccountService(t, false)

		_, err := fx.service.UploadProfileImage(context.Background(), "user-1", &usecase.UploadProfileImageInput{Data: pngImage(1001)})

		assert.ErrorIs(t, err, domainerrors.ErrImageTooLarge)
	})

	t.Run("not an image", func(t *testing.T) {
		fx := createTestAccountService(t, false)

		_, err := fx.service.UploadProfileImage(context.Background(), "user-1", &usecase.UploadProfileImageInput{Data: []byte("plain text")})

		assert.ErrorIs(t, err, domainerrors.ErrImageInvalid)
	})

	t.Run("empty", func(t *testing.T) {
		fx := createTestAccountService(t, false)

		_, err := fx.service.UploadProfileImage(context.Background(), "user-1", &usecase.UploadProfileImageInput{})

		assert.ErrorIs(t, err, domainerrors.ErrImageInvalid)
	})

	t.Run("store failure", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		fx.userRepo.EXPECT().FindByID(mock.Anything, "user-1").Return(existingUser(), nil)
		fx.imageStore.EXPECT().Put(mock.Anything, expectedKey, "image/png", data).Return("", errors.New("bucket offline"))

		_, err := fx.service.UploadProfileImage(context.Background(), "user-1", &usecase.UploadProfileImageInput{Data: data})

		assert.ErrorIs(t, err, domainerrors.ErrImageUploadFailed)
	})

	t.Run("user removed during upload", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		fx.userRepo.EXPECT().FindByID(mock.Anything, "user-1").Return(existingUser(), nil)
		fx.imageStore.EXPECT().Put(mock.Anything, expectedKey, "image/png", data).Return(expectedURL, nil)
		fx.userRepo.EXPECT().UpdateByID(mock.Anything, "user-1", mock.Anything).Return(nil, repository.ErrUserNotFound)
		fx.imageStore.EXPECT().Delete(mock.Anything, expectedKey).Return(nil)

		_, err := fx.service.UploadProfileImage(context.Background(), "user-1", &usecase.UploadProfileImageInput{Data: data})

		assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
	})
}

func TestAccountService_DeleteAccount(t *testing.T) {
	fx := createTestAccountService(t, false)

	fx.userRepo.EXPECT().DeleteByID(mock.Anything, "user-1").Return(nil).Once()
	fx.userRepo.EXPECT().DeleteByID(mock.Anything, "user-1").Return(repository.ErrUserNotFound).Once()

	require.NoError(t, fx.service.DeleteAccount(context.Background(), "user-1"))
	assert.ErrorIs(t, fx.service.DeleteAccount(context.Background(), "user-1"), domainerrors.ErrUserNotFound)
}

func TestAccountService_RequestPasswordReset(t *testing.T) {
	fx := createTestAccountService(t, false)
	ctx := context.Background()

	var resetToken string
	fx.userRepo.EXPECT().FindByField(ctx, entity.UserFieldEmail, "alice@example.com").Return(existingUser(), nil)
	fx.userRepo.EXPECT().
		UpdateByID(ctx, "user-1", mock.AnythingOfType("*entity.UserPatch")).
		RunAndReturn(func(_ context.Context, _ string, patch *entity.UserPatch) (*entity.User, error) {
			require.NotNil(t, patch.ResetToken)
			require.NotNil(t, patch.ResetTokenExpiresAt)
			resetToken = *patch.ResetToken
			assert.Equal(t, fixedNow.Add(time.Hour), *patch.ResetTokenExpiresAt)
			assert.Nil(t, patch.PasswordHash)

			return existingUser(), nil
		})
	fx.dispatcher.EXPECT().
		SendPasswordReset(ctx, "alice@example.com", mock.AnythingOfType("string")).
		RunAndReturn(func(_ context.Context, _ string, resetURL string) error {
			assert.Equal(t, "https://app.example.com/reset-password/"+resetToken, resetURL)
			return nil
		})

	require.NoError(t, fx.service.RequestPasswordReset(ctx, "Alice@example.com"))
	assert.Regexp(t, hexToken40, resetToken)
}

func TestAccountService_RequestPasswordReset_UnknownIdentifier(t *testing.T) {
	fx := createTestAccountService(t, false)

	fx.userRepo.EXPECT().FindByField(mock.Anything, entity.UserFieldPhone, "5550000000").Return(nil, repository.ErrUserNotFound)

	assert.ErrorIs(t, fx.service.RequestPasswordReset(context.Background(), "5550000000"), domainerrors.ErrUserNotFound)
}

func TestAccountService_RequestPasswordReset_EmailFailureWhenRequired(t *testing.T) {
	fx := createTestAccountService(t, true)

	fx.userRepo.EXPECT().FindByField(mock.Anything, mock.Anything, mock.Anything).Return(existingUser(), nil)
	fx.userRepo.EXPECT().UpdateByID(mock.Anything, "user-1", mock.Anything).Return(existingUser(), nil)
	fx.dispatcher.EXPECT().SendPasswordReset(mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	err := fx.service.RequestPasswordReset(context.Background(), "alice@example.com")

	assert.ErrorIs(t, err, domainerrors.ErrEmailDeliveryFailed)
}

func TestAccountService_ResetPassword(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		ctx := context.Background()

		fx.userRepo.EXPECT().FindByOpenResetToken(ctx, "reset-abc", fixedNow).Return(existingUser(), nil)
		fx.hasher.EXPECT().ValidatePasswordStrength("newsecret").Return(nil)
		fx.hasher.EXPECT().Hash("newsecret").Return("new_hash", nil)
		fx.userRepo.EXPECT().
			UpdateByID(ctx, "user-1", mock.MatchedBy(func(patch *entity.UserPatch) bool {
				return *patch.PasswordHash == "new_hash" && *patch.ResetToken == ""
			})).
			Return(existingUser(), nil)

		assert.NoError(t, fx.service.ResetPassword(ctx, &usecase.ResetPasswordInput{Token: "reset-abc", NewPassword: "newsecret"}))
	})

	t.Run("expired or unknown token", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		fx.userRepo.EXPECT().FindByOpenResetToken(mock.Anything, "stale", fixedNow).Return(nil, repository.ErrUserNotFound)

		err := fx.service.ResetPassword(context.Background(), &usecase.ResetPasswordInput{Token: "stale", NewPassword: "newsecret"})

		assert.ErrorIs(t, err, domainerrors.ErrResetTokenInvalid)
	})

	t.Run("weak password", func(t *testing.T) {
		fx := createTestAccountService(t, false)
		fx.userRepo.EXPECT().FindByOpenResetToken(mock.Anything, "reset-abc", fixedNow).Return(existingUser(), nil)
		fx.hasher.EXPECT().ValidatePasswordStrength("abc").Return(domainerrors.ErrPasswordStrength)

		err := fx.service.ResetPassword(context.Background(), &usecase.ResetPasswordInput{Token: "reset-abc", NewPassword: "abc"})

		assert.ErrorIs(t, err, domainerrors.ErrPasswordStrength)
	})
}

func TestAccountService_ImageKey(t *testing.T) {
	srv := &accountService{imageKeyPrefix: "avatars"}
	assert.Equal(t, "avatars/u/abc.png", srv.imageKey("u", "abc", "png"))

	srv.imageKeyPrefix = ""
	assert.True(t, strings.HasPrefix(srv.imageKey("u", "abc", "gif"), "u/"))
}
