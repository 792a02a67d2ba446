package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"account/internal/delivery/http/middleware"
	"account/internal/delivery/http/response"
	"account/internal/delivery/http/validator"
	domainerrors "account/internal/domain/errors"
	mockUsecase "account/internal/mocks/usecase"
	"account/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type handlerFixture struct {
	echo    *echo.Echo
	uc      *mockUsecase.MockAccountUsecase
	handler *AccountHandler
}

func newHandlerFixture(t *testing.T) handlerFixture {
	t.Helper()

	e := echo.New()
	e.Validator = validator.New()
	uc := mockUsecase.NewMockAccountUsecase(t)

	return handlerFixture{
		echo:    e,
		uc:      uc,
		handler: NewAccountHandler(uc, slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
}

func (f handlerFixture) jsonContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	return f.echo.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()

	var body response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func TestAccountHandler_Register(t *testing.T) {
	f := newHandlerFixture(t)
	c, rec := f.jsonContext(http.MethodPost, "/register",
		`{"username":"alice","email":"alice@example.com","phone":"5551234567","password":"secret1"}`)

	f.uc.EXPECT().
		Register(mock.Anything, &usecase.RegisterInput{
			Username: "alice",
			Email:    "alice@example.com",
			Phone:    "5551234567",
			Password: "secret1",
		}).
		Return(&usecase.AuthOutput{User: &usecase.UserView{ID: "user-1", Username: "alice"}, Token: "bearer-token"}, nil)

	require.NoError(t, f.handler.Register(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, http.StatusCreated, body.Code)
	assert.Contains(t, rec.Body.String(), `"token":"bearer-token"`)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAccountHandler_Register_ValidationFailure(t *testing.T) {
	f := newHandlerFixture(t)
	c, _ := f.jsonContext(http.MethodPost, "/register", `{"username":"al","email":"nope","phone":"12","password":""}`)

	err := f.handler.Register(c)

	require.ErrorIs(t, err, domainerrors.ErrValidationFailed)
	appErr, _ := domainerrors.Resolve(err)
	assert.Contains(t, appErr.Details(), "password is required")
}

func TestAccountHandler_Register_TrimsBeforeValidation(t *testing.T) {
	for _, username := range []string{"  ab  ", "   "} {
		f := newHandlerFixture(t)
		c, _ := f.jsonContext(http.MethodPost, "/register",
			`{"username":"`+username+`","email":"alice@example.com","phone":"5551234567","password":"secret1"}`)

		err := f.handler.Register(c)

		require.ErrorIs(t, err, domainerrors.ErrValidationFailed, username)
		appErr, _ := domainerrors.Resolve(err)
		assert.Contains(t, appErr.Details(), "username", username)
	}
}

func TestAccountHandler_Register_InvalidJSON(t *testing.T) {
	f := newHandlerFixture(t)
	c, _ := f.jsonContext(http.MethodPost, "/register", `{"username":`)

	assert.ErrorIs(t, f.handler.Register(c), domainerrors.ErrValidationFailed)
}

func TestAccountHandler_Login_PropagatesUsecaseError(t *testing.T) {
	f := newHandlerFixture(t)
	c, _ := f.jsonContext(http.MethodPost, "/login", `{"identifier":"alice@example.com","password":"wrong"}`)

	f.uc.EXPECT().Login(mock.Anything, mock.Anything).Return(nil, domainerrors.ErrInvalidCredentials)

	assert.ErrorIs(t, f.handler.Login(c), domainerrors.ErrInvalidCredentials)
}

func TestAccountHandler_VerifyEmail(t *testing.T) {
	f := newHandlerFixture(t)
	c, rec := f.jsonContext(http.MethodGet, "/verify/abc", "")
	c.SetParamNames("token")
	c.SetParamValues("abc")

	f.uc.EXPECT().VerifyEmail(mock.Anything, "abc").Return(nil)

	require.NoError(t, f.handler.VerifyEmail(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccountHandler_GetProfile_RequiresAuthentication(t *testing.T) {
	f := newHandlerFixture(t)
	c, _ := f.jsonContext(http.MethodGet, "/profile", "")

	assert.ErrorIs(t, f.handler.GetProfile(c), domainerrors.ErrTokenMissing)
}

func TestAccountHandler_UpdateProfile_PartialFields(t *testing.T) {
	f := newHandlerFixture(t)
	c, rec := f.jsonContext(http.MethodPatch, "/updateProfile", `{"phone":"5559876543"}`)
	c.Set(middleware.ContextKeyUserID, "user-1")

	f.uc.EXPECT().
		UpdateProfile(mock.Anything, "user-1", mock.MatchedBy(func(input *usecase.UpdateProfileInput) bool {
			return input.Phone != nil && *input.Phone == "5559876543" &&
				input.Username == nil && input.Email == nil && input.ProfileImageURL == nil
		})).
		Return(&usecase.UserView{ID: "user-1", Phone: "5559876543"}, nil)

	require.NoError(t, f.handler.UpdateProfile(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccountHandler_UpdateProfile_BlankUsername(t *testing.T) {
	f := newHandlerFixture(t)
	c, _ := f.jsonContext(http.MethodPatch, "/updateProfile", `{"username":"   "}`)
	c.Set(middleware.ContextKeyUserID, "user-1")

	assert.ErrorIs(t, f.handler.UpdateProfile(c), domainerrors.ErrValidationFailed)
}

func TestAccountHandler_UpdateProfile_InvalidEmail(t *testing.T) {
	f := newHandlerFixture(t)
	c, _ := f.jsonContext(http.MethodPatch, "/updateProfile", `{"email":"not-an-address"}`)
	c.Set(middleware.ContextKeyUserID, "user-1")

	assert.ErrorIs(t, f.handler.UpdateProfile(c), domainerrors.ErrValidationFailed)
}

func TestAccountHandler_UploadProfileImage(t *testing.T) {
	f := newHandlerFixture(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(ImageFormField, "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nrest"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/profile/image", &buf)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := f.echo.NewContext(req, rec)
	c.Set(middleware.ContextKeyUserID, "user-1")

	f.uc.EXPECT().
		UploadProfileImage(mock.Anything, "user-1", &usecase.UploadProfileImageInput{
			Filename: "me.png",
			Data:     []byte("\x89PNG\r\n\x1a\nrest"),
		}).
		Return(&usecase.UserView{ID: "user-1", ProfileImageURL: "https://cdn.example.com/x.png"}, nil)

	require.NoError(t, f.handler.UploadProfileImage(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://cdn.example.com/x.png")
}

func TestAccountHandler_UploadProfileImage_MissingFile(t *testing.T) {
	f := newHandlerFixture(t)
	c, _ := f.jsonContext(http.MethodPost, "/profile/image", `{}`)
	c.Set(middleware.ContextKeyUserID, "user-1")

	assert.ErrorIs(t, f.handler.UploadProfileImage(c), domainerrors.ErrImageInvalid)
}

func TestAccountHandler_DeleteAccount(t *testing.T) {
	f := newHandlerFixture(t)
	c, rec := f.jsonContext(http.MethodDelete, "/deleteUser", "")
	c.Set(middleware.ContextKeyUserID, "user-1")

	f.uc.EXPECT().DeleteAccount(mock.Anything, "user-1").Return(nil)

	require.NoError(t, f.handler.DeleteAccount(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccountHandler_ForgotPassword(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		identifier string
	}{
		{name: "identifier", body: `{"identifier":"5551234567"}`, identifier: "5551234567"},
		{name: "legacy email field", body: `{"email":"alice@example.com"}`, identifier: "alice@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t)
			c, rec := f.jsonContext(http.MethodPost, "/forgot-password", tt.body)

			f.uc.EXPECT().RequestPasswordReset(mock.Anything, tt.identifier).Return(nil)

			require.NoError(t, f.handler.ForgotPassword(c))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Nil(t, decode(t, rec).Data)
		})
	}
}

func TestAccountHandler_ForgotPassword_MissingIdentifier(t *testing.T) {
	f := newHandlerFixture(t)
	c, _ := f.jsonContext(http.MethodPost, "/forgot-password", `{}`)

	assert.ErrorIs(t, f.handler.ForgotPassword(c), domainerrors.ErrValidationFailed)
}

func TestAccountHandler_ResetPassword(t *testing.T) {
	f := newHandlerFixture(t)
	c, rec := f.jsonContext(http.MethodPatch, "/reset-password/tok", `{"newPassword":"secret2"}`)
	c.SetParamNames("token")
	c.SetParamValues("tok")

	f.uc.EXPECT().ResetPassword(mock.Anything, &usecase.ResetPasswordInput{Token: "tok", NewPassword: "secret2"}).Return(nil)

	require.NoError(t, f.handler.ResetPassword(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	require.NoError(t, HealthCheck(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
