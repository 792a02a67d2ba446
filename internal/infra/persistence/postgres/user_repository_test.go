package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"account/internal/domain/entity"
	domainerrors "account/internal/domain/errors"
	"account/internal/domain/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var userColumns = []string{
	"id", "username", "email", "phone", "password_hash", "profile_image_url",
	"joined_at", "verified", "verification_token", "reset_token", "reset_token_expires_at",
}

func newRepoWithMock(t *testing.T) (*userRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	repo := NewUserRepository(db).(*userRepository)
	repo.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	return repo, mock
}

func TestUserRepository_FindByID_InvalidID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	_, err := repo.FindByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrInvalidUserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByID_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()
	joined := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := sqlmock.NewRows(userColumns).
		AddRow(id.String(), "alice", "alice@example.com", "0123456789", "hash", "", joined, true, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1`)).WillReturnRows(rows)

	user, err := repo.FindByID(context.Background(), id.String())
	require.NoError(t, err)
	assert.Equal(t, id.String(), user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.Verified)
	assert.Empty(t, user.VerificationToken)
	assert.Nil(t, user.ResetTokenExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByField_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.FindByField(context.Background(), entity.UserFieldEmail, "ghost@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByField_Unsupported(t *testing.T) {
	repo, _ := newRepoWithMock(t)

	_, err := repo.FindByField(context.Background(), entity.UserField("password_hash"), "x")
	assert.ErrorIs(t, err, repository.ErrUnsupportedField)
}

func TestUserRepository_FindByOpenResetToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()
	expires := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(userColumns).
		AddRow(id.String(), "alice", "alice@example.com", "0123456789", "hash", "", time.Now(), false, "vtok", "rtok", expires)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE reset_token = $1 AND reset_token_expires_at > $2`)).
		WillReturnRows(rows)

	user, err := repo.FindByOpenResetToken(context.Background(), "rtok", expires.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "rtok", user.ResetToken)
	assert.Equal(t, "vtok", user.VerificationToken)
	require.NotNil(t, user.ResetTokenExpiresAt)
	assert.True(t, expires.Equal(*user.ResetTokenExpiresAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &entity.User{Username: "alice", Email: "alice@example.com", Phone: "0123456789", PasswordHash: "hash", VerificationToken: "vtok"}
	require.NoError(t, repo.Create(context.Background(), user))

	_, err := uuid.Parse(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, repo.now(), user.JoinedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_UniqueViolation(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "idx_users_email"})

	err := repo.Create(context.Background(), &entity.User{Username: "alice", Email: "alice@example.com", Phone: "0123456789"})
	assert.True(t, errors.Is(err, domainerrors.ErrUserAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &entity.User{Username: "alice"})
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "DATABASE_EXECUTE_FAILED", appErr.ErrorCode())
}

func TestUserRepository_UpdateByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()
	email := "new@example.com"

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(id.String(), "alice", email, "0123456789", "hash", "", time.Now(), false, nil, nil, nil))

	user, err := repo.UpdateByID(context.Background(), id.String(), &entity.UserPatch{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, email, user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	email := "new@example.com"

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.UpdateByID(context.Background(), uuid.NewString(), &entity.UserPatch{Email: &email})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateByID_UniqueViolation(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	username := "taken"

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	_, err := repo.UpdateByID(context.Background(), uuid.NewString(), &entity.UserPatch{Username: &username})
	assert.True(t, errors.Is(err, domainerrors.ErrUserAlreadyExists))
}

func TestUserRepository_UpdateByID_EmptyPatchReloads(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(id.String(), "alice", "alice@example.com", "0123456789", "hash", "", time.Now(), false, nil, nil, nil))

	user, err := repo.UpdateByID(context.Background(), id.String(), &entity.UserPatch{})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_DeleteByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "users" WHERE id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeleteByID(context.Background(), uuid.NewString()))

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "users" WHERE id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.DeleteByID(context.Background(), uuid.NewString()), repository.ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToUpdateColumns_ClearsTokens(t *testing.T) {
	empty := ""
	cols := toUpdateColumns(&entity.UserPatch{ResetToken: &empty, VerificationToken: &empty})

	assert.Nil(t, cols["reset_token"])
	assert.Contains(t, cols, "reset_token_expires_at")
	assert.Nil(t, cols["reset_token_expires_at"])
	assert.Nil(t, cols["verification_token"])
}
