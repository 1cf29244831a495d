package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "email", "password_hash", "display_name", "subscription", "avatar_url",
	"verified", "verification_token", "session_token", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

func accountRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(columns).
		AddRow("a-1", "a@x.com", "hash", nil, "free", "//www.gravatar.com/avatar/x",
			false, "tok-1", nil, now, now)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now()
	token := "tok-1"

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+accounts\s*\(id,\s*email,.*RETURNING\s+created_at,\s*updated_at`).
		WithArgs("a-1", "a@x.com", "hash", nil, "free", "avatar", false, "tok-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	got, err := repo.Create(context.Background(), &models.Account{
		ID:                "a-1",
		Email:             "a@x.com",
		PasswordHash:      "hash",
		Subscription:      models.SubscriptionFree,
		AvatarURL:         "avatar",
		VerificationToken: &token,
	})
	require.NoError(t, err)
	assert.Equal(t, now, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_AssignsID(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO accounts`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	got, err := repo.Create(context.Background(), &models.Account{Email: "a@x.com", PasswordHash: "h", AvatarURL: "u"})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO accounts`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"})

	_, err := repo.Create(context.Background(), &models.Account{Email: "a@x.com"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO accounts`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Account{Email: "a@x.com"})
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
	assert.NotErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*email,.*FROM\s+accounts\s+WHERE\s+email\s*=\s*\$1$`).
		WithArgs("a@x.com").
		WillReturnRows(accountRow(now))

	got, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a-1", got.ID)
	assert.Equal(t, models.SubscriptionFree, got.Subscription)
	assert.Nil(t, got.DisplayName)
	assert.Nil(t, got.SessionToken)
	require.NotNil(t, got.VerificationToken)
	assert.Equal(t, "tok-1", *got.VerificationToken)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM accounts WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestConsumeVerificationToken(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)^UPDATE\s+accounts\s+SET\s+verified\s*=\s*TRUE,\s*verification_token\s*=\s*NULL.*WHERE\s+verification_token\s*=\s*\$1`).
		WithArgs("tok-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("a-1", "a@x.com", "hash", nil, "free", "u", true, nil, nil, now, now))

	got, err := repo.ConsumeVerificationToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.True(t, got.Verified)
	assert.Nil(t, got.VerificationToken)

	mock.ExpectQuery(`UPDATE accounts SET verified`).
		WithArgs("tok-1").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.ConsumeVerificationToken(context.Background(), "tok-1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSetSessionToken(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	token := "jwt"

	mock.ExpectExec(`UPDATE accounts SET session_token = \$2`).
		WithArgs("a-1", "jwt").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetSessionToken(context.Background(), "a-1", &token))

	mock.ExpectExec(`UPDATE accounts SET session_token = \$2`).
		WithArgs("a-1", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetSessionToken(context.Background(), "a-1", nil))

	mock.ExpectExec(`UPDATE accounts SET session_token = \$2`).
		WithArgs("ghost", nil).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetSessionToken(context.Background(), "ghost", nil), common.ErrorNotFound)
}

func TestUpdateProfile_SparsePatch(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now()
	pro := models.SubscriptionPro

	mock.ExpectQuery(`(?s)^UPDATE\s+accounts\s+SET\s+display_name\s*=\s*COALESCE\(\$2,\s*display_name\)`).
		WithArgs("a-1", nil, nil, "pro").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("a-1", "a@x.com", "hash", nil, "pro", "u", true, nil, nil, now, now))

	got, err := repo.UpdateProfile(context.Background(), "a-1", models.ProfilePatch{Subscription: &pro})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPro, got.Subscription)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfile_EmptyPatchReads(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM accounts WHERE id = \$1`).
		WithArgs("a-1").
		WillReturnRows(accountRow(time.Now()))

	got, err := repo.UpdateProfile(context.Background(), "a-1", models.ProfilePatch{})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfile_Errors(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	email := "b@x.com"

	mock.ExpectQuery(`UPDATE accounts SET`).
		WillReturnError(sql.ErrNoRows)
	_, err := repo.UpdateProfile(context.Background(), "ghost", models.ProfilePatch{Email: &email})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	mock.ExpectQuery(`UPDATE accounts SET`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"})
	_, err = repo.UpdateProfile(context.Background(), "a-1", models.ProfilePatch{Email: &email})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestUpdateAvatar(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE accounts SET avatar_url = \$2`).
		WithArgs("a-1", "http://h/avatars/a-1_me.jpg").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateAvatar(context.Background(), "a-1", "http://h/avatars/a-1_me.jpg"))

	mock.ExpectExec(`UPDATE accounts SET avatar_url = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateAvatar(context.Background(), "ghost", "x"), common.ErrorNotFound)

	mock.ExpectExec(`UPDATE accounts SET avatar_url = \$2`).
		WillReturnError(errors.New("db err"))
	err := repo.UpdateAvatar(context.Background(), "a-1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}
