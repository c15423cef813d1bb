package auth_test

import (
	"context"
	"database/sql"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/Endy02/microservice/auth"
)

// newTestDB opens a private in-memory database with the users table
// created. One idle connection is pinned so the database survives
// between queries.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxIdleConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.NewCreateTable().
		Model((*auth.User)(nil)).
		IfNotExists().
		Exec(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAccountStartsInactive(t *testing.T) {
	repo := auth.NewUsersRepository(newTestDB(t))

	user, err := repo.CreateAccount(context.Background(), auth.NewAccount{
		Email:    "New.Member@Example.com",
		Password: "a-long-password",
	})
	require.NoError(t, err)

	assert.False(t, user.IsActive)
	assert.False(t, user.EmailVerified)
	assert.False(t, user.IsStaff)
	assert.Equal(t, "new.member@example.com", user.Email)
	assert.Equal(t, "new.member", user.Username)
	assert.NotEmpty(t, user.Slug)
	assert.True(t, user.HasUsablePassword())
	assert.NoError(t, auth.ComparePasswordAndHash("a-long-password", user.PasswordHash))
}

func TestCreateAccountRejectsBadEmail(t *testing.T) {
	repo := auth.NewUsersRepository(newTestDB(t))

	_, err := repo.CreateAccount(context.Background(), auth.NewAccount{
		Email:    "not-an-email",
		Password: "a-long-password",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryValidation, richErr.Category)
	assert.Equal(t, "INVALID_EMAIL", richErr.TextCode)
}

func TestCreateAccountEmailUniqueIsCaseInsensitive(t *testing.T) {
	repo := auth.NewUsersRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.CreateAccount(ctx, auth.NewAccount{
		Email:    "Dup@Example.com",
		Username: "dupone",
		Password: "a-long-password",
	})
	require.NoError(t, err)

	_, err = repo.CreateAccount(ctx, auth.NewAccount{
		Email:    "dup@example.com",
		Username: "duptwo",
		Password: "a-long-password",
	})
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryConflict))
}

func TestCreateSuperuserFlags(t *testing.T) {
	repo := auth.NewUsersRepository(newTestDB(t))

	user, err := repo.CreateSuperuser(context.Background(), "root@example.com", "root", "a-long-password")
	require.NoError(t, err)

	assert.True(t, user.IsActive)
	assert.True(t, user.EmailVerified)
	assert.True(t, user.IsStaff)
	assert.True(t, user.IsSuperuser)
}

func TestCreateSuperuserRequiresPassword(t *testing.T) {
	repo := auth.NewUsersRepository(newTestDB(t))

	_, err := repo.CreateSuperuser(context.Background(), "root@example.com", "root", "")
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, "EMPTY_PASSWORD", richErr.TextCode)
}

func TestSaveKeepsSlugWhenUsernameChanges(t *testing.T) {
	repo := auth.NewUsersRepository(newTestDB(t))
	ctx := context.Background()

	user, err := repo.CreateAccount(ctx, auth.NewAccount{
		Email:    "slugged@example.com",
		Username: "original name",
		Password: "a-long-password",
	})
	require.NoError(t, err)
	original := user.Slug
	require.NotEmpty(t, original)

	user.Username = "renamed user"
	_, err = repo.Save(ctx, user)
	require.NoError(t, err)

	reloaded, err := repo.GetByUUID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, original, reloaded.Slug)
	assert.Equal(t, "renamed user", reloaded.Username)
}

func TestGetByEmailIsCaseInsensitive(t *testing.T) {
	repo := auth.NewUsersRepository(newTestDB(t))
	ctx := context.Background()

	created, err := repo.CreateAccount(ctx, auth.NewAccount{
		Email:    "mixed@case.com",
		Password: "a-long-password",
	})
	require.NoError(t, err)

	found, err := repo.GetByEmail(ctx, "MIXED@CASE.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestGetByUUIDUnknownIsNotFound(t *testing.T) {
	repo := auth.NewUsersRepository(newTestDB(t))

	_, err := repo.GetByUUID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}

func TestResetPasswordReplacesHash(t *testing.T) {
	repo := auth.NewUsersRepository(newTestDB(t))
	ctx := context.Background()

	user, err := repo.CreateAccount(ctx, auth.NewAccount{
		Email:    "rotate@example.com",
		Password: "old-password-1",
	})
	require.NoError(t, err)

	hash, err := auth.HashPassword("new-password-2")
	require.NoError(t, err)
	require.NoError(t, repo.ResetPassword(ctx, user.ID, hash))

	reloaded, err := repo.GetByUUID(ctx, user.ID)
	require.NoError(t, err)
	assert.NoError(t, auth.ComparePasswordAndHash("new-password-2", reloaded.PasswordHash))
	assert.Error(t, auth.ComparePasswordAndHash("old-password-1", reloaded.PasswordHash))
	assert.True(t, reloaded.EmailVerified)
}

func TestCreateAccountHashidDerivesDeterministicID(t *testing.T) {
	repo := auth.NewUsersRepository(newTestDB(t))

	user, err := repo.CreateAccount(context.Background(), auth.NewAccount{
		Email:     "hashid@example.com",
		Password:  "a-long-password",
		UseHashid: true,
	})
	require.NoError(t, err)

	expected, err := hashid.NewUUID("hashid@example.com")
	require.NoError(t, err)
	assert.Equal(t, expected, user.ID)
}
