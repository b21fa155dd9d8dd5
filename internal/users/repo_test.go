package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/contactbook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/contactbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func newTestRepo(t *testing.T) (*Repository, *fixedClock) {
	t.Helper()
	clock := &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	client := dbtest.New(t)
	return NewRepository(client.DB(), WithClock(clock.Now)), clock
}

func TestRepositoryRegisterAndVerify(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateUser(ctx, "Alice@Example.com ", "hash")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "alice@example.com", created.Email)
	assert.False(t, created.IsVerified)

	found, err := repo.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.False(t, found.IsVerified)
	assert.False(t, found.HasPendingOTP())

	require.NoError(t, repo.MarkVerified(ctx, "alice@example.com"))
	require.NoError(t, repo.MarkVerified(ctx, "alice@example.com"))

	found, err = repo.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, found.IsVerified)
}

func TestRepositoryCreateUserDuplicateEmail(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, "dup@example.com", "hash")
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, "DUP@example.com", "other")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmailTaken))
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestRepositoryUnknownUser(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetUserByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	assert.ErrorIs(t, repo.MarkVerified(ctx, "ghost@example.com"), ErrUserNotFound)
	assert.ErrorIs(t, repo.IssueOTP(ctx, "ghost@example.com", "123456", time.Now()), ErrUserNotFound)
	assert.ErrorIs(t, repo.ConsumeOTPAndResetPassword(ctx, "ghost@example.com", "123456", "h"), ErrUserNotFound)
}

func TestRepositoryOTPConsumeOnce(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, "otp@example.com", "old-hash")
	require.NoError(t, err)

	require.NoError(t, repo.IssueOTP(ctx, "otp@example.com", "123456", clock.now.Add(time.Hour)))

	user, err := repo.GetUserByEmail(ctx, "otp@example.com")
	require.NoError(t, err)
	require.True(t, user.HasPendingOTP())
	assert.Equal(t, "123456", *user.OTPCode)

	require.NoError(t, repo.ConsumeOTPAndResetPassword(ctx, "otp@example.com", "123456", "new-hash"))

	user, err = repo.GetUserByEmail(ctx, "otp@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", user.PasswordHash)
	assert.Nil(t, user.OTPCode)
	assert.Nil(t, user.OTPExpiresAt)

	err = repo.ConsumeOTPAndResetPassword(ctx, "otp@example.com", "123456", "newer-hash")
	assert.ErrorIs(t, err, ErrOTPNotFound)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestRepositoryOTPExpired(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, "late@example.com", "old-hash")
	require.NoError(t, err)
	require.NoError(t, repo.IssueOTP(ctx, "late@example.com", "111111", clock.now.Add(-time.Second)))

	err = repo.ConsumeOTPAndResetPassword(ctx, "late@example.com", "111111", "new-hash")
	assert.ErrorIs(t, err, ErrOTPExpired)
	assert.Equal(t, pkgerrors.CodeExpired, pkgerrors.CodeOf(err))

	user, err := repo.GetUserByEmail(ctx, "late@example.com")
	require.NoError(t, err)
	assert.Equal(t, "old-hash", user.PasswordHash)
	assert.True(t, user.HasPendingOTP())
}

func TestRepositoryOTPExpiryBoundaryIsInclusive(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, "edge@example.com", "old-hash")
	require.NoError(t, err)
	require.NoError(t, repo.IssueOTP(ctx, "edge@example.com", "222222", clock.now))

	require.NoError(t, repo.ConsumeOTPAndResetPassword(ctx, "edge@example.com", "222222", "new-hash"))
}

func TestRepositoryOTPMismatch(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, "mismatch@example.com", "old-hash")
	require.NoError(t, err)
	require.NoError(t, repo.IssueOTP(ctx, "mismatch@example.com", "123456", clock.now.Add(time.Hour)))

	err = repo.ConsumeOTPAndResetPassword(ctx, "mismatch@example.com", "654321", "new-hash")
	assert.ErrorIs(t, err, ErrOTPMismatch)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	user, err := repo.GetUserByEmail(ctx, "mismatch@example.com")
	require.NoError(t, err)
	assert.Equal(t, "old-hash", user.PasswordHash)
}

func TestRepositoryReissueOverwritesOTP(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, "again@example.com", "old-hash")
	require.NoError(t, err)
	require.NoError(t, repo.IssueOTP(ctx, "again@example.com", "111111", clock.now.Add(time.Minute)))
	require.NoError(t, repo.IssueOTP(ctx, "again@example.com", "999999", clock.now.Add(time.Hour)))

	err = repo.ConsumeOTPAndResetPassword(ctx, "again@example.com", "111111", "new-hash")
	assert.ErrorIs(t, err, ErrOTPMismatch)

	require.NoError(t, repo.ConsumeOTPAndResetPassword(ctx, "again@example.com", "999999", "new-hash"))
}

func TestRepositoryUpdateLastLogin(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()

	user, err := repo.CreateUser(ctx, "login@example.com", "hash")
	require.NoError(t, err)

	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, clock.now))

	found, err := repo.GetUserByEmail(ctx, "login@example.com")
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
	assert.True(t, found.LastLoginAt.Equal(clock.now))

	dto := FromModel(found)
	assert.Equal(t, found.ID, dto.ID)
	assert.Equal(t, "login@example.com", dto.Email)
	assert.Nil(t, FromModel((*models.User)(nil)))
}
