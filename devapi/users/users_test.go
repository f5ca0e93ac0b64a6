package users_test

import (
	"testing"

	"github.com/jrsteele09/budget-dashboard/devapi/users"
	fakeuserrepo "github.com/jrsteele09/budget-dashboard/devapi/users/repofake"
	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, users.ValidatePasswordStrength("Demo1234"))
	require.Error(t, users.ValidatePasswordStrength("short1A"))
	require.Error(t, users.ValidatePasswordStrength("alllower123"))
	require.Error(t, users.ValidatePasswordStrength("ALLUPPER123"))
	require.Error(t, users.ValidatePasswordStrength("NoNumbersHere"))
}

func TestNewUser(t *testing.T) {
	u, err := users.New("jane", "Secret123", users.LevelApprover)
	require.NoError(t, err)
	require.NotEqual(t, "Secret123", u.PasswordHash)
	require.True(t, u.CheckPassword("Secret123"))
	require.False(t, u.CheckPassword("secret123"))

	_, err = users.New("", "Secret123", users.LevelApprover)
	require.Error(t, err)
	_, err = users.New("jane", "weak", users.LevelApprover)
	require.Error(t, err)
}

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	jane := &users.User{Username: "jane", UserLevel: users.LevelApprover}
	bob := &users.User{Username: "bob", UserLevel: users.LevelViewer}
	require.NoError(t, repo.Upsert(jane))
	require.NoError(t, repo.Upsert(bob))
	require.Equal(t, int64(1), jane.ID)
	require.Equal(t, int64(2), bob.ID)

	again := &users.User{Username: "jane", UserLevel: users.LevelAdmin}
	require.NoError(t, repo.Upsert(again))
	require.Equal(t, int64(1), again.ID, "username keeps its id")

	got, err := repo.GetByUsername("jane")
	require.NoError(t, err)
	require.Equal(t, users.LevelAdmin, got.UserLevel)

	require.NoError(t, repo.SetLastLogin(2))
	got, err = repo.GetByID(2)
	require.NoError(t, err)
	require.False(t, got.LastLogin.IsZero())

	require.NoError(t, repo.SetBlocked("bob", true))
	require.True(t, got.Blocked)

	_, err = repo.GetByUsername("nobody")
	require.ErrorIs(t, err, dasherrors.ErrNotFound)
	_, err = repo.GetByID(99)
	require.ErrorIs(t, err, dasherrors.ErrNotFound)
}
