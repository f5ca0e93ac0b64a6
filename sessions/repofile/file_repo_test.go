package repofile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/budget-dashboard/sessions"
	"github.com/jrsteele09/budget-dashboard/sessions/repofile"
	"github.com/stretchr/testify/require"
)

func TestFileRepo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	repo := repofile.New(path)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, loaded)

	err = repo.Save(ctx, sessions.Session{AccessToken: "abc", RefreshToken: "xyz", UserID: 7, UserLevel: "L2", IsAuthenticated: true})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "abc", loaded.AccessToken)
	require.Equal(t, "xyz", loaded.RefreshToken)
	require.Equal(t, int64(7), loaded.UserID)
	require.Equal(t, "L2", loaded.UserLevel)

	require.NoError(t, repo.Clear(ctx))
	require.NoError(t, repo.Clear(ctx))
	loaded, err = repo.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestFileRepo_CorruptFileIsCleared(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	repo := repofile.New(path)
	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, loaded)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
