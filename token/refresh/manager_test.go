package refresh_test

import (
	"testing"
	"time"

	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
	"github.com/jrsteele09/budget-dashboard/token/refresh"
	refreshrepofake "github.com/jrsteele09/budget-dashboard/token/refresh/repofake"
	"github.com/stretchr/testify/require"
)

func TestManager_RotateIsSingleUse(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), time.Hour)

	first, err := m.Create(7, "L2")
	require.NoError(t, err)
	require.Len(t, first, 64)

	rt, second, err := m.Rotate(first, 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), rt.UserID)
	require.Equal(t, "L2", rt.UserLevel)
	require.NotEqual(t, first, second)

	_, _, err = m.Rotate(first, 7)
	require.ErrorIs(t, err, dasherrors.ErrInvalidRefreshToken)

	_, _, err = m.Rotate(second, 7)
	require.NoError(t, err)
}

func TestManager_RotateRejectsWrongUser(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), time.Hour)
	tok, err := m.Create(7, "L2")
	require.NoError(t, err)

	_, _, err = m.Rotate(tok, 8)
	require.ErrorIs(t, err, dasherrors.ErrInvalidRefreshToken)
}

func TestManager_Expiry(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0)
	refresh.NowTimeFunc = func() time.Time { return issued }
	defer func() { refresh.NowTimeFunc = time.Now }()

	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), time.Minute)
	tok, err := m.Create(1, "L1")
	require.NoError(t, err)

	refresh.NowTimeFunc = func() time.Time { return issued.Add(2 * time.Minute) }
	_, _, err = m.Rotate(tok, 1)
	require.ErrorIs(t, err, dasherrors.ErrRefreshTokenExpired)
}

func TestManager_Revoke(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), 0)
	tok, err := m.Create(1, "L1")
	require.NoError(t, err)

	m.Revoke(tok)
	m.Revoke(tok)

	_, _, err = m.Rotate(tok, 1)
	require.ErrorIs(t, err, dasherrors.ErrInvalidRefreshToken)
}
