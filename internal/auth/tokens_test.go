package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	svc, err := NewTokenService(key, time.Hour)
	require.NoError(t, err)
	return svc
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := newTestTokenService(t)

	token, err := svc.GenerateAccessToken(Identity{UserID: "u1", DisplayName: "Collector"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "Collector", claims.DisplayName)
	assert.Equal(t, tokenIssuer, claims.Issuer)
	assert.True(t, strings.HasPrefix(claims.TokenID, "token-"))
}

func TestTokenService_RejectsEmptyIdentity(t *testing.T) {
	svc := newTestTokenService(t)

	_, err := svc.GenerateAccessToken(Identity{UserID: "  "})
	require.ErrorIs(t, err, ErrMissingUserID)
}

func TestTokenService_Expired(t *testing.T) {
	svc := newTestTokenService(t)
	issued := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	token, err := svc.GenerateAccessToken(Identity{UserID: "u1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = svc.VerifyAccessToken(token)
	require.ErrorIs(t, err, ErrTokenExpired)

	svc.now = func() time.Time { return issued.Add(-time.Hour) }
	_, err = svc.VerifyAccessToken(token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_WrongKey(t *testing.T) {
	a := newTestTokenService(t)
	b := newTestTokenService(t)

	token, err := a.GenerateAccessToken(Identity{UserID: "u1"})
	require.NoError(t, err)

	_, err = b.VerifyAccessToken(token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenExpired)

	_, err = a.VerifyAccessToken("v4.local.garbage")
	require.Error(t, err)
}

func TestNewTokenService_BadConfig(t *testing.T) {
	_, err := NewTokenService("abc", time.Hour)
	require.Error(t, err)

	_, err = NewTokenService(strings.Repeat("zz", 32), time.Hour)
	require.Error(t, err)

	key, err := GenerateKey()
	require.NoError(t, err)
	_, err = NewTokenService(key, 0)
	require.Error(t, err)
}

func TestLoadOrGenerateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", KeyFileName)

	first, err := LoadOrGenerateKey(path)
	require.NoError(t, err)
	assert.Len(t, first, keyHexLength)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := LoadOrGenerateKey(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadOrGenerateKey_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), KeyFileName)
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))

	_, err := LoadOrGenerateKey(path)
	require.Error(t, err)
}
