package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubadmin/config"
)

func testJWT() *config.JWTConfig {
	return &config.JWTConfig{Secret: "0123456789abcdef-test", Expiry: time.Hour, Issuer: "hubadmin", CookieName: "hubadmin_session"}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	cfg := testJWT()
	tok, err := GenerateSessionToken(cfg, "sess-1", 7, "admin@campushub.test", "admin")
	require.NoError(t, err)

	claims, err := ParseSessionToken(cfg, tok)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestSessionTokenRejected(t *testing.T) {
	cfg := testJWT()
	tok, err := GenerateSessionToken(cfg, "sess-1", 7, "a@b.c", "admin")
	require.NoError(t, err)

	other := testJWT()
	other.Secret = "another-secret-value"
	_, err = ParseSessionToken(other, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := testJWT()
	expired.Expiry = -time.Minute
	old, err := GenerateSessionToken(expired, "sess-2", 1, "a@b.c", "admin")
	require.NoError(t, err)
	_, err = ParseSessionToken(cfg, old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseSessionToken(cfg, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSession, err := GenerateSessionToken(cfg, "", 1, "a@b.c", "admin")
	require.NoError(t, err)
	_, err = ParseSessionToken(cfg, noSession)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
