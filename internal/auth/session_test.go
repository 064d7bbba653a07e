package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/minigames/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	signer, verifier, err := GenerateKeys(time.Hour)
	require.NoError(t, err)
	uid := uuid.New()

	tok, err := signer.CreateJWT(uid)
	require.NoError(t, err)
	got, err := verifier.Authenticate(tok)
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	pub, err := ParsePublicKeyHex(signer.PublicKeyHex())
	require.NoError(t, err)
	got, err = NewVerifier(pub).Authenticate(tok)
	require.NoError(t, err)
	assert.Equal(t, uid, got)
}

func TestRejectsForeignAndExpiredTokens(t *testing.T) {
	signer, _, err := GenerateKeys(0)
	require.NoError(t, err)
	_, other, err := GenerateKeys(0)
	require.NoError(t, err)

	tok, err := signer.CreateJWT(uuid.New())
	require.NoError(t, err)
	_, err = other.Authenticate(tok)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	expiring, verifier, err := GenerateKeys(-time.Minute)
	require.NoError(t, err)
	tok, err = expiring.CreateJWT(uuid.New())
	require.NoError(t, err)
	_, err = verifier.Authenticate(tok)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = verifier.Authenticate("not-a-jwt")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestParsePublicKeyHex(t *testing.T) {
	_, err := ParsePublicKeyHex("zz")
	assert.Error(t, err)
	_, err = ParsePublicKeyHex("abcd")
	assert.Error(t, err)
}
