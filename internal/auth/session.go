// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/minigames/internal/apperr"
)

// Verifier checks tokens issued by the social app's auth service.
type Verifier struct {
	publicKey ed25519.PublicKey
}

func NewVerifier(publicKey ed25519.PublicKey) *Verifier {
	return &Verifier{publicKey: publicKey}
}

// ParsePublicKeyHex decodes a hex-encoded ed25519 public key.
func ParsePublicKeyHex(s string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// Authenticate verifies a JWT string and returns its subject as a user id.
func (v *Verifier) Authenticate(tokenString string) (uuid.UUID, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.publicKey, nil
	})
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.CodeUnauthenticated, "invalid token", err)
	}

	sub, err := t.Claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, apperr.New(apperr.CodeUnauthenticated, "missing sub in jwt")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, apperr.New(apperr.CodeUnauthenticated, "invalid user id in token")
	}
	return userID, nil
}

// Signer mints tokens. Production tokens come from the social app; the signer backs
// local development and tests.
type Signer struct {
	privateKey ed25519.PrivateKey
	ttl        time.Duration
}

// GenerateKeys creates a fresh ed25519 key pair. ttl 0 means tokens never expire.
func GenerateKeys(ttl time.Duration) (*Signer, *Verifier, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Signer{privateKey: priv, ttl: ttl}, NewVerifier(pub), nil
}

// PublicKeyHex returns the verifying key in the form ParsePublicKeyHex accepts.
func (s *Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.privateKey.Public().(ed25519.PublicKey))
}

// CreateJWT creates a signed token with sub = userID.
func (s *Signer) CreateJWT(userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"iat": time.Now().Unix(),
	}
	if s.ttl != 0 {
		claims["exp"] = time.Now().Add(s.ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}
