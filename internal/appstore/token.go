// Package appstore talks to the App Store Connect device API.
package appstore

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	audience      = "appstoreconnect-v1"
	tokenLifetime = 20 * time.Minute
)

// ErrInvalidKey is returned when the configured private key cannot be used for ES256.
var ErrInvalidKey = errors.New("appstore: invalid private key")

// TokenSource produces bearer tokens for outbound vendor requests.
type TokenSource interface {
	IssueToken() (string, error)
}

// TokenIssuer signs short-lived ES256 tokens for the App Store Connect API.
type TokenIssuer struct {
	issuerID string
	keyID    string
	key      *ecdsa.PrivateKey
	now      func() time.Time
}

// NewTokenIssuer parses the PEM encoded P-256 key. Literal "\n" sequences,
// as delivered through env files, are unescaped first.
func NewTokenIssuer(issuerID, keyID, privateKeyPEM string) (*TokenIssuer, error) {
	if issuerID == "" || keyID == "" {
		return nil, errors.New("appstore: issuer id and key id are required")
	}

	pemData := strings.ReplaceAll(privateKeyPEM, `\n`, "\n")
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(pemData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if key.Curve.Params().BitSize != 256 {
		return nil, fmt.Errorf("%w: expected a P-256 key", ErrInvalidKey)
	}

	return &TokenIssuer{
		issuerID: issuerID,
		keyID:    keyID,
		key:      key,
		now:      time.Now,
	}, nil
}

// IssueToken returns a fresh token valid for twenty minutes.
func (t *TokenIssuer) IssueToken() (string, error) {
	now := t.now()

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": t.issuerID,
		"iat": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
		"aud": audience,
	})
	token.Header["kid"] = t.keyID

	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("appstore: sign token: %w", err)
	}
	return signed, nil
}
