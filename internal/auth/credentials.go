// Package auth checks operator credentials for the admin routes and shared
// secrets for machine callbacks.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoPassword         = errors.New("admin password or password hash is required")
)

// CredentialChecker validates a username and password pair.
type CredentialChecker interface {
	Check(ctx context.Context, username, password string) error
}

// StaticCredentials accepts exactly one configured account. The password is
// compared either against a bcrypt hash or, when no hash is set, in plain
// text.
type StaticCredentials struct {
	username     string
	password     string
	passwordHash []byte
}

// NewStaticCredentials returns a checker for one account. passwordHash takes
// precedence over password when both are set.
func NewStaticCredentials(username, password, passwordHash string) (*StaticCredentials, error) {
	passwordHash = strings.TrimSpace(passwordHash)
	if password == "" && passwordHash == "" {
		return nil, ErrNoPassword
	}
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, err
		}
	}

	return &StaticCredentials{
		username:     username,
		password:     password,
		passwordHash: []byte(passwordHash),
	}, nil
}

func (c *StaticCredentials) Check(ctx context.Context, username, password string) error {
	userOK := MatchSecret(username, c.username)

	var passOK bool
	if len(c.passwordHash) > 0 {
		passOK = bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)) == nil
	} else {
		passOK = MatchSecret(password, c.password)
	}

	if !userOK || !passOK {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for the admin password hash setting.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// MatchSecret compares two secrets in constant time. Both sides are hashed
// first so the comparison does not leak the expected length.
func MatchSecret(presented, expected string) bool {
	a := sha256.Sum256([]byte(presented))
	b := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
