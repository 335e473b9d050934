package service

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CredentialStrategy turns passwords into stored secrets and checks them.
type CredentialStrategy interface {
	// Seal returns the secret to store for password.
	Seal(password string) (string, error)

	// Verify reports whether password matches the stored secret.
	Verify(secret, password string) bool
}

// NewCredentialStrategy returns the strategy registered under name:
// "plain" or "bcrypt".
func NewCredentialStrategy(name string) (CredentialStrategy, error) {
	switch name {
	case "", "plain":
		return PlainCredentials{}, nil
	case "bcrypt":
		return BcryptCredentials{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown credential strategy %q", name)
	}
}

// PlainCredentials stores passwords verbatim. It exists to read data files
// written before hashing was introduced and must not be used in production.
type PlainCredentials struct{}

func (PlainCredentials) Seal(password string) (string, error) {
	return password, nil
}

func (PlainCredentials) Verify(secret, password string) bool {
	return subtle.ConstantTimeCompare([]byte(secret), []byte(password)) == 1
}

// BcryptCredentials stores salted bcrypt hashes. Secrets that are not
// bcrypt hashes are compared as plain text so existing accounts can still
// sign in after switching strategies.
type BcryptCredentials struct {
	Cost int
}

func (b BcryptCredentials) Seal(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (BcryptCredentials) Verify(secret, password string) bool {
	if !strings.HasPrefix(secret, "$2") {
		return PlainCredentials{}.Verify(secret, password)
	}
	return bcrypt.CompareHashAndPassword([]byte(secret), []byte(password)) == nil
}
