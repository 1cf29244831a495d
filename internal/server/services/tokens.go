package services

import "github.com/google/uuid"

// TokenIssuer mints opaque verification tokens.
type TokenIssuer interface {
	Issue() (string, error)
}

// UUIDTokenIssuer issues random (version 4) UUIDs read from crypto/rand.
type UUIDTokenIssuer struct{}

func (UUIDTokenIssuer) Issue() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
