package auth

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// unusablePasswordPrefix marks accounts that have no credential set. The
// prefix can never appear in a bcrypt hash, so login comparison always
// fails without special casing.
const unusablePasswordPrefix = "!"

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// UnusablePassword returns a sentinel hash for accounts created without a
// credential. The random payload keeps two such accounts from sharing a
// stored value.
func UnusablePassword() string {
	return unusablePasswordPrefix + uuid.NewString()
}
