package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/joao-fontenele/patas-storefront/internal/domain"
)

const passwordCost = 10

// UnknownUserHash is compared against when no account matches, so a failed
// login costs the same bcrypt work whether or not the email exists.
var UnknownUserHash = sync.OnceValue(func() string {
	hash, err := bcrypt.GenerateFromPassword([]byte("patas:no-such-user"), passwordCost)
	if err != nil {
		panic(fmt.Sprintf("hash placeholder password: %v", err))
	}
	return string(hash)
})

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports domain.ErrUnauthorized when password does not match hash.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domain.ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	return nil
}
