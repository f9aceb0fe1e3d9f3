package auth

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/medrec/medrec/internal/platform/apperr"
)

const minPasswordLength = 12

// ValidatePassword enforces the account password policy: at least 12
// characters with an upper-case letter, a lower-case letter, a digit and a
// special character.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperr.Newf(apperr.KindValidation, "password must be at least %d characters", minPasswordLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return apperr.New(apperr.KindValidation, "password must contain an upper-case letter")
	case !hasLower:
		return apperr.New(apperr.KindValidation, "password must contain a lower-case letter")
	case !hasDigit:
		return apperr.New(apperr.KindValidation, "password must contain a digit")
	case !hasSpecial:
		return apperr.New(apperr.KindValidation, "password must contain a special character")
	}
	return nil
}

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "hash password", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether the password matches the stored bcrypt hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
