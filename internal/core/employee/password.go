package employee

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	passwordMinLength = 8
	passwordMaxLength = 72 // bcrypt の入力上限
	passwordSpecials  = `!@#$%^&*(),.?":{}|<>`
)

// PasswordHasher はパスワードのハッシュ化と照合を提供します。
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// ValidatePassword はパスワードポリシーを検証します。
// 8 文字以上で、大文字・小文字・数字・記号をそれぞれ一文字以上含む必要があります。
func ValidatePassword(plain string) error {
	if len(plain) < passwordMinLength || len(plain) > passwordMaxLength {
		return fmt.Errorf("password must be %d to %d characters: %w", passwordMinLength, passwordMaxLength, ErrInvalidPassword)
	}

	var upper, lower, digit, special bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}

	switch {
	case !upper:
		return fmt.Errorf("password needs an uppercase letter: %w", ErrInvalidPassword)
	case !lower:
		return fmt.Errorf("password needs a lowercase letter: %w", ErrInvalidPassword)
	case !digit:
		return fmt.Errorf("password needs a digit: %w", ErrInvalidPassword)
	case !special:
		return fmt.Errorf("password needs a special character: %w", ErrInvalidPassword)
	}
	return nil
}
