package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher は bcrypt によるパスワードハッシュです。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher は BcryptHasher を生成します。cost が範囲外の場合は bcrypt.DefaultCost を使います。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash は平文パスワードをハッシュ化します。
func (h *BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

// Verify は平文パスワードとハッシュが一致するかを返します。
func (h *BcryptHasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
