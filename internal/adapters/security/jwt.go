package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ogurasousui/employee-management/internal/core/auth"
	"github.com/ogurasousui/employee-management/internal/core/employee"
)

// ErrInvalidToken はトークンの解析・検証に失敗した場合のエラーです。
var ErrInvalidToken = errors.New("security: invalid token")

// JWTConfig はトークン発行の設定です。
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

type tokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager は HS256 署名のアクセストークンを発行・検証します。
type JWTManager struct {
	cfg JWTConfig
	now func() time.Time
}

// NewJWTManager は JWTManager を生成します。
func NewJWTManager(cfg JWTConfig) *JWTManager {
	return &JWTManager{cfg: cfg, now: time.Now}
}

// Issue は subject のアクセストークンを発行します。
func (m *JWTManager) Issue(subject auth.Subject) (auth.Token, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.cfg.TTL)
	id := uuid.NewString()

	claims := tokenClaims{
		Email: subject.Email,
		Name:  subject.Name,
		Role:  subject.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   strconv.FormatInt(subject.EmployeeID, 10),
			Issuer:    m.cfg.Issuer,
			Audience:  jwt.ClaimStrings{m.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.Secret)
	if err != nil {
		return auth.Token{}, fmt.Errorf("security: sign token: %w", err)
	}

	return auth.Token{Value: signed, ID: id, ExpiresAt: expiresAt}, nil
}

// Verify は署名、発行者、受信者、有効期限を検証してクレームを返します。
func (m *JWTManager) Verify(raw string) (auth.Claims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithAudience(m.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return auth.Claims{}, fmt.Errorf("%w: subject %q", ErrInvalidToken, claims.Subject)
	}

	role, err := employee.ParseRole(claims.Role)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return auth.Claims{
		Subject: auth.Subject{
			EmployeeID: id,
			Email:      claims.Email,
			Name:       claims.Name,
			Role:       role,
		},
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
