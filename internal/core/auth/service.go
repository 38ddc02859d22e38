package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ogurasousui/employee-management/internal/core/employee"
)

// Registrar は自己登録による社員作成を提供します。
type Registrar interface {
	RegisterEmployee(ctx context.Context, in employee.CreateEmployeeInput) (*employee.View, error)
}

// EmployeeFinder はログイン時の社員検索を提供します。
type EmployeeFinder interface {
	GetByEmail(ctx context.Context, email employee.Email) (*employee.Employee, error)
}

// UseCase は認証ユースケースの公開インターフェースです。
type UseCase interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (employee.Actor, error)
}

// Dependencies は Service の依存関係です。Limiter と Revoker は nil の場合に無効化されます。
type Dependencies struct {
	Registrar Registrar
	Employees EmployeeFinder
	Hasher    employee.PasswordHasher
	Issuer    TokenIssuer
	Verifier  TokenVerifier
	Limiter   AttemptLimiter
	Revoker   TokenRevoker
	Clock     employee.Clock
}

// Service は登録、ログイン、トークン検証をまとめます。
type Service struct {
	registrar Registrar
	employees EmployeeFinder
	hasher    employee.PasswordHasher
	issuer    TokenIssuer
	verifier  TokenVerifier
	limiter   AttemptLimiter
	revoker   TokenRevoker
	clock     employee.Clock

	dummyOnce sync.Once
	dummyHash string
}

const dummyPassword = "timing-equalizer-Password1!"

// NewService は Service を生成します。
func NewService(deps Dependencies) *Service {
	s := &Service{
		registrar: deps.Registrar,
		employees: deps.Employees,
		hasher:    deps.Hasher,
		issuer:    deps.Issuer,
		verifier:  deps.Verifier,
		limiter:   deps.Limiter,
		revoker:   deps.Revoker,
		clock:     deps.Clock,
	}
	if s.limiter == nil {
		s.limiter = noopLimiter{}
	}
	if s.revoker == nil {
		s.revoker = noopRevoker{}
	}
	if s.clock == nil {
		s.clock = utcClock{}
	}
	return s
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

// RegisterInput は自己登録時の入力です。Role が 0 の場合は RoleEmployee になります。
type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	DocNumber   string
	Phones      []employee.PhoneInput
	Role        employee.Role
	Password    string
	DateOfBirth time.Time
}

// LoginInput はログイン時の入力です。
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult は登録・ログインの結果です。
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	Employee  *employee.View
}

// Register は社員を登録してアクセストークンを発行します。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	view, err := s.registrar.RegisterEmployee(ctx, employee.CreateEmployeeInput{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		DocNumber:   in.DocNumber,
		Phones:      in.Phones,
		Role:        in.Role,
		Password:    in.Password,
		DateOfBirth: in.DateOfBirth,
	})
	if err != nil {
		return nil, err
	}

	token, err := s.issuer.Issue(Subject{
		EmployeeID: view.ID,
		Email:      view.Email,
		Name:       view.FirstName + " " + view.LastName,
		Role:       view.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &AuthResult{Token: token.Value, ExpiresAt: token.ExpiresAt, Employee: view}, nil
}

// Login はメールアドレスとパスワードを照合してアクセストークンを発行します。
// 未登録のメールアドレスとパスワード不一致は区別しません。
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	key := strings.ToLower(strings.TrimSpace(in.Email))

	blocked, err := s.limiter.Blocked(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check login attempts: %w", err)
	}
	if blocked {
		slog.WarnContext(ctx, "login blocked", "email", key)
		return nil, ErrTooManyAttempts
	}

	emp, err := s.lookup(ctx, key, in.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			slog.InfoContext(ctx, "login failed", "email", key)
			if ferr := s.limiter.RegisterFailure(ctx, key); ferr != nil {
				slog.WarnContext(ctx, "failed to register login failure", "email", key, "error", ferr)
			}
		}
		return nil, err
	}

	if err := s.limiter.Reset(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to reset login attempts", "email", key, "error", err)
	}

	token, err := s.issuer.Issue(Subject{
		EmployeeID: emp.ID(),
		Email:      emp.Email().String(),
		Name:       emp.FullName(),
		Role:       emp.Role(),
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	slog.InfoContext(ctx, "login succeeded", "employee_id", emp.ID())

	return &AuthResult{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		Employee:  employee.NewView(emp, s.clock.Now()),
	}, nil
}

func (s *Service) lookup(ctx context.Context, email, password string) (*employee.Employee, error) {
	addr, err := employee.NewEmail(email)
	if err != nil {
		s.burnVerify(password)
		return nil, ErrInvalidCredentials
	}

	emp, err := s.employees.GetByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			s.burnVerify(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, emp.PasswordHash()) {
		return nil, ErrInvalidCredentials
	}
	return emp, nil
}

// burnVerify は未登録のアカウントでも登録済みと同じコストのパスワード照合を行います。
func (s *Service) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		if h, err := s.hasher.Hash(dummyPassword); err == nil {
			s.dummyHash = h
		}
	})
	_ = s.hasher.Verify(password, s.dummyHash)
}

// Logout はトークンを有効期限まで失効させます。
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.verifier.Verify(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if err := s.revoker.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	slog.InfoContext(ctx, "logout", "employee_id", claims.EmployeeID)
	return nil
}

// Authenticate はトークンを検証して呼び出し元を返します。
func (s *Service) Authenticate(ctx context.Context, token string) (employee.Actor, error) {
	if strings.TrimSpace(token) == "" {
		return employee.Actor{}, ErrUnauthorized
	}

	claims, err := s.verifier.Verify(token)
	if err != nil {
		return employee.Actor{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return employee.Actor{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return employee.Actor{}, fmt.Errorf("%w: token revoked", ErrUnauthorized)
	}

	return employee.Actor{ID: claims.EmployeeID, Role: claims.Role, Email: claims.Email}, nil
}
