package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ogurasousui/employee-management/internal/core/employee"
)

var testNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

type stubClock struct{ now time.Time }

func (s stubClock) Now() time.Time { return s.now }

type stubHasher struct{}

func (stubHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (stubHasher) Verify(plain, hash string) bool    { return hash == "hashed:"+plain }

type stubFinder struct {
	employees map[string]*employee.Employee
	err       error
}

func (f *stubFinder) GetByEmail(_ context.Context, email employee.Email) (*employee.Employee, error) {
	if f.err != nil {
		return nil, f.err
	}
	emp, ok := f.employees[email.String()]
	if !ok {
		return nil, employee.ErrEmployeeNotFound
	}
	return emp, nil
}

type stubRegistrar struct {
	got  employee.CreateEmployeeInput
	view *employee.View
	err  error
}

func (r *stubRegistrar) RegisterEmployee(_ context.Context, in employee.CreateEmployeeInput) (*employee.View, error) {
	r.got = in
	return r.view, r.err
}

type stubTokens struct {
	issued []Subject
	claims map[string]Claims
}

func newStubTokens() *stubTokens {
	return &stubTokens{claims: make(map[string]Claims)}
}

func (s *stubTokens) Issue(subject Subject) (Token, error) {
	s.issued = append(s.issued, subject)
	value := "token-" + subject.Email
	expires := testNow.Add(24 * time.Hour)
	s.claims[value] = Claims{Subject: subject, TokenID: "jti-" + subject.Email, ExpiresAt: expires}
	return Token{Value: value, ID: "jti-" + subject.Email, ExpiresAt: expires}, nil
}

func (s *stubTokens) Verify(token string) (Claims, error) {
	claims, ok := s.claims[token]
	if !ok {
		return Claims{}, errors.New("bad signature")
	}
	return claims, nil
}

type memoryLimiter struct {
	failures map[string]int
	limit    int
}

func (l *memoryLimiter) Blocked(_ context.Context, key string) (bool, error) {
	return l.failures[key] >= l.limit, nil
}

func (l *memoryLimiter) RegisterFailure(_ context.Context, key string) error {
	l.failures[key]++
	return nil
}

func (l *memoryLimiter) Reset(_ context.Context, key string) error {
	delete(l.failures, key)
	return nil
}

type memoryRevoker struct {
	revoked map[string]time.Time
}

func (r *memoryRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	r.revoked[tokenID] = until
	return nil
}

func (r *memoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := r.revoked[tokenID]
	return ok, nil
}

type fixture struct {
	svc     *Service
	tokens  *stubTokens
	limiter *memoryLimiter
	revoker *memoryRevoker
	reg     *stubRegistrar
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	email, err := employee.NewEmail("john@example.com")
	if err != nil {
		t.Fatalf("NewEmail: %v", err)
	}
	emp := employee.Restore(employee.RestoreParams{
		ID:           7,
		FirstName:    "John",
		LastName:     "Doe",
		Email:        email,
		DocNumber:    "DOC-1",
		DateOfBirth:  time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Role:         employee.RoleLeader,
		PasswordHash: "hashed:Password123!",
		Phones:       []employee.Phone{{Number: "12345678", Type: employee.PhoneTypeMobile}},
		CreatedAt:    testNow,
	})

	f := &fixture{
		tokens:  newStubTokens(),
		limiter: &memoryLimiter{failures: make(map[string]int), limit: 5},
		revoker: &memoryRevoker{revoked: make(map[string]time.Time)},
		reg:     &stubRegistrar{},
	}
	f.svc = NewService(Dependencies{
		Registrar: f.reg,
		Employees: &stubFinder{employees: map[string]*employee.Employee{"john@example.com": emp}},
		Hasher:    stubHasher{},
		Issuer:    f.tokens,
		Verifier:  f.tokens,
		Limiter:   f.limiter,
		Revoker:   f.revoker,
		Clock:     stubClock{now: testNow},
	})
	return f
}

func TestService_Login_Success(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	result, err := f.svc.Login(context.Background(), LoginInput{Email: " JOHN@example.com ", Password: "Password123!"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Token != "token-john@example.com" {
		t.Fatalf("unexpected token %q", result.Token)
	}
	if result.Employee == nil || result.Employee.ID != 7 || result.Employee.Age != 35 {
		t.Fatalf("unexpected employee view: %+v", result.Employee)
	}
	if got := f.tokens.issued[0]; got.Name != "John Doe" || got.Role != employee.RoleLeader {
		t.Fatalf("unexpected subject: %+v", got)
	}
}

func TestService_Login_InvalidCredentials(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	inputs := []LoginInput{
		{Email: "john@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "Password123!"},
		{Email: "not-an-email", Password: "Password123!"},
	}
	for _, in := range inputs {
		if _, err := f.svc.Login(context.Background(), in); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login(%s): expected ErrInvalidCredentials, got %v", in.Email, err)
		}
	}
	if f.limiter.failures["john@example.com"] != 1 {
		t.Fatalf("expected one failure recorded, got %d", f.limiter.failures["john@example.com"])
	}
}

type countingHasher struct {
	stubHasher
	hashes   int
	verified []string
}

func (h *countingHasher) Hash(plain string) (string, error) {
	h.hashes++
	return h.stubHasher.Hash(plain)
}

func (h *countingHasher) Verify(plain, hash string) bool {
	h.verified = append(h.verified, hash)
	return h.stubHasher.Verify(plain, hash)
}

func TestService_Login_UnknownEmailStillVerifies(t *testing.T) {
	t.Parallel()

	hasher := &countingHasher{}
	svc := NewService(Dependencies{
		Employees: &stubFinder{employees: map[string]*employee.Employee{}},
		Hasher:    hasher,
		Clock:     stubClock{now: testNow},
	})

	for _, email := range []string{"nobody@example.com", "ghost@example.com", "not-an-email"} {
		if _, err := svc.Login(context.Background(), LoginInput{Email: email, Password: "Password123!"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login(%s): expected ErrInvalidCredentials, got %v", email, err)
		}
	}

	if len(hasher.verified) != 3 {
		t.Fatalf("expected a password comparison for every attempt, got %d", len(hasher.verified))
	}
	if hasher.hashes != 1 {
		t.Fatalf("expected the placeholder hash to be computed once, got %d", hasher.hashes)
	}
	for _, h := range hasher.verified {
		if h != "hashed:"+dummyPassword {
			t.Fatalf("expected comparison against the placeholder hash, got %q", h)
		}
	}
}

func TestService_Login_TooManyAttempts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	for i := 0; i < 5; i++ {
		if _, err := f.svc.Login(context.Background(), LoginInput{Email: "john@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	_, err := f.svc.Login(context.Background(), LoginInput{Email: "john@example.com", Password: "Password123!"})
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
	if len(f.tokens.issued) != 0 {
		t.Fatalf("expected no token while blocked")
	}
}

func TestService_Login_ResetsCounterOnSuccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, _ = f.svc.Login(context.Background(), LoginInput{Email: "john@example.com", Password: "wrong"})
	if _, err := f.svc.Login(context.Background(), LoginInput{Email: "john@example.com", Password: "Password123!"}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if _, ok := f.limiter.failures["john@example.com"]; ok {
		t.Fatalf("expected failures to be reset")
	}
}

func TestService_Login_RepositoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	svc := NewService(Dependencies{
		Employees: &stubFinder{err: boom},
		Hasher:    stubHasher{},
		Issuer:    newStubTokens(),
	})

	if _, err := svc.Login(context.Background(), LoginInput{Email: "john@example.com", Password: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected repository error, got %v", err)
	}
}

func TestService_Register(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.reg.view = &employee.View{ID: 11, FirstName: "Jane", LastName: "Smith", Email: "jane@example.com", Role: employee.RoleEmployee}

	result, err := f.svc.Register(context.Background(), RegisterInput{
		FirstName: "Jane",
		LastName:  "Smith",
		Email:     "jane@example.com",
		DocNumber: "DOC-2",
		Phones:    []employee.PhoneInput{{Number: "12345678"}},
		Password:  "Password123!",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if result.Token != "token-jane@example.com" || result.Employee.ID != 11 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if f.reg.got.DocNumber != "DOC-2" || f.reg.got.ManagerID != nil {
		t.Fatalf("unexpected registration input: %+v", f.reg.got)
	}

	f.reg.err = employee.ErrEmailAlreadyExists
	if _, err := f.svc.Register(context.Background(), RegisterInput{Email: "jane@example.com"}); !errors.Is(err, employee.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestService_AuthenticateAndLogout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	result, err := f.svc.Login(context.Background(), LoginInput{Email: "john@example.com", Password: "Password123!"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	actor, err := f.svc.Authenticate(context.Background(), result.Token)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if actor.ID != 7 || actor.Role != employee.RoleLeader || actor.Email != "john@example.com" {
		t.Fatalf("unexpected actor: %+v", actor)
	}

	if err := f.svc.Logout(context.Background(), result.Token); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if until := f.revoker.revoked["jti-john@example.com"]; !until.Equal(result.ExpiresAt) {
		t.Fatalf("expected revocation until expiry, got %v", until)
	}

	if _, err := f.svc.Authenticate(context.Background(), result.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
	if _, err := f.svc.Authenticate(context.Background(), "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for bad token, got %v", err)
	}
	if _, err := f.svc.Authenticate(context.Background(), ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for empty token, got %v", err)
	}
	if err := f.svc.Logout(context.Background(), "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for bad logout token, got %v", err)
	}
}
