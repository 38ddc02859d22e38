package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Actor は操作を行う認証済みの呼び出し元です。
type Actor struct {
	ID    int64
	Role  Role
	Email string
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	RegisterEmployee(ctx context.Context, in CreateEmployeeInput) (*View, error)
	CreateEmployee(ctx context.Context, actor Actor, in CreateEmployeeInput) (*View, error)
	UpdateEmployee(ctx context.Context, actor Actor, in UpdateEmployeeInput) (*View, error)
	DeleteEmployee(ctx context.Context, actor Actor, in DeleteEmployeeInput) error
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*View, error)
	ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error)
}

// Service は社員に関するユースケースをまとめます。
type Service struct {
	repo   Repository
	hasher PasswordHasher
	clock  Clock
	tx     TransactionManager
	events EventPublisher
}

// NewService は Service を生成します。clock, tx, events が nil の場合は既定の実装を使います。
func NewService(repo Repository, hasher PasswordHasher, clock Clock, tx TransactionManager, events EventPublisher) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if events == nil {
		events = NoopPublisher{}
	}
	return &Service{repo: repo, hasher: hasher, clock: clock, tx: tx, events: events}
}

// PhoneInput は電話番号の入力です。
type PhoneInput struct {
	Number string
	Type   string
}

// CreateEmployeeInput は社員作成時の入力です。Role が 0 の場合は RoleEmployee になります。
type CreateEmployeeInput struct {
	FirstName   string
	LastName    string
	Email       string
	DocNumber   string
	Phones      []PhoneInput
	ManagerID   *int64
	Role        Role
	Password    string
	DateOfBirth time.Time
}

// UpdateEmployeeInput は社員更新時の入力です。ManagerID が nil の場合は上長を外します。
type UpdateEmployeeInput struct {
	ID          int64
	FirstName   string
	LastName    string
	Email       string
	Phones      []PhoneInput
	ManagerID   *int64
	DateOfBirth time.Time
}

// DeleteEmployeeInput は社員削除時の入力です。
type DeleteEmployeeInput struct {
	ID int64
}

// GetEmployeeInput は社員取得時の入力です。
type GetEmployeeInput struct {
	ID int64
}

// ListEmployeesInput は一覧取得時の入力です。
type ListEmployeesInput struct {
	ManagerID  *int64
	Role       *Role
	SearchTerm string
	PageNumber int
	PageSize   int
}

// ListEmployeesResult は一覧取得結果を表します。TotalCount は絞り込み後の件数です。
type ListEmployeesResult struct {
	Employees  []*View
	PageNumber int
	PageSize   int
	TotalCount int
}

// RegisterEmployee は自己登録による社員を作成します。作成者の権限確認は行わず、上長は設定しません。
func (s *Service) RegisterEmployee(ctx context.Context, in CreateEmployeeInput) (*View, error) {
	in.ManagerID = nil
	created, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "employee registered", "employee_id", created.ID(), "role", created.Role().String())
	s.publish(ctx, EventRegistered, created, created.ID())

	return NewView(created, s.clock.Now()), nil
}

// CreateEmployee は actor の権限で新しい社員を作成します。
func (s *Service) CreateEmployee(ctx context.Context, actor Actor, in CreateEmployeeInput) (*View, error) {
	role := in.Role
	if role == 0 {
		role = RoleEmployee
	}
	if !role.Valid() {
		return nil, fmt.Errorf("role: %w", ErrInvalidRole)
	}
	if !CanCreateRole(actor.Role, role) {
		return nil, fmt.Errorf("create %s as %s: %w", role, actor.Role, ErrForbidden)
	}

	created, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "employee created", "employee_id", created.ID(), "role", created.Role().String(), "actor_id", actor.ID)
	s.publish(ctx, EventCreated, created, actor.ID)

	return NewView(created, s.clock.Now()), nil
}

func (s *Service) create(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	role := in.Role
	if role == 0 {
		role = RoleEmployee
	}
	if !role.Valid() {
		return nil, fmt.Errorf("role: %w", ErrInvalidRole)
	}

	email, err := NewEmail(in.Email)
	if err != nil {
		return nil, fmt.Errorf("email: %w", err)
	}

	phones, err := ParsePhones(in.Phones)
	if err != nil {
		return nil, err
	}

	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureEmailNotExists(txCtx, email); err != nil {
			return err
		}
		if err := s.ensureDocNumberNotExists(txCtx, in.DocNumber); err != nil {
			return err
		}
		if in.ManagerID != nil {
			if err := s.ensureManagerExists(txCtx, *in.ManagerID); err != nil {
				return err
			}
		}

		emp, err := New(NewEmployeeParams{
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			Email:        email,
			DocNumber:    in.DocNumber,
			DateOfBirth:  in.DateOfBirth,
			Role:         role,
			PasswordHash: hash,
			ManagerID:    in.ManagerID,
			Phones:       phones,
		}, s.clock.Now())
		if err != nil {
			return err
		}

		added, err := s.repo.Add(txCtx, emp)
		if err != nil {
			return err
		}

		created, err = s.repo.GetByID(txCtx, added.ID())
		return err
	}); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateEmployee は actor の権限で社員情報を更新します。電話番号は入力の集合で置き換えます。
func (s *Service) UpdateEmployee(ctx context.Context, actor Actor, in UpdateEmployeeInput) (*View, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	email, err := NewEmail(in.Email)
	if err != nil {
		return nil, fmt.Errorf("email: %w", err)
	}

	phones, err := ParsePhones(in.Phones)
	if err != nil {
		return nil, err
	}

	var updated *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.GetByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		if !CanUpdateEmployee(actor.Role, existing.Role()) {
			return fmt.Errorf("update %s as %s: %w", existing.Role(), actor.Role, ErrForbidden)
		}

		now := s.clock.Now()

		if email != existing.Email() {
			if err := s.ensureEmailNotExists(txCtx, email); err != nil {
				return err
			}
			if err := existing.UpdateEmail(email, now); err != nil {
				return err
			}
		}

		if err := existing.UpdatePersonalInfo(in.FirstName, in.LastName, in.DateOfBirth, now); err != nil {
			return err
		}

		if !sameID(existing.ManagerID(), in.ManagerID) {
			if in.ManagerID != nil {
				if err := s.ensureManagerExists(txCtx, *in.ManagerID); err != nil {
					return err
				}
			}
			if err := existing.ChangeManager(in.ManagerID, now); err != nil {
				return err
			}
		}

		if err := existing.ReplacePhones(phones, now); err != nil {
			return err
		}

		if _, err := s.repo.Update(txCtx, existing); err != nil {
			return err
		}

		updated, err = s.repo.GetByID(txCtx, existing.ID())
		return err
	}); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "employee updated", "employee_id", updated.ID(), "actor_id", actor.ID)
	s.publish(ctx, EventUpdated, updated, actor.ID)

	return NewView(updated, s.clock.Now()), nil
}

// DeleteEmployee は actor の権限で社員を削除します。部下がいる社員は削除できません。
func (s *Service) DeleteEmployee(ctx context.Context, actor Actor, in DeleteEmployeeInput) error {
	if in.ID <= 0 {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	var deleted *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		target, err := s.repo.GetByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		if !CanDeleteEmployee(actor.Role, target.Role()) {
			return fmt.Errorf("delete %s as %s: %w", target.Role(), actor.Role, ErrForbidden)
		}

		subordinates, err := s.repo.GetByManagerID(txCtx, target.ID())
		if err != nil {
			return err
		}
		if len(subordinates) > 0 {
			return ErrHasSubordinates
		}

		if err := s.repo.Delete(txCtx, target.ID()); err != nil {
			return err
		}
		deleted = target
		return nil
	}); err != nil {
		return err
	}

	slog.InfoContext(ctx, "employee deleted", "employee_id", deleted.ID(), "actor_id", actor.ID)
	s.publish(ctx, EventDeleted, deleted, actor.ID)

	return nil
}

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*View, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var found *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		emp, err := s.repo.GetByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		found = emp
		return nil
	}); err != nil {
		return nil, err
	}

	return NewView(found, s.clock.Now()), nil
}

// ListEmployees は社員の一覧を取得します。
// 上長、ロール、検索語の順に絞り込んだ後でページングします。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error) {
	pageNumber, err := normalizePageNumber(in.PageNumber)
	if err != nil {
		return nil, err
	}

	pageSize, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	if in.Role != nil && !in.Role.Valid() {
		return nil, fmt.Errorf("role: %w", ErrInvalidRole)
	}

	var all []*Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		employees, err := s.repo.GetAll(txCtx)
		if err != nil {
			return err
		}
		all = employees
		return nil
	}); err != nil {
		return nil, err
	}

	filtered := filterEmployees(all, in.ManagerID, in.Role, in.SearchTerm)

	// 総ページ数を超える場合は乗算の前に打ち切る
	skip := len(filtered)
	if pages := (len(filtered) + pageSize - 1) / pageSize; pageNumber-1 < pages {
		skip = (pageNumber - 1) * pageSize
	}
	end := min(skip+pageSize, len(filtered))

	now := s.clock.Now()
	views := make([]*View, 0, end-skip)
	for _, emp := range filtered[skip:end] {
		views = append(views, NewView(emp, now))
	}

	return &ListEmployeesResult{
		Employees:  views,
		PageNumber: pageNumber,
		PageSize:   pageSize,
		TotalCount: len(filtered),
	}, nil
}

// ParsePhones は電話番号の入力を検証して Phone に変換します。
func ParsePhones(in []PhoneInput) ([]Phone, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("phones: %w", ErrNoPhoneProvided)
	}
	phones := make([]Phone, 0, len(in))
	for i, p := range in {
		typ, err := ParsePhoneType(p.Type)
		if err != nil {
			return nil, fmt.Errorf("phones[%d]: %w", i, err)
		}
		phone, err := NewPhone(p.Number, typ)
		if err != nil {
			return nil, fmt.Errorf("phones[%d]: %w", i, err)
		}
		phones = append(phones, phone)
	}
	return phones, nil
}

func filterEmployees(all []*Employee, managerID *int64, role *Role, searchTerm string) []*Employee {
	term := strings.ToLower(strings.TrimSpace(searchTerm))
	out := make([]*Employee, 0, len(all))
	for _, emp := range all {
		if managerID != nil && !sameID(emp.managerID, managerID) {
			continue
		}
		if role != nil && emp.role != *role {
			continue
		}
		if term != "" && !matchesSearch(emp, term) {
			continue
		}
		out = append(out, emp)
	}
	return out
}

func matchesSearch(emp *Employee, term string) bool {
	return strings.Contains(strings.ToLower(emp.firstName), term) ||
		strings.Contains(strings.ToLower(emp.lastName), term) ||
		strings.Contains(emp.email.String(), term) ||
		strings.Contains(strings.ToLower(emp.docNumber), term)
}

func (s *Service) ensureEmailNotExists(ctx context.Context, email Email) error {
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailAlreadyExists
	}
	return nil
}

func (s *Service) ensureDocNumberNotExists(ctx context.Context, docNumber string) error {
	exists, err := s.repo.DocNumberExists(ctx, strings.TrimSpace(docNumber))
	if err != nil {
		return err
	}
	if exists {
		return ErrDocNumberAlreadyExists
	}
	return nil
}

func (s *Service) ensureManagerExists(ctx context.Context, managerID int64) error {
	exists, err := s.repo.Exists(ctx, managerID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("manager %d: %w", managerID, ErrManagerNotFound)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, typ EventType, emp *Employee, actorID int64) {
	err := s.events.Publish(ctx, Event{
		Type:       typ,
		EmployeeID: emp.ID(),
		ActorID:    actorID,
		Role:       emp.Role(),
		OccurredAt: s.clock.Now(),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.WarnContext(ctx, "failed to publish employee event", "type", string(typ), "employee_id", emp.ID(), "error", err)
	}
}

func normalizePageNumber(pageNumber int) (int, error) {
	if pageNumber == 0 {
		return 1, nil
	}
	if pageNumber < 0 {
		return 0, ErrInvalidPageNumber
	}
	return pageNumber, nil
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize == 0 {
		return defaultPageSize, nil
	}
	if pageSize < 0 || pageSize > maxPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}
