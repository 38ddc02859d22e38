package employee

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	nameMaxLength      = 100
	docNumberMaxLength = 50
	adultAge           = 18
)

// ManagerSnapshot は上長の表示用情報です。リポジトリが読み込み時に設定します。
type ManagerSnapshot struct {
	ID        int64
	FirstName string
	LastName  string
}

// FullName は上長の表示名を返します。
func (m ManagerSnapshot) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Employee は社員集約です。電話番号の集合を含めて一つの整合性境界として扱います。
// 状態を変更するメソッドは不変条件を検証し、失敗した場合は状態を変更しません。
type Employee struct {
	id           int64
	firstName    string
	lastName     string
	email        Email
	docNumber    string
	dateOfBirth  time.Time
	role         Role
	passwordHash string
	managerID    *int64
	manager      *ManagerSnapshot
	phones       []Phone
	createdAt    time.Time
	updatedAt    *time.Time
}

// NewEmployeeParams は社員生成時の入力です。
type NewEmployeeParams struct {
	FirstName    string
	LastName     string
	Email        Email
	DocNumber    string
	DateOfBirth  time.Time
	Role         Role
	PasswordHash string
	ManagerID    *int64
	Phones       []Phone
}

// New は入力を検証して新しい社員を生成します。ID は永続化時に採番されます。
func New(p NewEmployeeParams, now time.Time) (*Employee, error) {
	firstName, err := normalizeName(p.FirstName, ErrInvalidFirstName)
	if err != nil {
		return nil, fmt.Errorf("first_name: %w", err)
	}

	lastName, err := normalizeName(p.LastName, ErrInvalidLastName)
	if err != nil {
		return nil, fmt.Errorf("last_name: %w", err)
	}

	if p.Email.IsZero() {
		return nil, fmt.Errorf("email: %w", ErrInvalidEmail)
	}

	docNumber, err := normalizeDocNumber(p.DocNumber)
	if err != nil {
		return nil, fmt.Errorf("doc_number: %w", err)
	}

	dob, err := validateDateOfBirth(p.DateOfBirth, now)
	if err != nil {
		return nil, fmt.Errorf("date_of_birth: %w", err)
	}

	if !p.Role.Valid() {
		return nil, fmt.Errorf("role: %w", ErrInvalidRole)
	}

	if strings.TrimSpace(p.PasswordHash) == "" {
		return nil, fmt.Errorf("password: %w", ErrInvalidPassword)
	}

	phones, err := validatePhones(p.Phones)
	if err != nil {
		return nil, fmt.Errorf("phones: %w", err)
	}

	return &Employee{
		firstName:    firstName,
		lastName:     lastName,
		email:        p.Email,
		docNumber:    docNumber,
		dateOfBirth:  dob,
		role:         p.Role,
		passwordHash: p.PasswordHash,
		managerID:    cloneID(p.ManagerID),
		phones:       phones,
		createdAt:    now,
	}, nil
}

// RestoreParams は永続化済みの社員を復元するための入力です。
type RestoreParams struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        Email
	DocNumber    string
	DateOfBirth  time.Time
	Role         Role
	PasswordHash string
	ManagerID    *int64
	Manager      *ManagerSnapshot
	Phones       []Phone
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// Restore はストレージから読み込んだ値で社員を組み立てます。検証は行いません。
func Restore(p RestoreParams) *Employee {
	e := &Employee{
		id:           p.ID,
		firstName:    p.FirstName,
		lastName:     p.LastName,
		email:        p.Email,
		docNumber:    p.DocNumber,
		dateOfBirth:  normalizeDate(p.DateOfBirth),
		role:         p.Role,
		passwordHash: p.PasswordHash,
		managerID:    cloneID(p.ManagerID),
		phones:       append([]Phone(nil), p.Phones...),
		createdAt:    p.CreatedAt,
		updatedAt:    cloneTime(p.UpdatedAt),
	}
	if p.Manager != nil {
		m := *p.Manager
		e.manager = &m
	}
	return e
}

func (e *Employee) ID() int64              { return e.id }
func (e *Employee) FirstName() string      { return e.firstName }
func (e *Employee) LastName() string       { return e.lastName }
func (e *Employee) Email() Email           { return e.email }
func (e *Employee) DocNumber() string      { return e.docNumber }
func (e *Employee) DateOfBirth() time.Time { return e.dateOfBirth }
func (e *Employee) Role() Role             { return e.role }
func (e *Employee) PasswordHash() string   { return e.passwordHash }
func (e *Employee) CreatedAt() time.Time   { return e.createdAt }

// ManagerID は上長の ID を返します。上長がいない場合は nil です。
func (e *Employee) ManagerID() *int64 { return cloneID(e.managerID) }

// Manager は読み込み時に解決された上長情報を返します。
func (e *Employee) Manager() *ManagerSnapshot {
	if e.manager == nil {
		return nil
	}
	m := *e.manager
	return &m
}

// UpdatedAt は最終更新日時を返します。作成後に一度も更新されていなければ nil です。
func (e *Employee) UpdatedAt() *time.Time { return cloneTime(e.updatedAt) }

// Phones は電話番号のコピーを登録順に返します。
func (e *Employee) Phones() []Phone {
	return append([]Phone(nil), e.phones...)
}

// FullName は表示名を返します。
func (e *Employee) FullName() string {
	return e.firstName + " " + e.lastName
}

// Age は now 時点の満年齢を返します。
func (e *Employee) Age(now time.Time) int {
	return ageAt(e.dateOfBirth, now)
}

// IsAdult は now 時点で成人かどうかを返します。
func (e *Employee) IsAdult(now time.Time) bool {
	return e.Age(now) >= adultAge
}

// CanCreateRole は自身のロールで target ロールの社員を作成できるかを返します。
func (e *Employee) CanCreateRole(target Role) bool {
	return CanCreateRole(e.role, target)
}

// AddPhone は電話番号を追加します。
func (e *Employee) AddPhone(phone Phone, now time.Time) error {
	phone, err := NewPhone(phone.Number, phone.Type)
	if err != nil {
		return err
	}
	for _, existing := range e.phones {
		if existing == phone {
			return ErrDuplicatePhone
		}
	}
	e.phones = append(e.phones, phone)
	e.touch(now)
	return nil
}

// RemovePhone は電話番号を削除します。最後の一件は削除できません。
func (e *Employee) RemovePhone(phone Phone, now time.Time) error {
	if normalized, err := NewPhone(phone.Number, phone.Type); err == nil {
		phone = normalized
	}
	idx := -1
	for i, existing := range e.phones {
		if existing == phone {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrPhoneNotFound
	}
	if len(e.phones) == 1 {
		return ErrLastPhone
	}

	phones := make([]Phone, 0, len(e.phones)-1)
	phones = append(phones, e.phones[:idx]...)
	phones = append(phones, e.phones[idx+1:]...)
	e.phones = phones
	e.touch(now)
	return nil
}

// ReplacePhones は電話番号の集合を置き換えます。
func (e *Employee) ReplacePhones(phones []Phone, now time.Time) error {
	validated, err := validatePhones(phones)
	if err != nil {
		return fmt.Errorf("phones: %w", err)
	}
	e.phones = validated
	e.touch(now)
	return nil
}

// UpdatePersonalInfo は氏名と生年月日を更新します。
func (e *Employee) UpdatePersonalInfo(firstName, lastName string, dateOfBirth time.Time, now time.Time) error {
	first, err := normalizeName(firstName, ErrInvalidFirstName)
	if err != nil {
		return fmt.Errorf("first_name: %w", err)
	}
	last, err := normalizeName(lastName, ErrInvalidLastName)
	if err != nil {
		return fmt.Errorf("last_name: %w", err)
	}
	dob, err := validateDateOfBirth(dateOfBirth, now)
	if err != nil {
		return fmt.Errorf("date_of_birth: %w", err)
	}

	e.firstName = first
	e.lastName = last
	e.dateOfBirth = dob
	e.touch(now)
	return nil
}

// UpdateEmail はメールアドレスを置き換えます。他の社員との重複確認は呼び出し側で行います。
func (e *Employee) UpdateEmail(email Email, now time.Time) error {
	if email.IsZero() {
		return fmt.Errorf("email: %w", ErrInvalidEmail)
	}
	e.email = email
	e.touch(now)
	return nil
}

// ChangeManager は上長を変更します。nil は上長なしを表します。
// 上長の存在確認は呼び出し側で行います。
func (e *Employee) ChangeManager(managerID *int64, now time.Time) error {
	if managerID != nil && e.id != 0 && *managerID == e.id {
		return ErrSelfManagement
	}
	if !sameID(e.managerID, managerID) {
		e.manager = nil
	}
	e.managerID = cloneID(managerID)
	e.touch(now)
	return nil
}

// ChangeRole はロールを変更します。権限の確認は呼び出し側の責務です。
func (e *Employee) ChangeRole(role Role, now time.Time) error {
	if !role.Valid() {
		return fmt.Errorf("role: %w", ErrInvalidRole)
	}
	e.role = role
	e.touch(now)
	return nil
}

func (e *Employee) touch(now time.Time) {
	t := now
	e.updatedAt = &t
}

func normalizeName(raw string, invalid error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > nameMaxLength {
		return "", invalid
	}
	return trimmed, nil
}

func normalizeDocNumber(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > docNumberMaxLength {
		return "", ErrInvalidDocNumber
	}
	return trimmed, nil
}

func validateDateOfBirth(dob, now time.Time) (time.Time, error) {
	if dob.IsZero() {
		return time.Time{}, ErrInvalidDateOfBirth
	}
	date := normalizeDate(dob)
	today := normalizeDate(now)
	if !date.Before(today) {
		return time.Time{}, ErrInvalidDateOfBirth
	}
	if ageAt(date, today) < adultAge {
		return time.Time{}, ErrUnderage
	}
	return date, nil
}

func validatePhones(phones []Phone) ([]Phone, error) {
	if len(phones) == 0 {
		return nil, ErrNoPhoneProvided
	}
	seen := make(map[Phone]struct{}, len(phones))
	out := make([]Phone, 0, len(phones))
	for _, raw := range phones {
		p, err := NewPhone(raw.Number, raw.Type)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[p]; ok {
			return nil, ErrDuplicatePhone
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func ageAt(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

func normalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	clone := *id
	return &clone
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
