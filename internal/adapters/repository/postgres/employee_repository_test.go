package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/ogurasousui/employee-management/internal/core/employee"
)

var employeeRowColumns = []string{
	"id", "first_name", "last_name", "email", "doc_number", "date_of_birth", "role",
	"password_hash", "manager_id", "created_at", "updated_at", "manager_first_name", "manager_last_name",
}

type stubEmployeeRow struct {
	scanFn func(dest ...any) error
}

func (s stubEmployeeRow) Scan(dest ...any) error {
	return s.scanFn(dest...)
}

func newMockRepository(t *testing.T) (pgxmock.PgxPoolIface, *EmployeeRepository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock, NewEmployeeRepository(mock)
}

func mustEmail(t *testing.T, raw string) employee.Email {
	t.Helper()
	email, err := employee.NewEmail(raw)
	if err != nil {
		t.Fatalf("NewEmail: %v", err)
	}
	return email
}

func TestEmployeeRepository_GetByID(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepository(t)

	dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM employees e LEFT JOIN employees m ON m.id = e.manager_id WHERE e.id = $1 LIMIT 1")).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows(employeeRowColumns).
			AddRow(int64(2), "Jane", "Smith", "jane@example.com", "DOC-2", dob, int16(1), "hash", int64(1), created, nil, "John", "Doe"))

	mock.ExpectQuery(regexp.QuoteMeta("FROM employee_phones WHERE employee_id IN ($1) ORDER BY employee_id, position")).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"employee_id", "number", "type"}).
			AddRow(int64(2), "12345678", "mobile").
			AddRow(int64(2), "87654321", "work"))

	emp, err := repo.GetByID(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}

	if emp.ID() != 2 || emp.Email().String() != "jane@example.com" || emp.Role() != employee.RoleEmployee {
		t.Fatalf("unexpected employee: %d %s %s", emp.ID(), emp.Email(), emp.Role())
	}
	if emp.Manager() == nil || emp.Manager().FullName() != "John Doe" {
		t.Fatalf("expected manager snapshot, got %+v", emp.Manager())
	}
	if phones := emp.Phones(); len(phones) != 2 || phones[1].Type != employee.PhoneTypeWork {
		t.Fatalf("unexpected phones: %+v", phones)
	}
	if emp.UpdatedAt() != nil {
		t.Fatalf("expected nil updated_at")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_GetByEmail_NotFound(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.email = $1 LIMIT 1")).
		WithArgs("nobody@example.com").
		WillReturnRows(pgxmock.NewRows(employeeRowColumns))

	_, err := repo.GetByEmail(context.Background(), mustEmail(t, "nobody@example.com"))
	if !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_GetAll_Empty(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM employees e LEFT JOIN employees m ON m.id = e.manager_id ORDER BY e.id")).
		WillReturnRows(pgxmock.NewRows(employeeRowColumns))

	employees, err := repo.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll returned error: %v", err)
	}
	if employees == nil || len(employees) != 0 {
		t.Fatalf("expected empty slice, got %v", employees)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func newAggregate(t *testing.T) *employee.Employee {
	t.Helper()

	phone, err := employee.NewPhone("12345678", employee.PhoneTypeMobile)
	if err != nil {
		t.Fatalf("NewPhone: %v", err)
	}
	emp, err := employee.New(employee.NewEmployeeParams{
		FirstName:    "John",
		LastName:     "Doe",
		Email:        mustEmail(t, "john@example.com"),
		DocNumber:    "DOC-1",
		DateOfBirth:  time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Role:         employee.RoleLeader,
		PasswordHash: "hash",
		Phones:       []employee.Phone{phone},
	}, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return emp
}

func TestEmployeeRepository_Add(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepository(t)
	emp := newAggregate(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employees (first_name,last_name,email,doc_number,date_of_birth,role,password_hash,manager_id,created_at)")).
		WithArgs("John", "Doe", "john@example.com", "DOC-1", pgxmock.AnyArg(), int16(employee.RoleLeader), "hash", nil, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(5)))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO employee_phones (employee_id,position,number,type) VALUES ($1,$2,$3,$4)")).
		WithArgs(int64(5), 0, "12345678", "mobile").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	added, err := repo.Add(context.Background(), emp)
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if added.ID() != 5 {
		t.Fatalf("expected id 5, got %d", added.ID())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_Add_DuplicateEmail(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employees")).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: emailUniqueConstraint})

	_, err := repo.Add(context.Background(), newAggregate(t))
	if !errors.Is(err, employee.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_Update(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepository(t)

	emp := employee.Restore(employee.RestoreParams{
		ID:           3,
		FirstName:    "John",
		LastName:     "Doe",
		Email:        mustEmail(t, "john@example.com"),
		DocNumber:    "DOC-1",
		DateOfBirth:  time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Role:         employee.RoleEmployee,
		PasswordHash: "hash",
		Phones: []employee.Phone{
			{Number: "12345678", Type: employee.PhoneTypeMobile},
			{Number: "87654321", Type: employee.PhoneTypeHome},
		},
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	mock.ExpectExec(regexp.QuoteMeta("UPDATE employees SET")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM employee_phones WHERE employee_id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO employee_phones (employee_id,position,number,type) VALUES ($1,$2,$3,$4),($5,$6,$7,$8)")).
		WithArgs(int64(3), 0, "12345678", "mobile", int64(3), 1, "87654321", "home").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	if _, err := repo.Update(context.Background(), emp); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_Update_NotFound(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE employees SET")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err := repo.Update(context.Background(), newAggregate(t))
	if !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestEmployeeRepository_Delete(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM employees WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: managerForeignKey})
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM employees WHERE id = $1")).
		WithArgs(int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM employees WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := repo.Delete(context.Background(), 1); !errors.Is(err, employee.ErrHasSubordinates) {
		t.Fatalf("expected ErrHasSubordinates, got %v", err)
	}
	if err := repo.Delete(context.Background(), 2); !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
	if err := repo.Delete(context.Background(), 3); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEmployeeRepository_Exists(t *testing.T) {
	t.Parallel()

	mock, repo := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM employees WHERE doc_number = $1")).
		WithArgs("DOC-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM employees WHERE email = $1")).
		WithArgs("john@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.DocNumberExists(context.Background(), "DOC-1")
	if err != nil || !exists {
		t.Fatalf("expected doc number to exist, got %v (%v)", exists, err)
	}
	exists, err = repo.EmailExists(context.Background(), mustEmail(t, "john@example.com"))
	if err != nil || exists {
		t.Fatalf("expected email to be free, got %v (%v)", exists, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestScanEmployee_WithOptionalColumns(t *testing.T) {
	t.Parallel()

	updated := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	row := stubEmployeeRow{scanFn: func(dest ...any) error {
		if len(dest) != 13 {
			return errors.New("unexpected dest length")
		}
		*(dest[0].(*int64)) = 9
		*(dest[1].(*string)) = "Bob"
		*(dest[2].(*string)) = "Johnson"
		*(dest[3].(*string)) = "bob@example.com"
		*(dest[4].(*string)) = "DOC-9"
		*(dest[5].(*time.Time)) = time.Date(1980, 5, 5, 0, 0, 0, 0, time.UTC)
		*(dest[6].(*int16)) = int16(employee.RoleDirector)
		*(dest[7].(*string)) = "hash"
		*(dest[8].(*sql.NullInt64)) = sql.NullInt64{}
		*(dest[9].(*time.Time)) = updated.Add(-time.Hour)
		*(dest[10].(*sql.NullTime)) = sql.NullTime{Time: updated, Valid: true}
		*(dest[11].(*sql.NullString)) = sql.NullString{}
		*(dest[12].(*sql.NullString)) = sql.NullString{}
		return nil
	}}

	p, err := scanEmployee(row)
	if err != nil {
		t.Fatalf("scanEmployee returned error: %v", err)
	}
	if p.ManagerID != nil || p.Manager != nil {
		t.Fatalf("expected no manager, got %v", p.ManagerID)
	}
	if p.UpdatedAt == nil || !p.UpdatedAt.Equal(updated) {
		t.Fatalf("expected updated_at, got %v", p.UpdatedAt)
	}
	if p.Role != employee.RoleDirector {
		t.Fatalf("unexpected role %s", p.Role)
	}
}

func TestScanEmployee_NoRows(t *testing.T) {
	t.Parallel()

	row := stubEmployeeRow{scanFn: func(dest ...any) error {
		return pgx.ErrNoRows
	}}

	_, err := scanEmployee(row)
	if !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestTranslateEmployeePgError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		deleting bool
		want     error
	}{
		{name: "email", err: &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: emailUniqueConstraint}, want: employee.ErrEmailAlreadyExists},
		{name: "doc", err: &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: docNumberUniqueConstraint}, want: employee.ErrDocNumberAlreadyExists},
		{name: "phone", err: &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: phonePrimaryKey}, want: employee.ErrDuplicatePhone},
		{name: "manager missing", err: &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: managerForeignKey}, want: employee.ErrManagerNotFound},
		{name: "has subordinates", err: &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: managerForeignKey}, deleting: true, want: employee.ErrHasSubordinates},
		{name: "role check", err: &pgconn.PgError{Code: checkViolationCode, ConstraintName: "employees_role_check"}, want: employee.ErrInvalidRole},
		{name: "no rows", err: pgx.ErrNoRows, want: employee.ErrEmployeeNotFound},
	}
	for _, tt := range tests {
		if got := translateEmployeePgError(tt.err, tt.deleting); !errors.Is(got, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}

	other := errors.New("other")
	if translateEmployeePgError(other, false) != other {
		t.Fatalf("unexpected translation for generic error")
	}
}
