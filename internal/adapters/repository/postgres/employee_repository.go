package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogurasousui/employee-management/internal/core/employee"
	pgdb "github.com/ogurasousui/employee-management/internal/platform/db/postgres"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"

	emailUniqueConstraint     = "employees_email_key"
	docNumberUniqueConstraint = "employees_doc_number_key"
	managerForeignKey         = "employees_manager_id_fkey"
	phonePrimaryKey           = "employee_phones_pkey"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var employeeColumns = []string{
	"e.id",
	"e.first_name",
	"e.last_name",
	"e.email",
	"e.doc_number",
	"e.date_of_birth",
	"e.role",
	"e.password_hash",
	"e.manager_id",
	"e.created_at",
	"e.updated_at",
	"m.first_name",
	"m.last_name",
}

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
// 電話番号は employee_phones に登録順で保存します。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

func selectEmployees() sq.SelectBuilder {
	return psql.Select(employeeColumns...).
		From("employees e").
		LeftJoin("employees m ON m.id = e.manager_id")
}

// GetByID は ID で社員を取得します。
func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*employee.Employee, error) {
	return r.getOne(ctx, selectEmployees().Where(sq.Eq{"e.id": id}))
}

// GetByEmail はメールアドレスで社員を取得します。
func (r *EmployeeRepository) GetByEmail(ctx context.Context, email employee.Email) (*employee.Employee, error) {
	return r.getOne(ctx, selectEmployees().Where(sq.Eq{"e.email": email.String()}))
}

// GetByDocNumber は書類番号で社員を取得します。
func (r *EmployeeRepository) GetByDocNumber(ctx context.Context, docNumber string) (*employee.Employee, error) {
	return r.getOne(ctx, selectEmployees().Where(sq.Eq{"e.doc_number": docNumber}))
}

// GetAll は全社員を ID 順に取得します。
func (r *EmployeeRepository) GetAll(ctx context.Context) ([]*employee.Employee, error) {
	return r.getMany(ctx, selectEmployees().OrderBy("e.id"))
}

// GetByManagerID は指定した上長の部下を取得します。
func (r *EmployeeRepository) GetByManagerID(ctx context.Context, managerID int64) ([]*employee.Employee, error) {
	return r.getMany(ctx, selectEmployees().Where(sq.Eq{"e.manager_id": managerID}).OrderBy("e.id"))
}

// Add は社員と電話番号を保存し、採番後の社員を返します。
// 電話番号の保存を含めるため呼び出し側のトランザクション内で実行してください。
func (r *EmployeeRepository) Add(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	query, args, err := psql.Insert("employees").
		Columns("first_name", "last_name", "email", "doc_number", "date_of_birth", "role", "password_hash", "manager_id", "created_at").
		Values(e.FirstName(), e.LastName(), e.Email().String(), e.DocNumber(), e.DateOfBirth(), int16(e.Role()), e.PasswordHash(), nullableID(e.ManagerID()), e.CreatedAt()).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build insert employee: %w", err)
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var id int64
	if err := exec.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return nil, translateEmployeePgError(err, false)
	}

	if err := r.insertPhones(ctx, exec, id, e.Phones()); err != nil {
		return nil, err
	}

	return employee.Restore(employee.RestoreParams{
		ID:           id,
		FirstName:    e.FirstName(),
		LastName:     e.LastName(),
		Email:        e.Email(),
		DocNumber:    e.DocNumber(),
		DateOfBirth:  e.DateOfBirth(),
		Role:         e.Role(),
		PasswordHash: e.PasswordHash(),
		ManagerID:    e.ManagerID(),
		Phones:       e.Phones(),
		CreatedAt:    e.CreatedAt(),
		UpdatedAt:    e.UpdatedAt(),
	}), nil
}

// Update は社員情報を更新し、電話番号を置き換えます。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	query, args, err := psql.Update("employees").
		SetMap(map[string]any{
			"first_name":    e.FirstName(),
			"last_name":     e.LastName(),
			"email":         e.Email().String(),
			"doc_number":    e.DocNumber(),
			"date_of_birth": e.DateOfBirth(),
			"role":          int16(e.Role()),
			"password_hash": e.PasswordHash(),
			"manager_id":    nullableID(e.ManagerID()),
			"updated_at":    nullableTime(e.UpdatedAt()),
		}).
		Where(sq.Eq{"id": e.ID()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build update employee: %w", err)
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)

	tag, err := exec.Exec(ctx, query, args...)
	if err != nil {
		return nil, translateEmployeePgError(err, false)
	}
	if tag.RowsAffected() == 0 {
		return nil, employee.ErrEmployeeNotFound
	}

	deleteQuery, deleteArgs, err := psql.Delete("employee_phones").Where(sq.Eq{"employee_id": e.ID()}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build delete phones: %w", err)
	}
	if _, err := exec.Exec(ctx, deleteQuery, deleteArgs...); err != nil {
		return nil, translateEmployeePgError(err, false)
	}

	if err := r.insertPhones(ctx, exec, e.ID(), e.Phones()); err != nil {
		return nil, err
	}

	return e, nil
}

// Delete は社員を削除します。電話番号は外部キーの ON DELETE CASCADE で削除されます。
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete("employees").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build delete employee: %w", err)
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, query, args...)
	if err != nil {
		return translateEmployeePgError(err, true)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// Exists は社員が存在するかを返します。
func (r *EmployeeRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, sq.Eq{"id": id})
}

// EmailExists はメールアドレスが使用済みかを返します。
func (r *EmployeeRepository) EmailExists(ctx context.Context, email employee.Email) (bool, error) {
	return r.exists(ctx, sq.Eq{"email": email.String()})
}

// DocNumberExists は書類番号が使用済みかを返します。
func (r *EmployeeRepository) DocNumberExists(ctx context.Context, docNumber string) (bool, error) {
	return r.exists(ctx, sq.Eq{"doc_number": docNumber})
}

func (r *EmployeeRepository) exists(ctx context.Context, pred sq.Eq) (bool, error) {
	query, args, err := psql.Select("1").
		From("employees").
		Where(pred).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("postgres: build exists: %w", err)
	}

	var exists bool
	if err := pgdb.QueryerFromContext(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, translateEmployeePgError(err, false)
	}
	return exists, nil
}

func (r *EmployeeRepository) getOne(ctx context.Context, b sq.SelectBuilder) (*employee.Employee, error) {
	employees, err := r.getMany(ctx, b.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, employee.ErrEmployeeNotFound
	}
	return employees[0], nil
}

func (r *EmployeeRepository) getMany(ctx context.Context, b sq.SelectBuilder) ([]*employee.Employee, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build select employees: %w", err)
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateEmployeePgError(err, false)
	}

	var params []employee.RestoreParams
	for rows.Next() {
		p, err := scanEmployee(rows)
		if err != nil {
			rows.Close()
			return nil, translateEmployeePgError(err, false)
		}
		params = append(params, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err, false)
	}

	if len(params) == 0 {
		return []*employee.Employee{}, nil
	}

	ids := make([]int64, 0, len(params))
	for _, p := range params {
		ids = append(ids, p.ID)
	}
	phones, err := r.loadPhones(ctx, exec, ids)
	if err != nil {
		return nil, err
	}

	employees := make([]*employee.Employee, 0, len(params))
	for _, p := range params {
		p.Phones = phones[p.ID]
		employees = append(employees, employee.Restore(p))
	}
	return employees, nil
}

func (r *EmployeeRepository) loadPhones(ctx context.Context, exec pgdb.Queryer, ids []int64) (map[int64][]employee.Phone, error) {
	query, args, err := psql.Select("employee_id", "number", "type").
		From("employee_phones").
		Where(sq.Eq{"employee_id": ids}).
		OrderBy("employee_id", "position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: build select phones: %w", err)
	}

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateEmployeePgError(err, false)
	}
	defer rows.Close()

	out := make(map[int64][]employee.Phone, len(ids))
	for rows.Next() {
		var (
			employeeID int64
			number     string
			typ        string
		)
		if err := rows.Scan(&employeeID, &number, &typ); err != nil {
			return nil, translateEmployeePgError(err, false)
		}
		out[employeeID] = append(out[employeeID], employee.Phone{Number: number, Type: employee.PhoneType(typ)})
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err, false)
	}
	return out, nil
}

func (r *EmployeeRepository) insertPhones(ctx context.Context, exec pgdb.Queryer, employeeID int64, phones []employee.Phone) error {
	if len(phones) == 0 {
		return nil
	}

	b := psql.Insert("employee_phones").Columns("employee_id", "position", "number", "type")
	for i, p := range phones {
		b = b.Values(employeeID, i, p.Number, string(p.Type))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("postgres: build insert phones: %w", err)
	}
	if _, err := exec.Exec(ctx, query, args...); err != nil {
		return translateEmployeePgError(err, false)
	}
	return nil
}

func scanEmployee(row pgx.Row) (employee.RestoreParams, error) {
	var (
		id           int64
		firstName    string
		lastName     string
		email        string
		docNumber    string
		dateOfBirth  time.Time
		role         int16
		passwordHash string
		managerID    sql.NullInt64
		createdAt    time.Time
		updatedAt    sql.NullTime
		managerFirst sql.NullString
		managerLast  sql.NullString
	)

	if err := row.Scan(
		&id,
		&firstName,
		&lastName,
		&email,
		&docNumber,
		&dateOfBirth,
		&role,
		&passwordHash,
		&managerID,
		&createdAt,
		&updatedAt,
		&managerFirst,
		&managerLast,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.RestoreParams{}, employee.ErrEmployeeNotFound
		}
		return employee.RestoreParams{}, err
	}

	addr, err := employee.NewEmail(email)
	if err != nil {
		return employee.RestoreParams{}, fmt.Errorf("postgres: stored email for employee %d: %w", id, err)
	}

	p := employee.RestoreParams{
		ID:           id,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        addr,
		DocNumber:    docNumber,
		DateOfBirth:  dateOfBirth,
		Role:         employee.Role(role),
		PasswordHash: passwordHash,
		CreatedAt:    createdAt.UTC(),
	}
	if managerID.Valid {
		mid := managerID.Int64
		p.ManagerID = &mid
		p.Manager = &employee.ManagerSnapshot{
			ID:        mid,
			FirstName: managerFirst.String,
			LastName:  managerLast.String,
		}
	}
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		p.UpdatedAt = &t
	}
	return p, nil
}

// translateEmployeePgError は PostgreSQL のエラーをドメインエラーに変換します。
// deleting が true の場合、上長の外部キー違反は部下が存在することを意味します。
func translateEmployeePgError(err error, deleting bool) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			switch pgErr.ConstraintName {
			case emailUniqueConstraint:
				return employee.ErrEmailAlreadyExists
			case docNumberUniqueConstraint:
				return employee.ErrDocNumberAlreadyExists
			case phonePrimaryKey:
				return employee.ErrDuplicatePhone
			}
			return err
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == managerForeignKey {
				if deleting {
					return employee.ErrHasSubordinates
				}
				return employee.ErrManagerNotFound
			}
			return err
		case checkViolationCode:
			return fmt.Errorf("%w: %s", employee.ErrInvalidRole, pgErr.ConstraintName)
		}
	}

	return err
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC()
}
