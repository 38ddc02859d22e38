package employee

import "context"

// Repository は社員集約の永続化の抽象です。
// 取得系は該当がない場合に ErrEmployeeNotFound を返します。
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Employee, error)
	GetByEmail(ctx context.Context, email Email) (*Employee, error)
	GetByDocNumber(ctx context.Context, docNumber string) (*Employee, error)
	GetAll(ctx context.Context) ([]*Employee, error)
	GetByManagerID(ctx context.Context, managerID int64) ([]*Employee, error)
	Add(ctx context.Context, employee *Employee) (*Employee, error)
	Update(ctx context.Context, employee *Employee) (*Employee, error)
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
	EmailExists(ctx context.Context, email Email) (bool, error)
	DocNumberExists(ctx context.Context, docNumber string) (bool, error)
}
