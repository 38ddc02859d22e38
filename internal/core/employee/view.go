package employee

import "time"

// View は呼び出し元へ返却する社員の読み取りモデルです。パスワードハッシュは含みません。
type View struct {
	ID          int64
	FirstName   string
	LastName    string
	Email       string
	DocNumber   string
	Phones      []Phone
	ManagerID   *int64
	ManagerName string
	Role        Role
	DateOfBirth time.Time
	Age         int
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// NewView は社員集約を now 時点の View に変換します。
func NewView(e *Employee, now time.Time) *View {
	if e == nil {
		return nil
	}
	v := &View{
		ID:          e.ID(),
		FirstName:   e.FirstName(),
		LastName:    e.LastName(),
		Email:       e.Email().String(),
		DocNumber:   e.DocNumber(),
		Phones:      e.Phones(),
		ManagerID:   e.ManagerID(),
		Role:        e.Role(),
		DateOfBirth: e.DateOfBirth(),
		Age:         e.Age(now),
		CreatedAt:   e.CreatedAt(),
		UpdatedAt:   e.UpdatedAt(),
	}
	if m := e.Manager(); m != nil {
		v.ManagerName = m.FullName()
	}
	return v
}
