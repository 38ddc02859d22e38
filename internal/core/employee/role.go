package employee

import (
	"fmt"
	"strings"
)

// Role は社員の権限レベルを表します。値が大きいほど上位です。
type Role int

const (
	RoleEmployee Role = iota + 1
	RoleLeader
	RoleDirector
)

// ParseRole は大文字小文字を区別せずにロール名を解釈します。
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "employee":
		return RoleEmployee, nil
	case "leader":
		return RoleLeader, nil
	case "director":
		return RoleDirector, nil
	default:
		return 0, fmt.Errorf("role %q: %w", raw, ErrInvalidRole)
	}
}

// Valid は定義済みのロールかどうかを返します。
func (r Role) Valid() bool {
	return r >= RoleEmployee && r <= RoleDirector
}

func (r Role) String() string {
	switch r {
	case RoleEmployee:
		return "Employee"
	case RoleLeader:
		return "Leader"
	case RoleDirector:
		return "Director"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// CanCreateRole は actor が target ロールのアカウントを作成できるかを返します。
// 自分より上位のロールは作成できません。
func CanCreateRole(actor, target Role) bool {
	return actor >= target
}

// CanUpdateEmployee は actor が target ロールの社員を更新できるかを返します。
// 同格または上位の社員は更新できません。
func CanUpdateEmployee(actor, target Role) bool {
	return actor > target
}

// CanDeleteEmployee は actor が target ロールの社員を削除できるかを返します。
func CanDeleteEmployee(actor, target Role) bool {
	return actor > target
}

// HasHigherOrEqualRole は a が b 以上のロールかを返します。
func HasHigherOrEqualRole(a, b Role) bool {
	return a >= b
}
