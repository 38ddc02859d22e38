package employee

import "errors"

// 入力値の検証エラー
var (
	ErrInvalidID          = errors.New("employee: invalid id")
	ErrInvalidFirstName   = errors.New("employee: invalid first name")
	ErrInvalidLastName    = errors.New("employee: invalid last name")
	ErrInvalidEmail       = errors.New("employee: invalid email")
	ErrInvalidDocNumber   = errors.New("employee: invalid document number")
	ErrInvalidDateOfBirth = errors.New("employee: invalid date of birth")
	ErrUnderage           = errors.New("employee: must be at least 18 years old")
	ErrInvalidRole        = errors.New("employee: invalid role")
	ErrInvalidPhoneNumber = errors.New("employee: phone number must be between 8 and 15 digits")
	ErrInvalidPhoneType   = errors.New("employee: invalid phone type")
	ErrInvalidPassword    = errors.New("employee: invalid password")
	ErrInvalidPageSize    = errors.New("employee: invalid page size")
	ErrInvalidPageNumber  = errors.New("employee: invalid page number")
	ErrNoPhoneProvided    = errors.New("employee: at least one phone number is required")
	ErrDuplicatePhone     = errors.New("employee: phone already exists")
	ErrPhoneNotFound      = errors.New("employee: phone not found")
	ErrLastPhone          = errors.New("employee: cannot remove the last phone number")
	ErrSelfManagement     = errors.New("employee: employee cannot be their own manager")
)

// 状態・権限に関するエラー
var (
	ErrEmployeeNotFound       = errors.New("employee: not found")
	ErrManagerNotFound        = errors.New("employee: manager not found")
	ErrEmailAlreadyExists     = errors.New("employee: email already exists")
	ErrDocNumberAlreadyExists = errors.New("employee: document number already exists")
	ErrHasSubordinates        = errors.New("employee: has managed employees, reassign them first")
	ErrForbidden              = errors.New("employee: operation not permitted for actor role")
)

var validationErrors = []error{
	ErrInvalidID,
	ErrInvalidFirstName,
	ErrInvalidLastName,
	ErrInvalidEmail,
	ErrInvalidDocNumber,
	ErrInvalidDateOfBirth,
	ErrUnderage,
	ErrInvalidRole,
	ErrInvalidPhoneNumber,
	ErrInvalidPhoneType,
	ErrInvalidPassword,
	ErrInvalidPageSize,
	ErrInvalidPageNumber,
	ErrNoPhoneProvided,
	ErrDuplicatePhone,
	ErrPhoneNotFound,
	ErrLastPhone,
	ErrSelfManagement,
}

// IsValidation は err が入力値の検証エラーかを返します。
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict は err が一意制約や参照関係による競合かを返します。
func IsConflict(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists) ||
		errors.Is(err, ErrDocNumberAlreadyExists) ||
		errors.Is(err, ErrHasSubordinates)
}

// IsNotFound は err が社員または上長の未存在を表すかを返します。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrManagerNotFound)
}
