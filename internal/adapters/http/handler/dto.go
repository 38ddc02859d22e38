package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ogurasousui/employee-management/internal/core/auth"
	"github.com/ogurasousui/employee-management/internal/core/employee"
)

const dateLayout = "2006-01-02"

type phoneRequest struct {
	Number string `json:"number"`
	Type   string `json:"type"`
}

type registerRequest struct {
	FirstName   string         `json:"firstName"`
	LastName    string         `json:"lastName"`
	Email       string         `json:"email"`
	DocNumber   string         `json:"docNumber"`
	Phones      []phoneRequest `json:"phones"`
	Role        string         `json:"role"`
	Password    string         `json:"password"`
	DateOfBirth string         `json:"dateOfBirth"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createEmployeeRequest struct {
	FirstName   string         `json:"firstName"`
	LastName    string         `json:"lastName"`
	Email       string         `json:"email"`
	DocNumber   string         `json:"docNumber"`
	Phones      []phoneRequest `json:"phones"`
	ManagerID   *int64         `json:"managerId"`
	Role        string         `json:"role"`
	Password    string         `json:"password"`
	DateOfBirth string         `json:"dateOfBirth"`
}

type updateEmployeeRequest struct {
	FirstName   string         `json:"firstName"`
	LastName    string         `json:"lastName"`
	Email       string         `json:"email"`
	Phones      []phoneRequest `json:"phones"`
	ManagerID   *int64         `json:"managerId"`
	DateOfBirth string         `json:"dateOfBirth"`
}

type phoneResponse struct {
	Number string `json:"number"`
	Type   string `json:"type"`
}

type employeeResponse struct {
	ID          int64           `json:"id"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	Email       string          `json:"email"`
	DocNumber   string          `json:"docNumber"`
	Phones      []phoneResponse `json:"phones"`
	ManagerID   *int64          `json:"managerId"`
	ManagerName *string         `json:"managerName"`
	Role        string          `json:"role"`
	DateOfBirth string          `json:"dateOfBirth"`
	Age         int             `json:"age"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   *time.Time      `json:"updatedAt"`
}

type authResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      *employeeResponse `json:"user"`
}

type listEmployeesResponse struct {
	Items      []*employeeResponse `json:"items"`
	PageNumber int                 `json:"pageNumber"`
	PageSize   int                 `json:"pageSize"`
	TotalCount int                 `json:"totalCount"`
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

func toPhoneInputs(in []phoneRequest) []employee.PhoneInput {
	out := make([]employee.PhoneInput, 0, len(in))
	for _, p := range in {
		out = append(out, employee.PhoneInput{Number: p.Number, Type: p.Type})
	}
	return out
}

// parseRole は空文字を 0 (既定ロール) として扱います。数値表現も受け付けます。
func parseRole(raw string) (employee.Role, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		r := employee.Role(n)
		if !r.Valid() {
			return 0, fmt.Errorf("role %q: %w", raw, employee.ErrInvalidRole)
		}
		return r, nil
	}
	return employee.ParseRole(raw)
}

// parseDate は YYYY-MM-DD と RFC 3339 を受け付けます。空文字はゼロ値です。
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s %q: %w", field, raw, employee.ErrInvalidDateOfBirth)
	}
	return t, nil
}

func (req registerRequest) toInput() (auth.RegisterInput, error) {
	role, err := parseRole(req.Role)
	if err != nil {
		return auth.RegisterInput{}, err
	}
	dob, err := parseDate("dateOfBirth", req.DateOfBirth)
	if err != nil {
		return auth.RegisterInput{}, err
	}

	return auth.RegisterInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		DocNumber:   req.DocNumber,
		Phones:      toPhoneInputs(req.Phones),
		Role:        role,
		Password:    req.Password,
		DateOfBirth: dob,
	}, nil
}

func (req createEmployeeRequest) toInput() (employee.CreateEmployeeInput, error) {
	role, err := parseRole(req.Role)
	if err != nil {
		return employee.CreateEmployeeInput{}, err
	}
	dob, err := parseDate("dateOfBirth", req.DateOfBirth)
	if err != nil {
		return employee.CreateEmployeeInput{}, err
	}

	return employee.CreateEmployeeInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		DocNumber:   req.DocNumber,
		Phones:      toPhoneInputs(req.Phones),
		ManagerID:   req.ManagerID,
		Role:        role,
		Password:    req.Password,
		DateOfBirth: dob,
	}, nil
}

func (req updateEmployeeRequest) toInput(id int64) (employee.UpdateEmployeeInput, error) {
	dob, err := parseDate("dateOfBirth", req.DateOfBirth)
	if err != nil {
		return employee.UpdateEmployeeInput{}, err
	}

	return employee.UpdateEmployeeInput{
		ID:          id,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phones:      toPhoneInputs(req.Phones),
		ManagerID:   req.ManagerID,
		DateOfBirth: dob,
	}, nil
}

func toEmployeeResponse(v *employee.View) *employeeResponse {
	if v == nil {
		return nil
	}

	phones := make([]phoneResponse, 0, len(v.Phones))
	for _, p := range v.Phones {
		phones = append(phones, phoneResponse{Number: p.Number, Type: string(p.Type)})
	}

	resp := &employeeResponse{
		ID:          v.ID,
		FirstName:   v.FirstName,
		LastName:    v.LastName,
		Email:       v.Email,
		DocNumber:   v.DocNumber,
		Phones:      phones,
		ManagerID:   v.ManagerID,
		Role:        v.Role.String(),
		DateOfBirth: v.DateOfBirth.Format(dateLayout),
		Age:         v.Age,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
	if v.ManagerName != "" {
		name := v.ManagerName
		resp.ManagerName = &name
	}
	return resp
}

func toAuthResponse(res *auth.AuthResult) authResponse {
	return authResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      toEmployeeResponse(res.Employee),
	}
}
