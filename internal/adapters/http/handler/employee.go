package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ogurasousui/employee-management/internal/core/auth"
	"github.com/ogurasousui/employee-management/internal/core/employee"
)

// ListEmployees は社員一覧を返します。
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in, err := parseListQuery(r.URL.Query())
	if err != nil {
		sendErr(ctx, w, err)
		return
	}

	res, err := h.employees.ListEmployees(ctx, in)
	if err != nil {
		sendErr(ctx, w, err)
		return
	}

	items := make([]*employeeResponse, 0, len(res.Employees))
	for _, v := range res.Employees {
		items = append(items, toEmployeeResponse(v))
	}

	sendJSON(ctx, w, http.StatusOK, listEmployeesResponse{
		Items:      items,
		PageNumber: res.PageNumber,
		PageSize:   res.PageSize,
		TotalCount: res.TotalCount,
	})
}

// GetEmployee は社員を一件返します。
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		sendErr(ctx, w, err)
		return
	}

	v, err := h.employees.GetEmployee(ctx, employee.GetEmployeeInput{ID: id})
	if err != nil {
		sendErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, toEmployeeResponse(v))
}

// CreateEmployee は社員を作成します。
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := ActorFromContext(ctx)
	if !ok {
		sendErr(ctx, w, auth.ErrUnauthorized)
		return
	}

	var req createEmployeeRequest
	if err := decodeJSON(r, &req); err != nil {
		sendErr(ctx, w, err)
		return
	}

	in, err := req.toInput()
	if err != nil {
		sendErr(ctx, w, err)
		return
	}

	v, err := h.employees.CreateEmployee(ctx, actor, in)
	if err != nil {
		sendErr(ctx, w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/employees/%d", v.ID))
	sendJSON(ctx, w, http.StatusCreated, toEmployeeResponse(v))
}

// UpdateEmployee は社員情報を更新します。
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := ActorFromContext(ctx)
	if !ok {
		sendErr(ctx, w, auth.ErrUnauthorized)
		return
	}

	id, err := pathID(r)
	if err != nil {
		sendErr(ctx, w, err)
		return
	}

	var req updateEmployeeRequest
	if err := decodeJSON(r, &req); err != nil {
		sendErr(ctx, w, err)
		return
	}

	in, err := req.toInput(id)
	if err != nil {
		sendErr(ctx, w, err)
		return
	}

	v, err := h.employees.UpdateEmployee(ctx, actor, in)
	if err != nil {
		sendErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, toEmployeeResponse(v))
}

// DeleteEmployee は社員を削除します。
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := ActorFromContext(ctx)
	if !ok {
		sendErr(ctx, w, auth.ErrUnauthorized)
		return
	}

	id, err := pathID(r)
	if err != nil {
		sendErr(ctx, w, err)
		return
	}

	if err := h.employees.DeleteEmployee(ctx, actor, employee.DeleteEmployeeInput{ID: id}); err != nil {
		sendErr(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id %q: %w", raw, employee.ErrInvalidID)
	}
	return id, nil
}

func parseListQuery(q url.Values) (employee.ListEmployeesInput, error) {
	var in employee.ListEmployeesInput

	if raw := strings.TrimSpace(q.Get("managerId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return in, fmt.Errorf("managerId %q: %w", raw, employee.ErrInvalidID)
		}
		in.ManagerID = &id
	}

	if raw := q.Get("role"); strings.TrimSpace(raw) != "" {
		role, err := parseRole(raw)
		if err != nil {
			return in, err
		}
		in.Role = &role
	}

	in.SearchTerm = q.Get("searchTerm")

	var err error
	if in.PageNumber, err = queryInt(q, "pageNumber", employee.ErrInvalidPageNumber); err != nil {
		return in, err
	}
	if in.PageSize, err = queryInt(q, "pageSize", employee.ErrInvalidPageSize); err != nil {
		return in, err
	}

	return in, nil
}

func queryInt(q url.Values, key string, invalid error) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", key, raw, invalid)
	}
	return n, nil
}
