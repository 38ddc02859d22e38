package handler

import (
	"log/slog"
	"net/http"

	"github.com/ogurasousui/employee-management/internal/core/auth"
)

// Register は社員を自己登録してトークンを返します。
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		sendErr(ctx, w, err)
		return
	}

	in, err := req.toInput()
	if err != nil {
		sendErr(ctx, w, err)
		return
	}

	res, err := h.auth.Register(ctx, in)
	if err != nil {
		sendErr(ctx, w, err)
		return
	}

	slog.InfoContext(ctx, "registration succeeded", "employee_id", res.Employee.ID)
	sendJSON(ctx, w, http.StatusOK, toAuthResponse(res))
}

// Login はメールアドレスとパスワードで認証します。
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		sendErr(ctx, w, err)
		return
	}

	res, err := h.auth.Login(ctx, auth.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		sendErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, toAuthResponse(res))
}

// Logout は現在のトークンを失効させます。
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.auth.Logout(ctx, tokenFromContext(ctx)); err != nil {
		sendErr(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
