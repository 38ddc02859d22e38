package handler

import (
	"github.com/ogurasousui/employee-management/internal/core/auth"
	"github.com/ogurasousui/employee-management/internal/core/employee"
	"github.com/ogurasousui/employee-management/internal/core/health"
)

// Handler は REST API のハンドラ群です。
type Handler struct {
	employees employee.UseCase
	auth      auth.UseCase
	health    health.Prober
}

// NewHandler は Handler を生成します。
func NewHandler(employees employee.UseCase, authUC auth.UseCase, prober health.Prober) *Handler {
	return &Handler{
		employees: employees,
		auth:      authUC,
		health:    prober,
	}
}
