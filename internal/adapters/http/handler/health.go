package handler

import (
	"net/http"
)

// Health は依存先の疎通状況を返します。停止中の依存先があれば 503 です。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report := h.health.Probe(ctx)

	resp := healthResponse{
		Status: string(report.Status),
		Errors: report.Errors,
	}
	if len(report.Components) > 0 {
		resp.Components = make(map[string]string, len(report.Components))
		for name, st := range report.Components {
			resp.Components[name] = string(st)
		}
	}

	code := http.StatusOK
	if !report.Ready() {
		code = http.StatusServiceUnavailable
	}
	sendJSON(ctx, w, code, resp)
}
