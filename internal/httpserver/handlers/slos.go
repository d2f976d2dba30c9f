package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chimera-systems/chimera/internal/httpserver/dto"
)

// ListSLOs handles GET /api/v1/slos.
func ListSLOs(w http.ResponseWriter, r *http.Request) {
	ctx := GetContext()
	if ctx == nil {
		writeError(w, http.StatusInternalServerError, "handler context not initialized")
		return
	}

	names := ctx.SLOs.Names()
	out := make([]dto.SLODTO, 0, len(names))
	for _, name := range names {
		out = append(out, sloDTO(ctx, name))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetSLO handles GET /api/v1/slos/{name}.
func GetSLO(w http.ResponseWriter, r *http.Request) {
	ctx := GetContext()
	if ctx == nil {
		writeError(w, http.StatusInternalServerError, "handler context not initialized")
		return
	}

	name := chi.URLParam(r, "name")
	if _, err := ctx.SLOs.Current(name); err != nil {
		writeError(w, http.StatusNotFound, "slo not found")
		return
	}
	writeJSON(w, http.StatusOK, sloDTO(ctx, name))
}

func sloDTO(ctx *Context, name string) dto.SLODTO {
	slo, _ := ctx.SLOs.Current(name)
	consumed, _ := ctx.SLOs.BudgetConsumed(name)
	violated, _ := ctx.SLOs.Violated(name)
	return dto.SLODTO{
		Name:           slo.Name,
		TargetPct:      slo.Target,
		BudgetConsumed: consumed,
		Violated:       violated,
	}
}
