package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/chimera-systems/chimera/internal/httpserver/dto"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg})
}

// ListNodes handles GET /api/v1/fleet.
func ListNodes(w http.ResponseWriter, r *http.Request) {
	ctx := GetContext()
	if ctx == nil {
		writeError(w, http.StatusInternalServerError, "handler context not initialized")
		return
	}

	entries := ctx.Registry.All()
	nodes := make([]dto.NodeDTO, 0, len(entries))
	for id, e := range entries {
		n := dto.NodeDTO{
			ID:            id,
			Health:        string(e.Health),
			LastHeartbeat: e.LastHeartbeat,
			Production:    ctx.History.IsProduction(id),
		}
		if e.LastDriftReport != nil {
			n.Drifted = true
			n.Severity = string(e.LastDriftReport.Severity)
		}
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	writeJSON(w, http.StatusOK, nodes)
}

// GetNode handles GET /api/v1/fleet/{id}.
func GetNode(w http.ResponseWriter, r *http.Request) {
	ctx := GetContext()
	if ctx == nil {
		writeError(w, http.StatusInternalServerError, "handler context not initialized")
		return
	}

	id := chi.URLParam(r, "id")
	entry, found := ctx.Registry.Query(id)
	if !found {
		writeError(w, http.StatusNotFound, "node not found")
		return
	}

	n := dto.NodeDTO{
		ID:            id,
		Health:        string(entry.Health),
		LastHeartbeat: entry.LastHeartbeat,
		Production:    ctx.History.IsProduction(id),
	}
	if entry.LastDriftReport != nil {
		n.Drifted = true
		n.Severity = string(entry.LastDriftReport.Severity)
	}
	writeJSON(w, http.StatusOK, n)
}

// RiskAssessment handles GET /api/v1/fleet/risk.
func RiskAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := GetContext()
	if ctx == nil {
		writeError(w, http.StatusInternalServerError, "handler context not initialized")
		return
	}

	entries := ctx.Registry.All()
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	scores := ctx.Analytics.AssessFleet(ids)
	out := make([]dto.RiskScoreDTO, 0, len(scores))
	for _, s := range scores {
		out = append(out, dto.RiskScoreDTO{NodeID: s.NodeID, Score: s.Score, Level: string(s.Level)})
	}
	writeJSON(w, http.StatusOK, out)
}
