package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/httpserver/dto"
)

// DriftHistory handles GET /api/v1/drift/{id}.
func DriftHistory(w http.ResponseWriter, r *http.Request) {
	ctx := GetContext()
	if ctx == nil {
		writeError(w, http.StatusInternalServerError, "handler context not initialized")
		return
	}

	id := chi.URLParam(r, "id")
	since := time.Now().Add(-30 * 24 * time.Hour)
	events := ctx.History.DriftEventsSince(id, since)

	out := make([]dto.DriftEventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, dto.DriftEventDTO{
			NodeID:      e.NodeID,
			At:          e.At,
			Severity:    string(e.Severity),
			Fingerprint: e.Fingerprint.String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// RootCause handles GET /api/v1/drift/{id}/root-cause, correlating the
// node's most recent drift report against the rest of the fleet.
func RootCause(w http.ResponseWriter, r *http.Request) {
	ctx := GetContext()
	if ctx == nil {
		writeError(w, http.StatusInternalServerError, "handler context not initialized")
		return
	}

	id := chi.URLParam(r, "id")
	entry, found := ctx.Registry.Query(id)
	if !found || entry.LastDriftReport == nil {
		writeError(w, http.StatusNotFound, "no drift report on record for this node")
		return
	}

	entries := ctx.Registry.All()
	fleetNodes := make([]domain.Node, 0, len(entries))
	for _, e := range entries {
		fleetNodes = append(fleetNodes, e.Node)
	}

	causes := ctx.RootCause.Analyze(*entry.LastDriftReport, fleetNodes)
	out := make([]dto.CandidateCauseDTO, 0, len(causes))
	for _, c := range causes {
		out = append(out, dto.CandidateCauseDTO{Kind: string(c.Kind), Confidence: c.Confidence, Detail: c.Evidence})
	}
	writeJSON(w, http.StatusOK, out)
}
