package api

import "net/http"

// healthResponse is the body of GET /v1/health.
type healthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	ActiveSessions int    `json:"active_sessions"`
}

// handleHealth is a liveness probe. A process that can count its sessions is
// considered alive.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		Version:        s.version,
		ActiveSessions: s.registry.ActiveCount(),
	})
}
