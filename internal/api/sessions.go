package api

import (
	"net/http"

	"github.com/voxstream/voxstream/internal/session"
)

// sessionSummary is one entry in the GET /v1/sessions listing.
type sessionSummary struct {
	SessionID       string        `json:"session_id"`
	State           session.State `json:"state"`
	CreatedAt       string        `json:"created_at"`
	LastActivityAt  string        `json:"last_activity_at"`
	AudioDurationMS float64       `json:"audio_duration_ms"`
}

// listSessionsResponse is the body of GET /v1/sessions.
type listSessionsResponse struct {
	Count    int              `json:"count"`
	Sessions []sessionSummary `json:"sessions"`
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	infos := s.registry.AllSessions()

	out := listSessionsResponse{
		Count:    len(infos),
		Sessions: make([]sessionSummary, 0, len(infos)),
	}
	for _, info := range infos {
		out.Sessions = append(out.Sessions, sessionSummary{
			SessionID:       info.ID,
			State:           info.State,
			CreatedAt:       info.CreatedAt.Format(timestampLayout),
			LastActivityAt:  info.LastActivityAt.Format(timestampLayout),
			AudioDurationMS: info.Metrics.AudioDurationMS(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSessionMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Aggregate())
}

// handleDeleteSession force-closes a session by id.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.registry.Close(id) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"closed": id})
}
