package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/voxstream/voxstream/internal/observe"
	"github.com/voxstream/voxstream/internal/session"
)

// maxClipBytes caps the synchronous endpoint's request body at five minutes
// of 16 kHz s16le audio.
const maxClipBytes = 5 * 60 * 32000

// transcribeResponse is the body of a successful POST /v1/transcribe.
type transcribeResponse struct {
	Text       string  `json:"text"`
	DurationMS float64 `json:"duration_ms"`
}

// handleTranscribe transcribes a whole PCM clip in one request. The request
// occupies an admission slot for its duration, so a full registry rejects it
// the same way it rejects a new stream.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	pcm, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxClipBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to read request body"})
		return
	}
	if len(pcm) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "empty audio body"})
		return
	}

	sess, err := s.registry.Create()
	if errors.Is(err, session.ErrSessionLimitExceeded) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{
			Error: "session limit reached",
			Code:  codeSessionLimit,
		})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "session creation failed"})
		return
	}
	defer s.registry.Close(sess.ID())

	res, err := sess.TranscribeFull(r.Context(), pcm)
	if err != nil {
		observe.Logger(r.Context()).Error("transcription failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error: "transcription failed",
			Code:  codeTranscribeFailed,
		})
		return
	}

	if s.metrics != nil {
		s.metrics.AudioBytes.Add(r.Context(), int64(len(pcm)))
		s.metrics.RecordTranscript(r.Context(), "final")
	}
	writeJSON(w, http.StatusOK, transcribeResponse{Text: res.Text, DurationMS: res.DurationMS})
}
