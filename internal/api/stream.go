package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/voxstream/voxstream/internal/observe"
	"github.com/voxstream/voxstream/internal/session"
)

// Protocol error codes sent to streaming clients.
const (
	codeSessionLimit     = "SESSION_LIMIT"
	codeSessionClosing   = "SESSION_CLOSING"
	codeInvalidJSON      = "INVALID_JSON"
	codeInvalidAudio     = "INVALID_AUDIO"
	codeUnknownType      = "UNKNOWN_TYPE"
	codeTranscribeFailed = "TRANSCRIBE_FAILED"
)

// clientMessage is one inbound frame on the streaming socket.
type clientMessage struct {
	Type string `json:"type"`

	// Data carries base64-encoded PCM for "audio" messages.
	Data string `json:"data,omitempty"`
}

// serverMessage is one outbound frame. Text is a pointer so that partials
// can carry an explicit empty string while finals omit the field entirely.
type serverMessage struct {
	Type      string  `json:"type"`
	SessionID string  `json:"session_id,omitempty"`
	Text      *string `json:"text,omitempty"`
	Message   string  `json:"message,omitempty"`
	Code      string  `json:"code,omitempty"`
}

func errorMessage(msg, code string) serverMessage {
	return serverMessage{Type: "error", Message: msg, Code: code}
}

// handleStream runs one streaming session over a websocket: admission,
// session_start, the read loop, and unconditional registry cleanup.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	log := observe.Logger(ctx)

	sess, err := s.registry.Create()
	if err != nil {
		_ = wsjson.Write(ctx, conn, errorMessage("session limit reached", codeSessionLimit))
		s.recordStreamError(ctx, codeSessionLimit)
		_ = conn.Close(websocket.StatusPolicyViolation, "session limit reached")
		return
	}
	// Cleanup must run on every exit path: clean stop, protocol error, or
	// client disconnect.
	defer s.registry.Close(sess.ID())

	log = log.With("session_id", sess.ID())
	if err := wsjson.Write(ctx, conn, serverMessage{Type: "session_start", SessionID: sess.ID()}); err != nil {
		return
	}

	for {
		// Raw read plus manual unmarshal: a malformed payload must produce
		// an INVALID_JSON error without tearing the connection down.
		_, data, err := conn.Read(ctx)
		if err != nil {
			// Clean stop, close frame, or client disconnect.
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(ctx, conn, sess, "malformed JSON message", codeInvalidJSON)
			continue
		}

		switch msg.Type {
		case "audio":
			if done := s.handleAudio(ctx, conn, sess, msg.Data); done {
				return
			}
		case "stop":
			log.Debug("client requested stop")
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		default:
			s.sendError(ctx, conn, sess, "unknown message type "+msg.Type, codeUnknownType)
		}
	}
}

// handleAudio processes one audio message and reports whether the read loop
// should terminate.
func (s *Server) handleAudio(ctx context.Context, conn *websocket.Conn, sess *session.Session, data string) bool {
	pcm, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		s.sendError(ctx, conn, sess, "audio payload is not valid base64", codeInvalidAudio)
		return false
	}
	if len(pcm) == 0 {
		// Empty payloads are a no-op.
		return false
	}

	res, err := sess.ProcessChunk(ctx, pcm)
	switch {
	case errors.Is(err, session.ErrSessionClosing):
		s.sendError(ctx, conn, sess, "session is closing", codeSessionClosing)
		return true
	case err != nil:
		observe.Logger(ctx).Error("transcription failed",
			"session_id", sess.ID(), "err", err)
		s.sendError(ctx, conn, sess, "transcription failed", codeTranscribeFailed)
		return false
	}

	if s.metrics != nil {
		s.metrics.AudioBytes.Add(ctx, int64(len(pcm)))
	}

	var out serverMessage
	if res.IsFinal {
		out = serverMessage{Type: "final"}
		s.recordTranscript(ctx, "final")
	} else {
		text := res.Text
		out = serverMessage{Type: "partial", Text: &text}
		if text == "" {
			s.recordTranscript(ctx, "silence_partial")
		} else {
			s.recordTranscript(ctx, "partial")
		}
	}
	if err := wsjson.Write(ctx, conn, out); err != nil {
		return true
	}
	return false
}

// sendError emits a protocol error message and counts it.
func (s *Server) sendError(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg, code string) {
	sess.RecordError()
	s.recordStreamError(ctx, code)
	_ = wsjson.Write(ctx, conn, errorMessage(msg, code))
}

func (s *Server) recordStreamError(ctx context.Context, code string) {
	if s.metrics != nil {
		s.metrics.RecordStreamError(ctx, code)
	}
}

func (s *Server) recordTranscript(ctx context.Context, kind string) {
	if s.metrics != nil {
		s.metrics.RecordTranscript(ctx, kind)
	}
}
