// Package session implements the core of the streaming transcription
// service: the per-stream state machine with its endpointing loop, the VAD
// frame gate, and the registry that bounds concurrent sessions and reaps
// idle ones.
//
// Sessions hold only buffers, counters, and state-machine variables. All
// model weights live in the shared container passed in at construction; a
// session never loads or owns inference resources.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/voxstream/voxstream/internal/config"
	"github.com/voxstream/voxstream/internal/models"
	"github.com/voxstream/voxstream/pkg/audio"
)

// State is the lifecycle phase of a session. Transitions are monotonic:
// a session never observes a prior state after advancing.
type State int32

const (
	// StateCreated means the session is admitted but no speech has been
	// detected yet. Silence in this state never produces a final.
	StateCreated State = iota

	// StateActive means at least one speech chunk has been processed.
	StateActive

	// StateClosing means teardown has begun; audio is rejected.
	StateClosing

	// StateClosed means teardown finished. The registry drops the entry.
	StateClosed
)

// String returns the wire representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateActive:
		return "ACTIVE"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// MarshalJSON renders the state as its wire string.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses the wire string back into a State.
func (s *State) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	switch str {
	case "CREATED":
		*s = StateCreated
	case "ACTIVE":
		*s = StateActive
	case "CLOSING":
		*s = StateClosing
	case "CLOSED":
		*s = StateClosed
	default:
		return fmt.Errorf("unknown session state %q", str)
	}
	return nil
}

// Metrics are the per-session counters. All values are non-decreasing.
//
// Invariant: TranscriptsSent == PartialsSent + FinalsSent + SilencePartialsSent.
type Metrics struct {
	AudioBytesReceived  int64 `json:"audio_bytes_received"`
	AudioChunksReceived int64 `json:"audio_chunks_received"`
	TranscriptsSent     int64 `json:"transcripts_sent"`
	PartialsSent        int64 `json:"partials_sent"`
	FinalsSent          int64 `json:"finals_sent"`
	SilencePartialsSent int64 `json:"silence_partials_sent"`
	ErrorsSent          int64 `json:"errors_sent"`
}

// AudioDurationMS returns the played duration implied by the received bytes
// at the service sample rate.
func (m Metrics) AudioDurationMS() float64 {
	return audio.DurationMS(int(m.AudioBytesReceived), audio.DefaultSampleRate)
}

// Result is the outcome of one ProcessChunk or TranscribeFull call.
type Result struct {
	// Text is the transcript fragment. Empty for silence partials and for
	// finals, which carry no text.
	Text string `json:"text"`

	// IsFinal marks an utterance boundary.
	IsFinal bool `json:"is_final"`

	// DurationMS is the wall-clock processing time of this call.
	DurationMS float64 `json:"duration_ms"`
}

// Info is a point-in-time snapshot of a session. It carries a copy of the
// metrics; mutating it never affects the session.
type Info struct {
	ID             string    `json:"session_id"`
	State          State     `json:"state"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	Metrics        Metrics   `json:"metrics"`
}

// Session is one client stream: state machine, endpointing accumulator, VAD
// frame gate, and counters. The shared models container performs all
// inference.
//
// ProcessChunk calls for one session are serialised by the caller (the
// stream adapter reads one message at a time). Close and Info may be called
// concurrently from the registry and inspection endpoints.
type Session struct {
	id  string
	cfg *config.Config
	mdl *models.Container

	mu             sync.Mutex
	state          State
	createdAt      time.Time
	lastActivityAt time.Time
	metrics        Metrics
	gate           *FrameGate
	silenceMS      float64
}

// New constructs a session in CREATED using the shared models container.
func New(id string, cfg *config.Config, mdl *models.Container) *Session {
	now := time.Now().UTC()
	return &Session{
		id:             id,
		cfg:            cfg,
		mdl:            mdl,
		state:          StateCreated,
		createdAt:      now,
		lastActivityAt: now,
		gate:           NewFrameGate(mdl.VAD, cfg.Audio.SampleRate, cfg.Audio.VADFrameMS),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// ProcessChunk runs one PCM chunk through the pipeline: simulated latency,
// VAD, speech-to-text, endpointing. Exactly one Result is produced per call.
// The audio counters advance only for calls that return a Result; a chunk
// whose pipeline fails is not counted as received.
//
// Returns ErrSessionClosing when the session is CLOSING or CLOSED. A
// concurrent Close is safe: an in-flight call completes normally and the
// next call is rejected.
func (s *Session) ProcessChunk(ctx context.Context, pcm []byte) (Result, error) {
	start := time.Now()

	s.mu.Lock()
	if s.state >= StateClosing {
		s.mu.Unlock()
		return Result{}, ErrSessionClosing
	}
	s.lastActivityAt = time.Now().UTC()
	s.mu.Unlock()

	// Simulated end-to-end latency. Zero in tests.
	if d := s.cfg.Audio.Latency(); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	s.mu.Lock()
	speech := s.gate.IsSpeech(pcm)
	if speech {
		s.silenceMS = 0
		if s.state == StateCreated {
			s.state = StateActive
		}
		s.mu.Unlock()
		return s.transcribePartial(ctx, pcm, start)
	}

	// Silence path: endpointing decision, no inference. Nothing below can
	// fail, so the chunk counts as received here.
	s.silenceMS += audio.DurationMS(len(pcm), s.cfg.Audio.SampleRate)
	s.metrics.AudioBytesReceived += int64(len(pcm))
	s.metrics.AudioChunksReceived++

	var res Result
	s.metrics.TranscriptsSent++
	switch {
	case s.state == StateCreated:
		// No utterance has begun; silence never finalises here.
		s.metrics.SilencePartialsSent++
		res = Result{IsFinal: false}
	case s.silenceMS >= float64(s.cfg.Audio.EndpointingMS):
		s.gate.Reset()
		s.silenceMS = 0
		s.metrics.FinalsSent++
		res = Result{IsFinal: true}
	default:
		s.metrics.SilencePartialsSent++
		res = Result{IsFinal: false}
	}
	s.mu.Unlock()

	res.DurationMS = msSince(start)
	return res, nil
}

// transcribePartial runs inference for a speech chunk outside the session
// lock. The backend serialises inference internally; holding the session
// lock across the call would let a slow backend block Close.
func (s *Session) transcribePartial(ctx context.Context, pcm []byte, start time.Time) (Result, error) {
	text, err := s.mdl.ASR.Transcribe(ctx, pcm)
	if err != nil {
		return Result{}, fmt.Errorf("session %s: transcribe: %w", s.id, err)
	}

	s.mu.Lock()
	s.metrics.AudioBytesReceived += int64(len(pcm))
	s.metrics.AudioChunksReceived++
	s.metrics.TranscriptsSent++
	s.metrics.PartialsSent++
	s.mu.Unlock()

	return Result{Text: text, IsFinal: false, DurationMS: msSince(start)}, nil
}

// TranscribeFull transcribes a whole clip in one call. It does not touch the
// frame gate, silence counter, or state machine; only the transcript
// counters advance. Intended for the synchronous REST endpoint.
func (s *Session) TranscribeFull(ctx context.Context, pcm []byte) (Result, error) {
	start := time.Now()

	text, err := s.mdl.ASR.Transcribe(ctx, pcm)
	if err != nil {
		return Result{}, fmt.Errorf("session %s: transcribe: %w", s.id, err)
	}

	s.mu.Lock()
	s.metrics.TranscriptsSent++
	s.metrics.FinalsSent++
	s.mu.Unlock()

	return Result{Text: text, IsFinal: true, DurationMS: msSince(start)}, nil
}

// Close advances the session to CLOSED and clears per-stream buffers. It is
// idempotent and never fails. Safe to call concurrently with an in-flight
// ProcessChunk; the in-flight call finishes and the next one is rejected.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state >= StateClosing {
		return
	}
	s.state = StateClosing
	s.gate.Reset()
	s.silenceMS = 0
	s.state = StateClosed
}

// RecordError counts one error message sent to the client for this session.
func (s *Session) RecordError() {
	s.mu.Lock()
	s.metrics.ErrorsSent++
	s.mu.Unlock()
}

// Info returns a snapshot of the session. The metrics are copied; the
// caller cannot reach internal state through the result.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:             s.id,
		State:          s.state,
		CreatedAt:      s.createdAt,
		LastActivityAt: s.lastActivityAt,
		Metrics:        s.metrics,
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}
