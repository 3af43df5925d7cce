package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxstream/voxstream/internal/config"
	"github.com/voxstream/voxstream/internal/models"
	"github.com/voxstream/voxstream/internal/observe"
)

// AggregateMetrics sums the counters of every session currently registered.
// The wire keys follow the total_* naming of the metrics endpoint payload.
type AggregateMetrics struct {
	ActiveSessions      int     `json:"active_sessions"`
	TotalSessions       int     `json:"total_sessions"`
	AudioBytesReceived  int64   `json:"total_audio_bytes"`
	AudioChunksReceived int64   `json:"total_chunks"`
	AudioDurationMS     float64 `json:"total_audio_duration_ms"`
	TranscriptsSent     int64   `json:"total_transcripts"`
	PartialsSent        int64   `json:"total_partials"`
	FinalsSent          int64   `json:"total_finals"`
	SilencePartialsSent int64   `json:"total_silence_partials"`
	ErrorsSent          int64   `json:"total_errors"`
}

// Registry owns every live session: admission under a cap, lookup, closing,
// and a background reaper with two idle-timeout tiers.
//
// Lock discipline: the mutex protects only the map and the admission check.
// Session closes always happen with the lock released, so a slow in-flight
// chunk can never deadlock against the reaper.
type Registry struct {
	cfg     *config.Config
	mdl     *models.Container
	metrics *observe.Metrics

	mu       sync.Mutex
	sessions map[string]*Session

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMetrics wires observability instruments into the registry. Without it
// the registry records nothing.
func WithMetrics(m *observe.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry constructs a stopped registry. Call Start to run the reaper.
func NewRegistry(cfg *config.Config, mdl *models.Container, opts ...RegistryOption) *Registry {
	r := &Registry{
		cfg:      cfg,
		mdl:      mdl,
		sessions: make(map[string]*Session),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Create admits a new session. The cap check and the insert form one
// critical section, so the active count can never exceed max_sessions.
func (r *Registry) Create() (*Session, error) {
	r.mu.Lock()
	if r.activeCountLocked() >= r.cfg.Session.MaxSessions {
		r.mu.Unlock()
		return nil, ErrSessionLimitExceeded
	}
	s := New(uuid.NewString(), r.cfg, r.mdl)
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ActiveSessions.Add(context.Background(), 1)
	}
	slog.Debug("session created", slog.String("session_id", s.ID()))
	return s, nil
}

// Get returns the session with the given id or ErrSessionNotFound.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close closes and removes the session with the given id, reporting whether
// it was present. The session's Close runs with the registry lock released.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return false
	}

	s.Close()
	r.remove(id)
	return true
}

// remove deletes the map entry and decrements the gauge exactly once even
// when racing removals target the same id.
func (r *Registry) remove(id string) {
	r.mu.Lock()
	_, present := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if present && r.metrics != nil {
		r.metrics.ActiveSessions.Add(context.Background(), -1)
	}
}

// ActiveCount returns the number of sessions in CREATED or ACTIVE.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeCountLocked()
}

func (r *Registry) activeCountLocked() int {
	n := 0
	for _, s := range r.sessions {
		if st := s.Info().State; st == StateCreated || st == StateActive {
			n++
		}
	}
	return n
}

// AllSessions returns a snapshot of every registered session.
func (r *Registry) AllSessions() []Info {
	r.mu.Lock()
	infos := make([]Info, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, s.Info())
	}
	r.mu.Unlock()
	return infos
}

// Aggregate sums per-session counters across the registry.
func (r *Registry) Aggregate() AggregateMetrics {
	var agg AggregateMetrics
	for _, info := range r.AllSessions() {
		agg.TotalSessions++
		if info.State == StateCreated || info.State == StateActive {
			agg.ActiveSessions++
		}
		agg.AudioBytesReceived += info.Metrics.AudioBytesReceived
		agg.AudioChunksReceived += info.Metrics.AudioChunksReceived
		agg.TranscriptsSent += info.Metrics.TranscriptsSent
		agg.PartialsSent += info.Metrics.PartialsSent
		agg.FinalsSent += info.Metrics.FinalsSent
		agg.SilencePartialsSent += info.Metrics.SilencePartialsSent
		agg.ErrorsSent += info.Metrics.ErrorsSent
		agg.AudioDurationMS += info.Metrics.AudioDurationMS()
	}
	return agg
}

// Start launches the background reaper. Calling Start on a running registry
// is a no-op.
func (r *Registry) Start() {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.reapLoop(ctx)

	slog.Info("session registry started",
		slog.Int("max_sessions", r.cfg.Session.MaxSessions),
		slog.Duration("cleanup_interval", r.cfg.Session.CleanupInterval()),
	)
}

// Stop cancels the reaper, waits for it to exit, and closes every remaining
// session. Idempotent.
func (r *Registry) Stop() {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.cancel != nil {
		r.cancel()
		<-r.done
		r.cancel = nil
		r.done = nil
	}

	r.mu.Lock()
	remaining := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		remaining = append(remaining, s)
	}
	r.mu.Unlock()

	for _, s := range remaining {
		s.Close()
		r.remove(s.ID())
	}
	slog.Info("session registry stopped", slog.Int("closed", len(remaining)))
}

// reapLoop sweeps the registry every cleanup interval until cancelled.
func (r *Registry) reapLoop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.cfg.Session.CleanupInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep closes orphaned and timed-out sessions. Ids are collected under the
// lock; the closes run outside it.
func (r *Registry) sweep() {
	now := time.Now().UTC()
	initialTimeout := r.cfg.Session.InitialSpeechTimeout()
	idleTimeout := r.cfg.Session.IdleTimeout()

	type victim struct {
		s      *Session
		reason string
	}

	r.mu.Lock()
	var victims []victim
	for _, s := range r.sessions {
		info := s.Info()
		switch {
		case info.State == StateClosed:
			victims = append(victims, victim{s, "orphaned"})
		case info.State == StateCreated && now.Sub(info.LastActivityAt) > initialTimeout:
			victims = append(victims, victim{s, "no_speech"})
		case info.State == StateActive && now.Sub(info.LastActivityAt) > idleTimeout:
			victims = append(victims, victim{s, "idle"})
		}
	}
	r.mu.Unlock()

	for _, v := range victims {
		v.s.Close()
		r.remove(v.s.ID())
		if r.metrics != nil {
			r.metrics.RecordReap(context.Background(), v.reason)
		}
		slog.Info("session reaped",
			slog.String("session_id", v.s.ID()),
			slog.String("reason", v.reason),
		)
	}
}
