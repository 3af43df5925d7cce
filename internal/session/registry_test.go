package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voxstream/voxstream/internal/config"
	"github.com/voxstream/voxstream/internal/models"
	vadmock "github.com/voxstream/voxstream/pkg/provider/vad/mock"
)

func newTestRegistry(cfg *config.Config, det *vadmock.Detector, backend *stubASR) *Registry {
	if cfg == nil {
		cfg = testConfig()
	}
	if det == nil {
		det = &vadmock.Detector{}
	}
	if backend == nil {
		backend = &stubASR{text: "ok"}
	}
	return NewRegistry(cfg, &models.Container{VAD: det, ASR: backend})
}

func TestRegistry_CreateAndGet(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(nil, nil, nil)

	s, err := r.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.ID() == "" {
		t.Fatal("session has empty id")
	}

	got, err := r.Get(s.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != s {
		t.Error("Get returned a different session")
	}

	if _, err := r.Get("no-such-id"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(unknown) = %v, want ErrSessionNotFound", err)
	}
}

func TestRegistry_AdmissionCapUnderConcurrency(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Session.MaxSessions = 3
	r := newTestRegistry(cfg, nil, nil)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		limited   int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create()
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrSessionLimitExceeded):
				limited++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 || limited != 7 {
		t.Errorf("succeeded = %d, limited = %d; want 3 and 7", succeeded, limited)
	}
	if got := r.ActiveCount(); got != 3 {
		t.Errorf("ActiveCount = %d, want 3", got)
	}
}

func TestRegistry_CloseRemovesAndFreesSlot(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Session.MaxSessions = 1
	r := newTestRegistry(cfg, nil, nil)

	s, err := r.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := r.Create(); !errors.Is(err, ErrSessionLimitExceeded) {
		t.Fatalf("second Create = %v, want ErrSessionLimitExceeded", err)
	}

	if !r.Close(s.ID()) {
		t.Fatal("Close returned false for a present session")
	}
	if r.Close(s.ID()) {
		t.Error("Close returned true for an absent session")
	}
	if got := s.Info().State; got != StateClosed {
		t.Errorf("state = %v, want CLOSED", got)
	}

	// The slot is free again.
	if _, err := r.Create(); err != nil {
		t.Fatalf("Create after Close: %v", err)
	}
}

func TestRegistry_ReaperTiers(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Session.InitialSpeechTimeoutSeconds = 0.05
	cfg.Session.IdleTimeoutSeconds = 10
	cfg.Session.CleanupIntervalSeconds = 0.02
	det := &vadmock.Detector{Result: true}
	r := newTestRegistry(cfg, det, nil)

	created, err := r.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	active, err := r.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Promote one session to ACTIVE with a speech chunk.
	if _, err := active.ProcessChunk(context.Background(), silenceChunk()); err != nil {
		t.Fatalf("ProcessChunk: %v", err)
	}

	r.Start()
	defer r.Stop()

	// Both sessions idle. The CREATED one falls to the short
	// initial-speech timeout; the ACTIVE one survives the sweep.
	deadline := time.Now().Add(time.Second)
	for {
		if _, err := r.Get(created.ID()); errors.Is(err, ErrSessionNotFound) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("CREATED session was not reaped within 1 s")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := r.Get(active.ID()); err != nil {
		t.Errorf("ACTIVE session was reaped despite long idle timeout: %v", err)
	}
	if got := created.Info().State; got != StateClosed {
		t.Errorf("reaped session state = %v, want CLOSED", got)
	}
}

func TestRegistry_ReaperRemovesOrphanedClosedSessions(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Session.CleanupIntervalSeconds = 0.02
	r := newTestRegistry(cfg, nil, nil)

	s, err := r.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Close the session directly, leaving the registry entry behind.
	s.Close()

	r.Start()
	defer r.Stop()

	deadline := time.Now().Add(time.Second)
	for {
		if _, err := r.Get(s.ID()); errors.Is(err, ErrSessionNotFound) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("orphaned CLOSED session was not swept within 1 s")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRegistry_ReaperNotBlockedByInFlightASR(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Session.InitialSpeechTimeoutSeconds = 10
	cfg.Session.IdleTimeoutSeconds = 10
	backend := &stubASR{text: "slow", delay: 300 * time.Millisecond}
	det := &vadmock.Detector{Result: true}
	r := newTestRegistry(cfg, det, backend)

	s, err := r.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.ProcessChunk(context.Background(), silenceChunk())
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)

	// Closing through the registry must make progress even while the
	// session's chunk is waiting on the backend.
	closedAt := make(chan time.Time, 1)
	go func() {
		r.Close(s.ID())
		closedAt <- time.Now()
	}()

	select {
	case <-closedAt:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("registry Close deadlocked against in-flight ProcessChunk")
	}
	if err := <-done; err != nil {
		t.Fatalf("in-flight ProcessChunk: %v", err)
	}
}

func TestRegistry_StopClosesEverything(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Session.MaxSessions = 5
	r := newTestRegistry(cfg, nil, nil)
	r.Start()

	var created []*Session
	for i := 0; i < 5; i++ {
		s, err := r.Create()
		if err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
		created = append(created, s)
	}

	r.Stop()
	r.Stop() // idempotent

	if got := r.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after Stop = %d, want 0", got)
	}
	for _, s := range created {
		if st := s.Info().State; st != StateClosed {
			t.Errorf("session %s state = %v, want CLOSED", s.ID(), st)
		}
	}
}

func TestRegistry_Aggregate(t *testing.T) {
	t.Parallel()

	det := &vadmock.Detector{Result: true}
	r := newTestRegistry(nil, det, &stubASR{text: "words"})

	a, err := r.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := r.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := a.ProcessChunk(context.Background(), silenceChunk()); err != nil {
			t.Fatalf("ProcessChunk: %v", err)
		}
	}
	if _, err := b.ProcessChunk(context.Background(), silenceChunk()); err != nil {
		t.Fatalf("ProcessChunk: %v", err)
	}
	b.RecordError()

	agg := r.Aggregate()
	if agg.TotalSessions != 2 || agg.ActiveSessions != 2 {
		t.Errorf("sessions = %d/%d, want 2/2", agg.ActiveSessions, agg.TotalSessions)
	}
	if agg.AudioChunksReceived != 4 {
		t.Errorf("AudioChunksReceived = %d, want 4", agg.AudioChunksReceived)
	}
	if agg.AudioBytesReceived != 4*int64(testFrameBytes) {
		t.Errorf("AudioBytesReceived = %d, want %d", agg.AudioBytesReceived, 4*testFrameBytes)
	}
	if agg.TranscriptsSent != 4 || agg.PartialsSent != 4 {
		t.Errorf("transcripts = %d, partials = %d, want 4 and 4", agg.TranscriptsSent, agg.PartialsSent)
	}
	if agg.ErrorsSent != 1 {
		t.Errorf("ErrorsSent = %d, want 1", agg.ErrorsSent)
	}
	if agg.AudioDurationMS <= 0 {
		t.Errorf("AudioDurationMS = %v, want > 0", agg.AudioDurationMS)
	}
}
