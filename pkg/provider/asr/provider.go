// Package asr defines the Backend interface for speech-to-text engines.
//
// A Backend converts raw 16-bit little-endian mono PCM into text. The
// service holds exactly one Backend for its whole lifetime and shares it
// across every transcription session, so implementations must serialise any
// non-reentrant inference internally (a single mutex around the model call
// is acceptable) and must be safe for concurrent use.
//
// Two call styles are exposed. TranscribeSync is the required blocking
// primitive. Transcribe additionally honours context cancellation and is
// what the session pipeline calls; engines with long-running synchronous
// inference should make it cooperative rather than starving the scheduler.
package asr

import "context"

// Backend is the abstraction over any speech-to-text engine.
type Backend interface {
	// Transcribe converts PCM audio to text, honouring ctx for cancellation
	// where the engine can. The audio is one chunk or one whole clip of
	// s16le mono PCM at the service sample rate.
	Transcribe(ctx context.Context, pcm []byte) (string, error)

	// TranscribeSync converts PCM audio to text, blocking until inference
	// completes. It must be safe to call from multiple goroutines.
	TranscribeSync(pcm []byte) (string, error)

	// Close releases model resources. Calling Close more than once is safe.
	Close() error
}

// Stats is a snapshot of an engine's rolling performance counters.
type Stats struct {
	// TotalInferences is the number of completed inference calls.
	TotalInferences int64

	// AvgRTF is the mean real-time factor (inference time / audio duration)
	// over the rolling window. Zero when no measurements exist.
	AvgRTF float64

	// AvgLatencyMS is the mean inference latency in milliseconds over the
	// rolling window.
	AvgLatencyMS float64

	// WindowSize is the number of measurements currently in the window.
	WindowSize int
}

// StatsReporter is implemented by backends that track inference performance.
type StatsReporter interface {
	Stats() Stats
}
