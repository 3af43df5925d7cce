// Package vad defines the Detector interface for Voice Activity Detection
// backends.
//
// A Detector wraps a frame-level speech classifier and exposes it as a
// stateless, process-wide predicate: one Detector instance is shared by every
// transcription session, while per-stream buffering lives with the caller.
// Frame sizing rules (10, 20, or 30 ms of 16-bit mono PCM) are enforced by
// the Detector; callers that cannot yet assemble a full frame should treat
// the audio as speech rather than drop it.
//
// Implementations must be safe for concurrent IsSpeech calls from any number
// of goroutines.
package vad

import "fmt"

// ValidSampleRates lists the sample rates a WebRTC-class detector accepts.
var ValidSampleRates = []int{8000, 16000, 32000, 48000}

// Config holds the parameters for constructing a Detector.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must be one of
	// [ValidSampleRates].
	SampleRate int

	// Aggressiveness tunes how readily the detector classifies a frame as
	// silence. Range 0–3; higher values are more aggressive about filtering
	// non-speech.
	Aggressiveness int
}

// Validate reports whether cfg is usable for detector construction.
func (c Config) Validate() error {
	ok := false
	for _, r := range ValidSampleRates {
		if c.SampleRate == r {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("vad: invalid sample rate %d", c.SampleRate)
	}
	if c.Aggressiveness < 0 || c.Aggressiveness > 3 {
		return fmt.Errorf("vad: invalid aggressiveness %d (valid: 0-3)", c.Aggressiveness)
	}
	return nil
}

// Detector classifies single PCM frames as speech or silence.
//
// Implementations hold no per-stream state; the same Detector may be called
// concurrently for frames belonging to different sessions.
type Detector interface {
	// IsSpeech reports whether a single frame of 16-bit little-endian mono
	// PCM contains speech. The frame must be exactly 10, 20, or 30 ms long
	// at the configured sample rate. Returns an error for malformed frames
	// or internal classifier failures; callers should treat an error as
	// speech so that no audio is dropped.
	IsSpeech(frame []byte) (bool, error)
}
