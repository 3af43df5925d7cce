package session

import (
	"github.com/voxstream/voxstream/pkg/audio"
	"github.com/voxstream/voxstream/pkg/provider/vad"
)

// FrameGate accumulates a session's raw PCM bytes and feeds fixed-size
// frames to the shared VAD detector. The detector is stateless and shared
// across sessions; all per-stream buffering lives here.
//
// FrameGate is not safe for concurrent use. The owning Session serialises
// access under its own lock.
type FrameGate struct {
	detector  vad.Detector
	frameSize int
	buf       []byte
}

// NewFrameGate builds a gate for the given frame duration. frameMS must be
// 10, 20, or 30; the caller validates this at config load time.
func NewFrameGate(detector vad.Detector, sampleRate, frameMS int) *FrameGate {
	return &FrameGate{
		detector:  detector,
		frameSize: audio.FrameSizeBytes(sampleRate, frameMS),
	}
}

// IsSpeech appends chunk to the buffer and classifies the most recent full
// frame. When the buffer holds less than one frame, or the detector fails,
// the chunk is assumed to be speech so that no audio is ever dropped.
func (g *FrameGate) IsSpeech(chunk []byte) bool {
	g.buf = append(g.buf, chunk...)
	if len(g.buf) < g.frameSize {
		return true
	}

	frame := g.buf[len(g.buf)-g.frameSize:]
	speech, err := g.detector.IsSpeech(frame)
	if err != nil {
		speech = true
	}

	// Only the most recent frame matters for the next verdict; keep the
	// buffer bounded.
	g.buf = append(g.buf[:0], frame...)

	return speech
}

// ProcessFrames appends chunk and drains every complete frame in FIFO order,
// returning one verdict per frame. Detector failures count as speech.
// Used by diagnostics and tests; the streaming path uses IsSpeech.
func (g *FrameGate) ProcessFrames(chunk []byte) []bool {
	g.buf = append(g.buf, chunk...)

	var verdicts []bool
	for len(g.buf) >= g.frameSize {
		frame := g.buf[:g.frameSize]
		speech, err := g.detector.IsSpeech(frame)
		if err != nil {
			speech = true
		}
		verdicts = append(verdicts, speech)
		g.buf = g.buf[g.frameSize:]
	}
	return verdicts
}

// Reset clears the buffer. Called on finalisation and on session close.
func (g *FrameGate) Reset() {
	g.buf = g.buf[:0]
}

// Buffered returns the number of bytes waiting for a complete frame.
func (g *FrameGate) Buffered() int {
	return len(g.buf)
}
