// Package mock provides an asr.Backend that fabricates transcripts without a
// model. Output text is proportional to the audio byte count, drawn from a
// fixed vocabulary, which makes load testing and protocol development
// possible on machines with no inference hardware.
package mock

import (
	"context"
	"time"

	"github.com/voxstream/voxstream/pkg/provider/asr"
)

// defaultBytesPerWord matches 2.5 words per second of 16 kHz s16le audio.
const defaultBytesPerWord = 12800

// Engine is a mock asr.Backend. Safe for concurrent use.
type Engine struct {
	bytesPerWord int
	latency      time.Duration
	gen          *textGenerator
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithBytesPerWord sets how many audio bytes produce one word of output.
// Defaults to 12800 (≈2.5 words/s at 16 kHz).
func WithBytesPerWord(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.bytesPerWord = n
		}
	}
}

// WithLatency sets a simulated inference delay applied by Transcribe.
// TranscribeSync never sleeps. Defaults to zero.
func WithLatency(d time.Duration) Option {
	return func(e *Engine) { e.latency = d }
}

// WithSeed makes the generated word sequence deterministic. Intended for
// tests.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.gen = newTextGenerator(seed) }
}

// New constructs a mock Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		bytesPerWord: defaultBytesPerWord,
		gen:          newTextGenerator(time.Now().UnixNano()),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Transcribe implements asr.Backend. It sleeps for the configured simulated
// latency (respecting ctx) and then fabricates text.
func (e *Engine) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if e.latency > 0 {
		select {
		case <-time.After(e.latency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return e.TranscribeSync(pcm)
}

// TranscribeSync implements asr.Backend. It never fails.
func (e *Engine) TranscribeSync(pcm []byte) (string, error) {
	return e.gen.generate(len(pcm) / e.bytesPerWord), nil
}

// Close implements asr.Backend. It is a no-op.
func (e *Engine) Close() error { return nil }

// Compile-time assertion that Engine satisfies asr.Backend.
var _ asr.Backend = (*Engine)(nil)
