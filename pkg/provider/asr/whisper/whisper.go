// Package whisper provides an asr.Backend backed by the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// The model is loaded once and shared by every session; inference is
// serialised with a single mutex because whisper contexts are cheap but the
// underlying GPU/CPU compute is not re-entrant in any useful way for this
// service's one-model deployment.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/voxstream/voxstream/pkg/audio"
	"github.com/voxstream/voxstream/pkg/provider/asr"
)

const (
	defaultLanguage   = "en"
	defaultSampleRate = audio.DefaultSampleRate

	// defaultRTFWarnThreshold is the real-time factor above which a warning
	// is logged. RTF ≥ 1 means inference is slower than real time.
	defaultRTFWarnThreshold = 0.9
)

// Engine is an asr.Backend using a local whisper.cpp model.
type Engine struct {
	model      whisperlib.Model
	language   string
	sampleRate int

	rtfWarnThreshold float64

	// inferMu serialises inference; the model is shared process-wide.
	inferMu sync.Mutex

	perf *perfWindow
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithLanguage sets the transcription language code (e.g. "en", "de").
// Defaults to "en".
func WithLanguage(lang string) Option {
	return func(e *Engine) { e.language = lang }
}

// WithSampleRate sets the PCM sample rate in Hz. Must match the audio passed
// to Transcribe. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(e *Engine) { e.sampleRate = rate }
}

// WithRTFWarnThreshold sets the real-time factor above which a slow-inference
// warning is logged. Defaults to 0.9.
func WithRTFWarnThreshold(v float64) Option {
	return func(e *Engine) { e.rtfWarnThreshold = v }
}

// New loads the whisper.cpp model at modelPath and optionally runs a warmup
// inference of one second of silence to prime compute kernels.
func New(modelPath string, warmup bool, opts ...Option) (*Engine, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	e := &Engine{
		model:            model,
		language:         defaultLanguage,
		sampleRate:       defaultSampleRate,
		rtfWarnThreshold: defaultRTFWarnThreshold,
		perf:             newPerfWindow(100),
	}
	for _, o := range opts {
		o(e)
	}

	if warmup {
		slog.Info("whisper: running warmup inference")
		silence := make([]byte, audio.BytesPerSecond(e.sampleRate))
		if _, err := e.TranscribeSync(silence); err != nil {
			_ = model.Close()
			return nil, fmt.Errorf("whisper: warmup inference: %w", err)
		}
		slog.Info("whisper: warmup complete")
	}

	return e, nil
}

// Transcribe implements asr.Backend. Inference runs on a separate goroutine
// so that a cancelled ctx returns promptly even though whisper.cpp itself
// cannot be interrupted; the orphaned inference finishes in the background
// holding the inference mutex.
func (e *Engine) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := e.TranscribeSync(pcm)
		ch <- result{text, err}
	}()

	select {
	case r := <-ch:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// TranscribeSync implements asr.Backend. Thread-safe; concurrent callers
// queue on the inference mutex.
func (e *Engine) TranscribeSync(pcm []byte) (string, error) {
	samples := audio.PCMToFloat32(pcm)
	if len(samples) == 0 {
		return "", nil
	}
	audioSeconds := float64(len(samples)) / float64(e.sampleRate)

	e.inferMu.Lock()
	start := time.Now()
	text, err := e.infer(samples)
	elapsed := time.Since(start)
	e.inferMu.Unlock()

	if err != nil {
		return "", err
	}

	e.perf.record(audioSeconds, elapsed.Seconds())
	if audioSeconds > 0 && elapsed.Seconds()/audioSeconds > e.rtfWarnThreshold {
		slog.Warn("whisper: high real-time factor",
			"rtf", elapsed.Seconds()/audioSeconds,
			"audio_s", audioSeconds,
			"inference_s", elapsed.Seconds(),
		)
	}
	return text, nil
}

// infer runs one whisper.cpp inference. Must be called with inferMu held;
// whisper contexts are not thread-safe.
func (e *Engine) infer(samples []float32) (string, error) {
	wctx, err := e.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(e.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", e.language, "err", err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		parts = append(parts, strings.TrimSpace(segment.Text))
	}
	return strings.Join(parts, " "), nil
}

// Close releases the whisper model.
func (e *Engine) Close() error {
	if e.model != nil {
		return e.model.Close()
	}
	return nil
}

// Stats implements asr.StatsReporter.
func (e *Engine) Stats() asr.Stats { return e.perf.snapshot() }

// Compile-time assertions.
var (
	_ asr.Backend       = (*Engine)(nil)
	_ asr.StatsReporter = (*Engine)(nil)
)
