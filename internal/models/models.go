// Package models owns the process-wide model container: the shared VAD
// detector and the shared ASR backend. Both are loaded once at startup and
// handed out by reference so that every session reuses the same loaded
// weights instead of paying per-session load cost.
package models

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/voxstream/voxstream/internal/config"
	"github.com/voxstream/voxstream/pkg/provider/asr"
	asrmock "github.com/voxstream/voxstream/pkg/provider/asr/mock"
	asropenai "github.com/voxstream/voxstream/pkg/provider/asr/openai"
	asrwhisper "github.com/voxstream/voxstream/pkg/provider/asr/whisper"
	"github.com/voxstream/voxstream/pkg/provider/vad"
	vadenergy "github.com/voxstream/voxstream/pkg/provider/vad/energy"
)

// ErrNotInitialized is returned by [Get] before a successful [Init].
var ErrNotInitialized = errors.New("models: not initialized, call Init first")

// Container bundles the shared inference resources.
type Container struct {
	// VAD is the stateless speech/silence classifier shared by all sessions.
	VAD vad.Detector

	// ASR is the speech-to-text backend shared by all sessions.
	ASR asr.Backend
}

// Close releases the backend resources.
func (c *Container) Close() error {
	if c.ASR != nil {
		return c.ASR.Close()
	}
	return nil
}

var (
	mu        sync.Mutex
	container *Container
)

// Init loads the VAD detector and the configured ASR engine and installs
// them as the process-wide container. A startup failure here is fatal for
// the caller: a server without models cannot serve.
//
// Calling Init again replaces the container; the previous backend is closed.
func Init(cfg *config.Config) (*Container, error) {
	detector, err := vadenergy.New(vad.Config{
		SampleRate:     cfg.Audio.SampleRate,
		Aggressiveness: cfg.Audio.VADAggressiveness,
	})
	if err != nil {
		return nil, fmt.Errorf("models: init vad: %w", err)
	}

	backend, err := newBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("models: init asr engine %q: %w", cfg.ASR.Engine, err)
	}

	slog.Info("models loaded",
		slog.String("asr_engine", string(cfg.ASR.Engine)),
		slog.Int("vad_aggressiveness", cfg.Audio.VADAggressiveness),
	)

	c := &Container{VAD: detector, ASR: backend}

	mu.Lock()
	prev := container
	container = c
	mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			slog.Warn("closing previous model container", slog.String("error", err.Error()))
		}
	}
	return c, nil
}

// newBackend constructs the ASR backend selected by cfg.ASR.Engine.
func newBackend(cfg *config.Config) (asr.Backend, error) {
	switch cfg.ASR.Engine {
	case config.EngineMock:
		// The session applies audio.latency_ms itself before every chunk;
		// a non-zero engine latency here would double it.
		return asrmock.New(
			asrmock.WithBytesPerWord(cfg.ASR.BytesPerWord),
		), nil
	case config.EngineWhisper:
		return asrwhisper.New(cfg.ASR.Whisper.ModelPath, cfg.ASR.Whisper.Warmup,
			asrwhisper.WithLanguage(cfg.ASR.Whisper.Language),
			asrwhisper.WithSampleRate(cfg.Audio.SampleRate),
			asrwhisper.WithRTFWarnThreshold(cfg.ASR.Whisper.RTFWarnThreshold),
		)
	case config.EngineOpenAI:
		opts := []asropenai.Option{
			asropenai.WithModel(cfg.ASR.OpenAI.Model),
			asropenai.WithSampleRate(cfg.Audio.SampleRate),
		}
		if cfg.ASR.OpenAI.BaseURL != "" {
			opts = append(opts, asropenai.WithBaseURL(cfg.ASR.OpenAI.BaseURL))
		}
		return asropenai.New(cfg.ASR.OpenAI.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.ASR.Engine)
	}
}

// Get returns the process-wide container installed by [Init].
func Get() (*Container, error) {
	mu.Lock()
	defer mu.Unlock()
	if container == nil {
		return nil, ErrNotInitialized
	}
	return container, nil
}

// Set installs a prebuilt container. Test hook for injecting mock backends.
func Set(c *Container) {
	mu.Lock()
	container = c
	mu.Unlock()
}

// Reset clears the container without closing it. Test hook.
func Reset() {
	mu.Lock()
	container = nil
	mu.Unlock()
}
