// Package openai provides an asr.Backend backed by the OpenAI Audio
// Transcriptions API. PCM clips are wrapped in a WAV container and uploaded
// per request; the API serialises nothing locally, so this engine needs no
// inference mutex.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voxstream/voxstream/pkg/audio"
	"github.com/voxstream/voxstream/pkg/provider/asr"
)

const defaultModel = "whisper-1"

// Engine is an asr.Backend using the OpenAI transcription endpoint.
type Engine struct {
	client     oai.Client
	model      string
	sampleRate int
	timeout    time.Duration
}

// config holds optional configuration for the engine.
type config struct {
	baseURL    string
	model      string
	sampleRate int
	timeout    time.Duration
}

// Option is a functional option for Engine.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel selects the transcription model. Defaults to "whisper-1".
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithSampleRate sets the PCM sample rate in Hz used when building the WAV
// upload. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(c *config) { c.sampleRate = rate }
}

// WithTimeout sets a per-request HTTP timeout used by TranscribeSync, which
// has no context to carry a deadline. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New constructs an OpenAI transcription Engine.
func New(apiKey string, opts ...Option) (*Engine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{
		model:      defaultModel,
		sampleRate: audio.DefaultSampleRate,
		timeout:    30 * time.Second,
	}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Engine{
		client:     oai.NewClient(reqOpts...),
		model:      cfg.model,
		sampleRate: cfg.sampleRate,
		timeout:    cfg.timeout,
	}, nil
}

// Transcribe implements asr.Backend.
func (e *Engine) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}
	wav := audio.WAVFromPCM(pcm, e.sampleRate)

	res, err := e.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		Model: oai.AudioModel(e.model),
		File:  oai.File(bytes.NewReader(wav), "audio.wav", "audio/wav"),
	})
	if err != nil {
		return "", fmt.Errorf("openai: transcribe: %w", err)
	}
	return res.Text, nil
}

// TranscribeSync implements asr.Backend. The HTTP client timeout bounds the
// call.
func (e *Engine) TranscribeSync(pcm []byte) (string, error) {
	return e.Transcribe(context.Background(), pcm)
}

// Close implements asr.Backend. It is a no-op; the HTTP client holds no
// resources worth releasing.
func (e *Engine) Close() error { return nil }

// Compile-time assertion that Engine satisfies asr.Backend.
var _ asr.Backend = (*Engine)(nil)
