// Package config provides the configuration schema and loader for the
// voxstream transcription service.
package config

import (
	"time"

	"github.com/voxstream/voxstream/pkg/audio"
)

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Engine selects the ASR backend implementation.
type Engine string

const (
	// EngineMock fabricates transcripts proportional to audio length.
	EngineMock Engine = "mock"

	// EngineWhisper runs local whisper.cpp inference.
	EngineWhisper Engine = "whisper"

	// EngineOpenAI uploads clips to the OpenAI transcription API.
	EngineOpenAI Engine = "openai"
)

// IsValid reports whether e is a recognised ASR engine.
func (e Engine) IsValid() bool {
	switch e {
	case EngineMock, EngineWhisper, EngineOpenAI:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Audio   AudioConfig   `yaml:"audio"`
	ASR     ASRConfig     `yaml:"asr"`
	Session SessionConfig `yaml:"session"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g. ":8001").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig holds the audio format, VAD, and endpointing settings shared
// by every session.
type AudioConfig struct {
	// SampleRate is the PCM sample rate in Hz. Must be 16000; the
	// WebRTC-class VAD frame sizing assumes it.
	SampleRate int `yaml:"sample_rate"`

	// VADAggressiveness tunes the speech/silence classifier, 0-3.
	VADAggressiveness int `yaml:"vad_aggressiveness"`

	// VADFrameMS is the VAD frame duration in milliseconds (10, 20, or 30).
	VADFrameMS int `yaml:"vad_frame_ms"`

	// EndpointingMS is the consecutive silence in milliseconds after which
	// an utterance is finalised.
	EndpointingMS int `yaml:"endpointing_ms"`

	// LatencyMS is a simulated per-chunk processing delay in milliseconds.
	// Set to zero in tests.
	LatencyMS int `yaml:"latency_ms"`
}

// BytesPerSecond returns the PCM byte rate implied by the sample rate.
func (a AudioConfig) BytesPerSecond() int {
	return audio.BytesPerSecond(a.SampleRate)
}

// Latency returns the simulated per-chunk delay as a duration.
func (a AudioConfig) Latency() time.Duration {
	return time.Duration(a.LatencyMS) * time.Millisecond
}

// ASRConfig selects and parameterises the ASR backend.
type ASRConfig struct {
	// Engine selects the backend: "mock", "whisper", or "openai".
	Engine Engine `yaml:"engine"`

	// BytesPerWord sets the mock engine's text density: audio bytes per
	// generated word.
	BytesPerWord int `yaml:"bytes_per_word"`

	Whisper WhisperConfig `yaml:"whisper"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
}

// WhisperConfig holds settings for the local whisper.cpp engine.
type WhisperConfig struct {
	// ModelPath is the path to the GGML model file. Required when the
	// whisper engine is selected.
	ModelPath string `yaml:"model_path"`

	// Language is the transcription language code. Defaults to "en".
	Language string `yaml:"language"`

	// Warmup runs one inference of silence at startup to prime kernels.
	Warmup bool `yaml:"warmup"`

	// RTFWarnThreshold is the real-time factor above which slow inference
	// is logged.
	RTFWarnThreshold float64 `yaml:"rtf_warn_threshold"`
}

// OpenAIConfig holds settings for the remote OpenAI engine.
type OpenAIConfig struct {
	// APIKey authenticates against the API. Required when the openai
	// engine is selected.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects the transcription model (default "whisper-1").
	Model string `yaml:"model"`
}

// SessionConfig bounds and times the session registry.
type SessionConfig struct {
	// MaxSessions caps concurrently admitted sessions.
	MaxSessions int `yaml:"max_sessions"`

	// IdleTimeoutSeconds reaps ACTIVE sessions with no audio for this long.
	IdleTimeoutSeconds float64 `yaml:"idle_timeout_seconds"`

	// InitialSpeechTimeoutSeconds reaps CREATED sessions that never produce
	// speech. Kept deliberately shorter than the idle timeout: a connection
	// that never speaks holds an admission slot without doing work.
	InitialSpeechTimeoutSeconds float64 `yaml:"initial_speech_timeout_seconds"`

	// CleanupIntervalSeconds is the reaper sweep period.
	CleanupIntervalSeconds float64 `yaml:"cleanup_interval_seconds"`
}

// IdleTimeout returns the ACTIVE-session timeout as a duration.
func (s SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSeconds * float64(time.Second))
}

// InitialSpeechTimeout returns the CREATED-session timeout as a duration.
func (s SessionConfig) InitialSpeechTimeout() time.Duration {
	return time.Duration(s.InitialSpeechTimeoutSeconds * float64(time.Second))
}

// CleanupInterval returns the reaper sweep period as a duration.
func (s SessionConfig) CleanupInterval() time.Duration {
	return time.Duration(s.CleanupIntervalSeconds * float64(time.Second))
}

// Default returns a Config with every field set to its default value.
// Loading YAML overlays the file's fields on top of these.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8001",
			LogLevel:   LogInfo,
		},
		Audio: AudioConfig{
			SampleRate:        audio.DefaultSampleRate,
			VADAggressiveness: 2,
			VADFrameMS:        20,
			EndpointingMS:     300,
			LatencyMS:         50,
		},
		ASR: ASRConfig{
			Engine:       EngineMock,
			BytesPerWord: 12800,
			Whisper: WhisperConfig{
				Language:         "en",
				Warmup:           true,
				RTFWarnThreshold: 0.9,
			},
			OpenAI: OpenAIConfig{
				Model: "whisper-1",
			},
		},
		Session: SessionConfig{
			MaxSessions:                 1000,
			IdleTimeoutSeconds:          300,
			InitialSpeechTimeoutSeconds: 10,
			CleanupIntervalSeconds:      30,
		},
	}
}
