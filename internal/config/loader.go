package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/voxstream/voxstream/pkg/audio"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Audio.SampleRate != audio.DefaultSampleRate {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be %d, got %d", audio.DefaultSampleRate, cfg.Audio.SampleRate))
	}
	if cfg.Audio.VADAggressiveness < 0 || cfg.Audio.VADAggressiveness > 3 {
		errs = append(errs, fmt.Errorf("audio.vad_aggressiveness must be 0-3, got %d", cfg.Audio.VADAggressiveness))
	}
	switch cfg.Audio.VADFrameMS {
	case 10, 20, 30:
	default:
		errs = append(errs, fmt.Errorf("audio.vad_frame_ms must be 10, 20, or 30, got %d", cfg.Audio.VADFrameMS))
	}
	if cfg.Audio.EndpointingMS <= 0 {
		errs = append(errs, fmt.Errorf("audio.endpointing_ms must be positive, got %d", cfg.Audio.EndpointingMS))
	}
	if cfg.Audio.LatencyMS < 0 {
		errs = append(errs, fmt.Errorf("audio.latency_ms must not be negative, got %d", cfg.Audio.LatencyMS))
	}

	if !cfg.ASR.Engine.IsValid() {
		errs = append(errs, fmt.Errorf("asr.engine %q is invalid; valid values: mock, whisper, openai", cfg.ASR.Engine))
	}
	if cfg.ASR.BytesPerWord <= 0 {
		errs = append(errs, fmt.Errorf("asr.bytes_per_word must be positive, got %d", cfg.ASR.BytesPerWord))
	}
	if cfg.ASR.Engine == EngineWhisper && cfg.ASR.Whisper.ModelPath == "" {
		errs = append(errs, errors.New("asr.whisper.model_path is required when asr.engine is whisper"))
	}
	if cfg.ASR.Engine == EngineOpenAI && cfg.ASR.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("asr.openai.api_key is required when asr.engine is openai"))
	}

	if cfg.Session.MaxSessions < 1 {
		errs = append(errs, fmt.Errorf("session.max_sessions must be at least 1, got %d", cfg.Session.MaxSessions))
	}
	if cfg.Session.IdleTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("session.idle_timeout_seconds must be positive, got %v", cfg.Session.IdleTimeoutSeconds))
	}
	if cfg.Session.InitialSpeechTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("session.initial_speech_timeout_seconds must be positive, got %v", cfg.Session.InitialSpeechTimeoutSeconds))
	}
	if cfg.Session.CleanupIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("session.cleanup_interval_seconds must be positive, got %v", cfg.Session.CleanupIntervalSeconds))
	}

	return errors.Join(errs...)
}
