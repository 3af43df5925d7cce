package config

import (
	"strings"
	"testing"
)

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader(empty): %v", err)
	}

	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.VADFrameMS != 20 {
		t.Errorf("VADFrameMS = %d, want 20", cfg.Audio.VADFrameMS)
	}
	if cfg.Audio.EndpointingMS != 300 {
		t.Errorf("EndpointingMS = %d, want 300", cfg.Audio.EndpointingMS)
	}
	if cfg.ASR.Engine != EngineMock {
		t.Errorf("Engine = %q, want mock", cfg.ASR.Engine)
	}
	if cfg.Session.MaxSessions != 1000 {
		t.Errorf("MaxSessions = %d, want 1000", cfg.Session.MaxSessions)
	}
}

func TestLoadFromReader_OverlaysDefaults(t *testing.T) {
	t.Parallel()

	yaml := `
audio:
  endpointing_ms: 150
  latency_ms: 0
session:
  max_sessions: 3
  initial_speech_timeout_seconds: 0.1
`
	cfg, err := LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Audio.EndpointingMS != 150 {
		t.Errorf("EndpointingMS = %d, want 150", cfg.Audio.EndpointingMS)
	}
	if cfg.Audio.LatencyMS != 0 {
		t.Errorf("LatencyMS = %d, want 0", cfg.Audio.LatencyMS)
	}
	if cfg.Session.MaxSessions != 3 {
		t.Errorf("MaxSessions = %d, want 3", cfg.Session.MaxSessions)
	}
	// Untouched fields keep their defaults.
	if cfg.Audio.VADAggressiveness != 2 {
		t.Errorf("VADAggressiveness = %d, want default 2", cfg.Audio.VADAggressiveness)
	}
	if cfg.Session.IdleTimeoutSeconds != 300 {
		t.Errorf("IdleTimeoutSeconds = %v, want default 300", cfg.Session.IdleTimeoutSeconds)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader("bogus_key: 1\n"))
	if err == nil {
		t.Fatal("unknown top-level key should fail")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config { return Default() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default is valid", func(c *Config) {}, ""},
		{"wrong sample rate", func(c *Config) { c.Audio.SampleRate = 44100 }, "sample_rate"},
		{"bad aggressiveness", func(c *Config) { c.Audio.VADAggressiveness = 7 }, "vad_aggressiveness"},
		{"bad frame duration", func(c *Config) { c.Audio.VADFrameMS = 25 }, "vad_frame_ms"},
		{"zero endpointing", func(c *Config) { c.Audio.EndpointingMS = 0 }, "endpointing_ms"},
		{"negative latency", func(c *Config) { c.Audio.LatencyMS = -1 }, "latency_ms"},
		{"unknown engine", func(c *Config) { c.ASR.Engine = "nemo" }, "asr.engine"},
		{"whisper without model path", func(c *Config) { c.ASR.Engine = EngineWhisper }, "model_path"},
		{"openai without key", func(c *Config) { c.ASR.Engine = EngineOpenAI }, "api_key"},
		{"zero max sessions", func(c *Config) { c.Session.MaxSessions = 0 }, "max_sessions"},
		{"zero idle timeout", func(c *Config) { c.Session.IdleTimeoutSeconds = 0 }, "idle_timeout"},
		{"zero speech timeout", func(c *Config) { c.Session.InitialSpeechTimeoutSeconds = 0 }, "initial_speech_timeout"},
		{"zero cleanup interval", func(c *Config) { c.Session.CleanupIntervalSeconds = 0 }, "cleanup_interval"},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "verbose" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: unexpected error %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate: expected error mentioning %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	t.Parallel()

	s := SessionConfig{
		IdleTimeoutSeconds:          1.5,
		InitialSpeechTimeoutSeconds: 0.1,
		CleanupIntervalSeconds:      0.05,
	}
	if got := s.IdleTimeout().Milliseconds(); got != 1500 {
		t.Errorf("IdleTimeout = %dms, want 1500", got)
	}
	if got := s.InitialSpeechTimeout().Milliseconds(); got != 100 {
		t.Errorf("InitialSpeechTimeout = %dms, want 100", got)
	}
	if got := s.CleanupInterval().Milliseconds(); got != 50 {
		t.Errorf("CleanupInterval = %dms, want 50", got)
	}

	a := AudioConfig{SampleRate: 16000, LatencyMS: 50}
	if got := a.BytesPerSecond(); got != 32000 {
		t.Errorf("BytesPerSecond = %d, want 32000", got)
	}
	if got := a.Latency().Milliseconds(); got != 50 {
		t.Errorf("Latency = %dms, want 50", got)
	}
}
