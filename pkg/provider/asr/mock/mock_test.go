package mock

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestTranscribeSync_WordCountProportionalToBytes(t *testing.T) {
	t.Parallel()

	e := New(WithBytesPerWord(1000), WithSeed(1))

	tests := []struct {
		bytes     int
		wantWords int
	}{
		{500, 1}, // below one word, clamped
		{1000, 1},
		{3500, 3},
		{10000, 10},
	}
	for _, tt := range tests {
		text, err := e.TranscribeSync(make([]byte, tt.bytes))
		if err != nil {
			t.Fatalf("TranscribeSync(%d bytes): %v", tt.bytes, err)
		}
		if got := len(strings.Fields(text)); got != tt.wantWords {
			t.Errorf("TranscribeSync(%d bytes) word count = %d, want %d", tt.bytes, got, tt.wantWords)
		}
	}
}

func TestTranscribeSync_AlwaysNonEmpty(t *testing.T) {
	t.Parallel()

	e := New(WithSeed(2))
	text, err := e.TranscribeSync(make([]byte, 640))
	if err != nil {
		t.Fatalf("TranscribeSync: %v", err)
	}
	if text == "" {
		t.Error("small chunk should still yield at least one word")
	}
}

func TestTranscribe_DeterministicWithSeed(t *testing.T) {
	t.Parallel()

	a := New(WithSeed(42))
	b := New(WithSeed(42))

	ta, _ := a.TranscribeSync(make([]byte, 32000))
	tb, _ := b.TranscribeSync(make([]byte, 32000))
	if ta != tb {
		t.Errorf("same seed produced different text: %q vs %q", ta, tb)
	}
}

func TestTranscribe_ContextCancelledDuringLatency(t *testing.T) {
	t.Parallel()

	e := New(WithLatency(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Transcribe(ctx, make([]byte, 640))
	if err == nil {
		t.Fatal("Transcribe should fail when ctx is already cancelled")
	}
}

func TestTranscribe_NoLatencyNoSleep(t *testing.T) {
	t.Parallel()

	e := New(WithSeed(3))
	start := time.Now()
	if _, err := e.Transcribe(context.Background(), make([]byte, 640)); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Transcribe with zero latency took %v", elapsed)
	}
}
