package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestDurationMS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		bytes      int
		sampleRate int
		want       float64
	}{
		{"20ms chunk at 16kHz", 640, 16000, 20},
		{"one second at 16kHz", 32000, 16000, 1000},
		{"empty", 0, 16000, 0},
		{"zero sample rate", 640, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DurationMS(tt.bytes, tt.sampleRate); got != tt.want {
				t.Errorf("DurationMS(%d, %d) = %v, want %v", tt.bytes, tt.sampleRate, got, tt.want)
			}
		})
	}
}

func TestFrameSizeBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		frameMS int
		want    int
	}{
		{10, 320},
		{20, 640},
		{30, 960},
	}
	for _, tt := range tests {
		if got := FrameSizeBytes(16000, tt.frameMS); got != tt.want {
			t.Errorf("FrameSizeBytes(16000, %d) = %d, want %d", tt.frameMS, got, tt.want)
		}
	}
}

func TestPCMToFloat32(t *testing.T) {
	t.Parallel()

	pcm := make([]byte, 6)
	binary.LittleEndian.PutUint16(pcm[0:], uint16(0))
	binary.LittleEndian.PutUint16(pcm[2:], uint16(16384))
	binary.LittleEndian.PutUint16(pcm[4:], 0x8000) // -32768

	got := PCMToFloat32(pcm)
	want := []float32{0, 0.5, -1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPCMToFloat32_OddTrailingByte(t *testing.T) {
	t.Parallel()

	got := PCMToFloat32([]byte{0x00, 0x00, 0x7f})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

func TestWAVFromPCM(t *testing.T) {
	t.Parallel()

	pcm := bytes.Repeat([]byte{0x01, 0x02}, 100)
	wav := WAVFromPCM(pcm, 16000)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint32(wav[24:]); got != 16000 {
		t.Errorf("sample rate field = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:]); got != uint32(len(pcm)) {
		t.Errorf("data size field = %d, want %d", got, len(pcm))
	}
	if !bytes.Equal(wav[44:], pcm) {
		t.Error("payload does not round-trip")
	}
}
