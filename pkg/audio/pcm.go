// Package audio provides stateless helpers for 16-bit little-endian linear
// PCM audio: sample conversion, duration math, frame sizing, and a minimal
// WAV container writer for backends that upload whole clips.
//
// All functions assume mono audio. The service-wide format is 16 kHz mono
// s16le, which works out to 32 000 bytes per second.
package audio

import (
	"bytes"
	"encoding/binary"
)

const (
	// DefaultSampleRate is the sample rate the service operates at.
	DefaultSampleRate = 16000

	// BytesPerSample is the byte width of a single 16-bit sample.
	BytesPerSample = 2
)

// BytesPerSecond returns the PCM byte rate for the given sample rate.
func BytesPerSecond(sampleRate int) int {
	return sampleRate * BytesPerSample
}

// DurationMS returns the play duration in milliseconds of n PCM bytes at the
// given sample rate. Returns 0 for non-positive sample rates.
func DurationMS(n int, sampleRate int) float64 {
	bps := BytesPerSecond(sampleRate)
	if bps <= 0 {
		return 0
	}
	return float64(n) * 1000 / float64(bps)
}

// FrameSizeBytes returns the byte length of one frame of frameMS milliseconds
// at the given sample rate.
func FrameSizeBytes(sampleRate, frameMS int) int {
	return sampleRate * frameMS / 1000 * BytesPerSample
}

// PCMToFloat32 converts raw s16le bytes to float32 samples in [-1, 1).
// A trailing odd byte is ignored.
func PCMToFloat32(pcm []byte) []float32 {
	n := len(pcm) / BytesPerSample
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*BytesPerSample:]))
		out[i] = float32(s) / 32768.0
	}
	return out
}

// WAVFromPCM wraps raw mono s16le PCM in a RIFF/WAVE container.
func WAVFromPCM(pcm []byte, sampleRate int) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(44 + len(pcm))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))                      // fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))                      // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1))                      // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))             // sample rate
	binary.Write(buf, binary.LittleEndian, uint32(BytesPerSecond(sampleRate))) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(BytesPerSample))         // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))                     // bits per sample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
