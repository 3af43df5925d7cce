// Package energy provides a pure-Go energy-based vad.Detector.
//
// The detector computes the root mean square of each frame and compares it
// against a threshold derived from the configured aggressiveness. It is a
// stand-in for WebRTC VAD with the same external contract: fixed frame sizes,
// four aggressiveness levels, strict input validation.
package energy

import (
	"fmt"
	"math"

	"github.com/voxstream/voxstream/pkg/audio"
	"github.com/voxstream/voxstream/pkg/provider/vad"
)

// rmsThresholds maps aggressiveness 0–3 to the normalised RMS level above
// which a frame counts as speech. Higher aggressiveness demands more energy.
var rmsThresholds = [4]float64{0.010, 0.020, 0.035, 0.060}

// Detector is an energy-based implementation of vad.Detector. It holds only
// immutable configuration and is safe for concurrent use.
type Detector struct {
	sampleRate int
	threshold  float64

	// validFrameSizes are the byte lengths of 10/20/30 ms frames at the
	// configured sample rate.
	validFrameSizes [3]int
}

// New constructs a Detector from cfg. Returns an error for invalid sample
// rates or aggressiveness levels.
func New(cfg vad.Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Detector{
		sampleRate: cfg.SampleRate,
		threshold:  rmsThresholds[cfg.Aggressiveness],
	}
	for i, ms := range []int{10, 20, 30} {
		d.validFrameSizes[i] = audio.FrameSizeBytes(cfg.SampleRate, ms)
	}
	return d, nil
}

// IsSpeech implements vad.Detector. The frame must be exactly 10, 20, or
// 30 ms of s16le mono PCM at the configured sample rate.
func (d *Detector) IsSpeech(frame []byte) (bool, error) {
	if !d.validFrameSize(len(frame)) {
		return false, fmt.Errorf("energy: invalid frame size %d bytes for %d Hz", len(frame), d.sampleRate)
	}
	return d.rms(frame) > d.threshold, nil
}

func (d *Detector) validFrameSize(n int) bool {
	for _, v := range d.validFrameSizes {
		if n == v {
			return true
		}
	}
	return false
}

// rms returns the root mean square of the frame, normalised to [0, 1].
func (d *Detector) rms(frame []byte) float64 {
	samples := audio.PCMToFloat32(frame)
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Compile-time assertion that Detector satisfies vad.Detector.
var _ vad.Detector = (*Detector)(nil)
