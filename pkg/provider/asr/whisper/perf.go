package whisper

import (
	"sync"

	"github.com/voxstream/voxstream/pkg/provider/asr"
)

// perfWindow tracks real-time factor and inference latency over a rolling
// window. Safe for concurrent use.
type perfWindow struct {
	mu sync.Mutex

	size    int
	rtf     []float64
	latency []float64
	total   int64
}

func newPerfWindow(size int) *perfWindow {
	return &perfWindow{size: size}
}

// record adds one inference measurement. Zero-duration audio contributes a
// latency sample but no RTF sample.
func (w *perfWindow) record(audioSeconds, inferenceSeconds float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.total++
	w.latency = push(w.latency, inferenceSeconds, w.size)
	if audioSeconds > 0 {
		w.rtf = push(w.rtf, inferenceSeconds/audioSeconds, w.size)
	}
}

func (w *perfWindow) snapshot() asr.Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return asr.Stats{
		TotalInferences: w.total,
		AvgRTF:          mean(w.rtf),
		AvgLatencyMS:    mean(w.latency) * 1000,
		WindowSize:      len(w.rtf),
	}
}

func push(s []float64, v float64, max int) []float64 {
	s = append(s, v)
	if len(s) > max {
		s = s[1:]
	}
	return s
}

func mean(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / float64(len(s))
}
