// Package mock provides a test double for the vad package interfaces.
//
// Use Detector to script IsSpeech verdicts and inspect the frames that were
// submitted for classification.
//
// Example:
//
//	det := &mock.Detector{Verdicts: []bool{true, true, false}}
//	got, _ := det.IsSpeech(frame)
package mock

import (
	"sync"

	"github.com/voxstream/voxstream/pkg/provider/vad"
)

// IsSpeechCall records a single invocation of Detector.IsSpeech.
type IsSpeechCall struct {
	// Frame is a copy of the bytes passed to IsSpeech.
	Frame []byte
}

// Detector is a mock implementation of vad.Detector.
type Detector struct {
	mu sync.Mutex

	// Verdicts are returned by successive IsSpeech calls in order. Once
	// exhausted, the last verdict repeats. When empty, IsSpeech returns
	// Result.
	Verdicts []bool

	// Result is returned when Verdicts is empty.
	Result bool

	// Err, if non-nil, is returned by every IsSpeech call.
	Err error

	// IsSpeechCalls records every call to IsSpeech in order.
	IsSpeechCalls []IsSpeechCall

	next int
}

// IsSpeech records the call and returns the next scripted verdict.
func (d *Detector) IsSpeech(frame []byte) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(frame))
	copy(cp, frame)
	d.IsSpeechCalls = append(d.IsSpeechCalls, IsSpeechCall{Frame: cp})

	if d.Err != nil {
		return false, d.Err
	}
	if len(d.Verdicts) == 0 {
		return d.Result, nil
	}
	i := d.next
	if i >= len(d.Verdicts) {
		i = len(d.Verdicts) - 1
	} else {
		d.next++
	}
	return d.Verdicts[i], nil
}

// CallCount returns the number of IsSpeech calls. Thread-safe.
func (d *Detector) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.IsSpeechCalls)
}

// ResetCalls clears all recorded call history and scripted-verdict progress.
// Thread-safe.
func (d *Detector) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.IsSpeechCalls = nil
	d.next = 0
}

// Ensure Detector implements vad.Detector at compile time.
var _ vad.Detector = (*Detector)(nil)
