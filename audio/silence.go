package audio

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	DefaultSpeechLevel = 0.02
	// speech must persist this long before silence can end a recording
	minSpeech = 200 * time.Millisecond
)

// Level returns the RMS of a chunk of 16-bit PCM normalized to 0..1.
func Level(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// quietDetector reports when a recording that contained speech has been
// silent for longer than after.
type quietDetector struct {
	threshold float64
	after     time.Duration

	speech  time.Duration
	silence time.Duration
	fired   bool
}

func newQuietDetector(threshold float64, after time.Duration) *quietDetector {
	if threshold <= 0 {
		threshold = DefaultSpeechLevel
	}
	return &quietDetector{threshold: threshold, after: after}
}

// Feed accounts for a chunk of dur at the given level and returns true
// exactly once, when the quiet condition is first met.
func (d *quietDetector) Feed(level float64, dur time.Duration) bool {
	if d.fired || d.after <= 0 {
		return false
	}
	if level >= d.threshold {
		d.speech += dur
		d.silence = 0
		return false
	}
	if d.speech < minSpeech {
		return false
	}
	d.silence += dur
	if d.silence >= d.after {
		d.fired = true
		return true
	}
	return false
}
