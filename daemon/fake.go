package daemon

import (
	"encoding/binary"
	"math"
	"time"

	"whisperflow/audio"
)

// fakeTone is a quiet 440 Hz tone followed by the same length of silence,
// loud enough to count as speech for the silence auto-stop.
func fakeTone(d time.Duration) []byte {
	n := int(d.Seconds() * audio.SampleRate)
	pcm := make([]byte, 2*n*audio.BytesPerSample)
	for i := range n {
		v := 0.2 * math.Sin(2*math.Pi*440*float64(i)/audio.SampleRate)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*32767)))
	}
	return pcm
}
