package audio

import (
	"encoding/binary"
	"time"
)

// Buffer is a finished recording: 16-bit little-endian PCM.
type Buffer struct {
	PCM        []byte
	SampleRate uint32
	Channels   uint32
}

func (b *Buffer) Frames() int {
	if b == nil || b.Channels == 0 {
		return 0
	}
	return len(b.PCM) / (BytesPerSample * int(b.Channels))
}

func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

func (b *Buffer) Samples() []int16 {
	if b == nil {
		return nil
	}
	out := make([]int16, len(b.PCM)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b.PCM[i*2:]))
	}
	return out
}

// Handle identifies one in-progress recording.
type Handle interface {
	// Faults delivers an error if the device fails mid-recording.
	Faults() <-chan error
	// Quiet is closed once speech was heard and then silence lasted
	// for the configured auto-stop duration.
	Quiet() <-chan struct{}
}
