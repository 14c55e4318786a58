package audio

import (
	"context"
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func tone(d time.Duration, amp float64) []byte {
	n := int(d.Seconds() * SampleRate)
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := amp * math.Sin(2*math.Pi*440*float64(i)/SampleRate)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*32767)))
	}
	return pcm
}

func TestLevel(t *testing.T) {
	tests := []struct {
		name string
		pcm  []byte
		min  float64
		max  float64
	}{
		{"empty", nil, 0, 0},
		{"silence", make([]byte, 2048), 0, 0},
		{"loud tone", tone(100*time.Millisecond, 0.5), 0.3, 0.4},
		{"quiet tone", tone(100*time.Millisecond, 0.01), 0.005, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Level(tt.pcm)
			if got < tt.min || got > tt.max {
				t.Errorf("Level = %f, want [%f, %f]", got, tt.min, tt.max)
			}
		})
	}
}

func TestQuietDetectorNeedsSpeechFirst(t *testing.T) {
	d := newQuietDetector(0.02, time.Second)
	for i := 0; i < 100; i++ {
		if d.Feed(0, 100*time.Millisecond) {
			t.Fatal("fired without any speech")
		}
	}
}

func TestQuietDetectorFiresOnce(t *testing.T) {
	d := newQuietDetector(0.02, time.Second)
	for i := 0; i < 5; i++ {
		d.Feed(0.2, 100*time.Millisecond)
	}
	fired := 0
	for i := 0; i < 30; i++ {
		if d.Feed(0, 100*time.Millisecond) {
			fired++
			if i != 9 {
				t.Errorf("fired after %d silent chunks, want 10", i+1)
			}
		}
	}
	if fired != 1 {
		t.Errorf("fired %d times, want 1", fired)
	}
}

func TestQuietDetectorSpeechResetsSilence(t *testing.T) {
	d := newQuietDetector(0.02, time.Second)
	d.Feed(0.2, 500*time.Millisecond)
	d.Feed(0, 900*time.Millisecond)
	d.Feed(0.2, 100*time.Millisecond)
	if d.Feed(0, 900*time.Millisecond) {
		t.Fatal("fired although speech interrupted the silence")
	}
	if !d.Feed(0, 100*time.Millisecond) {
		t.Fatal("expected fire after a full second of silence")
	}
}

func TestQuietDetectorDisabled(t *testing.T) {
	d := newQuietDetector(0.02, 0)
	d.Feed(0.5, time.Second)
	if d.Feed(0, time.Hour) {
		t.Fatal("disabled detector fired")
	}
}

func TestBufferDuration(t *testing.T) {
	b := &Buffer{PCM: make([]byte, SampleRate*2), SampleRate: SampleRate, Channels: 1}
	if got := b.Duration(); got != time.Second {
		t.Errorf("Duration = %v, want 1s", got)
	}
	if got := len(b.Samples()); got != SampleRate {
		t.Errorf("len(Samples) = %d, want %d", got, SampleRate)
	}
	var nilBuf *Buffer
	if nilBuf.Duration() != 0 || nilBuf.Frames() != 0 {
		t.Error("nil buffer should be empty")
	}
}

func TestRecorderCapturesAndReleases(t *testing.T) {
	clip := tone(300*time.Millisecond, 0.3)
	r := NewRecorder(NewFakeContext(clip, false), RecorderConfig{})

	h, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := r.Start(context.Background()); err != ErrDeviceBusy {
		t.Fatalf("second Start err = %v, want ErrDeviceBusy", err)
	}
	time.Sleep(50 * time.Millisecond)

	buf, err := r.Stop(h)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(buf.PCM) < len(clip) {
		t.Errorf("captured %d bytes, want at least %d", len(buf.PCM), len(clip))
	}
	if _, err := r.Stop(h); err == nil {
		t.Error("stopping twice should fail")
	}

	h2, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start after Stop: %v", err)
	}
	r.Stop(h2)
}

func TestRecorderQuiet(t *testing.T) {
	clip := tone(300*time.Millisecond, 0.3)
	r := NewRecorder(NewFakeContext(clip, false), RecorderConfig{QuietAfter: 200 * time.Millisecond})

	h, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop(h)

	select {
	case <-h.Quiet():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for quiet")
	}
}

func TestRecorderUnknownDevice(t *testing.T) {
	r := NewRecorder(NewFakeContext(nil, false), RecorderConfig{Device: "nope"})
	if _, err := r.Start(context.Background()); err == nil {
		t.Fatal("expected error for unknown device")
	}
}

func TestIsBluetooth(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"Built-in Microphone", false},
		{"Jabra Evolve2", true},
		{"alsa_input.pci-0000_00_1f.3.analog-stereo", false},
	}
	for _, tt := range tests {
		if got := IsBluetooth(tt.name); got != tt.want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
