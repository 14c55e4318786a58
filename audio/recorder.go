package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrDeviceBusy = errors.New("capture device already recording")

type RecorderConfig struct {
	// Device is a device name; empty selects the system default.
	Device string
	// QuietAfter is the silence that closes Handle.Quiet once speech was heard.
	QuietAfter  time.Duration
	SpeechLevel float64
	// StallAfter reports a fault when the device delivers no data for this long.
	StallAfter time.Duration
}

// Recorder acquires the microphone for one recording at a time.
type Recorder struct {
	ctx Context
	cfg RecorderConfig

	mu     sync.Mutex
	active *recording
}

func NewRecorder(ctx Context, cfg RecorderConfig) *Recorder {
	if cfg.StallAfter <= 0 {
		cfg.StallAfter = 3 * time.Second
	}
	return &Recorder{ctx: ctx, cfg: cfg}
}

type recording struct {
	dev      CaptureDevice
	faults   chan error
	quiet    chan struct{}
	detector *quietDetector
	done     chan struct{}

	mu       sync.Mutex
	pcm      bytes.Buffer
	lastData time.Time
}

func (r *recording) Faults() <-chan error  { return r.faults }
func (r *recording) Quiet() <-chan struct{} { return r.quiet }

func (r *recording) onData(data []byte, frameCount uint32) {
	dur := time.Duration(frameCount) * time.Second / SampleRate
	level := Level(data)

	r.mu.Lock()
	r.pcm.Write(data)
	r.lastData = time.Now()
	fire := r.detector.Feed(level, dur)
	r.mu.Unlock()

	if fire {
		close(r.quiet)
	}
}

func (r *recording) watchStall(after time.Duration) {
	t := time.NewTicker(after / 4)
	defer t.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-t.C:
			r.mu.Lock()
			idle := time.Since(r.lastData)
			r.mu.Unlock()
			if idle >= after {
				r.faults <- fmt.Errorf("no audio from device for %s", idle.Round(time.Millisecond))
				return
			}
		}
	}
}

func (r *Recorder) Start(_ context.Context) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return nil, ErrDeviceBusy
	}

	dev, err := FindDevice(r.ctx, r.cfg.Device)
	if err != nil {
		return nil, err
	}
	capture, err := r.ctx.NewCapture(dev, CaptureConfig{SampleRate: SampleRate, Channels: Channels})
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}

	rec := &recording{
		dev:      capture,
		faults:   make(chan error, 1),
		quiet:    make(chan struct{}),
		detector: newQuietDetector(r.cfg.SpeechLevel, r.cfg.QuietAfter),
		done:     make(chan struct{}),
		lastData: time.Now(),
	}
	capture.SetCallback(rec.onData)
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return nil, fmt.Errorf("start capture: %w", err)
	}
	go rec.watchStall(r.cfg.StallAfter)
	r.active = rec
	return rec, nil
}

// Stop releases the device and returns everything captured so far.
func (r *Recorder) Stop(h Handle) (*Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := h.(*recording)
	if !ok || rec == nil || rec != r.active {
		return nil, errors.New("stop: unknown recording")
	}
	r.active = nil
	close(rec.done)
	rec.dev.ClearCallback()
	rec.dev.Stop()
	rec.dev.Close()

	rec.mu.Lock()
	pcm := append([]byte(nil), rec.pcm.Bytes()...)
	rec.mu.Unlock()
	return &Buffer{PCM: pcm, SampleRate: SampleRate, Channels: Channels}, nil
}

func (r *Recorder) Close() {
	r.mu.Lock()
	rec := r.active
	r.mu.Unlock()
	if rec != nil {
		r.Stop(rec)
	}
	r.ctx.Close()
}
