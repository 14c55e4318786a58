//go:build !linux

package notify

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// malgoPlayer keeps one playback device open and swaps the waveform it
// reads from.
type malgoPlayer struct {
	once sync.Once
	ctx  *malgo.AllocatedContext
	dev  *malgo.Device

	mu      sync.Mutex
	samples atomic.Pointer[[]byte]
	pos     atomic.Uint32
}

var speaker = &malgoPlayer{}

// Speaker plays cues on the default output device.
func Speaker() Player { return speaker }

func (m *malgoPlayer) init() {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}
	m.ctx = ctx
	if err := m.openDevice(); err != nil {
		ctx.Uninit()
		m.ctx = nil
	}
}

func (m *malgoPlayer) openDevice() error {
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = cueRate
	dev, err := malgo.InitDevice(m.ctx.Context, cfg, malgo.DeviceCallbacks{Data: m.fill})
	if err != nil {
		return err
	}
	m.dev = dev
	return nil
}

func (m *malgoPlayer) fill(out, _ []byte, frames uint32) {
	clear(out)
	p := m.samples.Load()
	if p == nil {
		return
	}
	buf := *p
	pos := m.pos.Load()
	if int(pos) >= len(buf) {
		m.samples.Store(nil)
		return
	}
	n := copy(out[:min(int(frames)*2, len(out))], buf[pos:])
	m.pos.Store(pos + uint32(n))
}

func (m *malgoPlayer) Play(c Cue) { go m.play(c) }

func (m *malgoPlayer) play(c Cue) {
	m.once.Do(m.init)
	if m.ctx == nil {
		return
	}
	samples := cueSamples(c, 0.05)
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev == nil {
		return
	}
	m.dev.Stop()
	m.pos.Store(0)
	m.samples.Store(&pcm)
	if err := m.dev.Start(); err != nil {
		// The device goes stale across sleep/wake; reopen once.
		m.dev.Uninit()
		m.dev = nil
		if err := m.openDevice(); err != nil {
			m.samples.Store(nil)
			return
		}
		if err := m.dev.Start(); err != nil {
			m.samples.Store(nil)
		}
	}
}
