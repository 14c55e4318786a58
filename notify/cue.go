package notify

import (
	"math"

	"whisperflow/session"
)

const (
	cueRate = 44100

	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

type Cue int

const (
	CueStart Cue = iota
	CueEnd
	CueError
)

// Player renders a cue on the default output device.
type Player interface {
	Play(c Cue)
}

// Cues plays a short tick when recording starts and stops, and a double
// beep when a session fails.
type Cues struct {
	p Player
}

func NewCues(p Player) *Cues { return &Cues{p: p} }

func (c *Cues) StateChanged(ch session.Change) {
	switch {
	case ch.Outcome == session.OutcomeFailed:
		c.p.Play(CueError)
	case ch.Terminal():
	case ch.State == session.StateRecording:
		c.p.Play(CueStart)
	case ch.State == session.StateProcessing:
		c.p.Play(CueEnd)
	}
}

// tick is a decaying sine, mono 16-bit.
func tick(freq, seconds, volume, decay float64) []int16 {
	n := int(cueRate * seconds)
	out := make([]int16, n)
	for i := range out {
		t := float64(i) / cueRate
		out[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * math.Exp(-t*decay))
	}
	return out
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tick(freq, beepDur, volume, decay)
	out := make([]int16, 0, 2*len(b)+int(cueRate*gapDur))
	out = append(out, b...)
	out = append(out, make([]int16, int(cueRate*gapDur))...)
	return append(out, b...)
}

// cueSamples returns the waveform for c; tail pads short cues so the
// output buffer fills before the stream drains.
func cueSamples(c Cue, tail float64) []int16 {
	switch c {
	case CueStart:
		return tick(startFreq, tail, startVolume, startDecay)
	case CueEnd:
		return tick(endFreq, tail, endVolume, endDecay)
	default:
		return doubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
	}
}

// Silent discards cues.
type Silent struct{}

func (Silent) Play(Cue) {}
