package hotkey

import (
	"errors"

	"whisperflow/session"
)

// Binding is one chord the listener watches. Reserved chords (cancel,
// menu) and toggle bindings are reported as taps; the rest as down/up.
type Binding struct {
	Chord    session.Chord
	Style    session.Style
	Priority int
	Reserved bool
}

func (b Binding) taps() bool {
	return b.Reserved || b.Style == session.StyleToggle
}

// Bindings derives the listener bindings from the mode profiles and the
// reserved chords.
func Bindings(profiles []session.Profile, reserved ...session.Chord) []Binding {
	var out []Binding
	for _, p := range profiles {
		out = append(out, Binding{Chord: p.Chord, Style: p.Style, Priority: p.Mode.Priority()})
	}
	for _, c := range reserved {
		if c != "" {
			out = append(out, Binding{Chord: c, Reserved: true})
		}
	}
	return out
}

var ErrUnsupportedChord = errors.New("chord not supported by this hotkey backend")

type Listener interface {
	Register(bindings []Binding) error
	Unregister()
	Events() <-chan session.HotkeyEvent
}
