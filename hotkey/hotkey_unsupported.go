//go:build !linux && !darwin && !windows

package hotkey

import (
	"errors"

	"whisperflow/session"
)

var errNoBackend = errors.New("global hotkeys are not supported on this platform")

type noListener struct{ events chan session.HotkeyEvent }

func New() Listener { return &noListener{events: make(chan session.HotkeyEvent)} }

func (l *noListener) Register([]Binding) error { return errNoBackend }

func (l *noListener) Unregister() {}

func (l *noListener) Events() <-chan session.HotkeyEvent { return l.events }

func Supported(session.Chord) error { return errNoBackend }

func Diagnose() (string, error) { return "", errNoBackend }
