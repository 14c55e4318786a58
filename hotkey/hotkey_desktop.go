//go:build darwin || windows

package hotkey

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.design/x/hotkey"

	"whisperflow/session"
)

var desktopKeys = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "enter": hotkey.KeyReturn, "esc": hotkey.KeyEscape,
	"tab": hotkey.KeyTab, "delete": hotkey.KeyDelete,
	"up": hotkey.KeyUp, "down": hotkey.KeyDown, "left": hotkey.KeyLeft, "right": hotkey.KeyRight,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD, "e": hotkey.KeyE,
	"f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH, "i": hotkey.KeyI, "j": hotkey.KeyJ,
	"k": hotkey.KeyK, "l": hotkey.KeyL, "m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO,
	"p": hotkey.KeyP, "q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX, "y": hotkey.KeyY,
	"z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3, "4": hotkey.Key4,
	"5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7, "8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

// desktopListener registers one OS-level hotkey per binding. The OS only
// accepts a single non-modifier key per registration.
type desktopListener struct {
	events chan session.HotkeyEvent
	stop   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	hks []*hotkey.Hotkey
}

func New() Listener {
	return &desktopListener{
		events: make(chan session.HotkeyEvent, 32),
		stop:   make(chan struct{}),
	}
}

func translate(c session.Chord) ([]hotkey.Modifier, hotkey.Key, error) {
	keys := c.Key()
	if len(keys) != 1 {
		return nil, 0, fmt.Errorf("%w: %q needs exactly one non-modifier key", ErrUnsupportedChord, c)
	}
	key, ok := desktopKeys[keys[0]]
	if !ok {
		return nil, 0, fmt.Errorf("%w: key %q", ErrUnsupportedChord, keys[0])
	}
	var mods []hotkey.Modifier
	for _, name := range c.Modifiers() {
		mod, ok := modifierFor(name)
		if !ok {
			return nil, 0, fmt.Errorf("%w: modifier %q", ErrUnsupportedChord, name)
		}
		mods = append(mods, mod)
	}
	return mods, key, nil
}

func Supported(c session.Chord) error {
	_, _, err := translate(c)
	return err
}

// Register installs every binding it can and reports the rest.
func (l *desktopListener) Register(bindings []Binding) error {
	var errs []error
	for _, b := range bindings {
		mods, key, err := translate(b.Chord)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		hk := hotkey.New(mods, key)
		if err := hk.Register(); err != nil {
			errs = append(errs, fmt.Errorf("register %s: %w", b.Chord, err))
			continue
		}
		l.mu.Lock()
		l.hks = append(l.hks, hk)
		l.mu.Unlock()
		go l.forward(hk, b)
	}
	return errors.Join(errs...)
}

func (l *desktopListener) forward(hk *hotkey.Hotkey, b Binding) {
	down := session.EdgeDown
	if b.taps() {
		down = session.EdgeTap
	}
	for {
		var edge session.Edge
		select {
		case <-l.stop:
			return
		case <-hk.Keydown():
			edge = down
		case <-hk.Keyup():
			if b.taps() {
				continue
			}
			edge = session.EdgeUp
		}
		select {
		case l.events <- session.HotkeyEvent{Chord: b.Chord, Edge: edge, At: time.Now()}:
		case <-l.stop:
			return
		}
	}
}

func (l *desktopListener) Unregister() {
	l.once.Do(func() {
		close(l.stop)
		l.mu.Lock()
		defer l.mu.Unlock()
		for _, hk := range l.hks {
			hk.Unregister()
		}
	})
}

func (l *desktopListener) Events() <-chan session.HotkeyEvent { return l.events }

func Diagnose() (string, error) {
	return "OS hotkey registration available", nil
}
