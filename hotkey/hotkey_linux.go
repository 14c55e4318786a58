//go:build linux

package hotkey

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"whisperflow/session"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
	keyRepeat  = 2
)

const inputEventSize = 24

// evdevNames maps Linux input event codes to chord key names.
var evdevNames = map[uint16]string{
	1: "esc", 14: "backspace", 15: "tab", 28: "enter", 57: "space",
	29: "ctrl", 97: "ctrl", 42: "shift", 54: "shift",
	56: "alt", 100: "alt", 125: "cmd", 126: "cmd",
	102: "home", 103: "up", 104: "pageup", 105: "left", 106: "right",
	107: "end", 108: "down", 109: "pagedown", 110: "insert", 111: "delete",
	59: "f1", 60: "f2", 61: "f3", 62: "f4", 63: "f5", 64: "f6",
	65: "f7", 66: "f8", 67: "f9", 68: "f10", 87: "f11", 88: "f12",
	2: "1", 3: "2", 4: "3", 5: "4", 6: "5", 7: "6", 8: "7", 9: "8", 10: "9", 11: "0",
	16: "q", 17: "w", 18: "e", 19: "r", 20: "t", 21: "y", 22: "u", 23: "i", 24: "o", 25: "p",
	30: "a", 31: "s", 32: "d", 33: "f", 34: "g", 35: "h", 36: "j", 37: "k", 38: "l",
	44: "z", 45: "x", 46: "c", 47: "v", 48: "b", 49: "n", 50: "m",
}

type evdevListener struct {
	events chan session.HotkeyEvent
	files  []*os.File
	stop   chan struct{}
	once   sync.Once

	mu      sync.Mutex
	matcher *Matcher
}

func New() Listener {
	return &evdevListener{events: make(chan session.HotkeyEvent, 32)}
}

func (l *evdevListener) Register(bindings []Binding) error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return errors.New("no keyboard devices found (is user in 'input' group?)")
	}

	l.matcher = NewMatcher(bindings, DefaultDebounce)
	l.stop = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		l.files = append(l.files, f)
		go l.readEvents(f)
	}
	if len(l.files) == 0 {
		return errors.New("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}
	return nil
}

func (l *evdevListener) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	for {
		n, err := f.Read(buf)
		if err != nil {
			return
		}
		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))
			if evType != evKey || evValue == keyRepeat {
				continue
			}
			name, ok := evdevNames[evCode]
			if !ok {
				continue
			}

			now := time.Now()
			l.mu.Lock()
			var out []session.HotkeyEvent
			if evValue == keyPress {
				out = l.matcher.Press(name, now)
			} else if evValue == keyRelease {
				out = l.matcher.Release(name, now)
			}
			l.mu.Unlock()

			for _, ev := range out {
				select {
				case l.events <- ev:
				case <-l.stop:
					return
				}
			}
		}
	}
}

func (l *evdevListener) Unregister() {
	l.once.Do(func() {
		if l.stop != nil {
			close(l.stop)
		}
		for _, f := range l.files {
			f.Close()
		}
	})
}

func (l *evdevListener) Events() <-chan session.HotkeyEvent { return l.events }

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}
	var keyboards []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "event") && isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}

// Supported reports whether c can be watched by this backend.
func Supported(c session.Chord) error {
	for _, k := range c.Keys() {
		found := false
		for _, name := range evdevNames {
			if name == k {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: key %q", ErrUnsupportedChord, k)
		}
	}
	return nil
}

func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", errors.New("no keyboard devices found (is user in 'input' group?)")
	}
	for _, path := range keyboards {
		if f, err := os.Open(path); err == nil {
			f.Close()
			return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), path), nil
		}
	}
	return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
}
