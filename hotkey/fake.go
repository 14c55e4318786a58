package hotkey

import (
	"sync"
	"time"

	"whisperflow/session"
)

// FakeListener emits whatever the test or the stdin driver simulates.
type FakeListener struct {
	events chan session.HotkeyEvent

	mu       sync.Mutex
	bindings []Binding
}

func NewFake() *FakeListener {
	return &FakeListener{events: make(chan session.HotkeyEvent, 16)}
}

func (f *FakeListener) Register(bindings []Binding) error {
	f.mu.Lock()
	f.bindings = append([]Binding(nil), bindings...)
	f.mu.Unlock()
	return nil
}

func (f *FakeListener) Unregister()                        {}
func (f *FakeListener) Events() <-chan session.HotkeyEvent { return f.events }

func (f *FakeListener) Bindings() []Binding {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Binding(nil), f.bindings...)
}

func (f *FakeListener) Sim(c session.Chord, e session.Edge) {
	f.events <- session.HotkeyEvent{Chord: c, Edge: e, At: time.Now()}
}
