package hotkey

import (
	"sort"
	"time"

	"whisperflow/session"
)

// DefaultDebounce ignores a key pressed again this soon after its last press.
const DefaultDebounce = 50 * time.Millisecond

// Matcher turns raw key presses and releases into chord events. The most
// specific satisfied binding wins; ties go to the higher priority. A
// down/up binding is released once none of its keys are held anymore.
type Matcher struct {
	bindings []Binding
	debounce time.Duration

	pressed   map[string]bool
	lastPress map[string]time.Time
	active    session.Chord
	held      []Binding
}

func NewMatcher(bindings []Binding, debounce time.Duration) *Matcher {
	sorted := append([]Binding(nil), bindings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := sorted[i].Chord.Len(), sorted[j].Chord.Len()
		if li != lj {
			return li > lj
		}
		return sorted[i].Priority > sorted[j].Priority
	})
	return &Matcher{
		bindings:  sorted,
		debounce:  debounce,
		pressed:   make(map[string]bool),
		lastPress: make(map[string]time.Time),
	}
}

func (m *Matcher) Press(key string, at time.Time) []session.HotkeyEvent {
	if m.pressed[key] {
		return nil
	}
	if last, ok := m.lastPress[key]; ok && at.Sub(last) < m.debounce {
		return nil
	}
	m.lastPress[key] = at
	m.pressed[key] = true

	for _, b := range m.bindings {
		if b.Reserved && b.Chord.Contains(key) && m.satisfied(b.Chord) {
			return []session.HotkeyEvent{{Chord: b.Chord, Edge: session.EdgeTap, At: at}}
		}
	}

	b, ok := m.best()
	if !ok || b.Chord == m.active {
		return nil
	}
	m.active = b.Chord
	if b.taps() {
		return []session.HotkeyEvent{{Chord: b.Chord, Edge: session.EdgeTap, At: at}}
	}
	if m.isHeld(b.Chord) {
		return nil
	}
	m.held = append(m.held, b)
	return []session.HotkeyEvent{{Chord: b.Chord, Edge: session.EdgeDown, At: at}}
}

func (m *Matcher) Release(key string, at time.Time) []session.HotkeyEvent {
	if !m.pressed[key] {
		return nil
	}
	delete(m.pressed, key)

	var out []session.HotkeyEvent
	keep := m.held[:0]
	for _, b := range m.held {
		if m.anyPressed(b.Chord) {
			keep = append(keep, b)
			continue
		}
		out = append(out, session.HotkeyEvent{Chord: b.Chord, Edge: session.EdgeUp, At: at})
	}
	m.held = keep

	if m.active != "" && !m.satisfied(m.active) {
		m.active = ""
	}
	return out
}

// Reset forgets all key state, e.g. after the input device was reopened.
func (m *Matcher) Reset() {
	m.pressed = make(map[string]bool)
	m.active = ""
	m.held = nil
}

func (m *Matcher) best() (Binding, bool) {
	for _, b := range m.bindings {
		if !b.Reserved && m.satisfied(b.Chord) {
			return b, true
		}
	}
	return Binding{}, false
}

func (m *Matcher) satisfied(c session.Chord) bool {
	keys := c.Keys()
	for _, k := range keys {
		if !m.pressed[k] {
			return false
		}
	}
	return len(keys) > 0
}

func (m *Matcher) anyPressed(c session.Chord) bool {
	for _, k := range c.Keys() {
		if m.pressed[k] {
			return true
		}
	}
	return false
}

func (m *Matcher) isHeld(c session.Chord) bool {
	for _, b := range m.held {
		if b.Chord == c {
			return true
		}
	}
	return false
}
