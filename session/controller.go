package session

import (
	"fmt"
	"time"
)

// DefaultLongPress separates a tap from a hold for StyleHybrid bindings.
const DefaultLongPress = 400 * time.Millisecond

// Controller maps hotkey events to session actions. It keeps the small
// amount of edge history the activation styles need (which chords are
// held, which hybrid chord latched a session on) and nothing else; the
// session state itself is passed in by the caller on every event.
type Controller struct {
	profiles  map[Chord]Profile
	byMode    map[Mode]Profile
	cancel    Chord
	menu      Chord
	longPress time.Duration

	held    map[Chord]time.Time
	latched Chord
}

func NewController(profiles []Profile, cancel, menu Chord) (*Controller, error) {
	c := &Controller{
		profiles:  make(map[Chord]Profile, len(profiles)),
		byMode:    make(map[Mode]Profile, len(profiles)),
		cancel:    cancel,
		menu:      menu,
		longPress: DefaultLongPress,
		held:      make(map[Chord]time.Time),
	}
	if cancel == "" {
		return nil, &ConfigError{Field: "hotkeys.cancel", Reason: "cancel chord is required"}
	}
	if menu != "" && menu == cancel {
		return nil, &ConfigError{Field: "hotkeys.menu", Reason: "menu chord equals the cancel chord"}
	}
	for _, p := range profiles {
		field := "modes." + p.Mode.String()
		switch {
		case p.Mode == ModeNone:
			return nil, &ConfigError{Field: field, Reason: "mode is not set"}
		case p.Chord == "":
			return nil, &ConfigError{Field: field + ".hotkey", Reason: "chord is required"}
		case p.Chord == cancel || p.Chord == menu:
			return nil, &ConfigError{Field: field + ".hotkey", Reason: fmt.Sprintf("%q is reserved", p.Chord)}
		case p.Style < StylePushToTalk || p.Style > StyleHybrid:
			return nil, &ConfigError{Field: field + ".style", Reason: "unknown activation style"}
		}
		if other, ok := c.profiles[p.Chord]; ok {
			return nil, &ConfigError{Field: field + ".hotkey", Reason: fmt.Sprintf("%q already bound to %s", p.Chord, other.Mode)}
		}
		if _, ok := c.byMode[p.Mode]; ok {
			return nil, &ConfigError{Field: field, Reason: "mode configured twice"}
		}
		c.profiles[p.Chord] = p
		c.byMode[p.Mode] = p
	}
	return c, nil
}

func (c *Controller) SetLongPress(d time.Duration) {
	if d > 0 {
		c.longPress = d
	}
}

func (c *Controller) Profile(m Mode) (Profile, bool) {
	p, ok := c.byMode[m]
	return p, ok
}

// Profiles returns the configured profiles in Modes order.
func (c *Controller) Profiles() []Profile {
	var out []Profile
	for _, m := range Modes {
		if p, ok := c.byMode[m]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (c *Controller) CancelChord() Chord { return c.cancel }
func (c *Controller) MenuChord() Chord   { return c.menu }

// OnHotkeyEvent decides what ev means given the current state and the
// mode of the active session (ModeNone when idle).
func (c *Controller) OnHotkeyEvent(ev HotkeyEvent, st State, active Mode) Action {
	if ev.Chord == c.cancel {
		if ev.Edge == EdgeUp || st == StateIdle {
			return Action{Kind: NoOp}
		}
		return Action{Kind: CancelSession}
	}
	if c.menu != "" && ev.Chord == c.menu {
		if ev.Edge == EdgeUp {
			return Action{Kind: NoOp}
		}
		return Action{Kind: ShowMenu}
	}

	p, ok := c.profiles[ev.Chord]
	if !ok {
		return Action{Kind: NoOp}
	}
	switch p.Style {
	case StylePushToTalk:
		return c.pushToTalk(p, ev, st, active)
	case StyleToggle:
		return c.toggle(p, ev, st, active)
	case StyleHybrid:
		return c.hybrid(p, ev, st, active)
	}
	return Action{Kind: NoOp}
}

func (c *Controller) pushToTalk(p Profile, ev HotkeyEvent, st State, active Mode) Action {
	switch ev.Edge {
	case EdgeDown:
		c.held[p.Chord] = ev.At
		if st == StateIdle {
			return Action{Kind: StartSession, Mode: p.Mode}
		}
	case EdgeUp:
		if _, ok := c.held[p.Chord]; !ok {
			return Action{Kind: NoOp}
		}
		delete(c.held, p.Chord)
		if st == StateRecording && active == p.Mode {
			return Action{Kind: StopSession}
		}
	}
	return Action{Kind: NoOp}
}

func (c *Controller) toggle(p Profile, ev HotkeyEvent, st State, active Mode) Action {
	if ev.Edge != EdgeTap {
		return Action{Kind: NoOp}
	}
	switch {
	case st == StateIdle:
		return Action{Kind: StartSession, Mode: p.Mode}
	case st == StateRecording && active == p.Mode:
		return Action{Kind: StopSession}
	}
	return Action{Kind: NoOp}
}

// hybrid starts on press. A release after longPress stops (hold to talk);
// an earlier release leaves the recording on until the next press of the
// same chord is released.
func (c *Controller) hybrid(p Profile, ev HotkeyEvent, st State, active Mode) Action {
	switch ev.Edge {
	case EdgeDown, EdgeTap:
		c.held[p.Chord] = ev.At
		if st == StateIdle {
			c.latched = ""
			if ev.Edge == EdgeTap {
				delete(c.held, p.Chord)
				c.latched = p.Chord
			}
			return Action{Kind: StartSession, Mode: p.Mode}
		}
		if ev.Edge == EdgeTap && st == StateRecording && active == p.Mode && c.latched == p.Chord {
			delete(c.held, p.Chord)
			c.latched = ""
			return Action{Kind: StopSession}
		}
	case EdgeUp:
		downAt, ok := c.held[p.Chord]
		if !ok {
			return Action{Kind: NoOp}
		}
		delete(c.held, p.Chord)
		if st != StateRecording || active != p.Mode {
			c.latched = ""
			return Action{Kind: NoOp}
		}
		if c.latched == p.Chord || ev.At.Sub(downAt) >= c.longPress {
			c.latched = ""
			return Action{Kind: StopSession}
		}
		c.latched = p.Chord
	}
	return Action{Kind: NoOp}
}
