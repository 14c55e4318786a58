// Package tray shows session state in the system tray and exposes the
// tray menu actions.
package tray

import (
	"fmt"
	"sync"
	"time"

	"whisperflow/session"
)

const (
	appTitle = "Whisper Flow"

	// ErrorReset is how long a failure stays on the tray before it
	// returns to idle.
	ErrorReset = 10 * time.Second
)

// Actions are invoked from the tray menu.
type Actions struct {
	// Toggle starts a transcription when idle and stops the active one
	// otherwise.
	Toggle   func()
	Settings func()
	Test     func()
	Exit     func()
}

// view is the tray surface the Tray draws on.
type view interface {
	setIcon(k iconKind)
	setTooltip(s string)
	setRecordTitle(s string)
}

type Tray struct {
	profiles []session.Profile
	actions  Actions
	v        view
	reset    time.Duration

	mu    sync.Mutex
	state session.State
	gen   int
}

func newTray(profiles []session.Profile, actions Actions, v view) *Tray {
	return &Tray{profiles: profiles, actions: actions, v: v, reset: ErrorReset}
}

// ModeLabels returns the disabled per-mode menu labels, e.g.
// "Transcribe (ctrl+cmd)".
func ModeLabels(profiles []session.Profile) []string {
	out := make([]string, len(profiles))
	for i, p := range profiles {
		out[i] = fmt.Sprintf("%s (%s)", p.Mode.Label(), p.Chord)
	}
	return out
}

func tooltip(state session.State, mode session.Mode) string {
	switch state {
	case session.StateRecording:
		return fmt.Sprintf("%s – recording (%s)", appTitle, mode.Label())
	case session.StateProcessing, session.StateDelivering:
		return fmt.Sprintf("%s – processing (%s)", appTitle, mode.Label())
	case session.StateCancelling:
		return appTitle + " – cancelling"
	}
	return appTitle + " – idle"
}

func iconFor(state session.State) iconKind {
	switch state {
	case session.StateRecording:
		return iconRecording
	case session.StateIdle:
		return iconIdle
	}
	return iconBusy
}

func (t *Tray) StateChanged(c session.Change) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = c.State
	t.gen++

	if c.State == session.StateRecording {
		t.v.setRecordTitle("Stop Recording")
	} else if c.State == session.StateIdle {
		t.v.setRecordTitle("Start Recording")
	}

	if c.Outcome == session.OutcomeFailed {
		t.v.setIcon(iconError)
		msg := "error"
		if c.Err != nil {
			msg = c.Err.Error()
		}
		t.v.setTooltip(appTitle + " – " + msg)
		gen := t.gen
		time.AfterFunc(t.reset, func() { t.clearError(gen) })
		return
	}
	t.v.setIcon(iconFor(c.State))
	t.v.setTooltip(tooltip(c.State, c.Mode))
}

// clearError resets the tray unless another change arrived since.
func (t *Tray) clearError(gen int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return
	}
	t.v.setIcon(iconFor(t.state))
	t.v.setTooltip(tooltip(t.state, session.ModeNone))
}

func (t *Tray) dispatch(fn func()) {
	if fn != nil {
		go fn()
	}
}
