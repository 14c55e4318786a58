package session

import (
	"fmt"
	"strings"
	"time"
)

type Mode int

const (
	ModeNone Mode = iota
	ModeTranscribe
	ModeAutoTranscribe
	ModeCommand
)

// Modes lists every configurable mode in display order.
var Modes = []Mode{ModeTranscribe, ModeAutoTranscribe, ModeCommand}

func (m Mode) String() string {
	switch m {
	case ModeTranscribe:
		return "transcribe"
	case ModeAutoTranscribe:
		return "auto_transcribe"
	case ModeCommand:
		return "command"
	}
	return "none"
}

// Label is the human readable name used in menus and notifications.
func (m Mode) Label() string {
	switch m {
	case ModeTranscribe:
		return "Transcribe"
	case ModeAutoTranscribe:
		return "Auto-Transcribe"
	case ModeCommand:
		return "Command"
	}
	return "None"
}

// Priority breaks ties between bindings of equal length.
func (m Mode) Priority() int {
	switch m {
	case ModeAutoTranscribe:
		return 3
	case ModeCommand:
		return 2
	case ModeTranscribe:
		return 1
	}
	return 0
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "transcribe":
		return ModeTranscribe, nil
	case "auto_transcribe", "auto-transcribe", "autotranscribe":
		return ModeAutoTranscribe, nil
	case "command":
		return ModeCommand, nil
	}
	return ModeNone, fmt.Errorf("unknown mode %q", s)
}

// Style is how a binding's key edges start and stop a recording.
type Style int

const (
	StylePushToTalk Style = iota + 1
	StyleToggle
	StyleHybrid
)

func (s Style) String() string {
	switch s {
	case StylePushToTalk:
		return "push_to_talk"
	case StyleToggle:
		return "toggle"
	case StyleHybrid:
		return "hybrid"
	}
	return "unknown"
}

func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "push_to_talk", "push-to-talk", "ptt":
		return StylePushToTalk, nil
	case "toggle", "single_press", "single-press":
		return StyleToggle, nil
	case "hybrid":
		return StyleHybrid, nil
	}
	return 0, fmt.Errorf("unknown activation style %q", s)
}

// Profile is the immutable configuration attached to one Mode.
type Profile struct {
	Mode               Mode
	Chord              Chord
	Style              Style
	Prompt             string
	TranscriptionModel string
	CompletionModel    string
	Temperature        float64
	Language           string
	// AutoStop enables silence-based stopping while recording.
	AutoStop bool
}

type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
	StateCancelling
	StateDelivering
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateCancelling:
		return "cancelling"
	case StateDelivering:
		return "delivering"
	}
	return "unknown"
}

type Edge int

const (
	EdgeDown Edge = iota + 1
	EdgeUp
	EdgeTap
)

func (e Edge) String() string {
	switch e {
	case EdgeDown:
		return "down"
	case EdgeUp:
		return "up"
	case EdgeTap:
		return "tap"
	}
	return "unknown"
}

type HotkeyEvent struct {
	Chord Chord
	Edge  Edge
	At    time.Time
}

type ActionKind int

const (
	NoOp ActionKind = iota
	StartSession
	StopSession
	CancelSession
	ShowMenu
)

func (k ActionKind) String() string {
	switch k {
	case StartSession:
		return "start"
	case StopSession:
		return "stop"
	case CancelSession:
		return "cancel"
	case ShowMenu:
		return "menu"
	}
	return "noop"
}

type Action struct {
	Kind ActionKind
	Mode Mode
}

type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeDelivered
	OutcomeFailed
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "pending"
}

// Change is published on every state transition. Terminal changes carry
// an Outcome other than OutcomePending and are published once per session.
type Change struct {
	SessionID uint64
	State     State
	Mode      Mode
	Outcome   Outcome
	Text      string
	Notice    string
	Err       error
}

func (c Change) Terminal() bool { return c.Outcome != OutcomePending }
