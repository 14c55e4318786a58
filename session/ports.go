package session

import (
	"context"

	"whisperflow/audio"
)

// AudioCapture owns the microphone for the duration of one recording.
type AudioCapture interface {
	Start(ctx context.Context) (audio.Handle, error)
	Stop(h audio.Handle) (*audio.Buffer, error)
}

// Request carries the per-session parameters for a network hop.
type Request struct {
	SessionID   uint64
	RequestID   string
	Mode        Mode
	Model       string
	Language    string
	Temperature float64
}

type Transcriber interface {
	Transcribe(ctx context.Context, buf *audio.Buffer, req Request) (string, error)
}

type Completer interface {
	Complete(ctx context.Context, prompt string, req Request) (string, error)
}

// Ack reports how a delivered text reached the user.
type Ack struct {
	Pasted bool
}

type Sink interface {
	Deliver(ctx context.Context, text string) (Ack, error)
}

type Presenter interface {
	StateChanged(Change)
}

// MenuPresenter is implemented by presenters that can show the bindings
// when the menu chord is pressed.
type MenuPresenter interface {
	ShowMenu(profiles []Profile)
}

// PromptSource selects and renders the prompt template for a profile.
type PromptSource interface {
	Template(p Profile) string
	Render(template, text string) string
}
