package transcriber

import (
	"context"
	"time"

	"whisperflow/audio"
	"whisperflow/session"
)

// Fake returns a canned transcript after an optional delay. Used by the
// daemon when running against fake audio.
type Fake struct {
	Text  string
	Err   error
	Delay time.Duration
}

func NewFake(text string, err error) *Fake {
	return &Fake{Text: text, Err: err}
}

func (f *Fake) Transcribe(ctx context.Context, _ *audio.Buffer, _ session.Request) (string, error) {
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}
