package session

import (
	"sync/atomic"
	"time"

	"whisperflow/audio"
)

// Session is one record, process and deliver attempt. Only the Machine
// loop mutates it; the network goroutines read the immutable fields and
// the fate word.
type Session struct {
	ID        uint64
	RequestID string
	Mode      Mode
	Profile   Profile
	State     State
	StartedAt time.Time

	Transcript string
	Result     string
	Err        error

	handle    audio.Handle
	stopWatch chan struct{}
	fate      atomic.Int32
}

// A session's fate is decided once: either a cancel discards it, or the
// dispatcher claims it for the sink. Whichever swap lands first wins.
const (
	fateOpen int32 = iota
	fateDiscarded
	fateSinking
)

// Discarded reports whether the session was cancelled while its network
// work was in flight.
func (s *Session) Discarded() bool { return s.fate.Load() == fateDiscarded }

// discard marks the session cancelled. It fails once the sink was entered.
func (s *Session) discard() bool {
	return s.fate.CompareAndSwap(fateOpen, fateDiscarded) || s.fate.Load() == fateDiscarded
}

// claimSink reserves the session for delivery. It fails after a cancel.
func (s *Session) claimSink() bool { return s.fate.CompareAndSwap(fateOpen, fateSinking) }

func (s *Session) request(model string) Request {
	return Request{
		SessionID:   s.ID,
		RequestID:   s.RequestID,
		Mode:        s.Mode,
		Model:       model,
		Language:    s.Profile.Language,
		Temperature: s.Profile.Temperature,
	}
}

func (s *Session) endWatch() {
	if s.stopWatch != nil {
		close(s.stopWatch)
		s.stopWatch = nil
	}
}
