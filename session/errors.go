package session

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrCapture       = errors.New("audio capture failed")
	ErrTimeout       = errors.New("request timed out")
	ErrTranscription = errors.New("transcription failed")
	ErrCompletion    = errors.New("completion failed")
	ErrDelivery      = errors.New("delivery failed")
	ErrBusy          = errors.New("a session is already active")
	ErrConfig        = errors.New("invalid configuration")
)

type Hop string

const (
	HopTranscription Hop = "transcription"
	HopCompletion    Hop = "completion"
	HopDelivery      Hop = "delivery"
)

// HopError tags a pipeline failure with the stage that produced it.
// Kind is one of ErrTimeout, ErrTranscription, ErrCompletion or ErrDelivery.
type HopError struct {
	Hop  Hop
	Kind error
	Err  error
}

func (e *HopError) Error() string {
	if errors.Is(e.Kind, ErrTimeout) {
		return fmt.Sprintf("%s timed out: %v", e.Hop, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Hop, e.Err)
}

func (e *HopError) Unwrap() []error { return []error{e.Kind, e.Err} }

func hopError(hop Hop, err error) error {
	kind := ErrDelivery
	switch hop {
	case HopTranscription:
		kind = ErrTranscription
	case HopCompletion:
		kind = ErrCompletion
	}
	if errors.Is(err, context.DeadlineExceeded) {
		kind = ErrTimeout
	}
	return &HopError{Hop: hop, Kind: kind, Err: err}
}

// FailedHop reports which hop produced err, or "" when err is not a HopError.
func FailedHop(err error) Hop {
	var he *HopError
	if errors.As(err, &he) {
		return he.Hop
	}
	return ""
}

type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string { return fmt.Sprintf("capture %s: %v", e.Op, e.Err) }

func (e *CaptureError) Unwrap() []error { return []error{ErrCapture, e.Err} }

type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }
