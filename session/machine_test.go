package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type harness struct {
	m       *Machine
	capture *fakeCapture
	tr      *fakeTranscriber
	comp    *fakeCompleter
	sink    *fakeSink
	log     *changeLog
}

func newHarness(t *testing.T, profiles []Profile, mutate func(*Config)) *harness {
	t.Helper()
	h := &harness{
		capture: &fakeCapture{},
		tr:      &fakeTranscriber{text: "hello"},
		comp:    &fakeCompleter{text: "done"},
		sink:    &fakeSink{},
		log:     newChangeLog(),
	}
	ctrl := newTestController(t, profiles)
	d := NewDispatcher(DispatcherConfig{Completer: h.comp, Sink: h.sink, Timeout: time.Second})
	d.AddPresenter(h.log)
	cfg := Config{
		Capture:     h.capture,
		Transcriber: h.tr,
		Dispatcher:  d,
		Controller:  ctrl,
		Timeout:     time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewMachine(cfg)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	seq := 0
	m.requestID = func() string {
		seq++
		return fmt.Sprintf("req-%d", seq)
	}
	h.m = m
	return h
}

func (h *harness) key(c Chord, e Edge) {
	h.m.handle(hotkeyInput{ev: HotkeyEvent{Chord: c, Edge: e, At: time.Now()}})
}

// pump handles the next internally generated event (network result,
// capture signal).
func (h *harness) pump(t *testing.T) {
	t.Helper()
	select {
	case e := <-h.m.events:
		h.m.handle(e)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for machine event")
	}
}

func (h *harness) wantState(t *testing.T, want State) {
	t.Helper()
	if got := h.m.State(); got != want {
		t.Fatalf("state = %s, want %s", got, want)
	}
}

func (h *harness) wantTerminal(t *testing.T, want Outcome) Change {
	t.Helper()
	got := h.log.terminal()
	if len(got) != 1 {
		t.Fatalf("got %d terminal changes (%+v), want exactly 1", len(got), got)
	}
	if got[0].Outcome != want {
		t.Fatalf("outcome = %s, want %s (err %v)", got[0].Outcome, want, got[0].Err)
	}
	return got[0]
}

func TestScenarioTranscribeDelivers(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)

	h.key(chordTranscribe, EdgeDown)
	h.wantState(t, StateRecording)
	if h.m.ActiveMode() != ModeTranscribe {
		t.Fatalf("active mode = %s", h.m.ActiveMode())
	}
	h.key(chordTranscribe, EdgeUp)
	h.wantState(t, StateProcessing)
	h.pump(t)
	h.wantState(t, StateDelivering)
	h.pump(t)
	h.wantState(t, StateIdle)

	if got := h.sink.texts(); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("delivered %q, want [hello]", got)
	}
	c := h.wantTerminal(t, OutcomeDelivered)
	if c.Text != "hello" || c.Mode != ModeTranscribe {
		t.Errorf("terminal change = %+v", c)
	}
	want := []State{StateRecording, StateProcessing, StateDelivering, StateIdle}
	got := h.log.states()
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("states = %v, want %v", got, want)
		}
	}
	if len(h.comp.seen()) != 0 {
		t.Error("transcribe mode must not call completion")
	}
}

func TestScenarioCommandCompletionFails(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	h.tr.text = "open browser"
	h.comp.err = errors.New("model overloaded")

	h.key(chordCommand, EdgeDown)
	h.key(chordCommand, EdgeUp)
	h.pump(t)
	h.pump(t)
	h.wantState(t, StateIdle)

	c := h.wantTerminal(t, OutcomeFailed)
	if FailedHop(c.Err) != HopCompletion || !errors.Is(c.Err, ErrCompletion) {
		t.Errorf("err = %v, want completion hop failure", c.Err)
	}
	if p := h.comp.seen(); len(p) != 1 || p[0] != "Execute: open browser" {
		t.Errorf("completion prompts = %q", p)
	}
	if len(h.sink.texts()) != 0 {
		t.Error("nothing must be delivered on failure")
	}
}

func TestScenarioToggleThirdTapIgnored(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	h.tr.gate = make(chan struct{})

	h.key(chordAuto, EdgeTap)
	h.wantState(t, StateRecording)
	h.key(chordAuto, EdgeTap)
	h.wantState(t, StateProcessing)
	h.key(chordAuto, EdgeTap)
	h.wantState(t, StateProcessing)

	close(h.tr.gate)
	h.pump(t)
	h.pump(t)
	h.wantState(t, StateIdle)

	if starts, _ := h.capture.counts(); starts != 1 {
		t.Errorf("capture started %d times, want 1", starts)
	}
	if n := h.tr.callCount(); n != 1 {
		t.Errorf("transcriber called %d times, want 1", n)
	}
	h.wantTerminal(t, OutcomeDelivered)
}

func TestScenarioCancelWhileRecording(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)

	h.key(chordTranscribe, EdgeDown)
	h.key(chordCancel, EdgeTap)
	h.wantState(t, StateIdle)

	if _, stops := h.capture.counts(); stops != 1 {
		t.Errorf("capture stopped %d times, want 1", stops)
	}
	if n := h.tr.callCount(); n != 0 {
		t.Errorf("transcriber called %d times, want 0", n)
	}
	h.wantTerminal(t, OutcomeCancelled)

	// the release that follows must not start or stop anything
	h.key(chordTranscribe, EdgeUp)
	h.wantState(t, StateIdle)
	select {
	case e := <-h.m.events:
		t.Fatalf("unexpected event %#v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestScenarioCancelWhileProcessing(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	h.tr.gate = make(chan struct{})

	h.key(chordTranscribe, EdgeDown)
	h.key(chordTranscribe, EdgeUp)
	h.key(chordCancel, EdgeTap)
	h.wantState(t, StateCancelling)
	h.key(chordCancel, EdgeTap)
	h.wantState(t, StateCancelling)

	close(h.tr.gate)
	h.pump(t)
	h.wantState(t, StateIdle)

	h.wantTerminal(t, OutcomeCancelled)
	if len(h.sink.texts()) != 0 {
		t.Error("cancelled result must not be delivered")
	}
}

func TestCancelWhileProcessingThenFailure(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	h.tr.gate = make(chan struct{})
	h.tr.err = errors.New("502")

	h.key(chordTranscribe, EdgeDown)
	h.key(chordTranscribe, EdgeUp)
	h.key(chordCancel, EdgeTap)
	close(h.tr.gate)
	h.pump(t)

	h.wantState(t, StateIdle)
	h.wantTerminal(t, OutcomeCancelled)
}

func TestCancelWhileDelivering(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	h.comp.gate = make(chan struct{})

	h.key(chordCommand, EdgeDown)
	h.key(chordCommand, EdgeUp)
	h.pump(t)
	h.wantState(t, StateDelivering)
	h.key(chordCancel, EdgeTap)
	h.wantState(t, StateCancelling)

	close(h.comp.gate)
	h.pump(t)
	h.wantState(t, StateIdle)
	h.wantTerminal(t, OutcomeCancelled)
	if len(h.sink.texts()) != 0 {
		t.Error("cancelled command must not be delivered")
	}
}

func TestCancelAfterSinkEnteredIsIgnored(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	h.sink.gate = make(chan struct{})
	h.sink.entered = make(chan struct{})

	h.key(chordTranscribe, EdgeDown)
	h.key(chordTranscribe, EdgeUp)
	h.pump(t)
	h.wantState(t, StateDelivering)
	select {
	case <-h.sink.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for the sink")
	}

	h.key(chordCancel, EdgeTap)
	h.wantState(t, StateDelivering)

	close(h.sink.gate)
	h.pump(t)
	h.wantState(t, StateIdle)
	c := h.wantTerminal(t, OutcomeDelivered)
	if c.Text != "hello" {
		t.Errorf("text = %q, want hello", c.Text)
	}
	if got := h.sink.texts(); len(got) != 1 || got[0] != "hello" {
		t.Errorf("delivered = %q, want [hello]", got)
	}
}

func TestBusyStartRejected(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)

	h.key(chordTranscribe, EdgeDown)
	h.key(chordCommand, EdgeDown)
	h.key(chordAuto, EdgeTap)
	if h.m.ActiveMode() != ModeTranscribe {
		t.Fatalf("active mode = %s, want transcribe", h.m.ActiveMode())
	}
	if err := h.m.apply(Action{Kind: StartSession, Mode: ModeCommand}); !errors.Is(err, ErrBusy) {
		t.Fatalf("programmatic start err = %v, want ErrBusy", err)
	}
	if starts, _ := h.capture.counts(); starts != 1 {
		t.Errorf("capture started %d times, want 1", starts)
	}

	// the command chord release is not the active session's chord
	h.key(chordCommand, EdgeUp)
	h.wantState(t, StateRecording)
	h.key(MustParseChord("f5"), EdgeTap)
	h.key(chordTranscribe, EdgeUp)
	h.wantState(t, StateProcessing)
}

func TestStopIsIdempotent(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	h.tr.gate = make(chan struct{})

	h.key(chordTranscribe, EdgeDown)
	h.key(chordTranscribe, EdgeUp)
	h.m.apply(Action{Kind: StopSession})
	h.m.apply(Action{Kind: StopSession})
	close(h.tr.gate)
	h.pump(t)
	h.pump(t)

	if n := h.tr.callCount(); n != 1 {
		t.Errorf("transcriber called %d times, want 1", n)
	}
	if _, stops := h.capture.counts(); stops != 1 {
		t.Errorf("capture stopped %d times, want 1", stops)
	}
}

func TestUnmatchedReleaseIgnored(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	h.key(chordTranscribe, EdgeUp)
	h.wantState(t, StateIdle)
	if starts, _ := h.capture.counts(); starts != 0 {
		t.Errorf("capture started %d times, want 0", starts)
	}
	if len(h.log.terminal()) != 0 {
		t.Error("no session, no notification")
	}
}

func TestCaptureStartFailure(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	h.capture.startErr = errors.New("no microphone")

	h.key(chordTranscribe, EdgeDown)
	h.wantState(t, StateIdle)
	c := h.wantTerminal(t, OutcomeFailed)
	if !errors.Is(c.Err, ErrCapture) {
		t.Errorf("err = %v, want ErrCapture", c.Err)
	}

	// the daemon keeps accepting sessions
	h.capture.startErr = nil
	h.key(chordTranscribe, EdgeUp)
	h.key(chordTranscribe, EdgeDown)
	h.wantState(t, StateRecording)
}

func TestCaptureFaultWhileRecording(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)

	h.key(chordTranscribe, EdgeDown)
	h.capture.last.faults <- errors.New("device unplugged")
	h.pump(t)

	h.wantState(t, StateIdle)
	c := h.wantTerminal(t, OutcomeFailed)
	var ce *CaptureError
	if !errors.As(c.Err, &ce) || ce.Op != "record" {
		t.Errorf("err = %v, want record CaptureError", c.Err)
	}
	if n := h.tr.callCount(); n != 0 {
		t.Errorf("transcriber called %d times, want 0", n)
	}
}

func TestCaptureStopFailure(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	h.capture.stopErr = errors.New("stream broken")

	h.key(chordTranscribe, EdgeDown)
	h.key(chordTranscribe, EdgeUp)
	h.wantState(t, StateIdle)
	c := h.wantTerminal(t, OutcomeFailed)
	if !errors.Is(c.Err, ErrCapture) {
		t.Errorf("err = %v, want ErrCapture", c.Err)
	}
}

func TestTranscriptionTimeout(t *testing.T) {
	h := newHarness(t, testProfiles(), func(c *Config) { c.Timeout = 20 * time.Millisecond })
	h.tr.gate = make(chan struct{})

	h.key(chordTranscribe, EdgeDown)
	h.key(chordTranscribe, EdgeUp)
	h.pump(t)

	h.wantState(t, StateIdle)
	c := h.wantTerminal(t, OutcomeFailed)
	if !errors.Is(c.Err, ErrTimeout) || FailedHop(c.Err) != HopTranscription {
		t.Errorf("err = %v, want transcription timeout", c.Err)
	}
}

func TestTranscriptionError(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	h.tr.err = errors.New("401 unauthorized")

	h.key(chordTranscribe, EdgeDown)
	h.key(chordTranscribe, EdgeUp)
	h.pump(t)

	c := h.wantTerminal(t, OutcomeFailed)
	if !errors.Is(c.Err, ErrTranscription) || errors.Is(c.Err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTranscription", c.Err)
	}
}

func TestQuietAutoStop(t *testing.T) {
	profiles := testProfiles()
	profiles[1].AutoStop = true
	h := newHarness(t, profiles, nil)

	h.key(chordAuto, EdgeTap)
	close(h.capture.last.quiet)
	h.pump(t)
	h.wantState(t, StateProcessing)
}

func TestQuietIgnoredWithoutAutoStop(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)

	h.key(chordTranscribe, EdgeDown)
	close(h.capture.last.quiet)
	select {
	case e := <-h.m.events:
		t.Fatalf("unexpected event %#v", e)
	case <-time.After(30 * time.Millisecond):
	}
	h.wantState(t, StateRecording)
}

func TestMaxRecordingAutoStop(t *testing.T) {
	h := newHarness(t, testProfiles(), func(c *Config) { c.MaxRecording = 10 * time.Millisecond })

	h.key(chordTranscribe, EdgeDown)
	h.pump(t)
	h.wantState(t, StateProcessing)
}

func TestStaleAutoStopIgnored(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	h.key(chordTranscribe, EdgeDown)
	h.m.handle(autoStop{id: 99, reason: "max duration"})
	h.wantState(t, StateRecording)
}

func TestMenuChord(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	h.key(chordMenu, EdgeTap)
	if h.log.menus != 1 {
		t.Errorf("menus = %d, want 1", h.log.menus)
	}
	h.wantState(t, StateIdle)
}

func TestSessionIDsIncrease(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	for i := 0; i < 3; i++ {
		h.key(chordTranscribe, EdgeDown)
		h.key(chordCancel, EdgeTap)
		h.key(chordTranscribe, EdgeUp)
	}
	got := h.log.terminal()
	if len(got) != 3 {
		t.Fatalf("terminal changes = %d, want 3", len(got))
	}
	for i, c := range got {
		if c.SessionID != uint64(i+1) || c.Outcome != OutcomeCancelled {
			t.Errorf("change %d = %+v", i, c)
		}
	}
}

func TestRunEndToEnd(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.m.Run(ctx) }()

	submit := func(c Chord, e Edge) {
		if err := h.m.Submit(ctx, HotkeyEvent{Chord: c, Edge: e, At: time.Now()}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	submit(chordTranscribe, EdgeDown)
	submit(chordTranscribe, EdgeUp)

	select {
	case c := <-h.log.done:
		if c.Outcome != OutcomeDelivered || c.Text != "hello" {
			t.Fatalf("terminal = %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for delivery")
	}

	if err := h.m.Start(ctx, ModeCommand); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.m.Start(ctx, ModeTranscribe); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Start err = %v, want ErrBusy", err)
	}
	if err := h.m.Cancel(ctx); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	select {
	case c := <-h.log.done:
		if c.Outcome != OutcomeCancelled {
			t.Fatalf("terminal = %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for cancel")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestShutdownStopsOpenRecording(t *testing.T) {
	h := newHarness(t, testProfiles(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { h.m.Run(ctx); close(done) }()

	if err := h.m.Start(ctx, ModeTranscribe); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
	<-done
	if _, stops := h.capture.counts(); stops != 1 {
		t.Errorf("capture stopped %d times, want 1", stops)
	}
	if h.m.State() != StateIdle {
		t.Errorf("state = %s after shutdown", h.m.State())
	}
}

func TestNewMachineRequiresCollaborators(t *testing.T) {
	if _, err := NewMachine(Config{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}
