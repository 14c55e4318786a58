package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"whisperflow/audio"
)

const (
	DefaultTimeout   = 60 * time.Second
	DefaultQueueSize = 64
)

type Config struct {
	Capture     AudioCapture
	Transcriber Transcriber
	Dispatcher  *Dispatcher
	Controller  *Controller
	// Timeout bounds the transcription hop.
	Timeout time.Duration
	// MaxRecording auto-stops a recording that runs longer; zero disables it.
	MaxRecording time.Duration
	QueueSize    int
	Logger       *zerolog.Logger
}

// Machine is the single owner of the session slot. Every input (hotkey
// edges, programmatic requests, network results, capture faults) is an
// event on one bounded queue, consumed in order by Run.
type Machine struct {
	capture     AudioCapture
	transcriber Transcriber
	dispatch    *Dispatcher
	ctrl        *Controller
	timeout     time.Duration
	maxRec      time.Duration
	log         zerolog.Logger

	events chan event
	ctx    context.Context
	cur    *Session
	lastID uint64

	state atomic.Int32
	mode  atomic.Int32

	now       func() time.Time
	requestID func() string
}

type event interface{}

type hotkeyInput struct{ ev HotkeyEvent }

type actionInput struct {
	action Action
	reply  chan error
}

type transcribed struct {
	id   uint64
	text string
	err  error
}

type dispatched struct {
	id  uint64
	out DispatchOutcome
}

type captureFault struct {
	id  uint64
	err error
}

type autoStop struct {
	id     uint64
	reason string
}

func NewMachine(cfg Config) (*Machine, error) {
	switch {
	case cfg.Capture == nil:
		return nil, errors.New("session: audio capture is required")
	case cfg.Transcriber == nil:
		return nil, errors.New("session: transcriber is required")
	case cfg.Dispatcher == nil:
		return nil, errors.New("session: dispatcher is required")
	case cfg.Controller == nil:
		return nil, errors.New("session: controller is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return &Machine{
		capture:     cfg.Capture,
		transcriber: cfg.Transcriber,
		dispatch:    cfg.Dispatcher,
		ctrl:        cfg.Controller,
		timeout:     cfg.Timeout,
		maxRec:      cfg.MaxRecording,
		log:         loggerOrNop(cfg.Logger),
		events:      make(chan event, cfg.QueueSize),
		ctx:         context.Background(),
		now:         time.Now,
		requestID:   uuid.NewString,
	}, nil
}

// State is safe to call from any goroutine.
func (m *Machine) State() State { return State(m.state.Load()) }

// ActiveMode is the mode of the current session, ModeNone when idle.
func (m *Machine) ActiveMode() Mode { return Mode(m.mode.Load()) }

func (m *Machine) Profiles() []Profile { return m.ctrl.Profiles() }

// Submit queues a hotkey event, blocking while the queue is full.
func (m *Machine) Submit(ctx context.Context, ev HotkeyEvent) error {
	return m.post(ctx, hotkeyInput{ev: ev})
}

// Start begins a session outside the hotkey path (tray menu). It returns
// ErrBusy when a session is already active.
func (m *Machine) Start(ctx context.Context, mode Mode) error {
	return m.request(ctx, Action{Kind: StartSession, Mode: mode})
}

func (m *Machine) Stop(ctx context.Context) error {
	return m.request(ctx, Action{Kind: StopSession})
}

func (m *Machine) Cancel(ctx context.Context) error {
	return m.request(ctx, Action{Kind: CancelSession})
}

func (m *Machine) request(ctx context.Context, a Action) error {
	reply := make(chan error, 1)
	if err := m.post(ctx, actionInput{action: a, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Machine) post(ctx context.Context, ev event) error {
	select {
	case m.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events until ctx is done. A recording still open at that
// point is stopped and discarded.
func (m *Machine) Run(ctx context.Context) error {
	m.ctx = ctx
	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return nil
		case ev := <-m.events:
			m.handle(ev)
		}
	}
}

func (m *Machine) handle(ev event) {
	switch e := ev.(type) {
	case hotkeyInput:
		a := m.ctrl.OnHotkeyEvent(e.ev, m.State(), m.ActiveMode())
		if a.Kind != NoOp {
			m.log.Debug().
				Str("chord", e.ev.Chord.String()).
				Str("edge", e.ev.Edge.String()).
				Str("action", a.Kind.String()).
				Msg("hotkey")
		}
		if err := m.apply(a); err != nil {
			m.log.Debug().Err(err).Msg("hotkey action refused")
		}
	case actionInput:
		e.reply <- m.apply(e.action)
	case transcribed:
		m.onTranscribed(e)
	case dispatched:
		m.onDispatched(e)
	case captureFault:
		m.onCaptureFault(e)
	case autoStop:
		if s := m.cur; s != nil && s.ID == e.id && s.State == StateRecording {
			m.log.Info().Uint64("session", s.ID).Str("reason", e.reason).Msg("auto stop")
			m.stop()
		}
	}
}

func (m *Machine) apply(a Action) error {
	switch a.Kind {
	case StartSession:
		return m.start(a.Mode)
	case StopSession:
		m.stop()
	case CancelSession:
		m.cancel()
	case ShowMenu:
		m.dispatch.ShowMenu(m.ctrl.Profiles())
	}
	return nil
}

func (m *Machine) start(mode Mode) error {
	if m.cur != nil {
		return ErrBusy
	}
	p, ok := m.ctrl.Profile(mode)
	if !ok {
		return &ConfigError{Field: "modes." + mode.String(), Reason: "mode is not configured"}
	}

	m.lastID++
	s := &Session{
		ID:        m.lastID,
		RequestID: m.requestID(),
		Mode:      mode,
		Profile:   p,
		StartedAt: m.now(),
	}
	m.log.Info().
		Uint64("session", s.ID).
		Str("request_id", s.RequestID).
		Str("mode", mode.String()).
		Msg("session_start")

	h, err := m.capture.Start(m.ctx)
	if err != nil {
		s.Err = &CaptureError{Op: "start", Err: err}
		m.dispatch.Report(s, DispatchOutcome{Outcome: OutcomeFailed, Err: s.Err})
		return nil
	}
	s.handle = h
	s.stopWatch = make(chan struct{})
	m.cur = s
	m.transition(s, StateRecording)
	go m.watch(s.ID, h, p.AutoStop, s.stopWatch)
	return nil
}

// watch turns capture-side signals for one recording into events.
func (m *Machine) watch(id uint64, h audio.Handle, autoStopOnQuiet bool, done <-chan struct{}) {
	var limit <-chan time.Time
	if m.maxRec > 0 {
		t := time.NewTimer(m.maxRec)
		defer t.Stop()
		limit = t.C
	}
	var quiet <-chan struct{}
	if autoStopOnQuiet {
		quiet = h.Quiet()
	}

	var ev event
	select {
	case err, ok := <-h.Faults():
		if !ok || err == nil {
			return
		}
		ev = captureFault{id: id, err: err}
	case <-quiet:
		ev = autoStop{id: id, reason: "silence"}
	case <-limit:
		ev = autoStop{id: id, reason: "max duration"}
	case <-done:
		return
	}
	select {
	case m.events <- ev:
	case <-done:
	case <-m.ctx.Done():
	}
}

func (m *Machine) stop() {
	s := m.cur
	if s == nil || s.State != StateRecording {
		return
	}
	s.endWatch()
	buf, err := m.capture.Stop(s.handle)
	s.handle = nil
	if err != nil {
		m.fail(s, &CaptureError{Op: "stop", Err: err})
		return
	}
	m.transition(s, StateProcessing)
	go m.transcribe(s, buf)
}

func (m *Machine) transcribe(s *Session, buf *audio.Buffer) {
	ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
	defer cancel()
	text, err := m.transcriber.Transcribe(ctx, buf, s.request(s.Profile.TranscriptionModel))
	m.post(m.ctx, transcribed{id: s.ID, text: text, err: err})
}

func (m *Machine) deliver(s *Session, text string) {
	out := m.dispatch.OnResult(m.ctx, s, text)
	m.post(m.ctx, dispatched{id: s.ID, out: out})
}

func (m *Machine) cancel() {
	s := m.cur
	if s == nil {
		return
	}
	switch s.State {
	case StateRecording:
		s.endWatch()
		if _, err := m.capture.Stop(s.handle); err != nil {
			m.log.Warn().Err(err).Uint64("session", s.ID).Msg("stop capture on cancel")
		}
		s.handle = nil
		m.finish(s, DispatchOutcome{Outcome: OutcomeCancelled})
	case StateProcessing, StateDelivering:
		if !s.discard() {
			m.log.Debug().Uint64("session", s.ID).Msg("cancel ignored, output already delivering")
			return
		}
		m.transition(s, StateCancelling)
	}
}

func (m *Machine) onTranscribed(e transcribed) {
	s := m.cur
	if s == nil || s.ID != e.id {
		m.log.Debug().Uint64("session", e.id).Msg("stale transcription dropped")
		return
	}
	switch s.State {
	case StateCancelling:
		m.finish(s, DispatchOutcome{Outcome: OutcomeCancelled})
	case StateProcessing:
		if e.err != nil {
			m.fail(s, hopError(HopTranscription, e.err))
			return
		}
		s.Transcript = e.text
		m.transition(s, StateDelivering)
		go m.deliver(s, e.text)
	}
}

func (m *Machine) onDispatched(e dispatched) {
	s := m.cur
	if s == nil || s.ID != e.id {
		return
	}
	switch s.State {
	case StateCancelling:
		m.finish(s, DispatchOutcome{Outcome: OutcomeCancelled})
	case StateDelivering:
		s.Result = e.out.Text
		s.Err = e.out.Err
		m.finish(s, e.out)
	}
}

func (m *Machine) onCaptureFault(e captureFault) {
	s := m.cur
	if s == nil || s.ID != e.id || s.State != StateRecording {
		return
	}
	s.endWatch()
	if _, err := m.capture.Stop(s.handle); err != nil {
		m.log.Debug().Err(err).Msg("stop capture after fault")
	}
	s.handle = nil
	m.fail(s, &CaptureError{Op: "record", Err: e.err})
}

func (m *Machine) fail(s *Session, err error) {
	s.Err = err
	m.finish(s, DispatchOutcome{Outcome: OutcomeFailed, Err: err})
}

func (m *Machine) finish(s *Session, out DispatchOutcome) {
	s.State = StateIdle
	m.cur = nil
	m.state.Store(int32(StateIdle))
	m.mode.Store(int32(ModeNone))
	m.dispatch.Report(s, out)
}

func (m *Machine) transition(s *Session, st State) {
	s.State = st
	m.state.Store(int32(st))
	m.mode.Store(int32(s.Mode))
	m.log.Debug().Uint64("session", s.ID).Str("state", st.String()).Msg("session_state")
	m.dispatch.publish(Change{SessionID: s.ID, State: st, Mode: s.Mode})
}

func (m *Machine) shutdown() {
	s := m.cur
	if s == nil {
		return
	}
	if s.State == StateRecording {
		s.endWatch()
		if _, err := m.capture.Stop(s.handle); err != nil {
			m.log.Warn().Err(err).Msg("stop capture on shutdown")
		}
	}
	s.discard()
	m.cur = nil
	m.state.Store(int32(StateIdle))
	m.mode.Store(int32(ModeNone))
	m.log.Info().Uint64("session", s.ID).Msg("session abandoned on shutdown")
}

func loggerOrNop(l *zerolog.Logger) zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return *l
}
