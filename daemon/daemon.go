// Package daemon wires the configuration, the hotkey listener, the audio
// recorder, the network clients and the presenters into one running
// session machine.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"whisperflow/config"
	"whisperflow/hotkey"
	"whisperflow/session"
)

// Components are the ports the machine drives. Build fills them from the
// real machine; tests and --fake-audio supply in-process fakes.
type Components struct {
	Capture     session.AudioCapture
	Transcriber session.Transcriber
	Completer   session.Completer
	Sink        session.Sink
	Prompts     session.PromptSource
	Listener    hotkey.Listener
}

type Daemon struct {
	cfg        config.Config
	machine    *session.Machine
	dispatcher *session.Dispatcher
	listener   hotkey.Listener
	bindings   []hotkey.Binding
	log        zerolog.Logger
}

// New validates cfg and assembles the machine. Presenters are added with
// AddPresenter before Run.
func New(cfg config.Config, c Components, logger *zerolog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c.Listener == nil {
		return nil, errors.New("daemon: hotkey listener is required")
	}
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}

	profiles, err := cfg.Profiles()
	if err != nil {
		return nil, err
	}
	ctrl, err := session.NewController(profiles, cfg.CancelChord(), cfg.MenuChord())
	if err != nil {
		return nil, err
	}

	dispatcher := session.NewDispatcher(session.DispatcherConfig{
		Completer: c.Completer,
		Sink:      c.Sink,
		Prompts:   c.Prompts,
		Timeout:   cfg.Timeout(),
		Logger:    logger,
	})
	machine, err := session.NewMachine(session.Config{
		Capture:      c.Capture,
		Transcriber:  c.Transcriber,
		Dispatcher:   dispatcher,
		Controller:   ctrl,
		Timeout:      cfg.Timeout(),
		MaxRecording: cfg.MaxRecording(),
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return &Daemon{
		cfg:        cfg,
		machine:    machine,
		dispatcher: dispatcher,
		listener:   c.Listener,
		bindings:   hotkey.Bindings(profiles, cfg.CancelChord(), cfg.MenuChord()),
		log:        log,
	}, nil
}

func (d *Daemon) AddPresenter(p session.Presenter) { d.dispatcher.AddPresenter(p) }

func (d *Daemon) Profiles() []session.Profile { return d.machine.Profiles() }

func (d *Daemon) State() session.State { return d.machine.State() }

// Run registers the hotkeys and processes sessions until ctx is done.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.listener.Register(d.bindings); err != nil {
		return fmt.Errorf("registering hotkeys: %w", err)
	}
	defer d.listener.Unregister()

	for _, p := range d.machine.Profiles() {
		d.log.Info().
			Str("mode", p.Mode.String()).
			Str("chord", p.Chord.String()).
			Str("style", p.Style.String()).
			Msg("binding")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.machine.Run(ctx) })
	g.Go(func() error { return d.pump(ctx) })
	return g.Wait()
}

// pump feeds listener events into the machine in arrival order.
func (d *Daemon) pump(ctx context.Context) error {
	events := d.listener.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := d.machine.Submit(ctx, ev); err != nil {
				return nil
			}
		}
	}
}

// Toggle starts a Transcribe session when idle and stops the active
// recording otherwise. It backs the tray's record item.
func (d *Daemon) Toggle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if d.machine.State() == session.StateIdle {
		err := d.machine.Start(ctx, session.ModeTranscribe)
		if errors.Is(err, session.ErrBusy) {
			return d.machine.Stop(ctx)
		}
		return err
	}
	return d.machine.Stop(ctx)
}

func (d *Daemon) Cancel(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return d.machine.Cancel(ctx)
}
