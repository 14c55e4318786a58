// Package clipboard delivers finished text: it places the text on the
// system clipboard and then synthesizes a paste keystroke.
package clipboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	cb "github.com/atotto/clipboard"
	"github.com/rs/zerolog"

	"whisperflow/session"
)

// Board is the system clipboard.
type Board interface {
	Read() (string, error)
	Write(text string) error
}

// Paster sends the platform's paste keystroke to the focused window.
type Paster interface {
	Paste() error
}

type systemBoard struct{}

func (systemBoard) Read() (string, error)   { return cb.ReadAll() }
func (systemBoard) Write(text string) error { return cb.WriteAll(text) }

// System returns the OS clipboard.
func System() Board { return systemBoard{} }

type Config struct {
	Board  Board
	Paster Paster
	// AutoPaste sends the paste keystroke after copying.
	AutoPaste bool
	// RestoreAfter, when positive, puts the previous clipboard content
	// back this long after a successful paste.
	RestoreAfter time.Duration
	Logger       *zerolog.Logger
}

// Sink implements session.Sink.
type Sink struct {
	board        Board
	paster       Paster
	autoPaste    bool
	restoreAfter time.Duration
	log          zerolog.Logger

	wg sync.WaitGroup
}

func NewSink(cfg Config) *Sink {
	s := &Sink{
		board:        cfg.Board,
		paster:       cfg.Paster,
		autoPaste:    cfg.AutoPaste,
		restoreAfter: cfg.RestoreAfter,
		log:          zerolog.Nop(),
	}
	if s.board == nil {
		s.board = System()
	}
	if s.paster == nil {
		s.paster = Keystroke()
	}
	if cfg.Logger != nil {
		s.log = cfg.Logger.With().Str("component", "clipboard").Logger()
	}
	return s
}

// Deliver copies text and pastes it. A failed paste is not an error:
// the text stays on the clipboard and the ack says so.
func (s *Sink) Deliver(ctx context.Context, text string) (session.Ack, error) {
	if err := ctx.Err(); err != nil {
		return session.Ack{}, err
	}
	var previous string
	restore := s.autoPaste && s.restoreAfter > 0
	if restore {
		var err error
		if previous, err = s.board.Read(); err != nil {
			restore = false
		}
	}
	if err := s.board.Write(text); err != nil {
		return session.Ack{}, fmt.Errorf("copy to clipboard: %w", err)
	}
	if !s.autoPaste {
		return session.Ack{}, nil
	}
	if err := s.paster.Paste(); err != nil {
		s.log.Warn().Err(err).Msg("paste keystroke failed, text left on clipboard")
		return session.Ack{}, nil
	}
	if restore {
		s.wg.Add(1)
		go s.restore(previous, text)
	}
	return session.Ack{Pasted: true}, nil
}

// restore puts previous back unless something else replaced the
// delivered text in the meantime.
func (s *Sink) restore(previous, delivered string) {
	defer s.wg.Done()
	time.Sleep(s.restoreAfter)
	current, err := s.board.Read()
	if err != nil || current != delivered {
		return
	}
	if err := s.board.Write(previous); err != nil {
		s.log.Debug().Err(err).Msg("clipboard restore failed")
	}
}

// Wait blocks until pending clipboard restores have run.
func (s *Sink) Wait() { s.wg.Wait() }
