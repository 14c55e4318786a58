package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TextPlaceholder is substituted with the transcript when rendering prompts.
const TextPlaceholder = "{{text}}"

const (
	NoticeNoSpeech = "no speech detected"
	NoticeCopied   = "copied to clipboard"
)

type DispatchOutcome struct {
	Outcome Outcome
	Text    string
	Notice  string
	Err     error
}

type DispatcherConfig struct {
	Completer Completer
	Sink      Sink
	Prompts   PromptSource
	// Timeout bounds the completion hop.
	Timeout time.Duration
	Logger  *zerolog.Logger
}

// Dispatcher post-processes finished transcripts and fans state changes
// out to the registered presenters.
type Dispatcher struct {
	completer Completer
	sink      Sink
	prompts   PromptSource
	timeout   time.Duration
	log       zerolog.Logger

	mu         sync.Mutex
	presenters []Presenter
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Dispatcher{
		completer: cfg.Completer,
		sink:      cfg.Sink,
		prompts:   cfg.Prompts,
		timeout:   cfg.Timeout,
		log:       loggerOrNop(cfg.Logger),
	}
}

func (d *Dispatcher) AddPresenter(p Presenter) {
	d.mu.Lock()
	d.presenters = append(d.presenters, p)
	d.mu.Unlock()
}

// NeedsCompletion reports whether text from mode must go through the
// completion hop. Command mode always does; the other modes only when
// their template does more than pass the transcript through.
func NeedsCompletion(mode Mode, template string) bool {
	if mode == ModeCommand {
		return true
	}
	t := strings.TrimSpace(template)
	return t != "" && t != TextPlaceholder
}

// OnResult turns a transcript into delivered text. It never publishes;
// the caller reports the returned outcome exactly once.
func (d *Dispatcher) OnResult(ctx context.Context, s *Session, text string) DispatchOutcome {
	text = strings.TrimSpace(text)
	if text == "" {
		return DispatchOutcome{Outcome: OutcomeDelivered, Notice: NoticeNoSpeech}
	}

	out := text
	tmpl := d.template(s.Profile)
	if NeedsCompletion(s.Mode, tmpl) {
		if s.Discarded() {
			return DispatchOutcome{Outcome: OutcomeCancelled}
		}
		res, err := d.complete(ctx, s, d.render(tmpl, text))
		if err != nil {
			return DispatchOutcome{Outcome: OutcomeFailed, Err: hopError(HopCompletion, err)}
		}
		out = strings.TrimSpace(res)
	}

	if !s.claimSink() {
		return DispatchOutcome{Outcome: OutcomeCancelled}
	}
	if d.sink == nil {
		return DispatchOutcome{Outcome: OutcomeFailed, Err: hopError(HopDelivery, errors.New("no output sink"))}
	}
	ack, err := d.sink.Deliver(ctx, out)
	if err != nil {
		return DispatchOutcome{Outcome: OutcomeFailed, Err: hopError(HopDelivery, err)}
	}
	o := DispatchOutcome{Outcome: OutcomeDelivered, Text: out}
	if !ack.Pasted {
		o.Notice = NoticeCopied
	}
	return o
}

func (d *Dispatcher) complete(ctx context.Context, s *Session, prompt string) (string, error) {
	if d.completer == nil {
		return "", errors.New("no completion client configured")
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.completer.Complete(ctx, prompt, s.request(s.Profile.CompletionModel))
}

func (d *Dispatcher) template(p Profile) string {
	if d.prompts != nil {
		return d.prompts.Template(p)
	}
	return p.Prompt
}

func (d *Dispatcher) render(tmpl, text string) string {
	if strings.TrimSpace(tmpl) == "" {
		return text
	}
	if d.prompts != nil {
		return d.prompts.Render(tmpl, text)
	}
	return strings.ReplaceAll(tmpl, TextPlaceholder, text)
}

// Report publishes the terminal change for s.
func (d *Dispatcher) Report(s *Session, o DispatchOutcome) {
	ev := d.log.Info()
	if o.Outcome == OutcomeFailed {
		ev = d.log.Warn().Err(o.Err).Str("hop", string(FailedHop(o.Err)))
	}
	ev.Uint64("session", s.ID).
		Str("request_id", s.RequestID).
		Str("mode", s.Mode.String()).
		Str("outcome", o.Outcome.String()).
		Dur("elapsed", time.Since(s.StartedAt)).
		Msg("session_end")

	d.publish(Change{
		SessionID: s.ID,
		State:     StateIdle,
		Mode:      s.Mode,
		Outcome:   o.Outcome,
		Text:      o.Text,
		Notice:    o.Notice,
		Err:       o.Err,
	})
}

func (d *Dispatcher) ShowMenu(profiles []Profile) {
	for _, p := range d.snapshot() {
		if mp, ok := p.(MenuPresenter); ok {
			mp.ShowMenu(profiles)
		}
	}
}

func (d *Dispatcher) publish(c Change) {
	for _, p := range d.snapshot() {
		p.StateChanged(c)
	}
}

func (d *Dispatcher) snapshot() []Presenter {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Presenter(nil), d.presenters...)
}
