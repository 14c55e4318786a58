// Package notify shows desktop notifications and plays audible cues for
// session state changes.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"

	"whisperflow/session"
)

const AppName = "Whisper Flow"

type Notifier interface {
	Notify(title, message string) error
}

// Desktop posts OS notifications. On linux it prefers notify-send so the
// display timeout is honored; elsewhere it goes through beeep.
type Desktop struct {
	Timeout time.Duration
}

func (d Desktop) Notify(title, message string) error {
	if runtime.GOOS == "linux" {
		if path, err := exec.LookPath("notify-send"); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			args := []string{"-a", AppName}
			if d.Timeout > 0 {
				args = append(args, "-t", strconv.FormatInt(d.Timeout.Milliseconds(), 10))
			}
			args = append(args, title, message)
			return exec.CommandContext(ctx, path, args...).Run()
		}
	}
	return beeep.Notify(title, message, "")
}

// Presenter turns terminal session changes and menu requests into
// notifications. Notifications are posted off the caller's goroutine.
type Presenter struct {
	n   Notifier
	log zerolog.Logger
	// OnDelivered controls whether successful deliveries notify.
	OnDelivered bool
}

func NewPresenter(n Notifier, logger *zerolog.Logger) *Presenter {
	p := &Presenter{n: n, log: zerolog.Nop(), OnDelivered: true}
	if logger != nil {
		p.log = logger.With().Str("component", "notify").Logger()
	}
	return p
}

func (p *Presenter) StateChanged(c session.Change) {
	if !c.Terminal() {
		return
	}
	title, msg, ok := Describe(c)
	if !ok || (c.Outcome == session.OutcomeDelivered && !p.OnDelivered && c.Notice == "") {
		return
	}
	p.post(title, msg)
}

func (p *Presenter) ShowMenu(profiles []session.Profile) {
	p.post(AppName, MenuText(profiles))
}

// Notify posts a one-off message, e.g. a doctor summary.
func (p *Presenter) Notify(title, message string) { p.post(title, message) }

func (p *Presenter) post(title, msg string) {
	go func() {
		if err := p.n.Notify(title, msg); err != nil {
			p.log.Debug().Err(err).Msg("notification failed")
		}
	}()
}

// Describe renders a terminal change as a notification.
func Describe(c session.Change) (title, msg string, ok bool) {
	label := c.Mode.Label()
	switch c.Outcome {
	case session.OutcomeDelivered:
		if c.Notice != "" {
			return label, capitalize(c.Notice), true
		}
		return label, preview(c.Text, 80), true
	case session.OutcomeFailed:
		return label + " failed", errorText(c.Err), true
	case session.OutcomeCancelled:
		return label, "Cancelled", true
	}
	return "", "", false
}

// MenuText lists every mode's chord, one per line.
func MenuText(profiles []session.Profile) string {
	var b strings.Builder
	for i, p := range profiles {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s (%s)", p.Mode.Label(), p.Chord, strings.ReplaceAll(p.Style.String(), "_", " "))
	}
	return b.String()
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return preview(err.Error(), 120)
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
