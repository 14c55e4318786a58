package daemon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"whisperflow/hotkey"
	"whisperflow/session"
)

// Outcomes is a presenter that hands every terminal change to a channel.
type Outcomes chan session.Change

func (o Outcomes) StateChanged(c session.Change) {
	if c.Terminal() {
		select {
		case o <- c:
		default:
		}
	}
}

// Script drives a fake listener from line commands, one per line:
//
//	DOWN <mode|chord>   press
//	UP <mode|chord>     release
//	TAP <mode|chord>    tap (cancel, menu, toggle chords)
//	WAIT                block until the next session finishes, print it
//	SLEEP <ms>
//	QUIT
//
// Modes resolve to their configured chord; "cancel" and "menu" to the
// reserved chords.
func Script(ctx context.Context, r io.Reader, w io.Writer, fake *hotkey.FakeListener, cfg chordSource, done Outcomes) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := scanLines(ctx, r)
	for {
		var line scriptLine
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			if l.err != nil {
				return l.err
			}
			line = l
		}
		fields := strings.Fields(line.text)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		cmd, arg := strings.ToUpper(fields[0]), ""
		if len(fields) > 1 {
			arg = fields[1]
		}
		switch cmd {
		case "DOWN", "UP", "TAP":
			chord, err := resolveChord(cfg, arg)
			if err != nil {
				return err
			}
			edge := map[string]session.Edge{"DOWN": session.EdgeDown, "UP": session.EdgeUp, "TAP": session.EdgeTap}[cmd]
			fake.Sim(chord, edge)
		case "WAIT":
			select {
			case c := <-done:
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Mode, c.Outcome, c.Text)
			case <-ctx.Done():
				return nil
			}
		case "SLEEP":
			ms, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("SLEEP %q: %w", arg, err)
			}
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return nil
			}
		case "QUIT":
			return nil
		default:
			return fmt.Errorf("unknown script command %q", fields[0])
		}
	}
}

type scriptLine struct {
	text string
	err  error
}

// scanLines reads r on its own goroutine so a blocked read never holds up
// cancellation.
func scanLines(ctx context.Context, r io.Reader) <-chan scriptLine {
	out := make(chan scriptLine)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case out <- scriptLine{text: scanner.Text()}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case out <- scriptLine{err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return out
}

type chordSource interface {
	CancelChord() session.Chord
	MenuChord() session.Chord
	Profiles() ([]session.Profile, error)
}

func resolveChord(cfg chordSource, name string) (session.Chord, error) {
	switch strings.ToLower(name) {
	case "cancel":
		return cfg.CancelChord(), nil
	case "menu":
		return cfg.MenuChord(), nil
	}
	if mode, err := session.ParseMode(name); err == nil {
		profiles, err := cfg.Profiles()
		if err != nil {
			return "", err
		}
		for _, p := range profiles {
			if p.Mode == mode {
				return p.Chord, nil
			}
		}
	}
	return session.ParseChord(name)
}
