// Package log owns the daemon's two log files: a rotating zerolog
// diagnostics log and a plain transcript log with one delivered text per
// line.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"whisperflow/session"
)

const (
	DiagnosticsFile = "diagnostics_log.txt"
	TranscriptFile  = "transcribe_log.txt"
	CrashFile       = "crash_log.txt"

	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

var (
	diagLog    = zerolog.Nop()
	diagOut    io.WriteCloser
	transcript io.WriteCloser
	logMu      sync.Mutex
	logReady   bool
	pid        int
	dir        string
)

// ResolveDir picks the log directory: the --log-dir flag, then the
// configured log_path (which WHISPER_FLOW_LOG_PATH already overrides),
// then the OS default. Relative paths are taken from the working
// directory.
func ResolveDir(flagPath, configured string) (string, error) {
	for _, p := range []string{flagPath, configured} {
		if p == "" {
			continue
		}
		if filepath.IsAbs(p) {
			return p, nil
		}
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(wd, p), nil
	}
	return defaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func rotating(name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
}

// Init opens both logs in Dir. When console is non-nil diagnostics are
// mirrored to it as well.
func Init(console io.Writer) error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}
	pid = os.Getpid()

	for _, name := range []string{DiagnosticsFile, TranscriptFile} {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		f.Close()
	}

	diagOut = rotating(DiagnosticsFile)
	transcript = rotating(TranscriptFile)

	var out io.Writer = zerolog.ConsoleWriter{
		Out:        diagOut,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	if console != nil {
		out = zerolog.MultiLevelWriter(out, zerolog.ConsoleWriter{Out: console, TimeFormat: "15:04:05"})
	}
	diagLog = zerolog.New(out).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagOut != nil {
		diagOut.Close()
		diagOut = nil
	}
	if transcript != nil {
		transcript.Close()
		transcript = nil
	}
	diagLog = zerolog.Nop()
	logReady = false
}

// Logger returns the diagnostics logger; it discards everything until
// Init succeeds.
func Logger() *zerolog.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	l := diagLog
	return &l
}

func Info(msg string) {
	l := Logger()
	l.Info().Msg(msg)
}

func Warnf(format string, args ...any) {
	l := Logger()
	l.Warn().Msg(fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...any) {
	l := Logger()
	l.Error().Msg(fmt.Sprintf(format, args...))
}

// Transcript appends "<time>\t[pid]\t<mode>\t<text>" to the transcript
// log. Newlines in text are flattened so each entry stays on one line.
func Transcript(mode session.Mode, text string) {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady || transcript == nil {
		return
	}
	text = strings.ReplaceAll(text, "\n", " ")
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, mode, text)
	transcript.Write([]byte(line))
}

// Presenter records every session change in the diagnostics log and
// each delivered text in the transcript log.
type Presenter struct{}

func (Presenter) StateChanged(c session.Change) {
	l := Logger()
	if !c.Terminal() {
		l.Debug().Uint64("session", c.SessionID).Str("mode", c.Mode.String()).Str("state", c.State.String()).Msg("state")
		return
	}
	ev := l.Info()
	if c.Outcome == session.OutcomeFailed {
		ev = l.Error().Err(c.Err).Str("hop", string(session.FailedHop(c.Err)))
	}
	ev.Uint64("session", c.SessionID).
		Str("mode", c.Mode.String()).
		Str("outcome", c.Outcome.String()).
		Int("chars", len(c.Text)).
		Str("notice", c.Notice).
		Msg("session_end")
	if c.Outcome == session.OutcomeDelivered && c.Text != "" {
		Transcript(c.Mode, c.Text)
	}
}
