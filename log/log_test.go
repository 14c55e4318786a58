package log

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"whisperflow/session"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDir(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name       string
		flag, conf string
		want       string
	}{
		{"flag", "/tmp/mylog", "/tmp/other", "/tmp/mylog"},
		{"flag relative", "logs", "", filepath.Join(wd, "logs")},
		{"configured", "", "/tmp/wf-env-log", "/tmp/wf-env-log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDir(tt.flag, tt.conf)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveDirDefault(t *testing.T) {
	got, err := ResolveDir("", "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "whisper-flow") {
		t.Errorf("default dir %q", got)
	}
}

func TestPlatformDir(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}
	tests := []struct {
		name    string
		goos    string
		home    string
		vars    map[string]string
		want    string
		wantErr bool
	}{
		{"darwin", "darwin", "/Users/ana", nil, filepath.Join("/Users/ana", "Library", "Logs", "whisper-flow"), false},
		{"linux xdg", "linux", "/home/ana", map[string]string{"XDG_CONFIG_HOME": "/xdg"}, filepath.Join("/xdg", "whisper-flow", "logs"), false},
		{"linux home", "linux", "/home/ana", nil, filepath.Join("/home/ana", ".config", "whisper-flow", "logs"), false},
		{"windows localappdata", "windows", `C:\Users\ana`, map[string]string{"LOCALAPPDATA": "/lad"}, filepath.Join("/lad", "whisper-flow", "logs"), false},
		{"windows home", "windows", "/h", nil, filepath.Join("/h", "AppData", "Local", "whisper-flow", "logs"), false},
		{"no home", "linux", "", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := platformDir(tt.goos, tt.home, env(tt.vars))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(nil); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{DiagnosticsFile, TranscriptFile} {
		if _, err := os.Stat(filepath.Join(tmp, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestLoggerWritesDiagnostics(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(nil); err != nil {
		t.Fatal(err)
	}
	Info("daemon_start")
	Close()

	data, err := os.ReadFile(filepath.Join(tmp, DiagnosticsFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "daemon_start") {
		t.Errorf("diagnostics missing message: %q", data)
	}
}

func TestTranscript(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(nil); err != nil {
		t.Fatal(err)
	}

	Transcript(session.ModeCommand, "hello\nworld")

	data, err := os.ReadFile(filepath.Join(tmp, TranscriptFile))
	if err != nil {
		t.Fatal(err)
	}
	fields := strings.Split(strings.TrimSuffix(string(data), "\n"), "\t")
	if len(fields) != 4 {
		t.Fatalf("fields = %q", fields)
	}
	if fields[2] != "command" || fields[3] != "hello world" {
		t.Errorf("line = %q", data)
	}
}

func TestPresenterLogsDeliveredOnly(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(nil); err != nil {
		t.Fatal(err)
	}

	var p Presenter
	p.StateChanged(session.Change{SessionID: 1, Mode: session.ModeTranscribe, State: session.StateRecording})
	p.StateChanged(session.Change{SessionID: 1, Mode: session.ModeTranscribe, Outcome: session.OutcomeFailed, Err: errors.New("boom")})
	p.StateChanged(session.Change{SessionID: 2, Mode: session.ModeTranscribe, Outcome: session.OutcomeDelivered, Text: "kept"})

	data, err := os.ReadFile(filepath.Join(tmp, TranscriptFile))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n"); n != 1 {
		t.Fatalf("transcript lines = %d: %q", n, data)
	}
	if !strings.Contains(string(data), "kept") {
		t.Errorf("transcript = %q", data)
	}
}

func TestLoggedBeforeInitIsDropped(t *testing.T) {
	Close()
	Info("nowhere")
	Transcript(session.ModeTranscribe, "nowhere")
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(nil); err != nil {
		t.Fatal(err)
	}
	Close()
	Close()
}
