package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"whisperflow/shutdown"
)

var ErrRunning = errors.New("daemon already running")

type Status int

const (
	Stopped Status = iota
	Running
	// Stale means a PID file exists but its process is gone.
	Stale
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Stale:
		return "stale"
	}
	return "stopped"
}

// ReadPID returns the recorded pid, or 0 when there is no PID file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid pid %q", path, strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// Check reports whether the daemon recorded at path is alive.
func Check(path string) (Status, int, error) {
	pid, err := ReadPID(path)
	if err != nil {
		return Stale, 0, err
	}
	switch {
	case pid == 0:
		return Stopped, 0, nil
	case shutdown.Alive(pid):
		return Running, pid, nil
	}
	return Stale, pid, nil
}

// AcquirePID writes this process's pid to path. It fails with ErrRunning
// when another live process holds the file; a stale file is replaced.
// The returned func removes the file if it still names this process.
func AcquirePID(path string) (func(), error) {
	status, pid, _ := Check(path)
	if status == Running && pid != os.Getpid() {
		return nil, fmt.Errorf("%w (pid %d)", ErrRunning, pid)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	self := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(self)+"\n"), 0o644); err != nil {
		return nil, err
	}
	return func() {
		if pid, _ := ReadPID(path); pid == self {
			os.Remove(path)
		}
	}, nil
}
