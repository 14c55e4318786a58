// Package shutdown turns termination signals into context cancellation
// and lets one process signal another by PID.
package shutdown

import (
	"context"
	"os/signal"

	"github.com/shirou/gopsutil/v3/process"
)

// Context is cancelled on the first interrupt or terminate signal.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// Alive reports whether a process with pid exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}

// Terminate asks pid to shut down: SIGTERM on unix, a kill on Windows.
func Terminate(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Terminate()
}
