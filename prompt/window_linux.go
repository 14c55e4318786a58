package prompt

import (
	"context"
	"errors"
	"os/exec"
)

// ActiveWindowTitle asks xdotool, falling back to wmctrl's active window.
func ActiveWindowTitle(ctx context.Context) (string, error) {
	if _, err := exec.LookPath("xdotool"); err == nil {
		return runTitle(ctx, "xdotool", "getactivewindow", "getwindowname")
	}
	if _, err := exec.LookPath("xprop"); err == nil {
		id, err := runTitle(ctx, "sh", "-c", `xprop -root _NET_ACTIVE_WINDOW | awk '{print $NF}'`)
		if err != nil {
			return "", err
		}
		return runTitle(ctx, "sh", "-c", `xprop -id "$1" _NET_WM_NAME | sed -e 's/^[^"]*"//' -e 's/"$//'`, "sh", id)
	}
	return "", errors.New("neither xdotool nor xprop found")
}
