//go:build !linux && !darwin

package prompt

import (
	"context"
	"errors"
)

func ActiveWindowTitle(context.Context) (string, error) {
	return "", errors.New("active window title not supported on this platform")
}
