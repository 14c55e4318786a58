package completion

import (
	"context"
	"strings"

	"whisperflow/session"
)

// Echo returns the prompt unchanged. It stands in for the network client
// when running against fake audio.
type Echo struct{}

func (Echo) Complete(ctx context.Context, prompt string, _ session.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(prompt), nil
}
