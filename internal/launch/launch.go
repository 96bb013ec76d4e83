// Package launch hands connect URIs to the operating system. The game
// client owns the actual connection attempt; success is never reported
// back here and is instead inferred later from server-id comparison.
package launch

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/zap"
)

// Opener triggers the OS-level "open this URI" action.
type Opener interface {
	Open(ctx context.Context, uri string) error
}

// URI builds the rungame launch command for a direct connect:
// <protocol>rungame/<appID>/<friendID>/<connect>.
func URI(protocol, appID, friendID, connect string) string {
	return fmt.Sprintf("%srungame/%s/%s/%s", protocol, appID, friendID, connect)
}

// OSOpener shells out to the platform URI handler. Fire-and-forget:
// the spawned process is not waited on.
type OSOpener struct {
	logger *zap.Logger
}

func NewOSOpener(logger *zap.Logger) *OSOpener {
	return &OSOpener{logger: logger}
}

func (o *OSOpener) Open(ctx context.Context, uri string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", uri)
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", uri)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", uri)
	}

	o.logger.Info("launching connect uri", zap.String("uri", uri))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %q: %w", uri, err)
	}
	// Reap the child in the background so it never zombies.
	go func() { _ = cmd.Wait() }()
	return nil
}
