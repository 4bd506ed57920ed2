package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/quizforge/internal/platform/logger"
)

// NotifyContext is canceled on the first SIGINT or SIGTERM. A second signal
// is left to the default handler so a stuck shutdown can still be killed.
func NotifyContext(parent context.Context, log *logger.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-ch:
			if log != nil {
				log.Info("signal received, shutting down", "signal", sig.String())
			}
			signal.Stop(ch)
			cancel()
		case <-ctx.Done():
			signal.Stop(ch)
		}
	}()

	return ctx, func() {
		signal.Stop(ch)
		cancel()
	}
}
