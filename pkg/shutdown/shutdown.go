package shutdown

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func CreateGracefulShutdownChannel() chan os.Signal {
	gracefulShutdownNotifier := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdownNotifier, syscall.SIGINT, syscall.SIGTERM)
	return gracefulShutdownNotifier
}

// ListenForShutdown blocks until a shutdown signal arrives, invokes the
// shutdown callback and gives in-flight work the grace period to drain.
func ListenForShutdown(
	gracefulShutdownNotifier chan os.Signal,
	done chan bool,
	shutdownFunc func(),
	gracePeriod time.Duration,
	logger *zap.Logger,
) {
	sig := <-gracefulShutdownNotifier
	logger.Sugar().Infow("Received shutdown signal", "signal", sig.String())

	shutdownFunc()

	go func() {
		time.Sleep(gracePeriod)
		done <- true
	}()
	<-done
}
