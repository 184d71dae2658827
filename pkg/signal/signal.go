package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// WaitForShutdown blocks until SIGINT/SIGTERM, then runs shutdownFunc
// with a hard 5s deadline.
func WaitForShutdown(logger *zap.Logger, shutdownFunc func() error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		if err := shutdownFunc(); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
		cancel()
	}()

	<-ctx.Done()
	logger.Info("shutdown completed")
}
