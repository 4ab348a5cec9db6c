package utils

import (
	"encoding/hex"
	"os"
	"sync"

	"go.uber.org/zap"

	"lukechampine.com/blake3"
)

var SHUTDOWN_ONCE sync.Once

// GracefulShutdown runs the stop hooks once, flushes the logger and exits the process.
func GracefulShutdown(exitCode int, hooks ...func() error) {

	SHUTDOWN_ONCE.Do(func() {

		Log().Info("Stop signal has been initiated.Keep waiting...")

		for _, hook := range hooks {
			if err := hook(); err != nil {
				Log().Error("shutdown hook failed", zap.Error(err))
			}
		}

		Log().Info("Relay was gracefully stopped")

		SyncLogger()

		os.Exit(exitCode)

	})

}

func Blake3(data []byte) string {

	blake3Hash := blake3.Sum256(data)

	return hex.EncodeToString(blake3Hash[:])

}
