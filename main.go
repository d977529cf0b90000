package main

import (
	"os"

	"github.com/TFMV/pollwatch/cmd"
	"github.com/TFMV/pollwatch/internal/walk"
	"go.uber.org/zap"
)

func main() {
	logger := walk.NewLogger(walk.LogLevelError)
	defer logger.Sync()

	// Set up a deferred function to recover from panics.
	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered from panic", zap.Any("panic", r))
			os.Exit(1)
		}
	}()

	if err := cmd.Execute(); err != nil {
		logger.Error("error executing command", zap.Error(err))
		os.Exit(1)
	}
}
