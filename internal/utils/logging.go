package utils

import (
	"go.uber.org/zap"
)

// Logger backs package-level helpers that have no logger of their own.
var Logger *zap.Logger

func InitLogger() {
	var err error
	Logger, err = zap.NewProduction()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
}

func GetLogger() *zap.Logger {
	if Logger == nil {
		InitLogger()
	}
	return Logger
}

// SetLogger replaces the global logger, mostly for tests.
func SetLogger(l *zap.Logger) {
	Logger = l
}
