// Package logging sets up the process's zap loggers: a colorized
// development encoder when stderr is a terminal, a production JSON encoder
// otherwise.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Level names accepted by the --log-level flag, passed through to
// zapcore.Level.UnmarshalText.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Setup builds a *zap.Logger and its *zap.SugaredLogger. level is parsed
// with zapcore.Level.UnmarshalText; an empty string defaults to info.
func Setup(name, level string) (*zap.Logger, *zap.SugaredLogger, error) {
	var lvl zapcore.Level
	if level == "" {
		lvl = zapcore.InfoLevel
	} else if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, err
	}

	isTerm := term.IsTerminal(int(os.Stderr.Fd()))

	var config zap.Config
	if isTerm {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	log, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, nil, err
	}
	log = log.Named(name)

	return log, log.Sugar(), nil
}
