package server

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Endy02/microservice/auth"
	"github.com/Endy02/microservice/config"
)

// ZerologAdapter exposes a zerolog logger through the auth.Logger
// interface used across the module.
type ZerologAdapter struct {
	log zerolog.Logger
}

var _ auth.Logger = (*ZerologAdapter)(nil)

// NewLogger builds the process logger from configuration. Format
// "console" gives human readable output, anything else emits JSON.
func NewLogger(cfg config.LoggingConfig, component string) *ZerologAdapter {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: cfg.TimeFormat}
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()

	return &ZerologAdapter{log: logger}
}

// Named returns a copy of the adapter scoped to a sub component.
func (z *ZerologAdapter) Named(component string) *ZerologAdapter {
	return &ZerologAdapter{log: z.log.With().Str("component", component).Logger()}
}

func (z *ZerologAdapter) Debug(format string, args ...any) { z.log.Debug().Msgf(format, args...) }
func (z *ZerologAdapter) Info(format string, args ...any)  { z.log.Info().Msgf(format, args...) }
func (z *ZerologAdapter) Warn(format string, args ...any)  { z.log.Warn().Msgf(format, args...) }
func (z *ZerologAdapter) Error(format string, args ...any) { z.log.Error().Msgf(format, args...) }

// defControllerLogger is the fallback when a controller is built without
// a configured logger.
type defControllerLogger struct{}

func (defControllerLogger) Debug(format string, args ...any) {}
func (defControllerLogger) Info(format string, args ...any)  {}
func (defControllerLogger) Warn(format string, args ...any)  {}
func (defControllerLogger) Error(format string, args ...any) {}
