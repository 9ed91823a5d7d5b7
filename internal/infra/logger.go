package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger constructs a zerolog.Logger for one process of the pipeline.
// Development gets a console writer at debug level; everything else emits
// JSON at info level.
func NewLogger(appEnv, component string) zerolog.Logger {
	return newLogger(os.Stdout, appEnv, component)
}

func newLogger(out io.Writer, appEnv, component string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	ctx := zerolog.New(out).
		Level(level).
		With().
		Timestamp()
	if component != "" {
		ctx = ctx.Str("component", component)
	}
	logger := ctx.Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}

	return logger
}

// Logger aliases the zerolog.Logger so callers outside the infra package can
// depend on the logging contract without importing the third-party module
// directly.
type Logger = zerolog.Logger
