package main

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mhpenta/genstudio/config"
)

// newLogger builds the process logger. Logs go to cfg.LogFile when set,
// otherwise to fallback; a nil fallback discards them. The returned func
// closes the log file.
func newLogger(cfg *config.Config, fallback io.Writer) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), func() {}, errors.Wrapf(err, "log level %q", cfg.LogLevel)
	}

	out, closeFn := fallback, func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), func() {}, errors.Wrapf(err, "opening log file %s", cfg.LogFile)
		}
		out, closeFn = f, func() { _ = f.Close() }
	}
	if out == nil {
		return zerolog.Nop(), closeFn, nil
	}

	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.LogFile != "",
		}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, closeFn, nil
}
