package ustar

import "log/slog"

type config struct {
	logger         *slog.Logger
	strictNullTest bool
}

func newConfig(opts []Option) config {
	c := config{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Option configures a BlockReader or Iterator.
type Option func(*config)

// WithLogger sets the logger for debug output.
// By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithStrictTerminator makes the Iterator require an all-zero block before
// treating a header as the end of the archive.
//
// By default only the first byte of the checksum field is examined, which
// also accepts terminators whose trailing bytes are not zeroed.
func WithStrictTerminator(enabled bool) Option {
	return func(c *config) {
		c.strictNullTest = enabled
	}
}
