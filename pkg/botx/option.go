package botx

import (
	"time"

	"golang.org/x/exp/slog"
)

// Options defines options for Bot.
type Options struct {
	// Workers is the amount of updates handled in parallel, at least one.
	Workers int
	// SendTimeout bounds delivery of each response, zero means no limit.
	SendTimeout time.Duration
	Logger      *slog.Logger
}

// Option defines a function that configures Bot.
type Option func(*Options)

// WithWorkers sets the number of workers to run.
func WithWorkers(workers int) Option {
	return func(o *Options) {
		if workers > 0 {
			o.Workers = workers
		}
	}
}

// WithSendTimeout limits the time spent on sending a single response.
func WithSendTimeout(d time.Duration) Option {
	return func(o *Options) { o.SendTimeout = d }
}

// WithLogger sets the logger to use.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}
