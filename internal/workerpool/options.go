package workerpool

import (
	"time"

	"github.com/devswarm/devswarm/internal/logging"
)

// DefaultSize is the worker count used when New is given size 0.
const DefaultSize = 4

// defaultTaskTimeout bounds a submission when the caller supplies none.
const defaultTaskTimeout = 5 * time.Minute

// Option configures a Pool.
type Option func(*config)

type config struct {
	logger      *logging.Logger
	taskTimeout time.Duration
}

// WithLogger sets the logger used for worker lifecycle and timeout events.
func WithLogger(logger *logging.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTaskTimeout sets the default wall-clock timeout applied to a
// submission when Submit is not given one explicitly. A zero or negative
// value is replaced with defaultTaskTimeout.
func WithTaskTimeout(d time.Duration) Option {
	return func(c *config) {
		if d <= 0 {
			d = defaultTaskTimeout
		}
		c.taskTimeout = d
	}
}
