package link

import (
	"errors"
	"fmt"
	"time"

	"github.com/sortation-tools/sortlink/logger"
)

// Default configuration values.
const (
	// DefaultPollInterval is how often the receive path checks the
	// transport for pending bytes while idle.
	DefaultPollInterval = 50 * time.Millisecond

	// DefaultReadTimeout is the default bound on a single blocking
	// receive. Zero means wait indefinitely, matching the device's own
	// behavior of answering whenever its physical action completes.
	DefaultReadTimeout = 0
)

// Poll interval limits.
const (
	MinPollInterval = time.Millisecond
	MaxPollInterval = time.Second
)

// config holds all configuration for a Link.
type config struct {
	// pollInterval is the idle-poll period of the receive path. Shorter
	// intervals lower receive latency at the cost of CPU.
	pollInterval time.Duration

	// readTimeout bounds a single ReadCommand/WaitFor call. Zero disables
	// the bound; cancellation is then only possible via the context.
	readTimeout time.Duration

	logger logger.Logger
}

func newConfig(opts ...Option) (*config, error) {
	cfg := &config{
		pollInterval: DefaultPollInterval,
		readTimeout:  DefaultReadTimeout,
		logger:       logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option is a functional option for configuring a Link.
type Option interface {
	apply(*config) error
}

type optFunc func(*config) error

func (f optFunc) apply(cfg *config) error { return f(cfg) }

// WithPollInterval sets the idle-poll period of the receive path.
// Must be in [MinPollInterval, MaxPollInterval].
func WithPollInterval(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d < MinPollInterval || d > MaxPollInterval {
			return fmt.Errorf("link: poll interval %v out of range [%v, %v]", d, MinPollInterval, MaxPollInterval)
		}
		cfg.pollInterval = d

		return nil
	})
}

// WithReadTimeout bounds each ReadCommand or WaitFor call as a whole.
// Zero waits indefinitely.
func WithReadTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d < 0 {
			return errors.New("link: read timeout must not be negative")
		}
		cfg.readTimeout = d

		return nil
	})
}

// WithLogger sets the logger for the link.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *config) error {
		if l == nil {
			return errors.New("link: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
