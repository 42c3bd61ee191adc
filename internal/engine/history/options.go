package history

import "go.uber.org/zap"

// Option configures a Manager during creation.
type Option func(*config)

type config struct {
	capacity int
	logger   *zap.Logger
	deferred bool
}

// WithCapacity bounds the undo stack to k entries. k <= 0 means unbounded.
func WithCapacity(k int) Option {
	return func(c *config) {
		c.capacity = max(k, 0)
	}
}

// WithLogger sets the logger used for hook failures and evictions.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDeferredHooks queues hook events instead of delivering them inside
// Capture, Undo, Redo and SetCapacity. The caller delivers them with
// DeliverHooks once it has released its own locks.
func WithDeferredHooks() Option {
	return func(c *config) {
		c.deferred = true
	}
}
