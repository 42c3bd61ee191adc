package event

// Option configures a Registry.
type Option func(*registryConfig)

type registryConfig struct {
	onError ErrorHandler
}

// WithErrorHandler sets the function receiving handler failures.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *registryConfig) {
		c.onError = h
	}
}

// SubscriptionOption configures a single subscription.
type SubscriptionOption func(*subscriptionConfig)

type subscriptionConfig struct {
	once bool
}

// WithOnce cancels the subscription after its first delivery.
func WithOnce() SubscriptionOption {
	return func(c *subscriptionConfig) {
		c.once = true
	}
}
