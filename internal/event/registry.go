package event

import (
	"runtime/debug"
	"sync"
)

// Registry holds subscriptions and dispatches events to them.
type Registry[P any] struct {
	mu     sync.RWMutex
	subs   []*subscription[P]
	nextID uint64

	onError ErrorHandler
}

// NewRegistry creates an empty registry.
func NewRegistry[P any](opts ...Option) *Registry[P] {
	var cfg registryConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry[P]{onError: cfg.onError}
}

// SetErrorHandler replaces the function receiving handler failures.
func (r *Registry[P]) SetErrorHandler(h ErrorHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = h
}

// Subscribe registers handler for the kinds matched by filter.
// A nil filter matches every kind.
func (r *Registry[P]) Subscribe(filter Filter, handler Handler[P], opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	var cfg subscriptionConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	sub := &subscription[P]{
		id:       r.nextID,
		filter:   filter,
		handler:  handler,
		once:     cfg.once,
		registry: r,
	}
	r.subs = append(r.subs, sub)
	return sub, nil
}

// On registers handler for a single kind.
func (r *Registry[P]) On(kind Kind, handler Handler[P], opts ...SubscriptionOption) (Subscription, error) {
	return r.Subscribe(Only(kind), handler, opts...)
}

// Count returns the number of registered subscriptions.
func (r *Registry[P]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Clear cancels all subscriptions.
func (r *Registry[P]) Clear() {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()

	for _, s := range subs {
		s.state.Store(int32(SubscriptionStateCancelled))
	}
}

// Dispatch delivers e to every matching subscription in registration order.
// Handler failures are reported to the error handler and returned; they never
// stop delivery to later subscriptions.
func (r *Registry[P]) Dispatch(e Event[P]) []error {
	r.mu.RLock()
	subs := make([]*subscription[P], len(r.subs))
	copy(subs, r.subs)
	onError := r.onError
	r.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if !s.matches(e.Kind) {
			continue
		}
		if s.once {
			s.Cancel()
		}
		if err := s.invoke(e); err != nil {
			errs = append(errs, err)
			if onError != nil {
				onError(err)
			}
		}
	}
	return errs
}

func (r *Registry[P]) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.subs {
		if s.id == id {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return
		}
	}
}

// invoke runs the handler, converting panics to PanicError.
func (s *subscription[P]) invoke(e Event[P]) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{
				SubscriptionID: s.id,
				Kind:           e.Kind,
				Value:          v,
				Stack:          string(debug.Stack()),
			}
		}
	}()

	if herr := s.handler(e); herr != nil {
		return &HandlerError{SubscriptionID: s.id, Kind: e.Kind, Err: herr}
	}
	return nil
}
