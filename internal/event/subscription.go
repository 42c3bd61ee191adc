package event

import "sync/atomic"

// SubscriptionState represents the state of a subscription.
type SubscriptionState int32

const (
	// SubscriptionStateActive means the subscription is receiving events.
	SubscriptionStateActive SubscriptionState = iota

	// SubscriptionStatePaused means the subscription is temporarily not receiving events.
	SubscriptionStatePaused

	// SubscriptionStateCancelled means the subscription has been permanently cancelled.
	SubscriptionStateCancelled
)

// String returns a human-readable state name.
func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionStateActive:
		return "active"
	case SubscriptionStatePaused:
		return "paused"
	case SubscriptionStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Subscription controls the lifecycle of a registered handler.
type Subscription interface {
	// ID returns the subscription identifier, unique within its registry.
	ID() uint64

	// State returns the current subscription state.
	State() SubscriptionState

	// IsActive returns true if the subscription can receive events.
	IsActive() bool

	// Pause temporarily stops event delivery to this subscription.
	Pause()

	// Resume restarts event delivery after a pause.
	Resume()

	// Cancel permanently removes the subscription.
	Cancel()
}

type subscription[P any] struct {
	id       uint64
	filter   Filter
	handler  Handler[P]
	once     bool
	state    atomic.Int32
	registry *Registry[P]
}

func (s *subscription[P]) ID() uint64 {
	return s.id
}

func (s *subscription[P]) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

func (s *subscription[P]) IsActive() bool {
	return s.State() == SubscriptionStateActive
}

func (s *subscription[P]) Pause() {
	s.state.CompareAndSwap(int32(SubscriptionStateActive), int32(SubscriptionStatePaused))
}

func (s *subscription[P]) Resume() {
	s.state.CompareAndSwap(int32(SubscriptionStatePaused), int32(SubscriptionStateActive))
}

func (s *subscription[P]) Cancel() {
	if SubscriptionState(s.state.Swap(int32(SubscriptionStateCancelled))) == SubscriptionStateCancelled {
		return
	}
	s.registry.remove(s.id)
}

func (s *subscription[P]) matches(k Kind) bool {
	return s.IsActive() && (s.filter == nil || s.filter(k))
}
