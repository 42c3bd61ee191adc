package engine

import (
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dshills/rewind/internal/config"
	"github.com/dshills/rewind/internal/config/watcher"
	"github.com/dshills/rewind/internal/engine/history"
	"github.com/dshills/rewind/internal/engine/snapshot"
	"github.com/dshills/rewind/internal/event"
	"github.com/dshills/rewind/internal/logging"
	"github.com/dshills/rewind/internal/metrics"
	"github.com/dshills/rewind/internal/plugin/lua"
)

// Session binds a state owner to its history.
//
// All operations are thread-safe and can be called from multiple goroutines.
type Session[T any] struct {
	mu     sync.Mutex
	closed bool

	owner   *snapshot.Owner[T]
	history *history.Manager[T]
	logger  *zap.Logger

	// Attachments released by Close, in reverse order
	subs    []event.Subscription
	metrics *metrics.Metrics
	hooks   *lua.Hooks
	watcher *watcher.Watcher
}

// New creates a session whose owner holds a private copy of initial.
func New[T any](initial T, opts ...Option) (*Session[T], error) {
	st, err := resolve(opts)
	if err != nil {
		return nil, err
	}

	ownerOpts := []snapshot.Option[T]{
		snapshot.WithLabeler[T](snapshot.NewSequenceLabeler(st.cfg.History.LabelPrefix, st.rand)),
		snapshot.WithClock[T](st.now),
	}
	if st.id != uuid.Nil {
		ownerOpts = append(ownerOpts, snapshot.WithID[T](st.id))
	}
	owner, err := snapshot.NewOwner(initial, ownerOpts...)
	if err != nil {
		return nil, err
	}
	return build(owner, st)
}

// NewWithOwner creates a session around an existing owner. Options that
// shape the owner (label prefix, randomness, clock, owner id) are ignored.
func NewWithOwner[T any](owner *snapshot.Owner[T], opts ...Option) (*Session[T], error) {
	if owner == nil {
		return nil, ErrNilOwner
	}
	st, err := resolve(opts)
	if err != nil {
		return nil, err
	}
	return build(owner, st)
}

func resolve(opts []Option) (settings, error) {
	st := defaultSettings()
	for _, opt := range opts {
		opt(&st)
	}

	if st.cfgPath != "" {
		cfg, err := config.Load(st.cfgPath)
		if err != nil {
			return st, fmt.Errorf("loading config: %w", err)
		}
		st.cfg = cfg
		st.cfgSet = true
	}
	if err := st.cfg.Validate(); err != nil {
		return st, err
	}

	if st.logger == nil {
		st.logger = zap.NewNop()
		if st.cfgSet {
			l, err := logging.New(st.cfg.Log)
			if err != nil {
				return st, err
			}
			st.logger = l
		}
	}
	return st, nil
}

func build[T any](owner *snapshot.Owner[T], st settings) (s *Session[T], err error) {
	s = &Session[T]{
		owner:  owner,
		logger: st.logger,
	}
	s.history = history.New[T](owner,
		history.WithCapacity(st.cfg.History.Capacity),
		history.WithLogger(st.logger),
		history.WithDeferredHooks(),
	)

	// Release whatever was attached if a later step fails
	defer func() {
		if err != nil {
			_ = s.Close()
			s = nil
		}
	}()

	if err = s.attachMetrics(st); err != nil {
		return s, fmt.Errorf("metrics: %w", err)
	}
	if err = s.attachHooks(st); err != nil {
		return s, fmt.Errorf("hooks: %w", err)
	}
	if err = s.watch(st); err != nil {
		return s, fmt.Errorf("watching config: %w", err)
	}

	s.logger.Debug("session created",
		zap.Stringer("owner", owner.ID()),
		zap.Int("capacity", s.history.Capacity()),
	)
	return s, nil
}

func (s *Session[T]) attachMetrics(st settings) error {
	reg := st.registerer
	if reg == nil {
		if !st.cfg.Metrics.Enabled {
			return nil
		}
		reg = prometheus.DefaultRegisterer
	}

	m, err := metrics.New(reg, st.cfg.Metrics.Namespace)
	if err != nil {
		return err
	}
	s.metrics = m
	sub, err := m.Attach(s.history)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Session[T]) attachHooks(st settings) error {
	if st.cfg.Hooks.Script == "" {
		return nil
	}

	h, err := lua.LoadHooks(st.cfg.Hooks.Script, lua.WithLogger(s.logger))
	if err != nil {
		return err
	}
	s.hooks = h

	sub, err := h.Attach(s.history)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	s.logger.Info("hook script loaded",
		zap.String("script", st.cfg.Hooks.Script),
		zap.Int("hooks", len(h.Kinds())),
	)
	return nil
}

func (s *Session[T]) watch(st settings) error {
	if st.cfgPath == "" {
		return nil
	}

	w, err := watcher.New(st.cfgPath, watcher.WithLogger(s.logger))
	if err != nil {
		return err
	}
	s.watcher = w
	return w.OnChange(func(cfg config.Config) {
		if err := s.ApplyConfig(cfg.History); err != nil {
			s.logger.Warn("config reload not applied", zap.Error(err))
		}
	})
}

// Value returns a copy of the current value.
func (s *Session[T]) Value() T {
	return s.owner.Value()
}

// Version returns the owner's mutation counter.
func (s *Session[T]) Version() uint64 {
	return s.owner.Version()
}

// Owner returns the underlying state owner.
func (s *Session[T]) Owner() *snapshot.Owner[T] {
	return s.owner
}

// exclusive runs fn as the single writer and delivers the hook events it
// produced once the session is unlocked, so hooks may call back into the
// session.
func (s *Session[T]) exclusive(fn func() error) error {
	defer s.history.DeliverHooks()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return fn()
}

// Mutate changes the value without recording history.
// A result the owner cannot copy is rejected with snapshot.ErrNotCloneable
// and the value is left unchanged.
func (s *Session[T]) Mutate(fn func(v *T)) error {
	if fn == nil {
		return ErrNilMutation
	}
	return s.exclusive(func() error {
		return s.owner.Update(fn)
	})
}

// Commit applies fn and captures the result in one step. If the result
// cannot be copied nothing changes and the error is returned.
func (s *Session[T]) Commit(label string, fn func(v *T)) (history.SnapshotID, error) {
	if fn == nil {
		return history.Origin, ErrNilMutation
	}
	id := history.Origin
	err := s.exclusive(func() error {
		if err := s.owner.Update(fn); err != nil {
			return err
		}
		id = s.history.Capture(label)
		return nil
	})
	return id, err
}

// Transaction applies fn and captures the result. If fn returns an error
// the value is restored to what it was before the call, nothing is
// captured and the error is returned.
func (s *Session[T]) Transaction(label string, fn func(v *T) error) (history.SnapshotID, error) {
	if fn == nil {
		return history.Origin, ErrNilMutation
	}
	id := history.Origin
	err := s.exclusive(func() error {
		before := s.owner.Value()
		var fnErr error
		if err := s.owner.Update(func(v *T) { fnErr = fn(v) }); err != nil {
			return errors.Join(fnErr, err)
		}
		if fnErr != nil {
			if err := s.owner.Set(before); err != nil {
				return errors.Join(fnErr, fmt.Errorf("rollback: %w", err))
			}
			return fnErr
		}
		id = s.history.Capture(label)
		return nil
	})
	return id, err
}

// Capture records the current value.
func (s *Session[T]) Capture(label string) (history.SnapshotID, error) {
	id := history.Origin
	err := s.exclusive(func() error {
		id = s.history.Capture(label)
		return nil
	})
	return id, err
}

// Undo steps back one entry. See history.Manager.Undo.
func (s *Session[T]) Undo() (history.SnapshotID, error) {
	id := history.Origin
	err := s.exclusive(func() (err error) {
		id, err = s.history.Undo()
		return err
	})
	return id, err
}

// Redo steps forward one entry. See history.Manager.Redo.
func (s *Session[T]) Redo() (history.SnapshotID, error) {
	id := history.Origin
	err := s.exclusive(func() (err error) {
		id, err = s.history.Redo()
		return err
	})
	return id, err
}

// UndoTo undoes until cp is the active entry.
func (s *Session[T]) UndoTo(cp history.Checkpoint) error {
	return s.exclusive(func() error {
		return s.history.UndoToCheckpoint(cp)
	})
}

// RedoTo redoes until cp is the active entry.
func (s *Session[T]) RedoTo(cp history.Checkpoint) error {
	return s.exclusive(func() error {
		return s.history.RedoToCheckpoint(cp)
	})
}

// Checkpoint marks the active entry.
func (s *Session[T]) Checkpoint() history.Checkpoint {
	return s.history.CreateCheckpoint()
}

// History yields the undo stack, most recent first.
func (s *Session[T]) History() iter.Seq[history.Info] {
	return s.history.History()
}

// RedoHistory yields the redo stack, next redo first.
func (s *Session[T]) RedoHistory() iter.Seq[history.Info] {
	return s.history.RedoHistory()
}

// State reports which operations are currently possible.
func (s *Session[T]) State() history.State {
	return s.history.State()
}

// CanUndo reports whether Undo would succeed.
func (s *Session[T]) CanUndo() bool {
	return s.history.CanUndo()
}

// CanRedo reports whether Redo would succeed.
func (s *Session[T]) CanRedo() bool {
	return s.history.CanRedo()
}

// UndoCount returns the number of entries that can be undone.
func (s *Session[T]) UndoCount() int {
	return s.history.UndoCount()
}

// RedoCount returns the number of entries that can be redone.
func (s *Session[T]) RedoCount() int {
	return s.history.RedoCount()
}

// Clear drops all history and makes the current value the new baseline.
func (s *Session[T]) Clear() error {
	return s.exclusive(func() error {
		s.history.Clear()
		return nil
	})
}

// SetCapacity changes the undo stack bound, evicting immediately if needed.
func (s *Session[T]) SetCapacity(k int) {
	defer s.history.DeliverHooks()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.SetCapacity(k)
}

// Capacity returns the undo stack bound. Zero means unbounded.
func (s *Session[T]) Capacity() int {
	return s.history.Capacity()
}

// ApplyConfig applies the parts of a history configuration that can change
// on a live session. The label prefix is fixed at creation.
func (s *Session[T]) ApplyConfig(h config.History) error {
	if h.Capacity < 0 {
		return fmt.Errorf("%w: history.capacity must not be negative", config.ErrValidationFailed)
	}

	return s.exclusive(func() error {
		if old := s.history.Capacity(); old != h.Capacity {
			s.history.SetCapacity(h.Capacity)
			s.logger.Info("history capacity changed",
				zap.Int("old", old),
				zap.Int("new", h.Capacity),
			)
		}
		return nil
	})
}

// OnCapture registers fn to run after every capture.
func (s *Session[T]) OnCapture(fn history.Callback) event.Subscription {
	return s.history.OnCapture(fn)
}

// OnUndo registers fn to run after every successful undo.
func (s *Session[T]) OnUndo(fn history.Callback) event.Subscription {
	return s.history.OnUndo(fn)
}

// OnRedo registers fn to run after every successful redo.
func (s *Session[T]) OnRedo(fn history.Callback) event.Subscription {
	return s.history.OnRedo(fn)
}

// OnEvict registers fn to run for every entry dropped by the capacity bound.
func (s *Session[T]) OnEvict(fn history.Callback) event.Subscription {
	return s.history.OnEvict(fn)
}

// Subscribe registers handler for the kinds accepted by filter.
func (s *Session[T]) Subscribe(filter event.Filter, handler event.Handler[history.Info]) (event.Subscription, error) {
	return s.history.Subscribe(filter, handler)
}

// Close stops the config watcher, detaches metrics and hooks and rejects
// further mutations. Reads keep working. Close is idempotent.
func (s *Session[T]) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Close())
	}
	for i := len(s.subs) - 1; i >= 0; i-- {
		s.subs[i].Cancel()
	}
	if s.metrics != nil {
		s.metrics.Unregister()
	}
	if s.hooks != nil {
		errs = append(errs, s.hooks.Close())
	}
	_ = s.logger.Sync()
	return errors.Join(errs...)
}
