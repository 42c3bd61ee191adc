package engine

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dshills/rewind/internal/config"
	"github.com/dshills/rewind/internal/engine/snapshot"
)

// Option configures a Session during creation.
type Option func(*settings)

type settings struct {
	cfg        config.Config
	cfgSet     bool
	cfgPath    string
	logger     *zap.Logger
	registerer prometheus.Registerer
	rand       io.Reader
	now        func() time.Time
	id         snapshot.OwnerID
}

func defaultSettings() settings {
	return settings{cfg: config.Default()}
}

// WithConfig applies cfg. Without WithLogger the session logs according
// to cfg.Log.
func WithConfig(cfg config.Config) Option {
	return func(s *settings) {
		s.cfg = cfg
		s.cfgSet = true
	}
}

// WithConfigFile loads the configuration at path and watches it for
// changes for the lifetime of the session.
func WithConfigFile(path string) Option {
	return func(s *settings) {
		s.cfgPath = path
	}
}

// WithCapacity bounds the undo stack. Zero means unbounded.
func WithCapacity(k int) Option {
	return func(s *settings) {
		if k >= 0 {
			s.cfg.History.Capacity = k
		}
	}
}

// WithLabelPrefix sets the prefix of generated snapshot labels.
func WithLabelPrefix(prefix string) Option {
	return func(s *settings) {
		if prefix != "" {
			s.cfg.History.LabelPrefix = prefix
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegisterer exports history metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *settings) {
		s.registerer = reg
	}
}

// WithRandom sets the randomness source for snapshot labels.
func WithRandom(r io.Reader) Option {
	return func(s *settings) {
		s.rand = r
	}
}

// WithClock sets the clock used for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOwnerID fixes the owner identity instead of generating one.
func WithOwnerID(id snapshot.OwnerID) Option {
	return func(s *settings) {
		s.id = id
	}
}
