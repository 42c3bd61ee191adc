package engine

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dshills/rewind/internal/config"
	"github.com/dshills/rewind/internal/engine/history"
	"github.com/dshills/rewind/internal/engine/snapshot"
)

type document struct {
	Title string
	Tags  []string
}

func newSession[T any](t *testing.T, initial T, opts ...Option) *Session[T] {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	s, err := New(initial, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func set[T any](v T) func(*T) {
	return func(p *T) { *p = v }
}

func labels(seq func(func(history.Info) bool)) []string {
	var out []string
	for info := range seq {
		out = append(out, info.Label)
	}
	return out
}

func TestScenario(t *testing.T) {
	s := newSession(t, "A")

	_, err := s.Commit("", set("B"))
	require.NoError(t, err)
	_, err = s.Commit("", set("C"))
	require.NoError(t, err)

	id, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, history.SnapshotID(1), id)
	assert.Equal(t, "B", s.Value())

	id, err = s.Undo()
	require.NoError(t, err)
	assert.Equal(t, history.Origin, id)
	assert.Equal(t, "A", s.Value())

	_, err = s.Undo()
	assert.ErrorIs(t, err, history.ErrEmptyHistory)
	assert.Equal(t, "A", s.Value())

	id, err = s.Redo()
	require.NoError(t, err)
	assert.Equal(t, history.SnapshotID(1), id)
	assert.Equal(t, "B", s.Value())
}

func TestCommitIsolatesHistory(t *testing.T) {
	s := newSession(t, document{Title: "draft", Tags: []string{"a"}})

	_, err := s.Commit("tag", func(d *document) { d.Tags = append(d.Tags, "b") })
	require.NoError(t, err)
	require.NoError(t, s.Mutate(func(d *document) { d.Tags[0] = "mutated" }))

	_, err = s.Undo()
	require.NoError(t, err)
	assert.Equal(t, document{Title: "draft", Tags: []string{"a"}}, s.Value())
}

func TestMutateDoesNotCapture(t *testing.T) {
	s := newSession(t, 1)

	require.NoError(t, s.Mutate(set(2)))
	assert.Equal(t, 2, s.Value())
	assert.False(t, s.CanUndo())
	assert.Equal(t, uint64(1), s.Version())
}

func TestNilMutation(t *testing.T) {
	s := newSession(t, 1)

	assert.ErrorIs(t, s.Mutate(nil), ErrNilMutation)
	_, err := s.Commit("", nil)
	assert.ErrorIs(t, err, ErrNilMutation)
	_, err = s.Transaction("", nil)
	assert.ErrorIs(t, err, ErrNilMutation)
}

func TestTransaction(t *testing.T) {
	errLocked := errors.New("locked")

	tests := []struct {
		name      string
		fn        func(*document) error
		wantErr   error
		wantTitle string
		wantUndo  int
	}{
		{
			name: "commits on success",
			fn: func(d *document) error {
				d.Title = "final"
				return nil
			},
			wantTitle: "final",
			wantUndo:  1,
		},
		{
			name: "rolls back on error",
			fn: func(d *document) error {
				d.Title = "half-done"
				d.Tags = append(d.Tags, "partial")
				return errLocked
			},
			wantErr:   errLocked,
			wantTitle: "draft",
			wantUndo:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, document{Title: "draft"})

			_, err := s.Transaction("rename", tt.fn)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			got := s.Value()
			assert.Equal(t, tt.wantTitle, got.Title)
			if tt.wantErr != nil {
				assert.Empty(t, got.Tags)
			}
			assert.Len(t, slices.Collect(s.History()), tt.wantUndo)
		})
	}
}

func TestCaptureWithoutChange(t *testing.T) {
	s := newSession(t, "x")

	first, err := s.Capture("one")
	require.NoError(t, err)
	second, err := s.Capture("two")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, []string{"two", "one"}, labels(s.History()))
}

func TestGeneratedLabels(t *testing.T) {
	s := newSession(t, "secret value",
		WithLabelPrefix("edit"),
		WithRandom(bytes.NewReader(bytes.Repeat([]byte{0xcd}, 64))),
	)

	_, err := s.Commit("", set("another secret"))
	require.NoError(t, err)

	got := labels(s.History())
	require.Len(t, got, 1)
	assert.Regexp(t, `^edit-\d+-cdcdcdcd$`, got[0])
	assert.NotContains(t, got[0], "secret")
}

func TestCapacity(t *testing.T) {
	s := newSession(t, 0, WithCapacity(2))

	var evicted []history.SnapshotID
	s.OnEvict(func(info history.Info) error {
		evicted = append(evicted, info.ID)
		return nil
	})

	for i := 1; i <= 4; i++ {
		_, err := s.Commit("", set(i))
		require.NoError(t, err)
	}
	assert.Equal(t, []history.SnapshotID{1, 2}, evicted)
	assert.Len(t, slices.Collect(s.History()), 2)

	s.SetCapacity(1)
	assert.Equal(t, 1, s.Capacity())
	assert.Equal(t, []history.SnapshotID{1, 2, 3}, evicted)
}

func TestCheckpoints(t *testing.T) {
	s := newSession(t, "a")

	_, err := s.Commit("", set("b"))
	require.NoError(t, err)
	cp := s.Checkpoint()
	_, err = s.Commit("", set("c"))
	require.NoError(t, err)
	_, err = s.Commit("", set("d"))
	require.NoError(t, err)

	require.NoError(t, s.UndoTo(cp))
	assert.Equal(t, "b", s.Value())
	assert.Equal(t, history.StateHasUndoAndRedo, s.State())

	assert.Len(t, slices.Collect(s.RedoHistory()), 2)

	_, err = s.Redo()
	require.NoError(t, err)
	assert.Equal(t, "c", s.Value())
}

func TestClear(t *testing.T) {
	s := newSession(t, "a")

	_, err := s.Commit("", set("b"))
	require.NoError(t, err)
	_, err = s.Commit("", set("c"))
	require.NoError(t, err)
	_, err = s.Undo()
	require.NoError(t, err)

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.UndoCount())
	assert.Equal(t, 0, s.RedoCount())
	assert.Equal(t, "b", s.Value())

	_, err = s.Commit("", set("d"))
	require.NoError(t, err)
	_, err = s.Undo()
	require.NoError(t, err)
	assert.Equal(t, "b", s.Value())
}

func TestApplyConfig(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s, err := New(0, WithLogger(zap.New(core)), WithCapacity(5))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ApplyConfig(config.History{Capacity: 3, LabelPrefix: "x"}))
	assert.Equal(t, 3, s.Capacity())
	assert.Equal(t, 1, logs.FilterMessage("history capacity changed").Len())

	// Unchanged capacity is a no-op
	require.NoError(t, s.ApplyConfig(config.History{Capacity: 3}))
	assert.Equal(t, 1, logs.FilterMessage("history capacity changed").Len())

	err = s.ApplyConfig(config.History{Capacity: -1})
	assert.ErrorIs(t, err, config.ErrValidationFailed)
	assert.Equal(t, 3, s.Capacity())
}

func TestInvalidConfigRejected(t *testing.T) {
	cfg := config.Default()
	cfg.History.Capacity = -2

	_, err := New("x", WithConfig(cfg), WithLogger(zap.NewNop()))
	assert.ErrorIs(t, err, config.ErrValidationFailed)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := config.Default()
	cfg.Metrics.Namespace = "test"
	s := newSession(t, "a", WithConfig(cfg), WithRegisterer(reg))

	_, err := s.Commit("", set("b"))
	require.NoError(t, err)
	_, err = s.Commit("", set("c"))
	require.NoError(t, err)
	_, err = s.Undo()
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "test_history_operations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			values[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, values["capture"])
	assert.Equal(t, 1.0, values["undo"])
	assert.Equal(t, 0.0, values["redo"])

	n, err := testutil.GatherAndCount(reg, "test_history_undo_depth", "test_history_redo_depth")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDuplicateMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	newSession(t, 0, WithRegisterer(reg))

	_, err := New(0, WithRegisterer(reg), WithLogger(zap.NewNop()))
	assert.Error(t, err)
}

func TestLuaHooks(t *testing.T) {
	script := filepath.Join(t.TempDir(), "hooks.lua")
	require.NoError(t, os.WriteFile(script, []byte(`
function on_capture(id, label, ts)
  print("captured " .. id .. " " .. label)
end
function on_undo(id, label, ts)
  error("undo rejected by script")
end
`), 0o644))

	cfg := config.Default()
	cfg.Hooks.Script = script
	core, logs := observer.New(zapcore.InfoLevel)
	s := newSession(t, "a", WithConfig(cfg), WithLogger(zap.New(core)))

	_, err := s.Commit("first", set("b"))
	require.NoError(t, err)

	prints := logs.FilterMessage("lua print").All()
	require.Len(t, prints, 1)
	assert.Equal(t, "captured 1 first", prints[0].ContextMap()["message"])

	// A failing script hook is logged; the undo itself succeeds
	_, err = s.Undo()
	require.NoError(t, err)
	assert.Equal(t, "a", s.Value())
	assert.Equal(t, 1, logs.FilterMessage("history hook failed").Len())
}

func TestMissingHookScript(t *testing.T) {
	cfg := config.Default()
	cfg.Hooks.Script = filepath.Join(t.TempDir(), "missing.lua")

	_, err := New("a", WithConfig(cfg), WithLogger(zap.NewNop()))
	assert.Error(t, err)
}

func TestConfigFileReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewind.toml")
	writeConfig := func(capacity int) {
		cfg := config.Default()
		cfg.History.Capacity = capacity
		data, err := cfg.Marshal(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}
	writeConfig(5)

	s := newSession(t, 0, WithConfigFile(path))
	assert.Equal(t, 5, s.Capacity())

	for i := 1; i <= 5; i++ {
		_, err := s.Commit("", set(i))
		require.NoError(t, err)
	}

	writeConfig(2)
	assert.Eventually(t, func() bool { return s.Capacity() == 2 }, 5*time.Second, 20*time.Millisecond)
	assert.Len(t, slices.Collect(s.History()), 2)
}

func TestNewWithOwner(t *testing.T) {
	owner, err := snapshot.NewOwner([]int{1},
		snapshot.WithCloner(func(v []int) ([]int, error) { return slices.Clone(v), nil }),
	)
	require.NoError(t, err)

	s, err := NewWithOwner(owner, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Commit("", func(v *[]int) { *v = append(*v, 2) })
	require.NoError(t, err)
	_, err = s.Undo()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, owner.Value())
	assert.Same(t, owner, s.Owner())

	_, err = NewWithOwner[int](nil)
	assert.ErrorIs(t, err, ErrNilOwner)
}

func TestClose(t *testing.T) {
	s, err := New("a", WithLogger(zap.NewNop()))
	require.NoError(t, err)
	_, err = s.Commit("", set("b"))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Mutate(set("c")), ErrClosed)
	_, err = s.Commit("", set("c"))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Undo()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Redo()
	assert.ErrorIs(t, err, ErrClosed)

	assert.Equal(t, "b", s.Value())
	assert.True(t, s.CanUndo())
}

func TestConcurrentCommits(t *testing.T) {
	s := newSession(t, 0, WithCapacity(50))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, _ = s.Commit("", func(v *int) { *v++ })
				if i%5 == 4 {
					_, _ = s.Undo()
				}
			}
		}()
	}
	wg.Wait()

	entries := slices.Collect(s.History())
	assert.LessOrEqual(t, len(entries), 50)
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i-1].ID, entries[i].ID)
	}
}

func TestHookMayReadSession(t *testing.T) {
	s := newSession(t, "a")

	var seen []string
	s.OnCapture(func(history.Info) error {
		seen = append(seen, s.Value())
		return nil
	})
	s.OnUndo(func(history.Info) error {
		seen = append(seen, s.Value())
		return nil
	})

	_, err := s.Commit("", set("b"))
	require.NoError(t, err)
	_, err = s.Undo()
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, seen)
}

func TestMetricsReleasedOnClose(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Namespace = "rewind_reopen"

	for i := 0; i < 2; i++ {
		s, err := New("a", WithConfig(cfg), WithLogger(zap.NewNop()))
		require.NoError(t, err, "session %d", i)
		_, err = s.Commit("", set("b"))
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}
}

func TestUncopyableCommitRejected(t *testing.T) {
	s := newSession[any](t, 1)

	_, err := s.Commit("x", func(v *any) { *v = make(chan int) })
	assert.ErrorIs(t, err, snapshot.ErrNotCloneable)
	assert.ErrorIs(t, s.Mutate(func(v *any) { *v = make(chan int) }), snapshot.ErrNotCloneable)
	_, err = s.Transaction("x", func(v *any) error {
		*v = make(chan int)
		return nil
	})
	assert.ErrorIs(t, err, snapshot.ErrNotCloneable)

	assert.Equal(t, 1, s.Value())
	assert.Equal(t, 0, s.UndoCount())

	// The session is still usable
	_, err = s.Commit("y", set[any](2))
	require.NoError(t, err)
	_, err = s.Undo()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Value())
}

func TestHookMayCaptureAgain(t *testing.T) {
	s := newSession(t, "a")

	s.OnCapture(func(info history.Info) error {
		if info.Label == "outer" {
			_, err := s.Capture("nested")
			return err
		}
		return nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.Commit("outer", set("b"))
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("commit did not return")
	}
	assert.Equal(t, []string{"nested", "outer"}, labels(s.History()))
}

func TestTransactionKeepsLabelSequence(t *testing.T) {
	s := newSession(t, 0, WithRandom(bytes.NewReader(bytes.Repeat([]byte{0xab}, 64))))

	_, err := s.Commit("", set(1))
	require.NoError(t, err)
	_, err = s.Transaction("", func(v *int) error {
		*v = 99
		return errors.New("rejected")
	})
	require.Error(t, err)
	_, err = s.Commit("", set(2))
	require.NoError(t, err)

	got := labels(s.History())
	require.Len(t, got, 2)
	assert.Regexp(t, `^snapshot-3-`, got[0])
	assert.Regexp(t, `^snapshot-2-`, got[1])
}

func TestUndoToWithConcurrentCommits(t *testing.T) {
	s := newSession(t, 0)

	_, err := s.Commit("", set(1))
	require.NoError(t, err)
	cp := s.Checkpoint()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_, _ = s.Commit("", func(v *int) { *v++ })
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				assert.NoError(t, s.UndoTo(cp))
			}
		}()
	}
	wg.Wait()

	require.NoError(t, s.UndoTo(cp))
	assert.Equal(t, 1, s.Value())
	assert.Equal(t, cp.ID(), s.history.Active().ID)
}
