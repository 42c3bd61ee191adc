package loader

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFS is an in-memory FileSystem.
type memFS map[string]string

func (m memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return []byte(data), nil
}

func (m memFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m[path]; !ok {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: os.ErrNotExist}
	}
	return fakeInfo{name: path}, nil
}

type fakeInfo struct{ name string }

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return 0 }
func (f fakeInfo) Mode() fs.FileMode  { return 0o644 }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return false }
func (f fakeInfo) Sys() any           { return nil }

func newFile(t *testing.T, path string, files memFS) *File {
	t.Helper()
	f, err := NewFile(path, files)
	require.NoError(t, err)
	return f
}

func TestFileTOML(t *testing.T) {
	files := memFS{"rewind.toml": `
[history]
capacity = 50
labelPrefix = "edit"

[log]
level = "debug"
`}
	cfg, err := newFile(t, "rewind.toml", files).Load()
	require.NoError(t, err)

	history := cfg["history"].(map[string]any)
	assert.EqualValues(t, 50, history["capacity"])
	assert.Equal(t, "edit", history["labelPrefix"])
	assert.Equal(t, "debug", cfg["log"].(map[string]any)["level"])
}

func TestFileYAML(t *testing.T) {
	files := memFS{"rewind.yaml": "history:\n  capacity: 7\nmetrics:\n  enabled: true\n"}
	cfg, err := newFile(t, "rewind.yaml", files).Load()
	require.NoError(t, err)

	assert.EqualValues(t, 7, cfg["history"].(map[string]any)["capacity"])
	assert.Equal(t, true, cfg["metrics"].(map[string]any)["enabled"])
}

func TestFileMissing(t *testing.T) {
	cfg, err := newFile(t, "absent.toml", memFS{}).Load()
	assert.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestFileParseError(t *testing.T) {
	tests := []struct {
		path     string
		contents string
		format   string
	}{
		{"bad.toml", "[history\ncapacity = 1", "toml"},
		{"bad.yaml", "history:\n  capacity: 1\n log: [", "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := newFile(t, tt.path, memFS{tt.path: tt.contents}).Load()

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.path, perr.Path)
			assert.Equal(t, tt.format, perr.Format)
			assert.Positive(t, perr.Line)
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}

func TestFileRead(t *testing.T) {
	f := newFile(t, "inline.yml", nil)

	cfg, err := f.Read(strings.NewReader("log:\n  level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg["log"].(map[string]any)["level"])

	_, err = f.Read(strings.NewReader("log: [unterminated"))
	var perr *ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"a.toml", "toml", false},
		{"a.TOML", "toml", false},
		{"a.yaml", "yaml", false},
		{"a.yml", "yaml", false},
		{"a.json", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			f, err := FormatFor(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Name)
		})
	}

	_, err := NewFile("a.ini", nil)
	assert.Error(t, err)
}

func TestEnvLoader(t *testing.T) {
	l := NewEnvLoaderFrom(DefaultEnvPrefix, []string{
		"REWIND_CAPACITY=1",
		"REWIND_LOG_LEVEL=error",
		"REWIND_METRICS=yes",
		"REWIND_HISTORY_LABEL_PREFIX=cp",
		"HOME=/root",
		"BROKEN",
	})
	cfg, err := l.Load()
	require.NoError(t, err)

	history := cfg["history"].(map[string]any)
	assert.Equal(t, int64(1), history["capacity"])
	assert.Equal(t, "cp", history["labelPrefix"])
	assert.Equal(t, "error", cfg["log"].(map[string]any)["level"])
	assert.Equal(t, true, cfg["metrics"].(map[string]any)["enabled"])
	assert.NotContains(t, cfg, "home")
}

func TestEnvLoaderCustomMapping(t *testing.T) {
	l := NewEnvLoaderFrom("APP_", []string{"APP_DEPTH=9"})
	l.AddMapping("APP_DEPTH", "history.capacity")
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(9), cfg["history"].(map[string]any)["capacity"])
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", ""},
		{"0", int64(0)},
		{"42", int64(42)},
		{"true", true},
		{"Off", false},
		{"info", "info"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseValue(tt.in), "input %q", tt.in)
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"history": map[string]any{"capacity": 10, "labelPrefix": "snapshot"},
		"log":     map[string]any{"level": "info"},
	}
	src := map[string]any{
		"history": map[string]any{"capacity": 3},
		"log":     "flat",
	}

	got := DeepMerge(dst, src)
	assert.Equal(t, map[string]any{"capacity": 3, "labelPrefix": "snapshot"}, got["history"])
	assert.Equal(t, "flat", got["log"])
	assert.Equal(t, map[string]any{"a": 1}, DeepMerge(nil, map[string]any{"a": 1}))
}
