// Package loader reads configuration sources into generic maps.
//
// File reads a TOML or YAML file chosen by extension; EnvLoader maps
// REWIND_* environment variables onto dotted configuration paths. Sources
// are combined with DeepMerge, later sources overriding earlier ones.
package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Loader produces a settings map from one source.
// A missing source yields nil, nil.
type Loader interface {
	Load() (map[string]any, error)
}

// FileSystem is the subset of file operations the loaders need.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
}

// OSFS reads from the operating system.
type OSFS struct{}

// ReadFile implements FileSystem.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat implements FileSystem.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the operating system file system.
func DefaultFS() FileSystem {
	return OSFS{}
}

// File loads one configuration file.
type File struct {
	Path   string
	Format Format
	FS     FileSystem
}

// NewFile returns a loader for path using the format implied by its
// extension. A nil fsys reads from the operating system.
func NewFile(path string, fsys FileSystem) (*File, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	if fsys == nil {
		fsys = DefaultFS()
	}
	return &File{Path: path, Format: format, FS: fsys}, nil
}

// Load implements Loader.
func (f *File) Load() (map[string]any, error) {
	data, err := f.FS.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", f.Path, err)
	}
	return f.Format.parse(f.Path, data)
}

// Read parses settings from r in the file's format.
func (f *File) Read(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return f.Format.parse(f.Path, data)
}

// ParseError reports malformed configuration.
// Line and Column are zero when the decoder does not report a position.
type ParseError struct {
	Path   string
	Format string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("%s: invalid %s at %d:%d: %v", e.Path, e.Format, e.Line, e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("%s: invalid %s at line %d: %v", e.Path, e.Format, e.Line, e.Err)
	default:
		return fmt.Sprintf("%s: invalid %s: %v", e.Path, e.Format, e.Err)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DeepMerge merges src into dst and returns dst. Nested maps merge key by
// key; any other value in src replaces the one in dst.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for key, v := range src {
		sub, ok := v.(map[string]any)
		if cur, isMap := dst[key].(map[string]any); ok && isMap {
			dst[key] = DeepMerge(cur, sub)
			continue
		}
		dst[key] = v
	}
	return dst
}
