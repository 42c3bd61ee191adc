package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file syntax.
type Format struct {
	Name      string
	Unmarshal func(data []byte, v any) error
	Marshal   func(v any) ([]byte, error)

	// position extracts the line and column of a decode error.
	position func(err error) (line, col int)
}

var (
	// TOML is decoded with go-toml.
	TOML = Format{
		Name:      "toml",
		Unmarshal: toml.Unmarshal,
		Marshal:   toml.Marshal,
		position:  tomlPosition,
	}

	// YAML is decoded with yaml.v3.
	YAML = Format{
		Name:      "yaml",
		Unmarshal: yaml.Unmarshal,
		Marshal:   yaml.Marshal,
		position:  yamlPosition,
	}
)

// FormatFor picks the format for path by extension.
func FormatFor(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	default:
		return Format{}, fmt.Errorf("unsupported config format %q", ext)
	}
}

func (f Format) parse(source string, data []byte) (map[string]any, error) {
	var settings map[string]any
	if err := f.Unmarshal(data, &settings); err != nil {
		perr := &ParseError{Path: source, Format: f.Name, Err: err}
		if f.position != nil {
			perr.Line, perr.Column = f.position(err)
		}
		return nil, perr
	}
	return settings, nil
}

func tomlPosition(err error) (int, int) {
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		return derr.Position()
	}
	return 0, 0
}

// yaml.v3 only reports positions inside the message text.
var yamlLine = regexp.MustCompile(`line (\d+)`)

func yamlPosition(err error) (int, int) {
	m := yamlLine.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, 0
	}
	line, _ := strconv.Atoi(m[1])
	return line, 0
}
