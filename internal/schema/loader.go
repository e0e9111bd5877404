package schema

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Format names accepted by Parse.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatCUE  = "cue"
)

// FormatFromPath infers the configuration format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unsupported schema file extension %q", filepath.Ext(path))
	}
}

// Load reads, validates and binds the schema file at path.
func Load(path string, reg *Registry) (*Model, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	cfg, err := ParseConfig(data, format, path)
	if err != nil {
		return nil, err
	}
	return New(cfg, reg)
}

// ParseConfig decodes raw configuration. filename only labels CUE diagnostics.
//
// JSON is decoded by the YAML decoder, which keeps mapping order. CUE is evaluated, required
// to be concrete, and exported to JSON (declaration order) before the same decoding step.
func ParseConfig(data []byte, format, filename string) (*Config, error) {
	switch format {
	case FormatYAML, FormatJSON:
	case FormatCUE:
		exported, err := exportCUE(data, filename)
		if err != nil {
			return nil, err
		}
		data = exported
	default:
		return nil, fmt.Errorf("unsupported schema format %q", format)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	return &cfg, nil
}

func exportCUE(data []byte, filename string) ([]byte, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE schema: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE schema is not concrete: %w", err)
	}
	out, err := value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export CUE schema: %w", err)
	}
	return out, nil
}
