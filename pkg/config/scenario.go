// pkg/config/scenario.go
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a scenario file encoding
type Format string

// Supported scenario formats
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the encoding from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unsupported scenario format %q", filepath.Ext(path))
}

// LoadScenario loads a scenario from a JSON, YAML or TOML file. Sections
// the file omits keep their defaults.
func LoadScenario(path string) (*Scenario, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario file: %w", err)
	}

	s, err := DecodeScenario(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	return s, nil
}

// DecodeScenario decodes a scenario in the given format on top of the
// default world, step and render settings.
func DecodeScenario(data []byte, format Format) (*Scenario, error) {
	s := baseScenario()
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, s)
	case FormatYAML:
		err = yaml.Unmarshal(data, s)
	case FormatTOML:
		err = toml.Unmarshal(data, s)
	default:
		err = fmt.Errorf("unsupported scenario format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// EncodeScenario encodes a scenario in the given format
func EncodeScenario(s *Scenario, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(s, "", "  ")
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatTOML:
		return toml.Marshal(s)
	}
	return nil, fmt.Errorf("unsupported scenario format %q", format)
}

// SaveScenario writes a scenario to a file, encoded by its extension
func SaveScenario(s *Scenario, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	data, err := EncodeScenario(s, format)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write scenario file: %w", err)
	}

	return nil
}
