package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"
)

// FromFile loads a settings map from a file, choosing the format by extension.
// Supported extensions: .yaml, .yml, .json, .hcl
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	case ".hcl":
		return FromHCL(data, filepath.Base(path))
	default:
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses a YAML mapping.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON parses a JSON object.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}

// FromHCL parses top-level HCL attributes. Blocks are rejected.
// Attribute expressions are evaluated without variables or functions.
func FromHCL(data []byte, filename string) (Config, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("parse hcl %s: %w", filename, diags)
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("decode hcl %s: %w", filename, diags)
	}

	m := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return Config{}, fmt.Errorf("evaluate %s in %s: %w", name, filename, diags)
		}
		raw, err := ctyjson.Marshal(val, val.Type())
		if err != nil {
			return Config{}, fmt.Errorf("convert %s in %s: %w", name, filename, err)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return Config{}, fmt.Errorf("convert %s in %s: %w", name, filename, err)
		}
		m[name] = v
	}
	return New(m), nil
}

// WriteFile stores data in path using the format implied by the extension.
// HCL output is not supported.
func WriteFile(path string, data map[string]any) error {
	var (
		out []byte
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		out, err = yaml.Marshal(data)
	case ".json":
		out, err = json.MarshalIndent(data, "", "  ")
	default:
		return fmt.Errorf("unsupported config file extension for writing: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
