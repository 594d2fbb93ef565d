// Package project loads and validates meshc model project configuration.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file expected in the project root.
const FileName = "meshproject.yml"

// ConfigFileError reports an unreadable or unparsable project file.
type ConfigFileError struct {
	Path string
	Err  error
}

func (e *ConfigFileError) Error() string {
	return fmt.Sprintf("project config %s: %v", e.Path, e.Err)
}

func (e *ConfigFileError) Unwrap() error { return e.Err }

// Project is the merged view of the on-disk project file and any
// caller-supplied overrides.
type Project struct {
	raw map[string]interface{}
}

// Load reads the project file from dir, parses it as YAML and merges
// overrides on top. Override fields take precedence; nested maps are
// combined rather than replaced.
func Load(dir string, overrides map[string]interface{}) (*Project, error) {
	path := filepath.Join(dir, FileName)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigFileError{Path: path, Err: err}
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigFileError{Path: path, Err: err}
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}

	return &Project{raw: deepMerge(raw, overrides)}, nil
}

// Raw returns the merged configuration document.
func (p *Project) Raw() map[string]interface{} { return p.raw }

// Fields returns the flat view of top-level scalar fields that the
// validator inspects. Nested structures are not part of that view.
func (p *Project) Fields() Config {
	cfg := make(Config, len(p.raw))
	for k, v := range p.raw {
		switch v.(type) {
		case map[string]interface{}, []interface{}, nil:
		default:
			cfg[k] = fmt.Sprint(v)
		}
	}
	return cfg
}

func deepMerge(base, override map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if bm, ok := out[k].(map[string]interface{}); ok {
			if om, ok := v.(map[string]interface{}); ok {
				out[k] = deepMerge(bm, om)
				continue
			}
		}
		out[k] = v
	}
	return out
}
