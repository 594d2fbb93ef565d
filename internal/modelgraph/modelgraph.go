// Package modelgraph builds the compiled dependency graph of a model
// project. It runs inside the worker process; the parent never calls
// into it directly.
package modelgraph

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Manifest is the compiled form of a model project.
type Manifest struct {
	Project string           `json:"project"`
	Models  map[string]Model `json:"models"`
}

// Model is a single compiled model file.
type Model struct {
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	RawSQL      string   `json:"raw_sql"`
	CompiledSQL string   `json:"compiled_sql"`
	Refs        []string `json:"refs,omitempty"`
}

// Options carries the merged project configuration and interpolation
// variables into a compilation.
type Options struct {
	Config map[string]interface{}
	Vars   map[string]interface{}
}

var refPattern = regexp.MustCompile(`\bref\(\s*['"]([A-Za-z0-9_-]+)['"]\s*\)`)

// Compile walks the project's models directory, interpolates each
// model and extracts ref() edges into a manifest.
func Compile(projectDir string, opts Options) (*Manifest, error) {
	modelsDir := "models"
	if v, ok := opts.Config["models_dir"].(string); ok && v != "" {
		modelsDir = v
	}
	name, _ := opts.Config["name"].(string)

	m := &Manifest{
		Project: name,
		Models:  map[string]Model{},
	}

	interp := newInterpolator(opts.Vars)
	root := filepath.Join(projectDir, modelsDir)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".sql") {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		modelName := strings.TrimSuffix(d.Name(), ".sql")
		compiled, err := interp.expand(string(raw))
		if err != nil {
			return fmt.Errorf("model %s: %w", modelName, err)
		}

		rel, err := filepath.Rel(projectDir, path)
		if err != nil {
			rel = path
		}

		m.Models[modelName] = Model{
			Name:        modelName,
			Path:        rel,
			RawSQL:      string(raw),
			CompiledSQL: compiled,
			Refs:        extractRefs(compiled),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk models dir: %w", err)
	}

	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

func extractRefs(sql string) []string {
	seen := map[string]bool{}
	var refs []string
	for _, match := range refPattern.FindAllStringSubmatch(sql, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			refs = append(refs, match[1])
		}
	}
	sort.Strings(refs)
	return refs
}

// check verifies that every ref resolves and that the graph is acyclic.
func (m *Manifest) check() error {
	for name, model := range m.Models {
		for _, ref := range model.Refs {
			if _, ok := m.Models[ref]; !ok {
				return fmt.Errorf("model %s references unknown model %q", name, ref)
			}
		}
	}

	const (
		white = 0 // unvisited
		grey  = 1 // on the current path
		black = 2 // done
	)
	color := map[string]int{}

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case grey:
			return fmt.Errorf("reference cycle through model %q", name)
		case black:
			return nil
		}
		color[name] = grey
		for _, ref := range m.Models[name].Refs {
			if err := visit(ref); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}

	names := make([]string, 0, len(m.Models))
	for name := range m.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}
