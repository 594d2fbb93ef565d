package modelgraph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeModel(t *testing.T, dir, name, sql string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".sql"), []byte(sql), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCompile_BuildsManifest(t *testing.T) {
	dir := t.TempDir()
	models := filepath.Join(dir, "models")
	writeModel(t, models, "base", "select 1 as id")
	writeModel(t, models, "enriched", "select * from ref('base') where region = '${vars.region}'")

	m, err := Compile(dir, Options{
		Config: map[string]interface{}{"name": "demo"},
		Vars:   map[string]interface{}{"region": "emea"},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if m.Project != "demo" {
		t.Errorf("expected project demo, got %q", m.Project)
	}
	if len(m.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(m.Models))
	}

	enriched := m.Models["enriched"]
	if len(enriched.Refs) != 1 || enriched.Refs[0] != "base" {
		t.Errorf("expected refs [base], got %v", enriched.Refs)
	}
	if !strings.Contains(enriched.CompiledSQL, "emea") {
		t.Errorf("interpolation should have run: %q", enriched.CompiledSQL)
	}
	if strings.Contains(enriched.RawSQL, "emea") {
		t.Error("raw SQL should keep the original expression")
	}
}

func TestCompile_ModelsDirOverride(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, filepath.Join(dir, "transforms"), "only", "select 1")

	m, err := Compile(dir, Options{
		Config: map[string]interface{}{"name": "demo", "models_dir": "transforms"},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if _, ok := m.Models["only"]; !ok {
		t.Errorf("expected model from overridden dir, got %v", m.Models)
	}
}

func TestCompile_UnknownRef(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, filepath.Join(dir, "models"), "orphan", "select * from ref('missing')")

	_, err := Compile(dir, Options{Config: map[string]interface{}{"name": "demo"}})
	if err == nil || !strings.Contains(err.Error(), "unknown model") {
		t.Errorf("expected unknown model error, got %v", err)
	}
}

func TestCompile_ReferenceCycle(t *testing.T) {
	dir := t.TempDir()
	models := filepath.Join(dir, "models")
	writeModel(t, models, "a", "select * from ref('b')")
	writeModel(t, models, "b", "select * from ref('a')")

	_, err := Compile(dir, Options{Config: map[string]interface{}{"name": "demo"}})
	if err == nil || !strings.Contains(err.Error(), "reference cycle") {
		t.Errorf("expected cycle error, got %v", err)
	}
}

func TestCompile_BadExpression(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, filepath.Join(dir, "models"), "broken", "select '${ nope( }'")

	_, err := Compile(dir, Options{Config: map[string]interface{}{"name": "demo"}})
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Errorf("expected expression error naming the model, got %v", err)
	}
}

func TestInterpolator_Expand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		vars     map[string]interface{}
		expected string
	}{
		{
			name:     "plain text untouched",
			input:    "select 1",
			expected: "select 1",
		},
		{
			name:     "var substitution",
			input:    "where dt >= '${vars.start}'",
			vars:     map[string]interface{}{"start": "2026-01-01"},
			expected: "where dt >= '2026-01-01'",
		},
		{
			name:     "arithmetic",
			input:    "limit ${vars.n * 2}",
			vars:     map[string]interface{}{"n": 10},
			expected: "limit 20",
		},
		{
			name:     "empty expression removed",
			input:    "a${}b",
			expected: "ab",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			interp := newInterpolator(tc.vars)
			out, err := interp.expand(tc.input)
			if err != nil {
				t.Fatalf("expand failed: %v", err)
			}
			if out != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, out)
			}
		})
	}
}

func TestInterpolator_ExpandError(t *testing.T) {
	interp := newInterpolator(nil)
	_, err := interp.expand("${ not valid js (}")
	if err == nil {
		t.Error("expected error for invalid expression")
	}
}
