package project

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ErrInvalidConfig is wrapped by every validation failure so callers
// can match the whole class with errors.Is.
var ErrInvalidConfig = errors.New("invalid project config")

// Config is the flat field view validated before a worker is spawned.
type Config map[string]string

// Warehouses supported as compilation targets.
var warehouses = []string{
	"bigquery",
	"databricks",
	"duckdb",
	"postgres",
	"redshift",
	"snowflake",
	"trino",
}

// Affix fields restricted to a safe identifier charset.
var simpleFields = []string{
	"schema_prefix",
	"schema_suffix",
	"table_prefix",
	"table_suffix",
}

var mandatoryFields = []string{
	"name",
	"version",
}

var simplePattern = regexp.MustCompile(`^[A-Za-z0-9_-]*$`)

// Validate checks cfg against the warehouse allow-list, the affix
// pattern rules and the mandatory-field set, in that order. The first
// violated rule determines the returned error.
func Validate(cfg Config) error {
	if wh, ok := cfg["warehouse"]; ok {
		if !slices.Contains(warehouses, wh) {
			return fmt.Errorf("%w: invalid warehouse %q, expected one of: %s",
				ErrInvalidConfig, wh, strings.Join(warehouses, ", "))
		}
	}

	for _, field := range simpleFields {
		if v, ok := cfg[field]; ok && !simplePattern.MatchString(v) {
			return fmt.Errorf("%w: invalid property %s=%q", ErrInvalidConfig, field, v)
		}
	}

	for _, field := range mandatoryFields {
		if _, ok := cfg[field]; !ok {
			return fmt.Errorf("%w: missing mandatory property %q", ErrInvalidConfig, field)
		}
	}

	return nil
}
