package modelgraph

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/dop251/goja"
)

func envLookup(key string) string { return os.Getenv(key) }

// interpolator expands ${...} expressions embedded in model SQL using
// a restricted JavaScript runtime. Project vars are bound as `vars`.
type interpolator struct {
	vm *goja.Runtime
}

func newInterpolator(vars map[string]interface{}) *interpolator {
	vm := goja.New()
	if vars == nil {
		vars = map[string]interface{}{}
	}
	vm.Set("vars", vars)

	vm.Set("env", func(key string) string {
		// Model expressions read environment through this helper so
		// the exposed surface stays a single function.
		return envLookup(key)
	})

	return &interpolator{vm: vm}
}

var exprPattern = regexp.MustCompile(`\$\{([^}]*)\}`)

// expand replaces every ${expr} occurrence with the evaluated result.
// The first failing expression aborts the whole expansion.
func (in *interpolator) expand(sql string) (string, error) {
	var expErr error

	out := exprPattern.ReplaceAllStringFunc(sql, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-1])
		if expr == "" {
			return ""
		}

		v, err := in.vm.RunString(expr)
		if err != nil {
			if expErr == nil {
				expErr = fmt.Errorf("expression %q: %w", expr, err)
			}
			return match
		}
		return v.String()
	})

	if expErr != nil {
		return "", expErr
	}
	return out, nil
}
