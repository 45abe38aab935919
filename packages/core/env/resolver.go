package env

import (
	"os"
	"regexp"
	"strings"
	"sync"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// WarnFunc is called for every placeholder that cannot be resolved.
type WarnFunc func(format string, args ...any)

// Resolver substitutes {{name}} placeholders. Later SetVariables calls
// override earlier ones, so callers layer config, dotenv and suite values in
// increasing precedence.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]string
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]string),
	}
}

func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) SetVariables(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) GetVariable(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variables[name]
	return v, ok
}

// Resolve replaces every placeholder in input. Unresolved placeholders are
// left in place and reported through the warn func.
func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])

		if name, ok := strings.CutPrefix(expr, "$"); ok {
			if val, ok := os.LookupEnv(name); ok {
				return val
			}
			r.warn("unresolved environment variable: $%s", name)
			return match
		}

		if val, ok := r.GetVariable(expr); ok {
			return val
		}

		r.warn("unresolved variable: %s", expr)
		return match
	})
}

// Unresolved lists the placeholders Resolve would leave in input.
func (r *Resolver) Unresolved(input string) []string {
	var names []string
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		if name, ok := strings.CutPrefix(expr, "$"); ok {
			if _, ok := os.LookupEnv(name); !ok {
				names = append(names, expr)
			}
			continue
		}
		if _, ok := r.GetVariable(expr); !ok {
			names = append(names, expr)
		}
	}
	return names
}
