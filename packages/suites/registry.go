package suites

import (
	"sort"

	"github.com/abdul-hamid-achik/hostspec/packages/core/check"
)

// Factory builds a fresh copy of a suite on every call.
type Factory func() *check.Suite

type Registry struct {
	suites map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{
		suites: make(map[string]Factory),
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	r.Register("letsencrypt", Letsencrypt)
}

func (r *Registry) Register(name string, fn Factory) {
	r.suites[name] = fn
}

// Get returns a new instance of the named suite.
func (r *Registry) Get(name string) (*check.Suite, bool) {
	fn, ok := r.suites[name]
	if !ok {
		return nil, false
	}
	return fn(), true
}

// Names lists the registered suites in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.suites))
	for name := range r.suites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// Get looks name up in the default registry.
func Get(name string) (*check.Suite, bool) {
	return defaultRegistry.Get(name)
}

// Names lists the suites in the default registry.
func Names() []string {
	return defaultRegistry.Names()
}
