// # internal/binder/registry.go
package binder

import (
	"gradual/internal/types"
)

// Reserved module indexes for synthesized modules; user modules start above.
const (
	idxBuiltins = iota
	idxTyping
	idxEnum
	idxABC
	idxFuture
	// FirstUserModuleIndex is the lowest index callers may pass to Bind.
	FirstUserModuleIndex
)

// Registry resolves dotted module paths to bound modules. It is the sole
// cross-module interface the checker sees and is read-only during a pass.
type Registry struct {
	synthetic map[string]*types.ModuleType
	modules   map[string]*Module
}

func NewRegistry() *Registry {
	classes := newBuiltinClasses()
	return &Registry{
		synthetic: map[string]*types.ModuleType{
			"builtins":   synthesizeBuiltins(classes, idxBuiltins*symbolIDStride),
			"typing":     synthesizeTyping(classes, idxTyping*symbolIDStride),
			"enum":       synthesizeEnum(classes, idxEnum*symbolIDStride),
			"abc":        synthesizeABC(classes, idxABC*symbolIDStride),
			"__future__": synthesizeFuture(idxFuture * symbolIDStride),
		},
		modules: make(map[string]*Module),
	}
}

// Add registers a bound module under its dotted name.
func (r *Registry) Add(m *Module) {
	r.modules[m.Name] = m
}

// Get returns a bound user module.
func (r *Registry) Get(name string) (*Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Modules returns the registered user modules.
func (r *Registry) Modules() map[string]*Module {
	return r.modules
}

// Lookup is the types.ImportLookup for all modules in this registry.
func (r *Registry) Lookup(name string) *types.ModuleType {
	if mod, ok := r.synthetic[name]; ok {
		return mod
	}
	if m, ok := r.modules[name]; ok {
		return m.Type
	}
	return nil
}
