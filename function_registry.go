package hive

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Function is a custom helper callable from rule expressions.
type Function func(args ...any) (any, error)

var (
	// ErrFunctionExists indicates a name was registered twice.
	ErrFunctionExists = errors.New("hive: function already registered")
	// ErrUnknownFunction indicates a call to a name nobody registered.
	ErrUnknownFunction = errors.New("hive: function not registered")
)

// FunctionRegistry stores rule helpers keyed by normalized name. Names follow
// the same normalization as node keys, so "Slug" and "slug" collide.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: map[string]Function{}}
}

// Register stores fn under name.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := NormalizeKey(name)
	switch {
	case key == "":
		return fmt.Errorf("hive: function name must not be empty")
	case fn == nil:
		return fmt.Errorf("hive: function %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]Function{}
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("%w: %q", ErrFunctionExists, name)
	}
	r.functions[key] = fn
	return nil
}

// Has reports whether name is registered.
func (r *FunctionRegistry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.functions[NormalizeKey(name)]
	return ok
}

// Call executes the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %q (registry not configured)", ErrUnknownFunction, name)
	}
	r.mu.RLock()
	fn := r.functions[NormalizeKey(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	return fn(args...)
}

// Names returns registered names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clone returns a shallow copy so later registrations do not leak into
// evaluators that were already configured.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]Function, len(r.functions))}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

func (r *FunctionRegistry) bind(name string) func(...any) (any, error) {
	return func(arguments ...any) (any, error) {
		return r.Call(name, arguments...)
	}
}

// WithFunctionRegistry configures the tree's default evaluator to expose the
// functions in registry.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the tree's default evaluator.
// A failed registration (empty name, nil fn, duplicate) is reported by the
// first rule declaration on the tree.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *config) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Register(name, fn); err != nil {
			cfg.functionErrs = append(cfg.functionErrs, err)
		}
	}
}
