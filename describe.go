package hive

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// FieldDescriptor describes a stored key and the type of its content.
type FieldDescriptor struct {
	Path string
	Type string
	// Kind is "plain", "deferred" or "secured".
	Kind string
}

// Export returns the subtree rooted at n as nested maps. Deferred values are
// invoked, secured values are exported as their Callable. When a child node
// and a value share a name the child wins. Export does not notify observers.
func (n Node) Export() (map[string]any, error) {
	if !n.Valid() {
		return nil, wrapQueryError("export", "", errDetached)
	}
	return n.export()
}

func (n Node) export() (map[string]any, error) {
	e := n.entry()
	out := make(map[string]any, len(e.values)+len(e.children))
	for key, value := range e.values {
		resolved, err := value.resolve()
		if err != nil {
			return nil, fmt.Errorf("hive: export %s: %w", joinPath(n.Path(), key), err)
		}
		out[key] = resolved
	}
	for name, id := range e.children {
		child, err := n.at(id).export()
		if err != nil {
			return nil, err
		}
		out[name] = child
	}
	return out, nil
}

// Describe lists every value key below n with its path relative to n, sorted
// by path. Deferred values are described by their callable type and are not
// invoked.
func (n Node) Describe() []FieldDescriptor {
	if !n.Valid() {
		return nil
	}
	fields := n.describe("")
	slices.SortFunc(fields, func(a, b FieldDescriptor) int {
		return strings.Compare(a.Path, b.Path)
	})
	return fields
}

func (n Node) describe(prefix string) []FieldDescriptor {
	e := n.entry()
	var fields []FieldDescriptor
	for key, value := range e.values {
		fields = append(fields, FieldDescriptor{
			Path: joinPath(prefix, key),
			Type: typeName(value.Raw()),
			Kind: kindName(value),
		})
	}
	for name, id := range e.children {
		fields = append(fields, n.at(id).describe(joinPath(prefix, name))...)
	}
	return fields
}

// GetAs resolves path on n and asserts the result to T. A mismatch fails with
// ErrIncompatibleValue.
func GetAs[T any](n Node, path string) (T, error) {
	var zero T
	value, err := n.Get(path)
	if err != nil {
		return zero, err
	}
	if value == nil && nillable(reflect.TypeFor[T]()) {
		return zero, nil
	}
	typed, ok := value.(T)
	if !ok {
		err := fmt.Errorf("%w: have %s, want %s", ErrIncompatibleValue, typeName(value), reflect.TypeFor[T]())
		return zero, wrapQueryError("get", path, err)
	}
	return typed, nil
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

func kindName(v Value) string {
	switch {
	case v.IsDeferred():
		return "deferred"
	case v.IsSecured():
		return "secured"
	default:
		return "plain"
	}
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + Divider + segment
}
