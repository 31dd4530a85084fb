package hive

import (
	"fmt"
	"time"
)

// Validator inspects a value before it is stored. The returned value is what
// gets stored; returning an error rejects the write and the error reaches
// the caller of Set unmodified.
type Validator func(Value) (Value, error)

// Transform adapts fn to a Validator. fn receives Value.Raw and its result is
// stored through ValueOf, so returning a Value keeps its kind.
func Transform(fn func(any) (any, error)) Validator {
	if fn == nil {
		return nil
	}
	return func(v Value) (Value, error) {
		out, err := fn(v.Raw())
		if err != nil {
			return Value{}, err
		}
		return ValueOf(out), nil
	}
}

// IsDeclarative reports whether n accepts declarations.
func (n Node) IsDeclarative() bool {
	return n.Valid() && n.arena.declarative
}

// Entity registers validator for the key addressed by path. Intermediate
// nodes up to the node holding the key are materialized. A nil validator
// removes the declaration.
func (n Node) Entity(path string, validator Validator) error {
	if !n.Valid() {
		return wrapQueryError("entity", path, errDetached)
	}
	start := time.Now()
	err := n.entity(path, validator)
	err = wrapQueryError("entity", path, err)
	n.arena.log("entity", path, start, err)
	return err
}

// DefaultEntity sets the validator used for keys without a declaration of
// their own. Children materialized afterwards inherit it; existing children
// are left untouched.
func (n Node) DefaultEntity(validator Validator) error {
	if !n.IsDeclarative() {
		return ErrNotDeclarative
	}
	n.entry().fallback = validator
	return nil
}

// DefaultValidator returns the validator children of n inherit, if any.
func (n Node) DefaultValidator() Validator {
	return n.entry().fallback
}

// Declared reports whether a validator is registered for the key addressed
// by path. The default validator is not taken into account.
func (n Node) Declared(path string) (bool, error) {
	q, err := n.query(path)
	if err != nil {
		return false, wrapQueryError("declared", path, err)
	}
	if q.Root {
		return n.Root().Declared(q.Rootless)
	}
	target := n
	if !q.IsTerminal() {
		node, ok, err := n.node(q.Parent(), false)
		if err != nil || !ok {
			return false, wrapQueryError("declared", path, err)
		}
		target = node
	}
	_, ok := target.entry().declarations[q.Last]
	return ok, nil
}

func (n Node) entity(path string, validator Validator) error {
	if !n.arena.declarative {
		return ErrNotDeclarative
	}
	q, err := n.query(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownEntity, err)
	}
	if q.Root {
		return n.Root().entity(q.Rootless, validator)
	}
	if !q.IsTerminal() {
		target, _, err := n.node(q.Parent(), true)
		if err != nil {
			return err
		}
		return target.entity(q.Last, validator)
	}

	e := n.entry()
	if validator == nil {
		delete(e.declarations, q.First)
		return nil
	}
	if e.declarations == nil {
		e.declarations = map[string]Validator{}
	}
	e.declarations[q.First] = validator
	return nil
}

// cover runs the declaration for token, falling back to the default
// validator. Plain trees store values untouched.
func (n Node) cover(token string, value Value) (Value, error) {
	if !n.arena.declarative {
		return value, nil
	}
	e := n.entry()
	validator := e.declarations[token]
	if validator == nil {
		validator = e.fallback
	}
	if validator == nil {
		return value, nil
	}

	covered, err := validator(value)
	if err != nil {
		return Value{}, &callbackError{err: err}
	}

	n.update(StageDeclaration, func(o *Observation) {
		o.Token = token
		o.Value = covered.Raw()
	})
	return covered, nil
}
