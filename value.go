package hive

// Callable is a zero argument computation stored in a node slot.
type Callable func() (any, error)

type valueKind uint8

const (
	kindPlain valueKind = iota
	kindDeferred
	kindSecured
)

// Value is the tagged content of a node slot: a plain value, a deferred
// computation that runs on every read, or a secured computation that is
// handed back uninvoked. The zero Value is a plain nil.
type Value struct {
	kind  valueKind
	plain any
	fn    Callable
}

// Plain wraps v as a plain value.
func Plain(v any) Value {
	return Value{kind: kindPlain, plain: v}
}

// Defer wraps fn so that every Get invokes it and returns its result. The
// result is never cached.
func Defer(fn Callable) Value {
	return Value{kind: kindDeferred, fn: fn}
}

// Secure wraps fn so that Get returns fn itself instead of invoking it.
func Secure(fn Callable) Value {
	return Value{kind: kindSecured, fn: fn}
}

// ValueOf returns v unchanged when it already is a Value. Zero argument
// functions (Callable, func() (any, error), func() any) become deferred
// values; anything else is wrapped as a plain value.
func ValueOf(v any) Value {
	switch typed := v.(type) {
	case Value:
		return typed
	case *Value:
		if typed == nil {
			return Plain(nil)
		}
		return *typed
	case Callable:
		return Defer(typed)
	case func() (any, error):
		return Defer(typed)
	case func() any:
		return Defer(func() (any, error) { return typed(), nil })
	default:
		return Plain(v)
	}
}

// IsPlain reports whether v holds a plain value.
func (v Value) IsPlain() bool { return v.kind == kindPlain }

// IsDeferred reports whether v is invoked on read.
func (v Value) IsDeferred() bool { return v.kind == kindDeferred }

// IsSecured reports whether v is returned uninvoked on read.
func (v Value) IsSecured() bool { return v.kind == kindSecured }

// Raw returns the plain value or, for deferred and secured values, the
// callable without invoking it.
func (v Value) Raw() any {
	if v.kind == kindPlain {
		return v.plain
	}
	return v.fn
}

func (v Value) resolve() (any, error) {
	switch v.kind {
	case kindDeferred:
		if v.fn == nil {
			return nil, nil
		}
		return v.fn()
	case kindSecured:
		return v.fn, nil
	default:
		return v.plain, nil
	}
}
