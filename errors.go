package hive

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidQuery indicates an empty or malformed query string.
	ErrInvalidQuery = errors.New("hive: invalid query")
	// ErrUnknownEntity indicates a query resolved to a missing node or key.
	ErrUnknownEntity = errors.New("hive: unknown entity")
	// ErrIncompatibleValue indicates a value that cannot be stored in, or read
	// from, a node slot as requested.
	ErrIncompatibleValue = errors.New("hive: incompatible value")
	// ErrEmptyNodeName indicates an identity was requested for a blank name.
	ErrEmptyNodeName = errors.New("hive: node name must not be empty")
	// ErrIdentityConsumed indicates an identity was used to build more than one node.
	ErrIdentityConsumed = errors.New("hive: identity already consumed")
	// ErrNotDeclarative indicates a declaration was issued against a plain tree.
	ErrNotDeclarative = errors.New("hive: node is not aware of declarations")
	// ErrRejected indicates an assertion rule refused a value.
	ErrRejected = errors.New("hive: value rejected")
	// ErrNoEvaluator indicates no rule evaluator could be resolved.
	ErrNoEvaluator = errors.New("hive: evaluator not configured")
)

// QueryError records the operation and query that produced a resolution
// failure. It unwraps to one of the package sentinels.
type QueryError struct {
	Op    string
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("hive: %s %s: %s", e.Op, describeQuery(e.Query), strings.TrimPrefix(errorText(e.Err), "hive: "))
}

func (e *QueryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeQuery(query string) string {
	if strings.TrimSpace(query) == "" {
		return "query=<empty>"
	}
	return fmt.Sprintf("query=%q", query)
}

func errorText(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

// callbackError carries an error raised by caller supplied code (validators,
// deferred values) through the resolution recursion so it can be handed back
// to the caller untouched.
type callbackError struct {
	err error
}

func (e *callbackError) Error() string { return e.err.Error() }

func (e *callbackError) Unwrap() error { return e.err }

// wrapQueryError attaches op/query metadata to resolution failures. Callback
// errors are returned unmodified and existing QueryErrors are kept as-is.
func wrapQueryError(op, query string, err error) error {
	if err == nil {
		return nil
	}

	var cbErr *callbackError
	if errors.As(err, &cbErr) {
		return cbErr.err
	}

	var queryErr *QueryError
	if errors.As(err, &queryErr) {
		return err
	}

	return &QueryError{
		Op:    op,
		Query: query,
		Err:   err,
	}
}

// EvaluationError captures rule evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Path   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("hive: %s evaluator %s path=%s: %v", e.Engine, describeExpression(e.Expr), describePath(e.Path), e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func describePath(path string) string {
	if path == "" {
		return "<none>"
	}
	return path
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "hive:") {
		return err
	}
	return fmt.Errorf("hive: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, path string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Path == "" {
			evalErr.Path = path
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Path:   path,
		Err:    err,
	}
}
