package hive

import (
	"fmt"
	"time"
)

type ruleMode uint8

const (
	ruleAssert ruleMode = iota
	ruleTransform
)

func (m ruleMode) String() string {
	if m == ruleTransform {
		return "transform"
	}
	return "assert"
}

// AssertRule compiles expr into a Validator that accepts a value when expr
// evaluates to true. A false result rejects the write with an
// EvaluationError wrapping ErrRejected. Deferred and secured values are not
// evaluated and pass through unchanged.
func AssertRule(evaluator Evaluator, expr string) (Validator, error) {
	return newRuleValidator(evaluator, expr, ruleAssert, RuleContext{}, noopLogger{})
}

// TransformRule compiles expr into a Validator that stores the result of expr
// in place of the incoming value.
func TransformRule(evaluator Evaluator, expr string) (Validator, error) {
	return newRuleValidator(evaluator, expr, ruleTransform, RuleContext{}, noopLogger{})
}

// EntityAssert declares an assertion rule for the key addressed by path using
// the tree's evaluator. Expressions see value, token, path, now and args.
func (n Node) EntityAssert(path, expr string) error {
	return n.entityRule(path, expr, ruleAssert)
}

// EntityTransform declares a transform rule for the key addressed by path
// using the tree's evaluator.
func (n Node) EntityTransform(path, expr string) error {
	return n.entityRule(path, expr, ruleTransform)
}

func (n Node) entityRule(path, expr string, mode ruleMode) error {
	if !n.Valid() {
		return wrapQueryError("entity", path, errDetached)
	}
	if !n.arena.declarative {
		return wrapQueryError("entity", path, ErrNotDeclarative)
	}
	target, token, err := n.entityTarget(path)
	if err != nil {
		return wrapQueryError("entity", path, err)
	}
	evaluator, err := n.arena.resolveEvaluator()
	if err != nil {
		return err
	}
	scope := RuleContext{Token: token, Path: joinPath(target.Path(), token)}
	validator, err := newRuleValidator(evaluator, expr, mode, scope, n.arena.logger)
	if err != nil {
		return err
	}
	return target.Entity(token, validator)
}

// entityTarget resolves path to the node holding the declared key and the
// key itself, materializing intermediate nodes.
func (n Node) entityTarget(path string) (Node, string, error) {
	q, err := n.query(path)
	if err != nil {
		return Node{}, "", fmt.Errorf("%w: %w", ErrUnknownEntity, err)
	}
	target := n
	if q.Root {
		target = n.Root()
	}
	if q.IsTerminal() {
		return target, q.Last, nil
	}
	parent, _, err := target.node(q.Parent(), true)
	if err != nil {
		return Node{}, "", err
	}
	return parent, q.Last, nil
}

func newRuleValidator(evaluator Evaluator, expr string, mode ruleMode, scope RuleContext, logger Logger) (Validator, error) {
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	rule, err := evaluator.Compile(expr)
	if err != nil {
		return nil, err
	}
	engine := evaluatorEngineName(evaluator)

	return func(v Value) (Value, error) {
		if !v.IsPlain() {
			return v, nil
		}
		start := time.Now()
		ctx := scope
		ctx.Value = v.Raw()
		result, err := rule.Evaluate(ctx)
		if err == nil {
			v, err = applyRuleResult(mode, v, result)
		}
		err = wrapEvaluationError(engine, expr, scope.Path, err)
		logger.LogEvent(LogEvent{
			Op:       "rule." + mode.String(),
			Path:     scope.Path,
			Engine:   engine,
			Expr:     expr,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			return Value{}, err
		}
		return v, nil
	}, nil
}

func applyRuleResult(mode ruleMode, v Value, result any) (Value, error) {
	if mode == ruleTransform {
		return ValueOf(result), nil
	}
	accepted, ok := result.(bool)
	switch {
	case !ok:
		return Value{}, fmt.Errorf("%w: assertion returned %T, want bool", ErrIncompatibleValue, result)
	case !accepted:
		return Value{}, fmt.Errorf("%w: %v", ErrRejected, v.Raw())
	}
	return v, nil
}
