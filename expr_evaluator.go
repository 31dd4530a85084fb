package hive

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprEvaluator runs rule expressions with github.com/expr-lang/expr.
type exprEvaluator struct {
	registry *FunctionRegistry
	programs programSet[*exprvm.Program]
}

// NewExprEvaluator constructs the default Evaluator. Registered functions are
// callable by name and through call("name", args...).
func NewExprEvaluator(opts ...EvaluatorOption) Evaluator {
	cfg := applyEvaluatorOptions(opts)
	e := &exprEvaluator{registry: cfg.registry}
	e.programs = programSet[*exprvm.Program]{
		engine:  "expr",
		cache:   cfg.cache,
		compile: e.compile,
		run: func(ctx RuleContext, program *exprvm.Program) (any, error) {
			return exprlang.Run(program, ctx.bindings())
		},
	}
	return e
}

func (e *exprEvaluator) Engine() string { return "expr" }

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	return e.programs.evaluate(ctx, expression)
}

func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	return e.programs.rule(expression)
}

func (e *exprEvaluator) compile(expression string) (*exprvm.Program, error) {
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if e.registry != nil {
		options = append(options, exprlang.Function("call", e.call))
		for _, name := range e.registry.Names() {
			options = append(options, exprlang.Function(name, e.registry.bind(name)))
		}
	}
	return exprlang.Compile(expression, options...)
}

// call dispatches call("name", args...) to the registry.
func (e *exprEvaluator) call(params ...any) (any, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: call requires a function name", ErrUnknownFunction)
	}
	name, ok := params[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: call name must be a string, got %T", ErrUnknownFunction, params[0])
	}
	return e.registry.Call(name, params[1:]...)
}
