package hive

import (
	"sync"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

type celEvaluator struct {
	registry *FunctionRegistry
	programs programSet[celgo.Program]

	envOnce sync.Once
	env     *celgo.Env
	envErr  error
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Registered
// functions are reachable as call("name", [args...]).
func NewCELEvaluator(opts ...EvaluatorOption) Evaluator {
	cfg := applyEvaluatorOptions(opts)
	e := &celEvaluator{registry: cfg.registry}
	e.programs = programSet[celgo.Program]{
		engine:  "cel",
		cache:   cfg.cache,
		compile: e.compile,
		run: func(ctx RuleContext, program celgo.Program) (any, error) {
			out, _, err := program.Eval(ctx.bindings())
			if err != nil {
				return nil, err
			}
			return out.Value(), nil
		},
	}
	return e
}

func (e *celEvaluator) Engine() string { return "cel" }

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	return e.programs.evaluate(ctx, expression)
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	return e.programs.rule(expression)
}

func (e *celEvaluator) compile(expression string) (celgo.Program, error) {
	env, err := e.environment()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return env.Program(ast)
}

// environment declares the variables every rule sees. The variable set is
// fixed, so the env is built once per evaluator.
func (e *celEvaluator) environment() (*celgo.Env, error) {
	e.envOnce.Do(func() {
		opts := []celgo.EnvOption{
			celgo.Variable("value", celgo.DynType),
			celgo.Variable("token", celgo.StringType),
			celgo.Variable("path", celgo.StringType),
			celgo.Variable("now", celgo.TimestampType),
			celgo.Variable("args", celgo.MapType(celgo.StringType, celgo.DynType)),
		}
		if e.registry != nil {
			opts = append(opts, celgo.Function("call",
				celgo.Overload("call_string_list",
					[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
					celgo.DynType,
					celgo.BinaryBinding(e.callBinding),
				),
			))
		}
		e.env, e.envErr = celgo.NewEnv(opts...)
	})
	return e.env, e.envErr
}

func (e *celEvaluator) callBinding(nameVal, argsVal ref.Val) ref.Val {
	name, ok := nameVal.Value().(string)
	if !ok {
		return types.NewErr("hive: call name must be string")
	}
	var args []any
	if lister, ok := argsVal.(traits.Lister); ok {
		size, _ := lister.Size().Value().(int64)
		args = make([]any, 0, size)
		for i := int64(0); i < size; i++ {
			args = append(args, lister.Get(types.Int(i)).Value())
		}
	}
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}
