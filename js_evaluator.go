//go:build js_eval

package hive

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	registry *FunctionRegistry
	programs programSet[*goja.Program]
}

// NewJSEvaluator constructs an Evaluator backed by goja. Each registered
// function is bound as a global next to call(name, ...args).
func NewJSEvaluator(opts ...EvaluatorOption) Evaluator {
	cfg := applyEvaluatorOptions(opts)
	e := &jsEvaluator{registry: cfg.registry}
	e.programs = programSet[*goja.Program]{
		engine: "js",
		cache:  cfg.cache,
		compile: func(expression string) (*goja.Program, error) {
			return goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", expression), false)
		},
		run: e.run,
	}
	return e
}

func (e *jsEvaluator) Engine() string { return "js" }

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	return e.programs.evaluate(ctx, expression)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	return e.programs.rule(expression)
}

// run executes program on a fresh runtime; goja runtimes are not shareable.
func (e *jsEvaluator) run(ctx RuleContext, program *goja.Program) (any, error) {
	vm := goja.New()
	for name, value := range ctx.bindings() {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}
	if e.registry != nil {
		if err := vm.Set("call", func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}); err != nil {
			return nil, err
		}
		for _, name := range e.registry.Names() {
			if err := vm.Set(name, e.registry.bind(name)); err != nil {
				return nil, err
			}
		}
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool {
	return true
}
