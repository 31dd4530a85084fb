package hive

import (
	"errors"
	"strings"
	"time"
)

// RuleContext carries the inputs a rule expression is evaluated against.
type RuleContext struct {
	// Value is the raw incoming value.
	Value any
	// Token is the key the value is being stored under.
	Token string
	// Path is the absolute path of the key.
	Path string
	Now  *time.Time
	Args map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

// bindings returns the variables every engine exposes to expressions.
func (ctx RuleContext) bindings() map[string]any {
	ctx = ctx.withDefaults()
	return map[string]any{
		"value": ctx.Value,
		"token": ctx.Token,
		"path":  ctx.Path,
		"now":   *ctx.Now,
		"args":  ctx.Args,
	}
}

// Evaluator executes rule expressions against a rule context.
type Evaluator interface {
	// Engine names the expression language, e.g. "expr" or "cel".
	Engine() string
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// EvaluatorOption configures any of the bundled evaluators.
type EvaluatorOption func(*evaluatorConfig)

type evaluatorConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// EvaluatorWithProgramCache memoizes compiled programs in cache.
func EvaluatorWithProgramCache(cache ProgramCache) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.cache = cache
	}
}

// EvaluatorWithFunctionRegistry exposes the functions of registry to
// expressions. The registry is cloned, later registrations are not seen.
func EvaluatorWithFunctionRegistry(registry *FunctionRegistry) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		if registry != nil {
			cfg.registry = registry.Clone()
		}
	}
}

func applyEvaluatorOptions(opts []EvaluatorOption) evaluatorConfig {
	cfg := evaluatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

var errEmptyExpression = errors.New("expression must not be empty")

// programSet compiles expressions of one engine into programs of type P and
// memoizes them in the optional cache.
type programSet[P any] struct {
	engine  string
	cache   ProgramCache
	compile func(expr string) (P, error)
	run     func(ctx RuleContext, program P) (any, error)
}

func (s programSet[P]) load(expr string) (P, error) {
	var zero P
	if strings.TrimSpace(expr) == "" {
		return zero, wrapEvaluatorError(s.engine, errEmptyExpression)
	}
	key := cacheKey(s.engine, expr)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			if program, ok := cached.(P); ok {
				return program, nil
			}
		}
	}
	program, err := s.compile(expr)
	if err != nil {
		return zero, wrapEvaluationError(s.engine, expr, "", err)
	}
	if s.cache != nil {
		s.cache.Set(key, program)
	}
	return program, nil
}

func (s programSet[P]) rule(expr string) (CompiledRule, error) {
	program, err := s.load(expr)
	if err != nil {
		return nil, err
	}
	return compiledRule[P]{set: s, expr: expr, program: program}, nil
}

func (s programSet[P]) evaluate(ctx RuleContext, expr string) (any, error) {
	rule, err := s.rule(expr)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

type compiledRule[P any] struct {
	set     programSet[P]
	expr    string
	program P
}

func (r compiledRule[P]) Evaluate(ctx RuleContext) (any, error) {
	result, err := r.set.run(ctx.withDefaults(), r.program)
	if err != nil {
		return nil, wrapEvaluationError(r.set.engine, r.expr, ctx.Path, err)
	}
	return result, nil
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if engine := e.Engine(); engine != "" {
		return engine
	}
	return "custom"
}

// resolveEvaluator returns the tree's evaluator, building the default expr
// evaluator on first use. Custom functions that failed to register are
// reported here.
func (a *arena) resolveEvaluator() (Evaluator, error) {
	if a.functionsErr != nil {
		return nil, a.functionsErr
	}
	if a.evaluator != nil {
		return a.evaluator, nil
	}
	evaluator := NewExprEvaluator(
		EvaluatorWithProgramCache(a.programCache),
		EvaluatorWithFunctionRegistry(a.functions),
	)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	a.evaluator = evaluator
	return evaluator, nil
}
