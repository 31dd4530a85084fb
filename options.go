package hive

import (
	"errors"
	"slices"

	"github.com/goliatone/go-hive/pkg/activity"
)

// Option configures a tree at construction time.
type Option func(*config)

type config struct {
	observers       *ObserverQueue
	logger          Logger
	declarative     bool
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	functionErrs    []error
	activityHooks   activity.Hooks
	activityChannel string
	activityActor   activity.Actor
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if cfg.observers == nil {
		cfg.observers = NewObserverQueue()
	}
	return cfg
}

// New creates the root node of a plain tree.
func New(opts ...Option) Node {
	cfg := applyOptions(opts)
	a := &arena{
		declarative:  cfg.declarative,
		logger:       cfg.logger,
		evaluator:    cfg.evaluator,
		programCache: cfg.programCache,
		functions:    cfg.functions,
		functionsErr: errors.Join(cfg.functionErrs...),
	}
	id := a.allocate("", noParent, cfg.observers, nil)
	root := Node{arena: a, id: id}
	if len(cfg.activityHooks) > 0 {
		root.Attach(newActivityObserver(cfg, a.logger))
	}
	return root
}

// NewDeclarative creates the root node of a tree whose nodes accept
// declarations (Entity, DefaultEntity).
func NewDeclarative(opts ...Option) Node {
	return New(append(slices.Clip(opts), WithDeclarations())...)
}

// WithDeclarations enables validators on every node of the tree.
func WithDeclarations() Option {
	return func(cfg *config) {
		cfg.declarative = true
	}
}

// WithObservers shares queue with the new tree instead of allocating one.
func WithObservers(queue *ObserverQueue) Option {
	return func(cfg *config) {
		cfg.observers = queue
	}
}

// WithEvaluator configures the evaluator used by EntityAssert and
// EntityTransform. The expr evaluator is used when none is configured.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = e
	}
}
