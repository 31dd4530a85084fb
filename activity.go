package hive

import (
	"context"
	"time"

	"github.com/goliatone/go-hive/pkg/activity"
)

// WithActivityHooks forwards value and node lifecycle changes to hooks.
// Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := activity.CloneHooks(hooks)
	return func(cfg *config) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *config) {
		cfg.activityChannel = channel
	}
}

// WithActivityActor stamps actor on every emitted event.
func WithActivityActor(actor activity.Actor) Option {
	return func(cfg *config) {
		cfg.activityActor = actor
	}
}

// activityObserver translates mutation observations into activity events.
// Reads and declarations are not reported.
type activityObserver struct {
	emitter *activity.Emitter
	logger  Logger
}

func newActivityObserver(cfg config, logger Logger) *activityObserver {
	return &activityObserver{
		emitter: activity.NewEmitter(cfg.activityHooks, activity.Config{
			Enabled: true,
			Channel: cfg.activityChannel,
			Actor:   cfg.activityActor,
		}),
		logger: logger,
	}
}

func (o *activityObserver) Observe(observation Observation) {
	input := activity.ValueEventInput{
		Path:       observation.Path(),
		Token:      observation.Token,
		OccurredAt: time.Now(),
	}

	var event activity.Event
	switch observation.Stage {
	case StageSet:
		input.NewValue = reportable(observation.Value)
		event = activity.BuildValueCreatedEvent(input)
	case StageReplace:
		input.OldValue = reportable(observation.Previous)
		input.NewValue = reportable(observation.Value)
		event = activity.BuildValueUpdatedEvent(input)
	case StageDelete:
		input.OldValue = reportable(observation.Previous)
		event = activity.BuildValueDeletedEvent(input)
	case StageCreate:
		event = activity.BuildNodeCreatedEvent(input)
	default:
		return
	}

	start := time.Now()
	if err := o.emitter.Emit(context.Background(), event); err != nil {
		o.logger.LogEvent(LogEvent{
			Op:       "activity",
			Path:     input.Path,
			Duration: time.Since(start),
			Err:      err,
		})
	}
}

// reportable keeps callables out of event metadata; sinks persist it.
func reportable(value any) any {
	switch value.(type) {
	case Callable, func() (any, error):
		return "<callable>"
	default:
		return value
	}
}
