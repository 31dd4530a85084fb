package hive

import "time"

// LogEvent describes one tree operation or rule evaluation for logging.
type LogEvent struct {
	Op       string
	Path     string
	Engine   string
	Expr     string
	Duration time.Duration
	Err      error
}

// Logger records hive events.
type Logger interface {
	LogEvent(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogEvent implements Logger.
func (f LoggerFunc) LogEvent(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogEvent(LogEvent) {}

// WithLogger attaches logger to the tree. Every node of the tree shares it.
func WithLogger(logger Logger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

func (a *arena) log(op, path string, start time.Time, err error) {
	a.logger.LogEvent(LogEvent{
		Op:       op,
		Path:     path,
		Duration: time.Since(start),
		Err:      err,
	})
}
