package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/goliatone/go-hive"
	"github.com/goliatone/go-hive/pkg/loader"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// buildTree loads files in order, then the config "values" section, then
// --set overrides. Later sources overwrite earlier ones.
func buildTree(cfg Config, v *viper.Viper, logger hive.Logger, trace io.Writer) (hive.Node, error) {
	opts := []hive.Option{hive.WithLogger(logger)}
	if cfg.Declarative {
		opts = append(opts, hive.WithDeclarations())
	}
	root := hive.New(opts...)
	if cfg.Trace && trace != nil {
		root.Attach(traceObserver(trace))
	}

	for _, path := range cfg.Files {
		l, err := loader.File(path)
		if err != nil {
			return hive.Node{}, err
		}
		if err := l.InjectInto(root); err != nil {
			return hive.Node{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if values := v.Sub("values"); values != nil {
		if err := loader.Viper(values).InjectInto(root); err != nil {
			return hive.Node{}, fmt.Errorf("load config values: %w", err)
		}
	}

	for _, assignment := range cfg.Sets {
		key, raw, ok := strings.Cut(assignment, "=")
		if !ok {
			return hive.Node{}, fmt.Errorf("--set %q: want key=value", assignment)
		}
		if err := root.Set(key, parseScalar(raw)); err != nil {
			return hive.Node{}, fmt.Errorf("--set %q: %w", assignment, err)
		}
	}
	return root, nil
}

// parseScalar reads raw as a YAML scalar so numbers and booleans keep their
// type. Anything that does not parse stays a string.
func parseScalar(raw string) any {
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	switch value.(type) {
	case map[string]any, []any:
		return raw
	}
	return value
}

func traceObserver(w io.Writer) hive.Observer {
	stage := color.New(color.FgHiBlack)
	return hive.ObserverFunc(func(o hive.Observation) {
		if o.Stage == hive.StageGet {
			return
		}
		stage.Fprintf(w, "%-11s ", o.Stage)
		fmt.Fprintln(w, o.Path())
	})
}
