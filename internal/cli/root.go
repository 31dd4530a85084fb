package cli

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/goliatone/go-hive"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
)

// session holds what PersistentPreRunE resolved for the subcommand.
type session struct {
	viper      *viper.Viper
	configFile string
	cfg        Config
	root       hive.Node
	flush      func()
}

// NewRootCommand creates the hivectl command tree.
func NewRootCommand() *cobra.Command {
	s := &session{viper: viper.New(), flush: func() {}}

	rootCmd := &cobra.Command{
		Use:   "hivectl",
		Short: "Inspect hive trees built from JSON, YAML and config values",
		Long: color.CyanString(`hivectl - hive tree inspector

Loads JSON and YAML files into a hive tree, applies config values and
--set overrides, then queries the result with dotted paths.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return s.open(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			s.flush()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&s.configFile, "config", "", "config file (default ./hivectl.yaml)")
	flags.StringSliceP("file", "f", nil, "JSON or YAML file to load, repeatable")
	flags.StringArray("set", nil, "override a value as key=value, repeatable")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.Bool("declarative", false, "build a declarative tree")
	flags.Bool("trace", false, "print tree mutations to stderr")

	rootCmd.AddCommand(newGetCommand(s))
	rootCmd.AddCommand(newHasCommand(s))
	rootCmd.AddCommand(newDumpCommand(s))
	rootCmd.AddCommand(newDescribeCommand(s))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func (s *session) open(cmd *cobra.Command) error {
	cfg, err := loadConfig(s.viper, cmd, s.configFile)
	if err != nil {
		return err
	}
	logger, flush, err := newLogger(cfg)
	if err != nil {
		return err
	}
	root, err := buildTree(cfg, s.viper, logger, cmd.ErrOrStderr())
	if err != nil {
		flush()
		return err
	}
	s.cfg, s.root, s.flush = cfg, root, flush
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			title := color.New(color.FgCyan, color.Bold)
			out := cmd.OutOrStdout()
			title.Fprint(out, "hivectl version: ")
			fmt.Fprintln(out, Version)
			title.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)
			title.Fprint(out, "Go version: ")
			fmt.Fprintln(out, runtime.Version())
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
