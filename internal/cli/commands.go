package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/goliatone/go-hive"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newGetCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Print the value stored at path, or the subtree when path is a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			ok, err := s.root.Has(path)
			if err != nil {
				return err
			}
			if !ok {
				node, found, err := s.root.Node(path, false)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("%s: %w", path, hive.ErrUnknownEntity)
				}
				exported, err := node.Export()
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), exported)
			}

			value, err := s.root.Get(path)
			if err != nil {
				return err
			}
			switch value.(type) {
			case map[string]any, []any:
				return writeJSON(cmd.OutOrStdout(), value)
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func newHasCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "has <path>",
		Short: "Report whether a value is stored at path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := s.root.Has(args[0])
			if err != nil {
				return err
			}
			if ok {
				color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "true")
				return nil
			}
			color.New(color.FgRed).Fprintln(cmd.OutOrStdout(), "false")
			return nil
		},
	}
}

func newDumpCommand(s *session) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "dump [path]",
		Short: "Export the tree, or the node at path, as JSON or YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := s.target(args)
			if err != nil {
				return err
			}
			exported, err := node.Export()
			if err != nil {
				return err
			}
			switch output {
			case "json":
				return writeJSON(cmd.OutOrStdout(), exported)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(exported); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown output %q (want json or yaml)", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (json, yaml)")
	return cmd
}

func newDescribeCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [path]",
		Short: "List every key below path with its type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := s.target(args)
			if err != nil {
				return err
			}
			writeDescriptors(cmd.OutOrStdout(), node.Describe())
			return nil
		},
	}
}

// target resolves the optional path argument to an existing node.
func (s *session) target(args []string) (hive.Node, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return s.root, nil
	}
	node, ok, err := s.root.Node(args[0], false)
	if err != nil {
		return hive.Node{}, err
	}
	if !ok {
		return hive.Node{}, fmt.Errorf("%s: %w", args[0], hive.ErrUnknownEntity)
	}
	return node, nil
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func writeDescriptors(w io.Writer, fields []hive.FieldDescriptor) {
	header := color.New(color.Bold, color.FgCyan)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header.Fprintln(tw, "PATH\tTYPE\tKIND")
	for _, field := range fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", field.Path, field.Type, field.Kind)
	}
	_ = tw.Flush()
}
