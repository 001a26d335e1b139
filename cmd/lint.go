package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/zjrosen/depositform/internal/config"
	"github.com/zjrosen/depositform/internal/resolver"
)

var lintCmd = &cobra.Command{
	Use:   "lint [layout]",
	Short: "Check a layout file",
	Long: `Check that a layout parses, that every component it names is registered,
and that every resource type resolves. Without an argument the configured
layout is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Layout.Path = args[0]
	}
	name := cfg.Layout.Path
	if name == "" {
		name = "embedded layout"
	}

	out := cmd.OutOrStdout()
	f, err := loadLayout(cfg)
	if err == nil {
		err = resolveAll(f)
	}
	if err != nil {
		problems := multierr.Errors(err)
		for _, p := range problems {
			_, _ = fmt.Fprintf(out, "%s: %v\n", name, p)
		}
		return fmt.Errorf("%s: %d problem(s)", name, len(problems))
	}

	_, _ = fmt.Fprintf(out, "%s: ok (%d pages, %d resource types, %d components)\n",
		name, len(f.Layout.Pages), len(f.Layout.ResourceTypes), f.Registry.Len())
	return nil
}

// resolveAll resolves the default layout and every type override.
func resolveAll(f form) error {
	r := resolver.New(f.Layout, f.Registry)
	_, err := r.Resolve("")
	for rt := range f.Layout.FieldsByType {
		if _, rerr := r.Resolve(rt); rerr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", rt, rerr))
		}
	}
	return err
}
