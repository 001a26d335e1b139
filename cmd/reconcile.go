package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/depositform/internal/config"
	"github.com/zjrosen/depositform/internal/reconcile"
	"github.com/zjrosen/depositform/internal/resolver"
	"github.com/zjrosen/depositform/internal/store"
	"github.com/zjrosen/depositform/internal/validation"
)

// reconcileReport is the output of the reconcile command.
type reconcileReport struct {
	PagesWithErrors reconcile.PageErrors `yaml:"pages_with_errors" json:"pages_with_errors"`
	PagesFlagged    reconcile.PageErrors `yaml:"pages_flagged" json:"pages_flagged"`
	ToFlag          []string             `yaml:"to_flag,omitempty" json:"to_flag,omitempty"`
	Unflagged       []string             `yaml:"unflagged,omitempty" json:"unflagged,omitempty"`
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <record>",
	Short: "Map a record's errors onto the form pages",
	Long: `Load a record file with its server errors, validate it, and report which
pages hold errors and which pages carry unresolved server errors.

The record file is YAML or JSON with a values key and an optional errors
list of {field, messages} entries.`,
	Example: `  depositform reconcile draft.yaml
  depositform reconcile draft.json --touch metadata.title --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringSlice("touch", nil, "value paths to mark as touched before reconciling")
	reconcileCmd.Flags().StringP("format", "f", "yaml", "output format: yaml or json")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	f, err := loadLayout(cfg)
	if err != nil {
		return err
	}
	validator, err := newValidator(cfg, f.Layout)
	if err != nil {
		return err
	}
	values, serverErrs, err := loadRecord(args[0])
	if err != nil {
		return err
	}

	ix, err := resolver.New(f.Layout, f.Registry).Resolve(validation.ResourceType(values))
	if err != nil {
		return err
	}

	st := store.New(values, serverErrs, validator)
	defer st.Close()
	if touch, _ := cmd.Flags().GetStringSlice("touch"); len(touch) > 0 {
		st.TouchAll(touch)
	}

	ctrl := reconcile.NewController(st, f.Layout.Pages, ix,
		reconcile.WithMaxPasses(cfg.Reconcile.MaxPasses),
		reconcile.WithOptions(reconcile.Options{Matching: cfg.Matching()}),
	)
	res, ok := ctrl.Sync(cmd.Context())
	if !ok {
		return fmt.Errorf("reconcile pass did not run")
	}

	format, _ := cmd.Flags().GetString("format")
	return writeReport(cmd.OutOrStdout(), format, reconcileReport{
		PagesWithErrors: nonNil(res.PagesWithErrors),
		PagesFlagged:    nonNil(res.PagesWithFlaggedErrors),
		ToFlag:          res.ToFlag,
		Unflagged:       res.Unflagged,
	})
}

func nonNil(pe reconcile.PageErrors) reconcile.PageErrors {
	if pe == nil {
		return reconcile.PageErrors{}
	}
	return pe
}
