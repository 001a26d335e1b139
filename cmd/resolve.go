package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/depositform/internal/config"
	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/registry"
	"github.com/zjrosen/depositform/internal/resolver"
)

// pageReport is one page of the resolve output.
type pageReport struct {
	Page       layout.PageID          `yaml:"page" json:"page"`
	Label      string                 `yaml:"label" json:"label"`
	Components []registry.ComponentID `yaml:"components" json:"components"`
	Fields     []string               `yaml:"fields" json:"fields"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the fields each page governs for a resource type",
	Long: `Resolve the active layout of every page for a resource type and print the
value paths each page governs, in page order.`,
	Example: `  depositform resolve --type textDocument-journalArticle
  depositform resolve --type dataset --format json`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringP("type", "t", "", "resource type (default: the layout defaults)")
	resolveCmd.Flags().StringP("format", "f", "yaml", "output format: yaml or json")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	f, err := loadLayout(cfg)
	if err != nil {
		return err
	}

	rtFlag, _ := cmd.Flags().GetString("type")
	format, _ := cmd.Flags().GetString("format")
	rt := layout.ResourceType(rtFlag)

	r := resolver.New(f.Layout, f.Registry)
	ix, err := r.Resolve(rt)
	if err != nil {
		return err
	}

	reports := make([]pageReport, 0, len(f.Layout.Pages))
	for _, p := range f.Layout.Pages {
		descs, err := r.ActiveLayout(rt, p.ID)
		if err != nil {
			return err
		}
		rep := pageReport{Page: p.ID, Label: p.Label, Fields: ix[p.ID]}
		for _, d := range layout.Leaves(descs) {
			rep.Components = append(rep.Components, d.Component)
		}
		if rep.Fields == nil {
			rep.Fields = []string{}
		}
		reports = append(reports, rep)
	}
	return writeReport(cmd.OutOrStdout(), format, reports)
}

func writeReport(w io.Writer, format string, report any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return fmt.Errorf("unknown format %q (want yaml or json)", format)
}
