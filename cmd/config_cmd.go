package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/depositform/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		p := configPath()
		if _, err := os.Stat(p); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", p)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", p, err)
		}
		if err := config.WriteDefaultConfig(p); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", p)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one config value, keeping comments and other keys",
	Example: `  depositform config set submit.base_url https://repo.example.org
  depositform config set flags.autosave false
  depositform config set reconcile.max_passes 8`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := configPath()
		if err := config.SetValue(p, args[0], parseValue(args[1])); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], p)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), configPath())
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configSetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// parseValue reads s as a YAML scalar so booleans and numbers keep their
// type. Anything that does not parse stays a string.
func parseValue(s string) any {
	var out any
	if err := yaml.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return s
	}
	switch out.(type) {
	case bool, int, float64, string:
		return out
	}
	return s
}
