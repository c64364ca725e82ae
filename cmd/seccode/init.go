package main

import (
	"fmt"
	"io"
	"os"

	"github.com/santosr2/seccode/internal/config"
	"github.com/spf13/cobra"
)

var (
	initFormat string
	initForce  bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize seccode configuration",
	Long:  `Create a .seccode.yaml (or .seccode.toml) configuration file with the default settings.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runInit(cmd.OutOrStdout())
	},
}

func init() {
	initCmd.Flags().StringVar(&initFormat, "format", "yaml", "config file format (yaml|toml)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

const configHeader = "# seccode configuration\n# See `seccode rules list` for the available rule IDs.\n\n"

func runInit(w io.Writer) error {
	path := cfgFile
	if path == "" {
		switch config.Format(initFormat) {
		case config.FormatYAML:
			path = ".seccode.yaml"
		case config.FormatTOML:
			path = ".seccode.toml"
		default:
			return fmt.Errorf("unsupported format: %s (use yaml or toml)", initFormat)
		}
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	data, err := config.Marshal(config.DefaultConfig(), config.FormatOf(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(w, "Created %s\n", path)
	return nil
}
