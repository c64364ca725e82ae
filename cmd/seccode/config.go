package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/santosr2/seccode/internal/config"
	"github.com/spf13/cobra"
)

var (
	configOutputFormat  string
	profileInherits     string
	profileDisableRules []string
	profileThreshold    string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long: `Manage seccode configuration files.

Use subcommands to show or validate the configuration and to add profiles.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show resolved configuration",
	Long: `Display the final configuration after imports, environment overrides
and the selected profile have been applied.`,
	Example: `  # Show resolved config
  seccode config show

  # Show the ci profile as TOML
  seccode config show --profile ci --format toml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runConfigShow(cmd.OutOrStdout())
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the configuration file and all imports.

This command checks for syntax errors, invalid values, unknown profiles and
circular profile inheritance.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runConfigValidate(cmd.OutOrStdout())
	},
}

var configInitProfileCmd = &cobra.Command{
	Use:   "init-profile <name>",
	Short: "Initialize a new configuration profile",
	Long:  `Add a profile to the config file, creating the file when needed.`,
	Args:  cobra.ExactArgs(1),
	Example: `  # Create a CI profile that only runs HIGH severity rules
  seccode config init-profile ci --severity-threshold high

  # Create a profile without the environment variable rule
  seccode config init-profile local --disable-rule ENV02-J`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigInitProfile(args[0], cmd.OutOrStdout())
	},
}

func init() {
	configShowCmd.Flags().StringVar(&configOutputFormat, "format", "yaml", "output format (yaml|toml|json)")
	configInitProfileCmd.Flags().StringVar(&profileInherits, "inherits", "", "profile to inherit from")
	configInitProfileCmd.Flags().StringSliceVar(&profileDisableRules, "disable-rule", nil, "rule IDs the profile disables")
	configInitProfileCmd.Flags().StringVar(&profileThreshold, "severity-threshold", "", "severity threshold of the profile")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitProfileCmd)
	rootCmd.AddCommand(configCmd)
}

// configPath returns the file config commands edit.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	for _, p := range config.DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return config.DefaultPaths[0]
}

func runConfigShow(w io.Writer) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if profile != "" {
		if err := cfg.ApplyProfile(profile); err != nil {
			return err
		}
	}

	var out []byte
	switch f := strings.ToLower(configOutputFormat); f {
	case "json":
		out, err = json.MarshalIndent(cfg, "", "  ")
		out = append(out, '\n')
	case "yaml", "toml":
		out, err = config.Marshal(cfg, config.Format(f))
	default:
		return fmt.Errorf("unsupported format: %s (use yaml, toml or json)", configOutputFormat)
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	_, err = w.Write(out)
	return err
}

func runConfigValidate(w io.Writer) error {
	path := configPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("configuration file not found: %s", path)
	}

	_, _ = fmt.Fprintf(w, "Validating configuration: %s\n\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		_, _ = fmt.Fprintln(w, "[!] Validation failed:")
		_, _ = fmt.Fprintf(w, "    %v\n", err)
		return err
	}

	if !cfg.Engines.Builtin.Enabled && !cfg.Engines.Policy.Enabled && !cfg.Plugins.Enabled {
		_, _ = fmt.Fprintln(w, "[!] Validation warnings:")
		_, _ = fmt.Fprintln(w, "    - no rule source is enabled")
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintln(w, "[+] Configuration is valid")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Configuration summary:")
	_, _ = fmt.Fprintf(w, "  Version: %d\n", cfg.Version)
	_, _ = fmt.Fprintf(w, "  Severity threshold: %s\n", cfg.Threshold())
	_, _ = fmt.Fprintln(w, "  Engines enabled:")
	if cfg.Engines.Builtin.Enabled {
		_, _ = fmt.Fprintln(w, "    - builtin")
	}
	if cfg.Engines.Policy.Enabled {
		_, _ = fmt.Fprintln(w, "    - policy")
	}
	if disabled := cfg.DisabledRules(); len(disabled) > 0 {
		_, _ = fmt.Fprintf(w, "  Disabled rules: %s\n", strings.Join(disabled, ", "))
	}
	if names := cfg.ProfileNames(); len(names) > 0 {
		_, _ = fmt.Fprintf(w, "  Profiles: %d\n", len(names))
		for _, name := range names {
			_, _ = fmt.Fprintf(w, "    - %s\n", name)
		}
	}
	return nil
}

func runConfigInitProfile(name string, w io.Writer) error {
	path := configPath()

	cfg := config.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if cfg, err = config.Load(path); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]config.Profile)
	}
	if _, exists := cfg.Profiles[name]; exists {
		return fmt.Errorf("profile '%s' already exists", name)
	}

	cfg.Profiles[name] = config.Profile{
		Description:       fmt.Sprintf("%s profile", name),
		Inherits:          profileInherits,
		Engines:           cfg.Engines,
		DisabledRules:     profileDisableRules,
		SeverityThreshold: profileThreshold,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	out, err := config.Marshal(cfg, config.FormatOf(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	_, _ = fmt.Fprintf(w, "Created profile '%s' in %s\n\n", name, path)
	_, _ = fmt.Fprintf(w, "Use it with: seccode check --profile %s\n", name)
	return nil
}
