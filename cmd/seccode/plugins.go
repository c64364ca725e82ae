package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/santosr2/seccode/internal/plugins"
	"github.com/spf13/cobra"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Plugin management commands",
	Long: `Manage seccode plugins.

Plugins extend seccode with custom rules and output formatters. They are Go
shared libraries (.so files) exporting PluginMetadata and New.

Plugin directories can be configured in .seccode.yaml:

  plugins:
    enabled: true
    directories:
      - ~/.seccode/plugins
      - ./plugins`,
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed plugins",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		if !s.cfg.Plugins.Enabled {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Plugins are not enabled in configuration")
			return nil
		}
		return listPlugins(s.plugins, s.cfg.Plugins.Directories, cmd.OutOrStdout())
	},
}

var pluginsInfoCmd = &cobra.Command{
	Use:   "info <plugin-name>",
	Short: "Show detailed information about a plugin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		p, ok := s.plugins.Plugin(args[0])
		if !ok {
			return fmt.Errorf("plugin not found: %s", args[0])
		}
		showPlugin(p, cmd.OutOrStdout())
		return nil
	},
}

func init() {
	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsInfoCmd)
	rootCmd.AddCommand(pluginsCmd)
}

func listPlugins(mgr *plugins.Manager, dirs []string, w io.Writer) error {
	list := mgr.ListPlugins()
	if len(list) == 0 {
		_, _ = fmt.Fprintln(w, "No plugins installed")
		_, _ = fmt.Fprintln(w, "\nPlugin directories searched:")
		for _, dir := range dirs {
			_, _ = fmt.Fprintf(w, "  - %s\n", dir)
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tVERSION\tTYPE\tPROVIDES\tDESCRIPTION")
	for _, p := range list {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.Metadata.Name,
			p.Metadata.Version,
			p.Metadata.Type,
			strings.Join(p.Provides, ","),
			p.Metadata.Description,
		)
	}
	return tw.Flush()
}

func showPlugin(p *plugins.Plugin, w io.Writer) {
	_, _ = fmt.Fprintf(w, "Name:        %s\n", p.Metadata.Name)
	_, _ = fmt.Fprintf(w, "Version:     %s\n", p.Metadata.Version)
	_, _ = fmt.Fprintf(w, "Type:        %s\n", p.Metadata.Type)
	_, _ = fmt.Fprintf(w, "Description: %s\n", p.Metadata.Description)
	_, _ = fmt.Fprintf(w, "Author:      %s\n", p.Metadata.Author)
	_, _ = fmt.Fprintf(w, "Path:        %s\n", p.Metadata.Path)

	switch p.Metadata.Type {
	case plugins.PluginTypeRule:
		_, _ = fmt.Fprintf(w, "\nRules (%d):\n", len(p.Provides))
	case plugins.PluginTypeFormatter:
		_, _ = fmt.Fprintln(w, "\nFormat:")
	}
	for _, name := range p.Provides {
		_, _ = fmt.Fprintf(w, "  - %s\n", name)
	}
}
