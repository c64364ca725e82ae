package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/santosr2/seccode/internal/output"
	"github.com/santosr2/seccode/internal/policy"
	"github.com/santosr2/seccode/internal/rules"
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/spf13/cobra"
)

var rulesDocsOutput string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Rule management commands",
	Long:  `List and document the built-in, plugin and Rego rules.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available rules",
	Long:  `Display every rule of the enabled engines in evaluation order.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rs, err := sessionRules(cmd.Context())
		if err != nil {
			return err
		}
		return listRules(rs, cmd.OutOrStdout())
	},
}

var rulesDocsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Generate rule documentation",
	Long:  `Generate markdown documentation for all rules.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rs, err := sessionRules(cmd.Context())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if rulesDocsOutput != "" {
			f, err := os.Create(rulesDocsOutput)
			if err != nil {
				return fmt.Errorf("creating %s: %w", rulesDocsOutput, err)
			}
			defer func() { _ = f.Close() }()
			w = f
		}
		return writeRuleDocs(rs, w)
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show <rule-id>",
	Short: "Show the details of one rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := sessionRules(cmd.Context())
		if err != nil {
			return err
		}
		for _, r := range rs {
			if strings.EqualFold(r.ID(), strings.TrimSpace(args[0])) {
				showRule(r, cmd.OutOrStdout())
				return nil
			}
		}
		return fmt.Errorf("rule not found: %s", args[0])
	},
}

func init() {
	rulesDocsCmd.Flags().StringVarP(&rulesDocsOutput, "output", "o", "", "write the documentation to a file")

	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesDocsCmd)
	rulesCmd.AddCommand(rulesShowCmd)
	rootCmd.AddCommand(rulesCmd)
}

func sessionRules(ctx context.Context) ([]sdk.Rule, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := loadSession()
	if err != nil {
		return nil, err
	}
	return s.ruleSet(ctx)
}

// ruleSource names where a rule comes from.
func ruleSource(r sdk.Rule) string {
	if _, ok := r.(*policy.Rule); ok {
		return "rego"
	}
	if _, ok := rules.Get(r.ID()); ok {
		return "builtin"
	}
	return "plugin"
}

func fixable(r sdk.Rule) string {
	if _, ok := r.(sdk.Fixer); ok {
		return "yes"
	}
	return "-"
}

func listRules(rs []sdk.Rule, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSEVERITY\tSOURCE\tFIXES\tNAME")
	for _, r := range rs {
		name := strings.TrimSpace(strings.TrimPrefix(r.Name(), r.ID()+"."))
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID(), r.Severity(), ruleSource(r), fixable(r), name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d rule(s)\n", len(rs))
	return err
}

func showRule(r sdk.Rule, w io.Writer) {
	_, _ = fmt.Fprintf(w, "%s\n\n", r.Name())
	_, _ = fmt.Fprintf(w, "ID:        %s\n", r.ID())
	_, _ = fmt.Fprintf(w, "Severity:  %s\n", r.Severity())
	_, _ = fmt.Fprintf(w, "Source:    %s\n", ruleSource(r))
	_, _ = fmt.Fprintf(w, "Fixable:   %s\n", fixable(r))
	if p, ok := r.(*policy.Rule); ok {
		_, _ = fmt.Fprintf(w, "Path:      %s\n", p.Path())
	}
	if uri := output.HelpURI(r); uri != "" {
		_, _ = fmt.Fprintf(w, "Reference: %s\n", uri)
	}
	_, _ = fmt.Fprintf(w, "\n%s\n\nRecommendation:\n%s\n", r.Description(), r.Recommendation())
}

func writeRuleDocs(rs []sdk.Rule, w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("# seccode rules\n\n")
	sb.WriteString("| ID | Severity | Fixable |\n|----|----------|---------|\n")
	for _, r := range rs {
		fmt.Fprintf(&sb, "| [%s](#%s) | %s | %s |\n", r.ID(), strings.ToLower(r.ID()), r.Severity(), fixable(r))
	}

	for _, r := range rs {
		fmt.Fprintf(&sb, "\n## %s\n\n", r.ID())
		fmt.Fprintf(&sb, "**%s**\n\n", r.Name())
		fmt.Fprintf(&sb, "Severity: %s\n\n", r.Severity())
		fmt.Fprintf(&sb, "%s\n\n", r.Description())
		fmt.Fprintf(&sb, "**Recommendation:** %s\n", r.Recommendation())
		if uri := output.HelpURI(r); uri != "" {
			fmt.Fprintf(&sb, "\nSee [%s](%s).\n", r.Name(), uri)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
