package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/santosr2/seccode/internal/policy"
	"github.com/spf13/cobra"
)

var (
	initRuleID     string
	initRuleName   string
	initRuleOutput string
	initRuleForce  bool
)

var initRuleCmd = &cobra.Command{
	Use:   "init-rule",
	Short: "Initialize a new Rego rule",
	Long: `Generate a Rego rule skeleton in the policy directory.

The generated rule compiles as is and flags calls to a method named "exit";
edit its metadata and violated rule to implement the check. Enable the
policy engine in .seccode.yaml to run it.`,
	Example: `  seccode init-rule --id ACME01-J --name "ACME01-J. Do not call exit"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runInitRule(cmd.OutOrStdout())
	},
}

func init() {
	initRuleCmd.Flags().StringVar(&initRuleID, "id", "", "rule ID (required)")
	initRuleCmd.Flags().StringVar(&initRuleName, "name", "", "rule title")
	initRuleCmd.Flags().StringVar(&initRuleOutput, "output", ".seccode/policies", "output directory")
	initRuleCmd.Flags().BoolVar(&initRuleForce, "force", false, "overwrite an existing rule file")
	_ = initRuleCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(initRuleCmd)
}

func runInitRule(w io.Writer) error {
	id := strings.TrimSpace(initRuleID)
	if id == "" {
		return fmt.Errorf("rule ID is required")
	}

	if err := os.MkdirAll(initRuleOutput, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", initRuleOutput, err)
	}

	path := filepath.Join(initRuleOutput, strings.ToLower(id)+".rego")
	if _, err := os.Stat(path); err == nil && !initRuleForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(policy.Scaffold(id, initRuleName)), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(w, "Created %s\n\n", path)
	_, _ = fmt.Fprintln(w, "Try it with:")
	_, _ = fmt.Fprintf(w, "  seccode test-rule %s --fixtures <dir>\n", path)
	return nil
}
