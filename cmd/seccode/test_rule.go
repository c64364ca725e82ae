package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/santosr2/seccode/internal/engine"
	"github.com/santosr2/seccode/internal/policy"
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	testRuleFixtures string
	testRuleExpect   string
)

var testRuleCmd = &cobra.Command{
	Use:   "test-rule <rule.rego>",
	Short: "Test a Rego rule against fixtures",
	Long: `Run one Rego rule against the tree documents of a fixtures directory and
compare its violations with an expectations file.

The expectations file (YAML or JSON) lists the violations the rule must
report; every field but rule is optional:

  violations:
    - rule: ACME01-J
      file: Exit.java
      line: 3
      column: 9`,
	Example: `  seccode test-rule .seccode/policies/acme01-j.rego --fixtures testdata --expect testdata/expected.yaml`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		return runTestRule(cmd.Context(), s, args[0], cmd.OutOrStdout())
	},
}

func init() {
	testRuleCmd.Flags().StringVar(&testRuleFixtures, "fixtures", "testdata", "fixtures directory")
	testRuleCmd.Flags().StringVar(&testRuleExpect, "expect", "", "expected violations file (YAML or JSON)")
	rootCmd.AddCommand(testRuleCmd)
}

// ExpectedViolation is one violation a rule must report.
type ExpectedViolation struct {
	Rule   string `yaml:"rule" json:"rule"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
	Line   int    `yaml:"line,omitempty" json:"line,omitempty"`
	Column int    `yaml:"column,omitempty" json:"column,omitempty"`
}

// ExpectedResults represents expected test results.
type ExpectedResults struct {
	Violations []ExpectedViolation `yaml:"violations" json:"violations"`
}

func runTestRule(ctx context.Context, s *session, rulePath string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := os.Stat(rulePath); err != nil {
		return fmt.Errorf("rule file not found: %s", rulePath)
	}
	if filepath.Ext(rulePath) != ".rego" {
		return fmt.Errorf("unsupported rule type: %s", filepath.Ext(rulePath))
	}

	loaded, err := policy.Load(ctx, &policy.Config{PolicyFiles: []string{rulePath}, Logger: s.log})
	if err != nil {
		return err
	}
	if len(loaded) == 0 {
		return fmt.Errorf("no rule loaded from %s", rulePath)
	}

	_, _ = fmt.Fprintf(w, "Testing rule: %s (%s)\n\n", loaded[0].ID(), rulePath)

	var fixtures []string
	if _, err := os.Stat(testRuleFixtures); err == nil {
		if fixtures, err = findTreeFiles([]string{testRuleFixtures}); err != nil {
			return fmt.Errorf("finding fixtures: %w", err)
		}
	}
	if len(fixtures) == 0 {
		return fmt.Errorf("no tree documents found in %s", testRuleFixtures)
	}

	eng := engine.New(&engine.Config{Rules: loaded, Logger: s.log})
	results, err := eng.Run(ctx, fixtures)
	if err != nil {
		return err
	}
	if errs := engine.Errors(results); len(errs) > 0 {
		return errs[0]
	}
	violations := engine.Violations(results)

	_, _ = fmt.Fprintf(w, "Results: %d violation(s) in %s\n\n", len(violations), formatFileCount(len(fixtures)))
	for _, v := range violations {
		_, _ = fmt.Fprintf(w, "  [%s] %s:%d:%d\n", v.Rule.ID(), v.File, v.Location.Start.Line, v.Location.Start.Column)
	}

	if testRuleExpect == "" {
		return nil
	}
	expected, err := loadExpected(testRuleExpect)
	if err != nil {
		return err
	}
	return compareExpected(violations, expected, w)
}

func loadExpected(path string) (*ExpectedResults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading expected file: %w", err)
	}

	var expected ExpectedResults
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &expected); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &expected); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported expected file format: %s", filepath.Ext(path))
	}
	return &expected, nil
}

// compareExpected pairs every expectation with a distinct violation and
// fails on unmatched expectations or unexpected violations.
func compareExpected(violations []sdk.Violation, expected *ExpectedResults, w io.Writer) error {
	_, _ = fmt.Fprintln(w, "\n---")
	_, _ = fmt.Fprintln(w, "Comparing with expected violations...")
	_, _ = fmt.Fprintln(w)

	passed := true
	matched := make(map[int]bool)

	for _, exp := range expected.Violations {
		found := false
		for i, v := range violations {
			if !matched[i] && matchesViolation(exp, v) {
				matched[i] = true
				found = true
				break
			}
		}

		if found {
			_, _ = fmt.Fprintf(w, "  [+] Expected violation matched: %s %s:%d\n", exp.Rule, exp.File, exp.Line)
		} else {
			_, _ = fmt.Fprintf(w, "  [-] Expected violation NOT found: %s %s:%d\n", exp.Rule, exp.File, exp.Line)
			passed = false
		}
	}

	for i, v := range violations {
		if !matched[i] {
			_, _ = fmt.Fprintf(w, "  [?] Unexpected violation: %s %s:%d\n", v.Rule.ID(), v.File, v.Location.Start.Line)
			passed = false
		}
	}
	_, _ = fmt.Fprintln(w)

	if !passed {
		return fmt.Errorf("test failed: expected violations do not match actual violations")
	}
	_, _ = fmt.Fprintln(w, "All tests passed!")
	return nil
}

func matchesViolation(exp ExpectedViolation, v sdk.Violation) bool {
	if exp.Rule != "" && !strings.EqualFold(exp.Rule, v.Rule.ID()) {
		return false
	}
	if exp.File != "" && !strings.HasSuffix(filepath.ToSlash(v.File), filepath.ToSlash(exp.File)) {
		return false
	}
	if exp.Line > 0 && exp.Line != v.Location.Start.Line {
		return false
	}
	if exp.Column > 0 && exp.Column != v.Location.Start.Column {
		return false
	}
	return true
}
