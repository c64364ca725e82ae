package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/santosr2/seccode/internal/engine"
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
	"github.com/spf13/cobra"
)

var (
	fixRules   []string
	fixLabel   string
	fixDryRun  bool
	fixChanged bool
	fixBase    string
)

var fixCmd = &cobra.Command{
	Use:   "fix [paths...]",
	Short: "Apply the fixes proposed by the rules",
	Long: `Apply the recommended fix of every fixable violation and write the
tree documents back. Each fix is applied to the current tree and the rules
are re-evaluated afterwards, so fixes never act on stale nodes.

Violations without a fix are left for manual attention.`,
	Example: `  # Fix everything under the current directory
  seccode fix

  # Only replace java.util.Random
  seccode fix --rule MSC02-J

  # Pick a specific fix by label
  seccode fix --rule EXP02-J --label "Use Arrays.equals"

  # List the fixes without writing
  seccode fix --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		return runFix(cmd.Context(), s, args, cmd.OutOrStdout())
	},
}

func init() {
	fixCmd.Flags().StringSliceVar(&fixRules, "rule", nil, "only fix violations of these rule IDs")
	fixCmd.Flags().StringVar(&fixLabel, "label", "", "apply the fix with this label instead of the recommended one")
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "show the fixes without writing documents")
	fixCmd.Flags().BoolVar(&fixChanged, "changed", false, "only fix documents changed in git")
	fixCmd.Flags().StringVar(&fixBase, "base", "", "with --changed, compare against this ref instead of the working copy")
	rootCmd.AddCommand(fixCmd)
}

func runFix(ctx context.Context, s *session, paths []string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	files, err := getTargetFiles(ctx, paths, fixChanged, fixBase)
	if err != nil {
		return fmt.Errorf("finding files: %w", err)
	}
	if len(files) == 0 {
		_, _ = fmt.Fprintln(w, "No tree documents found")
		return nil
	}

	rs, err := s.ruleSet(ctx)
	if err != nil {
		return err
	}
	eng := engine.New(s.engineConfig(rs, nil, "", 0))
	fixer := engine.NewFixer(s.log)
	keep := ruleFilter(fixRules)

	mode := ""
	if fixDryRun {
		mode = " (dry run)"
	}
	_, _ = fmt.Fprintf(w, "Fixing %s%s...\n\n", formatFileCount(len(files)), mode)

	fixed, remaining := 0, 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		unit, err := syntax.ReadFile(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}

		applied, err := fixer.FixUnit(unit, eng.Rules(), keep, fixLabel)
		for _, a := range applied {
			_, _ = fmt.Fprintf(w, "  %s:%s: %s: %s\n", unit.Filename(), position(a.At), a.RuleID, a.Label)
		}
		if err != nil {
			return err
		}
		fixed += len(applied)
		remaining += len(eng.Check(unit))

		if len(applied) > 0 && !fixDryRun {
			if err := syntax.WriteFile(unit); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
		}
	}

	_, _ = fmt.Fprintln(w, "---")
	_, _ = fmt.Fprintf(w, "Summary: Fixed %d issue(s)\n", fixed)
	if remaining > 0 {
		_, _ = fmt.Fprintf(w, "\n%d issue(s) require manual attention\n", remaining)
		_, _ = fmt.Fprintln(w, "\nRun 'seccode check' to see remaining issues")
	} else {
		_, _ = fmt.Fprintln(w, "\nAll issues resolved!")
	}
	return nil
}

// ruleFilter keeps the violations of the given rule IDs; no IDs keeps all.
func ruleFilter(ids []string) func(sdk.Violation) bool {
	if len(ids) == 0 {
		return nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[strings.ToUpper(strings.TrimSpace(id))] = true
	}
	return func(v sdk.Violation) bool {
		return want[strings.ToUpper(v.Rule.ID())]
	}
}

// position trims the file name off a range string such as
// "Foo.java:3,9-22".
func position(at string) string {
	if i := strings.LastIndex(at, ":"); i >= 0 {
		return at[i+1:]
	}
	return at
}
