package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/santosr2/seccode/internal/engine"
	"github.com/spf13/cobra"
)

var (
	checkFormat    string
	checkVerbose   bool
	checkThreshold string
	checkChanged   bool
	checkBase      string
	checkDisable   []string
	checkJobs      int
	checkOutput    string
)

// errViolations makes the process exit non-zero when a check reports
// violations.
var errViolations = errors.New("violations found")

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Check tree documents against the rules",
	Long: `Evaluate every enabled rule on every node of the tree documents found
under the given paths. This is the recommended command for CI/CD.

The command exits non-zero when a violation at or above the severity
threshold is found.`,
	Example: `  # Check the current directory
  seccode check

  # Only report HIGH severity rules, as SARIF
  seccode check --severity-threshold high --format sarif ./build/trees

  # Only check documents changed since main
  seccode check --changed --base main`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if checkOutput != "" {
			f, err := os.Create(checkOutput)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer func() { _ = f.Close() }()
			w = f
		}

		return runCheck(cmd.Context(), s, args, w, cmd.ErrOrStderr())
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkFormat, "format", "text", "output format (text|json|json-compact|sarif|html or a plugin format)")
	checkCmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "show recommendations and fixes")
	checkCmd.Flags().StringVar(&checkThreshold, "severity-threshold", "", "minimum severity of the rules run (low|medium|high)")
	checkCmd.Flags().BoolVar(&checkChanged, "changed", false, "only check documents changed in git")
	checkCmd.Flags().StringVar(&checkBase, "base", "", "with --changed, compare against this ref instead of the working copy")
	checkCmd.Flags().StringSliceVar(&checkDisable, "disable", nil, "rule IDs to skip")
	checkCmd.Flags().IntVarP(&checkJobs, "jobs", "j", 0, "documents evaluated in parallel (default GOMAXPROCS)")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "", "write the report to a file")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(ctx context.Context, s *session, paths []string, w, errw io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	threshold, err := parseThreshold(checkThreshold)
	if err != nil {
		return err
	}
	formatter, err := s.formatter(checkFormat, checkVerbose)
	if err != nil {
		return err
	}

	files, err := getTargetFiles(ctx, paths, checkChanged, checkBase)
	if err != nil {
		return fmt.Errorf("finding files: %w", err)
	}
	if len(files) == 0 {
		_, _ = fmt.Fprintln(errw, "No tree documents found")
		return nil
	}

	rs, err := s.ruleSet(ctx)
	if err != nil {
		return err
	}

	eng := engine.New(s.engineConfig(rs, checkDisable, threshold, checkJobs))
	s.log.Info("checking", "files", formatFileCount(len(files)), "rules", len(eng.Rules()))

	results, err := eng.Run(ctx, files)
	if err != nil {
		return err
	}
	for _, e := range engine.Errors(results) {
		_, _ = fmt.Fprintf(errw, "warning: %v\n", e)
	}

	violations := engine.Violations(results)
	if err := formatter.Format(violations, w); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if len(violations) > 0 {
		return fmt.Errorf("%w: %d", errViolations, len(violations))
	}
	return nil
}
