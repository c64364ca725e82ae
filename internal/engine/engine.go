// Package engine drives rule evaluation over tree documents and applies
// proposed fixes.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/santosr2/seccode/internal/rules"
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
	"golang.org/x/sync/errgroup"
)

// Engine evaluates a fixed rule set over tree documents.
type Engine struct {
	config *Config
	rules  []sdk.Rule
	log    *slog.Logger
}

// Config holds the engine configuration
type Config struct {
	Rules      []sdk.Rule   // Rule set in evaluation order; nil means the built-ins
	Disabled   []string     // Rule IDs to skip, case-insensitive
	Threshold  sdk.Severity // Minimum severity of the rules run; empty means all
	Jobs       int          // Parallel workers; 0 means GOMAXPROCS
	Sequential bool         // Evaluate one document at a time
	FailFast   bool         // Abort the run on the first unreadable document
	Logger     *slog.Logger
}

// Result is the outcome for one tree document.
type Result struct {
	Path       string
	Unit       *syntax.Unit
	Violations []sdk.Violation
	Err        error
}

// New creates a new engine. Rule filtering happens here, once, before any
// document is evaluated.
func New(config *Config) *Engine {
	if config == nil {
		config = &Config{}
	}

	log := config.Logger
	if log == nil {
		log = slog.Default()
	}

	set := config.Rules
	if set == nil {
		set = rules.All()
	}

	disabled := make(map[string]bool, len(config.Disabled))
	for _, id := range config.Disabled {
		disabled[strings.ToUpper(strings.TrimSpace(id))] = true
	}

	active := rules.Filter(set, func(r sdk.Rule) bool {
		if disabled[strings.ToUpper(r.ID())] {
			return false
		}
		return config.Threshold == "" || r.Severity().AtLeast(config.Threshold)
	})

	log.Debug("engine configured", "rules", len(active), "disabled", len(set)-len(active))

	return &Engine{
		config: config,
		rules:  active,
		log:    log,
	}
}

// Name returns the engine name
func (e *Engine) Name() string {
	return "seccode"
}

// Rules returns the active rules in evaluation order.
func (e *Engine) Rules() []sdk.Rule {
	out := make([]sdk.Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Check evaluates a single in-memory unit.
func (e *Engine) Check(unit *syntax.Unit) []sdk.Violation {
	return Evaluate(unit, e.rules)
}

// Run loads and evaluates the given tree documents.
//
// Documents are evaluated in parallel, but results are returned in the order
// of files. A document that cannot be loaded is reported through its
// Result.Err and does not stop the others unless FailFast is set.
func (e *Engine) Run(ctx context.Context, files []string) ([]Result, error) {
	results := make([]Result, len(files))
	if len(files) == 0 {
		return results, nil
	}

	jobs := e.config.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	if e.config.Sequential {
		jobs = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			// each goroutine owns results[i]
			results[i] = e.checkFile(path)
			if results[i].Err != nil && e.config.FailFast {
				return results[i].Err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (e *Engine) checkFile(path string) Result {
	unit, err := syntax.ReadFile(path)
	if err != nil {
		e.log.Debug("skipping document", "path", path, "error", err)
		return Result{Path: path, Err: fmt.Errorf("loading %s: %w", path, err)}
	}

	violations := e.Check(unit)
	e.log.Debug("evaluated document", "path", path, "violations", len(violations))

	return Result{Path: path, Unit: unit, Violations: violations}
}

// Violations flattens results into one list, keeping file order.
func Violations(results []Result) []sdk.Violation {
	var out []sdk.Violation
	for _, r := range results {
		out = append(out, r.Violations...)
	}
	return out
}

// Errors returns the load errors of results.
func Errors(results []Result) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
