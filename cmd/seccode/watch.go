package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santosr2/seccode/pkg/syntax"
	"github.com/spf13/cobra"
)

const debounceDelay = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Re-run checks when tree documents or Rego rules change",
	Long: `Run check once, then again every time a tree document under the given
paths or a Rego rule in the policy directories changes.

This mode is useful when developing custom rules. Every run is a full
check; bursts of changes are coalesced into one run.`,
	Example: `  # Watch the current directory and the configured policy directories
  seccode watch

  # Watch generated trees and report JSON
  seccode watch ./build/trees --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runWatch(ctx, s, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	watchCmd.Flags().StringVar(&checkFormat, "format", "text", "output format (text|json|json-compact|sarif|html or a plugin format)")
	watchCmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "show recommendations and fixes")
	watchCmd.Flags().StringVar(&checkThreshold, "severity-threshold", "", "minimum severity of the rules run (low|medium|high)")
	watchCmd.Flags().StringSliceVar(&checkDisable, "disable", nil, "rule IDs to skip")
	rootCmd.AddCommand(watchCmd)
}

// isWatched reports whether a change to path should trigger a run.
func isWatched(path string) bool {
	return syntax.IsTreeFile(path) ||
		(strings.HasSuffix(path, ".rego") && !strings.HasSuffix(path, "_test.rego"))
}

// addTree watches dir and every directory below it that a check would
// visit.
func addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && shouldSkipDir(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func runWatch(ctx context.Context, s *session, paths []string, w, errw io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	targets := paths
	if len(targets) == 0 {
		targets = []string{"."}
	}
	for _, dir := range targets {
		if err := addTree(watcher, dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	if s.cfg.Engines.Policy.Enabled {
		for _, dir := range s.cfg.Policies.Directories {
			if err := addTree(watcher, dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
				_, _ = fmt.Fprintf(errw, "warning: could not watch %s: %v\n", dir, err)
			}
		}
	}

	check := func() {
		err := runCheck(ctx, s, paths, w, errw)
		if err != nil && !errors.Is(err, errViolations) {
			_, _ = fmt.Fprintf(errw, "Check error: %v\n", err)
		}
	}

	check()
	_, _ = fmt.Fprintln(errw, "\nWatching for changes... (Ctrl+C to stop)")

	var (
		debounce <-chan time.Time
		last     string
	)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !shouldSkipDir(info.Name()) {
					_ = addTree(watcher, event.Name)
				}
			}
			if !isWatched(event.Name) || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			last = event.Name
			debounce = time.After(debounceDelay)

		case <-debounce:
			debounce = nil
			_, _ = fmt.Fprintf(errw, "\n[%s] File changed: %s\n\n", time.Now().Format("15:04:05"), last)
			check()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			_, _ = fmt.Fprintf(errw, "Watcher error: %v\n", err)
		}
	}
}
