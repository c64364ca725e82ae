package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/santosr2/seccode/internal/config"
	"github.com/santosr2/seccode/internal/engine"
	"github.com/santosr2/seccode/internal/logging"
	"github.com/santosr2/seccode/internal/output"
	"github.com/santosr2/seccode/internal/plugins"
	"github.com/santosr2/seccode/internal/policy"
	"github.com/santosr2/seccode/internal/rules"
	"github.com/santosr2/seccode/internal/vcs"
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
)

// session is the resolved configuration shared by the commands that
// evaluate rules.
type session struct {
	cfg     *config.Config
	log     *slog.Logger
	plugins *plugins.Manager
}

// loadSession loads the config file, applies --profile, initialises logging
// and loads plugins when they are enabled.
func loadSession() (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if profile != "" {
		if err := cfg.ApplyProfile(profile); err != nil {
			return nil, fmt.Errorf("applying profile: %w", err)
		}
	}

	level, format := cfg.Logging.Level, cfg.Logging.Format
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	log := logging.Init(os.Stderr, format, level)

	mgr := plugins.NewManager(cfg.Plugins.Directories, log)
	if cfg.Plugins.Enabled {
		if err := mgr.LoadAll(); err != nil {
			return nil, err
		}
	}

	return &session{cfg: cfg, log: log, plugins: mgr}, nil
}

// ruleSet assembles the rules of the enabled engines: the built-ins, then
// plugin rules, then Rego rules. IDs must be unique across all sources.
func (s *session) ruleSet(ctx context.Context) ([]sdk.Rule, error) {
	extra := s.plugins.Rules()

	if s.cfg.Engines.Policy.Enabled {
		loaded, err := policy.Load(ctx, &policy.Config{
			PolicyDirs:  s.cfg.Policies.Directories,
			PolicyFiles: s.cfg.Policies.Files,
			Logger:      s.log,
		})
		if err != nil {
			return nil, fmt.Errorf("loading policies: %w", err)
		}
		extra = append(extra, loaded...)
	}

	all, err := rules.Build(extra...)
	if err != nil {
		return nil, err
	}
	if s.cfg.Engines.Builtin.Enabled {
		return all, nil
	}
	return rules.Filter(all, func(r sdk.Rule) bool {
		_, builtin := rules.Get(r.ID())
		return !builtin
	}), nil
}

// engineConfig builds the engine configuration from the session, the
// --disable IDs and an explicit threshold, which wins over the config file
// when set.
func (s *session) engineConfig(rs []sdk.Rule, disable []string, threshold sdk.Severity, jobs int) *engine.Config {
	if threshold == "" {
		threshold = s.cfg.Threshold()
	}
	if jobs == 0 {
		jobs = s.cfg.Jobs
	}
	return &engine.Config{
		Rules:      rs,
		Disabled:   append(s.cfg.DisabledRules(), disable...),
		Threshold:  threshold,
		Jobs:       jobs,
		Sequential: !s.cfg.Parallel,
		FailFast:   s.cfg.FailFast,
		Logger:     s.log,
	}
}

// formatter returns a built-in formatter or one contributed by a plugin.
func (s *session) formatter(name string, verbose bool) (output.Formatter, error) {
	if f, ok := s.plugins.Formatter(name); ok {
		return f, nil
	}
	return output.GetFormatter(name, verbose, version)
}

// parseThreshold parses the --severity-threshold flag; empty means unset.
func parseThreshold(s string) (sdk.Severity, error) {
	if s == "" {
		return "", nil
	}
	return sdk.ParseSeverity(s)
}

// getTargetFiles returns the tree documents to process. With changedOnly,
// only documents git reports as changed since base (or pending, when base
// is empty) and lying under paths are returned.
func getTargetFiles(ctx context.Context, paths []string, changedOnly bool, base string) ([]string, error) {
	if !changedOnly {
		return findTreeFiles(paths)
	}

	git := vcs.NewGit(".")
	if !git.IsRepo(ctx) {
		return nil, fmt.Errorf("not a git repository; --changed requires git")
	}

	changedFiles, err := git.ChangedTrees(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("getting changed files: %w", err)
	}
	if len(paths) == 0 {
		return changedFiles, nil
	}

	var filtered []string
	for _, file := range changedFiles {
		for _, p := range paths {
			abs, err := filepath.Abs(p)
			if err != nil {
				continue
			}
			if isPathWithin(file, abs) {
				filtered = append(filtered, file)
				break
			}
		}
	}
	return filtered, nil
}

// isPathWithin checks if a file path is within a directory path.
func isPathWithin(filePath, dirPath string) bool {
	filePath = filepath.Clean(filePath)
	dirPath = filepath.Clean(dirPath)

	if !strings.HasPrefix(filePath, dirPath) {
		return false
	}
	remainder := strings.TrimPrefix(filePath, dirPath)
	return remainder == "" || strings.HasPrefix(remainder, string(filepath.Separator))
}

// findTreeFiles returns the absolute paths of the tree documents under paths
// ("." when empty), sorted and without duplicates. Files named explicitly
// are kept only when they are tree documents.
func findTreeFiles(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			if syntax.IsTreeFile(path) {
				files = append(files, absPath(path))
			}
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != path && shouldSkipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if syntax.IsTreeFile(p) {
				files = append(files, absPath(p))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", path, err)
		}
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// shouldSkipDir returns true if the directory should be skipped during traversal.
func shouldSkipDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." && name != ".." {
		return true
	}
	return name == "node_modules" || name == "vendor"
}

// formatFileCount returns a human-readable file count string.
func formatFileCount(count int) string {
	if count == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", count)
}
