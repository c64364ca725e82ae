// Package vcs finds the tree documents touched in a Git working copy, so a
// check can be limited to the compilation units that changed.
package vcs

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/santosr2/seccode/pkg/syntax"
)

// Git runs git in a working directory.
type Git struct {
	workDir string
}

// NewGit creates a Git for workDir ("." when empty).
func NewGit(workDir string) *Git {
	if workDir == "" {
		workDir = "."
	}
	return &Git{workDir: workDir}
}

// output runs git with args and returns its stdout. Stderr is folded into
// the error.
func (g *Git) output(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.workDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("git %s: %w: %s", args[0], err, msg)
		}
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}
	return out, nil
}

// IsRepo reports whether the working directory is inside a Git repository.
func (g *Git) IsRepo(ctx context.Context) bool {
	_, err := g.output(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// Root returns the top-level directory of the repository.
func (g *Git) Root(ctx context.Context) (string, error) {
	out, err := g.output(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("getting repo root: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// DefaultBranch returns the branch origin/HEAD points to, falling back to
// main or master when they exist locally.
func (g *Git) DefaultBranch(ctx context.Context) string {
	if out, err := g.output(ctx, "symbolic-ref", "--short", "refs/remotes/origin/HEAD"); err == nil {
		return strings.TrimPrefix(strings.TrimSpace(string(out)), "origin/")
	}

	for _, branch := range []string{"main", "master"} {
		if _, err := g.output(ctx, "rev-parse", "--verify", "--quiet", branch); err == nil {
			return branch
		}
	}
	return "main"
}

// Changed returns the files changed between base and HEAD. An empty base
// means the default branch. Paths are absolute.
func (g *Git) Changed(ctx context.Context, base string) ([]string, error) {
	if base == "" {
		base = g.DefaultBranch(ctx)
	}

	// Diff from the merge base when there is one, so commits on base that
	// HEAD lacks are not reported.
	from := base
	if out, err := g.output(ctx, "merge-base", base, "HEAD"); err == nil {
		from = strings.TrimSpace(string(out))
	}

	out, err := g.output(ctx, "diff", "--name-only", "--diff-filter=d", from, "HEAD")
	if err != nil {
		return nil, fmt.Errorf("getting changed files: %w", err)
	}
	return g.absolute(ctx, parseFileList(out))
}

// Pending returns the staged, unstaged and untracked files of the working
// copy, sorted and without duplicates. Paths are absolute.
func (g *Git) Pending(ctx context.Context) ([]string, error) {
	queries := [][]string{
		{"diff", "--name-only", "--cached", "--diff-filter=d"},
		{"diff", "--name-only", "--diff-filter=d"},
		{"ls-files", "--others", "--exclude-standard"},
	}

	var files []string
	for _, args := range queries {
		out, err := g.output(ctx, args...)
		if err != nil {
			return nil, fmt.Errorf("getting pending files: %w", err)
		}
		files = append(files, parseFileList(out)...)
	}

	slices.Sort(files)
	return g.absolute(ctx, slices.Compact(files))
}

// ChangedTrees returns the tree documents changed since base, or pending in
// the working copy when base is empty, that still exist on disk.
func (g *Git) ChangedTrees(ctx context.Context, base string) ([]string, error) {
	var (
		files []string
		err   error
	)
	if base == "" {
		files, err = g.Pending(ctx)
	} else {
		files, err = g.Changed(ctx, base)
	}
	if err != nil {
		return nil, err
	}
	return FilterExisting(FilterTrees(files)), nil
}

// absolute resolves repository-relative paths against the repo root, which
// is where git reports them from.
func (g *Git) absolute(ctx context.Context, files []string) ([]string, error) {
	if len(files) == 0 {
		return files, nil
	}
	root, err := g.Root(ctx)
	if err != nil {
		return nil, err
	}
	for i, f := range files {
		if !filepath.IsAbs(f) {
			files[i] = filepath.Join(root, filepath.FromSlash(f))
		}
	}
	return files, nil
}

func parseFileList(out []byte) []string {
	var files []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			files = append(files, line)
		}
	}
	return files
}

// FilterTrees keeps the paths that name tree documents.
func FilterTrees(files []string) []string {
	var result []string
	for _, f := range files {
		if syntax.IsTreeFile(f) {
			result = append(result, f)
		}
	}
	return result
}

// FilterExisting keeps the paths that exist.
func FilterExisting(files []string) []string {
	var result []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			result = append(result, f)
		}
	}
	return result
}
