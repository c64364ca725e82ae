// Package policy loads custom rules written in Rego.
//
// A rule module declares package seccode and defines a metadata object and a
// violated rule that is true for the offending node:
//
//	package seccode
//
//	metadata := {
//		"id": "ACME01-J",
//		"name": "ACME01-J. Do not call System.exit()",
//		"description": "...",
//		"recommendation": "...",
//		"severity": "MEDIUM",
//	}
//
//	violated if {
//		input.kind == "MethodInvocation"
//		input.attrs.name == "exit"
//	}
//
// The input document is built by Input.
package policy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
)

const (
	metadataQuery = "data.seccode.metadata"
	violatedQuery = "data.seccode.violated"
)

// ErrMetadata is returned for modules without usable rule metadata.
var ErrMetadata = errors.New("invalid rule metadata")

// Config holds the policy loader configuration
type Config struct {
	PolicyDirs  []string // Directories containing Rego rule files
	PolicyFiles []string // Individual rule files
	Logger      *slog.Logger
}

// Rule is an sdk.Rule backed by a prepared Rego query.
type Rule struct {
	sdk.Meta
	path  string
	query rego.PreparedEvalQuery
	log   *slog.Logger
}

// Path returns the file the rule was loaded from.
func (r *Rule) Path() string {
	return r.path
}

// Violated evaluates the rule's violated query for n. Evaluation errors are
// logged and count as not violated.
func (r *Rule) Violated(n *syntax.Node) bool {
	if n == nil {
		return false
	}

	rs, err := r.query.Eval(context.Background(), rego.EvalInput(Input(n)))
	if err != nil {
		r.log.Debug("rego evaluation failed", "rule", r.ID(), "node", n.String(), "error", err)
		return false
	}
	return rs.Allowed()
}

// Load compiles every .rego file found in the configured directories and
// files. Missing directories and files are skipped.
func Load(ctx context.Context, config *Config) ([]sdk.Rule, error) {
	if config == nil {
		return nil, nil
	}
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}

	paths, err := find(config)
	if err != nil {
		return nil, err
	}

	var out []sdk.Rule
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		r, err := Compile(ctx, path, string(content), log)
		if err != nil {
			return nil, err
		}
		log.Debug("loaded rego rule", "rule", r.ID(), "path", path)
		out = append(out, r)
	}

	return out, nil
}

func find(config *Config) ([]string, error) {
	var paths []string

	for _, dir := range config.PolicyDirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".rego") && !strings.HasSuffix(path, "_test.rego") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("walking %s: %w", dir, err)
		}
	}

	for _, file := range config.PolicyFiles {
		if _, err := os.Stat(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		paths = append(paths, file)
	}

	return paths, nil
}

// Compile builds a rule from Rego source. name identifies the module in
// compiler errors.
func Compile(ctx context.Context, name, source string, log *slog.Logger) (*Rule, error) {
	if log == nil {
		log = slog.Default()
	}

	meta, err := metadata(ctx, name, source)
	if err != nil {
		return nil, err
	}

	query, err := rego.New(
		rego.Query(violatedQuery),
		rego.Module(name, source),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", name, err)
	}

	r := &Rule{Meta: meta, path: name, query: query, log: log}
	if err := sdk.ValidateRule(r); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, ErrMetadata, err)
	}
	return r, nil
}

func metadata(ctx context.Context, name, source string) (sdk.Meta, error) {
	rs, err := rego.New(
		rego.Query(metadataQuery),
		rego.Module(name, source),
	).Eval(ctx)
	if err != nil {
		return sdk.Meta{}, fmt.Errorf("compiling %s: %w", name, err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return sdk.Meta{}, fmt.Errorf("%s: %w: no %s", name, ErrMetadata, metadataQuery)
	}

	m, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return sdk.Meta{}, fmt.Errorf("%s: %w: metadata is not an object", name, ErrMetadata)
	}

	field := func(key string) string {
		s, _ := m[key].(string)
		return strings.TrimSpace(s)
	}

	sev, err := sdk.ParseSeverity(field("severity"))
	if err != nil {
		return sdk.Meta{}, fmt.Errorf("%s: %w: %w", name, ErrMetadata, err)
	}

	return sdk.NewMeta(field("id"), field("name"), field("description"), field("recommendation"), sev), nil
}
