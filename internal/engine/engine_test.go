package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/santosr2/seccode/internal/rules"
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRule fires on every node and counts its calls.
type countingRule struct {
	sdk.Meta
	calls *atomic.Int64
}

func (r countingRule) Violated(n *syntax.Node) bool {
	r.calls.Add(1)
	return n != nil
}

func counting(id string) countingRule {
	return countingRule{
		Meta:  sdk.NewMeta(id, id+". Counting", "counts", "none", sdk.SeverityLow),
		calls: &atomic.Int64{},
	}
}

// sample builds a unit holding one array comparison, one Math.random() call
// and one System.getenv() call, in that order.
func sample(path string) *syntax.Unit {
	cmp := syntax.Infix(
		syntax.Name("a").With(syntax.AttrType, "int[]"), "==",
		syntax.Name("b").With(syntax.AttrType, "int[]"))
	random := syntax.Invoke(syntax.Name("Math"), "random")
	env := syntax.Invoke(syntax.Name("System"), "getenv", syntax.StringLiteral("HOME"))

	body := syntax.New(syntax.KindMethodDeclaration).With(syntax.AttrName, "run").
		Add(syntax.RoleBody, syntax.Block(
			syntax.Statement(cmp).At(3, 5),
			syntax.Statement(random).At(4, 5),
			syntax.Statement(env).At(5, 5),
		))
	root := syntax.New(syntax.KindCompilationUnit).Add(syntax.RoleTypes,
		syntax.New(syntax.KindTypeDeclaration).With(syntax.AttrName, "Sample").
			Add(syntax.RoleBodyDeclarations, body))

	format, _ := syntax.FormatOf(path)
	return &syntax.Unit{Path: path, Source: "Sample.java", Format: format, Root: root}
}

func writeSample(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, syntax.WriteFile(sample(path)))
	return path
}

func ids(vs []sdk.Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Rule.ID()
	}
	return out
}

func TestEvaluate_EveryNodeEveryRule(t *testing.T) {
	u := sample("sample.jast.json")
	k := syntax.Count(u.Root)

	rs := []sdk.Rule{counting("A"), counting("B"), counting("C")}
	vs := Evaluate(u, rs)

	assert.Len(t, vs, k*len(rs))
	for _, r := range rs {
		assert.Equal(t, int64(k), r.(countingRule).calls.Load())
	}

	// pre-order, rules in order for each node
	assert.Equal(t, []string{"A", "B", "C"}, ids(vs[:3]))
	assert.Same(t, u.Root, vs[0].Node)
	assert.Same(t, u.Root, vs[2].Node)
	assert.Equal(t, syntax.KindTypeDeclaration, vs[3].Node.Kind)
}

func TestEvaluate_BuiltinRules(t *testing.T) {
	u := sample("sample.jast.json")

	vs := Evaluate(u, rules.All())
	assert.Equal(t, []string{"EXP02-J", "MSC02-J", "ENV02-J"}, ids(vs))
	assert.Equal(t, "Sample.java", vs[0].File)
	assert.Equal(t, "Sample.java", vs[0].Location.Filename)
}

func TestEvaluate_Empty(t *testing.T) {
	assert.Empty(t, Evaluate(nil, rules.All()))
	assert.Empty(t, Evaluate(&syntax.Unit{}, rules.All()))
	assert.Empty(t, Evaluate(sample("x.jast.json"), nil))
}

func TestNew_Filtering(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		want   []string
	}{
		{
			name:   "defaults",
			config: nil,
			want:   rules.IDs(),
		},
		{
			name:   "disabled",
			config: &Config{Disabled: []string{"env02-j", " MSC02-J"}},
			want: []string{
				"IDS00-J", "IDS01-J", "IDS07-J", "IDS11-J", "DCL02-J", "EXP00-J", "EXP02-J",
				"NUM07-J", "NUM09-J", "STR00-J", "ERR08-J", "LCK09-J", "FIO08-J",
			},
		},
		{
			name:   "threshold",
			config: &Config{Threshold: sdk.SeverityHigh},
			want:   []string{"IDS00-J", "IDS01-J", "IDS07-J", "FIO08-J", "MSC02-J"},
		},
		{
			name:   "custom set",
			config: &Config{Rules: []sdk.Rule{rules.ENV02, rules.MSC02}, Threshold: sdk.SeverityMedium},
			want:   []string{"MSC02-J"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, r := range New(tt.config).Rules() {
				got = append(got, r.ID())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeSample(t, dir, "a.jast.json"),
		writeSample(t, dir, "b.jast.yaml"),
		filepath.Join(dir, "missing.jast.json"),
		writeSample(t, dir, "c.jast.msgpack"),
	}

	results, err := New(&Config{Jobs: 4}).Run(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, results, len(files))

	for i, r := range results {
		assert.Equal(t, files[i], r.Path)
	}
	assert.Error(t, results[2].Err)
	assert.Nil(t, results[2].Unit)
	for _, i := range []int{0, 1, 3} {
		require.NoError(t, results[i].Err)
		assert.Equal(t, []string{"EXP02-J", "MSC02-J", "ENV02-J"}, ids(results[i].Violations))
	}

	assert.Len(t, Violations(results), 9)
	assert.Len(t, Errors(results), 1)
}

func TestRun_FailFast(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.jast.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))

	_, err := New(&Config{FailFast: true, Sequential: true}).Run(context.Background(), []string{bad})
	assert.Error(t, err)
}

func TestRun_Deterministic(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files = append(files, writeSample(t, dir, name+".jast.json"))
	}

	summarize := func(results []Result) []string {
		var out []string
		for _, v := range Violations(results) {
			out = append(out, v.File+":"+v.Location.String()+":"+v.Rule.ID())
		}
		return out
	}

	parallel, err := New(&Config{Jobs: 8}).Run(context.Background(), files)
	require.NoError(t, err)
	again, err := New(&Config{Jobs: 3}).Run(context.Background(), files)
	require.NoError(t, err)
	sequential, err := New(&Config{Sequential: true}).Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, summarize(sequential), summarize(parallel))
	assert.Equal(t, summarize(sequential), summarize(again))
}

func TestRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeSample(t, dir, "a.jast.json")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil).Run(ctx, files)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_NoFiles(t *testing.T) {
	results, err := New(nil).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
