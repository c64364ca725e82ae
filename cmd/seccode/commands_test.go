package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/santosr2/seccode/internal/config"
	"github.com/santosr2/seccode/internal/engine"
	"github.com/santosr2/seccode/internal/output"
	"github.com/santosr2/seccode/internal/policy"
	"github.com/santosr2/seccode/internal/rules"
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exitPolicy = `package seccode

metadata := {
	"id": "ACME01-J",
	"name": "ACME01-J. Do not call System.exit()",
	"description": "Calling System.exit() terminates the virtual machine.",
	"recommendation": "Throw an exception instead.",
	"severity": "MEDIUM",
}

violated if {
	input.kind == "MethodInvocation"
	input.attrs.name == "exit"
}
`

// resetFlags restores the command flag variables before and after a test.
func resetFlags(t *testing.T) {
	reset := func() {
		cfgFile, profile, logLevel, logFormat = "", "", "", ""
		checkFormat, checkVerbose, checkThreshold = "text", false, ""
		checkChanged, checkBase, checkDisable, checkJobs, checkOutput = false, "", nil, 0, ""
		fixRules, fixLabel, fixDryRun, fixChanged, fixBase = nil, "", false, false, ""
		testRuleFixtures, testRuleExpect = "testdata", ""
		initFormat, initForce = "yaml", false
		initRuleID, initRuleName, initRuleOutput, initRuleForce = "", "", ".seccode/policies", false
		configOutputFormat, profileInherits, profileDisableRules, profileThreshold = "yaml", "", nil, ""
		versionShort, versionJSON = false, false
	}
	reset()
	t.Cleanup(reset)
}

func checkIDs(t *testing.T, unit *syntax.Unit) []string {
	t.Helper()
	var ids []string
	for _, v := range engine.Evaluate(unit, rules.All()) {
		ids = append(ids, v.Rule.ID())
	}
	return ids
}

func TestRunCheck(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, sample(), dir, "Sample.jast.json")

	tests := []struct {
		name      string
		threshold string
		disable   []string
		want      []string
	}{
		{name: "all rules", want: []string{"EXP02-J", "MSC02-J", "ENV02-J"}},
		{name: "threshold", threshold: "high", want: []string{"MSC02-J"}},
		{name: "disabled", disable: []string{"exp02-j"}, want: []string{"MSC02-J", "ENV02-J"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			checkFormat = "json-compact"
			checkThreshold = tt.threshold
			checkDisable = tt.disable

			var out, errOut bytes.Buffer
			err := runCheck(t.Context(), testSession(t, nil), []string{dir}, &out, &errOut)
			require.ErrorIs(t, err, errViolations)

			var report output.JSONOutput
			require.NoError(t, json.Unmarshal(out.Bytes(), &report))

			var got []string
			for _, v := range report.Violations {
				got = append(got, v.Rule)
				assert.Equal(t, "Sample.java", v.File)
			}
			assert.Equal(t, tt.want, got)
			assert.Empty(t, errOut.String())
		})
	}
}

func TestRunCheck_Clean(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	writeUnit(t, sample(), dir, "Sample.jast.yaml")
	checkDisable = []string{"EXP02-J", "MSC02-J", "ENV02-J"}

	var out, errOut bytes.Buffer
	require.NoError(t, runCheck(t.Context(), testSession(t, nil), []string{dir}, &out, &errOut))
	assert.Contains(t, out.String(), "No issues found")
}

func TestRunCheck_Errors(t *testing.T) {
	t.Run("no documents", func(t *testing.T) {
		resetFlags(t)
		var out, errOut bytes.Buffer
		require.NoError(t, runCheck(t.Context(), testSession(t, nil), []string{t.TempDir()}, &out, &errOut))
		assert.Contains(t, errOut.String(), "No tree documents found")
		assert.Empty(t, out.String())
	})

	t.Run("unknown format", func(t *testing.T) {
		resetFlags(t)
		checkFormat = "xml"
		err := runCheck(t.Context(), testSession(t, nil), []string{t.TempDir()}, &bytes.Buffer{}, &bytes.Buffer{})
		assert.ErrorContains(t, err, "unsupported output format")
	})

	t.Run("invalid threshold", func(t *testing.T) {
		resetFlags(t)
		checkThreshold = "critical"
		err := runCheck(t.Context(), testSession(t, nil), []string{t.TempDir()}, &bytes.Buffer{}, &bytes.Buffer{})
		assert.Error(t, err)
	})

	t.Run("unreadable document is reported", func(t *testing.T) {
		resetFlags(t)
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "Broken.jast.json"), []byte("{"), 0o644))

		var out, errOut bytes.Buffer
		require.NoError(t, runCheck(t.Context(), testSession(t, nil), []string{dir}, &out, &errOut))
		assert.Contains(t, errOut.String(), "warning:")
		assert.Contains(t, errOut.String(), "Broken.jast.json")
	})
}

func TestRunFix(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	path := writeUnit(t, sample(), dir, "Sample.jast.json")

	var out bytes.Buffer
	require.NoError(t, runFix(t.Context(), testSession(t, nil), []string{dir}, &out))

	assert.Contains(t, out.String(), "Sample.java:")
	assert.Contains(t, out.String(), "MSC02-J: Use SecureRandom.nextDouble()")
	assert.Contains(t, out.String(), "Summary: Fixed 2 issue(s)")
	assert.Contains(t, out.String(), "1 issue(s) require manual attention")

	unit, err := syntax.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ENV02-J"}, checkIDs(t, unit))
}

func TestRunFix_Rule(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	path := writeUnit(t, sample(), dir, "Sample.jast.msgpack")
	t.Chdir(dir)
	fixRules = []string{"msc02-j"}

	var out bytes.Buffer
	require.NoError(t, runFix(t.Context(), testSession(t, nil), nil, &out))
	assert.Contains(t, out.String(), "Summary: Fixed 1 issue(s)")

	unit, err := syntax.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"EXP02-J", "ENV02-J"}, checkIDs(t, unit))
}

func TestRunFix_DryRun(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	path := writeUnit(t, sample(), dir, "Sample.jast.json")
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	fixDryRun = true

	var out bytes.Buffer
	require.NoError(t, runFix(t.Context(), testSession(t, nil), []string{path}, &out))
	assert.Contains(t, out.String(), "(dry run)")
	assert.Contains(t, out.String(), "Summary: Fixed 2 issue(s)")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRuleFilter(t *testing.T) {
	assert.Nil(t, ruleFilter(nil))

	keep := ruleFilter([]string{" msc02-j "})
	random := syntax.Invoke(syntax.Name("Math"), "random")
	assert.True(t, keep(sdk.NewViolation(rules.MSC02, random, "A.java")))
	assert.False(t, keep(sdk.NewViolation(rules.ENV02, random, "A.java")))
}

func TestPosition(t *testing.T) {
	assert.Equal(t, "3,9-22", position("Sample.java:3,9-22"))
	assert.Equal(t, "3,9-22", position(`C:\src\Sample.java:3,9-22`))
	assert.Equal(t, "3,9", position("3,9"))
}

func exitFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	call := syntax.Invoke(syntax.Name("System"), "exit", syntax.NumberLiteral("1")).At(7, 9)
	writeUnit(t, method("Exit.java", syntax.Statement(call).At(7, 9)), dir, "Exit.jast.json")
	writeUnit(t, sample(), dir, "Sample.jast.json")
	return dir
}

func TestRunTestRule(t *testing.T) {
	rule := filepath.Join(t.TempDir(), "acme01-j.rego")
	require.NoError(t, os.WriteFile(rule, []byte(exitPolicy), 0o644))
	fixtures := exitFixtures(t)

	tests := []struct {
		name     string
		expect   string
		wantErr  bool
		contains []string
	}{
		{
			name:     "no expectations",
			contains: []string{"Testing rule: ACME01-J", "Results: 1 violation(s) in 2 files", "[ACME01-J] Exit.java:7:9"},
		},
		{
			name:     "matching yaml",
			expect:   "expected.yaml:violations:\n  - rule: ACME01-J\n    file: Exit.java\n    line: 7\n    column: 9\n",
			contains: []string{"[+] Expected violation matched", "All tests passed!"},
		},
		{
			name:     "matching json",
			expect:   `expected.json:{"violations":[{"rule":"acme01-j"}]}`,
			contains: []string{"All tests passed!"},
		},
		{
			name:     "wrong line",
			expect:   "expected.yml:violations:\n  - rule: ACME01-J\n    line: 8\n",
			wantErr:  true,
			contains: []string{"[-] Expected violation NOT found", "[?] Unexpected violation: ACME01-J Exit.java:7"},
		},
		{
			name:    "unsupported expectations",
			expect:  "expected.txt:violations: []",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			testRuleFixtures = fixtures
			if tt.expect != "" {
				name, content, _ := strings.Cut(tt.expect, ":")
				testRuleExpect = filepath.Join(t.TempDir(), name)
				require.NoError(t, os.WriteFile(testRuleExpect, []byte(content), 0o644))
			}

			var out bytes.Buffer
			err := runTestRule(t.Context(), testSession(t, nil), rule, &out)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			for _, c := range tt.contains {
				assert.Contains(t, out.String(), c)
			}
		})
	}
}

func TestRunTestRule_Errors(t *testing.T) {
	resetFlags(t)
	s := testSession(t, nil)

	err := runTestRule(t.Context(), s, filepath.Join(t.TempDir(), "missing.rego"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "rule file not found")

	other := filepath.Join(t.TempDir(), "rule.yaml")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	err = runTestRule(t.Context(), s, other, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unsupported rule type")

	rule := filepath.Join(t.TempDir(), "acme01-j.rego")
	require.NoError(t, os.WriteFile(rule, []byte(exitPolicy), 0o644))
	testRuleFixtures = t.TempDir()
	err = runTestRule(t.Context(), s, rule, &bytes.Buffer{})
	assert.ErrorContains(t, err, "no tree documents found")
}

func TestRunInit(t *testing.T) {
	resetFlags(t)
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	require.NoError(t, runInit(&out))
	assert.Contains(t, out.String(), "Created .seccode.yaml")

	cfg, err := config.Load(".seccode.yaml")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Engines, cfg.Engines)

	assert.ErrorContains(t, runInit(&out), "already exists")
	initForce = true
	assert.NoError(t, runInit(&out))

	initFormat = "toml"
	require.NoError(t, runInit(&out))
	cfg, err = config.Load(".seccode.toml")
	require.NoError(t, err)
	assert.Equal(t, sdk.SeverityLow, cfg.Threshold())

	initFormat = "ini"
	assert.Error(t, runInit(&out))
}

func TestRunInitRule(t *testing.T) {
	resetFlags(t)
	dir := filepath.Join(t.TempDir(), "policies")
	initRuleID = "ACME07-J"
	initRuleName = `ACME07-J. Do not call "exit"`
	initRuleOutput = dir

	var out bytes.Buffer
	require.NoError(t, runInitRule(&out))

	path := filepath.Join(dir, "acme07-j.rego")
	assert.Contains(t, out.String(), path)

	source, err := os.ReadFile(path)
	require.NoError(t, err)
	r, err := policy.Compile(t.Context(), path, string(source), nil)
	require.NoError(t, err)
	assert.Equal(t, "ACME07-J", r.ID())
	assert.Equal(t, `ACME07-J. Do not call "exit"`, r.Name())

	assert.ErrorContains(t, runInitRule(&out), "already exists")

	initRuleID = " "
	assert.Error(t, runInitRule(&out))
}

func TestConfigCommands(t *testing.T) {
	resetFlags(t)
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	assert.ErrorContains(t, runConfigValidate(&out), "configuration file not found")

	profileDisableRules = []string{"ENV02-J"}
	profileThreshold = "high"
	require.NoError(t, runConfigInitProfile("ci", &out))
	assert.Contains(t, out.String(), "Created profile 'ci' in .seccode.yaml")
	assert.ErrorContains(t, runConfigInitProfile("ci", &out), "already exists")

	profileInherits = "missing"
	assert.ErrorContains(t, runConfigInitProfile("local", &out), "non-existent profile")

	out.Reset()
	require.NoError(t, runConfigValidate(&out))
	assert.Contains(t, out.String(), "[+] Configuration is valid")
	assert.Contains(t, out.String(), "    - ci")

	profile = "ci"
	out.Reset()
	require.NoError(t, runConfigShow(&out))
	cfg := config.DefaultConfig()
	require.NoError(t, config.Unmarshal(out.Bytes(), config.FormatYAML, cfg))
	assert.Equal(t, sdk.SeverityHigh, cfg.Threshold())
	assert.Equal(t, []string{"ENV02-J"}, cfg.DisabledRules())

	configOutputFormat = "json"
	out.Reset()
	require.NoError(t, runConfigShow(&out))
	assert.True(t, json.Valid(out.Bytes()))

	configOutputFormat = "toml"
	out.Reset()
	require.NoError(t, runConfigShow(&out))
	assert.Contains(t, out.String(), "severity_threshold")

	configOutputFormat = "ini"
	assert.Error(t, runConfigShow(&out))
}

func TestListRules(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, listRules(rules.All(), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Regexp(t, `^ID\s+SEVERITY\s+SOURCE\s+FIXES\s+NAME$`, lines[0])
	assert.Regexp(t, `^IDS00-J\s+HIGH\s+builtin\s+\S+\s+Prevent SQL injection`, lines[1])
	assert.Equal(t, "15 rule(s)", lines[len(lines)-1])
}

func TestRuleDocs(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeRuleDocs(rules.All(), &out))

	for _, id := range rules.IDs() {
		assert.Contains(t, out.String(), "\n## "+id+"\n")
	}
	assert.Contains(t, out.String(), output.HelpURI(rules.MSC02))

	out.Reset()
	showRule(rules.MSC02, &out)
	assert.Contains(t, out.String(), "ID:        MSC02-J")
	assert.Contains(t, out.String(), "Source:    builtin")
	assert.Contains(t, out.String(), "Reference: "+output.HelpURI(rules.MSC02))
	assert.Contains(t, out.String(), rules.MSC02.Recommendation())
}

func TestRuleSource(t *testing.T) {
	r, err := policy.Compile(t.Context(), "exit.rego", exitPolicy, nil)
	require.NoError(t, err)

	assert.Equal(t, "builtin", ruleSource(rules.LCK09))
	assert.Equal(t, "rego", ruleSource(r))
	assert.Equal(t, "-", fixable(r))
}

func TestPrintVersion(t *testing.T) {
	resetFlags(t)

	var out bytes.Buffer
	require.NoError(t, printVersion(&out))
	assert.Contains(t, out.String(), "seccode version dev")

	versionShort = true
	out.Reset()
	require.NoError(t, printVersion(&out))
	assert.Equal(t, "dev\n", out.String())

	versionJSON = true
	out.Reset()
	require.NoError(t, printVersion(&out))
	var info buildInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, "dev", info.Version)
	assert.NotEmpty(t, info.Platform)
}
