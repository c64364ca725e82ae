package plugins

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRule struct{ sdk.Meta }

func (mockRule) Violated(n *syntax.Node) bool { return n.Is(syntax.KindThrowStatement) }

func rule(id string) sdk.Rule {
	return mockRule{sdk.NewMeta(id, id+". Mock rule", "description", "recommendation", sdk.SeverityMedium)}
}

type mockFormatter struct{ name string }

func (f mockFormatter) Name() string { return f.name }
func (f mockFormatter) Format(vs []sdk.Violation, w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d", len(vs))
	return err
}

func meta(name string, typ PluginType) PluginMetadata {
	return PluginMetadata{Name: name, Version: "1.0.0", Type: typ}
}

func TestNewManager(t *testing.T) {
	dirs := []string{"/path/to/plugins", "~/.seccode/plugins"}
	manager := NewManager(dirs, nil)

	assert.Equal(t, dirs, manager.directories)
	assert.NotNil(t, manager.log)
	assert.Empty(t, manager.Rules())
	assert.Empty(t, manager.Formats())
	assert.Empty(t, manager.ListPlugins())
}

func TestManager_LoadAll(t *testing.T) {
	tests := []struct {
		name    string
		dir     func(t *testing.T) string
		wantErr string
	}{
		{
			name: "missing directory",
			dir:  func(*testing.T) string { return "/nonexistent/path" },
		},
		{
			name: "missing home directory",
			dir:  func(*testing.T) string { return "~/.seccode-nonexistent" },
		},
		{
			name: "empty directory",
			dir:  func(t *testing.T) string { return t.TempDir() },
		},
		{
			name: "other files are ignored",
			dir: func(t *testing.T) string {
				dir := t.TempDir()
				require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644))
				require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.so"), 0o755))
				return dir
			},
		},
		{
			name: "not a directory",
			dir: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "file.txt")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
				return path
			},
			wantErr: "is not a directory",
		},
		{
			name: "invalid shared object",
			dir: func(t *testing.T) string {
				dir := t.TempDir()
				require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.so"), []byte("not elf"), 0o644))
				return dir
			},
			wantErr: "loading plugin broken.so",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewManager([]string{tt.dir(t)}, nil).LoadAll()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandHome("~/.seccode/plugins")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".seccode/plugins"), got)

	got, err = expandHome("~user/plugins")
	require.NoError(t, err)
	assert.Equal(t, "~user/plugins", got)
}

func TestManager_AddRules(t *testing.T) {
	manager := NewManager(nil, nil)

	require.NoError(t, manager.AddRules(meta("acme", PluginTypeRule), rule("ACME02-J"), rule("ACME01-J")))
	require.NoError(t, manager.AddRules(meta("other", PluginTypeRule), rule("OTHER01-J")))

	var ids []string
	for _, r := range manager.Rules() {
		ids = append(ids, r.ID())
	}
	assert.Equal(t, []string{"ACME01-J", "ACME02-J", "OTHER01-J"}, ids)

	p, ok := manager.Plugin("acme")
	require.True(t, ok)
	assert.Equal(t, []string{"ACME02-J", "ACME01-J"}, p.Provides)
}

func TestManager_AddRules_Errors(t *testing.T) {
	tests := []struct {
		name    string
		plugin  string
		rules   []sdk.Rule
		wantErr error
		wantMsg string
	}{
		{name: "plugin name taken", plugin: "acme", rules: []sdk.Rule{rule("NEW01-J")}, wantErr: ErrDuplicate},
		{name: "rule ID taken", plugin: "b", rules: []sdk.Rule{rule("acme01-j")}, wantErr: ErrDuplicate},
		{name: "rule ID repeated", plugin: "c", rules: []sdk.Rule{rule("C01-J"), rule("C01-J")}, wantErr: ErrDuplicate},
		{
			name:    "incomplete metadata",
			plugin:  "d",
			rules:   []sdk.Rule{mockRule{sdk.NewMeta("D01-J", "", "d", "r", sdk.SeverityLow)}},
			wantMsg: "empty name",
		},
		{name: "nil rule", plugin: "e", rules: []sdk.Rule{nil}, wantMsg: "rule is nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := NewManager(nil, nil)
			require.NoError(t, manager.AddRules(meta("acme", PluginTypeRule), rule("ACME01-J")))

			err := manager.AddRules(meta(tt.plugin, PluginTypeRule), tt.rules...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), err.Error())
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}

			// a rejected plugin registers nothing
			assert.Len(t, manager.Rules(), 1)
			assert.Len(t, manager.ListPlugins(), 1)
		})
	}
}

func TestManager_AddFormatter(t *testing.T) {
	manager := NewManager(nil, nil)
	require.NoError(t, manager.AddFormatter(meta("junit", PluginTypeFormatter), mockFormatter{"junit"}))
	require.NoError(t, manager.AddFormatter(meta("csv", PluginTypeFormatter), mockFormatter{"csv"}))

	assert.Equal(t, []string{"csv", "junit"}, manager.Formats())

	f, ok := manager.Formatter("junit")
	require.True(t, ok)
	assert.Equal(t, "junit", f.Name())

	_, ok = manager.Formatter("xml")
	assert.False(t, ok)

	plugins := manager.ListPlugins()
	require.Len(t, plugins, 2)
	assert.Equal(t, "csv", plugins[0].Metadata.Name)
	assert.Equal(t, []string{"junit"}, plugins[1].Provides)
}

func TestManager_AddFormatter_Errors(t *testing.T) {
	manager := NewManager(nil, nil)
	require.NoError(t, manager.AddFormatter(meta("junit", PluginTypeFormatter), mockFormatter{"junit"}))

	tests := []struct {
		name      string
		plugin    string
		formatter FormatterPlugin
		wantErr   string
	}{
		{name: "nil", plugin: "a", formatter: nil, wantErr: "formatter is nil"},
		{name: "empty name", plugin: "b", formatter: mockFormatter{}, wantErr: "empty name"},
		{name: "built-in format", plugin: "c", formatter: mockFormatter{"sarif"}, wantErr: "is built in"},
		{name: "format taken", plugin: "d", formatter: mockFormatter{"junit"}, wantErr: "already registered"},
		{name: "plugin name taken", plugin: "junit", formatter: mockFormatter{"other"}, wantErr: "already registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := manager.AddFormatter(meta(tt.plugin, PluginTypeFormatter), tt.formatter)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
	assert.Equal(t, []string{"junit"}, manager.Formats())
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager(nil, nil)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("P%02d-J", i)
			assert.NoError(t, manager.AddRules(meta(id, PluginTypeRule), rule(id)))
		}()
		go func() {
			defer wg.Done()
			_ = manager.Rules()
			_ = manager.ListPlugins()
		}()
	}
	wg.Wait()

	assert.Len(t, manager.Rules(), 20)
}
