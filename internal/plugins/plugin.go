// Package plugins loads seccode extensions built as Go plugins.
//
// Two kinds of plugin are supported:
//   - Rule plugins contribute additional sdk.Rule implementations
//   - Formatter plugins contribute output formats for `seccode check`
//
// A plugin is a .so file exporting two symbols:
//   - PluginMetadata, a plugins.PluginMetadata variable
//   - New, a func() RulePlugin or func() FormatterPlugin
//
// Loading real .so files needs a plugin built against the exact same
// toolchain and dependency versions, so only the directory scanning and the
// registry are covered by unit tests.
package plugins

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"plugin"
	"slices"
	"strings"
	"sync"

	"github.com/santosr2/seccode/internal/output"
	"github.com/santosr2/seccode/pkg/sdk"
)

// PluginType represents the type of plugin
type PluginType string

const (
	// PluginTypeRule represents a custom rule plugin
	PluginTypeRule PluginType = "rule"
	// PluginTypeFormatter represents a custom output formatter plugin
	PluginTypeFormatter PluginType = "formatter"
)

// PluginMetadata contains information about a plugin
type PluginMetadata struct {
	Name        string     `json:"name" yaml:"name"`
	Version     string     `json:"version" yaml:"version"`
	Description string     `json:"description" yaml:"description"`
	Author      string     `json:"author" yaml:"author"`
	Type        PluginType `json:"type" yaml:"type"`
	Path        string     `json:"path" yaml:"path"`
}

// Plugin represents a loaded plugin
type Plugin struct {
	Metadata PluginMetadata
	// Provides lists the rule IDs or formatter name the plugin registered.
	Provides []string
}

// RulePlugin is returned by the New symbol of rule plugins.
type RulePlugin interface {
	Rules() []sdk.Rule
}

// FormatterPlugin is returned by the New symbol of formatter plugins.
type FormatterPlugin interface {
	output.Formatter
	// Name is the value selecting the formatter in --format.
	Name() string
}

// ErrDuplicate is returned when two plugins register the same rule ID or
// formatter name.
var ErrDuplicate = errors.New("already registered")

// Manager manages plugin loading and registration
type Manager struct {
	mu          sync.RWMutex
	plugins     map[string]*Plugin
	rules       map[string]sdk.Rule
	formatters  map[string]FormatterPlugin
	directories []string
	log         *slog.Logger
}

// NewManager creates a manager scanning directories for plugins. A nil
// logger uses slog.Default.
func NewManager(directories []string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		plugins:     make(map[string]*Plugin),
		rules:       make(map[string]sdk.Rule),
		formatters:  make(map[string]FormatterPlugin),
		directories: directories,
		log:         log,
	}
}

// LoadAll loads all plugins from the configured directories
func (m *Manager) LoadAll() error {
	for _, dir := range m.directories {
		if err := m.loadFromDirectory(dir); err != nil {
			return fmt.Errorf("loading plugins from %s: %w", dir, err)
		}
	}
	return nil
}

func expandHome(dir string) (string, error) {
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dir[1:]), nil
}

// loadFromDirectory loads every .so file of dir. Missing directories are
// skipped.
func (m *Manager) loadFromDirectory(dir string) error {
	dir, err := expandHome(dir)
	if err != nil {
		return err
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		m.log.Debug("plugin directory not found", "dir", dir)
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".so" {
			continue
		}
		if err := m.loadGoPlugin(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("loading plugin %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (m *Manager) loadGoPlugin(path string) error {
	p, err := plugin.Open(path)
	if err != nil {
		return fmt.Errorf("opening plugin: %w", err)
	}

	metaSym, err := p.Lookup("PluginMetadata")
	if err != nil {
		return fmt.Errorf("plugin missing PluginMetadata symbol: %w", err)
	}
	metadata, ok := metaSym.(*PluginMetadata)
	if !ok {
		return errors.New("PluginMetadata has wrong type")
	}
	meta := *metadata
	meta.Path = path

	newSym, err := p.Lookup("New")
	if err != nil {
		return fmt.Errorf("plugin missing New function: %w", err)
	}

	switch meta.Type {
	case PluginTypeRule:
		newFunc, ok := newSym.(func() RulePlugin)
		if !ok {
			return errors.New("New has wrong signature, want func() plugins.RulePlugin")
		}
		return m.AddRules(meta, newFunc().Rules()...)
	case PluginTypeFormatter:
		newFunc, ok := newSym.(func() FormatterPlugin)
		if !ok {
			return errors.New("New has wrong signature, want func() plugins.FormatterPlugin")
		}
		return m.AddFormatter(meta, newFunc())
	default:
		return fmt.Errorf("unknown plugin type: %q", meta.Type)
	}
}

// AddRules registers the rules of a rule plugin. Rules must carry complete
// metadata and IDs unique among plugin rules; clashes with built-in rules
// are reported by rules.Build when the rule set is assembled.
func (m *Manager) AddRules(meta PluginMetadata, rs ...sdk.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plugins[meta.Name]; ok {
		return fmt.Errorf("plugin %q: %w", meta.Name, ErrDuplicate)
	}

	seen := make(map[string]bool)
	for _, r := range rs {
		if err := sdk.ValidateRule(r); err != nil {
			return fmt.Errorf("plugin %q: %w", meta.Name, err)
		}
		key := strings.ToUpper(r.ID())
		if _, ok := m.rules[key]; ok || seen[key] {
			return fmt.Errorf("plugin %q: rule %s %w", meta.Name, r.ID(), ErrDuplicate)
		}
		seen[key] = true
	}

	p := &Plugin{Metadata: meta}
	for _, r := range rs {
		m.rules[strings.ToUpper(r.ID())] = r
		p.Provides = append(p.Provides, r.ID())
	}
	m.plugins[meta.Name] = p

	m.log.Debug("rule plugin loaded", "plugin", meta.Name, "version", meta.Version, "rules", len(rs))
	return nil
}

// AddFormatter registers the formatter of a formatter plugin. Names of the
// built-in formats are reserved.
func (m *Manager) AddFormatter(meta PluginMetadata, f FormatterPlugin) error {
	if f == nil {
		return fmt.Errorf("plugin %q: formatter is nil", meta.Name)
	}
	name := f.Name()
	if name == "" {
		return fmt.Errorf("plugin %q: formatter has an empty name", meta.Name)
	}
	if slices.Contains(output.Formats(), name) {
		return fmt.Errorf("plugin %q: format %s is built in: %w", meta.Name, name, ErrDuplicate)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plugins[meta.Name]; ok {
		return fmt.Errorf("plugin %q: %w", meta.Name, ErrDuplicate)
	}
	if _, ok := m.formatters[name]; ok {
		return fmt.Errorf("plugin %q: format %s %w", meta.Name, name, ErrDuplicate)
	}

	m.formatters[name] = f
	m.plugins[meta.Name] = &Plugin{Metadata: meta, Provides: []string{name}}

	m.log.Debug("formatter plugin loaded", "plugin", meta.Name, "version", meta.Version, "format", name)
	return nil
}

// Rules returns the plugin rules ordered by ID.
func (m *Manager) Rules() []sdk.Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rs := make([]sdk.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		rs = append(rs, r)
	}
	slices.SortFunc(rs, func(a, b sdk.Rule) int { return cmp.Compare(a.ID(), b.ID()) })
	return rs
}

// Formatter returns the plugin formatter registered under name.
func (m *Manager) Formatter(name string) (FormatterPlugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.formatters[name]
	return f, ok
}

// Formats returns the names of the plugin formatters, sorted.
func (m *Manager) Formats() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.formatters))
	for name := range m.formatters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Plugin returns the loaded plugin called name.
func (m *Manager) Plugin(name string) (*Plugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plugins[name]
	return p, ok
}

// ListPlugins returns the loaded plugins ordered by name.
func (m *Manager) ListPlugins() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b *Plugin) int { return cmp.Compare(a.Metadata.Name, b.Metadata.Name) })
	return result
}
