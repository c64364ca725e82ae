package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/santosr2/seccode/pkg/rewrite"
	"github.com/santosr2/seccode/pkg/sdk"
	"github.com/santosr2/seccode/pkg/syntax"
)

// ErrNoFix is returned when a violation has no fix under the requested label.
var ErrNoFix = errors.New("no fix available")

// maxFixes bounds the fix passes over a single unit.
const maxFixes = 1000

// Fixer applies proposed fixes to in-memory units. Edits on the same unit are
// serialised; different units are fixed independently.
type Fixer struct {
	mu    sync.Mutex
	units map[*syntax.Unit]*unitLock
	log   *slog.Logger
}

// unitLock is dropped from Fixer.units once no caller holds or waits for it.
type unitLock struct {
	sync.Mutex
	refs int
}

// Applied records one fix applied by FixUnit.
type Applied struct {
	RuleID string
	Label  string
	At     string
}

// NewFixer creates a fixer. A nil logger uses slog.Default.
func NewFixer(log *slog.Logger) *Fixer {
	if log == nil {
		log = slog.Default()
	}
	return &Fixer{
		units: make(map[*syntax.Unit]*unitLock),
		log:   log,
	}
}

func (f *Fixer) lock(u *syntax.Unit) func() {
	f.mu.Lock()
	l, ok := f.units[u]
	if !ok {
		l = &unitLock{}
		f.units[u] = l
	}
	l.refs++
	f.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		f.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(f.units, u)
		}
		f.mu.Unlock()
	}
}

// Propose returns the fixes the violation's rule offers for its node, derived
// from the current tree.
func (f *Fixer) Propose(v sdk.Violation) *rewrite.Fixes {
	return sdk.ProposedFixes(v.Rule, v.Node)
}

// Apply applies the fix stored under label to unit and returns the label
// used. An empty label selects the recommended fix.
//
// The fix is derived again from the unit's current tree; a violation whose
// node is no longer part of the unit fails with rewrite.ErrStaleEdit and one
// that no longer fires fails with ErrNoFix. On success unit.Root is replaced
// by the edited tree.
func (f *Fixer) Apply(unit *syntax.Unit, v sdk.Violation, label string) (string, error) {
	if unit == nil || unit.Root == nil {
		return "", fmt.Errorf("%w: no unit", rewrite.ErrStaleEdit)
	}

	unlock := f.lock(unit)
	defer unlock()

	if v.Node.Root() != unit.Root {
		return "", fmt.Errorf("%w: %s at %s is not part of %s", rewrite.ErrStaleEdit, v.Rule.ID(), v.Node, unit.Filename())
	}

	fixes := f.Propose(v)
	var edit *rewrite.Edit
	if label == "" {
		def, ok := fixes.Default()
		if !ok {
			return "", fmt.Errorf("%w: %s at %s", ErrNoFix, v.Rule.ID(), v.Node)
		}
		label, edit = def.Label, def.Edit
	} else {
		var ok bool
		if edit, ok = fixes.Get(label); !ok {
			return "", fmt.Errorf("%w: %s at %s has no fix %q", ErrNoFix, v.Rule.ID(), v.Node, label)
		}
	}

	fixed, err := edit.ApplyUnit(unit)
	if err != nil {
		return "", fmt.Errorf("applying %q for %s: %w", label, v.Rule.ID(), err)
	}
	unit.Root = fixed.Root

	f.log.Debug("applied fix", "rule", v.Rule.ID(), "label", label, "file", unit.Filename(), "at", v.Location.String())
	return label, nil
}

// FixUnit repeatedly evaluates rs over unit and applies the first available
// fix until no eligible violation remains. keep selects the violations to
// fix (nil keeps all); label, when set, restricts fixing to fixes with that
// label.
func (f *Fixer) FixUnit(unit *syntax.Unit, rs []sdk.Rule, keep func(sdk.Violation) bool, label string) ([]Applied, error) {
	var applied []Applied

	for range maxFixes {
		v, ok := f.next(unit, rs, keep, label)
		if !ok {
			return applied, nil
		}

		at := v.Location.String()
		used, err := f.Apply(unit, v, label)
		if err != nil {
			return applied, err
		}
		applied = append(applied, Applied{RuleID: v.Rule.ID(), Label: used, At: at})
	}

	return applied, fmt.Errorf("fixing %s: gave up after %d fixes", unit.Filename(), maxFixes)
}

func (f *Fixer) next(unit *syntax.Unit, rs []sdk.Rule, keep func(sdk.Violation) bool, label string) (sdk.Violation, bool) {
	for _, v := range Evaluate(unit, rs) {
		if keep != nil && !keep(v) {
			continue
		}
		fixes := f.Propose(v)
		if label == "" && fixes.Len() > 0 {
			return v, true
		}
		if _, ok := fixes.Get(label); ok {
			return v, true
		}
	}
	return sdk.Violation{}, false
}
