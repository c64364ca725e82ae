package rewrite

import (
	"errors"
	"fmt"

	"github.com/santosr2/seccode/pkg/syntax"
)

// ErrDuplicateLabel is returned when a label is offered twice.
var ErrDuplicateLabel = errors.New("duplicate fix label")

// Fix is one labelled edit.
type Fix struct {
	Label string
	Edit  *Edit
}

// Fixes is an ordered mapping from label to edit for one offending node.
// The first entry is the recommended fix.
type Fixes struct {
	root  *syntax.Node
	fixes []Fix
}

// NewFixes returns an empty mapping for edits against the tree rooted at root.
func NewFixes(root *syntax.Node) *Fixes {
	return &Fixes{root: root}
}

// Add appends a fix. It is rejected when the label is taken or the edit does
// not apply to the tree.
func (f *Fixes) Add(label string, edit *Edit) error {
	if label == "" {
		return errors.New("fix label is empty")
	}
	if _, ok := f.Get(label); ok {
		return fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
	}
	if _, err := edit.Apply(f.root); err != nil {
		return fmt.Errorf("fix %q: %w", label, err)
	}
	f.fixes = append(f.fixes, Fix{Label: label, Edit: edit})
	return nil
}

// Offer is Add for callers that drop fixes which cannot be applied.
func (f *Fixes) Offer(label string, edit *Edit) bool {
	return f.Add(label, edit) == nil
}

// Len returns the number of fixes. A nil mapping is empty.
func (f *Fixes) Len() int {
	if f == nil {
		return 0
	}
	return len(f.fixes)
}

// Labels returns the labels in display order.
func (f *Fixes) Labels() []string {
	if f == nil {
		return nil
	}
	labels := make([]string, len(f.fixes))
	for i, fx := range f.fixes {
		labels[i] = fx.Label
	}
	return labels
}

// Get returns the edit stored under label.
func (f *Fixes) Get(label string) (*Edit, bool) {
	if f == nil {
		return nil, false
	}
	for _, fx := range f.fixes {
		if fx.Label == label {
			return fx.Edit, true
		}
	}
	return nil, false
}

// Default returns the recommended fix.
func (f *Fixes) Default() (Fix, bool) {
	if f.Len() == 0 {
		return Fix{}, false
	}
	return f.fixes[0], true
}

// All returns a copy of the fixes in display order.
func (f *Fixes) All() []Fix {
	if f == nil {
		return nil
	}
	out := make([]Fix, len(f.fixes))
	copy(out, f.fixes)
	return out
}
