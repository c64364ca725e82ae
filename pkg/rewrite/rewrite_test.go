package rewrite

import (
	"testing"

	"github.com/santosr2/seccode/pkg/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tree builds: { x.trim(); y.trim(); }
func tree() (root, first, second *syntax.Node) {
	first = syntax.Statement(syntax.Invoke(syntax.Name("x"), "trim"))
	second = syntax.Statement(syntax.Invoke(syntax.Name("y"), "trim"))
	root = syntax.Block(first, second)
	return root, first, second
}

func statements(root *syntax.Node) []string {
	var out []string
	for _, s := range root.ChildrenByRole(syntax.RoleStatements) {
		out = append(out, syntax.Print(s))
	}
	return out
}

func TestEdit_Replace(t *testing.T) {
	root, first, _ := tree()
	call := first.Child(syntax.RoleExpression)

	assign := syntax.New(syntax.KindAssignment).With(syntax.AttrOperator, "=").
		Add(syntax.RoleLeftHandSide, syntax.Name("x")).
		Add(syntax.RoleRightHandSide, call.Clone())

	out, err := NewEdit().Replace(call, assign).Apply(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"x = x.trim();", "y.trim();"}, statements(out))
	assert.Equal(t, []string{"x.trim();", "y.trim();"}, statements(root), "original must be untouched")

	replaced := out.Children[0].Child(syntax.RoleExpression)
	assert.Equal(t, syntax.RoleExpression, replaced.Role)
	assert.Same(t, out.Children[0], replaced.Parent())
}

func TestEdit_RemoveAndInsert(t *testing.T) {
	root, first, second := tree()

	out, err := NewEdit().
		Remove(first).
		Insert(root, syntax.RoleStatements, 0, syntax.Statement(syntax.Invoke(nil, "init"))).
		SetAttr(second.Child(syntax.RoleExpression), syntax.AttrName, "strip").
		Apply(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"init();", "y.strip();"}, statements(out))
}

func TestEdit_InsertAppends(t *testing.T) {
	root, _, _ := tree()

	out, err := NewEdit().
		Insert(root, syntax.RoleStatements, -1, syntax.Statement(syntax.Invoke(nil, "done"))).
		Apply(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"x.trim();", "y.trim();", "done();"}, statements(out))
}

func TestEdit_Stale(t *testing.T) {
	root, first, _ := tree()
	other, _, _ := tree()

	t.Run("foreign node", func(t *testing.T) {
		_, err := NewEdit().Remove(other.Children[0]).Apply(root)
		assert.ErrorIs(t, err, ErrStaleEdit)
	})

	t.Run("node detached by an earlier operation", func(t *testing.T) {
		call := first.Child(syntax.RoleExpression)
		_, err := NewEdit().
			Remove(first).
			SetAttr(call, syntax.AttrName, "strip").
			Apply(root)
		assert.ErrorIs(t, err, ErrStaleEdit)
	})
}

func TestEdit_Invalid(t *testing.T) {
	root, first, _ := tree()

	t.Run("empty", func(t *testing.T) {
		_, err := NewEdit().Apply(root)
		assert.ErrorIs(t, err, ErrInvalidTree)
	})

	t.Run("remove required child", func(t *testing.T) {
		_, err := NewEdit().Remove(first.Child(syntax.RoleExpression)).Apply(root)
		assert.ErrorIs(t, err, ErrInvalidTree)
	})

	t.Run("remove root", func(t *testing.T) {
		_, err := NewEdit().Remove(root).Apply(root)
		assert.ErrorIs(t, err, ErrInvalidTree)
	})

	t.Run("nil replacement", func(t *testing.T) {
		_, err := NewEdit().Replace(first.Child(syntax.RoleExpression), nil).Apply(root)
		assert.ErrorIs(t, err, ErrInvalidTree)
	})

	t.Run("nil root replacement", func(t *testing.T) {
		_, err := NewEdit().Replace(root, nil).Apply(root)
		assert.ErrorIs(t, err, ErrInvalidTree)
	})

	t.Run("nil insertion", func(t *testing.T) {
		_, err := NewEdit().Insert(root, syntax.RoleStatements, 0, nil).Apply(root)
		assert.ErrorIs(t, err, ErrInvalidTree)
	})

	t.Run("nil fix is refused", func(t *testing.T) {
		fixes := NewFixes(root)
		assert.False(t, fixes.Offer("Drop", NewEdit().Replace(first, nil)))
		assert.Zero(t, fixes.Len())
	})

	assert.Equal(t, []string{"x.trim();", "y.trim();"}, statements(root))
}

func TestChanged(t *testing.T) {
	root, first, second := tree()

	t.Run("equal trees", func(t *testing.T) {
		_, _, ok := Changed(root, root.Clone())
		assert.False(t, ok)
		assert.True(t, Equal(root, root.Clone()))
	})

	t.Run("single replaced call", func(t *testing.T) {
		call := first.Child(syntax.RoleExpression)
		out, err := NewEdit().Replace(call, syntax.Invoke(syntax.Name("x"), "strip")).Apply(root)
		require.NoError(t, err)

		old, replacement, ok := Changed(root, out)
		require.True(t, ok)
		assert.Same(t, call, old)
		assert.Equal(t, "x.strip()", syntax.Print(replacement))
	})

	t.Run("attribute below an unchanged parent", func(t *testing.T) {
		name := second.Child(syntax.RoleExpression).Child(syntax.RoleExpression)
		out, err := NewEdit().SetAttr(name, syntax.AttrIdentifier, "z").Apply(root)
		require.NoError(t, err)

		old, replacement, ok := Changed(root, out)
		require.True(t, ok)
		assert.Same(t, name, old)
		assert.Equal(t, "z", syntax.Print(replacement))
	})

	t.Run("two changes stop at their common parent", func(t *testing.T) {
		out, err := NewEdit().
			SetAttr(first.Child(syntax.RoleExpression), syntax.AttrName, "strip").
			SetAttr(second.Child(syntax.RoleExpression), syntax.AttrName, "strip").
			Apply(root)
		require.NoError(t, err)

		old, _, ok := Changed(root, out)
		require.True(t, ok)
		assert.Same(t, root, old)
	})

	t.Run("removed child", func(t *testing.T) {
		out, err := NewEdit().Remove(second).Apply(root)
		require.NoError(t, err)

		old, replacement, ok := Changed(root, out)
		require.True(t, ok)
		assert.Same(t, root, old)
		assert.Len(t, replacement.Children, 1)
	})
}

func TestFixes(t *testing.T) {
	root, first, second := tree()

	fixes := NewFixes(root)
	require.NoError(t, fixes.Add("Remove first", NewEdit().Remove(first)))
	require.NoError(t, fixes.Add("Remove second", NewEdit().Remove(second)))

	err := fixes.Add("Remove first", NewEdit().Remove(second))
	assert.ErrorIs(t, err, ErrDuplicateLabel)

	assert.False(t, fixes.Offer("Broken", NewEdit().Remove(first.Child(syntax.RoleExpression))))
	assert.Error(t, fixes.Add("", NewEdit().Remove(first)))

	assert.Equal(t, 2, fixes.Len())
	assert.Equal(t, []string{"Remove first", "Remove second"}, fixes.Labels())

	def, ok := fixes.Default()
	require.True(t, ok)
	assert.Equal(t, "Remove first", def.Label)

	edit, ok := fixes.Get("Remove second")
	require.True(t, ok)
	out, err := edit.Apply(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"x.trim();"}, statements(out))

	_, ok = fixes.Get("missing")
	assert.False(t, ok)
}

func TestFixes_Nil(t *testing.T) {
	var fixes *Fixes
	assert.Equal(t, 0, fixes.Len())
	assert.Empty(t, fixes.Labels())
	_, ok := fixes.Default()
	assert.False(t, ok)
}
