package inherit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/modkit/pkg/modkit/errors"
)

// graph builds a parent function from an adjacency map.
func graph(edges map[string][]string) func(string) []string {
	return func(k string) []string { return edges[k] }
}

func constant(v string) Func[int, string] {
	return func(int) (string, bool) { return v, true }
}

func noValue() Func[int, string] {
	return func(int) (string, bool) { return "", false }
}

func TestApply_DeclaredOverridesInherited(t *testing.T) {
	r := New[string, int, string](graph(map[string][]string{
		"child": {"parent"},
	}))
	r.Declare("parent", constant("parent"))
	r.Declare("child", constant("child"))

	out, ok, err := r.Apply("child", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "child", out)
}

func TestApply_DelegatesToSingleParent(t *testing.T) {
	r := New[string, int, string](graph(map[string][]string{
		"child":  {"parent"},
		"parent": {"root"},
	}))
	r.Declare("root", constant("root"))

	out, ok, err := r.Apply("child", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "root", out)
}

func TestApply_SentinelFallsThrough(t *testing.T) {
	r := New[string, int, string](graph(map[string][]string{
		"child": {"parent"},
	}))
	r.Declare("parent", constant("parent"))
	r.Declare("child", func(in int) (string, bool) {
		if in > 0 {
			return "child", true
		}
		return "", false
	})

	out, _, err := r.Apply("child", 1)
	require.NoError(t, err)
	assert.Equal(t, "child", out)

	out, ok, err := r.Apply("child", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "parent", out)
}

func TestApply_ChainExhausted(t *testing.T) {
	r := New[string, int, string](graph(map[string][]string{
		"child": {"parent"},
	}))
	r.Declare("parent", noValue())

	out, ok, err := r.Apply("child", 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, out)

	out, ok, err = r.Apply("orphan", 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, out)
}

func TestApply_AmbiguousParents(t *testing.T) {
	r := New[string, int, string](graph(map[string][]string{
		"child": {"left", "right"},
	}))
	r.Declare("left", constant("left"))
	r.Declare("right", constant("right"))

	_, _, err := r.Apply("child", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAmbiguousInheritance)
	assert.True(t, errors.IsAmbiguous(err))

	var ambErr *AmbiguousError[string, int, string]
	require.ErrorAs(t, err, &ambErr)
	assert.Equal(t, "child", ambErr.Key)
	assert.Equal(t, "left", ambErr.Conflict.First.Key())
	assert.Equal(t, "right", ambErr.Conflict.Second.Key())
	assert.False(t, r.Cached("child"))
}

func TestApply_PriorityResolvesAmbiguity(t *testing.T) {
	edges := graph(map[string][]string{
		"child": {"left", "right"},
	})
	priority := map[string]string{"child": "right"}
	r := New[string, int, string](edges, WithPriority[string, int, string](func(k string) (string, bool) {
		v, ok := priority[k]
		return v, ok
	}))
	r.Declare("left", constant("left"))
	r.Declare("right", constant("right"))

	out, ok, err := r.Apply("child", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "right", out)

	// A priority target that is not among the conflicting parents does not help.
	priority["child"] = "elsewhere"
	r.ClearCache()
	_, _, err = r.Apply("child", 0)
	assert.ErrorIs(t, err, errors.ErrAmbiguousInheritance)
}

func TestApply_PriorityMatchesDeclaringNode(t *testing.T) {
	r := New[string, int, string](graph(map[string][]string{
		"child": {"left", "right"},
		"right": {"base"},
	}), WithPriority[string, int, string](func(k string) (string, bool) {
		return "base", k == "child"
	}))
	r.Declare("left", constant("left"))
	r.Declare("base", constant("base"))

	out, _, err := r.Apply("child", 0)
	require.NoError(t, err)
	assert.Equal(t, "base", out)
}

func TestApply_PriorityIndependentOfParentOrder(t *testing.T) {
	for _, parents := range [][]string{
		{"c", "a", "b"},
		{"a", "b", "c"},
		{"b", "a", "c"},
		{"a", "c", "b"},
	} {
		r := New[string, int, string](graph(map[string][]string{
			"k": parents,
			"c": {"a"},
		}), WithPriority[string, int, string](func(k string) (string, bool) {
			return "c", k == "k"
		}))
		r.Declare("a", constant("a"))
		r.Declare("b", constant("b"))
		r.Declare("c", constant("c"))

		out, ok, err := r.Apply("k", 0)
		require.NoError(t, err, "parents %v", parents)
		assert.True(t, ok)
		assert.Equal(t, "c", out, "parents %v", parents)
	}
}

func TestApply_OverriddenParentDroppedBeforeConflict(t *testing.T) {
	// a is overridden by c, leaving b and c unrelated.
	r := New[string, int, string](graph(map[string][]string{
		"k": {"a", "b", "c"},
		"c": {"a"},
	}))
	r.Declare("a", constant("a"))
	r.Declare("b", constant("b"))
	r.Declare("c", constant("c"))

	_, _, err := r.Apply("k", 0)
	var ambErr *AmbiguousError[string, int, string]
	require.ErrorAs(t, err, &ambErr)
	assert.Equal(t, "b", ambErr.Conflict.First.Key())
	assert.Equal(t, "c", ambErr.Conflict.Second.Key())
}

func TestApply_DiamondIsNotAmbiguous(t *testing.T) {
	// child -> {left, right}; both inherit from base, only base declares.
	r := New[string, int, string](graph(map[string][]string{
		"child": {"left", "right"},
		"left":  {"base"},
		"right": {"base"},
	}))
	r.Declare("base", constant("base"))

	out, _, err := r.Apply("child", 0)
	require.NoError(t, err)
	assert.Equal(t, "base", out)
}

func TestApply_MoreSpecificParentWins(t *testing.T) {
	// right overrides base; left only inherits base. right is more specific.
	r := New[string, int, string](graph(map[string][]string{
		"child": {"left", "right"},
		"left":  {"base"},
		"right": {"base"},
	}))
	r.Declare("base", constant("base"))
	r.Declare("right", constant("right"))

	out, _, err := r.Apply("child", 0)
	require.NoError(t, err)
	assert.Equal(t, "right", out)

	node, err := r.Node("child")
	require.NoError(t, err)
	assert.Equal(t, []string{"child", "right", "base"}, node.Chain())
}

func TestApply_UndeclaredParentIgnored(t *testing.T) {
	r := New[string, int, string](graph(map[string][]string{
		"child": {"empty", "full"},
	}))
	r.Declare("full", constant("full"))

	out, _, err := r.Apply("child", 0)
	require.NoError(t, err)
	assert.Equal(t, "full", out)
}

func TestNode_CycleDetected(t *testing.T) {
	r := New[string, int, string](graph(map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}))

	_, err := r.Node("a")
	assert.ErrorIs(t, err, errors.ErrInheritanceCycle)
	assert.False(t, r.Cached("a"))
}

func TestLookup_StaleUntilClearCache(t *testing.T) {
	declared := map[string]Func[int, string]{"k": constant("v1")}
	r := New[string, int, string](nil, WithLookup[string, int, string](func(k string) (Func[int, string], bool) {
		fn, ok := declared[k]
		return fn, ok
	}))

	out, _, err := r.Apply("k", 0)
	require.NoError(t, err)
	assert.Equal(t, "v1", out)

	declared["k"] = constant("v2")

	out, _, err = r.Apply("k", 0)
	require.NoError(t, err)
	assert.Equal(t, "v1", out, "cached node keeps the old declaration")

	r.ClearCache()
	out, _, err = r.Apply("k", 0)
	require.NoError(t, err)
	assert.Equal(t, "v2", out)
}

func TestParents_StaleUntilClearCache(t *testing.T) {
	edges := map[string][]string{"child": {"a"}}
	r := New[string, int, string](graph(edges))
	r.Declare("a", constant("a"))
	r.Declare("b", constant("b"))

	out, _, _ := r.Apply("child", 0)
	assert.Equal(t, "a", out)

	edges["child"] = []string{"b"}
	out, _, _ = r.Apply("child", 0)
	assert.Equal(t, "a", out)

	r.ClearCache()
	out, _, _ = r.Apply("child", 0)
	assert.Equal(t, "b", out)
}

func TestDeclare_InvalidatesCache(t *testing.T) {
	r := New[string, int, string](nil)
	r.Declare("k", constant("v1"))

	out, _, _ := r.Apply("k", 0)
	assert.Equal(t, "v1", out)
	assert.True(t, r.Cached("k"))

	r.Declare("k", constant("v2"))
	assert.False(t, r.Cached("k"))
	out, _, _ = r.Apply("k", 0)
	assert.Equal(t, "v2", out)

	r.Declare("k", nil)
	_, ok, _ := r.Apply("k", 0)
	assert.False(t, ok)
}

func TestDeclare_TakesPrecedenceOverLookup(t *testing.T) {
	r := New[string, int, string](nil, WithLookup[string, int, string](func(string) (Func[int, string], bool) {
		return constant("lookup"), true
	}))
	r.Declare("k", constant("declared"))

	out, _, _ := r.Apply("k", 0)
	assert.Equal(t, "declared", out)
	out, _, _ = r.Apply("other", 0)
	assert.Equal(t, "lookup", out)
}

func TestNode_Overrides(t *testing.T) {
	r := New[string, int, string](graph(map[string][]string{
		"mid":  {"base"},
		"leaf": {"mid"},
	}))
	r.Declare("base", constant("base"))
	r.Declare("mid", constant("mid"))

	base, err := r.Node("base")
	require.NoError(t, err)
	leaf, err := r.Node("leaf")
	require.NoError(t, err)
	bare, err := r.Node("bare")
	require.NoError(t, err)

	assert.True(t, leaf.Overrides(base))
	assert.False(t, base.Overrides(leaf))
	assert.True(t, leaf.Overrides(leaf))
	assert.True(t, base.Overrides(bare), "anything overrides an undeclared chain")
	assert.Equal(t, "mid", leaf.Declaring().Key())
	assert.False(t, leaf.Declares())
	assert.Equal(t, "leaf(declared by mid)", leaf.String())
	assert.Equal(t, "bare(undeclared)", bare.String())
}
