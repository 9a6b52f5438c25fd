package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMulGraph creates: out = mul(x, y).
func buildMulGraph() (*Graph, NodeRef, NodeRef, NodeRef) {
	g := New()
	x := g.NewNode("x", Placeholder, "x")
	y := g.NewNode("y", Placeholder, "y")
	p := g.NewNode("prod", CallFunction, "mul", NodeArg(x), NodeArg(y))
	g.NewNode("output", Output, "output", NodeArg(p))
	return g, x, y, p
}

func TestNewNodeOrder(t *testing.T) {
	g, x, y, p := buildMulGraph()

	refs := g.Nodes()
	require.Len(t, refs, 4)
	assert.Equal(t, []NodeRef{x, y, p, refs[3]}, refs)
	assert.Equal(t, 4, g.Len())

	n := g.Node(p)
	require.NotNil(t, n)
	assert.Equal(t, CallFunction, n.Op)
	assert.Equal(t, "mul", n.Target)
}

func TestInsertAfter(t *testing.T) {
	g, x, _, p := buildMulGraph()

	mid, err := g.InsertAfter(x, "scaled", CallFunction, "mul", NodeArg(x), FloatArg(2))
	require.NoError(t, err)

	refs := g.Nodes()
	require.Len(t, refs, 5)
	// New node sits right after x, refs of existing nodes are unchanged.
	assert.Equal(t, refs[0], x)
	assert.Equal(t, refs[1], mid)
	assert.Equal(t, CallFunction, g.Node(p).Op)

	_, err = g.InsertAfter(NodeRef(99), "bad", Placeholder, "bad")
	assert.Error(t, err)
}

func TestEraseRefusesWithUsers(t *testing.T) {
	g, x, _, p := buildMulGraph()

	err := g.Erase(x)
	require.Error(t, err)
	var nerr *NodeError
	require.ErrorAs(t, err, &nerr)

	// Remove the user first, then erasure succeeds.
	out := g.Nodes()[3]
	require.NoError(t, g.Erase(out))
	require.NoError(t, g.Erase(p))

	assert.Nil(t, g.Node(p))
	assert.Equal(t, 2, g.Len())
}

func TestUsers(t *testing.T) {
	g, x, y, p := buildMulGraph()

	assert.Equal(t, []NodeRef{p}, g.Users(x))
	assert.Equal(t, []NodeRef{p}, g.Users(y))
	assert.Len(t, g.Users(p), 1)
}

func TestCloneIsIndependent(t *testing.T) {
	g, _, _, p := buildMulGraph()
	g.Node(p).TransformedBy = "some-transformation"
	require.NoError(t, g.AddModule("fc", &Linear{
		InFeatures: 2, OutFeatures: 1, Weight: []float32{1, 2}, Bias: []float32{0.5},
	}))

	c := g.Clone()
	require.True(t, Equivalent(g, c, 0))
	assert.Equal(t, "some-transformation", c.Node(p).TransformedBy)

	// Mutating the clone leaves the original alone.
	c.Node(p).Target = "add"
	c.Module("fc").Weight[0] = 99
	assert.Equal(t, "mul", g.Node(p).Target)
	assert.Equal(t, float32(1), g.Module("fc").Weight[0])
	assert.False(t, Equivalent(g, c, 0))
}

func TestModuleTable(t *testing.T) {
	g := New()
	lin := &Linear{InFeatures: 2, OutFeatures: 3, Weight: make([]float32, 6)}

	require.NoError(t, g.AddModule("fc", lin))
	assert.Error(t, g.AddModule("fc", lin), "duplicate module name")
	assert.Same(t, lin, g.Module("fc"))

	g.RemoveModule("fc")
	assert.Nil(t, g.Module("fc"))
}

func TestString(t *testing.T) {
	g, _, _, _ := buildMulGraph()
	s := g.String()
	assert.Contains(t, s, "call_function = mul(")
	assert.Contains(t, s, "placeholder")
}
