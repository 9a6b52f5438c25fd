package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewire-ml/rewire/internal/graph"
)

// buildQKV creates the classic merge candidate: three linear projections of
// the same input.
//
//	q = query(x); k = key(x); v = value(x)
func buildQKV(t *testing.T, withBias bool) (*graph.Graph, graph.NodeRef) {
	t.Helper()
	g := graph.New()
	x := g.NewNode("x", graph.Placeholder, "x")

	modules := []struct {
		name   string
		out    int
		weight []float32
	}{
		{"query", 2, []float32{1, 2, 3, 4}},
		{"key", 2, []float32{5, 6, 7, 8}},
		{"value", 1, []float32{9, 10}},
	}
	var last graph.NodeRef
	for _, m := range modules {
		lin := &graph.Linear{InFeatures: 2, OutFeatures: m.out, Weight: m.weight}
		if withBias {
			lin.Bias = make([]float32, m.out)
			for i := range lin.Bias {
				lin.Bias[i] = float32(m.out)
			}
		}
		require.NoError(t, g.AddModule(m.name, lin))
		last = g.NewNode(m.name, graph.CallModule, m.name, graph.NodeArg(x))
	}
	g.NewNode("output", graph.Output, "output", graph.NodeArg(last))
	return g, x
}

func TestMergeLinearsTransform(t *testing.T) {
	g, x := buildQKV(t, true)

	out, err := Apply(g, MergeLinears{})
	require.NoError(t, err)

	merged := out.Module("query-key-value-merged")
	require.NotNil(t, merged)
	assert.Equal(t, 2, merged.InFeatures)
	assert.Equal(t, 5, merged.OutFeatures)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, merged.Weight)
	assert.Equal(t, []float32{2, 2, 2, 2, 1}, merged.Bias)

	// Original modules are gone.
	assert.Nil(t, out.Module("query"))
	assert.Nil(t, out.Module("key"))
	assert.Nil(t, out.Module("value"))

	// The merged node follows the input and the projections became slices.
	refs := out.Nodes()
	mergedRef := refs[1]
	mn := out.Node(mergedRef)
	assert.Equal(t, graph.CallModule, mn.Op)
	assert.Equal(t, "merge-linears", mn.TransformedBy)
	assert.Equal(t, []graph.Arg{graph.NodeArg(x)}, mn.Args)

	wantSlices := [][2]int64{{0, 2}, {2, 4}, {4, 5}}
	users := out.Users(mergedRef)
	require.Len(t, users, 3)
	for i, ref := range users {
		n := out.Node(ref)
		assert.Equal(t, graph.CallFunction, n.Op)
		assert.Equal(t, "getitem", n.Target)
		assert.Equal(t, wantSlices[i][0], n.Args[1].Int)
		assert.Equal(t, wantSlices[i][1], n.Args[2].Int)
	}
}

func TestMergeLinearsRoundTrip(t *testing.T) {
	for _, withBias := range []bool{true, false} {
		g, _ := buildQKV(t, withBias)
		original := g.Clone()

		ml := MergeLinears{}
		out, err := Apply(g, ml)
		require.NoError(t, err)
		assert.False(t, graph.Equivalent(original, out, 0))

		out, err = Revert(out, ml)
		require.NoError(t, err)
		assert.True(t, graph.Equivalent(original, out, 0), "bias=%v", withBias)
	}
}

func TestMergeLinearsSingleConsumerUntouched(t *testing.T) {
	g := graph.New()
	x := g.NewNode("x", graph.Placeholder, "x")
	require.NoError(t, g.AddModule("proj", &graph.Linear{
		InFeatures: 2, OutFeatures: 2, Weight: []float32{1, 0, 0, 1},
	}))
	g.NewNode("proj", graph.CallModule, "proj", graph.NodeArg(x))
	original := g.Clone()

	out, err := Apply(g, MergeLinears{})
	require.NoError(t, err)
	assert.True(t, graph.Equivalent(original, out, 0))
}

func TestMergeLinearsMismatchedInputFeatures(t *testing.T) {
	g := graph.New()
	x := g.NewNode("x", graph.Placeholder, "x")
	require.NoError(t, g.AddModule("a", &graph.Linear{InFeatures: 2, OutFeatures: 1, Weight: []float32{1, 2}}))
	require.NoError(t, g.AddModule("b", &graph.Linear{InFeatures: 3, OutFeatures: 1, Weight: []float32{1, 2, 3}}))
	g.NewNode("a", graph.CallModule, "a", graph.NodeArg(x))
	g.NewNode("b", graph.CallModule, "b", graph.NodeArg(x))

	_, err := MergeLinears{}.Transform(g)
	var nerr *graph.NodeError
	require.ErrorAs(t, err, &nerr)
	assert.Contains(t, nerr.Reason, "input features")
}

func TestMergeLinearsComposedWithDivToMul(t *testing.T) {
	g, _ := buildQKV(t, true)
	scores := g.Nodes()[2]
	d := g.NewNode("scaled", graph.CallFunction, "div", graph.NodeArg(scores), graph.FloatArg(8))
	g.NewNode("out2", graph.Output, "output", graph.NodeArg(d))
	original := g.Clone()

	c := Compose(ChangeDivToMulByInverse{}, MergeLinears{})
	rt, ok := c.(ReversibleTransformation)
	require.True(t, ok)

	out, err := Apply(g, c)
	require.NoError(t, err)
	out, err = rt.Reverse(out)
	require.NoError(t, err)
	require.NoError(t, out.Lint())
	assert.True(t, graph.Equivalent(original, out, 0))
}
