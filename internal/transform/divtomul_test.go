package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewire-ml/rewire/internal/graph"
)

// buildAttentionScores creates: out = div(scores, 8.0), the usual static
// scaling in attention layers.
func buildAttentionScores() *graph.Graph {
	g := graph.New()
	scores := g.NewNode("scores", graph.Placeholder, "scores")
	scaled := g.NewNode("scaled", graph.CallFunction, "div", graph.NodeArg(scores), graph.FloatArg(8))
	g.NewNode("output", graph.Output, "output", graph.NodeArg(scaled))
	return g
}

func TestDivToMulTransform(t *testing.T) {
	g := buildAttentionScores()

	out, err := Apply(g, ChangeDivToMulByInverse{})
	require.NoError(t, err)

	n := out.Node(out.Nodes()[1])
	assert.Equal(t, "mul", n.Target)
	assert.Equal(t, 0.125, n.Args[1].Float)
	assert.Equal(t, "div-to-mul-by-inverse", n.TransformedBy)
}

func TestDivToMulRoundTrip(t *testing.T) {
	g := buildAttentionScores()
	original := g.Clone()

	tr := ChangeDivToMulByInverse{}
	out, err := Apply(g, tr)
	require.NoError(t, err)
	out, err = Revert(out, tr)
	require.NoError(t, err)

	// 1/(1/8) is exact for powers of two.
	assert.True(t, graph.Equivalent(original, out, 0))
	assert.Empty(t, out.Node(out.Nodes()[1]).TransformedBy)
}

func TestDivToMulSkipsNodeDenominator(t *testing.T) {
	g := graph.New()
	x := g.NewNode("x", graph.Placeholder, "x")
	y := g.NewNode("y", graph.Placeholder, "y")
	d := g.NewNode("ratio", graph.CallFunction, "div", graph.NodeArg(x), graph.NodeArg(y))
	g.NewNode("output", graph.Output, "output", graph.NodeArg(d))

	out, err := Apply(g, ChangeDivToMulByInverse{})
	require.NoError(t, err)

	n := out.Node(d)
	assert.Equal(t, "div", n.Target)
	assert.Empty(t, n.TransformedBy)
}

func TestDivToMulRejectsWrongArity(t *testing.T) {
	g := graph.New()
	x := g.NewNode("x", graph.Placeholder, "x")
	g.NewNode("bad", graph.CallFunction, "div", graph.NodeArg(x))

	_, err := ChangeDivToMulByInverse{}.Transform(g)
	var nerr *graph.NodeError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "bad", nerr.Name)
}
