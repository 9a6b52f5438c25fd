package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewire-ml/rewire/internal/graph"
)

// multiplyToAdd rewrites mul nodes into add nodes. It has no inverse: once
// rewritten, nothing distinguishes an original add from a converted mul.
type multiplyToAdd struct{}

func (multiplyToAdd) Name() string { return "multiply-to-add" }

func (multiplyToAdd) Transform(g *graph.Graph) (*graph.Graph, error) {
	for _, ref := range g.Nodes() {
		n := g.Node(ref)
		if n.Op == graph.CallFunction && n.Target == "mul" {
			n.Target = "add"
		}
	}
	return g, nil
}

// scaleFirstOperand multiplies the literal first operand of every mul node
// by k; its reverse divides by k again.
type scaleFirstOperand struct{ k float64 }

func (scaleFirstOperand) Name() string { return "scale-first-operand" }

func (t scaleFirstOperand) Transform(g *graph.Graph) (*graph.Graph, error) {
	return t.scale(g, t.k), nil
}

func (t scaleFirstOperand) Reverse(g *graph.Graph) (*graph.Graph, error) {
	return t.scale(g, 1/t.k), nil
}

func (t scaleFirstOperand) scale(g *graph.Graph, k float64) *graph.Graph {
	for _, ref := range g.Nodes() {
		n := g.Node(ref)
		if n.Op == graph.CallFunction && n.Target == "mul" && n.Args[0].Kind == graph.ArgFloat {
			n.Args[0] = graph.FloatArg(n.Args[0].Float * k)
		}
	}
	return g
}

// buildScaledMul creates: out = mul(3.0, y).
func buildScaledMul() *graph.Graph {
	g := graph.New()
	y := g.NewNode("y", graph.Placeholder, "y")
	p := g.NewNode("prod", graph.CallFunction, "mul", graph.FloatArg(3), graph.NodeArg(y))
	g.NewNode("output", graph.Output, "output", graph.NodeArg(p))
	return g
}

func TestApplyMultiplyToAdd(t *testing.T) {
	g := buildScaledMul()

	out, err := Apply(g, multiplyToAdd{})
	require.NoError(t, err)

	n := out.Node(out.Nodes()[1])
	assert.Equal(t, "add", n.Target)
	assert.Equal(t, graph.CallFunction, n.Op)
}

func TestRevertMultiplyToAddFails(t *testing.T) {
	g := buildScaledMul()

	_, err := Revert(g, multiplyToAdd{})
	var cerr *CapabilityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "multiply-to-add", cerr.Transformation)
}

func TestScaleThenCompensateRoundTrip(t *testing.T) {
	g := buildScaledMul()
	original := g.Clone()

	st := scaleFirstOperand{k: 2}
	out, err := Apply(g, st)
	require.NoError(t, err)
	assert.Equal(t, 6.0, out.Node(out.Nodes()[1]).Args[0].Float)
	assert.False(t, graph.Equivalent(original, out, 0))

	out, err = Revert(out, st)
	require.NoError(t, err)
	// Division by 2 is exact, so tolerance zero holds.
	assert.True(t, graph.Equivalent(original, out, 0))
}

func TestApplyLintsResult(t *testing.T) {
	g := buildScaledMul()

	// A transformation that breaks arity must be caught by the post-lint.
	breaker := transformationFunc(func(g *graph.Graph) (*graph.Graph, error) {
		n := g.Node(g.Nodes()[1])
		n.Args = n.Args[:1]
		return g, nil
	})

	_, err := Apply(g, breaker)
	require.Error(t, err)
	var nerr *graph.NodeError
	assert.ErrorAs(t, err, &nerr)
}

// transformationFunc adapts a func to Transformation for tests.
type transformationFunc func(*graph.Graph) (*graph.Graph, error)

func (transformationFunc) Name() string { return "func" }

func (f transformationFunc) Transform(g *graph.Graph) (*graph.Graph, error) { return f(g) }
