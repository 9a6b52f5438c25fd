package transform

import (
	"github.com/rewire-ml/rewire/internal/graph"
)

// ChangeDivToMulByInverse rewrites call_function div nodes whose denominator
// is a float literal into multiplication by the inverse. Divisions by
// another node are left alone. This is the usual rewrite for static scaling
// factors such as attention score scaling.
//
// The reverse pass restores div by inverting the literal again; for the
// power-of-two scaling factors this targets, the round trip is exact.
type ChangeDivToMulByInverse struct{}

// Name implements Transformation.
func (ChangeDivToMulByInverse) Name() string { return "div-to-mul-by-inverse" }

// Transform implements Transformation.
func (t ChangeDivToMulByInverse) Transform(g *graph.Graph) (*graph.Graph, error) {
	for _, ref := range g.Nodes() {
		n := g.Node(ref)
		if n.Op != graph.CallFunction || n.Target != "div" {
			continue
		}
		if len(n.Args) != 2 {
			return nil, &graph.NodeError{Name: n.Name, Ref: ref, Reason: "div expects 2 arguments"}
		}
		if n.Args[1].Kind != graph.ArgFloat {
			continue
		}
		n.Target = "mul"
		n.Args[1] = graph.FloatArg(1 / n.Args[1].Float)
		n.TransformedBy = t.Name()
	}
	return g, nil
}

// Reverse implements ReversibleTransformation.
func (t ChangeDivToMulByInverse) Reverse(g *graph.Graph) (*graph.Graph, error) {
	for _, ref := range g.Nodes() {
		n := g.Node(ref)
		if n.TransformedBy != t.Name() {
			continue
		}
		if n.Target != "mul" || len(n.Args) != 2 || n.Args[1].Kind != graph.ArgFloat {
			return nil, &graph.NodeError{Name: n.Name, Ref: ref, Reason: "marked node is not a mul by literal"}
		}
		n.Target = "div"
		n.Args[1] = graph.FloatArg(1 / n.Args[1].Float)
		n.TransformedBy = ""
	}
	return g, nil
}
