package transform

import "github.com/rewire-ml/rewire/internal/graph"

// DeepCopy does nothing except return a deep copy of the graph. Clone keeps
// TransformedBy markers, so reverse passes of earlier transformations still
// work on the copy.
type DeepCopy struct{}

// Name implements Transformation.
func (DeepCopy) Name() string { return "deep-copy" }

// Transform implements Transformation.
func (DeepCopy) Transform(g *graph.Graph) (*graph.Graph, error) {
	return g.Clone(), nil
}

// Reverse implements ReversibleTransformation.
func (DeepCopy) Reverse(g *graph.Graph) (*graph.Graph, error) {
	return g.Clone(), nil
}

// Validate does nothing except lint the graph, failing on the first
// structural mismatch.
type Validate struct{}

// Name implements Transformation.
func (Validate) Name() string { return "validate" }

// Transform implements Transformation.
func (Validate) Transform(g *graph.Graph) (*graph.Graph, error) {
	if err := g.Lint(); err != nil {
		return nil, err
	}
	return g, nil
}

// Reverse implements ReversibleTransformation.
func (v Validate) Reverse(g *graph.Graph) (*graph.Graph, error) {
	return v.Transform(g)
}
