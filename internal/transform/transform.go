package transform

import (
	"fmt"

	"github.com/rewire-ml/rewire/internal/graph"
)

// Transformation is a named, stateless unit of graph mutation. Transform
// mutates the graph in place and returns the authoritative graph instance
// (usually the input, a fresh copy for copying transformations).
//
// Implementations are reusable across graphs. They assume exclusive
// ownership of the graph for the duration of the call.
type Transformation interface {
	Name() string
	Transform(g *graph.Graph) (*graph.Graph, error)
}

// ReversibleTransformation is a Transformation with an inverse. For every
// graph in the transformation's domain, Reverse(Transform(g)) is
// observationally equivalent to g.
type ReversibleTransformation interface {
	Transformation
	Reverse(g *graph.Graph) (*graph.Graph, error)
}

// CapabilityError reports a reverse request on a transformation that has no
// inverse. Member names the irreversible step when the transformation is a
// composition.
type CapabilityError struct {
	Transformation string
	Member         string
}

func (e *CapabilityError) Error() string {
	if e.Member != "" && e.Member != e.Transformation {
		return fmt.Sprintf("transformation %q is not reversible: member %q has no reverse", e.Transformation, e.Member)
	}
	return fmt.Sprintf("transformation %q is not reversible", e.Transformation)
}

// Apply runs a transformation and lints the result. This is the uniform
// call surface: callers must treat the returned graph as authoritative.
func Apply(g *graph.Graph, t Transformation) (*graph.Graph, error) {
	out, err := t.Transform(g)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Name(), err)
	}
	if err := out.Lint(); err != nil {
		return nil, fmt.Errorf("%s: lint after transform: %w", t.Name(), err)
	}
	return out, nil
}

// Revert runs a transformation's inverse and lints the result. It fails
// with a *CapabilityError when t has no inverse.
func Revert(g *graph.Graph, t Transformation) (*graph.Graph, error) {
	rt, ok := t.(ReversibleTransformation)
	if !ok {
		return nil, &CapabilityError{Transformation: t.Name(), Member: firstIrreversible(t)}
	}
	out, err := rt.Reverse(g)
	if err != nil {
		return nil, fmt.Errorf("%s: reverse: %w", t.Name(), err)
	}
	if err := out.Lint(); err != nil {
		return nil, fmt.Errorf("%s: lint after reverse: %w", t.Name(), err)
	}
	return out, nil
}

// firstIrreversible names the step that makes t irreversible: the first
// non-reversible member of a composition, or t itself.
func firstIrreversible(t Transformation) string {
	if c, ok := t.(*composition); ok {
		for _, m := range c.members {
			if _, ok := m.(ReversibleTransformation); !ok {
				return m.Name()
			}
		}
	}
	return t.Name()
}
