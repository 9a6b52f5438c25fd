package transform

import (
	"strings"

	"github.com/rewire-ml/rewire/internal/graph"
)

// Compose builds one transformation from an ordered sequence: the forward
// pass applies each member left to right. The result is reversible iff
// every member is reversible, in which case its reverse applies the member
// inverses in reverse order. Nested compositions are flattened, so
// Compose(Compose(a, b), c) and Compose(a, b, c) behave identically.
func Compose(ts ...Transformation) Transformation {
	members := flatten(ts)
	c := &composition{members: members}
	for _, m := range members {
		if _, ok := m.(ReversibleTransformation); !ok {
			return c
		}
	}
	return &reversibleComposition{composition: *c}
}

// ComposeCopy is Compose with a DeepCopy prepended: the input graph is left
// untouched and the composition operates on a fresh copy.
func ComposeCopy(ts ...Transformation) Transformation {
	return Compose(append([]Transformation{DeepCopy{}}, ts...)...)
}

func flatten(ts []Transformation) []Transformation {
	members := make([]Transformation, 0, len(ts))
	for _, t := range ts {
		switch c := t.(type) {
		case *composition:
			members = append(members, c.members...)
		case *reversibleComposition:
			members = append(members, c.members...)
		default:
			members = append(members, t)
		}
	}
	return members
}

// composition applies members in sequence. It deliberately does not
// implement Reverse; Revert reports the offending member instead.
type composition struct {
	members []Transformation
}

func (c *composition) Name() string {
	names := make([]string, len(c.members))
	for i, m := range c.members {
		names[i] = m.Name()
	}
	return "compose(" + strings.Join(names, ", ") + ")"
}

func (c *composition) Transform(g *graph.Graph) (*graph.Graph, error) {
	var err error
	for _, m := range c.members {
		if g, err = m.Transform(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

type reversibleComposition struct {
	composition
}

func (c *reversibleComposition) Reverse(g *graph.Graph) (*graph.Graph, error) {
	var err error
	for i := len(c.members) - 1; i >= 0; i-- {
		rt := c.members[i].(ReversibleTransformation)
		if g, err = rt.Reverse(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}
