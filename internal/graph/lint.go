package graph

import "fmt"

// NodeError reports a structural mismatch at a specific node: an argument
// that does not resolve, wrong arity for a known target, or an otherwise
// malformed node shape.
type NodeError struct {
	Name   string
	Ref    NodeRef
	Reason string
}

func (e *NodeError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("node %q (%%%d): %s", e.Name, e.Ref, e.Reason)
	}
	return fmt.Sprintf("node %%%d: %s", e.Ref, e.Reason)
}

// builtinArity is the expected argument count for well-known call_function
// targets. Targets not listed are free-form and go unchecked.
var builtinArity = map[string]int{
	"add":     2,
	"sub":     2,
	"mul":     2,
	"div":     2,
	"matmul":  2,
	"getitem": 3, // source node, row start, row stop
}

// Lint checks the structural validity of the graph: every node-ref argument
// must resolve to a live node defined earlier in execution order, every
// call_module target must name a registered module, and known builtin
// targets must have their expected arity. The first violation is returned
// as a *NodeError.
func (g *Graph) Lint() error {
	defined := make(map[NodeRef]bool, len(g.order))
	for _, ref := range g.order {
		n := &g.nodes[ref]
		for i, a := range n.Args {
			if a.Kind != ArgNode {
				continue
			}
			if g.Node(a.Node) == nil {
				return &NodeError{Name: n.Name, Ref: ref, Reason: fmt.Sprintf("arg %d references dead node %%%d", i, a.Node)}
			}
			if !defined[a.Node] {
				return &NodeError{Name: n.Name, Ref: ref, Reason: fmt.Sprintf("arg %d references %%%d before its definition", i, a.Node)}
			}
		}
		if err := g.lintNode(ref, n); err != nil {
			return err
		}
		defined[ref] = true
	}
	return nil
}

func (g *Graph) lintNode(ref NodeRef, n *Node) error {
	switch n.Op {
	case Placeholder:
		if len(n.Args) != 0 {
			return &NodeError{Name: n.Name, Ref: ref, Reason: "placeholder must not have arguments"}
		}
	case CallModule:
		if g.Module(n.Target) == nil {
			return &NodeError{Name: n.Name, Ref: ref, Reason: fmt.Sprintf("unknown module %q", n.Target)}
		}
		if len(n.Args) != 1 {
			return &NodeError{Name: n.Name, Ref: ref, Reason: fmt.Sprintf("call_module expects 1 argument, got %d", len(n.Args))}
		}
	case CallFunction:
		if want, ok := builtinArity[n.Target]; ok && len(n.Args) != want {
			return &NodeError{Name: n.Name, Ref: ref, Reason: fmt.Sprintf("%s expects %d arguments, got %d", n.Target, want, len(n.Args))}
		}
	case GetAttr, Output:
		// Free-form.
	default:
		return &NodeError{Name: n.Name, Ref: ref, Reason: fmt.Sprintf("unknown op kind %q", n.Op)}
	}
	return nil
}
