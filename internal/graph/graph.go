package graph

import (
	"fmt"
	"strings"
)

// Op is the operation kind of a node.
type Op string

// Operation kinds.
const (
	Placeholder  Op = "placeholder"   // graph input
	CallFunction Op = "call_function" // free function (add, mul, getitem, ...)
	CallModule   Op = "call_module"   // named parameterized module
	GetAttr      Op = "get_attr"      // constant/weight reference
	Output       Op = "output"        // graph output
)

// NodeRef is a stable arena index for a node. Refs stay valid across
// insertions and erasures; only the erased node's own ref becomes dead.
type NodeRef int

// ArgKind discriminates Arg variants.
type ArgKind int

// Arg variants.
const (
	ArgNode ArgKind = iota
	ArgFloat
	ArgInt
	ArgString
)

// Arg is a single node argument: either a reference to another node in the
// same graph or a literal value.
type Arg struct {
	Kind  ArgKind
	Node  NodeRef
	Float float64
	Int   int64
	Str   string
}

// NodeArg returns an Arg referencing another node.
func NodeArg(ref NodeRef) Arg { return Arg{Kind: ArgNode, Node: ref} }

// FloatArg returns a float literal Arg.
func FloatArg(v float64) Arg { return Arg{Kind: ArgFloat, Float: v} }

// IntArg returns an int literal Arg.
func IntArg(v int64) Arg { return Arg{Kind: ArgInt, Int: v} }

// StringArg returns a string literal Arg.
func StringArg(v string) Arg { return Arg{Kind: ArgString, Str: v} }

// Node is a single operation in a traced graph.
type Node struct {
	Name   string
	Op     Op
	Target string
	Args   []Arg

	// TransformedBy names the transformation that rewrote this node, so a
	// reversible transformation can find its own work on the reverse pass.
	TransformedBy string

	erased bool
}

// Linear is a named fully-connected module referenced by call_module nodes.
// Weight is row-major with OutFeatures rows of InFeatures values. Bias is
// nil when the module has none.
type Linear struct {
	InFeatures  int
	OutFeatures int
	Weight      []float32
	Bias        []float32
}

// Graph is an in-memory traced computation: an arena of nodes plus an
// explicit execution order. Nodes are addressed by stable NodeRef indices,
// so rewriting a node in place never invalidates other references.
//
// A Graph is owned by a single goroutine for the duration of a
// transformation call chain; concurrent mutation is not supported.
type Graph struct {
	nodes   []Node
	order   []NodeRef
	modules map[string]*Linear
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{modules: make(map[string]*Linear)}
}

// NewNode appends a node at the end of the execution order and returns its ref.
func (g *Graph) NewNode(name string, op Op, target string, args ...Arg) NodeRef {
	ref := NodeRef(len(g.nodes))
	g.nodes = append(g.nodes, Node{Name: name, Op: op, Target: target, Args: args})
	g.order = append(g.order, ref)
	return ref
}

// InsertAfter creates a node placed immediately after the given node in
// execution order.
func (g *Graph) InsertAfter(after NodeRef, name string, op Op, target string, args ...Arg) (NodeRef, error) {
	pos := g.position(after)
	if pos < 0 {
		return 0, fmt.Errorf("insert after %d: no such node", after)
	}
	ref := NodeRef(len(g.nodes))
	g.nodes = append(g.nodes, Node{Name: name, Op: op, Target: target, Args: args})
	g.order = append(g.order, 0)
	copy(g.order[pos+2:], g.order[pos+1:])
	g.order[pos+1] = ref
	return ref, nil
}

// Node returns the node for a ref, or nil if the ref is out of range or the
// node has been erased. The returned pointer is valid for in-place mutation
// until the next insertion.
func (g *Graph) Node(ref NodeRef) *Node {
	if ref < 0 || int(ref) >= len(g.nodes) || g.nodes[ref].erased {
		return nil
	}
	return &g.nodes[ref]
}

// Nodes returns the refs of all live nodes in execution order. The slice is
// a snapshot; mutating the graph during iteration is safe.
func (g *Graph) Nodes() []NodeRef {
	refs := make([]NodeRef, len(g.order))
	copy(refs, g.order)
	return refs
}

// Len returns the number of live nodes.
func (g *Graph) Len() int { return len(g.order) }

// Users returns the refs of live nodes that reference the given node in
// their arguments, in execution order.
func (g *Graph) Users(ref NodeRef) []NodeRef {
	var users []NodeRef
	for _, r := range g.order {
		for _, a := range g.nodes[r].Args {
			if a.Kind == ArgNode && a.Node == ref {
				users = append(users, r)
				break
			}
		}
	}
	return users
}

// Erase removes a node from the graph. It fails while other nodes still
// reference it, so erasure can never leave a dangling argument.
func (g *Graph) Erase(ref NodeRef) error {
	n := g.Node(ref)
	if n == nil {
		return fmt.Errorf("erase %d: no such node", ref)
	}
	if users := g.Users(ref); len(users) > 0 {
		return &NodeError{Name: n.Name, Ref: ref, Reason: fmt.Sprintf("cannot erase: still has %d users", len(users))}
	}
	pos := g.position(ref)
	g.order = append(g.order[:pos], g.order[pos+1:]...)
	g.nodes[ref].erased = true
	return nil
}

// AddModule registers a named module. Names must be unique.
func (g *Graph) AddModule(name string, m *Linear) error {
	if _, ok := g.modules[name]; ok {
		return fmt.Errorf("module %q already exists", name)
	}
	g.modules[name] = m
	return nil
}

// Module returns the named module, or nil.
func (g *Graph) Module(name string) *Linear { return g.modules[name] }

// RemoveModule unregisters a named module.
func (g *Graph) RemoveModule(name string) { delete(g.modules, name) }

// ModuleNames returns the registered module names in unspecified order.
func (g *Graph) ModuleNames() []string {
	names := make([]string, 0, len(g.modules))
	for name := range g.modules {
		names = append(names, name)
	}
	return names
}

// Clone returns a deep copy of the graph, including erased arena slots so
// that NodeRefs carry over unchanged, and including TransformedBy markers
// so reverse passes still work on the copy.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes:   make([]Node, len(g.nodes)),
		order:   make([]NodeRef, len(g.order)),
		modules: make(map[string]*Linear, len(g.modules)),
	}
	copy(c.order, g.order)
	for i := range g.nodes {
		n := g.nodes[i]
		n.Args = append([]Arg(nil), n.Args...)
		c.nodes[i] = n
	}
	for name, m := range g.modules {
		cm := &Linear{
			InFeatures:  m.InFeatures,
			OutFeatures: m.OutFeatures,
			Weight:      append([]float32(nil), m.Weight...),
		}
		if m.Bias != nil {
			cm.Bias = append([]float32(nil), m.Bias...)
		}
		c.modules[name] = cm
	}
	return c
}

// String returns a one-line-per-node summary of the graph.
func (g *Graph) String() string {
	var b strings.Builder
	for _, ref := range g.order {
		n := g.nodes[ref]
		fmt.Fprintf(&b, "%%%d %s = %s(%s)", ref, n.Op, n.Target, formatArgs(n.Args))
		if n.Name != "" {
			fmt.Fprintf(&b, " # %s", n.Name)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func formatArgs(args []Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		switch a.Kind {
		case ArgNode:
			parts[i] = fmt.Sprintf("%%%d", a.Node)
		case ArgFloat:
			parts[i] = fmt.Sprintf("%g", a.Float)
		case ArgInt:
			parts[i] = fmt.Sprintf("%d", a.Int)
		case ArgString:
			parts[i] = fmt.Sprintf("%q", a.Str)
		}
	}
	return strings.Join(parts, ", ")
}

// position returns the execution-order index of a live node, or -1.
func (g *Graph) position(ref NodeRef) int {
	for i, r := range g.order {
		if r == ref {
			return i
		}
	}
	return -1
}
