package graph

import "math"

// Equivalent reports whether two graphs are observationally equivalent:
// same live node count, same op kinds, targets and argument structure in
// execution order, numeric literals within tol, and matching module tables.
// Node names, refs and TransformedBy markers are not compared; equivalence
// is positional, so graphs that differ only in arena layout still match.
func Equivalent(a, b *Graph, tol float64) bool {
	if a.Len() != b.Len() {
		return false
	}
	aOrder, bOrder := a.Nodes(), b.Nodes()
	aPos := positions(aOrder)
	bPos := positions(bOrder)
	for i := range aOrder {
		an, bn := a.Node(aOrder[i]), b.Node(bOrder[i])
		if an.Op != bn.Op || an.Target != bn.Target || len(an.Args) != len(bn.Args) {
			return false
		}
		for j := range an.Args {
			if !argsEquivalent(an.Args[j], bn.Args[j], aPos, bPos, tol) {
				return false
			}
		}
	}
	return modulesEquivalent(a, b, tol)
}

func positions(order []NodeRef) map[NodeRef]int {
	pos := make(map[NodeRef]int, len(order))
	for i, ref := range order {
		pos[ref] = i
	}
	return pos
}

func argsEquivalent(x, y Arg, xPos, yPos map[NodeRef]int, tol float64) bool {
	if x.Kind != y.Kind {
		return false
	}
	switch x.Kind {
	case ArgNode:
		return xPos[x.Node] == yPos[y.Node]
	case ArgFloat:
		return math.Abs(x.Float-y.Float) <= tol
	case ArgInt:
		return x.Int == y.Int
	case ArgString:
		return x.Str == y.Str
	}
	return false
}

func modulesEquivalent(a, b *Graph, tol float64) bool {
	aNames := a.ModuleNames()
	if len(aNames) != len(b.ModuleNames()) {
		return false
	}
	for _, name := range aNames {
		am, bm := a.Module(name), b.Module(name)
		if bm == nil {
			return false
		}
		if am.InFeatures != bm.InFeatures || am.OutFeatures != bm.OutFeatures {
			return false
		}
		if (am.Bias == nil) != (bm.Bias == nil) {
			return false
		}
		if !floatsWithin(am.Weight, bm.Weight, tol) || !floatsWithin(am.Bias, bm.Bias, tol) {
			return false
		}
	}
	return true
}

func floatsWithin(x, y []float32, tol float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if math.Abs(float64(x[i])-float64(y[i])) > tol {
			return false
		}
	}
	return true
}
