package transform

import (
	"fmt"
	"strings"

	"github.com/rewire-ml/rewire/internal/graph"
	"github.com/rewire-ml/rewire/internal/logging"
)

// MergeLinears merges linear call_module nodes that consume the same input
// node into one big linear module whose weight rows are the member weights
// concatenated. Each original node is rewritten into a getitem row-slice of
// the merged node, so downstream consumers keep their references.
//
// The reverse pass splits the merged module back along the recorded slice
// bounds and restores the original call_module nodes. Merging modules with
// mixed bias is equivalent to giving a zero bias to the ones missing it,
// which the reverse pass cannot undo; a warning is logged in that case.
type MergeLinears struct{}

// Name implements Transformation.
func (MergeLinears) Name() string { return "merge-linears" }

// Transform implements Transformation.
func (t MergeLinears) Transform(g *graph.Graph) (*graph.Graph, error) {
	var inputs []graph.NodeRef
	candidates := make(map[graph.NodeRef][]graph.NodeRef)
	for _, ref := range g.Nodes() {
		n := g.Node(ref)
		if n.Op != graph.CallModule {
			continue
		}
		if g.Module(n.Target) == nil {
			return nil, &graph.NodeError{Name: n.Name, Ref: ref, Reason: fmt.Sprintf("unknown module %q", n.Target)}
		}
		if len(n.Args) != 1 || n.Args[0].Kind != graph.ArgNode {
			return nil, &graph.NodeError{Name: n.Name, Ref: ref, Reason: "call_module expects a single node argument"}
		}
		input := n.Args[0].Node
		if _, seen := candidates[input]; !seen {
			inputs = append(inputs, input)
		}
		candidates[input] = append(candidates[input], ref)
	}

	for _, input := range inputs {
		if refs := candidates[input]; len(refs) > 1 {
			if err := t.merge(g, input, refs); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

func (t MergeLinears) merge(g *graph.Graph, input graph.NodeRef, refs []graph.NodeRef) error {
	names := make([]string, len(refs))
	mods := make([]*graph.Linear, len(refs))
	useBias := false
	for i, ref := range refs {
		n := g.Node(ref)
		names[i] = n.Target
		mods[i] = g.Module(n.Target)
		if mods[i].InFeatures != mods[0].InFeatures {
			return &graph.NodeError{Name: n.Name, Ref: ref, Reason: fmt.Sprintf(
				"module %q has %d input features, sibling has %d", n.Target, mods[i].InFeatures, mods[0].InFeatures)}
		}
		if mods[i].Bias != nil {
			useBias = true
		}
	}
	if useBias {
		for _, m := range mods {
			if m.Bias == nil {
				logging.L().Warn("merging linears with mixed bias; missing biases become zero",
					"transformation", t.Name(), "merged", strings.Join(names, "-"))
				break
			}
		}
	}

	in := mods[0].InFeatures
	totalOut := 0
	merged := &graph.Linear{InFeatures: in}
	for _, m := range mods {
		totalOut += m.OutFeatures
		merged.Weight = append(merged.Weight, m.Weight...)
		if useBias {
			if m.Bias != nil {
				merged.Bias = append(merged.Bias, m.Bias...)
			} else {
				merged.Bias = append(merged.Bias, make([]float32, m.OutFeatures)...)
			}
		}
	}
	merged.OutFeatures = totalOut

	mergedName := strings.Join(names, "-") + "-merged"
	if err := g.AddModule(mergedName, merged); err != nil {
		return err
	}
	mergedRef, err := g.InsertAfter(input, mergedName, graph.CallModule, mergedName, graph.NodeArg(input))
	if err != nil {
		return err
	}
	g.Node(mergedRef).TransformedBy = t.Name()

	start := 0
	for i, ref := range refs {
		stop := start + mods[i].OutFeatures
		n := g.Node(ref)
		g.RemoveModule(n.Target)
		n.Op = graph.CallFunction
		n.Target = "getitem"
		n.Args = []graph.Arg{graph.NodeArg(mergedRef), graph.IntArg(int64(start)), graph.IntArg(int64(stop))}
		start = stop
	}
	return nil
}

// Reverse implements ReversibleTransformation.
func (t MergeLinears) Reverse(g *graph.Graph) (*graph.Graph, error) {
	for _, ref := range g.Nodes() {
		n := g.Node(ref)
		if n != nil && n.Op == graph.CallModule && n.TransformedBy == t.Name() {
			if err := t.unmerge(g, ref); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

func (t MergeLinears) unmerge(g *graph.Graph, mergedRef graph.NodeRef) error {
	mergedNode := g.Node(mergedRef)
	merged := g.Module(mergedNode.Target)
	if merged == nil {
		return &graph.NodeError{Name: mergedNode.Name, Ref: mergedRef, Reason: fmt.Sprintf("unknown module %q", mergedNode.Target)}
	}
	names := strings.Split(strings.TrimSuffix(mergedNode.Target, "-merged"), "-")
	input := mergedNode.Args[0]

	// The module names and the slice nodes must line up: the merged name
	// records concatenation order, the slice start index recovers it.
	users := g.Users(mergedRef)
	if len(users) != len(names) {
		return &graph.NodeError{Name: mergedNode.Name, Ref: mergedRef, Reason: fmt.Sprintf(
			"merged node has %d users, expected %d", len(users), len(names))}
	}
	sortBySliceStart(g, users)

	in := merged.InFeatures
	for i, userRef := range users {
		un := g.Node(userRef)
		if un.Op != graph.CallFunction || un.Target != "getitem" || len(un.Args) != 3 ||
			un.Args[1].Kind != graph.ArgInt || un.Args[2].Kind != graph.ArgInt {
			return &graph.NodeError{Name: un.Name, Ref: userRef, Reason: "user of merged linear is not a row slice"}
		}
		start, stop := int(un.Args[1].Int), int(un.Args[2].Int)
		if start < 0 || stop > merged.OutFeatures || start >= stop {
			return &graph.NodeError{Name: un.Name, Ref: userRef, Reason: fmt.Sprintf("slice [%d:%d] out of range", start, stop)}
		}
		lin := &graph.Linear{
			InFeatures:  in,
			OutFeatures: stop - start,
			Weight:      append([]float32(nil), merged.Weight[start*in:stop*in]...),
		}
		if merged.Bias != nil {
			lin.Bias = append([]float32(nil), merged.Bias[start:stop]...)
		}
		if err := g.AddModule(names[i], lin); err != nil {
			return err
		}
		un.Op = graph.CallModule
		un.Target = names[i]
		un.Args = []graph.Arg{input}
		un.TransformedBy = ""
	}

	g.RemoveModule(mergedNode.Target)
	return g.Erase(mergedRef)
}

func sortBySliceStart(g *graph.Graph, refs []graph.NodeRef) {
	for i := 1; i < len(refs); i++ {
		for j := i; j > 0 && sliceStart(g, refs[j]) < sliceStart(g, refs[j-1]); j-- {
			refs[j], refs[j-1] = refs[j-1], refs[j]
		}
	}
}

func sliceStart(g *graph.Graph, ref graph.NodeRef) int64 {
	n := g.Node(ref)
	if len(n.Args) == 3 && n.Args[1].Kind == graph.ArgInt {
		return n.Args[1].Int
	}
	return -1
}
