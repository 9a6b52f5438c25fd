package onnx

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/rewire-ml/rewire/internal/graph"
)

// ImportFile parses an ONNX file and converts it into a rewire graph.
func ImportFile(path string) (*graph.Graph, error) {
	proto, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return FromProto(proto)
}

// ImportBytes parses ONNX bytes and converts them into a rewire graph.
func ImportBytes(data []byte) (*graph.Graph, error) {
	proto, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return FromProto(proto)
}

// FromProto converts a parsed ONNX model into a rewire graph. Graph inputs
// become placeholders, initializers become get_attr nodes, each ONNX node
// becomes a call_function node, and graph outputs become one output node.
// Gemm and MatMul nodes backed by initializer weights are promoted to
// linear call_module nodes.
//
// Only single-output nodes are supported; a multi-output node is an import
// error naming the node.
func FromProto(model *ModelProto) (*graph.Graph, error) {
	if model.Graph == nil {
		return nil, fmt.Errorf("model has no graph")
	}
	imp := &importer{
		g:      graph.New(),
		byName: make(map[string]graph.NodeRef),
		inits:  make(map[string]*TensorProto),
	}
	gp := model.Graph
	for i := range gp.Initializers {
		imp.inits[gp.Initializers[i].Name] = &gp.Initializers[i]
	}

	for i := range gp.Inputs {
		name := gp.Inputs[i].Name
		if _, ok := imp.inits[name]; ok {
			continue
		}
		imp.byName[name] = imp.g.NewNode(name, graph.Placeholder, name)
	}

	for _, node := range topologicalSort(gp.Nodes) {
		if err := imp.addNode(node); err != nil {
			return nil, err
		}
	}

	outArgs := make([]graph.Arg, len(gp.Outputs))
	for i := range gp.Outputs {
		ref, ok := imp.byName[gp.Outputs[i].Name]
		if !ok {
			return nil, fmt.Errorf("graph output %q is not produced by any node", gp.Outputs[i].Name)
		}
		outArgs[i] = graph.NodeArg(ref)
	}
	imp.g.NewNode("output", graph.Output, "output", outArgs...)

	if err := imp.g.Lint(); err != nil {
		return nil, fmt.Errorf("imported graph: %w", err)
	}
	return imp.g, nil
}

type importer struct {
	g      *graph.Graph
	byName map[string]graph.NodeRef
	inits  map[string]*TensorProto
}

func (imp *importer) addNode(node NodeProto) error {
	if len(node.Outputs) != 1 {
		return fmt.Errorf("node %q (%s): %d outputs, only single-output nodes are supported",
			node.Name, node.OpType, len(node.Outputs))
	}

	if done, err := imp.promoteLinear(&node); err != nil || done {
		return err
	}

	args := make([]graph.Arg, 0, len(node.Inputs))
	for _, input := range node.Inputs {
		if input == "" {
			continue // optional input not provided
		}
		arg, err := imp.resolve(input, &node)
		if err != nil {
			return err
		}
		args = append(args, arg)
	}
	imp.byName[node.Outputs[0]] = imp.g.NewNode(nodeName(&node), graph.CallFunction, opTarget(node.OpType), args...)
	return nil
}

// resolve maps an input name to an argument: a ref to the producing node, a
// float literal for scalar initializers (so literal rewrites such as
// div-to-mul apply to imported graphs), or a get_attr node materialized for
// other initializers on first use.
func (imp *importer) resolve(input string, node *NodeProto) (graph.Arg, error) {
	if ref, ok := imp.byName[input]; ok {
		return graph.NodeArg(ref), nil
	}
	init, ok := imp.inits[input]
	if !ok {
		return graph.Arg{}, fmt.Errorf("node %q (%s): missing input %q", node.Name, node.OpType, input)
	}
	if isScalar(init) {
		data, err := tensorFloats(init)
		if err == nil {
			return graph.FloatArg(float64(data[0])), nil
		}
	}
	ref := imp.g.NewNode(input, graph.GetAttr, input)
	imp.byName[input] = ref
	return graph.NodeArg(ref), nil
}

// isScalar reports whether a tensor holds exactly one float element.
func isScalar(t *TensorProto) bool {
	if t.DataType != TensorProtoFloat {
		return false
	}
	n := 1
	for _, d := range t.Dims {
		n *= int(d)
	}
	return n == 1
}

// promoteLinear turns Gemm (transA=0, alpha=beta=1) and MatMul nodes whose
// weight operand is a 2-D float initializer into linear call_module nodes.
// Anything else falls through to the plain call_function path.
func (imp *importer) promoteLinear(node *NodeProto) (bool, error) {
	var weightName, biasName string
	switch node.OpType {
	case "Gemm":
		if len(node.Inputs) < 2 || len(node.Inputs) > 3 {
			return false, nil
		}
		if !gemmIsPlain(node) {
			return false, nil
		}
		weightName = node.Inputs[1]
		if len(node.Inputs) == 3 {
			biasName = node.Inputs[2]
		}
	case "MatMul":
		if len(node.Inputs) != 2 {
			return false, nil
		}
		weightName = node.Inputs[1]
	default:
		return false, nil
	}

	inputRef, ok := imp.byName[node.Inputs[0]]
	if !ok {
		return false, nil
	}
	w := imp.inits[weightName]
	if w == nil || len(w.Dims) != 2 {
		return false, nil
	}
	weights, err := tensorFloats(w)
	if err != nil {
		return false, nil
	}

	lin := &graph.Linear{}
	if node.OpType == "Gemm" && gemmTransB(node) {
		// B is (out, in) row-major, exactly our layout.
		lin.OutFeatures, lin.InFeatures = int(w.Dims[0]), int(w.Dims[1])
		lin.Weight = weights
	} else {
		// B is (in, out); transpose into row-major (out, in).
		lin.InFeatures, lin.OutFeatures = int(w.Dims[0]), int(w.Dims[1])
		lin.Weight = transpose(weights, lin.InFeatures, lin.OutFeatures)
	}

	if biasName != "" {
		b := imp.inits[biasName]
		if b == nil || len(b.Dims) != 1 || int(b.Dims[0]) != lin.OutFeatures {
			return false, nil
		}
		if lin.Bias, err = tensorFloats(b); err != nil {
			return false, nil
		}
	}

	moduleName := nodeName(node)
	if err := imp.g.AddModule(moduleName, lin); err != nil {
		return false, fmt.Errorf("node %q (%s): %w", node.Name, node.OpType, err)
	}
	imp.byName[node.Outputs[0]] = imp.g.NewNode(moduleName, graph.CallModule, moduleName, graph.NodeArg(inputRef))
	return true, nil
}

// gemmIsPlain reports whether a Gemm is a plain linear layer:
// alpha=1, beta=1, transA=0.
func gemmIsPlain(node *NodeProto) bool {
	for i := range node.Attributes {
		a := &node.Attributes[i]
		switch a.Name {
		case "alpha", "beta":
			if a.F != 1 {
				return false
			}
		case "transA":
			if a.I != 0 {
				return false
			}
		}
	}
	return true
}

func gemmTransB(node *NodeProto) bool {
	for i := range node.Attributes {
		if node.Attributes[i].Name == "transB" {
			return node.Attributes[i].I != 0
		}
	}
	return false
}

// tensorFloats decodes a float32 tensor's data from raw bytes or the legacy
// float_data field.
func tensorFloats(t *TensorProto) ([]float32, error) {
	if t.DataType != TensorProtoFloat {
		return nil, fmt.Errorf("tensor %q: data type %d is not float32", t.Name, t.DataType)
	}
	if len(t.RawData) > 0 {
		out := make([]float32, len(t.RawData)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(t.RawData[i*4:]))
		}
		return out, nil
	}
	if len(t.FloatData) > 0 {
		return append([]float32(nil), t.FloatData...), nil
	}
	return nil, fmt.Errorf("tensor %q has no data", t.Name)
}

func transpose(data []float32, rows, cols int) []float32 {
	out := make([]float32, len(data))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out[c*rows+r] = data[r*cols+c]
		}
	}
	return out
}

func nodeName(node *NodeProto) string {
	if node.Name != "" {
		return node.Name
	}
	return node.Outputs[0]
}

func opTarget(opType string) string {
	return strings.ToLower(opType)
}

// topologicalSort orders nodes so dependencies come before dependents. ONNX
// graphs are usually already sorted; models produced by some exporters are
// not, so the importer does not rely on it.
func topologicalSort(nodes []NodeProto) []NodeProto {
	outputToNode := make(map[string]int)
	for i := range nodes {
		for _, output := range nodes[i].Outputs {
			outputToNode[output] = i
		}
	}

	visited := make([]bool, len(nodes))
	result := make([]NodeProto, 0, len(nodes))

	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		for _, input := range nodes[i].Inputs {
			if depIdx, ok := outputToNode[input]; ok {
				visit(depIdx)
			}
		}
		result = append(result, nodes[i])
	}

	for i := range nodes {
		visit(i)
	}
	return result
}
