// Package onnx imports ONNX models as rewire graphs.
//
// This package parses the ONNX (Open Neural Network Exchange) protobuf
// format with a hand-written decoder and converts the computation graph
// into a graph.Graph the transform package can rewrite. It does not execute
// models; transformed graphs are handed back to external engines.
//
// # Example Usage
//
//	import (
//	    "github.com/rewire-ml/rewire/onnx"
//	    "github.com/rewire-ml/rewire/transform"
//	)
//
//	g, err := onnx.ImportFile("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	g, err = transform.Apply(g, transform.MergeLinears{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Import mapping
//
//   - graph inputs -> placeholder nodes
//   - initializers -> get_attr nodes
//   - operation nodes -> call_function nodes (targets are lowercased op
//     types: Add -> add, Div -> div, ...)
//   - Gemm/MatMul with initializer weights -> linear call_module nodes
//   - graph outputs -> one output node
package onnx

import (
	internalgraph "github.com/rewire-ml/rewire/internal/graph"
	internalonnx "github.com/rewire-ml/rewire/internal/onnx"
)

// ModelInfo contains metadata about an ONNX model without importing it.
//
// Use [GetModelInfo] to quickly inspect a model file before importing.
type ModelInfo = internalonnx.ModelInfo

// ImportFile parses an ONNX file and converts it into a rewire graph.
//
// Example:
//
//	g, err := onnx.ImportFile("resnet18.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(g.String())
func ImportFile(path string) (*internalgraph.Graph, error) {
	return internalonnx.ImportFile(path)
}

// ImportBytes parses ONNX bytes and converts them into a rewire graph.
//
// This is useful when the model is embedded in the binary or loaded from a
// network source.
func ImportBytes(data []byte) (*internalgraph.Graph, error) {
	return internalonnx.ImportBytes(data)
}

// GetModelInfo extracts metadata from an ONNX file without importing it.
//
// Example:
//
//	info, err := onnx.GetModelInfo("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Producer: %s\n", info.ProducerName)
//	fmt.Printf("Opset: %d\n", info.OpsetVersion)
//	fmt.Printf("Operators: %v\n", info.Operators)
func GetModelInfo(path string) (*ModelInfo, error) {
	return internalonnx.GetModelInfo(path)
}
