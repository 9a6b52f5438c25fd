// Package onnx imports ONNX computation graphs for transformation.
//
// ONNX (Open Neural Network Exchange) is an open format for representing
// deep learning models. This package implements a hand-written protobuf
// parser for .onnx files without external dependencies, decoding only the
// structural fields the graph importer consumes, and converts the parsed
// graph into a rewire graph:
//
//   - graph inputs become placeholder nodes
//   - initializers (weights) become get_attr nodes
//   - operation nodes become call_function nodes with name-resolved args
//   - Gemm/MatMul nodes backed by initializer weights are promoted to
//     linear call_module nodes so module-level transformations apply
//   - graph outputs become a single output node
//
// Execution is out of scope: imported graphs are transformed and handed to
// external engines.
//
// Example usage:
//
//	g, err := onnx.ImportFile("model.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(g.String())
package onnx
