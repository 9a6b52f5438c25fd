// Copyright 2026 The Rewire Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import (
	internalgraph "github.com/rewire-ml/rewire/internal/graph"
)

// Graph is an in-memory traced computation.
type Graph = internalgraph.Graph

// Node is a single operation in a graph.
type Node = internalgraph.Node

// NodeRef is a stable arena index for a node.
type NodeRef = internalgraph.NodeRef

// Arg is a node argument: a node reference or a literal.
type Arg = internalgraph.Arg

// Op is the operation kind of a node.
type Op = internalgraph.Op

// Operation kinds.
const (
	Placeholder  = internalgraph.Placeholder
	CallFunction = internalgraph.CallFunction
	CallModule   = internalgraph.CallModule
	GetAttr      = internalgraph.GetAttr
	Output       = internalgraph.Output
)

// Linear is a named fully-connected module referenced by call_module nodes.
type Linear = internalgraph.Linear

// NodeError reports a structural mismatch at a specific node.
type NodeError = internalgraph.NodeError

// New returns an empty graph.
func New() *Graph {
	return internalgraph.New()
}

// NodeArg returns an Arg referencing another node.
func NodeArg(ref NodeRef) Arg { return internalgraph.NodeArg(ref) }

// FloatArg returns a float literal Arg.
func FloatArg(v float64) Arg { return internalgraph.FloatArg(v) }

// IntArg returns an int literal Arg.
func IntArg(v int64) Arg { return internalgraph.IntArg(v) }

// StringArg returns a string literal Arg.
func StringArg(v string) Arg { return internalgraph.StringArg(v) }

// Equivalent reports whether two graphs are observationally equivalent:
// same live node count, op kinds, targets and argument structure, numeric
// literals within tol, and matching module tables.
func Equivalent(a, b *Graph, tol float64) bool {
	return internalgraph.Equivalent(a, b, tol)
}
