// Copyright 2026 The Rewire Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides the traced-computation graph the rewire
// transformations operate on.
//
// # Overview
//
// A Graph is an ordered sequence of nodes, each with an operation kind, a
// target and an argument list. Nodes live in an arena and are addressed by
// stable NodeRef indices: transformations rewrite nodes in place, so every
// other reference stays valid.
//
// Graphs are normally produced by an external tracer or imported from ONNX
// (see the onnx package); this package also lets tests and tools build them
// by hand:
//
//	g := graph.New()
//	x := g.NewNode("x", graph.Placeholder, "x")
//	y := g.NewNode("y", graph.Placeholder, "y")
//	p := g.NewNode("prod", graph.CallFunction, "mul", graph.NodeArg(x), graph.NodeArg(y))
//	g.NewNode("output", graph.Output, "output", graph.NodeArg(p))
//
//	if err := g.Lint(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Ownership
//
// A graph is exclusively owned by the calling goroutine for the duration of
// a transformation call chain. There is no internal locking; concurrent
// mutation is undefined.
package graph
