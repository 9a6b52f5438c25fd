// Copyright 2026 The Rewire Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package transform provides graph transformations and their composition.
//
// # Overview
//
// A Transformation is a named, stateless unit of graph mutation. Reversible
// transformations additionally carry an inverse: applying Transform and then
// Reverse yields a graph observationally equivalent to the original.
//
// Apply and Revert are the uniform call surface; they run the mutation and
// lint the result once:
//
//	g, err := transform.Apply(g, transform.MergeLinears{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	g, err = transform.Revert(g, transform.MergeLinears{})
//
// # Composition
//
// Compose folds an ordered sequence of transformations into one. The result
// is reversible only when every member is; its reverse applies the member
// inverses in reverse order:
//
//	t := transform.Compose(
//	    transform.ChangeDivToMulByInverse{},
//	    transform.MergeLinears{},
//	)
//	g, err := transform.Apply(g, t)
//
// Reverting a composition containing an irreversible member fails with a
// *CapabilityError naming that member.
//
// # Error handling
//
// Structural problems (a node shape a transformation cannot handle) surface
// as *graph.NodeError naming the offending node. A failed transformation
// may leave the graph partially mutated but never structurally invalid.
package transform
