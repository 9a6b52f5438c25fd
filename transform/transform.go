// Copyright 2026 The Rewire Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package transform

import (
	internalgraph "github.com/rewire-ml/rewire/internal/graph"
	internaltransform "github.com/rewire-ml/rewire/internal/transform"
)

// Transformation is a named, stateless unit of graph mutation.
type Transformation = internaltransform.Transformation

// ReversibleTransformation is a Transformation with an inverse.
type ReversibleTransformation = internaltransform.ReversibleTransformation

// CapabilityError reports a reverse request on a transformation that has no
// inverse.
type CapabilityError = internaltransform.CapabilityError

// MergeLinears merges linear call_module nodes sharing an input into one.
type MergeLinears = internaltransform.MergeLinears

// ChangeDivToMulByInverse rewrites division by a literal into
// multiplication by the inverse.
type ChangeDivToMulByInverse = internaltransform.ChangeDivToMulByInverse

// DeepCopy returns a deep copy of the graph.
type DeepCopy = internaltransform.DeepCopy

// Validate lints the graph and changes nothing.
type Validate = internaltransform.Validate

// Registry maps transformation names to factories.
type Registry = internaltransform.Registry

// Factory builds a transformation from pipeline parameters.
type Factory = internaltransform.Factory

// Apply runs a transformation and lints the result. Callers must treat the
// returned graph as authoritative.
func Apply(g *internalgraph.Graph, t Transformation) (*internalgraph.Graph, error) {
	return internaltransform.Apply(g, t)
}

// Revert runs a transformation's inverse and lints the result. It fails
// with a *CapabilityError when t has no inverse.
func Revert(g *internalgraph.Graph, t Transformation) (*internalgraph.Graph, error) {
	return internaltransform.Revert(g, t)
}

// Compose builds one transformation applying the given ones in order. The
// result is reversible iff every member is.
func Compose(ts ...Transformation) Transformation {
	return internaltransform.Compose(ts...)
}

// ComposeCopy is Compose with a DeepCopy prepended, leaving the input graph
// untouched.
func ComposeCopy(ts ...Transformation) Transformation {
	return internaltransform.ComposeCopy(ts...)
}

// NewRegistry creates a registry with all built-in transformations.
func NewRegistry() *Registry {
	return internaltransform.NewRegistry()
}
