package transform

import (
	"fmt"
	"sort"
)

// Factory builds a transformation from pipeline parameters.
type Factory func(params map[string]any) (Transformation, error)

// Registry maps transformation names to factories so pipelines can refer to
// transformations by name.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry with all built-in transformations.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(MergeLinears{}.Name(), noParams(func() Transformation { return MergeLinears{} }))
	r.Register(ChangeDivToMulByInverse{}.Name(), noParams(func() Transformation { return ChangeDivToMulByInverse{} }))
	r.Register(DeepCopy{}.Name(), noParams(func() Transformation { return DeepCopy{} }))
	r.Register(Validate{}.Name(), noParams(func() Transformation { return Validate{} }))
	return r
}

// Register adds a named factory, replacing any existing one.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Build constructs the named transformation.
func (r *Registry) Build(name string, params map[string]any) (Transformation, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown transformation: %q", name)
	}
	return f(params)
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func noParams(build func() Transformation) Factory {
	return func(params map[string]any) (Transformation, error) {
		t := build()
		if len(params) > 0 {
			return nil, fmt.Errorf("transformation %q takes no parameters", t.Name())
		}
		return t, nil
	}
}
