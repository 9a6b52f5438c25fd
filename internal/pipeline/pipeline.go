package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rewire-ml/rewire/internal/transform"
)

// SupportedSchema is the pipeline file schema this build understands.
const SupportedSchema = "v1"

// Step names one transformation in a pipeline, with optional parameters.
type Step struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

// File is a parsed pipeline document: an ordered list of transformations to
// compose into one.
type File struct {
	SchemaVersion string `yaml:"schema_version"`
	Steps         []Step `yaml:"pipeline"`
}

// Load parses a pipeline YAML and validates its schema_version.
func Load(path string) (File, error) {
	var f File
	raw, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("parse pipeline %s: %w", path, err)
	}
	if f.SchemaVersion == "" {
		f.SchemaVersion = SupportedSchema
	}
	if f.SchemaVersion != SupportedSchema {
		return f, fmt.Errorf("pipeline schema_version %q not supported (want %q)", f.SchemaVersion, SupportedSchema)
	}
	if len(f.Steps) == 0 {
		return f, fmt.Errorf("pipeline %s has no steps", path)
	}
	return f, nil
}

// Compile builds each step through the registry and composes them in order.
func Compile(f File, reg *transform.Registry) (transform.Transformation, error) {
	ts := make([]transform.Transformation, len(f.Steps))
	for i, step := range f.Steps {
		t, err := reg.Build(step.Name, step.Params)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		ts[i] = t
	}
	return transform.Compose(ts...), nil
}

// CompileFile loads and compiles a pipeline in one call.
func CompileFile(path string, reg *transform.Registry) (transform.Transformation, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Compile(f, reg)
}
